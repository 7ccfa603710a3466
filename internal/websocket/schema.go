package websocket

import (
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionLifecycle Action = "lifecycle"
	ActionGoto      Action = "goto"
	ActionNext      Action = "next"
	ActionPrev      Action = "prev"
	ActionSelect    Action = "select"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload carries every action; fields unused by an action are ignored.
type RequestPayload struct {
	Action     Action `json:"action"`
	Index      *int   `json:"index,omitempty"`       // goto
	QuestionID string `json:"question_id,omitempty"` // select
	Option     string `json:"option,omitempty"`      // select
	State      string `json:"state,omitempty"`       // lifecycle
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse carries the session view after a change.
type StateResponse struct {
	Event Event            `json:"event"`
	Data  session.Snapshot `json:"data"`
}

// TickResponse is sent every countdown second.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

type SubmittedResponse struct {
	Event   Event          `json:"event"`
	Attempt *model.Attempt `json:"attempt"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
