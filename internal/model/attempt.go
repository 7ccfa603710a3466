package model

import (
	"time"
)

// Response is the per-question timing and answer record of a session.
type Response struct {
	TotalTimeMs int64      `json:"totalTimeMs"`
	LastStart   *time.Time `json:"lastStart,omitempty"`
	Selected    string     `json:"selected,omitempty"`
}

// Active reports whether the question is currently being timed.
func (r Response) Active() bool { return r.LastStart != nil }

// Attempt is the finalized record of one completed session.
type Attempt struct {
	ID        string              `json:"id"`
	TestID    string              `json:"test_id"`
	Responses map[string]Response `json:"responses"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   time.Time           `json:"ended_at"`
	// AutoSubmitted is set when the countdown ran out.
	AutoSubmitted bool `json:"auto_submitted,omitempty"`
}

// TotalTimeMs sums the time spent over all responses.
func (a *Attempt) TotalTimeMs() int64 {
	var sum int64
	for _, r := range a.Responses {
		sum += r.TotalTimeMs
	}
	return sum
}

// ExportBundle is the artifact written once per submission.
type ExportBundle struct {
	Test    Test    `json:"test"`
	Attempt Attempt `json:"attempt"`
}

// GotoRequest moves the session to a question index.
type GotoRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SelectOptionRequest records an answer.
type SelectOptionRequest struct {
	QuestionID string `json:"question_id" binding:"required,notblank,max=64"`
	Option     string `json:"option" binding:"required,max=2000"`
}

// LifecycleState is the host environment state reported by the client.
type LifecycleState string

const (
	LifecycleActive     LifecycleState = "active"
	LifecycleInactive   LifecycleState = "inactive"
	LifecycleBackground LifecycleState = "background"
)

// Foreground reports whether the state counts as the app being in view.
func (s LifecycleState) Foreground() bool { return s == LifecycleActive }

// LifecycleRequest reports a lifecycle transition.
type LifecycleRequest struct {
	State string `json:"state" binding:"required,oneof=active inactive background"`
}
