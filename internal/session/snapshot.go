package session

import (
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

// ResponseView is a response with the running segment folded in.
type ResponseView struct {
	TotalTimeMs int64  `json:"totalTimeMs"`
	Active      bool   `json:"active"`
	Selected    string `json:"selected,omitempty"`
}

// Snapshot is the client-facing view of a session.
type Snapshot struct {
	Status          Status                  `json:"status"`
	Foreground      bool                    `json:"foreground"`
	TestID          string                  `json:"test_id,omitempty"`
	Title           string                  `json:"title,omitempty"`
	Mode            model.TestMode          `json:"mode,omitempty"`
	TimeLimitSec    int                     `json:"time_limit_sec,omitempty"`
	CurrentIndex    int                     `json:"current_index"`
	QuestionCount   int                     `json:"question_count"`
	Remaining       int                     `json:"remaining"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	CurrentQuestion *model.Question         `json:"current_question,omitempty"`
	Responses       map[string]ResponseView `json:"responses,omitempty"`
}

func (e *Engine) snapshotLocked() Snapshot {
	return BuildSnapshot(e.state, e.clock.Now())
}

// BuildSnapshot renders s as seen at now.
func BuildSnapshot(s State, now time.Time) Snapshot {
	snap := Snapshot{
		Status:       s.Status,
		Foreground:   s.Foreground,
		CurrentIndex: s.CurrentIndex,
		Remaining:    s.Remaining,
	}
	if s.Test == nil {
		return snap
	}

	started := s.StartedAt
	snap.TestID = s.Test.ID
	snap.Title = s.Test.Title
	snap.Mode = s.Test.Mode
	snap.TimeLimitSec = s.Test.TimeLimitSec
	snap.QuestionCount = len(s.Test.Questions)
	snap.StartedAt = &started
	if q, ok := s.CurrentQuestion(); ok {
		snap.CurrentQuestion = &q
	}

	snap.Responses = make(map[string]ResponseView, len(s.Responses))
	for id, r := range s.Responses {
		v := ResponseView{TotalTimeMs: r.TotalTimeMs, Selected: r.Selected}
		if r.LastStart != nil {
			v.Active = true
			if elapsed := now.Sub(*r.LastStart).Milliseconds(); elapsed > 0 {
				v.TotalTimeMs += elapsed
			}
		}
		snap.Responses[id] = v
	}
	return snap
}
