package session

import (
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// State is the complete in-memory state of one session. Reduce never writes
// to the State it is given, so a previous State stays valid after a transition.
type State struct {
	Status       Status
	Test         *model.Test
	CurrentIndex int
	Remaining    int
	Responses    map[string]model.Response
	StartedAt    time.Time
	Foreground   bool
}

// NewState returns an idle, foregrounded state.
func NewState() State {
	return State{Status: StatusIdle, Foreground: true}
}

// Active reports whether a test is loaded.
func (s State) Active() bool { return s.Status != StatusIdle }

// CurrentQuestion returns the question in view.
func (s State) CurrentQuestion() (model.Question, bool) {
	if s.Test == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Test.Questions) {
		return model.Question{}, false
	}
	return s.Test.Questions[s.CurrentIndex], true
}

// LiveTimers counts responses holding a start mark.
func (s State) LiveTimers() int {
	n := 0
	for _, r := range s.Responses {
		if r.Active() {
			n++
		}
	}
	return n
}

func (s State) clone() State {
	out := s
	if s.Responses != nil {
		out.Responses = make(map[string]model.Response, len(s.Responses))
		for k, v := range s.Responses {
			if v.LastStart != nil {
				ls := *v.LastStart
				v.LastStart = &ls
			}
			out.Responses[k] = v
		}
	}
	return out
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Create loads a test and starts timing its first question.
type Create struct {
	Test *model.Test
	At   time.Time
}

// Goto moves to a question index; out of range indexes are ignored.
type Goto struct {
	Index int
	At    time.Time
}

// Select records an answer for a question.
type Select struct {
	QuestionID string
	Option     string
	At         time.Time
}

// Tick decrements the countdown by one second.
type Tick struct{}

// Background signals the app left the foreground.
type Background struct {
	At time.Time
}

// Foreground signals the app returned to the foreground.
type Foreground struct {
	At time.Time
}

// Submit finalizes the session into an attempt.
type Submit struct {
	AttemptID string
	At        time.Time
	Auto      bool
}

func (Create) isEvent()     {}
func (Goto) isEvent()       {}
func (Select) isEvent()     {}
func (Tick) isEvent()       {}
func (Background) isEvent() {}
func (Foreground) isEvent() {}
func (Submit) isEvent()     {}

// Outcome carries what a transition produced besides the next state.
type Outcome struct {
	// Changed is false when the event was absorbed as a no-op.
	Changed bool
	// Expired is set when a tick brought the countdown to zero.
	Expired bool
	// Attempt is set by a Submit on an active session.
	Attempt *model.Attempt
}

// Reduce applies ev to prev and returns the next state. prev is not modified.
func Reduce(prev State, ev Event) (State, Outcome) {
	switch e := ev.(type) {
	case Create:
		return reduceCreate(prev, e)
	case Goto:
		return reduceGoto(prev, e)
	case Select:
		return reduceSelect(prev, e)
	case Tick:
		return reduceTick(prev)
	case Background:
		return reduceBackground(prev, e)
	case Foreground:
		return reduceForeground(prev, e)
	case Submit:
		return reduceSubmit(prev, e)
	}
	return prev, Outcome{}
}

func reduceCreate(prev State, e Create) (State, Outcome) {
	if prev.Active() || e.Test == nil || len(e.Test.Questions) == 0 {
		return prev, Outcome{}
	}

	// A new session always starts Running in the foreground.
	next := State{
		Status:       StatusRunning,
		Test:         e.Test,
		CurrentIndex: 0,
		Remaining:    e.Test.TimeLimitSec,
		Responses:    make(map[string]model.Response, len(e.Test.Questions)),
		StartedAt:    e.At,
		Foreground:   true,
	}
	for _, q := range e.Test.Questions {
		next.Responses[q.ID] = model.Response{}
	}
	startTimer(next.Responses, e.Test.Questions[0].ID, e.At)
	return next, Outcome{Changed: true}
}

func reduceGoto(prev State, e Goto) (State, Outcome) {
	if !prev.Active() || e.Index < 0 || e.Index >= len(prev.Test.Questions) {
		return prev, Outcome{}
	}

	next := prev.clone()
	pauseCurrent(&next, e.At)
	next.CurrentIndex = e.Index
	if next.Status == StatusRunning {
		startTimer(next.Responses, next.Test.Questions[e.Index].ID, e.At)
	}
	return next, Outcome{Changed: true}
}

func reduceSelect(prev State, e Select) (State, Outcome) {
	if !prev.Active() || e.QuestionID == "" {
		return prev, Outcome{}
	}

	next := prev.clone()
	resp, ok := next.Responses[e.QuestionID]
	if !ok {
		// Only the question in view may hold a start mark.
		if cur, found := next.CurrentQuestion(); found && cur.ID == e.QuestionID && next.Status == StatusRunning {
			at := e.At
			resp.LastStart = &at
		}
	}
	resp.Selected = e.Option
	next.Responses[e.QuestionID] = resp
	return next, Outcome{Changed: true}
}

func reduceTick(prev State) (State, Outcome) {
	if prev.Status != StatusRunning {
		return prev, Outcome{}
	}

	next := prev
	if next.Remaining > 0 {
		next.Remaining--
	}
	return next, Outcome{Changed: true, Expired: next.Remaining <= 0}
}

// Lifecycle signals only matter while a test is loaded.
func reduceBackground(prev State, e Background) (State, Outcome) {
	if !prev.Active() || !prev.Foreground {
		return prev, Outcome{}
	}

	next := prev.clone()
	next.Foreground = false
	if next.Status == StatusRunning {
		pauseCurrent(&next, e.At)
		next.Status = StatusPaused
	}
	return next, Outcome{Changed: true}
}

func reduceForeground(prev State, e Foreground) (State, Outcome) {
	if !prev.Active() || prev.Foreground {
		return prev, Outcome{}
	}

	next := prev.clone()
	next.Foreground = true
	if next.Status == StatusPaused {
		next.Status = StatusRunning
		if cur, ok := next.CurrentQuestion(); ok {
			startTimer(next.Responses, cur.ID, e.At)
		}
	}
	return next, Outcome{Changed: true}
}

func reduceSubmit(prev State, e Submit) (State, Outcome) {
	if !prev.Active() {
		return prev, Outcome{}
	}

	work := prev.clone()
	pauseCurrent(&work, e.At)
	for id, r := range work.Responses {
		if r.LastStart != nil {
			flush(&r, e.At)
			work.Responses[id] = r
		}
	}

	attempt := &model.Attempt{
		ID:            e.AttemptID,
		TestID:        work.Test.ID,
		Responses:     work.Responses,
		StartedAt:     work.StartedAt,
		EndedAt:       e.At,
		AutoSubmitted: e.Auto,
	}

	return NewState(), Outcome{Changed: true, Attempt: attempt}
}

// pauseCurrent flushes the elapsed time of the question in view.
func pauseCurrent(s *State, at time.Time) {
	cur, ok := s.CurrentQuestion()
	if !ok {
		return
	}
	r, ok := s.Responses[cur.ID]
	if !ok {
		return
	}
	flush(&r, at)
	s.Responses[cur.ID] = r
}

// startTimer marks qID as timed from at, creating its response if needed.
func startTimer(responses map[string]model.Response, qID string, at time.Time) {
	r := responses[qID]
	start := at
	r.LastStart = &start
	responses[qID] = r
}

func flush(r *model.Response, at time.Time) {
	if r.LastStart == nil {
		return
	}
	if elapsed := at.Sub(*r.LastStart).Milliseconds(); elapsed > 0 {
		r.TotalTimeMs += elapsed
	}
	r.LastStart = nil
}
