package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/model"
)

// Session errors.
var (
	ErrNoQuestions      = errors.New("no questions to create a test from")
	ErrInvalidTimeLimit = errors.New("time limit must be positive")
	ErrSessionActive    = errors.New("a test session is already active")
	ErrNoActiveSession  = errors.New("no active test session")
	ErrUnknownQuestion  = errors.New("question is not part of the active test")
	ErrInvalidOption    = errors.New("option is not one of the question's choices")
	ErrEngineClosed     = errors.New("session engine is closed")
	ErrPersistence      = errors.New("persistence failed")
)

// Sink persists the records a session produces.
type Sink interface {
	SaveTest(ctx context.Context, test *model.Test) error
	SaveAttempt(ctx context.Context, test *model.Test, attempt *model.Attempt) error
}

// TestSpec describes a test to create.
type TestSpec struct {
	Title        string
	Mode         model.TestMode
	TimeLimitSec int
	Questions    []model.Question
}

// Options configures an Engine. Zero values fall back to the wall clock,
// time.Ticker, random UUIDs and a disabled logger.
type Options struct {
	Clock     Clock
	NewTicker TickerFactory
	NewID     func() string
	Log       zerolog.Logger
	// OnSubmitted runs after an attempt is stored, once the engine lock is
	// released. It may read any engine.
	OnSubmitted func()
}

// Engine owns one session: its state, the countdown ticker and the
// subscribers watching it. All mutations go through a single mutex so the
// countdown goroutine and callers see one ordered stream of transitions.
type Engine struct {
	mu    sync.Mutex
	state State
	sink  Sink

	clock     Clock
	newTicker TickerFactory
	newID     func() string
	log       zerolog.Logger

	onSubmitted func()
	submitted   bool

	stopTick chan struct{}
	subs     map[int]chan Notice
	nextSub  int
	closed   bool
}

// NewEngine creates an idle Engine that persists through sink.
func NewEngine(sink Sink, opts Options) *Engine {
	e := &Engine{
		state:     NewState(),
		sink:      sink,
		clock:     opts.Clock,
		newTicker: opts.NewTicker,
		newID:     opts.NewID,
		log:       opts.Log,
		subs:      make(map[int]chan Notice),

		onSubmitted: opts.OnSubmitted,
	}
	if e.clock == nil {
		e.clock = SystemClock
	}
	if e.newTicker == nil {
		e.newTicker = NewSystemTicker
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	return e
}

// CreateTest persists a new test built from spec and starts a session on it.
func (e *Engine) CreateTest(ctx context.Context, spec TestSpec) (*model.Test, error) {
	if len(spec.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if spec.TimeLimitSec <= 0 {
		return nil, ErrInvalidTimeLimit
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.state.Active() {
		return nil, ErrSessionActive
	}

	questions := make([]model.Question, len(spec.Questions))
	copy(questions, spec.Questions)
	test := &model.Test{
		ID:           e.newID(),
		Title:        spec.Title,
		Mode:         spec.Mode,
		TimeLimitSec: spec.TimeLimitSec,
		Questions:    questions,
	}
	if test.Title == "" {
		test.Title = model.DefaultTestTitle
	}
	if test.Mode == "" {
		test.Mode = model.TestModeMCQ
	}

	if err := e.sink.SaveTest(ctx, test); err != nil {
		return nil, fmt.Errorf("save test: %w: %w", ErrPersistence, err)
	}

	e.applyLocked(Create{Test: test, At: e.clock.Now()})
	e.log.Info().
		Str("test_id", test.ID).
		Int("questions", len(test.Questions)).
		Int("time_limit_sec", test.TimeLimitSec).
		Msg("Test session started")
	return test, nil
}

// Goto moves to question index. Out of range indexes are ignored.
func (e *Engine) Goto(index int) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(Goto{Index: index, At: e.clock.Now()})
	return e.snapshotLocked()
}

// Next moves forward one question, stopping at the last.
func (e *Engine) Next() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(Goto{Index: e.state.CurrentIndex + 1, At: e.clock.Now()})
	return e.snapshotLocked()
}

// Prev moves back one question, stopping at the first.
func (e *Engine) Prev() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(Goto{Index: e.state.CurrentIndex - 1, At: e.clock.Now()})
	return e.snapshotLocked()
}

// SelectOption records option as the answer to questionID. For multiple
// choice questions of an mcq test the option must be one of the question's
// letters; it is upper-cased before the check.
func (e *Engine) SelectOption(questionID, option string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Active() {
		return e.snapshotLocked(), ErrNoActiveSession
	}

	q, ok := findQuestion(e.state.Test, questionID)
	if !ok {
		return e.snapshotLocked(), ErrUnknownQuestion
	}
	if e.state.Test.Mode == model.TestModeMCQ && q.Type == model.QuestionTypeMCQ {
		option = strings.ToUpper(strings.TrimSpace(option))
		if !q.HasOption(option) {
			return e.snapshotLocked(), ErrInvalidOption
		}
	}

	e.applyLocked(Select{QuestionID: questionID, Option: option, At: e.clock.Now()})
	return e.snapshotLocked(), nil
}

// Pause freezes the countdown and the current question's timer.
func (e *Engine) Pause() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(Background{At: e.clock.Now()})
	return e.snapshotLocked()
}

// Resume restarts the countdown and the current question's timer.
func (e *Engine) Resume() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(Foreground{At: e.clock.Now()})
	return e.snapshotLocked()
}

// SetLifecycle maps a host lifecycle state onto Pause or Resume.
func (e *Engine) SetLifecycle(state model.LifecycleState) Snapshot {
	if state.Foreground() {
		return e.Resume()
	}
	return e.Pause()
}

// Tick applies one countdown second. When the countdown reaches zero the
// session is submitted and the attempt returned.
func (e *Engine) Tick(ctx context.Context) (*model.Attempt, error) {
	e.mu.Lock()
	defer e.unlock()

	return e.tickLocked(ctx)
}

// Submit finalizes the session and persists the attempt. On a persistence
// error the session stays open so the caller can retry.
func (e *Engine) Submit(ctx context.Context) (*model.Attempt, error) {
	e.mu.Lock()
	defer e.unlock()

	return e.submitLocked(ctx, false)
}

// Snapshot returns a view of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshotLocked()
}

// State returns a copy of the raw state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.clone()
}

// Close cancels the countdown and releases subscribers. The session is not
// submitted.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.stopCountdownLocked()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

func (e *Engine) tickLocked(ctx context.Context) (*model.Attempt, error) {
	out := e.applyLocked(Tick{})
	if !out.Expired {
		return nil, nil
	}

	e.log.Info().Str("test_id", e.state.Test.ID).Msg("Countdown expired, submitting")
	attempt, err := e.submitLocked(ctx, true)
	if err != nil {
		e.log.Error().Err(err).Msg("Auto-submit failed, retrying on next tick")
		return nil, err
	}
	return attempt, nil
}

func (e *Engine) submitLocked(ctx context.Context, auto bool) (*model.Attempt, error) {
	if !e.state.Active() {
		return nil, ErrNoActiveSession
	}

	test := e.state.Test
	next, out := Reduce(e.state, Submit{AttemptID: e.newID(), At: e.clock.Now(), Auto: auto})
	if err := e.sink.SaveAttempt(ctx, test, out.Attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w: %w", ErrPersistence, err)
	}

	e.state = next
	e.submitted = true
	e.syncCountdownLocked()
	e.publishLocked(Notice{Kind: NoticeSubmitted, Snapshot: e.snapshotLocked(), Attempt: out.Attempt})

	e.log.Info().
		Str("test_id", test.ID).
		Str("attempt_id", out.Attempt.ID).
		Bool("auto", auto).
		Int64("total_time_ms", out.Attempt.TotalTimeMs()).
		Msg("Attempt submitted")
	return out.Attempt, nil
}

// unlock releases the engine lock and then runs the submit hook if an
// attempt was stored while it was held.
func (e *Engine) unlock() {
	fire := e.submitted && e.onSubmitted != nil
	e.submitted = false
	e.mu.Unlock()
	if fire {
		e.onSubmitted()
	}
}

// applyLocked runs a transition, keeps the countdown goroutine in line with
// the new status and notifies subscribers.
func (e *Engine) applyLocked(ev Event) Outcome {
	next, out := Reduce(e.state, ev)
	if !out.Changed {
		return out
	}
	e.state = next
	e.syncCountdownLocked()

	kind := NoticeState
	if _, ok := ev.(Tick); ok {
		kind = NoticeTick
	}
	e.publishLocked(Notice{Kind: kind, Snapshot: e.snapshotLocked()})
	return out
}

// syncCountdownLocked runs the countdown only while the session is Running.
func (e *Engine) syncCountdownLocked() {
	if e.state.Status == StatusRunning && !e.closed {
		e.startCountdownLocked()
		return
	}
	e.stopCountdownLocked()
}

func (e *Engine) startCountdownLocked() {
	if e.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	e.stopTick = stop
	go e.runCountdown(e.newTicker(time.Second), stop)
}

func (e *Engine) stopCountdownLocked() {
	if e.stopTick == nil {
		return
	}
	close(e.stopTick)
	e.stopTick = nil
}

func (e *Engine) runCountdown(t Ticker, stop chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			e.mu.Lock()
			// A tick that raced with cancellation belongs to a stopped countdown.
			if e.stopTick == stop {
				_, _ = e.tickLocked(context.Background())
			}
			e.unlock()
		}
	}
}

func findQuestion(t *model.Test, id string) (model.Question, bool) {
	if t == nil {
		return model.Question{}, false
	}
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}
