package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

type fakeTickers struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeTickers) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 4)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeTickers) Started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

func (f *fakeTickers) Last() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

type memorySink struct {
	mu         sync.Mutex
	tests      []*model.Test
	attempts   []*model.Attempt
	failTest   error
	failSubmit error
}

func (s *memorySink) SaveTest(_ context.Context, t *model.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTest != nil {
		return s.failTest
	}
	s.tests = append(s.tests, t)
	return nil
}

func (s *memorySink) SaveAttempt(_ context.Context, _ *model.Test, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSubmit != nil {
		return s.failSubmit
	}
	s.attempts = append(s.attempts, a)
	return nil
}

func (s *memorySink) Attempts() []*model.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

var errStoreDown = errors.New("store down")

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Number: i + 1,
			Text:   fmt.Sprintf("Question %d", i+1),
			Options: model.NewOptions(
				model.Option{Key: "A", Text: "yes"},
				model.Option{Key: "B", Text: "no"},
			),
			Type: model.QuestionTypeMCQ,
		}
	}
	return qs
}

type harness struct {
	clock   *fakeClock
	tickers *fakeTickers
	sink    *memorySink
	engine  *Engine
}

func newHarness() *harness {
	h := &harness{
		clock:   newFakeClock(),
		tickers: &fakeTickers{},
		sink:    &memorySink{},
	}
	h.engine = NewEngine(h.sink, Options{
		Clock:     h.clock,
		NewTicker: h.tickers.New,
		NewID:     sequentialIDs(),
	})
	return h
}

func (h *harness) start(n, limit int) *model.Test {
	test, err := h.engine.CreateTest(context.Background(), TestSpec{
		Mode:         model.TestModeMCQ,
		TimeLimitSec: limit,
		Questions:    sampleQuestions(n),
	})
	if err != nil {
		panic(err)
	}
	return test
}

func (h *harness) countdownRunning() bool {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return h.engine.stopTick != nil
}
