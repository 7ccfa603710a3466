package session

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func created(t *testing.T, n, limit int) State {
	t.Helper()
	test := &model.Test{ID: "t1", Mode: model.TestModeMCQ, TimeLimitSec: limit, Questions: sampleQuestions(n)}
	s, out := Reduce(NewState(), Create{Test: test, At: t0})
	if !out.Changed {
		t.Fatal("create was absorbed")
	}
	return s
}

func TestReduceCreate(t *testing.T) {
	s := created(t, 3, 60)

	if s.Status != StatusRunning {
		t.Errorf("status = %s, want running", s.Status)
	}
	if s.Remaining != 60 {
		t.Errorf("remaining = %d, want 60", s.Remaining)
	}
	if len(s.Responses) != 3 {
		t.Fatalf("responses = %d, want 3", len(s.Responses))
	}
	if s.Responses["q1"].LastStart == nil || !s.Responses["q1"].LastStart.Equal(t0) {
		t.Error("first question is not being timed")
	}
	if s.LiveTimers() != 1 {
		t.Errorf("live timers = %d, want 1", s.LiveTimers())
	}
}

func TestReduceCreateRejectsEmptyAndActive(t *testing.T) {
	empty := &model.Test{ID: "t", TimeLimitSec: 10}
	if _, out := Reduce(NewState(), Create{Test: empty, At: t0}); out.Changed {
		t.Error("create with no questions changed state")
	}

	s := created(t, 1, 10)
	other := &model.Test{ID: "t2", TimeLimitSec: 10, Questions: sampleQuestions(2)}
	if next, out := Reduce(s, Create{Test: other, At: t0}); out.Changed || next.Test.ID != "t1" {
		t.Error("create replaced an active session")
	}
}

func TestReduceGotoOutOfRangeIsNoop(t *testing.T) {
	s := created(t, 3, 60)
	for _, idx := range []int{-1, 3, 5} {
		next, out := Reduce(s, Goto{Index: idx, At: t0.Add(time.Second)})
		if out.Changed {
			t.Errorf("goto(%d) changed state", idx)
		}
		if next.CurrentIndex != 0 {
			t.Errorf("goto(%d) moved to %d", idx, next.CurrentIndex)
		}
		if !reflect.DeepEqual(next.Responses, s.Responses) {
			t.Errorf("goto(%d) touched responses", idx)
		}
	}
}

func TestReduceGotoMovesTimer(t *testing.T) {
	s := created(t, 3, 60)
	s, _ = Reduce(s, Goto{Index: 2, At: t0.Add(1500 * time.Millisecond)})

	if s.CurrentIndex != 2 {
		t.Fatalf("current = %d, want 2", s.CurrentIndex)
	}
	if got := s.Responses["q1"].TotalTimeMs; got != 1500 {
		t.Errorf("q1 total = %d, want 1500", got)
	}
	if s.Responses["q1"].Active() {
		t.Error("q1 still timed")
	}
	if !s.Responses["q3"].Active() {
		t.Error("q3 not timed")
	}
	if s.LiveTimers() != 1 {
		t.Errorf("live timers = %d", s.LiveTimers())
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := created(t, 2, 60)
	before := s.clone()

	Reduce(s, Goto{Index: 1, At: t0.Add(time.Second)})
	Reduce(s, Select{QuestionID: "q1", Option: "A", At: t0})
	Reduce(s, Background{At: t0.Add(time.Second)})
	Reduce(s, Submit{AttemptID: "a", At: t0.Add(time.Second)})

	if !reflect.DeepEqual(s, before) {
		t.Error("Reduce modified its input state")
	}
}

func TestReduceBackgroundExclusion(t *testing.T) {
	s := created(t, 2, 100)

	s, _ = Reduce(s, Tick{})
	s, _ = Reduce(s, Background{At: t0.Add(2 * time.Second)})
	if s.Status != StatusPaused || s.LiveTimers() != 0 {
		t.Fatalf("background left status=%s timers=%d", s.Status, s.LiveTimers())
	}

	// Ticks while paused are ignored.
	for i := 0; i < 30; i++ {
		s, _ = Reduce(s, Tick{})
	}
	if s.Remaining != 99 {
		t.Errorf("remaining = %d, want 99", s.Remaining)
	}

	s, _ = Reduce(s, Foreground{At: t0.Add(60 * time.Second)})
	if s.Status != StatusRunning || !s.Responses["q1"].Active() {
		t.Fatal("foreground did not resume the current question")
	}

	_, out := Reduce(s, Submit{AttemptID: "a1", At: t0.Add(63 * time.Second)})
	if got := out.Attempt.Responses["q1"].TotalTimeMs; got != 5000 {
		t.Errorf("q1 total = %d, want 5000 (2s before + 3s after background)", got)
	}
}

func TestReduceRepeatedLifecycleSignals(t *testing.T) {
	s := created(t, 1, 10)
	s, _ = Reduce(s, Background{At: t0.Add(time.Second)})
	if _, out := Reduce(s, Background{At: t0.Add(2 * time.Second)}); out.Changed {
		t.Error("second background changed state")
	}
	s, _ = Reduce(s, Foreground{At: t0.Add(5 * time.Second)})
	next, out := Reduce(s, Foreground{At: t0.Add(6 * time.Second)})
	if out.Changed {
		t.Error("second foreground changed state")
	}
	if !next.Responses["q1"].LastStart.Equal(t0.Add(5 * time.Second)) {
		t.Error("second foreground restarted the timer")
	}
}

func TestReduceGotoWhilePaused(t *testing.T) {
	s := created(t, 3, 10)
	s, _ = Reduce(s, Background{At: t0.Add(time.Second)})
	s, _ = Reduce(s, Goto{Index: 2, At: t0.Add(2 * time.Second)})

	if s.CurrentIndex != 2 {
		t.Errorf("current = %d, want 2", s.CurrentIndex)
	}
	if s.LiveTimers() != 0 {
		t.Error("navigation while paused started a timer")
	}

	s, _ = Reduce(s, Foreground{At: t0.Add(3 * time.Second)})
	if !s.Responses["q3"].Active() {
		t.Error("resume did not time the question navigated to")
	}
}

func TestReduceSelect(t *testing.T) {
	s := created(t, 2, 10)
	s, _ = Reduce(s, Select{QuestionID: "q2", Option: "B", At: t0})

	if s.Responses["q2"].Selected != "B" {
		t.Errorf("selected = %q", s.Responses["q2"].Selected)
	}
	if s.Responses["q2"].Active() {
		t.Error("selecting an answer started a timer on another question")
	}
	if !s.Responses["q1"].Active() {
		t.Error("selecting an answer stopped the current timer")
	}
}

func TestReduceSelectMissingResponse(t *testing.T) {
	s := created(t, 2, 10)
	delete(s.Responses, "q1")
	s.Responses["q2"] = model.Response{}

	s, _ = Reduce(s, Select{QuestionID: "q1", Option: "A", At: t0.Add(time.Second)})
	if !s.Responses["q1"].Active() {
		t.Error("missing response for the current question was not started")
	}

	s, _ = Reduce(s, Select{QuestionID: "ghost", Option: "x", At: t0})
	if s.Responses["ghost"].Active() {
		t.Error("response for a question not in view was started")
	}
	if s.LiveTimers() != 1 {
		t.Errorf("live timers = %d, want 1", s.LiveTimers())
	}
}

func TestReduceTickExpires(t *testing.T) {
	s := created(t, 1, 2)

	s, out := Reduce(s, Tick{})
	if out.Expired || s.Remaining != 1 {
		t.Fatalf("after first tick remaining=%d expired=%v", s.Remaining, out.Expired)
	}
	s, out = Reduce(s, Tick{})
	if !out.Expired || s.Remaining != 0 {
		t.Fatalf("after second tick remaining=%d expired=%v", s.Remaining, out.Expired)
	}
	_, out = Reduce(s, Tick{})
	if !out.Expired {
		t.Error("tick at zero should keep reporting expiry")
	}
}

func TestReduceSubmit(t *testing.T) {
	s := created(t, 3, 60)
	s, _ = Reduce(s, Goto{Index: 1, At: t0.Add(time.Second)})
	// A stray start mark on a question not in view is cleaned up too.
	stray := t0.Add(2 * time.Second)
	r := s.Responses["q3"]
	r.LastStart = &stray
	s.Responses["q3"] = r

	next, out := Reduce(s, Submit{AttemptID: "a1", At: t0.Add(4 * time.Second)})
	if next.Status != StatusIdle || next.Test != nil {
		t.Errorf("after submit status=%s test=%v", next.Status, next.Test)
	}
	a := out.Attempt
	if a == nil {
		t.Fatal("no attempt")
	}
	if a.ID != "a1" || a.TestID != "t1" {
		t.Errorf("attempt ids = %q %q", a.ID, a.TestID)
	}
	if !a.StartedAt.Equal(t0) || !a.EndedAt.Equal(t0.Add(4*time.Second)) {
		t.Errorf("attempt bounds = %v .. %v", a.StartedAt, a.EndedAt)
	}
	for id, resp := range a.Responses {
		if resp.LastStart != nil {
			t.Errorf("%s still has lastStart", id)
		}
	}
	want := map[string]int64{"q1": 1000, "q2": 3000, "q3": 2000}
	for id, ms := range want {
		if a.Responses[id].TotalTimeMs != ms {
			t.Errorf("%s total = %d, want %d", id, a.Responses[id].TotalTimeMs, ms)
		}
	}

	if _, out := Reduce(next, Submit{AttemptID: "a2", At: t0}); out.Attempt != nil {
		t.Error("submit on idle produced an attempt")
	}
}

// TestReduceTimingConservation drives random navigation and lifecycle events
// and checks that the recorded time equals the foreground running time.
func TestReduceTimingConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		s := created(t, 5, 10000)
		now := t0
		var foregroundMs int64

		for step := 0; step < 200; step++ {
			d := time.Duration(rng.Intn(3000)) * time.Millisecond
			if s.Status == StatusRunning {
				foregroundMs += d.Milliseconds()
			}
			now = now.Add(d)

			var ev Event
			switch rng.Intn(5) {
			case 0:
				ev = Goto{Index: rng.Intn(7) - 1, At: now}
			case 1:
				ev = Background{At: now}
			case 2:
				ev = Foreground{At: now}
			case 3:
				ev = Select{QuestionID: "q2", Option: "A", At: now}
			default:
				ev = Tick{}
			}
			s, _ = Reduce(s, ev)

			if s.Status == StatusRunning && s.LiveTimers() != 1 {
				t.Fatalf("run %d step %d: %d live timers while running", run, step, s.LiveTimers())
			}
			if s.Status == StatusPaused && s.LiveTimers() != 0 {
				t.Fatalf("run %d step %d: %d live timers while paused", run, step, s.LiveTimers())
			}
		}

		end := now.Add(time.Second)
		if s.Status == StatusRunning {
			foregroundMs += 1000
		}
		_, out := Reduce(s, Submit{AttemptID: "a", At: end})
		if got := out.Attempt.TotalTimeMs(); got != foregroundMs {
			t.Fatalf("run %d: recorded %dms, foreground %dms", run, got, foregroundMs)
		}
	}
}

func TestReduceLifecycleIgnoredWhileIdle(t *testing.T) {
	s := NewState()
	for _, ev := range []Event{Background{At: t0}, Foreground{At: t0}, Background{At: t0}} {
		next, out := Reduce(s, ev)
		if out.Changed {
			t.Errorf("%T changed an idle state", ev)
		}
		s = next
	}

	test := &model.Test{ID: "t1", TimeLimitSec: 30, Questions: sampleQuestions(2)}
	s, _ = Reduce(s, Create{Test: test, At: t0})
	if s.Status != StatusRunning || !s.Foreground {
		t.Fatalf("after create status=%s foreground=%v", s.Status, s.Foreground)
	}
	if !s.Responses["q1"].Active() || s.LiveTimers() != 1 {
		t.Error("first question is not being timed")
	}
}

func TestReduceCreateAfterBackgroundedSubmit(t *testing.T) {
	s := created(t, 1, 30)
	s, _ = Reduce(s, Background{At: t0.Add(time.Second)})
	s, _ = Reduce(s, Submit{AttemptID: "a1", At: t0.Add(2 * time.Second)})

	test := &model.Test{ID: "t2", TimeLimitSec: 30, Questions: sampleQuestions(1)}
	s, _ = Reduce(s, Create{Test: test, At: t0.Add(3 * time.Second)})
	if s.Status != StatusRunning || s.LiveTimers() != 1 {
		t.Errorf("new test status=%s timers=%d", s.Status, s.LiveTimers())
	}
}
