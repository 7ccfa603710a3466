package session

import "github.com/stemsi/exstem-practice/internal/model"

// NoticeKind tells subscribers what changed.
type NoticeKind string

const (
	NoticeState     NoticeKind = "state"
	NoticeTick      NoticeKind = "tick"
	NoticeSubmitted NoticeKind = "submitted"
)

// Notice is delivered to subscribers after every transition.
type Notice struct {
	Kind     NoticeKind
	Snapshot Snapshot
	Attempt  *model.Attempt
}

const subscriberBuffer = 16

// Subscribe registers a listener. Slow listeners miss notices rather than
// blocking the session. The returned func unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan Notice, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Notice, subscriberBuffer)
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			close(c)
			delete(e.subs, id)
		}
	}
}

func (e *Engine) publishLocked(n Notice) {
	for _, ch := range e.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
