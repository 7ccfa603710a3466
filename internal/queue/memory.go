package queue

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local queue.
type Memory struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
}

func NewMemory() *Memory {
	return &Memory{signal: make(chan struct{}, 1)}
}

func (q *Memory) Push(_ context.Context, payload string) error {
	q.mu.Lock()
	q.items = append(q.items, payload)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *Memory) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if v, err := q.TryPop(ctx); err == nil {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", ErrEmpty
		case <-q.signal:
		}
	}
}

func (q *Memory) TryPop(context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", ErrEmpty
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, nil
}

// Len returns the number of queued items.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
