package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned when no item arrived before the timeout.
var ErrEmpty = errors.New("queue is empty")

// Queue is a FIFO list of string payloads.
type Queue interface {
	Push(ctx context.Context, payload string) error
	// Pop blocks up to timeout for the next item.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	// TryPop returns the next item without blocking.
	TryPop(ctx context.Context) (string, error)
}
