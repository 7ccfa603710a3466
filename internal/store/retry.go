package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Retrying retries failed operations of the wrapped KV with exponential
// backoff. ErrNotFound and context errors are returned immediately.
type Retrying struct {
	next     KV
	attempts int
	backoff  time.Duration
	log      zerolog.Logger

	// OnRetry, when set, is called before every retry with the operation name.
	OnRetry func(op string)
}

// NewRetrying wraps next. attempts below 1 are treated as 1.
func NewRetrying(next KV, attempts int, backoff time.Duration, log zerolog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		backoff:  backoff,
		log:      log.With().Str("component", "store").Logger(),
	}
}

func (r *Retrying) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "get", key, func() error {
		v, err := r.next.Get(ctx, key)
		out = v
		return err
	})
	return out, err
}

func (r *Retrying) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, "set", key, func() error {
		return r.next.Set(ctx, key, value)
	})
}

func (r *Retrying) do(ctx context.Context, op, key string, fn func() error) error {
	wait := r.backoff
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil || attempt >= r.attempts {
			return err
		}

		r.log.Warn().Err(err).
			Str("op", op).
			Str("key", key).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Store operation failed, retrying")
		if r.OnRetry != nil {
			r.OnRetry(op)
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
		wait *= 2
	}
}
