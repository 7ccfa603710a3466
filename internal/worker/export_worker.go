package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/queue"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/storage"
)

// BundleSource loads an attempt together with its test.
type BundleSource interface {
	GetExportBundle(ctx context.Context, attemptID string) (*model.ExportBundle, error)
}

// ExportWorker consumes export_attempts_queue and writes one JSON bundle per attempt.
type ExportWorker struct {
	source     BundleSource
	queue      queue.Queue
	blobs      storage.BlobStore
	log        zerolog.Logger
	pollWait   time.Duration
	retryDelay time.Duration
}

// NewExportWorker creates a new ExportWorker.
func NewExportWorker(source BundleSource, q queue.Queue, blobs storage.BlobStore, log zerolog.Logger) *ExportWorker {
	return &ExportWorker{
		source:     source,
		queue:      q,
		blobs:      blobs,
		log:        log.With().Str("component", "export_worker").Logger(),
		pollWait:   time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ExportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ExportWorker) processNext(ctx context.Context) {
	attemptID, err := w.queue.Pop(ctx, w.pollWait)
	if err != nil {
		if !errors.Is(err, queue.ErrEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue pop error")
		}
		return
	}

	err = w.export(ctx, attemptID)
	if err == nil {
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		// The record will never appear; retrying cannot help.
		w.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Attempt missing, dropping export")
		return
	}

	w.log.Error().Err(err).
		Str("attempt_id", attemptID).
		Dur("retry_in", w.retryDelay).
		Msg("Export error, retrying")
	// Push back to queue for retry.
	if perr := w.queue.Push(context.Background(), attemptID); perr != nil {
		w.log.Error().Err(perr).Str("attempt_id", attemptID).Msg("Requeue failed, export lost")
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.retryDelay):
	}
}

// export writes the pretty-printed {test, attempt} bundle named after the attempt.
func (w *ExportWorker) export(ctx context.Context, attemptID string) (err error) {
	defer func() { metrics.Exports.WithLabelValues(metrics.StatusLabel(err)).Inc() }()

	bundle, err := w.source.GetExportBundle(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	key := config.StoreKey.AttemptExportKey(attemptID)
	if _, err := w.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	w.log.Info().Str("attempt_id", attemptID).Str("object", key).Msg("Attempt exported")
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *ExportWorker) drain(ctx context.Context) {
	drained := 0
	for {
		attemptID, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}

		if err := w.export(ctx, attemptID); err != nil {
			w.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Drain export error")
			if !errors.Is(err, repository.ErrNotFound) {
				_ = w.queue.Push(ctx, attemptID)
			}
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
