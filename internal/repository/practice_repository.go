package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/store"
)

// ErrNotFound is returned when a test or attempt record does not exist.
var ErrNotFound = errors.New("record not found")

// PracticeRepository handles test, index and attempt records.
type PracticeRepository struct {
	kv store.KV

	// indexMu serializes the read-append-write of the test index.
	indexMu sync.Mutex
}

// NewPracticeRepository creates a new PracticeRepository.
func NewPracticeRepository(kv store.KV) *PracticeRepository {
	return &PracticeRepository{kv: kv}
}

// SaveTest writes the test record and appends it to the test index.
func (r *PracticeRepository) SaveTest(ctx context.Context, t *model.Test, createdAt time.Time) error {
	if err := r.put(ctx, config.StoreKey.TestKey(t.ID), t); err != nil {
		return fmt.Errorf("save test: %w", err)
	}

	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	list, err := r.ListTests(ctx)
	if err != nil {
		return fmt.Errorf("load test index: %w", err)
	}
	list = append(list, model.TestSummary{ID: t.ID, Title: t.Title, CreatedAt: createdAt.UTC()})
	if err := r.put(ctx, config.StoreKey.TestsListKey(), list); err != nil {
		return fmt.Errorf("save test index: %w", err)
	}
	return nil
}

// ListTests returns the test index in insertion order. A missing index is empty.
func (r *PracticeRepository) ListTests(ctx context.Context) ([]model.TestSummary, error) {
	list := []model.TestSummary{}
	err := r.get(ctx, config.StoreKey.TestsListKey(), &list)
	if errors.Is(err, ErrNotFound) {
		return []model.TestSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetTest retrieves a test by ID.
func (r *PracticeRepository) GetTest(ctx context.Context, id string) (*model.Test, error) {
	t := &model.Test{}
	if err := r.get(ctx, config.StoreKey.TestKey(id), t); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveAttempt writes a finalized attempt.
func (r *PracticeRepository) SaveAttempt(ctx context.Context, a *model.Attempt) error {
	if err := r.put(ctx, config.StoreKey.AttemptKey(a.ID), a); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (r *PracticeRepository) GetAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := r.get(ctx, config.StoreKey.AttemptKey(id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetExportBundle loads an attempt together with the test it answers.
func (r *PracticeRepository) GetExportBundle(ctx context.Context, attemptID string) (*model.ExportBundle, error) {
	a, err := r.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	t, err := r.GetTest(ctx, a.TestID)
	if err != nil {
		return nil, fmt.Errorf("load test %s: %w", a.TestID, err)
	}
	return &model.ExportBundle{Test: *t, Attempt: *a}, nil
}

func (r *PracticeRepository) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, key, data)
}

func (r *PracticeRepository) get(ctx context.Context, key string, v any) error {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
