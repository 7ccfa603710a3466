package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/event"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/parser"
	"github.com/stemsi/exstem-practice/internal/queue"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/session"
	"github.com/stemsi/exstem-practice/internal/storage"
)

// PracticeService runs practice sessions and persists what they produce.
type PracticeService struct {
	cfg      *config.Config
	repo     *repository.PracticeRepository
	exports  queue.Queue
	blobs    storage.BlobStore
	events   event.Publisher
	registry *session.Registry
	clock    session.Clock
	log      zerolog.Logger
}

// NewPracticeService creates a new PracticeService. opts configures every
// session engine it hands out.
func NewPracticeService(
	cfg *config.Config,
	repo *repository.PracticeRepository,
	exports queue.Queue,
	blobs storage.BlobStore,
	events event.Publisher,
	opts session.Options,
	log zerolog.Logger,
) *PracticeService {
	if opts.Clock == nil {
		opts.Clock = session.SystemClock
	}
	opts.Log = log.With().Str("component", "session").Logger()

	s := &PracticeService{
		cfg:     cfg,
		repo:    repo,
		exports: exports,
		blobs:   blobs,
		events:  events,
		clock:   opts.Clock,
		log:     log.With().Str("component", "practice_service").Logger(),
	}
	// Countdown expiry submits without going through Submit.
	opts.OnSubmitted = s.refreshActive
	s.registry = session.NewRegistry(s, opts)
	return s
}

// ────────────────────────────────────────────────────────────────────────────
// Persistence (session.Sink)
// ────────────────────────────────────────────────────────────────────────────

// deviceSink attributes records to the device whose engine produced them.
type deviceSink struct {
	svc      *PracticeService
	deviceID string
}

func (s *PracticeService) ForOwner(deviceID string) session.Sink {
	return &deviceSink{svc: s, deviceID: deviceID}
}

func (s *PracticeService) SaveTest(ctx context.Context, t *model.Test) error {
	return s.saveTest(ctx, "", t)
}

func (s *PracticeService) SaveAttempt(ctx context.Context, t *model.Test, a *model.Attempt) error {
	return s.saveAttempt(ctx, "", t, a)
}

func (d *deviceSink) SaveTest(ctx context.Context, t *model.Test) error {
	return d.svc.saveTest(ctx, d.deviceID, t)
}

func (d *deviceSink) SaveAttempt(ctx context.Context, t *model.Test, a *model.Attempt) error {
	return d.svc.saveAttempt(ctx, d.deviceID, t, a)
}

func (s *PracticeService) saveTest(ctx context.Context, deviceID string, t *model.Test) error {
	now := s.clock.Now()
	if err := s.repo.SaveTest(ctx, t, now); err != nil {
		return err
	}
	metrics.TestsCreated.Inc()

	s.publish(ctx, &event.Event{
		Type:      event.TypeTestCreated,
		DeviceID:  deviceID,
		TestID:    t.ID,
		Timestamp: now,
		Data:      model.TestSummary{ID: t.ID, Title: t.Title, CreatedAt: now},
	})
	return nil
}

func (s *PracticeService) saveAttempt(ctx context.Context, deviceID string, t *model.Test, a *model.Attempt) (err error) {
	trigger := "manual"
	if a.AutoSubmitted {
		trigger = "auto"
	}
	defer func() { metrics.Submissions.WithLabelValues(trigger, metrics.StatusLabel(err)).Inc() }()

	if err := s.repo.SaveAttempt(ctx, a); err != nil {
		return err
	}
	metrics.AttemptDuration.Observe(float64(a.TotalTimeMs()) / 1000)

	// The attempt record is durable at this point; the export bundle can
	// always be rebuilt from it, so a queue failure is not a submit failure.
	if err := s.exports.Push(ctx, a.ID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", a.ID).Msg("Failed to queue attempt export")
	}

	s.publish(ctx, &event.Event{
		Type:      event.TypeAttemptSubmitted,
		DeviceID:  deviceID,
		TestID:    t.ID,
		AttemptID: a.ID,
		Timestamp: a.EndedAt,
		Data: map[string]any{
			"total_time_ms":  a.TotalTimeMs(),
			"auto_submitted": a.AutoSubmitted,
		},
	})
	return nil
}

func (s *PracticeService) publish(ctx context.Context, ev *event.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to publish event")
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Session operations
// ────────────────────────────────────────────────────────────────────────────

// CreateTest builds a test from the request and starts the device's session
// on it. Client-supplied questions win over raw text.
func (s *PracticeService) CreateTest(ctx context.Context, deviceID string, req *model.CreateTestRequest) (*model.Test, session.Snapshot, error) {
	var questions []model.Question
	if len(req.Questions) > 0 {
		questions = parser.Normalize(req.Questions)
	} else {
		questions = parser.Parse(req.RawText)
	}

	spec := session.TestSpec{
		Title:        req.Title,
		Mode:         model.TestMode(req.Mode),
		TimeLimitSec: req.TimeLimitSec,
		Questions:    questions,
	}
	if spec.Mode == "" {
		spec.Mode = model.TestMode(s.cfg.DefaultMode)
	}
	if spec.TimeLimitSec == 0 {
		spec.TimeLimitSec = s.cfg.DefaultTimeLimitSec
	}

	e := s.registry.Get(deviceID)
	test, err := e.CreateTest(ctx, spec)
	s.refreshActive()
	if err != nil {
		return nil, session.Snapshot{}, err
	}
	return test, e.Snapshot(), nil
}

// ImportTest stores a test without starting a session on it. It takes the
// same save path as CreateTest, so the index, metrics and test.created
// event stay in step.
func (s *PracticeService) ImportTest(ctx context.Context, spec session.TestSpec) (*model.Test, error) {
	if len(spec.Questions) == 0 {
		return nil, session.ErrNoQuestions
	}
	if spec.Mode == "" {
		spec.Mode = model.TestMode(s.cfg.DefaultMode)
	}
	if spec.TimeLimitSec == 0 {
		spec.TimeLimitSec = s.cfg.DefaultTimeLimitSec
	}
	if spec.TimeLimitSec < 0 {
		return nil, session.ErrInvalidTimeLimit
	}

	test := &model.Test{
		ID:           uuid.New().String(),
		Title:        spec.Title,
		Mode:         spec.Mode,
		TimeLimitSec: spec.TimeLimitSec,
		Questions:    spec.Questions,
	}
	if test.Title == "" {
		test.Title = model.DefaultTestTitle
	}
	if err := s.saveTest(ctx, "", test); err != nil {
		return nil, fmt.Errorf("save test: %w: %w", session.ErrPersistence, err)
	}
	return test, nil
}

// Session returns the engine of a device, for streaming.
func (s *PracticeService) Session(deviceID string) *session.Engine {
	return s.registry.Get(deviceID)
}

func (s *PracticeService) Snapshot(deviceID string) session.Snapshot {
	return s.registry.Get(deviceID).Snapshot()
}

func (s *PracticeService) Goto(deviceID string, index int) session.Snapshot {
	return s.registry.Get(deviceID).Goto(index)
}

func (s *PracticeService) Next(deviceID string) session.Snapshot {
	return s.registry.Get(deviceID).Next()
}

func (s *PracticeService) Prev(deviceID string) session.Snapshot {
	return s.registry.Get(deviceID).Prev()
}

func (s *PracticeService) SelectOption(deviceID, questionID, option string) (session.Snapshot, error) {
	return s.registry.Get(deviceID).SelectOption(questionID, option)
}

func (s *PracticeService) SetLifecycle(deviceID string, state model.LifecycleState) session.Snapshot {
	return s.registry.Get(deviceID).SetLifecycle(state)
}

// Submit finalizes the device's session. On error the session stays active.
func (s *PracticeService) Submit(ctx context.Context, deviceID string) (*model.Attempt, error) {
	return s.registry.Get(deviceID).Submit(ctx)
}

// Close stops every session countdown without submitting.
func (s *PracticeService) Close() {
	s.registry.Close(s.log)
}

// ActiveSessions returns how many devices have a test in progress.
func (s *PracticeService) ActiveSessions() int {
	return s.registry.ActiveCount()
}

func (s *PracticeService) refreshActive() {
	metrics.ActiveSessions.Set(float64(s.registry.ActiveCount()))
}

// ────────────────────────────────────────────────────────────────────────────
// Records
// ────────────────────────────────────────────────────────────────────────────

func (s *PracticeService) ListTests(ctx context.Context) ([]model.TestSummary, error) {
	return s.repo.ListTests(ctx)
}

func (s *PracticeService) GetTest(ctx context.Context, id string) (*model.Test, error) {
	return s.repo.GetTest(ctx, id)
}

func (s *PracticeService) GetAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	return s.repo.GetAttempt(ctx, id)
}

// ExportAttempt returns the export bundle of an attempt as pretty JSON. The
// stored artifact is served when the export worker has written it; otherwise
// the bundle is rebuilt from the records.
func (s *PracticeService) ExportAttempt(ctx context.Context, attemptID string) (string, []byte, error) {
	name := config.StoreKey.AttemptExportKey(attemptID)

	rc, err := s.blobs.Get(ctx, name)
	if err == nil {
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", name, err)
		}
		return name, data, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Str("object", name).Msg("Export artifact unreadable, rebuilding")
	}

	bundle, err := s.repo.GetExportBundle(ctx, attemptID)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode bundle: %w", err)
	}
	return name, data, nil
}
