// Package service provides the practice service that implements the
// dependencies required by the HTTP API: grading attempts, recording them
// asynchronously, and serving templates, progress and the leaderboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/umwero/internal/adapters/catalog"
	recordqueue "github.com/okian/umwero/internal/adapters/mq/queue"
	workerpool "github.com/okian/umwero/internal/adapters/mq/worker"
	"github.com/okian/umwero/internal/adapters/pdfexport"
	"github.com/okian/umwero/internal/adapters/repository"
	"github.com/okian/umwero/internal/domain/dedupe"
	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/internal/domain/types"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Outcome is the response to one graded attempt.
type Outcome struct {
	AttemptID  string         `json:"attempt_id"`
	LearnerID  string         `json:"learner_id"`
	TemplateID string         `json:"template_id"`
	Result     scoring.Result `json:"result"`
	// Duplicate is set when the attempt id was already graded; the result
	// is recomputed but not recorded again.
	Duplicate bool `json:"duplicate"`
	// Recorded is false when the record queue was full.
	Recorded bool `json:"recorded"`
	// Error is only set on batch items that could not be graded.
	Error string `json:"error,omitempty"`
}

// Service implements the API dependencies for the practice system.
type Service struct {
	mu sync.RWMutex

	catalog  *catalog.Catalog
	scorer   scoring.Scorer
	store    repository.Store
	deduper  dedupe.Deduper
	queue    recordqueue.Queue
	pool     *workerpool.Pool
	cancelFn context.CancelFunc

	workerCount      int
	queueSize        int
	dedupeSize       int
	storeEngine      string
	storePath        string
	templatesPath    string
	scorerOpts       []scoring.Option
	batchConcurrency int
	maxBatchSize     int
	historyLimit     int

	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       100_000,
		storeEngine:      repository.EngineMemory,
		batchConcurrency: runtime.NumCPU(),
		maxBatchSize:     50,
		historyLimit:     20,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the catalog, opens the store and starts the recording workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting practice service...")

	if s.catalog == nil {
		var copts []catalog.Option
		if s.templatesPath != "" {
			copts = append(copts, catalog.WithPath(s.templatesPath))
		}
		c, err := catalog.Load(ctx, copts...)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		s.catalog = c
	}
	metrics.UpdateTemplatesLoaded(s.catalog.Len())

	store, err := repository.NewByEngine(ctx, s.storeEngine, s.storePath)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.store = store

	s.scorer = scoring.NewStrokeScorer(s.scorerOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = recordqueue.NewInMemoryQueue(recordqueue.WithCapacity(s.queueSize))

	// Workers outlive the Start call, so they get their own context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelFn = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "practice service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("store", s.storeEngine),
		logger.Int("templates", s.catalog.Len()),
	)
	return nil
}

// Stop drains queued records into the store and releases resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping practice service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "record queue not fully drained", logger.Error(err))
	}
	s.cancelFn()
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "practice service stopped")
}

// Validate grades one attempt and queues its record.
func (s *Service) Validate(ctx context.Context, a model.Attempt) (Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Outcome{}, ErrNotStarted
	}
	return s.validate(ctx, a)
}

func (s *Service) validate(ctx context.Context, a model.Attempt) (Outcome, error) {
	if strings.TrimSpace(a.LearnerID) == "" {
		return Outcome{}, fmt.Errorf("%w: learner id is required", ErrInvalidAttempt)
	}
	if strings.TrimSpace(a.TemplateID) == "" {
		return Outcome{}, fmt.Errorf("%w: template id is required", ErrInvalidAttempt)
	}
	tpl, err := s.catalog.Get(ctx, a.TemplateID)
	if err != nil {
		return Outcome{}, err
	}
	if a.AttemptID == "" {
		a.AttemptID = uuid.NewString()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}

	start := time.Now()
	res := s.scorer.Validate(a.Strokes, tpl)
	metrics.RecordValidationLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordAttemptGraded(string(res.Grade), res.Accuracy)
	for _, d := range res.Deviations {
		metrics.RecordDeviation(d.Issue)
	}

	out := Outcome{
		AttemptID:  a.AttemptID,
		LearnerID:  a.LearnerID,
		TemplateID: tpl.ID,
		Result:     res,
	}

	if s.deduper.SeenAndRecord(ctx, a.AttemptID) {
		metrics.RecordAttemptDuplicate()
		s.logger.Debug(ctx, "duplicate attempt, not recording", logger.String("attempt_id", a.AttemptID))
		out.Duplicate = true
		return out, nil
	}

	if !s.queue.Enqueue(ctx, model.NewRecord(a, tpl, res)) {
		// Let the client resubmit the same id later.
		s.deduper.Unrecord(ctx, a.AttemptID)
		metrics.RecordAttemptDropped()
		s.logger.Warn(ctx, "record queue full, attempt not recorded",
			logger.String("attempt_id", a.AttemptID),
			logger.String("learner_id", a.LearnerID),
		)
		return out, nil
	}
	out.Recorded = true
	return out, nil
}

// ValidateBatch grades attempts concurrently. Items that cannot be graded
// carry an Error instead of failing the whole batch.
func (s *Service) ValidateBatch(ctx context.Context, attempts []model.Attempt) ([]Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidAttempt)
	}
	if len(attempts) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d attempts, limit %d", ErrBatchTooLarge, len(attempts), s.maxBatchSize)
	}
	metrics.RecordBatchSize(len(attempts))

	outcomes := make([]Outcome, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i := range attempts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.validate(gctx, attempts[i])
			if err != nil {
				if !errors.Is(err, ErrInvalidAttempt) && !errors.Is(err, catalog.ErrTemplateNotFound) {
					return fmt.Errorf("attempt %d: %w", i, err)
				}
				out = Outcome{
					AttemptID:  attempts[i].AttemptID,
					LearnerID:  attempts[i].LearnerID,
					TemplateID: attempts[i].TemplateID,
					Error:      err.Error(),
				}
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Normalize removes translation and scale from a point sequence.
func (s *Service) Normalize(_ context.Context, points []stroke.Point) (stroke.NormalizedPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return stroke.NormalizedPath{}, ErrNotStarted
	}
	return s.scorer.Normalize(points)
}

// Templates lists the catalog sorted by id.
func (s *Service) Templates(ctx context.Context) ([]stroke.CharacterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.catalog.List(ctx), nil
}

// Template returns one template by id.
func (s *Service) Template(ctx context.Context, id string) (stroke.CharacterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return stroke.CharacterTemplate{}, ErrNotStarted
	}
	return s.catalog.Get(ctx, id)
}

// Sheet writes a PDF practice sheet for the template to w. A non-empty
// learnerID is printed on the sheet.
func (s *Service) Sheet(ctx context.Context, templateID, learnerID string, w io.Writer) error {
	tpl, err := s.Template(ctx, templateID)
	if err != nil {
		return err
	}
	if err := pdfexport.WriteSheet(w, tpl, pdfexport.WithLearner(learnerID)); err != nil {
		metrics.RecordErrorByComponent("pdfexport", "render_error")
		return err
	}
	metrics.RecordSheetRendered()
	return nil
}

// Progress returns a learner's per-template progress.
func (s *Service) Progress(ctx context.Context, learnerID string) ([]model.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.Progress(ctx, learnerID)
}

// History returns a learner's recorded attempts newest first. A limit of
// zero uses the configured default.
func (s *Service) History(ctx context.Context, learnerID, templateID string, limit int) ([]model.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if limit == 0 {
		limit = s.historyLimit
	}
	return s.store.History(ctx, learnerID, templateID, limit)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.TopN(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"storeEngine": s.storeEngine,
	}

	if s.started {
		learners := s.store.Count(ctx)
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		stats["templates"] = s.catalog.Len()
		stats["learners"] = learners
		stats["processed"] = s.pool.Processed()

		metrics.UpdateLearnersTracked(learners)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
