// Package repository persists graded attempts and derives learner progress
// and the leaderboard from them.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/types"
	"github.com/okian/umwero/pkg/metrics"
)

// Store engines understood by NewByEngine.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// Store provides read/write access to attempt history and progress.
type Store interface {
	// Record persists a graded attempt and folds it into the learner's
	// progress. It returns true when the learner's best accuracy on the
	// template improved. Recording an attempt id twice is a no-op.
	Record(ctx context.Context, rec model.AttemptRecord) (bool, error)

	// History returns a learner's attempts newest first. An empty
	// templateID matches every template.
	History(ctx context.Context, learnerID, templateID string, limit int) ([]model.AttemptRecord, error)

	// Progress returns per-template progress ordered by template id.
	// Returns ErrNotFound if the learner has no attempts.
	Progress(ctx context.Context, learnerID string) ([]model.Progress, error)

	// TopN returns the top-N learners: most mastered templates first,
	// then higher average best accuracy, then learner id.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of learners tracked.
	Count(ctx context.Context) int

	Close() error
}

// NewByEngine opens the store named by engine. An empty engine selects memory.
func NewByEngine(ctx context.Context, engine, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineMemory:
		return NewMemoryStore(opts...), nil
	case EngineSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
}

func checkLimit(n int) error {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
