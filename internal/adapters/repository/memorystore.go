package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/types"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"
)

// MemoryStore keeps everything in maps guarded by a single RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	seen     map[string]struct{}
	history  map[string][]model.AttemptRecord      // learner -> records in arrival order
	progress map[string]map[string]*model.Progress // learner -> template -> progress
	closed   bool
	logger   logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := applyOptions(opts)
	return &MemoryStore{
		seen:     make(map[string]struct{}),
		history:  make(map[string][]model.AttemptRecord),
		progress: make(map[string]map[string]*model.Progress),
		logger:   s.logger,
	}
}

// Record implements Store.
func (m *MemoryStore) Record(_ context.Context, rec model.AttemptRecord) (bool, error) {
	defer observe("record", time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrStoreClosed
	}
	if _, ok := m.seen[rec.AttemptID]; ok {
		return false, nil
	}
	m.seen[rec.AttemptID] = struct{}{}
	m.history[rec.LearnerID] = append(m.history[rec.LearnerID], rec)

	byTemplate, ok := m.progress[rec.LearnerID]
	if !ok {
		byTemplate = make(map[string]*model.Progress)
		m.progress[rec.LearnerID] = byTemplate
		metrics.UpdateLearnersTracked(len(m.progress))
	}
	p, ok := byTemplate[rec.TemplateID]
	if !ok {
		p = &model.Progress{}
		byTemplate[rec.TemplateID] = p
	}
	return p.Apply(rec), nil
}

// History implements Store.
func (m *MemoryStore) History(_ context.Context, learnerID, templateID string, limit int) ([]model.AttemptRecord, error) {
	defer observe("history", time.Now())
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	m.mu.RLock()
	records := m.history[learnerID]
	out := make([]model.AttemptRecord, 0, min(limit, len(records)))
	for i := len(records) - 1; i >= 0; i-- {
		if templateID == "" || records[i].TemplateID == templateID {
			out = append(out, records[i])
		}
	}
	m.mu.RUnlock()

	// Arrival order is the tie-break, so a stable sort keeps later arrivals first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Progress implements Store.
func (m *MemoryStore) Progress(_ context.Context, learnerID string) ([]model.Progress, error) {
	defer observe("progress", time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	byTemplate, ok := m.progress[learnerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("%q: %w", learnerID, ErrNotFound)
	}
	out := make([]model.Progress, 0, len(byTemplate))
	for _, p := range byTemplate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out, nil
}

// TopN implements Store.
func (m *MemoryStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	defer observe("top_n", time.Now())
	if err := checkLimit(n); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entries := make([]types.Entry, 0, len(m.progress))
	for learnerID, byTemplate := range m.progress {
		e := types.Entry{LearnerID: learnerID}
		sum := 0.0
		for _, p := range byTemplate {
			sum += p.BestAccuracy
			if p.Mastered {
				e.Mastered++
			}
		}
		e.AverageBest = sum / float64(len(byTemplate))
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return types.Less(entries[i], entries[j]) })
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].AverageBest = round2(entries[i].AverageBest)
	}
	return entries, nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.progress)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
