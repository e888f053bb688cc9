// Package worker drains the record queue and persists graded attempts.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/umwero/internal/adapters/mq/queue"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Recorder persists one graded attempt and reports whether the learner's
// best accuracy improved.
type Recorder interface {
	Record(ctx context.Context, rec queue.Record) (bool, error)
}

// Queue is the consuming side of queue.Queue.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// Worker processes records until told to stop.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, the queue drains, or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current record to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	processed *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker binds a worker to a queue and a recorder.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		recorder:  recorder,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run records attempts until the queue drains or the worker is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			// process logs and counts its own failures.
			_ = w.process(ctx, rec)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker still busy at shutdown", logger.String("worker", w.name))
		return fmt.Errorf("stop %s: %w", w.name, ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, rec queue.Record) error { //nolint:gocritic // hugeParam: Record is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	improved, err := w.recorder.Record(ctx, rec)
	w.processed.Add(1)
	if err != nil {
		metrics.RecordRecordFailed()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		metrics.RecordErrorByType("record_error", "high")
		w.logger.Error(ctx, "record failed",
			logger.String("attempt_id", rec.AttemptID),
			logger.String("learner_id", rec.LearnerID),
			logger.Error(err),
		)
		return fmt.Errorf("record attempt %s: %w", rec.AttemptID, err)
	}

	metrics.RecordRecordPersisted()
	if improved {
		metrics.RecordProgressImproved()
		w.logger.Debug(ctx, "learner improved",
			logger.String("learner_id", rec.LearnerID),
			logger.String("template_id", rec.TemplateID),
			logger.Float64("accuracy", rec.Accuracy),
		)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64

	shutdown chan struct{}
	stopped  atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		logger:    logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, recorder, wopts...)
		w.processed = p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)

	return p
}

// Start launches every worker and the throughput reporter.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.reportThroughput(ctx)
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of records handled, failed ones included.
func (p *Pool) Processed() int64 { return p.processed.Load() }

func (p *Pool) reportThroughput(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	last := p.processed.Load()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			cur := p.processed.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(cur-last) / secs)
			}
			last, lastAt = cur, now
		}
	}
}

// Stop stops every worker without draining the queue.
func (p *Pool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
	metrics.UpdateWorkerCount(0)
}

// Shutdown closes the queue, lets the workers drain it, and then stops
// them. Workers still busy when ctx expires are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	defer metrics.UpdateWorkerCount(0)

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Warn(ctx, "queue close failed", logger.Error(err))
		}
	}

	var timedOut int
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			timedOut++
		}
	}
	close(p.shutdown)
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	}

	if timedOut > 0 {
		p.logger.Warn(ctx, "workers did not drain in time", logger.Int("workers", timedOut))
		return fmt.Errorf("drain queue: %w", ctx.Err())
	}
	return nil
}
