package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/umwero/internal/adapters/mq/queue"
	"github.com/okian/umwero/internal/adapters/mq/worker"
	"github.com/okian/umwero/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockRecorder struct {
	mu       sync.Mutex
	recorded []string
	failFor  map[string]error
	delay    time.Duration
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{failFor: map[string]error{}}
}

func (m *mockRecorder) Record(_ context.Context, rec queue.Record) (bool, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[rec.AttemptID]; ok {
		return false, err
	}
	m.recorded = append(m.recorded, rec.AttemptID)
	return rec.Accuracy >= 60, nil
}

func (m *mockRecorder) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.recorded...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := newMockRecorder()
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("test-worker"))
		go w.Run(ctx)

		convey.Convey("When records are queued", func() {
			q.Enqueue(ctx, queue.Record{AttemptID: "r1", Accuracy: 90})
			q.Enqueue(ctx, queue.Record{AttemptID: "r2", Accuracy: 20})

			convey.Convey("Then each should reach the recorder", func() {
				convey.So(waitFor(func() bool { return len(rec.ids()) == 2 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the recorder fails for one record", func() {
			rec.mu.Lock()
			rec.failFor["bad"] = errors.New("disk full")
			rec.mu.Unlock()
			q.Enqueue(ctx, queue.Record{AttemptID: "bad"})
			q.Enqueue(ctx, queue.Record{AttemptID: "good"})

			convey.Convey("Then the worker should keep going", func() {
				convey.So(waitFor(func() bool { return len(rec.ids()) == 1 }), convey.ShouldBeTrue)
				convey.So(rec.ids(), convey.ShouldResemble, []string{"good"})
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then Run should return on its own", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not stop after queue close")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a pool of three workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := newMockRecorder()
		rec.delay = time.Millisecond
		pool := worker.NewPool(3, q, rec)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		for i := 0; i < 30; i++ {
			q.Enqueue(ctx, queue.Record{AttemptID: string(rune('A' + i)), Accuracy: 70})
		}
		pool.Start(ctx)

		convey.Convey("When the pool shuts down", func() {
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := pool.Shutdown(sctx)

			convey.Convey("Then the backlog should be drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(rec.ids()), convey.ShouldEqual, 30)
				convey.So(pool.Processed(), convey.ShouldEqual, 30)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})

			convey.Convey("Then shutting down again should be a no-op", func() {
				convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)
				pool.Stop()
			})
		})

		convey.Convey("When the pool is stopped without draining", func() {
			pool.Stop()

			convey.Convey("Then Stop should be idempotent", func() {
				convey.So(func() { pool.Stop() }, convey.ShouldNotPanic)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockRecorder())

		convey.Convey("Then the pool should still have workers", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
