package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/umwero/internal/adapters/mq/queue"
	"github.com/okian/umwero/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(id string) model.AttemptRecord {
	return model.AttemptRecord{AttemptID: id, LearnerID: "amy", TemplateID: "a", Accuracy: 88}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When records are enqueued", func() {
			So(q.Enqueue(ctx, rec("r1")), ShouldBeTrue)
			So(q.Enqueue(ctx, rec("r2")), ShouldBeTrue)

			Convey("Then a third should be refused", func() {
				So(q.Enqueue(ctx, rec("r3")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("Then they should come out in order", func() {
				out := q.Dequeue(ctx)
				So((<-out).AttemptID, ShouldEqual, "r1")
				So((<-out).AttemptID, ShouldEqual, "r2")
			})
		})

		Convey("When the queue is closed with records inside", func() {
			So(q.Enqueue(ctx, rec("r1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue should fail but the backlog should drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, rec("r2")), ShouldBeFalse)

				var drained []string
				for r := range q.Dequeue(ctx) {
					drained = append(drained, r.AttemptID)
				}
				So(drained, ShouldResemble, []string{"r1"})
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue should refuse the record", func() {
				So(q.Enqueue(cctx, rec("r1")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryQueueConcurrentAccess(t *testing.T) {
	Convey("Given producers and a consumer sharing a queue", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))

		var wg sync.WaitGroup
		for p := 0; p < 10; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					q.Enqueue(ctx, rec(fmt.Sprintf("p%d-%d", p, i)))
				}
			}(p)
		}
		wg.Wait()
		So(q.Close(), ShouldBeNil)

		Convey("Then every record should be delivered once", func() {
			seen := map[string]bool{}
			for r := range q.Dequeue(ctx) {
				So(seen[r.AttemptID], ShouldBeFalse)
				seen[r.AttemptID] = true
			}
			So(len(seen), ShouldEqual, 500)
		})
	})
}
