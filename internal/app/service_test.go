package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/umwero/internal/adapters/catalog"
	"github.com/okian/umwero/internal/adapters/repository"
	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// trace copies a template's strokes, optionally shifted.
func trace(tpl stroke.CharacterTemplate, dx, dy float64) []stroke.Stroke {
	out := make([]stroke.Stroke, len(tpl.Strokes))
	for i, pts := range tpl.Strokes {
		cp := make([]stroke.Point, len(pts))
		for j, p := range pts {
			cp[j] = stroke.Point{X: p.X + dx, Y: p.Y + dy}
		}
		out[i] = stroke.Stroke{Points: cp}
	}
	return out
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func started(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(100)}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then operations should report ErrNotStarted", func() {
			_, err := svc.Validate(ctx, model.Attempt{LearnerID: "amy", TemplateID: "a"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.TopN(ctx, 5)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given a started service", t, func() {
		svc := started()
		defer svc.Stop()

		Convey("Then starting again should be a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["templates"], ShouldBeGreaterThan, 0)
			So(stats["storeEngine"], ShouldEqual, repository.EngineMemory)
		})
	})

	Convey("Given a templates path that does not exist", t, func() {
		svc := service.New(service.WithTemplatesPath("/non/existent.yaml"))

		Convey("Then Start should fail with a catalog error", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, catalog.ErrLoadCatalog), ShouldBeTrue)
		})
	})
}

func TestService_Validate(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := started()
		defer svc.Stop()
		tpl, err := svc.Template(ctx, "a")
		So(err, ShouldBeNil)

		Convey("When a faithful attempt is submitted", func() {
			out, err := svc.Validate(ctx, model.Attempt{
				AttemptID:  "att-1",
				LearnerID:  "amy",
				TemplateID: "a",
				Strokes:    trace(tpl, 5, 5),
			})

			Convey("Then it should be graded and recorded", func() {
				So(err, ShouldBeNil)
				So(out.AttemptID, ShouldEqual, "att-1")
				So(out.Result.Grade, ShouldEqual, scoring.GradeExcellent)
				So(out.Result.Passed, ShouldBeTrue)
				So(out.Recorded, ShouldBeTrue)
				So(out.Duplicate, ShouldBeFalse)
			})

			Convey("Then progress should appear once the worker records it", func() {
				So(eventually(func() bool {
					p, err := svc.Progress(ctx, "amy")
					return err == nil && len(p) == 1 && p[0].Mastered
				}), ShouldBeTrue)
				history, err := svc.History(ctx, "amy", "", 0)
				So(err, ShouldBeNil)
				So(history[0].AttemptID, ShouldEqual, "att-1")
			})

			Convey("Then resubmitting the id should be flagged as duplicate", func() {
				again, err := svc.Validate(ctx, model.Attempt{
					AttemptID:  "att-1",
					LearnerID:  "amy",
					TemplateID: "a",
					Strokes:    trace(tpl, 0, 0),
				})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Recorded, ShouldBeFalse)
				So(again.Result.Accuracy, ShouldEqual, 100)
			})
		})

		Convey("When the attempt has no id", func() {
			out, err := svc.Validate(ctx, model.Attempt{LearnerID: "bob", TemplateID: "a", Strokes: trace(tpl, 0, 0)})

			Convey("Then one should be assigned", func() {
				So(err, ShouldBeNil)
				So(len(out.AttemptID), ShouldEqual, 36)
			})
		})

		Convey("When the attempt targets an unknown template", func() {
			_, err := svc.Validate(ctx, model.Attempt{LearnerID: "bob", TemplateID: "zz"})

			Convey("Then ErrTemplateNotFound should be returned", func() {
				So(errors.Is(err, catalog.ErrTemplateNotFound), ShouldBeTrue)
			})
		})

		Convey("When the learner is missing", func() {
			_, err := svc.Validate(ctx, model.Attempt{TemplateID: "a"})

			Convey("Then ErrInvalidAttempt should be returned", func() {
				So(errors.Is(err, service.ErrInvalidAttempt), ShouldBeTrue)
			})
		})

		Convey("When no strokes are drawn", func() {
			out, err := svc.Validate(ctx, model.Attempt{LearnerID: "cat", TemplateID: "a"})

			Convey("Then it should grade as retry, not fail", func() {
				So(err, ShouldBeNil)
				So(out.Result.Accuracy, ShouldEqual, 0)
				So(out.Result.Grade, ShouldEqual, scoring.GradeRetry)
				So(out.Result.Feedback, ShouldEqual, scoring.FeedbackNoInput)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose queue holds one record", t, func() {
		ctx := context.Background()
		svc := started(service.WithQueueSize(1), service.WithWorkerCount(1))
		defer svc.Stop()
		tpl, _ := svc.Template(ctx, "e")

		Convey("When many attempts arrive at once", func() {
			dropped := ""
			for i := 0; i < 200 && dropped == ""; i++ {
				id := fmt.Sprintf("bp-%d", i)
				out, err := svc.Validate(ctx, model.Attempt{AttemptID: id, LearnerID: "amy", TemplateID: "e", Strokes: trace(tpl, 0, 0)})
				So(err, ShouldBeNil)
				if !out.Recorded {
					dropped = id
				}
			}

			Convey("Then a dropped id should be accepted again later", func() {
				if dropped == "" {
					return // the worker kept up; nothing was dropped
				}
				So(eventually(func() bool {
					out, err := svc.Validate(ctx, model.Attempt{AttemptID: dropped, LearnerID: "amy", TemplateID: "e", Strokes: trace(tpl, 0, 0)})
					return err == nil && !out.Duplicate && out.Recorded
				}), ShouldBeTrue)
			})
		})
	})
}

func TestService_ValidateBatch(t *testing.T) {
	Convey("Given a started service with a batch limit of 3", t, func() {
		ctx := context.Background()
		svc := started(service.WithMaxBatchSize(3), service.WithBatchConcurrency(2))
		defer svc.Stop()
		tpl, _ := svc.Template(ctx, "i")

		Convey("When a mixed batch is submitted", func() {
			outs, err := svc.ValidateBatch(ctx, []model.Attempt{
				{AttemptID: "b1", LearnerID: "amy", TemplateID: "i", Strokes: trace(tpl, 0, 0)},
				{AttemptID: "b2", LearnerID: "amy", TemplateID: "nope"},
				{AttemptID: "b3", LearnerID: "", TemplateID: "i"},
			})

			Convey("Then outcomes should keep input order with per-item errors", func() {
				So(err, ShouldBeNil)
				So(len(outs), ShouldEqual, 3)
				So(outs[0].AttemptID, ShouldEqual, "b1")
				So(outs[0].Error, ShouldBeEmpty)
				So(outs[0].Result.Accuracy, ShouldEqual, 100)
				So(outs[1].Error, ShouldContainSubstring, "template not found")
				So(outs[2].Error, ShouldContainSubstring, "invalid attempt")
			})
		})

		Convey("When the batch is too large or empty", func() {
			_, tooLarge := svc.ValidateBatch(ctx, make([]model.Attempt, 4))
			_, empty := svc.ValidateBatch(ctx, nil)

			Convey("Then it should be rejected", func() {
				So(errors.Is(tooLarge, service.ErrBatchTooLarge), ShouldBeTrue)
				So(errors.Is(empty, service.ErrInvalidAttempt), ShouldBeTrue)
			})
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given learners with different accuracy", t, func() {
		ctx := context.Background()
		svc := started(service.WithStore(repository.EngineSQLite, ":memory:"))
		defer svc.Stop()
		tplA, _ := svc.Template(ctx, "a")
		tplE, _ := svc.Template(ctx, "e")

		// amy masters two templates, bob one, cal draws the wrong number of strokes.
		submit := func(learner, id string, tpl stroke.CharacterTemplate, strokes []stroke.Stroke) {
			_, err := svc.Validate(ctx, model.Attempt{AttemptID: id, LearnerID: learner, TemplateID: tpl.ID, Strokes: strokes})
			So(err, ShouldBeNil)
		}
		submit("amy", "1", tplA, trace(tplA, 0, 0))
		submit("amy", "2", tplE, trace(tplE, 0, 0))
		submit("bob", "3", tplA, trace(tplA, 0, 0))
		submit("cal", "4", tplA, trace(tplA, 0, 0)[:1])

		Convey("Then TopN should order by mastery", func() {
			So(eventually(func() bool {
				top, err := svc.TopN(ctx, 10)
				return err == nil && len(top) == 3
			}), ShouldBeTrue)
			top, _ := svc.TopN(ctx, 10)
			So(top[0].LearnerID, ShouldEqual, "amy")
			So(top[0].Mastered, ShouldEqual, 2)
			So(top[1].LearnerID, ShouldEqual, "bob")
			So(top[2].LearnerID, ShouldEqual, "cal")
			So(top[2].Mastered, ShouldEqual, 0)
			So(top[2].AverageBest, ShouldBeLessThanOrEqualTo, 59)
		})

		Convey("Then progress for an unknown learner should be not found", func() {
			_, err := svc.Progress(ctx, "zed")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_NormalizeAndSheet(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := started()
		defer svc.Stop()

		Convey("When normalizing points", func() {
			path, err := svc.Normalize(ctx, []stroke.Point{{X: 0, Y: 0}, {X: 4, Y: 0}})
			_, emptyErr := svc.Normalize(ctx, nil)

			Convey("Then the result should be centered and unit scaled", func() {
				So(err, ShouldBeNil)
				So(path.Center, ShouldResemble, stroke.Point{X: 2, Y: 0})
				So(path.Scale, ShouldEqual, 2)
				So(errors.Is(emptyErr, stroke.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When rendering a sheet", func() {
			var buf bytes.Buffer
			err := svc.Sheet(ctx, "ba", "amy", &buf)
			missing := svc.Sheet(ctx, "zz", "", &bytes.Buffer{})

			Convey("Then a PDF should be written", func() {
				So(err, ShouldBeNil)
				So(bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), ShouldBeTrue)
				So(errors.Is(missing, catalog.ErrTemplateNotFound), ShouldBeTrue)
			})
		})
	})
}
