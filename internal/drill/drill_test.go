package drill_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/umwero/internal/adapters/catalog"
	"github.com/okian/umwero/internal/adapters/http/api"
	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/internal/drill"
	"github.com/okian/umwero/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func meanAccuracy(tpl stroke.CharacterTemplate, p drill.Profile, n int) float64 {
	rng := rand.New(rand.NewPCG(7, 11))
	scorer := scoring.NewStrokeScorer()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += scorer.Validate(drill.Trace(tpl, p, rng), tpl).Accuracy
	}
	return sum / float64(n)
}

func TestTrace(t *testing.T) {
	Convey("Given the embedded catalog", t, func() {
		cat, err := catalog.Load(context.Background())
		So(err, ShouldBeNil)
		tpl, err := cat.Get(context.Background(), "a")
		So(err, ShouldBeNil)

		Convey("A careful trace should keep every stroke and pass", func() {
			strokes := drill.Trace(tpl, drill.Careful, rand.New(rand.NewPCG(1, 2)))
			So(strokes, ShouldHaveLength, len(tpl.Strokes))
			res := scoring.NewStrokeScorer().Validate(strokes, tpl)
			So(res.Passed, ShouldBeTrue)
		})

		Convey("Tracing should not modify the template", func() {
			before := tpl.Strokes[0][0]
			_ = drill.Trace(tpl, drill.Sloppy, rand.New(rand.NewPCG(3, 4)))
			So(tpl.Strokes[0][0], ShouldResemble, before)
		})

		Convey("The same seed should reproduce the same strokes", func() {
			a := drill.Trace(tpl, drill.Average, rand.New(rand.NewPCG(5, 6)))
			b := drill.Trace(tpl, drill.Average, rand.New(rand.NewPCG(5, 6)))
			So(a, ShouldResemble, b)
		})

		Convey("Careful learners should out-score sloppy ones", func() {
			So(meanAccuracy(tpl, drill.Careful, 30), ShouldBeGreaterThan, meanAccuracy(tpl, drill.Sloppy, 30))
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running practice service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, api.Limits{Leaderboard: 100, History: 100}, nil).Register(ctx, mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		out := filepath.Join(t.TempDir(), "reports", "drill.json")
		cfg := &drill.Config{
			BaseURL:     ts.URL,
			Learners:    6,
			Attempts:    9,
			Workers:     4,
			Timeout:     5 * time.Second,
			Settle:      3 * time.Second,
			Leaderboard: 100,
			Seed:        42,
			OutputFile:  out,
		}

		Convey("When the drill runs", func() {
			report, err := drill.Run(ctx, cfg)

			Convey("Then it should verify and tally every attempt", func() {
				So(err, ShouldBeNil)
				So(report.Submitted, ShouldEqual, 54)
				So(report.Failed, ShouldEqual, 0)
				So(report.Profiles, ShouldHaveLength, 3)
				for _, ps := range report.Profiles {
					So(ps.Learners, ShouldEqual, 2)
					So(ps.Submitted, ShouldEqual, 18)
				}
			})

			Convey("And the report should be written", func() {
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})
	})

	Convey("Given no service", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		Convey("Then the drill should fail the health check", func() {
			_, err := drill.Run(context.Background(), &drill.Config{BaseURL: ts.URL, Timeout: time.Second})
			So(errors.Is(err, drill.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
