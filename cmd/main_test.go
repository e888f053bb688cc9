package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	app "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/config"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestConfigWiring(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		setEnv(t, map[string]string{
			"UMWERO_ADDR":         ":8081",
			"UMWERO_QUEUE_SIZE":   "1000",
			"UMWERO_WORKER_COUNT": "4",
			"UMWERO_LOG_FORMAT":   "json",
		})

		convey.Convey("When loading configuration", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the overrides should apply", func() {
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})

			convey.Convey("And logger options should follow the format", func() {
				convey.So(loggerOptions(cfg), convey.ShouldHaveLength, 1)
			})

			convey.Convey("And every service setting should map to an option", func() {
				convey.So(len(serviceOptions(cfg, nil)), convey.ShouldEqual, 10)
			})
		})
	})

	convey.Convey("Given a log file", t, func() {
		cfg := config.New()
		cfg.LogFile = filepath.Join(t.TempDir(), "logs", "umwero.log")

		convey.Convey("Then logging should initialize with rotation", func() {
			convey.So(logger.Init(loggerOptions(cfg)...), convey.ShouldBeNil)
			logger.Get().Info(context.Background(), "hello")
			convey.So(logger.Sync(), convey.ShouldBeNil)
			_, err := os.Stat(cfg.LogFile)
			convey.So(err, convey.ShouldBeNil)
			convey.So(logger.Init(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an unknown store engine", t, func() {
		setEnv(t, map[string]string{"UMWERO_STORE_ENGINE": "bogus"})

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestHTTPServerEndToEnd(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a started service behind the HTTP server", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.HistoryLimit = 5
		cfg.MaxHistoryLimit = 5

		svc := app.New(serviceOptions(cfg, logger.Get())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(ctx, cfg, svc, logger.Get())
		ts := httptest.NewServer(srv.Handler)
		defer ts.Close()

		convey.Convey("When a learner traces a template exactly", func() {
			tpl, err := svc.Template(ctx, "a")
			convey.So(err, convey.ShouldBeNil)

			strokes := make([]stroke.Stroke, len(tpl.Strokes))
			for i, pts := range tpl.Strokes {
				strokes[i] = stroke.Stroke{Points: pts}
			}
			body, err := json.Marshal(map[string]any{
				"attempt_id":  "e2e-1",
				"learner_id":  "amy",
				"template_id": "a",
				"strokes":     strokes,
			})
			convey.So(err, convey.ShouldBeNil)

			resp, err := http.Post(ts.URL+"/attempts", "application/json", bytes.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the attempt should pass and be recorded", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var out app.Outcome
				convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
				convey.So(out.Result.Accuracy, convey.ShouldEqual, 100)
				convey.So(out.Result.Passed, convey.ShouldBeTrue)
				convey.So(out.Recorded, convey.ShouldBeTrue)

				deadline := time.Now().Add(2 * time.Second)
				var progressCode int
				for time.Now().Before(deadline) {
					r, err := http.Get(ts.URL + "/learners/amy/progress")
					convey.So(err, convey.ShouldBeNil)
					progressCode = r.StatusCode
					_ = r.Body.Close()
					if progressCode == http.StatusOK {
						break
					}
					time.Sleep(20 * time.Millisecond)
				}
				convey.So(progressCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("The docs should be served next to the API", func() {
			resp, err := http.Get(ts.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("The leaderboard should enforce the configured limit", func() {
			resp, err := http.Get(ts.URL + "/leaderboard?limit=1000")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("History and leaderboard caps should be independent", func() {
			history, err := http.Get(ts.URL + "/learners/amy/attempts?limit=6")
			convey.So(err, convey.ShouldBeNil)
			defer history.Body.Close()
			convey.So(history.StatusCode, convey.ShouldEqual, http.StatusBadRequest)

			board, err := http.Get(ts.URL + "/leaderboard?limit=50")
			convey.So(err, convey.ShouldBeNil)
			defer board.Body.Close()
			convey.So(board.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then the ticker loop should run until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			calls := 0
			every(ctx, 5*time.Millisecond, func() { calls++ })
			convey.So(calls, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("And a single system update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("And service updates should work before Start", func() {
			svc := app.New()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
