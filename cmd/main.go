package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/umwero/internal/adapters/http/api"
	"github.com/okian/umwero/internal/adapters/http/swagger"
	app "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/config"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/pkg/logger"
	"github.com/okian/umwero/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	systemRefresh  = 10 * time.Second
	serviceRefresh = 5 * time.Second
)

func main() {
	// The custom registry carries its own runtime gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if err := logger.Init(loggerOptions(cfg)...); err != nil {
		fatalf("init logging: %v", err)
	}

	code := 0
	if err := run(ctx, stop, cfg); err != nil {
		logger.Get().Error(ctx, "umwero exited", logger.Error(err))
		code = 1
	}
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
	}
	os.Exit(code)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// run serves until ctx is cancelled, then drains the HTTP server and the
// recording pipeline.
func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config) error {
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "unknown log level, using info", logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(serviceOptions(cfg, log)...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start practice service: %w", err)
	}
	defer svc.Stop()

	go every(ctx, systemRefresh, updateSystemMetrics)
	go every(ctx, serviceRefresh, func() { updateServiceMetrics(svc) })

	srv := newHTTPServer(ctx, cfg, svc, log)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreEngine))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info(ctx, "stopped")
	return nil
}

func loggerOptions(cfg *config.Config) []logger.Option {
	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	if cfg.LogFormat == "json" {
		opts = append(opts, logger.WithJSON())
	}
	return opts
}

// serviceOptions maps configuration onto the practice service.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithStore(cfg.StoreEngine, cfg.StorePath),
		app.WithTemplatesPath(cfg.TemplatesPath),
		app.WithMaxBatchSize(cfg.MaxBatchSize),
		app.WithBatchConcurrency(cfg.BatchConcurrency),
		app.WithHistoryLimit(cfg.HistoryLimit),
		app.WithScorerOptions(
			scoring.WithResampleCount(cfg.ResampleCount),
			scoring.WithTolerance(cfg.Tolerance),
			scoring.WithFlagThreshold(cfg.FlagThreshold),
			scoring.WithMismatchCap(cfg.MismatchCap),
		),
	}
}

// newHTTPServer registers the API and docs routes on a fresh mux.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	limits := api.Limits{Leaderboard: cfg.MaxLeaderboardLimit, History: cfg.MaxHistoryLimit}
	api.NewServer(svc, limits, log).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

func updateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		pause := time.Duration(ms.PauseTotalNs / uint64(ms.NumGC))
		metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
	}
}

// updateServiceMetrics refreshes the queue gauge; GetStats itself updates
// the learner and worker gauges.
func updateServiceMetrics(svc *app.Service) {
	if n, ok := svc.GetStats()["queueLength"].(int); ok {
		metrics.UpdateQueueSize(n)
	}
}
