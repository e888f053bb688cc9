package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/umwero/internal/drill"
	"github.com/okian/umwero/pkg/logger"
)

// Default configuration constants.
const (
	defaultLearners    = 30
	defaultAttempts    = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 10 * time.Second
	defaultLeaderboard = 100
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		learners    = flag.Int("learners", defaultLearners, "Number of synthetic learners")
		attempts    = flag.Int("attempts", defaultAttempts, "Attempts per learner")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submissions")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle      = flag.Duration("settle", defaultSettle, "How long to wait for records to reach the leaderboard")
		leaderboard = flag.Int("top", defaultLeaderboard, "Leaderboard entries to fetch for verification")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for stroke synthesis")
		outputFile  = flag.String("output", "", "Write a JSON report to this file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	var logOpts []logger.Option
	if *logFile != "" {
		logOpts = append(logOpts, logger.WithFile(*logFile))
	}
	if err := logger.Init(logOpts...); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &drill.Config{
		BaseURL:     *baseURL,
		Learners:    *learners,
		Attempts:    *attempts,
		Workers:     *workers,
		Timeout:     *timeout,
		Settle:      *settle,
		Leaderboard: *leaderboard,
		Seed:        *seed,
		OutputFile:  *outputFile,
	}

	if _, err := drill.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "drill failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
