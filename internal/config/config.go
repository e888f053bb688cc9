// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
)

// Store engines accepted by StoreEngine.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, tees logs into a size-rotated file.
	LogFile string `koanf:"log_file"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory attempt record queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recording workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the attempt id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// TemplatesPath points at a YAML template catalog. Empty uses the embedded seed.
	TemplatesPath string `koanf:"templates_path"`

	// StoreEngine is memory or sqlite.
	StoreEngine string `koanf:"store_engine"`

	// StorePath is the SQLite DSN, ":memory:" by default.
	StorePath string `koanf:"store_path"`

	// MaxLeaderboardLimit caps the limit query of GET /leaderboard.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxHistoryLimit caps the limit query of GET /learners/{id}/attempts.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// MaxBatchSize caps POST /attempts/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// BatchConcurrency bounds parallel grading inside one batch.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// HistoryLimit is the default page size for learner history.
	HistoryLimit int `koanf:"history_limit"`

	// Scorer tunables.
	ResampleCount int     `koanf:"resample_count"`
	Tolerance     float64 `koanf:"tolerance"`
	FlagThreshold float64 `koanf:"flag_threshold"`
	MismatchCap   float64 `koanf:"mismatch_cap"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		StoreEngine:         StoreMemory,
		StorePath:           ":memory:",
		MaxLeaderboardLimit: 100,
		MaxHistoryLimit:     200,
		MaxBatchSize:        50,
		BatchConcurrency:    runtime.NumCPU(),
		HistoryLimit:        20,
		ResampleCount:       32,
		Tolerance:           0.5,
		FlagThreshold:       60,
		MismatchCap:         59,
	}
}
