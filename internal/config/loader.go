package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "UMWERO_"
	envFileVar = "UMWERO_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if UMWERO_CONFIG is set
//  3. env (prefix UMWERO_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// UMWERO_QUEUE_SIZE -> queue_size. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreEngine != StoreMemory && c.StoreEngine != StoreSQLite:
		return fmt.Errorf("%w: unknown store_engine %q", ErrInvalidConfig, c.StoreEngine)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.MaxHistoryLimit < 1:
		return fmt.Errorf("%w: max_history_limit must be positive", ErrInvalidConfig)
	case c.HistoryLimit > c.MaxHistoryLimit:
		return fmt.Errorf("%w: history_limit exceeds max_history_limit", ErrInvalidConfig)
	case c.MaxBatchSize < 1:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case c.ResampleCount < 2:
		return fmt.Errorf("%w: resample_count must be at least 2", ErrInvalidConfig)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	case c.FlagThreshold < 0 || c.FlagThreshold > 100:
		return fmt.Errorf("%w: flag_threshold must be within [0, 100]", ErrInvalidConfig)
	case c.MismatchCap < 0 || c.MismatchCap > 100:
		return fmt.Errorf("%w: mismatch_cap must be within [0, 100]", ErrInvalidConfig)
	}
	return nil
}
