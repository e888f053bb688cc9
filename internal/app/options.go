package service

import (
	"github.com/okian/umwero/internal/adapters/catalog"
	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the record queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many attempt ids are remembered. Zero or less
// remembers every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithStore selects the store engine ("memory" or "sqlite") and its path.
func WithStore(engine, path string) Option {
	return func(s *Service) {
		s.storeEngine = engine
		s.storePath = path
	}
}

// WithTemplatesPath loads the catalog from a YAML file instead of the embedded seed.
func WithTemplatesPath(path string) Option {
	return func(s *Service) {
		s.templatesPath = path
	}
}

// WithCatalog uses an already loaded catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithScorerOptions tunes the stroke scorer.
func WithScorerOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scorerOpts = append(s.scorerOpts, opts...)
	}
}

// WithBatchConcurrency bounds how many attempts of one batch are graded at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithMaxBatchSize caps the number of attempts in one batch.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithHistoryLimit sets the default number of history entries returned.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}
