package repository

import "github.com/okian/umwero/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	logger logger.Logger
}

// WithLogger sets the logger used for open and close events.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.logger = log
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s
}
