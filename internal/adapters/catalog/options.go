package catalog

import (
	"github.com/okian/umwero/pkg/logger"
)

// Option configures Load.
type Option func(*loader)

type loader struct {
	path   string
	logger logger.Logger
}

// WithPath reads the catalog from a YAML file instead of the embedded seed.
func WithPath(path string) Option {
	return func(l *loader) {
		l.path = path
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(log logger.Logger) Option {
	return func(l *loader) {
		if log != nil {
			l.logger = log
		}
	}
}
