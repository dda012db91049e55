package registry

import (
	"maps"

	"github.com/rs/zerolog"

	"github.com/timzifer/docstore/telemetry"
)

// Option customises a registry created with New.
type Option func(*Registry)

// WithDefaults sets the baseline configuration every Add call is merged
// over: the fallback URI and the default option set.
func WithDefaults(cfg Config) Option {
	return func(r *Registry) {
		if r == nil {
			return
		}
		r.defaults = Config{URI: cfg.URI, Options: maps.Clone(cfg.Options)}
	}
}

// WithLogger provides a custom logger instance for the registry.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		if r == nil {
			return
		}
		r.logger = logger
	}
}

// WithCollector installs a telemetry collector for lifecycle events.
func WithCollector(collector telemetry.Collector) Option {
	return func(r *Registry) {
		if r == nil || collector == nil {
			return
		}
		r.collector = collector
	}
}
