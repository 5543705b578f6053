package arrow

import (
	"github.com/rs/zerolog"

	"github.com/rhughes91/Arrow/log"
	"github.com/rhughes91/Arrow/registry"
)

// Option configures an Engine during construction.
type Option func(*Engine)

// WithRegistry runs the engine against a registry built ahead of time,
// typically one that already has codecs registered.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = log.Wrap(logger)
	}
}

// WithTrustedMode disables entity liveness validation on every call.
// Operations on dead or never-created ids become undefined.
func WithTrustedMode() Option {
	return func(e *Engine) {
		e.cfg.TrustedMode = true
	}
}

// WithConfig overrides the environment-derived configuration entirely.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}
