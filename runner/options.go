package runner

import (
	"time"

	assistant "github.com/goliatone/go-assistant"
)

type Option func(*Handler)

func WithTimeout(t time.Duration) Option {
	return func(r *Handler) {
		r.timeout = t
	}
}

// WithNoTimeout disables the timeout, leaving cancellation to the caller's context.
func WithNoTimeout() Option {
	return func(r *Handler) {
		r.timeout = 0
		r.noTimeout = true
	}
}

func WithDeadline(d time.Time) Option {
	return func(r *Handler) {
		r.deadline = d
	}
}

func WithRunOnce(once bool) Option {
	return func(r *Handler) {
		r.once = once
	}
}

func WithMaxRuns(max int) Option {
	return func(r *Handler) {
		r.maxRuns = max
	}
}

func WithErrorHandler(h func(error)) Option {
	return func(r *Handler) {
		if h == nil {
			h = func(err error) {}
		}
		r.errorHandler = h
	}
}

func WithLogger(l assistant.Logger) Option {
	return func(r *Handler) {
		r.logger = l
	}
}

func WithName(name string) Option {
	return func(r *Handler) {
		r.name = name
	}
}

// FromConfig maps a HandlerConfig onto runner options.
func FromConfig(cfg assistant.HandlerConfig) []Option {
	opts := []Option{WithDeadline(cfg.Deadline)}
	if cfg.NoTimeout {
		opts = append(opts, WithNoTimeout())
	} else if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return opts
}
