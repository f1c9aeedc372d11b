// Package runner executes a single external call under a timeout or
// deadline and reports its failure. It never retries.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	assistant "github.com/goliatone/go-assistant"
)

// ErrSkipped is returned when run limits prevent fn from being called.
var ErrSkipped = errors.New("runner: run limit reached")

type Handler struct {
	mu sync.Mutex

	name         string
	logger       assistant.Logger
	errorHandler func(error)

	runs           int
	successfulRuns int

	maxRuns   int
	timeout   time.Duration
	noTimeout bool
	deadline  time.Time
	once      bool
}

// NewHandler constructs a Handler from options, applying defaults if unset.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		name: "runner",
	}
	for _, o := range opts {
		if o != nil {
			o(h)
		}
	}
	h.logger = assistant.NormalizeLogger(h.logger)
	if h.errorHandler == nil {
		h.errorHandler = func(err error) {
			h.logger.Error("%s error: %v", h.name, err)
		}
	}
	return h
}

// Run calls fn once with a context bound by the configured timeout and
// deadline. The error from fn is reported to the error handler and returned.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) error {
	h.mu.Lock()
	if (h.once && h.successfulRuns >= 1) || (h.maxRuns > 0 && h.successfulRuns >= h.maxRuns) {
		h.mu.Unlock()
		return ErrSkipped
	}
	h.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := h.contextWithSettings(ctx)
	defer cancel()

	started := time.Now()
	err := fn(ctx)

	h.mu.Lock()
	h.runs++
	if err == nil {
		h.successfulRuns++
	}
	h.mu.Unlock()

	if err != nil {
		err = assistant.WrapError("RunFailed", fmt.Sprintf("%s failed after %s", h.name, time.Since(started).Round(time.Millisecond)), err)
		h.errorHandler(err)
		return err
	}
	h.logger.Debug("%s completed in %s", h.name, time.Since(started).Round(time.Millisecond))
	return nil
}

// Stats returns the number of runs and how many of them succeeded.
func (h *Handler) Stats() (runs, successful int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs, h.successfulRuns
}

func (h *Handler) contextWithSettings(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := h.timeout
	if h.noTimeout {
		timeout = 0
	}
	switch {
	case timeout != 0 && !h.deadline.IsZero():
		ctx, cancelTimeout := context.WithTimeout(parent, timeout)
		ctxDeadline, cancelDeadline := context.WithDeadline(ctx, h.deadline)
		return ctxDeadline, func() {
			cancelDeadline()
			cancelTimeout()
		}
	case timeout != 0:
		return context.WithTimeout(parent, timeout)
	case !h.deadline.IsZero():
		return context.WithDeadline(parent, h.deadline)
	default:
		return parent, func() {}
	}
}

func RunCommand[T any](ctx context.Context, h *Handler, c assistant.Commander[T], msg T) error {
	return h.Run(ctx, func(ctx context.Context) error {
		return c.Execute(ctx, msg)
	})
}

func RunQuery[T any, R any](ctx context.Context, h *Handler, q assistant.Querier[T, R], msg T) (R, error) {
	var result R
	err := h.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = q.Query(ctx, msg)
		return err
	})
	return result, err
}
