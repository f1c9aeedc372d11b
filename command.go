package assistant

import (
	"context"
	"time"
)

// CommandFunc is an adapter that lets you use a function as a Commander[T]
type CommandFunc[T any] func(ctx context.Context, msg T) error

// Execute calls the underlying function
func (f CommandFunc[T]) Execute(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Commander is responsible for executing side effects
type Commander[T any] interface {
	Execute(ctx context.Context, msg T) error
}

// QueryFunc is an adapter that lets you use a function as a Querier[T, R]
type QueryFunc[T any, R any] func(ctx context.Context, msg T) (R, error)

// Query calls the underlying function
func (f QueryFunc[T, R]) Query(ctx context.Context, msg T) (R, error) {
	return f(ctx, msg)
}

// Querier is responsible for returning data, with no side effects
type Querier[T any, R any] interface {
	Query(ctx context.Context, msg T) (R, error)
}

// HandlerConfig configures how a scheduled or external call is run.
type HandlerConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	Deadline   time.Time     `json:"deadline" yaml:"deadline"`
	Expression string        `json:"expression" yaml:"expression"`
	NoTimeout  bool          `json:"no_timeout" yaml:"no_timeout"`
}
