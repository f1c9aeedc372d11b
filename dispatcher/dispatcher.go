// Package dispatcher routes messages to the commanders and queriers
// subscribed for their Type().
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/runner"
)

const CodeNoHandler = "NO_HANDLER"

var ErrNoHandler = errors.New("no handler subscribed", errors.CategoryNotFound).
	WithTextCode(CodeNoHandler)

// Dispatcher keeps handlers per message type.
type Dispatcher struct {
	mu        sync.RWMutex
	handlers  map[string][]any
	exitOnErr bool
}

type Option func(*Dispatcher)

// WithExitOnError stops Dispatch at the first failing commander.
func WithExitOnError() Option {
	return func(d *Dispatcher) {
		d.exitOnErr = true
	}
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string][]any)}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	d       *Dispatcher
	msgType string
	handler any
}

func (s *subscription) Unsubscribe() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	current := s.d.handlers[s.msgType]
	kept := make([]any, 0, len(current))
	for _, h := range current {
		if h != s.handler {
			kept = append(kept, h)
		}
	}
	s.d.handlers[s.msgType] = kept
}

func (d *Dispatcher) register(msgType string, handler any) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = append(d.handlers[msgType], handler)
	return &subscription{d: d, msgType: msgType, handler: handler}
}

func (d *Dispatcher) lookup(msgType string) []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]any(nil), d.handlers[msgType]...)
}

type commandEntry[T assistant.Message] struct {
	runner *runner.Handler
	cmd    assistant.Commander[T]
}

type queryEntry[T assistant.Message, R any] struct {
	runner *runner.Handler
	qry    assistant.Querier[T, R]
}

// SubscribeCommand registers cmd for messages of type T. Every dispatch runs
// through a runner.Handler built from opts.
func SubscribeCommand[T assistant.Message](d *Dispatcher, cmd assistant.Commander[T], opts ...runner.Option) Subscription {
	var msg T
	return d.register(msg.Type(), &commandEntry[T]{runner: runner.NewHandler(opts...), cmd: cmd})
}

// SubscribeQuery registers qry for messages of type T. Only one querier per
// type may be subscribed when querying.
func SubscribeQuery[T assistant.Message, R any](d *Dispatcher, qry assistant.Querier[T, R], opts ...runner.Option) Subscription {
	var msg T
	return d.register(msg.Type(), &queryEntry[T, R]{runner: runner.NewHandler(opts...), qry: qry})
}

// Dispatch validates msg and runs every commander subscribed to its type.
// Failures are joined unless the dispatcher exits on error.
func Dispatch[T assistant.Message](ctx context.Context, d *Dispatcher, msg T) error {
	if err := (&assistant.MessageHandler[T]{}).ValidateMessage(msg); err != nil {
		return err
	}

	var entries []*commandEntry[T]
	for _, h := range d.lookup(msg.Type()) {
		if e, ok := h.(*commandEntry[T]); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return assistant.CloneError(ErrNoHandler, fmt.Sprintf("no command handler for %s", msg.Type()), nil, map[string]any{
			"message_type": msg.Type(),
		})
	}
	if err := ctx.Err(); err != nil {
		return assistant.WrapError("ContextError", "context canceled or deadline exceeded", err)
	}

	var errs []error
	for _, e := range entries {
		if err := runner.RunCommand(ctx, e.runner, e.cmd, msg); err != nil {
			if d.exitOnErr {
				return assistant.WrapError("HandlerExecutionFailed", fmt.Sprintf("handler failed for %s", msg.Type()), err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Query validates msg and runs the single querier subscribed to its type.
func Query[T assistant.Message, R any](ctx context.Context, d *Dispatcher, msg T) (R, error) {
	var zero R
	if err := (&assistant.MessageHandler[T]{}).ValidateMessage(msg); err != nil {
		return zero, err
	}

	var entries []*queryEntry[T, R]
	for _, h := range d.lookup(msg.Type()) {
		if e, ok := h.(*queryEntry[T, R]); ok {
			entries = append(entries, e)
		}
	}
	switch {
	case len(entries) == 0:
		return zero, assistant.CloneError(ErrNoHandler, fmt.Sprintf("no query handler for %s", msg.Type()), nil, map[string]any{
			"message_type": msg.Type(),
		})
	case len(entries) > 1:
		return zero, fmt.Errorf("ambiguous query: %d handlers for %s", len(entries), msg.Type())
	}
	if err := ctx.Err(); err != nil {
		return zero, assistant.WrapError("ContextError", "context canceled or deadline exceeded", err)
	}

	return runner.RunQuery(ctx, entries[0].runner, entries[0].qry, msg)
}
