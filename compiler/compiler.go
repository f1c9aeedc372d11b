// Package compiler turns the intermediate model of a project into the
// sections of a Watson Assistant workspace: entities, intents with
// mentions, and the dialog node graph.
package compiler

import (
	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/entitytype"
)

// Compiler holds no per-compilation state and is safe for concurrent use.
type Compiler struct {
	mapper entitytype.Mapper
	logger assistant.Logger
}

type Option func(*Compiler)

// WithMapper sets the entity type mapping used for mentions and slots.
func WithMapper(m entitytype.Mapper) Option {
	return func(c *Compiler) {
		c.mapper = m
	}
}

func WithLogger(l assistant.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// New returns a Compiler using the default entity type table.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		mapper: entitytype.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = assistant.NormalizeLogger(c.logger)
	return c
}
