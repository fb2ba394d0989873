//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package worker

import (
	"maps"
	"strings"

	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/state"
)

// InstructionsKey is the state key carrying a worker's instruction.
const InstructionsKey = "instructions"

// Config is the immutable blueprint of a worker. An agent stores configs
// and materializes workers from them on demand.
type Config struct {
	id          string
	description string
	instruction string
	stateFn     state.Func
	functions   []*function.Function
	byName      map[string]*function.Function
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// WithInstruction sets extra instructions. They are added to every state
// the worker reports under InstructionsKey.
func WithInstruction(instruction string) ConfigOption {
	return func(c *Config) {
		c.instruction = instruction
	}
}

// NewConfig builds the action space of a worker from fns, keeping their
// order for schema export. Duplicate function names are rejected.
func NewConfig(id, description string, stateFn state.Func, fns []*function.Function, opts ...ConfigOption) (*Config, error) {
	const op = "worker.config"
	if strings.TrimSpace(id) == "" {
		return nil, errs.Configuration(op, "worker id is required")
	}
	if stateFn == nil {
		return nil, errs.Configuration(op, "worker %s: state function is required", id)
	}
	c := &Config{
		id:          id,
		description: description,
		stateFn:     stateFn,
		byName:      make(map[string]*function.Function, len(fns)),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i, fn := range fns {
		if fn == nil {
			return nil, errs.Configuration(op, "worker %s: function %d is nil", id, i)
		}
		if _, dup := c.byName[fn.Name()]; dup {
			return nil, errs.Configuration(op, "worker %s: duplicate function %q", id, fn.Name())
		}
		c.byName[fn.Name()] = fn
		c.functions = append(c.functions, fn)
	}
	return c, nil
}

// ID returns the worker id.
func (c *Config) ID() string { return c.id }

// Description returns the worker description.
func (c *Config) Description() string { return c.description }

// Instruction returns the worker instruction.
func (c *Config) Instruction() string { return c.instruction }

// Function looks up name in the action space.
func (c *Config) Function(name string) (*function.Function, bool) {
	fn, ok := c.byName[name]
	return fn, ok
}

// Functions returns the action space in declaration order.
func (c *Config) Functions() []*function.Function {
	return append([]*function.Function(nil), c.functions...)
}

// Definitions returns the planner-facing schema of the action space.
func (c *Config) Definitions() []function.Definition {
	defs := make([]function.Definition, 0, len(c.functions))
	for _, fn := range c.functions {
		defs = append(defs, fn.Definition())
	}
	return defs
}

// Location describes the worker to the planner.
func (c *Config) Location() planner.Location {
	return planner.Location{ID: c.id, Name: c.id, Description: c.description}
}

// StateFunc returns the caller's state function with the instruction
// merged in. Keys returned by the caller win. A nil state from the caller
// stays nil so seeding can reject it.
func (c *Config) StateFunc() state.Func {
	return func(result *function.Result, current state.State) state.State {
		s := c.stateFn(result, current)
		if s == nil {
			return nil
		}
		out := make(state.State, len(s)+1)
		out[InstructionsKey] = c.instruction
		maps.Copy(out, s)
		return out
	}
}
