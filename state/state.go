//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package state defines the caller-owned state threaded between turns.
package state

import (
	"maps"

	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
)

// State is an opaque key-value value. The module never interprets it; it
// only passes it to the planner and back to the owner's Func.
type State map[string]any

// Func computes the next state from the latest function result and the
// current state. On the seed call both arguments are nil and the return
// value must be non-nil.
type Func func(result *function.Result, current State) State

// Seed calls fn(nil, nil) and returns the initial state.
// A nil fn is a configuration error; a nil seed is a validation error.
func Seed(op string, fn Func) (State, error) {
	if fn == nil {
		return nil, errs.Configuration(op, "state function is required")
	}
	s := fn(nil, nil)
	if s == nil {
		return nil, errs.Validation(op, "state function must return a mapping on the seed call")
	}
	return s, nil
}

// Fold applies fn to result and current. A nil return is replaced by an
// empty State so later turns never see nil.
func Fold(fn Func, result *function.Result, current State) State {
	next := fn(result, current)
	if next == nil {
		return State{}
	}
	return next
}

// With returns a shallow copy of s with key set to value.
func (s State) With(key string, value any) State {
	out := make(State, len(s)+1)
	maps.Copy(out, s)
	out[key] = value
	return out
}

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}
