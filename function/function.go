//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package function declares the capabilities a worker exposes to the remote
// planner.
//
// A Function couples a planner-facing schema (name, description, arguments
// and hint) with a local Executable. Execute is the boundary where every
// executable failure, returned error or panic, becomes a FAILED Result.
package function

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-game-go/errs"
)

// Status is the terminal classification of one function invocation.
type Status string

// Function result statuses.
const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDone || s == StatusFailed
}

// DefaultFeedback is returned by functions declared without an executable.
const DefaultFeedback = "Default implementation - no action taken"

// Result is the outcome of one function invocation.
type Result struct {
	// ActionID is the planner supplied id of the call, echoed unchanged.
	ActionID        string         `json:"action_id"`
	Status          Status         `json:"action_status"`
	FeedbackMessage string         `json:"feedback_message"`
	Info            map[string]any `json:"info,omitempty"`
}

// Failed builds a FAILED result.
func Failed(actionID, format string, args ...any) *Result {
	return &Result{
		ActionID:        actionID,
		Status:          StatusFailed,
		FeedbackMessage: fmt.Sprintf(format, args...),
		Info:            map[string]any{},
	}
}

// TypeTags holds the semantic type tags of an argument. A single tag is
// encoded as a JSON string, several as an array.
type TypeTags []string

// MarshalJSON implements json.Marshaler.
func (t TypeTags) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeTags) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*t = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = TypeTags{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("type tags: %w", err)
	}
	*t = many
	return nil
}

// Argument declares one named input of a Function.
type Argument struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        TypeTags `json:"type,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
}

// Definition is the planner-facing schema of a Function.
type Definition struct {
	Name        string     `json:"fn_name"`
	Description string     `json:"fn_description"`
	Args        []Argument `json:"args"`
	Hint        string     `json:"hint,omitempty"`
}

// Executable is the capability behind a Function. args holds the declared
// arguments present in the call, already unwrapped.
type Executable func(ctx context.Context, args map[string]any) (Status, string, map[string]any, error)

// Function is one callable capability. It is immutable after New.
type Function struct {
	name        string
	description string
	args        []Argument
	hint        string
	exec        Executable
}

// Option configures a Function.
type Option func(*Function)

// WithArgs appends declared arguments in order.
func WithArgs(args ...Argument) Option {
	return func(f *Function) {
		f.args = append(f.args, args...)
	}
}

// WithHint sets the hint shown to the planner.
func WithHint(hint string) Option {
	return func(f *Function) {
		f.hint = hint
	}
}

// WithExecutable sets the behavior of the function.
func WithExecutable(exec Executable) Option {
	return func(f *Function) {
		f.exec = exec
	}
}

// New declares a function. Without WithExecutable the function returns
// DONE with DefaultFeedback.
func New(name, description string, opts ...Option) (*Function, error) {
	const op = "function.new"
	f := &Function{name: strings.TrimSpace(name), description: description}
	for _, opt := range opts {
		opt(f)
	}
	if f.name == "" {
		return nil, errs.Configuration(op, "function name is required")
	}
	seen := make(map[string]struct{}, len(f.args))
	for _, a := range f.args {
		if a.Name == "" {
			return nil, errs.Configuration(op, "function %s: argument name is required", f.name)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, errs.Configuration(op, "function %s: duplicate argument %s", f.name, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	if f.exec == nil {
		f.exec = defaultExecutable
	}
	return f, nil
}

// Name returns the dispatch key.
func (f *Function) Name() string { return f.name }

// Description returns the planner-facing description.
func (f *Function) Description() string { return f.description }

// Hint returns the optional hint.
func (f *Function) Hint() string { return f.hint }

// Args returns a copy of the declared arguments.
func (f *Function) Args() []Argument {
	out := make([]Argument, len(f.args))
	copy(out, f.args)
	return out
}

// Definition returns the schema sent to the planner. The executable is
// never part of it.
func (f *Function) Definition() Definition {
	args := make([]Argument, len(f.args))
	for i, a := range f.args {
		a.Type = append(TypeTags(nil), a.Type...)
		args[i] = a
	}
	return Definition{
		Name:        f.name,
		Description: f.description,
		Args:        args,
		Hint:        f.hint,
	}
}

func defaultExecutable(context.Context, map[string]any) (Status, string, map[string]any, error) {
	return StatusDone, DefaultFeedback, map[string]any{}, nil
}
