//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"encoding/json"
	"time"

	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/state"
)

// Option configures an Agent.
type Option func(*Options)

// Options holds the settings applied by New.
type Options struct {
	// Client is the planner. When nil, New builds a *planner.Client from
	// Config.APIKey and PlannerOptions.
	Client         planner.AgentAPI
	PlannerOptions []planner.Option
	// GoalState renders the goal state sent with next-task requests.
	GoalState func(state.State) string
	// Environment renders the environment sent with start and report
	// requests.
	Environment func(state.State) string
	// StepInterval is the pause Run takes between steps.
	StepInterval time.Duration
}

// WithClient sets the planner the agent talks to.
func WithClient(c planner.AgentAPI) Option {
	return func(o *Options) {
		o.Client = c
	}
}

// WithPlannerOptions configures the planner client New builds when no
// client is given.
func WithPlannerOptions(opts ...planner.Option) Option {
	return func(o *Options) {
		o.PlannerOptions = append(o.PlannerOptions, opts...)
	}
}

// WithGoalStateFunc sets how the agent state is rendered as goal state.
func WithGoalStateFunc(fn func(state.State) string) Option {
	return func(o *Options) {
		o.GoalState = fn
	}
}

// WithEnvironmentFunc sets how the agent state is rendered as
// environment.
func WithEnvironmentFunc(fn func(state.State) string) Option {
	return func(o *Options) {
		o.Environment = fn
	}
}

// WithStepInterval sets the pause between steps of Run.
func WithStepInterval(d time.Duration) Option {
	return func(o *Options) {
		o.StepInterval = d
	}
}

// renderJSON is the default renderer for goal state and environment.
func renderJSON(s state.State) string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
