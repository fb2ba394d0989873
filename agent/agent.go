//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package agent drives a goal-oriented agent against the remote planner.
//
// An Agent holds worker configurations, registers itself and its workers
// with the planner, and then advances one planner round per Step:
//
//	idle --next task--> task pending --start--> task running --report--> ...
//
// Functions the planner calls are executed locally by the worker that
// declares them. Only their schemas are sent.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-game-go/credential"
	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/session"
	"trpc.group/trpc-go/trpc-game-go/state"
	"trpc.group/trpc-go/trpc-game-go/worker"
)

// Phase is the position of an agent in its driver loop.
type Phase string

// Driver phases.
const (
	PhaseIdle        Phase = "idle"
	PhaseTaskPending Phase = "task_pending"
	PhaseTaskRunning Phase = "task_running"
)

// Config describes an agent.
type Config struct {
	Name        string
	Goal        string
	Description string
	// APIKey authenticates the planner client built by New. Credential is
	// consulted when APIKey is empty. Neither is used when WithClient is
	// given.
	APIKey     string
	Credential credential.Provider
	StateFunc  state.Func
	Workers    []*worker.Config
}

// Agent drives one planner agent. Step and Reset are serialized, so the
// state function never runs concurrently with itself.
type Agent struct {
	name        string
	goal        string
	description string
	stateFn     state.Func
	opts        Options
	client      planner.AgentAPI

	mu        sync.Mutex
	workers   map[string]*worker.Config
	order     []string
	owners    map[string]string
	driven    map[string]*worker.Worker
	state     state.State
	session   *session.Session
	agentID   string
	mapID     string
	sessionID string
	phase     Phase
	task      string
	final     string
}

// New validates cfg, seeds the agent state and registers the agent with
// the planner. Validation happens before any remote call.
func New(ctx context.Context, cfg Config, opts ...Option) (*Agent, error) {
	const op = "agent.new"
	o := Options{GoalState: renderJSON, Environment: renderJSON}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Client == nil && strings.TrimSpace(cfg.APIKey) == "" && cfg.Credential == nil {
		return nil, errs.Configuration(op, "api key or credential is required")
	}
	seed, err := state.Seed(op, cfg.StateFunc)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		name:        cfg.Name,
		goal:        cfg.Goal,
		description: cfg.Description,
		stateFn:     cfg.StateFunc,
		opts:        o,
		workers:     make(map[string]*worker.Config),
		owners:      make(map[string]string),
		driven:      make(map[string]*worker.Worker),
		state:       seed,
		session:     session.New(),
		phase:       PhaseIdle,
	}
	for _, w := range cfg.Workers {
		if err := a.addWorker(w); err != nil {
			return nil, err
		}
	}

	a.client = o.Client
	if a.client == nil {
		auth := planner.WithAPIKey(cfg.APIKey)
		if strings.TrimSpace(cfg.APIKey) == "" {
			auth = planner.WithCredential(cfg.Credential)
		}
		c, err := planner.NewClient(append([]planner.Option{auth}, o.PlannerOptions...)...)
		if err != nil {
			return nil, err
		}
		a.client = c
	}
	id, err := a.client.CreateAgent(ctx, planner.AgentSpec{
		Name:        cfg.Name,
		Goal:        cfg.Goal,
		Description: cfg.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: register: %w", cfg.Name, err)
	}
	a.agentID = id
	log.Infof("agent %s: registered as %s", cfg.Name, id)
	return a, nil
}

// Compile registers every worker with the planner as a location.
func (a *Agent) Compile(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.order) == 0 {
		return errs.Configuration("agent.compile", "agent %s has no workers", a.name)
	}
	locations := make([]planner.Location, 0, len(a.order))
	for _, id := range a.order {
		locations = append(locations, a.workers[id].Location())
	}
	mapID, err := a.client.CreateWorkers(ctx, locations)
	if err != nil {
		return fmt.Errorf("agent %s: register workers: %w", a.name, err)
	}
	a.mapID = mapID
	return nil
}

// AddWorker adds or replaces a worker configuration. A function name
// already owned by another worker is a configuration error.
func (a *Agent) AddWorker(cfg *worker.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addWorker(cfg)
}

func (a *Agent) addWorker(cfg *worker.Config) error {
	const op = "agent.add_worker"
	if cfg == nil {
		return errs.Configuration(op, "worker config is required")
	}
	for _, fn := range cfg.Functions() {
		if owner, ok := a.owners[fn.Name()]; ok && owner != cfg.ID() {
			return errs.Configuration(op, "function %q is declared by workers %s and %s", fn.Name(), owner, cfg.ID())
		}
	}
	if old, ok := a.workers[cfg.ID()]; ok {
		for _, fn := range old.Functions() {
			delete(a.owners, fn.Name())
		}
		delete(a.driven, cfg.ID())
	} else {
		a.order = append(a.order, cfg.ID())
	}
	a.workers[cfg.ID()] = cfg
	for _, fn := range cfg.Functions() {
		a.owners[fn.Name()] = cfg.ID()
	}
	return nil
}

// WorkerConfig returns the configuration stored under id.
func (a *Agent) WorkerConfig(id string) (*worker.Config, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg, ok := a.workers[id]
	return cfg, ok
}

// Worker materializes a fresh worker from the configuration stored under
// id. Every call returns a distinct instance.
func (a *Agent) Worker(id string) (*worker.Worker, error) {
	cfg, ok := a.WorkerConfig(id)
	if !ok {
		return nil, errs.Configuration("agent.worker", "unknown worker %q", id)
	}
	return worker.New(cfg)
}

// Reset starts a new session. The next Step opens a new planner session
// from the idle phase.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.Reset()
	a.sessionID = ""
	a.phase = PhaseIdle
	a.task = ""
}

// Run calls Step until ctx is done or a step returns an error. Step
// failures reported by the planner do not stop it.
func (a *Agent) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.Step(ctx); err != nil {
			return err
		}
		if a.opts.StepInterval <= 0 {
			continue
		}
		t := time.NewTimer(a.opts.StepInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ID returns the planner-side agent id.
func (a *Agent) ID() string { return a.agentID }

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Goal returns the agent goal.
func (a *Agent) Goal() string { return a.goal }

// Description returns the agent description.
func (a *Agent) Description() string { return a.description }

// MapID returns the id of the worker map registered by Compile.
func (a *Agent) MapID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mapID
}

// State returns a copy of the agent state.
func (a *Agent) State() state.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Phase returns the current driver phase.
func (a *Agent) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Task returns the task being worked on, empty when idle.
func (a *Agent) Task() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task
}

// FinalResult returns the result of the last finished task.
func (a *Agent) FinalResult() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}

// Session returns a copy of the agent's own session.
func (a *Agent) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := *a.session
	return &s
}

// actionSpace returns the definitions of every worker's functions in
// worker order.
func (a *Agent) actionSpace() []function.Definition {
	var defs []function.Definition
	for _, id := range a.order {
		defs = append(defs, a.workers[id].Definitions()...)
	}
	return defs
}
