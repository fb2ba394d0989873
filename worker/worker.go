//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package worker runs a bundle of functions, either driven by an agent
// through ExecuteFunction or on its own against the planner's worker API.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/session"
	"trpc.group/trpc-go/trpc-game-go/state"
	"trpc.group/trpc-go/trpc-game-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-game-go/telemetry/trace"
)

var (
	// ErrNoClient is returned by remote operations of a worker built
	// without WithClient.
	ErrNoClient = errors.New("worker: no planner client")
	// ErrNoActiveTask is returned by Step before SetTask.
	ErrNoActiveTask = errors.New("worker: no active task")
	// ErrUnexpectedActionType is returned when the planner sends an action
	// a standalone worker cannot carry out.
	ErrUnexpectedActionType = errors.New("worker: unexpected action type")
	// ErrUnknownFunction is returned when the planner asks a standalone
	// worker for a function outside its action space.
	ErrUnknownFunction = errors.New("worker: function not in action space")
)

// Option configures a Worker.
type Option func(*options)

type options struct {
	client  planner.WorkerAPI
	agentID string
}

// WithClient sets the planner used by SetTask, Step and Run.
func WithClient(c planner.WorkerAPI) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithAgentID reuses an agent already registered with the planner. Without
// it the worker registers itself on the first SetTask.
func WithAgentID(id string) Option {
	return func(o *options) {
		o.agentID = id
	}
}

// Worker is one materialized worker. It is not safe for concurrent use.
type Worker struct {
	cfg     *Config
	stateFn state.Func
	client  planner.WorkerAPI
	agentID string

	state      state.State
	session    *session.Session
	submission string
}

// New seeds the worker state. It makes no remote call.
func New(cfg *Config, opts ...Option) (*Worker, error) {
	const op = "worker.new"
	if cfg == nil {
		return nil, errs.Configuration(op, "worker config is required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	stateFn := cfg.StateFunc()
	seed, err := state.Seed(op, stateFn)
	if err != nil {
		return nil, err
	}
	return &Worker{
		cfg:     cfg,
		stateFn: stateFn,
		client:  o.client,
		agentID: o.agentID,
		state:   seed,
		session: session.New(),
	}, nil
}

// ID returns the worker id.
func (w *Worker) ID() string { return w.cfg.id }

// Description returns the worker description.
func (w *Worker) Description() string { return w.cfg.description }

// Instruction returns the worker instruction.
func (w *Worker) Instruction() string { return w.cfg.instruction }

// Config returns the blueprint of the worker.
func (w *Worker) Config() *Config { return w.cfg }

// State returns a copy of the current state.
func (w *Worker) State() state.State { return w.state.Clone() }

// Session returns the worker's own session.
func (w *Worker) Session() *session.Session { return w.session }

// AgentID returns the planner-side agent id, empty before registration.
func (w *Worker) AgentID() string { return w.agentID }

// Submission returns the id of the active task, empty when idle.
func (w *Worker) Submission() string { return w.submission }

// ExecuteFunction runs name from the action space and folds the result
// into the worker state. A name outside the action space yields a FAILED
// result rather than an error.
func (w *Worker) ExecuteFunction(ctx context.Context, name, actionID string, args map[string]any) *function.Result {
	var result *function.Result
	if fn, ok := w.cfg.byName[name]; ok {
		result = fn.Execute(ctx, actionID, args)
	} else {
		log.Errorf("worker %s: function %q not found in action space", w.cfg.id, name)
		result = function.Failed(actionID, "Function %q not found in action space of worker %s", name, w.cfg.id)
	}
	w.state = state.Fold(w.stateFn, result, w.state)
	w.session.FunctionResult = result
	return result
}

// SetTask opens a unit of work with the planner and returns its
// submission id. The worker registers itself first when it has no agent
// id.
func (w *Worker) SetTask(ctx context.Context, task string) (string, error) {
	if w.client == nil {
		return "", ErrNoClient
	}
	if w.agentID == "" {
		id, err := w.client.CreateAgent(ctx, planner.AgentSpec{
			Name:        w.cfg.id,
			Goal:        task,
			Description: w.cfg.description,
		})
		if err != nil {
			return "", fmt.Errorf("worker %s: register: %w", w.cfg.id, err)
		}
		w.agentID = id
	}
	sub, err := w.client.SetTask(ctx, w.agentID, task)
	if err != nil {
		return "", fmt.Errorf("worker %s: set task: %w", w.cfg.id, err)
	}
	log.Infof("worker %s: task assigned (submission %s): %s", w.cfg.id, sub, task)
	w.submission = sub
	w.session.Reset()
	return sub, nil
}

// Step asks the planner for the next action of the active task and
// carries it out. A call_function action returns the function result; a
// wait action ends the task and returns a nil result.
func (w *Worker) Step(ctx context.Context) (action *planner.Action, result *function.Result, err error) {
	if w.client == nil {
		return nil, nil, ErrNoClient
	}
	if w.submission == "" {
		return nil, nil, ErrNoActiveTask
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanWorkerStep)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyWorkerID, w.cfg.id),
		attribute.String(itelemetry.KeySessionID, w.session.ID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	req := planner.ActionRequest{
		Location:    w.cfg.id,
		Environment: w.state.Clone(),
		Functions:   w.cfg.Definitions(),
	}
	if last := w.session.FunctionResult; last != nil {
		report := planner.ReportOf(last)
		req.ActionResult = &report
	}
	action, err = w.client.NextAction(ctx, w.agentID, w.submission, req)
	if err != nil {
		return nil, nil, fmt.Errorf("worker %s: next action: %w", w.cfg.id, err)
	}
	span.SetAttributes(attribute.String(itelemetry.KeyDirective, string(action.Type)))
	if action.Args.Thought != "" {
		log.Debugf("worker %s: thought: %s", w.cfg.id, action.Args.Thought)
	}
	if cur := currentTask(action); cur != "" {
		log.Debugf("worker %s: current task: %s", w.cfg.id, cur)
	}

	switch action.Type {
	case planner.ActionCallFunction:
		call := action.Call()
		if _, ok := w.cfg.byName[call.Name]; !ok {
			metric.RecordStepFailure(ctx, w.cfg.id)
			return action, nil, &errs.Error{
				Kind:    errs.KindConfiguration,
				Op:      "worker.step",
				Message: fmt.Sprintf("planner requested %q, which worker %s does not declare", call.Name, w.cfg.id),
				Err:     ErrUnknownFunction,
			}
		}
		result = w.ExecuteFunction(ctx, call.Name, call.ID, call.Arguments)
		return action, result, nil
	case planner.ActionWait:
		log.Infof("worker %s: task %s finished", w.cfg.id, w.submission)
		w.submission = ""
		w.session.Reset()
		return action, nil, nil
	default:
		return action, nil, fmt.Errorf("%w: %q", ErrUnexpectedActionType, action.Type)
	}
}

// Run sets task and steps until the planner answers wait. It stops early
// when ctx is done or a step fails.
func (w *Worker) Run(ctx context.Context, task string) error {
	if _, err := w.SetTask(ctx, task); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, _, err := w.Step(ctx)
		if err != nil {
			return err
		}
		if action.Type == planner.ActionWait {
			return nil
		}
	}
}

func currentTask(a *planner.Action) string {
	if a.AgentState == nil || a.AgentState.CurrentTask == nil {
		return ""
	}
	return a.AgentState.CurrentTask.Task
}
