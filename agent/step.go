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
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-game-go/function"
	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/state"
	"trpc.group/trpc-go/trpc-game-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-game-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-game-go/worker"
)

// Step runs one round of the driver and returns the planner's directive.
//
// A step_failure directive is not an error: the agent state is left as is,
// the phase goes back to idle and the directive is returned with a nil
// error. Errors are transport, authentication or configuration problems.
func (a *Agent) Step(ctx context.Context) (d *planner.Directive, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanAgentStep)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyAgentID, a.agentID),
		attribute.String(itelemetry.KeyPhase, string(a.phase)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.String(itelemetry.KeyDirective, string(d.Type)))
	}()

	if a.sessionID == "" {
		sid, err := a.client.CreateSession(ctx, a.agentID, a.goal)
		if err != nil {
			return nil, fmt.Errorf("agent %s: create session: %w", a.name, err)
		}
		a.sessionID = sid
	}
	span.SetAttributes(attribute.String(itelemetry.KeySessionID, a.sessionID))

	switch a.phase {
	case PhaseTaskPending:
		log.Debugf("agent %s: starting task", a.name)
		d, err = a.client.StartTask(ctx, a.sessionID, planner.StartTaskRequest{
			EnvironmentState: a.opts.Environment(a.state),
			ActionSpace:      a.actionSpace(),
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: start task: %w", a.name, err)
		}
		return d, a.handleExecution(ctx, d)
	case PhaseTaskRunning:
		log.Debugf("agent %s: reporting function result", a.name)
		d, err = a.client.ReportResult(ctx, a.sessionID, planner.ReportRequest{
			FunctionResult:   planner.ReportOf(a.session.FunctionResult),
			EnvironmentState: a.opts.Environment(a.state),
			ActionSpace:      a.actionSpace(),
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: report result: %w", a.name, err)
		}
		return d, a.handleExecution(ctx, d)
	default:
		log.Debugf("agent %s: requesting next task", a.name)
		d, err = a.client.NextTask(ctx, a.sessionID, planner.NextTaskRequest{
			GoalState:   a.opts.GoalState(a.state),
			ActionSpace: a.actionSpace(),
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: next task: %w", a.name, err)
		}
		if d.Type == planner.DirectiveStepFailure {
			a.stepFailed(ctx)
			return d, nil
		}
		log.Debugf("agent %s: reasoning: %s", a.name, d.Reasoning)
		log.Infof("agent %s: task assigned: %s", a.name, d.Task)
		a.task = d.Task
		a.phase = PhaseTaskPending
		return d, nil
	}
}

// handleExecution applies a start or report directive.
func (a *Agent) handleExecution(ctx context.Context, d *planner.Directive) error {
	switch d.Type {
	case planner.DirectiveCallFunction:
		log.Debugf("agent %s: reasoning: %s", a.name, d.Reasoning)
		log.Infof("agent %s: call %s(%v)", a.name, d.Function.Name, d.Function.Arguments)
		result, err := a.call(ctx, d.Function)
		if err != nil {
			return err
		}
		a.state = state.Fold(a.stateFn, result, a.state)
		a.session.FunctionResult = result
		a.phase = PhaseTaskRunning
	case planner.DirectiveFinishTask:
		log.Debugf("agent %s: reasoning: %s", a.name, d.Reasoning)
		log.Infof("agent %s: task finished: %s", a.name, d.Result)
		a.final = string(d.Result)
		a.task = ""
		a.session.FunctionResult = nil
		a.phase = PhaseIdle
	case planner.DirectiveStepFailure:
		a.stepFailed(ctx)
	}
	return nil
}

// call executes fn through the worker that declares it. An undeclared
// function yields a FAILED result for the planner to see.
func (a *Agent) call(ctx context.Context, fc *planner.FunctionCall) (*function.Result, error) {
	owner, ok := a.owners[fc.Name]
	if !ok {
		log.Errorf("agent %s: planner called undeclared function %q", a.name, fc.Name)
		return function.Failed(fc.ID, "Function %q not found in action space", fc.Name), nil
	}
	w, ok := a.driven[owner]
	if !ok {
		var err error
		if w, err = worker.New(a.workers[owner]); err != nil {
			return nil, fmt.Errorf("agent %s: worker %s: %w", a.name, owner, err)
		}
		a.driven[owner] = w
	}
	return w.ExecuteFunction(ctx, fc.Name, fc.ID, fc.Arguments), nil
}

func (a *Agent) stepFailed(ctx context.Context) {
	log.Warnf("agent %s: planner step failed in phase %s", a.name, a.phase)
	metric.RecordStepFailure(ctx, a.name)
	a.phase = PhaseIdle
	a.task = ""
	a.session.FunctionResult = nil
}
