//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package planner is the client of the remote planning API.
//
// Agents talk to it through AgentAPI, workers through WorkerAPI; *Client
// implements both. Every request that asks the planner for a decision
// carries the full action space schema. Executables never leave the
// process.
package planner

import (
	"context"

	"trpc.group/trpc-go/trpc-game-go/function"
)

// AgentAPI is the part of the planner used by an agent driver.
type AgentAPI interface {
	// CreateAgent registers an agent and returns its remote id.
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	// CreateWorkers registers workers as a map of locations and returns
	// the id of the map.
	CreateWorkers(ctx context.Context, locations []Location) (string, error)
	// CreateSession opens a planning session for agentID.
	CreateSession(ctx context.Context, agentID, goal string) (string, error)
	// NextTask asks for the next task. It returns start_task or
	// step_failure.
	NextTask(ctx context.Context, sessionID string, req NextTaskRequest) (*Directive, error)
	// StartTask starts the pending task. It returns call_function,
	// finish_task or step_failure.
	StartTask(ctx context.Context, sessionID string, req StartTaskRequest) (*Directive, error)
	// ReportResult reports the last function result. It returns
	// call_function, finish_task or step_failure.
	ReportResult(ctx context.Context, sessionID string, req ReportRequest) (*Directive, error)
}

// WorkerAPI is the part of the planner used by a standalone worker.
type WorkerAPI interface {
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	// SetTask opens a unit of work and returns its submission id.
	SetTask(ctx context.Context, agentID, task string) (string, error)
	// NextAction asks for the next worker action within a submission.
	NextAction(ctx context.Context, agentID, submissionID string, req ActionRequest) (*Action, error)
}

// AgentSpec describes an agent to register.
type AgentSpec struct {
	Name        string `json:"name"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
}

// Location is a worker as the planner sees it: no functions, no state.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NextTaskRequest is sent while the agent is idle.
type NextTaskRequest struct {
	GoalState   string                `json:"goal_state"`
	ActionSpace []function.Definition `json:"action_space"`
}

// StartTaskRequest is sent when a task is pending.
type StartTaskRequest struct {
	EnvironmentState string                `json:"environment_state"`
	ActionSpace      []function.Definition `json:"action_space"`
}

// ReportRequest is sent after a function ran.
type ReportRequest struct {
	FunctionResult   FunctionReport        `json:"function_result"`
	EnvironmentState string                `json:"environment_state"`
	ActionSpace      []function.Definition `json:"action_space"`
}

// FunctionReport is a function.Result without its info payload, which
// stays local.
type FunctionReport struct {
	ActionID        string          `json:"action_id"`
	ActionStatus    function.Status `json:"action_status"`
	FeedbackMessage string          `json:"feedback_message"`
}

// ReportOf strips r for the wire. A nil r yields a zero report.
func ReportOf(r *function.Result) FunctionReport {
	if r == nil {
		return FunctionReport{}
	}
	return FunctionReport{
		ActionID:        r.ActionID,
		ActionStatus:    r.Status,
		FeedbackMessage: r.FeedbackMessage,
	}
}

// ActionRequest is the payload of NextAction.
type ActionRequest struct {
	// Location is the worker id.
	Location    string                `json:"location"`
	Environment map[string]any        `json:"environment"`
	Functions   []function.Definition `json:"functions"`
	// ActionResult is the outcome of the previous action, if any.
	ActionResult *FunctionReport `json:"action_result,omitempty"`
}
