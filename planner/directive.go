//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package planner

import (
	"encoding/json"
	"slices"

	"trpc.group/trpc-go/trpc-game-go/errs"
)

// DirectiveType tags a Directive.
type DirectiveType string

// Directive types returned by agent-level calls.
const (
	DirectiveStartTask    DirectiveType = "start_task"
	DirectiveCallFunction DirectiveType = "call_function"
	DirectiveFinishTask   DirectiveType = "finish_task"
	DirectiveStepFailure  DirectiveType = "step_failure"
)

// FunctionCall names a function and its raw arguments.
type FunctionCall struct {
	ID        string         `json:"fn_id"`
	Name      string         `json:"fn_name"`
	Arguments map[string]any `json:"fn_arguments"`
}

// Directive is the planner's decision for an agent.
// Task is set for start_task, Function for call_function and Result for
// finish_task.
type Directive struct {
	Type      DirectiveType `json:"response_type"`
	Reasoning string        `json:"reasoning,omitempty"`
	Task      string        `json:"task,omitempty"`
	Function  *FunctionCall `json:"function,omitempty"`
	Result    Text          `json:"result,omitempty"`
}

// check enforces the tag set allowed for the call and the fields each tag
// requires.
func (d *Directive) check(op string, allowed ...DirectiveType) error {
	if !slices.Contains(allowed, d.Type) {
		return &errs.Error{Kind: errs.KindAPI, Op: op,
			Message: "unexpected response type " + string(d.Type)}
	}
	if d.Type == DirectiveCallFunction && (d.Function == nil || d.Function.Name == "") {
		return &errs.Error{Kind: errs.KindAPI, Op: op,
			Message: "call_function without a function name"}
	}
	return nil
}

// ActionType is the instruction the planner gives a standalone worker.
type ActionType string

// Worker action types.
const (
	ActionCallFunction     ActionType = "call_function"
	ActionContinueFunction ActionType = "continue_function"
	ActionWait             ActionType = "wait"
	ActionGoTo             ActionType = "go_to"
)

// ActionArgs carries the function call of a call_function action.
type ActionArgs struct {
	FnID   string         `json:"fn_id"`
	FnName string         `json:"fn_name"`
	Args   map[string]any `json:"args"`
	// Thought is the planner's reasoning, when it shares one.
	Thought string `json:"thought,omitempty"`
}

// Action is the planner's decision for a worker.
type Action struct {
	Type       ActionType  `json:"action_type"`
	Args       ActionArgs  `json:"action_args"`
	AgentState *AgentState `json:"agent_state,omitempty"`
}

// Call returns the function call carried by a call_function action.
func (a *Action) Call() FunctionCall {
	return FunctionCall{ID: a.Args.FnID, Name: a.Args.FnName, Arguments: a.Args.Args}
}

// AgentState is the planner's view of its own progress, returned for
// logging only.
type AgentState struct {
	HLP         *HighLevelPlan `json:"hlp,omitempty"`
	CurrentTask *CurrentTask   `json:"current_task,omitempty"`
}

// HighLevelPlan is the planner's long-range plan.
type HighLevelPlan struct {
	PlanID                  string           `json:"plan_id"`
	ObservationReflection   string           `json:"observation_reflection"`
	Plan                    []string         `json:"plan"`
	PlanReasoning           string           `json:"plan_reasoning"`
	CurrentStateOfExecution string           `json:"current_state_of_execution"`
	ChangeIndicator         string           `json:"change_indicator,omitempty"`
	Log                     []map[string]any `json:"log,omitempty"`
}

// CurrentTask is the task the planner is working on.
type CurrentTask struct {
	Task          string        `json:"task"`
	TaskReasoning string        `json:"task_reasoning"`
	LocationID    string        `json:"location_id,omitempty"`
	LLP           *LowLevelPlan `json:"llp,omitempty"`
}

// LowLevelPlan is the plan for the current task.
type LowLevelPlan struct {
	PlanID            string   `json:"plan_id"`
	PlanReasoning     string   `json:"plan_reasoning"`
	SituationAnalysis string   `json:"situation_analysis"`
	Plan              []string `json:"plan"`
	ChangeIndicator   string   `json:"change_indicator,omitempty"`
	Reflection        string   `json:"reflection,omitempty"`
}

// Text decodes a JSON string as is and any other JSON value as its
// compact encoding.
type Text string

// UnmarshalJSON implements json.Unmarshaler for Text.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*t = ""
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*t = Text(b)
	return nil
}
