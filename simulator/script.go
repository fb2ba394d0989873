//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package simulator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-game-go/planner"
)

// Script is what the simulator answers, in order. Field names follow the wire
// format, so a script reads like the responses it produces:
//
//	api_key: secret
//	directives:
//	  - response_type: start_task
//	    task: check the weather
//	  - response_type: call_function
//	    function: {fn_id: c1, fn_name: get_weather, fn_arguments: {city: Paris}}
//	  - response_type: finish_task
//	    result: done
//	actions:
//	  - action_type: call_function
//	    action_args: {fn_id: a1, fn_name: get_weather, args: {city: Paris}}
//	  - action_type: wait
//	faults:
//	  - op: next_task
//	    status: 503
//	    times: 1
type Script struct {
	// APIKey, when set, is required on every request.
	APIKey string `json:"api_key,omitempty"`
	// Directives answer next_task, start_task and report_result. When they
	// run out the simulator answers step_failure.
	Directives []planner.Directive `json:"directives,omitempty"`
	// Actions answer next_action. When they run out the simulator answers
	// wait.
	Actions []planner.Action `json:"actions,omitempty"`
	// Faults make the first calls of an operation fail.
	Faults []Fault `json:"faults,omitempty"`
}

// Fault fails the next Times calls of Op with Status.
type Fault struct {
	Op     string `json:"op"`
	Status int    `json:"status"`
	Times  int    `json:"times"`
}

// ParseScript reads a YAML (or JSON) script.
func ParseScript(r io.Reader) (Script, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	var s Script
	if doc == nil {
		return s, nil
	}
	// Round trip through JSON so the planner types decode with their wire
	// tags.
	b, err := json.Marshal(doc)
	if err != nil {
		return Script{}, fmt.Errorf("encode script: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	for i, f := range s.Faults {
		if f.Status < 400 || f.Status > 599 {
			return Script{}, fmt.Errorf("fault %d: status %d is not an http error", i, f.Status)
		}
		if !knownOps[f.Op] {
			return Script{}, fmt.Errorf("fault %d: unknown op %q", i, f.Op)
		}
	}
	return s, nil
}

// LoadScript reads a script file.
func LoadScript(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, err
	}
	defer f.Close()
	return ParseScript(f)
}
