//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-game-go/telemetry/trace"
)

// wrappedValueKey marks an argument the planner sent as {"value": X}.
const wrappedValueKey = "value"

// Execute runs the function for one planner call. It never panics and never
// returns an error: any failure is a FAILED Result carrying the message.
func (f *Function) Execute(ctx context.Context, actionID string, raw map[string]any) *Result {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanFunctionExecute)
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyFunctionName, f.name),
		attribute.String(itelemetry.KeyActionID, actionID),
	)

	result := f.execute(ctx, actionID, raw)

	span.SetAttributes(attribute.String(itelemetry.KeyActionStatus, string(result.Status)))
	if result.Status == StatusFailed {
		span.SetStatus(codes.Error, result.FeedbackMessage)
	}
	metric.RecordFunctionExecution(ctx, f.name, string(result.Status))
	return result
}

func (f *Function) execute(ctx context.Context, actionID string, raw map[string]any) (result *Result) {
	args, err := f.processArgs(raw)
	if err != nil {
		return Failed(actionID, "Error executing function: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("function %s panicked: %v", f.name, r)
			result = Failed(actionID, "Error executing function: panic: %v", r)
		}
	}()

	status, feedback, info, err := f.exec(ctx, args)
	if err != nil {
		log.Debugf("function %s failed: %v", f.name, err)
		return Failed(actionID, "Error executing function: %v", err)
	}
	if !status.Valid() {
		return Failed(actionID, "Error executing function: invalid status %q", status)
	}
	if info == nil {
		info = map[string]any{}
	}
	return &Result{
		ActionID:        actionID,
		Status:          status,
		FeedbackMessage: feedback,
		Info:            info,
	}
}

// processArgs keeps the declared arguments present in raw, unwrapping one
// level of {"value": X}. A missing required argument is an error.
func (f *Function) processArgs(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(f.args))
	for _, a := range f.args {
		v, ok := raw[a.Name]
		if !ok {
			if !a.Optional {
				return nil, fmt.Errorf("missing required argument %s", a.Name)
			}
			continue
		}
		out[a.Name] = Unwrap(v)
	}
	return out, nil
}

// Unwrap returns X for {"value": X} and v otherwise.
func Unwrap(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m[wrappedValueKey]; ok {
			return inner
		}
	}
	return v
}
