//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
)

// Instruments are resolved on every call so a Meter swapped in by Start
// takes effect immediately. The SDK caches instruments by name.
func add(ctx context.Context, name, description string, attrs ...attribute.KeyValue) {
	counter, err := Meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFunctionExecution counts one function execution by outcome.
func RecordFunctionExecution(ctx context.Context, function, status string) {
	add(ctx, itelemetry.MetricFunctionExecutions, "Function executions by status.",
		attribute.String(itelemetry.KeyFunctionName, function),
		attribute.String(itelemetry.KeyActionStatus, status),
	)
}

// RecordPlannerRequest counts one planner call. outcome is "ok" or the
// error kind.
func RecordPlannerRequest(ctx context.Context, op, outcome string) {
	add(ctx, itelemetry.MetricPlannerRequests, "Remote planner calls by outcome.",
		attribute.String(itelemetry.KeyPlannerOp, op),
		attribute.String(itelemetry.KeyOutcome, outcome),
	)
}

// RecordStepFailure counts a step the planner reported as failed.
func RecordStepFailure(ctx context.Context, owner string) {
	add(ctx, itelemetry.MetricStepFailures, "Planner step failures.",
		attribute.String(itelemetry.KeyOwner, owner),
	)
}
