//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the names shared by the trace and metric packages
// and the instrumented code.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "trpc-game-go"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-game"
	InstrumentName   = "trpc.game.go"
)

// Span names.
const (
	SpanFunctionExecute = "function.execute"
	SpanWorkerStep      = "worker.step"
	SpanAgentStep       = "agent.step"
	SpanPrefixPlanner   = "planner."
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// Attribute keys.
const (
	KeyFunctionName = "trpc.go.game.function_name"
	KeyActionID     = "trpc.go.game.action_id"
	KeyActionStatus = "trpc.go.game.action_status"
	KeyAgentID      = "trpc.go.game.agent_id"
	KeySessionID    = "trpc.go.game.session_id"
	KeyWorkerID     = "trpc.go.game.worker_id"
	KeyDirective    = "trpc.go.game.directive"
	KeyPhase        = "trpc.go.game.phase"
	KeyPlannerOp    = "trpc.go.game.planner_op"
	KeyOutcome      = "trpc.go.game.outcome"
	KeyOwner        = "trpc.go.game.owner"
	KeyHTTPStatus   = "http.response.status_code"
)

// Metric instrument names.
const (
	MetricFunctionExecutions = "game.function.executions"
	MetricPlannerRequests    = "game.planner.requests"
	MetricStepFailures       = "game.step.failures"
)

// PlannerSpanName returns the span name of a planner operation.
func PlannerSpanName(op string) string {
	return SpanPrefixPlanner + op
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Plaintext transport. Put a TLS terminating collector in front in production.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
