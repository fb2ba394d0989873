//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package trace exposes the tracer used around planner calls, driver steps
// and function executions. It is a no-op until Start installs an OTLP
// exporter.
package trace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
)

// Tracer is the tracer instrumented code starts spans with.
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer("")

// Start installs a batching OTLP exporter and points Tracer at it.
//
// OTEL_EXPORTER_OTLP_TRACES_ENDPOINT and OTEL_EXPORTER_OTLP_ENDPOINT are
// honored when WithEndpoint is not given.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	o := &options{
		serviceName:      itelemetry.ServiceName,
		serviceVersion:   itelemetry.ServiceVersion,
		serviceNamespace: itelemetry.ServiceNamespace,
		protocol:         itelemetry.ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = tracesEndpoint(o.protocol)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(o.serviceNamespace),
			semconv.ServiceName(o.serviceName),
			semconv.ServiceVersion(o.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	Tracer = otel.Tracer(itelemetry.InstrumentName)
	return func() error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown TracerProvider: %w", err)
		}
		return nil
	}, nil
}

func newExporter(ctx context.Context, o *options) (sdktrace.SpanExporter, error) {
	if o.protocol == itelemetry.ProtocolHTTP {
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(o.endpoint),
			otlptracehttp.WithInsecure(),
			otlptracehttp.WithHeaders(o.headers),
		}
		if o.endpointURL != "" {
			host, path, err := splitEndpointURL(o.endpointURL)
			if err != nil {
				return nil, err
			}
			httpOpts = append(httpOpts,
				otlptracehttp.WithEndpoint(host),
				otlptracehttp.WithURLPath(path),
			)
		}
		return otlptracehttp.New(ctx, httpOpts...)
	}

	conn, err := itelemetry.NewGRPCConn(o.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize traces connection: %w", err)
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(conn),
		otlptracegrpc.WithHeaders(o.headers),
	)
}

func tracesEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == itelemetry.ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

// splitEndpointURL turns "http://collector:3000/api/otel" into
// "collector:3000" and "/api/otel". A missing scheme means http.
func splitEndpointURL(raw string) (host, path string, err error) {
	withScheme := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		withScheme = "http://" + raw
	}
	u, err := url.Parse(withScheme)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("no host found in URL %q", raw)
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return u.Host, path, nil
}
