//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package mcp

import (
	"time"

	mcp "trpc.group/trpc-go/trpc-mcp-go"

	"trpc.group/trpc-go/trpc-game-go/errs"
)

type transport string

const (
	transportStdio      transport = "stdio"
	transportSSE        transport = "sse"
	transportStreamable transport = "streamable"
)

var defaultClientInfo = mcp.Implementation{
	Name:    "trpc-game-go",
	Version: "1.0.0",
}

// ConnectionConfig describes how to reach an MCP server.
type ConnectionConfig struct {
	// Transport is one of "stdio", "sse" or "streamable".
	Transport string `json:"transport" yaml:"transport"`

	// Streamable/SSE configuration.
	ServerURL string            `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// STDIO configuration.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Timeout bounds each MCP request that has no deadline of its own.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	ClientInfo mcp.Implementation `json:"client_info,omitempty" yaml:"-"`
}

// Option configures a Set.
type Option func(*options)

type options struct {
	filter     Filter
	prefix     string
	mcpOptions []mcp.ClientOption
	dial       func(ConnectionConfig, []mcp.ClientOption) (connector, error)
}

// WithFilter keeps only the tools accepted by f.
func WithFilter(f Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// WithNamePrefix prefixes every function name, e.g. "fs_" for a
// filesystem server, so that tools from several servers can share a worker.
func WithNamePrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithMCPOptions passes options to the underlying SSE or streamable client.
func WithMCPOptions(opts ...mcp.ClientOption) Option {
	return func(o *options) {
		o.mcpOptions = append(o.mcpOptions, opts...)
	}
}

func validateTransport(t string) (transport, error) {
	switch t {
	case "stdio":
		return transportStdio, nil
	case "sse":
		return transportSSE, nil
	case "streamable", "streamable_http":
		return transportStreamable, nil
	default:
		return "", errs.Configuration("mcp.connect",
			"unsupported transport %q, supported: stdio, sse, streamable", t)
	}
}

func (c ConnectionConfig) validate() error {
	t, err := validateTransport(c.Transport)
	if err != nil {
		return err
	}
	if t == transportStdio && c.Command == "" {
		return errs.Configuration("mcp.connect", "stdio transport requires a command")
	}
	if t != transportStdio && c.ServerURL == "" {
		return errs.Configuration("mcp.connect", "%s transport requires a server url", t)
	}
	return nil
}
