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
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	mcp "trpc.group/trpc-go/trpc-mcp-go"

	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/log"
)

// connector is the part of an MCP client a session uses.
type connector interface {
	Initialize(ctx context.Context, req *mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req *mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// reconnectPatterns are error texts after which a call is retried once on a
// fresh connection.
var reconnectPatterns = []string{
	"session_expired:",
	"transport is closed",
	"not initialized",
	"connection refused",
	"connection reset",
	"EOF",
	"broken pipe",
	"session not found",
}

// session owns one MCP client connection.
type session struct {
	cfg  ConnectionConfig
	opts []mcp.ClientOption
	dial func(ConnectionConfig, []mcp.ClientOption) (connector, error)

	mu     sync.Mutex
	client connector
}

func newSession(cfg ConnectionConfig, o *options) *session {
	dial := o.dial
	if dial == nil {
		dial = dialClient
	}
	return &session{cfg: cfg, opts: o.mcpOptions, dial: dial}
}

func dialClient(cfg ConnectionConfig, opts []mcp.ClientOption) (connector, error) {
	t, err := validateTransport(cfg.Transport)
	if err != nil {
		return nil, err
	}
	if t == transportStdio {
		return mcp.NewStdioClient(mcp.StdioTransportConfig{
			ServerParams: mcp.StdioServerParameters{
				Command: cfg.Command,
				Args:    cfg.Args,
			},
			Timeout: cfg.Timeout,
		}, cfg.ClientInfo)
	}
	if len(cfg.Headers) > 0 {
		h := http.Header{}
		for k, v := range cfg.Headers {
			h.Set(k, v)
		}
		opts = append([]mcp.ClientOption{mcp.WithHTTPHeaders(h)}, opts...)
	}
	if t == transportSSE {
		return mcp.NewSSEClient(cfg.ServerURL, cfg.ClientInfo, opts...)
	}
	return mcp.NewClient(cfg.ServerURL, cfg.ClientInfo, opts...)
}

func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			return context.WithTimeout(ctx, s.cfg.Timeout)
		}
	}
	return ctx, func() {}
}

// connected returns the live client, dialing and initializing one if needed.
func (s *session) connected(ctx context.Context) (connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	log.Debugf("mcp: connecting over %s", s.cfg.Transport)
	c, err := s.dial(s.cfg, s.opts)
	if err != nil {
		return nil, errs.Transport("mcp.connect", err)
	}
	initCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := c.Initialize(initCtx, &mcp.InitializeRequest{})
	if err != nil {
		if cerr := c.Close(); cerr != nil {
			log.Warnf("mcp: close after failed initialize: %v", cerr)
		}
		return nil, errs.Transport("mcp.initialize", err)
	}
	log.Debugf("mcp: session initialized with %s %s", resp.ServerInfo.Name, resp.ServerInfo.Version)
	s.client = c
	return c, nil
}

// drop forgets c if it is still the current client.
func (s *session) drop(c connector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != c {
		return
	}
	s.client = nil
	if err := c.Close(); err != nil {
		log.Debugf("mcp: close stale client: %v", err)
	}
}

// do runs fn on a connected client, reconnecting once when the failure looks
// like a lost session.
func (s *session) do(ctx context.Context, fn func(context.Context, connector) error) error {
	for attempt := 0; ; attempt++ {
		c, err := s.connected(ctx)
		if err != nil {
			return err
		}
		callCtx, cancel := s.withTimeout(ctx)
		err = fn(callCtx, c)
		cancel()
		if err == nil || attempt > 0 || !shouldReconnect(err) || ctx.Err() != nil {
			return err
		}
		log.Infof("mcp: reconnecting after %v", err)
		s.drop(c)
	}
}

func shouldReconnect(err error) bool {
	msg := err.Error()
	for _, p := range reconnectPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (s *session) listTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	err := s.do(ctx, func(ctx context.Context, c connector) error {
		resp, err := c.ListTools(ctx, &mcp.ListToolsRequest{})
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}
		tools = resp.Tools
		return nil
	})
	return tools, err
}

func (s *session) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	var result *mcp.CallToolResult
	err := s.do(ctx, func(ctx context.Context, c connector) error {
		req := &mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		resp, err := c.CallTool(ctx, req)
		if err != nil {
			return fmt.Errorf("call tool %s: %w", name, err)
		}
		result = resp
		return nil
	})
	return result, err
}

func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
