//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package mcp exposes the tools of a Model Context Protocol server as
// functions. Each server tool becomes one function whose arguments are read
// from the tool's input schema; calling the function calls the tool.
package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	mcp "trpc.group/trpc-go/trpc-mcp-go"

	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/log"
)

// Set is a live connection to one MCP server and the functions derived
// from its tools.
type Set struct {
	opts    options
	session *session

	mu        sync.RWMutex
	functions []*function.Function
}

// Connect dials the server, lists its tools and builds one function per
// tool that passes the filter.
func Connect(ctx context.Context, cfg ConnectionConfig, opts ...Option) (*Set, error) {
	if cfg.ClientInfo.Name == "" {
		cfg.ClientInfo = defaultClientInfo
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Set{}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.session = newSession(cfg, &s.opts)
	if err := s.Refresh(ctx); err != nil {
		if cerr := s.session.close(); cerr != nil {
			log.Warnf("mcp: close after failed refresh: %v", cerr)
		}
		return nil, err
	}
	return s, nil
}

// Functions returns the functions built by the last refresh.
func (s *Set) Functions() []*function.Function {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*function.Function(nil), s.functions...)
}

// Refresh lists the server tools again and rebuilds the functions.
func (s *Set) Refresh(ctx context.Context) error {
	tools, err := s.session.listTools(ctx)
	if err != nil {
		return err
	}
	if s.opts.filter != nil {
		tools = s.filter(ctx, tools)
	}
	fns := make([]*function.Function, 0, len(tools))
	for _, t := range tools {
		fn, err := s.newFunction(t)
		if err != nil {
			return err
		}
		fns = append(fns, fn)
	}
	s.mu.Lock()
	s.functions = fns
	s.mu.Unlock()
	log.Debugf("mcp: %d functions available", len(fns))
	return nil
}

// Close ends the MCP session.
func (s *Set) Close() error {
	return s.session.close()
}

func (s *Set) filter(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	infos := make([]ToolInfo, len(tools))
	for i, t := range tools {
		infos[i] = ToolInfo{Name: t.Name, Description: t.Description}
	}
	keep := make(map[string]struct{})
	for _, info := range s.opts.filter.Filter(ctx, infos) {
		keep[info.Name] = struct{}{}
	}
	var out []mcp.Tool
	for _, t := range tools {
		if _, ok := keep[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Set) newFunction(t mcp.Tool) (*function.Function, error) {
	name := t.Name
	return function.New(s.opts.prefix+name, t.Description,
		function.WithArgs(argumentsOf(t.InputSchema)...),
		function.WithExecutable(func(ctx context.Context, args map[string]any) (function.Status, string, map[string]any, error) {
			resp, err := s.session.callTool(ctx, name, args)
			if err != nil {
				return "", "", nil, err
			}
			text := textOf(resp.Content)
			info := map[string]any{"tool": name}
			if resp.IsError {
				return function.StatusFailed, text, info, nil
			}
			return function.StatusDone, text, info, nil
		}),
	)
}

// argumentsOf reads the top-level properties of a JSON schema. Properties
// not listed as required are optional. Order is by name.
func argumentsOf(schema any) []function.Argument {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var s struct {
		Properties map[string]struct {
			Type        any    `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	names := make([]string, 0, len(s.Properties))
	for n := range s.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	args := make([]function.Argument, 0, len(names))
	for _, n := range names {
		p := s.Properties[n]
		args = append(args, function.Argument{
			Name:        n,
			Description: p.Description,
			Type:        typeTags(p.Type),
			Optional:    !required[n],
		})
	}
	return args
}

func typeTags(v any) function.TypeTags {
	switch t := v.(type) {
	case string:
		return function.TypeTags{t}
	case []any:
		var tags function.TypeTags
		for _, e := range t {
			if s, ok := e.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

func textOf(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
