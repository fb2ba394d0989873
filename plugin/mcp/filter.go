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
	"regexp"
)

// ToolInfo is the part of an MCP tool a Filter sees.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Filter selects which server tools become functions.
type Filter interface {
	Filter(ctx context.Context, tools []ToolInfo) []ToolInfo
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(ctx context.Context, tools []ToolInfo) []ToolInfo

// Filter implements Filter.
func (f FilterFunc) Filter(ctx context.Context, tools []ToolInfo) []ToolInfo {
	return f(ctx, tools)
}

// NewIncludeFilter keeps only the named tools.
func NewIncludeFilter(names ...string) Filter {
	return nameFilter(names, true)
}

// NewExcludeFilter drops the named tools.
func NewExcludeFilter(names ...string) Filter {
	return nameFilter(names, false)
}

func nameFilter(names []string, include bool) Filter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return FilterFunc(func(_ context.Context, tools []ToolInfo) []ToolInfo {
		if len(set) == 0 {
			return tools
		}
		var out []ToolInfo
		for _, t := range tools {
			if _, ok := set[t.Name]; ok == include {
				out = append(out, t)
			}
		}
		return out
	})
}

// NewPatternFilter keeps tools whose name or description matches any of the
// patterns. Invalid patterns never match.
func NewPatternFilter(patterns ...string) Filter {
	var res []*regexp.Regexp
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			res = append(res, re)
		}
	}
	return FilterFunc(func(_ context.Context, tools []ToolInfo) []ToolInfo {
		if len(patterns) == 0 {
			return tools
		}
		var out []ToolInfo
		for _, t := range tools {
			for _, re := range res {
				if re.MatchString(t.Name) || re.MatchString(t.Description) {
					out = append(out, t)
					break
				}
			}
		}
		return out
	})
}

// Chain applies filters in order.
func Chain(filters ...Filter) Filter {
	return FilterFunc(func(ctx context.Context, tools []ToolInfo) []ToolInfo {
		for _, f := range filters {
			tools = f.Filter(ctx, tools)
		}
		return tools
	})
}
