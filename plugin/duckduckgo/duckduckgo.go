//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package duckduckgo provides a web_search function backed by the
// DuckDuckGo Instant Answer API. It suits encyclopedic lookups, not live
// data.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/plugin/duckduckgo/internal/client"
)

const (
	// FunctionName is the name of the search function.
	FunctionName = "web_search"

	maxResults       = 5
	maxTitleLength   = 50
	defaultBaseURL   = "https://api.duckduckgo.com"
	defaultUserAgent = "trpc-game-go-duckduckgo/1.0"
	defaultTimeout   = 30 * time.Second
)

// Option configures the plugin.
type Option func(*config)

type config struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// WithBaseURL sets the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *config) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=The search query"`
}

type resultItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type searcher struct {
	client *client.Client
}

// NewFunction returns the web_search function.
func NewFunction(opts ...Option) (*function.Function, error) {
	cfg := &config{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	s := &searcher{client: client.New(cfg.baseURL, cfg.userAgent, cfg.httpClient)}
	return function.Typed(FunctionName,
		"Search DuckDuckGo for factual, encyclopedic information: entities, "+
			"definitions, calculations and historical facts. Not suitable for "+
			"real-time data such as weather, prices or news.",
		s.search,
		function.WithHint("Use short keyword queries, e.g. 'Eiffel Tower'."),
	)
}

func (s *searcher) search(ctx context.Context, in searchArgs) (function.Status, string, map[string]any, error) {
	if strings.TrimSpace(in.Query) == "" {
		return function.StatusFailed, "Empty search query provided", nil, nil
	}
	resp, err := s.client.Search(ctx, in.Query)
	if err != nil {
		return "", "", nil, err
	}

	var parts []string
	if resp.Answer != "" {
		parts = append(parts, "Answer: "+resp.Answer)
	}
	if resp.AbstractText != "" {
		parts = append(parts, "Abstract: "+resp.AbstractText)
		if resp.AbstractSource != "" {
			parts = append(parts, "Source: "+resp.AbstractSource)
		}
	}
	if resp.Definition != "" {
		parts = append(parts, "Definition: "+resp.Definition)
		if resp.DefinitionSource != "" {
			parts = append(parts, "Definition Source: "+resp.DefinitionSource)
		}
	}

	results := []resultItem{}
	for _, topic := range resp.RelatedTopics {
		if len(results) == maxResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, resultItem{
			Title:       titleOf(topic.Text),
			URL:         topic.FirstURL,
			Description: topic.Text,
		})
	}
	if len(results) == 0 && len(parts) > 0 {
		results = append(results, resultItem{
			Title:       "DuckDuckGo search: " + in.Query,
			URL:         "https://duckduckgo.com/?q=" + url.QueryEscape(in.Query),
			Description: strings.Join(parts, " | "),
		})
	}

	summary := fmt.Sprintf("Found %d results for query '%s'", len(results), in.Query)
	if len(parts) > 0 {
		summary = strings.Join(parts, " | ")
	}
	return function.StatusDone, summary, map[string]any{
		"query":   in.Query,
		"results": results,
	}, nil
}

// titleOf takes the part of a topic before " - ", shortened.
func titleOf(text string) string {
	title, _, _ := strings.Cut(text, " - ")
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(text)
	}
	if len(title) > maxTitleLength {
		return title[:maxTitleLength-3] + "..."
	}
	return title
}
