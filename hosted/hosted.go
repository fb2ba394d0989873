//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package hosted is a client for the hosted variant of the platform, where
// the agent runs on the platform itself. Callers describe the agent once and
// then simulate it, make it react to an event, or deploy it.
//
// Custom functions are sent as their planner definitions; the platform
// never calls back into local executables.
package hosted

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/planner"
)

// DefaultBaseURL is the hosted API root.
const DefaultBaseURL = "https://game-api.virtuals.io/api"

// Spec describes a hosted agent.
type Spec struct {
	Goal        string
	Description string
	WorldInfo   string
	// Functions names platform functions, as listed by Functions.
	Functions []string
	// CustomFunctions are declared to the platform by definition only.
	CustomFunctions []*function.Function
}

// Heartbeats are the deployed agent's scheduling intervals, in minutes.
type Heartbeats struct {
	Main     int `json:"mainHeartbeat"`
	Reaction int `json:"reactionHeartbeat"`
}

// Reaction asks the agent to react once on a platform. Exactly one of Event
// and Task is set.
type Reaction struct {
	SessionID string
	Platform  string
	Event     string
	Task      string
	TweetID   string
}

// Client calls the hosted API. It is safe for concurrent use.
type Client struct {
	c *planner.Client
}

// New builds a client authenticating with apiKey. opts may override the base
// URL, retries and HTTP client.
func New(apiKey string, opts ...planner.Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errs.Configuration("hosted.new", "api key cannot be empty")
	}
	all := append([]planner.Option{planner.WithBaseURL(DefaultBaseURL), planner.WithAPIKey(apiKey)}, opts...)
	c, err := planner.NewClient(all...)
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

// Functions returns the platform functions by name, with their descriptions.
func (c *Client) Functions(ctx context.Context) (map[string]string, error) {
	var defs []function.Definition
	if err := c.c.Do(ctx, http.MethodGet, "hosted.functions", "/functions", nil, &defs); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(defs))
	for _, d := range defs {
		out[d.Name] = d.Description
	}
	return out, nil
}

// Simulate runs one simulated turn of the agent in a session.
func (c *Client) Simulate(ctx context.Context, sessionID string, spec Spec) (map[string]any, error) {
	if sessionID == "" {
		return nil, errs.Validation("hosted.simulate", "session id is required")
	}
	body := spec.payload()
	body["sessionId"] = sessionID
	var out map[string]any
	err := c.c.Do(ctx, http.MethodPost, "hosted.simulate", "/simulate", wrap(body), &out)
	return out, err
}

// React makes the agent respond to one event or task on a platform.
func (c *Client) React(ctx context.Context, r Reaction, spec Spec) (map[string]any, error) {
	const op = "hosted.react"
	switch {
	case r.SessionID == "":
		return nil, errs.Validation(op, "session id is required")
	case r.Platform == "":
		return nil, errs.Validation(op, "platform is required")
	case (r.Event == "") == (r.Task == ""):
		return nil, errs.Validation(op, "exactly one of event or task is required")
	}
	body := spec.payload()
	body["sessionId"] = r.SessionID
	if r.Event != "" {
		body["event"] = r.Event
	}
	if r.Task != "" {
		body["task"] = r.Task
	}
	if r.TweetID != "" {
		body["tweetId"] = r.TweetID
	}
	var out map[string]any
	err := c.c.Do(ctx, http.MethodPost, op, "/react/"+url.PathEscape(r.Platform), wrap(body), &out)
	return out, err
}

// Deploy publishes the agent with the given heartbeats.
func (c *Client) Deploy(ctx context.Context, spec Spec, hb Heartbeats) (map[string]any, error) {
	if hb.Main < 0 || hb.Reaction < 0 {
		return nil, errs.Validation("hosted.deploy", "heartbeats cannot be negative")
	}
	body := spec.payload()
	body["gameState"] = hb
	var out map[string]any
	err := c.c.Do(ctx, http.MethodPost, "hosted.deploy", "/deploy", wrap(body), &out)
	return out, err
}

func (s Spec) payload() map[string]any {
	custom := make([]function.Definition, 0, len(s.CustomFunctions))
	for _, f := range s.CustomFunctions {
		custom = append(custom, f.Definition())
	}
	fns := s.Functions
	if fns == nil {
		fns = []string{}
	}
	return map[string]any{
		"goal":            s.Goal,
		"description":     s.Description,
		"worldInfo":       s.WorldInfo,
		"functions":       fns,
		"customFunctions": custom,
	}
}

func wrap(body any) map[string]any {
	return map[string]any{"data": body}
}
