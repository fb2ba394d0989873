//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini provides a generate_text function backed by the Gemini
// API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"trpc.group/trpc-go/trpc-game-go/function"
)

const (
	// FunctionName is the default function name.
	FunctionName = "generate_text"
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "gemini-2.0-flash"
	// GoogleAPIKeyEnv is read when WithAPIKey is not given.
	GoogleAPIKeyEnv = "GOOGLE_API_KEY"
)

// Option configures the plugin.
type Option func(*options)

type options struct {
	name         string
	model        string
	systemPrompt string
	clientConfig genai.ClientConfig
}

// WithName overrides the function name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithModel sets the Gemini model.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.clientConfig.APIKey = key
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.clientConfig.HTTPOptions.BaseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.clientConfig.HTTPClient = c
	}
}

// WithSystemPrompt sets the system instruction.
func WithSystemPrompt(p string) Option {
	return func(o *options) {
		o.systemPrompt = p
	}
}

type generateArgs struct {
	Prompt string `json:"prompt" jsonschema:"description=What to write about"`
}

type generator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewFunction returns the text generation function.
func NewFunction(ctx context.Context, opts ...Option) (*function.Function, error) {
	o := options{name: FunctionName, model: DefaultModel}
	o.clientConfig.APIKey = os.Getenv(GoogleAPIKeyEnv)
	for _, opt := range opts {
		opt(&o)
	}
	if o.clientConfig.APIKey == "" {
		return nil, fmt.Errorf("gemini: %s is not provided", GoogleAPIKeyEnv)
	}
	o.clientConfig.Backend = genai.BackendGeminiAPI
	cfg := o.clientConfig
	client, err := genai.NewClient(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	g := &generator{client: client, model: o.model, config: &genai.GenerateContentConfig{}}
	if o.systemPrompt != "" {
		g.config.SystemInstruction = genai.NewContentFromText(o.systemPrompt, genai.RoleUser)
	}
	return function.Typed(o.name, "Generate text with Gemini", g.generate)
}

func (g *generator) generate(ctx context.Context, in generateArgs) (function.Status, string, map[string]any, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return function.StatusFailed, "No prompt provided", nil, nil
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(in.Prompt), g.config)
	if err != nil {
		return "", "", nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return function.StatusFailed, "The model returned no candidates", nil, nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	info := map[string]any{
		"text":          text,
		"model":         g.model,
		"finish_reason": string(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		info["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	return function.StatusDone, text, info, nil
}
