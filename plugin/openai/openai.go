//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides a generate_text function backed by an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-game-go/function"
)

const (
	// FunctionName is the default function name.
	FunctionName = "generate_text"
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "gpt-4o-mini"
	// APIKeyEnv is read when WithAPIKey is not given.
	APIKeyEnv = "OPENAI_API_KEY"
)

// Option configures the plugin.
type Option func(*options)

type options struct {
	name          string
	model         string
	apiKey        string
	baseURL       string
	systemPrompt  string
	httpClient    *http.Client
	openAIOptions []openaiopt.RequestOption
}

// WithName overrides the function name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithSystemPrompt sets the system message sent before every prompt.
func WithSystemPrompt(p string) Option {
	return func(o *options) {
		o.systemPrompt = p
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithOpenAIOptions appends raw client options.
func WithOpenAIOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.openAIOptions = append(o.openAIOptions, opts...)
	}
}

type generateArgs struct {
	Prompt string `json:"prompt" jsonschema:"description=What to write about"`
	Style  string `json:"style,omitempty" jsonschema:"description=Optional tone or format instructions"`
}

type generator struct {
	client       openai.Client
	model        string
	systemPrompt string
}

// NewFunction returns the text generation function.
func NewFunction(opts ...Option) (*function.Function, error) {
	o := options{name: FunctionName, model: DefaultModel, apiKey: os.Getenv(APIKeyEnv)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	clientOpts := []openaiopt.RequestOption{openaiopt.WithAPIKey(o.apiKey)}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, o.openAIOptions...)

	g := &generator{
		client:       openai.NewClient(clientOpts...),
		model:        o.model,
		systemPrompt: o.systemPrompt,
	}
	return function.Typed(o.name, "Generate text with a language model", g.generate)
}

func (g *generator) generate(ctx context.Context, in generateArgs) (function.Status, string, map[string]any, error) {
	if in.Prompt == "" {
		return function.StatusFailed, "No prompt provided", nil, nil
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if g.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(g.systemPrompt))
	}
	prompt := in.Prompt
	if in.Style != "" {
		prompt += "\n\nStyle: " + in.Style
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
	})
	if err != nil {
		return "", "", nil, err
	}
	if len(resp.Choices) == 0 {
		return function.StatusFailed, "The model returned no choices", nil, nil
	}
	text := resp.Choices[0].Message.Content
	return function.StatusDone, text, map[string]any{
		"text":          text,
		"model":         resp.Model,
		"finish_reason": resp.Choices[0].FinishReason,
		"total_tokens":  resp.Usage.TotalTokens,
	}, nil
}
