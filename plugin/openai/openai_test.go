//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-game-go/function"
)

func fakeCompletions(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0]["role"])
			assert.Equal(t, "write a haiku\n\nStyle: calm", body.Messages[1]["content"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Quiet pond"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFunction(t *testing.T, url string) *function.Function {
	t.Helper()
	fn, err := NewFunction(
		WithAPIKey("sk-test"),
		WithBaseURL(url),
		WithModel("test-model"),
		WithSystemPrompt("You are a poet."),
		WithHTTPClient(&http.Client{}),
		WithOpenAIOptions(openaiopt.WithMaxRetries(0)),
	)
	require.NoError(t, err)
	return fn
}

func TestGenerate(t *testing.T) {
	fn := newFunction(t, fakeCompletions(t, http.StatusOK).URL)
	def := fn.Definition()
	assert.Equal(t, FunctionName, def.Name)
	require.Len(t, def.Args, 2)
	assert.True(t, def.Args[1].Optional)

	res := fn.Execute(context.Background(), "g1", map[string]any{"prompt": "write a haiku", "style": "calm"})
	require.Equal(t, function.StatusDone, res.Status, res.FeedbackMessage)
	assert.Equal(t, "Quiet pond", res.FeedbackMessage)
	assert.Equal(t, int64(5), res.Info["total_tokens"])
}

func TestGenerateUpstreamError(t *testing.T) {
	fn := newFunction(t, fakeCompletions(t, http.StatusTooManyRequests).URL)
	res := fn.Execute(context.Background(), "g1", map[string]any{"prompt": "write a haiku", "style": "calm"})
	assert.Equal(t, function.StatusFailed, res.Status)
	assert.Contains(t, res.FeedbackMessage, "Error executing function")
}

func TestNewFunctionRequiresKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	_, err := NewFunction()
	assert.Error(t, err)

	fn, err := NewFunction(WithAPIKey("k"), WithName("write_post"))
	require.NoError(t, err)
	assert.Equal(t, "write_post", fn.Name())
	res := fn.Execute(context.Background(), "g1", map[string]any{"prompt": ""})
	assert.Equal(t, function.StatusFailed, res.Status)
}
