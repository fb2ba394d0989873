//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-game-go/config"
	"trpc.group/trpc-go/trpc-game-go/credential"
	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/log"
)

type recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakePlanner answers requests with the next scripted status and body.
type fakePlanner struct {
	statuses []int
	body     string
	attempts atomic.Int32
	requests []recorded
	server   *httptest.Server
}

func newFakePlanner(t *testing.T, body string, statuses ...int) *fakePlanner {
	t.Helper()
	f := &fakePlanner{statuses: statuses, body: body}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePlanner) serve(w http.ResponseWriter, r *http.Request) {
	n := int(f.attempts.Add(1)) - 1
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})

	status := http.StatusOK
	if n < len(f.statuses) {
		status = f.statuses[n]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(f.body))
		return
	}
	_, _ = w.Write([]byte(`{"error":{"message":"scripted failure"}}`))
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{
		WithBaseURL(baseURL),
		WithAPIKey("test-key"),
		WithRetry(3, time.Millisecond, 5*time.Millisecond),
		WithTimeout(2 * time.Second),
	}, opts...)
	c, err := NewClient(all...)
	require.NoError(t, err)
	return c
}

func TestRetryBoundary(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		attempts int32
		wantErr  error
	}{
		{"5xx twice then success", []int{500, 500, 200}, 3, nil},
		{"429 then success", []int{429, 200}, 2, nil},
		{"5xx exhausts attempts", []int{503, 503, 503, 503}, 3, errs.ErrTransport},
		{"401 is final", []int{401, 200}, 1, errs.ErrAuthentication},
		{"422 is final", []int{422, 200}, 1, errs.ErrValidation},
		{"400 is final", []int{400, 200}, 1, errs.ErrValidation},
		{"404 is final", []int{404, 200}, 1, errs.ErrAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePlanner(t, `{"data":{"id":"ag1"}}`, tt.statuses...)
			c := newTestClient(t, f.server.URL)

			id, err := c.CreateAgent(context.Background(), AgentSpec{Name: "n"})

			assert.Equal(t, tt.attempts, f.attempts.Load())
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "ag1", id)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotZero(t, errs.StatusCode(err))
			assert.Contains(t, err.Error(), "scripted failure")
		})
	}
}

func TestTransportFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.CreateAgent(context.Background(), AgentSpec{Name: "n"})
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.True(t, errs.IsRetryable(err))
}

func TestCanceledContextIsNotRetried(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"id":"ag1"}}`)
	c := newTestClient(t, f.server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CreateAgent(ctx, AgentSpec{Name: "n"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.attempts.Load())
}

func TestCreateAgentWire(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"id":"ag1"}}`)
	c := newTestClient(t, f.server.URL+"/", WithUserAgent("game-test"))

	id, err := c.CreateAgent(context.Background(), AgentSpec{Name: "n", Goal: "g", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "ag1", id)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/agents", req.Path)
	assert.Equal(t, "test-key", req.Header.Get(HeaderAPIKey))
	assert.Equal(t, "game-test", req.Header.Get("User-Agent"))
	assert.Equal(t, map[string]any{"data": map[string]any{"name": "n", "goal": "g", "description": "d"}}, req.Body)
}

func TestCreateWorkersAndSession(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"id":"map1","session_id":"s1"}}`)
	c := newTestClient(t, f.server.URL)
	ctx := context.Background()

	mapID, err := c.CreateWorkers(ctx, []Location{{ID: "w1", Name: "w1", Description: "weather"}})
	require.NoError(t, err)
	assert.Equal(t, "map1", mapID)

	sid, err := c.CreateSession(ctx, "ag 1", "stay informed")
	require.NoError(t, err)
	assert.Equal(t, "s1", sid)

	require.Len(t, f.requests, 2)
	assert.Equal(t, "/maps", f.requests[0].Path)
	assert.Equal(t, map[string]any{"data": map[string]any{"locations": []any{
		map[string]any{"id": "w1", "name": "w1", "description": "weather"},
	}}}, f.requests[0].Body)
	assert.Equal(t, "/agent/ag 1/session", f.requests[1].Path)
	assert.Equal(t, map[string]any{"goal": "stay informed"}, f.requests[1].Body)
}

func TestMissingIDIsAPIError(t *testing.T) {
	f := newFakePlanner(t, `{"data":{}}`)
	c := newTestClient(t, f.server.URL)
	_, err := c.CreateAgent(context.Background(), AgentSpec{})
	assert.ErrorIs(t, err, errs.ErrAPI)

	g := newFakePlanner(t, `{"nodata":true}`)
	c = newTestClient(t, g.server.URL)
	_, err = c.CreateAgent(context.Background(), AgentSpec{})
	assert.ErrorIs(t, err, errs.ErrAPI)
}

func actionSpace(t *testing.T) []function.Definition {
	t.Helper()
	fn, err := function.New("get_weather", "weather",
		function.WithArgs(function.Argument{Name: "city", Description: "city", Type: []string{"string"}}))
	require.NoError(t, err)
	return []function.Definition{fn.Definition()}
}

func TestNextTask(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"response_type":"start_task","reasoning":"r","task":"fetch weather"}}`)
	c := newTestClient(t, f.server.URL)

	d, err := c.NextTask(context.Background(), "s1", NextTaskRequest{GoalState: "{}", ActionSpace: actionSpace(t)})
	require.NoError(t, err)
	assert.Equal(t, &Directive{Type: DirectiveStartTask, Reasoning: "r", Task: "fetch weather"}, d)

	req := f.requests[0]
	assert.Equal(t, "/session/s1/step", req.Path)
	assert.Equal(t, "{}", req.Body["goal_state"])
	space := req.Body["action_space"].([]any)
	require.Len(t, space, 1)
	assert.Equal(t, "get_weather", space[0].(map[string]any)["fn_name"])
	assert.NotContains(t, space[0], "executable")
}

func TestDirectiveTagsAreChecked(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(c *Client) (*Directive, error)
		ok   bool
	}{
		{
			name: "call_function not allowed from next task",
			body: `{"data":{"response_type":"call_function","function":{"fn_id":"f1","fn_name":"x"}}}`,
			call: func(c *Client) (*Directive, error) {
				return c.NextTask(context.Background(), "s1", NextTaskRequest{})
			},
		},
		{
			name: "call_function without function",
			body: `{"data":{"response_type":"call_function"}}`,
			call: func(c *Client) (*Directive, error) {
				return c.StartTask(context.Background(), "s1", StartTaskRequest{})
			},
		},
		{
			name: "unknown tag",
			body: `{"data":{"response_type":"dance"}}`,
			call: func(c *Client) (*Directive, error) {
				return c.StartTask(context.Background(), "s1", StartTaskRequest{})
			},
		},
		{
			name: "step failure allowed",
			body: `{"data":{"response_type":"step_failure"}}`,
			call: func(c *Client) (*Directive, error) {
				return c.StartTask(context.Background(), "s1", StartTaskRequest{})
			},
			ok: true,
		},
		{
			name: "finish with structured result",
			body: `{"data":{"response_type":"finish_task","result":{"temp":21}}}`,
			call: func(c *Client) (*Directive, error) {
				return c.StartTask(context.Background(), "s1", StartTaskRequest{})
			},
			ok: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePlanner(t, tt.body)
			d, err := tt.call(newTestClient(t, f.server.URL))
			if tt.ok {
				require.NoError(t, err)
				require.NotNil(t, d)
				return
			}
			assert.ErrorIs(t, err, errs.ErrAPI)
		})
	}
}

func TestReportResultOmitsInfo(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"response_type":"finish_task","reasoning":"r","result":"done"}}`)
	c := newTestClient(t, f.server.URL)

	res := &function.Result{ActionID: "f1", Status: function.StatusDone, FeedbackMessage: "sunny",
		Info: map[string]any{"secret": "local only"}}
	d, err := c.ReportResult(context.Background(), "s1", ReportRequest{
		FunctionResult:   ReportOf(res),
		EnvironmentState: "env",
	})
	require.NoError(t, err)
	assert.Equal(t, DirectiveFinishTask, d.Type)
	assert.Equal(t, Text("done"), d.Result)

	req := f.requests[0]
	assert.Equal(t, "/session/s1/report", req.Path)
	assert.Equal(t, map[string]any{
		"action_id":        "f1",
		"action_status":    "done",
		"feedback_message": "sunny",
	}, req.Body["function_result"])
	assert.Equal(t, "env", req.Body["environment_state"])
}

func TestWorkerCalls(t *testing.T) {
	f := newFakePlanner(t, `{"data":{
		"submission_id":"sub1",
		"action_type":"call_function",
		"action_args":{"fn_id":"a1","fn_name":"get_weather","args":{"city":"Paris"}},
		"agent_state":{"current_task":{"task":"weather","task_reasoning":"asked"}}
	}}`)
	c := newTestClient(t, f.server.URL)
	ctx := context.Background()

	sub, err := c.SetTask(ctx, "ag1", "check weather")
	require.NoError(t, err)
	assert.Equal(t, "sub1", sub)

	report := ReportOf(function.Failed("a0", "nope"))
	a, err := c.NextAction(ctx, "ag1", sub, ActionRequest{
		Location:     "weather_worker",
		Environment:  map[string]any{"k": "v"},
		Functions:    actionSpace(t),
		ActionResult: &report,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCallFunction, a.Type)
	assert.Equal(t, FunctionCall{ID: "a1", Name: "get_weather", Arguments: map[string]any{"city": "Paris"}}, a.Call())
	require.NotNil(t, a.AgentState)
	assert.Equal(t, "weather", a.AgentState.CurrentTask.Task)

	require.Len(t, f.requests, 2)
	assert.Equal(t, "/agents/ag1/tasks", f.requests[0].Path)
	assert.Equal(t, map[string]any{"data": map[string]any{"task": "check weather"}}, f.requests[0].Body)
	assert.Equal(t, "/agents/ag1/tasks/sub1/next", f.requests[1].Path)
	data := f.requests[1].Body["data"].(map[string]any)
	assert.Equal(t, "weather_worker", data["location"])
	assert.Equal(t, "failed", data["action_result"].(map[string]any)["action_status"])
}

func TestNextActionRequiresType(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"action_args":{}}}`)
	c := newTestClient(t, f.server.URL)
	_, err := c.NextAction(context.Background(), "ag1", "sub1", ActionRequest{})
	assert.ErrorIs(t, err, errs.ErrAPI)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(WithBaseURL("http://localhost"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = NewClient(WithAPIKey("k"), WithBaseURL("::not a url"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	cfg := config.Default()
	cfg.APIKey = "k"
	c, err := NewClient(WithConfig(cfg))
	require.NoError(t, err)
	assert.IsType(t, APIKey(""), c.auth)

	cfg.TokenURL = "http://localhost/token"
	c, err = NewClient(WithConfig(cfg))
	require.NoError(t, err)
	assert.IsType(t, &TokenExchange{}, c.auth)

	_, err = NewClient(WithConfig(config.Default()))
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	c, err = NewClient(WithCredential(credential.Static("k")), WithConfig(config.Default()))
	require.NoError(t, err)
	assert.IsType(t, &Credential{}, c.auth)
}

func TestRateLimitedClient(t *testing.T) {
	f := newFakePlanner(t, `{"data":{"id":"ag1"}}`)
	c := newTestClient(t, f.server.URL, WithRateLimit(1000, 1), WithHTTPClient(&http.Client{}))
	for i := 0; i < 3; i++ {
		_, err := c.CreateAgent(context.Background(), AgentSpec{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), f.attempts.Load())
}

func TestTextDecoding(t *testing.T) {
	var d Directive
	require.NoError(t, json.Unmarshal([]byte(`{"response_type":"finish_task","result":null}`), &d))
	assert.Equal(t, Text(""), d.Result)
	require.NoError(t, json.Unmarshal([]byte(`{"response_type":"finish_task","result":[1,2]}`), &d))
	assert.Equal(t, Text("[1,2]"), d.Result)
}

// lineLogger records formatted messages with their level and forwards
// everything else to the wrapped logger.
type lineLogger struct {
	log.Logger
	mu    sync.Mutex
	lines []string
}

func (l *lineLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *lineLogger) Debugf(format string, args ...any) { l.add("debug", format, args...) }
func (l *lineLogger) Warnf(format string, args ...any)  { l.add("warn", format, args...) }
func (l *lineLogger) Errorf(format string, args ...any) { l.add("error", format, args...) }

func TestRestyMessagesGoThroughLog(t *testing.T) {
	orig := log.Default
	rec := &lineLogger{Logger: orig}
	log.Default = rec
	defer func() { log.Default = orig }()

	c := newTestClient(t, "http://127.0.0.1:1", WithRetry(2, time.Millisecond, time.Millisecond))
	_, err := c.CreateAgent(context.Background(), AgentSpec{})
	require.ErrorIs(t, err, errs.ErrTransport)

	var fromResty int
	for _, line := range rec.lines {
		assert.False(t, strings.HasPrefix(line, "error "), line)
		if strings.HasPrefix(line, "debug planner: resty: ") {
			fromResty++
		}
	}
	assert.Positive(t, fromResty)
}

func TestHTTPClientIsNotModified(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	f := newFakePlanner(t, `{"data":{"id":"ag1"}}`)
	c := newTestClient(t, f.server.URL, WithTimeout(time.Second), WithHTTPClient(hc))

	_, err := c.CreateAgent(context.Background(), AgentSpec{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, hc.Timeout)
}
