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
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-game-go/errs"
	itelemetry "trpc.group/trpc-go/trpc-game-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-game-go/telemetry/trace"
)

// Client talks to the remote planner over HTTP. It is safe for concurrent
// use.
type Client struct {
	http *resty.Client
	auth Authenticator
}

var (
	_ AgentAPI  = (*Client)(nil)
	_ WorkerAPI = (*Client)(nil)
)

// NewClient builds a client. An authenticator is required, through
// WithAPIKey, WithAuthenticator or WithConfig.
func NewClient(opts ...Option) (*Client, error) {
	const op = "planner.new_client"
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.auth == nil {
		return nil, errs.Configuration(op, "an api key or authenticator is required")
	}
	if _, err := url.ParseRequestURI(o.baseURL); err != nil {
		return nil, errs.Configuration(op, "invalid base url %q: %v", o.baseURL, err)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}
	if o.retryDelay < minRetryDelay {
		o.retryDelay = minRetryDelay
	}
	if o.retryMaxDelay < o.retryDelay {
		o.retryMaxDelay = o.retryDelay
	}

	rc := resty.New()
	if o.httpClient != nil {
		// resty sets the timeout on the client it is given.
		hc := *o.httpClient
		rc = resty.NewWithClient(&hc)
	}
	rc.SetLogger(log.DebugLogger{Prefix: "planner: resty: "}).
		SetBaseURL(strings.TrimRight(o.baseURL, "/")).
		SetTimeout(o.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", o.userAgent).
		SetRetryCount(o.maxAttempts - 1).
		SetRetryWaitTime(o.retryDelay).
		SetRetryMaxWaitTime(o.retryMaxDelay).
		AddRetryCondition(shouldRetry).
		AddRetryHook(func(resp *resty.Response, err error) {
			log.Warnf("planner: transient failure on %s: status=%d err=%v", requestURL(resp), statusOf(resp), err)
		})

	c := &Client{http: rc, auth: o.auth}
	if o.rateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(o.rateLimit), o.rateBurst)
		rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		name, value, err := c.auth.Header(r.Context())
		if err != nil {
			return err
		}
		r.SetHeader(name, value)
		return nil
	})
	return c, nil
}

// shouldRetry accepts transport failures, 429 and 5xx. Everything else,
// including cancellation and credential errors, is final.
func shouldRetry(resp *resty.Response, err error) bool {
	if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
		return false
	}
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return e.Retryable()
		}
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return false
	}
	status := resp.StatusCode()
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func statusOf(resp *resty.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode()
}

func requestURL(resp *resty.Response) string {
	if resp == nil || resp.Request == nil {
		return ""
	}
	return resp.Request.URL
}

// envelope is the {"data": ...} wrapper of most planner payloads.
type envelope struct {
	Data any `json:"data"`
}

type rawEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, op, path, body, out)
}

// Do sends one request and decodes the "data" member of the response into
// out when out is non-nil. body may be nil. op names the call in spans,
// metrics and errors. Do applies the retry, rate limit and authentication
// settings of the client.
func (c *Client) Do(ctx context.Context, method, op, path string, body, out any) (err error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.PlannerSpanName(op))
	defer span.End()
	span.SetAttributes(attribute.String(itelemetry.KeyPlannerOp, op))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			var e *errs.Error
			if errors.As(err, &e) {
				outcome = string(e.Kind)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metric.RecordPlannerRequest(ctx, op, outcome)
	}()

	fullOp := "planner." + op
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return e
		}
		return errs.Transport(fullOp, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int(itelemetry.KeyHTTPStatus, status))
	log.Tracef("planner %s: status=%d body=%s", op, status, resp.Body())
	if status < 200 || status >= 300 {
		if status == http.StatusUnauthorized {
			if inv, ok := c.auth.(invalidator); ok {
				inv.Invalidate()
			}
		}
		return errs.FromResponse(fullOp, status, resp.Body())
	}
	if out == nil {
		return nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &errs.Error{Kind: errs.KindAPI, Op: fullOp, Message: "malformed response",
			StatusCode: status, Body: resp.Body(), Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &errs.Error{Kind: errs.KindAPI, Op: fullOp, Message: "response has no data",
			StatusCode: status, Body: resp.Body()}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &errs.Error{Kind: errs.KindAPI, Op: fullOp, Message: "malformed response data",
			StatusCode: status, Body: resp.Body(), Err: err}
	}
	return nil
}

func requireID(op, field, id string) error {
	if id == "" {
		return &errs.Error{Kind: errs.KindAPI, Op: "planner." + op, Message: "response is missing " + field}
	}
	return nil
}

// CreateAgent implements AgentAPI and WorkerAPI.
func (c *Client) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "create_agent", "/agents", envelope{Data: spec}, &out); err != nil {
		return "", err
	}
	return out.ID, requireID("create_agent", "id", out.ID)
}

// CreateWorkers implements AgentAPI.
func (c *Client) CreateWorkers(ctx context.Context, locations []Location) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := envelope{Data: map[string]any{"locations": locations}}
	if err := c.post(ctx, "create_workers", "/maps", body, &out); err != nil {
		return "", err
	}
	return out.ID, requireID("create_workers", "id", out.ID)
}

// CreateSession implements AgentAPI.
func (c *Client) CreateSession(ctx context.Context, agentID, goal string) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	path := "/agent/" + url.PathEscape(agentID) + "/session"
	if err := c.post(ctx, "create_session", path, map[string]string{"goal": goal}, &out); err != nil {
		return "", err
	}
	return out.SessionID, requireID("create_session", "session_id", out.SessionID)
}

// NextTask implements AgentAPI.
func (c *Client) NextTask(ctx context.Context, sessionID string, req NextTaskRequest) (*Directive, error) {
	return c.directive(ctx, "next_task", "/session/"+url.PathEscape(sessionID)+"/step", req,
		DirectiveStartTask, DirectiveStepFailure)
}

// StartTask implements AgentAPI.
func (c *Client) StartTask(ctx context.Context, sessionID string, req StartTaskRequest) (*Directive, error) {
	return c.directive(ctx, "start_task", "/session/"+url.PathEscape(sessionID)+"/task/start", req,
		DirectiveCallFunction, DirectiveFinishTask, DirectiveStepFailure)
}

// ReportResult implements AgentAPI.
func (c *Client) ReportResult(ctx context.Context, sessionID string, req ReportRequest) (*Directive, error) {
	return c.directive(ctx, "report_result", "/session/"+url.PathEscape(sessionID)+"/report", req,
		DirectiveCallFunction, DirectiveFinishTask, DirectiveStepFailure)
}

func (c *Client) directive(ctx context.Context, op, path string, body any, allowed ...DirectiveType) (*Directive, error) {
	var d Directive
	if err := c.post(ctx, op, path, body, &d); err != nil {
		return nil, err
	}
	if err := d.check("planner."+op, allowed...); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetTask implements WorkerAPI.
func (c *Client) SetTask(ctx context.Context, agentID, task string) (string, error) {
	var out struct {
		SubmissionID string `json:"submission_id"`
	}
	path := "/agents/" + url.PathEscape(agentID) + "/tasks"
	if err := c.post(ctx, "set_task", path, envelope{Data: map[string]string{"task": task}}, &out); err != nil {
		return "", err
	}
	return out.SubmissionID, requireID("set_task", "submission_id", out.SubmissionID)
}

// NextAction implements WorkerAPI.
func (c *Client) NextAction(ctx context.Context, agentID, submissionID string, req ActionRequest) (*Action, error) {
	var a Action
	path := "/agents/" + url.PathEscape(agentID) + "/tasks/" + url.PathEscape(submissionID) + "/next"
	if err := c.post(ctx, "next_action", path, envelope{Data: req}, &a); err != nil {
		return nil, err
	}
	if a.Type == "" {
		return nil, &errs.Error{Kind: errs.KindAPI, Op: "planner.next_action", Message: "response is missing action_type"}
	}
	return &a, nil
}
