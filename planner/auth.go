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
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"trpc.group/trpc-go/trpc-game-go/credential"
	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/log"
)

// HeaderAPIKey carries a static API key.
const HeaderAPIKey = "x-api-key"

// Authenticator yields the credential header for a request.
type Authenticator interface {
	Header(ctx context.Context) (name, value string, err error)
}

// invalidator is implemented by authenticators caching a credential that
// the server may revoke.
type invalidator interface {
	Invalidate()
}

// APIKey sends a static key in the x-api-key header.
type APIKey string

// Header implements Authenticator.
func (k APIKey) Header(context.Context) (string, string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", "", errs.Configuration("planner.auth", "api key is required")
	}
	return HeaderAPIKey, string(k), nil
}

// Credential sends the API key resolved from a credential.Provider in the
// x-api-key header. The key is resolved on first use and again after the
// planner rejects it.
type Credential struct {
	provider credential.Provider

	mu  sync.Mutex
	key string
}

// NewCredential returns an Authenticator backed by p.
func NewCredential(p credential.Provider) *Credential {
	return &Credential{provider: p}
}

// Header implements Authenticator.
func (c *Credential) Header(ctx context.Context) (string, string, error) {
	const op = "planner.credential"
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != "" {
		return HeaderAPIKey, c.key, nil
	}
	if c.provider == nil {
		return "", "", errs.Configuration(op, "credential provider is nil")
	}
	key, err := c.provider.Credential(ctx)
	if err != nil {
		return "", "", &errs.Error{Kind: errs.KindConfiguration, Op: op, Message: "resolve api key", Err: err}
	}
	if strings.TrimSpace(key) == "" {
		return "", "", errs.Configuration(op, "api key is required")
	}
	c.key = key
	return HeaderAPIKey, key, nil
}

// Invalidate drops the resolved key.
func (c *Credential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = ""
}

const (
	defaultTokenSkew = 30 * time.Second
	defaultTokenTTL  = 5 * time.Minute
)

// TokenExchange trades an API key for a short-lived bearer token and
// caches it until shortly before it expires.
type TokenExchange struct {
	apiKey   string
	tokenURL string
	http     *resty.Client
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// TokenOption configures a TokenExchange.
type TokenOption func(*TokenExchange)

// WithTokenHTTPClient sets the HTTP client of the token endpoint.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(t *TokenExchange) {
		t.http = resty.NewWithClient(c).SetLogger(log.DebugLogger{Prefix: "planner: resty: "})
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) TokenOption {
	return func(t *TokenExchange) {
		t.now = now
	}
}

// NewTokenExchange returns an Authenticator backed by tokenURL.
func NewTokenExchange(tokenURL, apiKey string, opts ...TokenOption) *TokenExchange {
	t := &TokenExchange{
		apiKey:   apiKey,
		tokenURL: tokenURL,
		http:     resty.New().SetTimeout(30 * time.Second).SetLogger(log.DebugLogger{Prefix: "planner: resty: "}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Header implements Authenticator.
func (t *TokenExchange) Header(ctx context.Context) (string, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Add(defaultTokenSkew).Before(t.expiry) {
		return "Authorization", "Bearer " + t.token, nil
	}
	token, err := t.fetch(ctx)
	if err != nil {
		return "", "", err
	}
	t.token = token
	t.expiry = t.expiryOf(token)
	return "Authorization", "Bearer " + token, nil
}

// Invalidate drops the cached token so the next request fetches a new one.
func (t *TokenExchange) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}

type tokenResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func (t *TokenExchange) fetch(ctx context.Context) (string, error) {
	const op = "planner.token"
	if strings.TrimSpace(t.apiKey) == "" {
		return "", errs.Configuration(op, "api key is required")
	}
	resp, err := t.http.R().
		SetContext(ctx).
		SetHeader(HeaderAPIKey, t.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{}).
		Post(t.tokenURL)
	if err != nil {
		return "", errs.Transport(op, err)
	}
	if resp.IsError() {
		return "", errs.FromResponse(op, resp.StatusCode(), resp.Body())
	}
	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil || tr.Data.AccessToken == "" {
		return "", &errs.Error{Kind: errs.KindAuthentication, Op: op,
			Message: "token endpoint returned no access token", StatusCode: resp.StatusCode(), Body: resp.Body()}
	}
	log.Debugf("planner: obtained access token")
	return tr.Data.AccessToken, nil
}

// expiryOf reads the unverified exp claim. Opaque tokens get a fixed
// lifetime.
func (t *TokenExchange) expiryOf(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return t.now().Add(defaultTokenTTL)
}
