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
	"net/http"
	"time"

	"trpc.group/trpc-go/trpc-game-go/config"
	"trpc.group/trpc-go/trpc-game-go/credential"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryDelay    = time.Second
	defaultRetryMaxDelay = 10 * time.Second
	defaultUserAgent     = "trpc-game-go"
	// minRetryDelay keeps the backoff jitter well defined.
	minRetryDelay = time.Millisecond
)

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL       string
	auth          Authenticator
	timeout       time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	retryMaxDelay time.Duration
	rateLimit     float64
	rateBurst     int
	httpClient    *http.Client
	userAgent     string
}

func defaultOptions() options {
	return options{
		baseURL:       config.DefaultBaseURL,
		timeout:       defaultTimeout,
		maxAttempts:   defaultMaxAttempts,
		retryDelay:    defaultRetryDelay,
		retryMaxDelay: defaultRetryMaxDelay,
		rateBurst:     1,
		userAgent:     defaultUserAgent,
	}
}

// WithConfig applies every field of cfg. A TokenURL selects the token
// exchange, otherwise the API key is sent as is. An empty APIKey keeps the
// authenticator set by an earlier option.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.baseURL = cfg.BaseURL
		o.timeout = cfg.RequestTimeout
		o.maxAttempts = cfg.MaxRetries
		o.retryDelay = cfg.RetryDelay
		o.retryMaxDelay = cfg.RetryMaxDelay
		o.rateLimit = cfg.RateLimit
		o.rateBurst = cfg.RateBurst
		switch {
		case cfg.APIKey == "":
			// keep o.auth
		case cfg.TokenURL != "":
			o.auth = NewTokenExchange(cfg.TokenURL, cfg.APIKey)
		default:
			o.auth = APIKey(cfg.APIKey)
		}
	}
}

// WithBaseURL sets the planner endpoint, e.g. "https://sdk.game.virtuals.io/v2".
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithAPIKey authenticates with a static key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.auth = APIKey(key)
	}
}

// WithAuthenticator sets a custom Authenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(o *options) {
		o.auth = a
	}
}

// WithCredential authenticates with the API key p yields. See Credential.
func WithCredential(p credential.Provider) Option {
	return func(o *options) {
		o.auth = NewCredential(p)
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRetry sets the total number of attempts for transient failures and
// the exponential backoff bounds.
func WithRetry(maxAttempts int, delay, maxDelay time.Duration) Option {
	return func(o *options) {
		o.maxAttempts = maxAttempts
		o.retryDelay = delay
		o.retryMaxDelay = maxDelay
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = perSecond
		o.rateBurst = burst
	}
}

// WithHTTPClient sets the underlying HTTP client. The client is copied and
// the copy's Timeout is replaced by the configured request timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}
