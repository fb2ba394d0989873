//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package webpage provides a read_webpage function that fetches an HTML page
// and returns its title and visible text.
package webpage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/log"
)

// FunctionName is the name of the webpage function.
const FunctionName = "read_webpage"

const (
	defaultMaxChars  = 4000
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "trpc-game-go/webpage"
)

// Option configures the plugin.
type Option func(*config)

type config struct {
	maxChars   int
	userAgent  string
	httpClient *http.Client
}

// WithMaxChars caps the returned text. Values below 1 keep the default.
func WithMaxChars(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = c
	}
}

type readArgs struct {
	URL      string `json:"url" jsonschema:"description=Absolute http or https URL of the page"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"description=Maximum number of characters of text to return"`
}

type reader struct {
	client   *resty.Client
	maxChars int
}

// NewFunction returns the read_webpage function.
func NewFunction(opts ...Option) (*function.Function, error) {
	cfg := &config{
		maxChars:   defaultMaxChars,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	rc := resty.NewWithClient(cfg.httpClient).
		SetHeader("User-Agent", cfg.userAgent).
		SetLogger(log.DebugLogger{Prefix: "webpage: "})
	r := &reader{
		client:   rc,
		maxChars: cfg.maxChars,
	}
	return function.Typed(FunctionName, "Read the title and text of a web page", r.read,
		function.WithHint("Use after a web search to read one of the result pages"))
}

func (r *reader) read(ctx context.Context, in readArgs) (function.Status, string, map[string]any, error) {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return function.StatusFailed, fmt.Sprintf("Invalid URL %q", in.URL), nil, nil
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return "", "", nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return function.StatusFailed, fmt.Sprintf("Fetching %s returned status %d", u, resp.StatusCode()), nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", "", nil, fmt.Errorf("parse %s: %w", u, err)
	}
	doc.Find("script, style, noscript, template, svg").Remove()
	title := collapse(doc.Find("title").First().Text())
	text := collapse(doc.Find("body").Text())

	limit := r.maxChars
	if in.MaxChars > 0 && in.MaxChars < limit {
		limit = in.MaxChars
	}
	truncated := false
	if runes := []rune(text); len(runes) > limit {
		text = string(runes[:limit])
		truncated = true
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if ref, err := u.Parse(href); err == nil && (ref.Scheme == "http" || ref.Scheme == "https") {
			links = append(links, ref.String())
		}
	})

	feedback := text
	if title != "" {
		feedback = title + "\n\n" + text
	}
	return function.StatusDone, feedback, map[string]any{
		"url":       u.String(),
		"title":     title,
		"truncated": truncated,
		"links":     links,
	}, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
