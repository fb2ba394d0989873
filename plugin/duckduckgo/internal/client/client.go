//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package client talks to the DuckDuckGo Instant Answer API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"trpc.group/trpc-go/trpc-game-go/log"
)

// Client queries the API at baseURL.
type Client struct {
	http *resty.Client
}

// New returns a client. httpClient may be nil.
func New(baseURL, userAgent string, httpClient *http.Client) *Client {
	rc := resty.New()
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetLogger(log.DebugLogger{Prefix: "duckduckgo: "})
	return &Client{http: rc}
}

// Number accepts both JSON strings and numbers; the API sends either for
// image sizes.
type Number string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Number(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*n = Number(num.String())
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(fmt.Sprintf("%v", v))
	return nil
}

// Response is the subset of the instant answer the plugin reads.
type Response struct {
	Heading          string  `json:"Heading"`
	Abstract         string  `json:"Abstract"`
	AbstractText     string  `json:"AbstractText"`
	AbstractSource   string  `json:"AbstractSource"`
	AbstractURL      string  `json:"AbstractURL"`
	Answer           string  `json:"Answer"`
	Definition       string  `json:"Definition"`
	DefinitionSource string  `json:"DefinitionSource"`
	Image            string  `json:"Image"`
	ImageWidth       Number  `json:"ImageWidth"`
	ImageHeight      Number  `json:"ImageHeight"`
	RelatedTopics    []Topic `json:"RelatedTopics"`
}

// Topic is a related topic.
type Topic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search runs one query.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	var out Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode())
	}
	// The API answers with application/x-javascript, so decode by hand.
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}
