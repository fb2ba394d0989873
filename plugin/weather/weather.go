//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package weather provides a get_weather function backed by the
// open-meteo geocoding and forecast APIs. No API key is needed.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/log"
)

// FunctionName is the name of the weather function.
const FunctionName = "get_weather"

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	defaultForecastURL  = "https://api.open-meteo.com"
	defaultTimeout      = 15 * time.Second
)

// Option configures the plugin.
type Option func(*config)

type config struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
}

// WithGeocodingURL sets the geocoding endpoint.
func WithGeocodingURL(u string) Option {
	return func(c *config) {
		c.geocodingURL = u
	}
}

// WithForecastURL sets the forecast endpoint.
func WithForecastURL(u string) Option {
	return func(c *config) {
		c.forecastURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = c
	}
}

type weatherArgs struct {
	City string `json:"city" jsonschema:"description=City to get the current weather for"`
}

type place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodingResponse struct {
	Results []place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Units struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

type reporter struct {
	geo      *resty.Client
	forecast *resty.Client
}

// NewFunction returns the get_weather function.
func NewFunction(opts ...Option) (*function.Function, error) {
	cfg := &config{
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client := func(base string) *resty.Client {
		return resty.NewWithClient(cfg.httpClient).
			SetBaseURL(strings.TrimRight(base, "/")).
			SetLogger(log.DebugLogger{Prefix: "weather: "})
	}
	r := &reporter{
		geo:      client(cfg.geocodingURL),
		forecast: client(cfg.forecastURL),
	}
	return function.Typed(FunctionName, "Get the current weather of a city", r.report)
}

func (r *reporter) report(ctx context.Context, in weatherArgs) (function.Status, string, map[string]any, error) {
	if strings.TrimSpace(in.City) == "" {
		return function.StatusFailed, "No city provided", nil, nil
	}
	var geo geocodingResponse
	resp, err := r.geo.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"name": in.City, "count": "1", "format": "json"}).
		SetResult(&geo).
		Get("/v1/search")
	if err != nil {
		return "", "", nil, fmt.Errorf("geocoding: %w", err)
	}
	if resp.IsError() {
		return "", "", nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode())
	}
	if len(geo.Results) == 0 {
		return function.StatusFailed, fmt.Sprintf("City %q not found", in.City), nil, nil
	}
	p := geo.Results[0]

	var fc forecastResponse
	resp, err = r.forecast.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			"longitude": strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			"current":   "temperature_2m,weather_code,wind_speed_10m",
		}).
		SetResult(&fc).
		Get("/v1/forecast")
	if err != nil {
		return "", "", nil, fmt.Errorf("forecast: %w", err)
	}
	if resp.IsError() {
		return "", "", nil, fmt.Errorf("forecast returned status %d", resp.StatusCode())
	}

	conditions := describe(fc.Current.WeatherCode)
	where := p.Name
	if p.Country != "" {
		where += ", " + p.Country
	}
	feedback := fmt.Sprintf("%s: %.1f%s, %s, wind %.1f%s", where,
		fc.Current.Temperature, fc.Units.Temperature, conditions, fc.Current.WindSpeed, fc.Units.WindSpeed)
	return function.StatusDone, feedback, map[string]any{
		"city":        p.Name,
		"country":     p.Country,
		"temperature": fc.Current.Temperature,
		"conditions":  conditions,
		"wind_speed":  fc.Current.WindSpeed,
	}, nil
}

// describe maps a WMO weather code to words.
func describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown conditions"
	}
}
