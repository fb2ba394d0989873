//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads client settings from defaults, an optional file,
// explicit overrides and GAME_* environment variables.
//
// The result is a plain value handed to constructors; nothing in this
// module reads configuration from process-wide state.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"trpc.group/trpc-go/trpc-game-go/errs"
)

// DefaultBaseURL is the hosted planner endpoint.
const DefaultBaseURL = "https://sdk.game.virtuals.io/v2"

// Config keys, usable in files and with WithValue.
const (
	KeyBaseURL        = "base_url"
	KeyAPIKey         = "api_key"
	KeyTokenURL       = "token_url"
	KeyRequestTimeout = "request_timeout"
	KeyMaxRetries     = "max_retries"
	KeyRetryDelay     = "retry_delay"
	KeyRetryMaxDelay  = "retry_max_delay"
	KeyRateLimit      = "rate_limit"
	KeyRateBurst      = "rate_burst"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyVaultAddress   = "vault_address"
	KeyVaultPath      = "vault_path"
)

// envNames maps each key to its environment variable.
var envNames = map[string]string{
	KeyBaseURL:        "GAME_API_BASE_URL",
	KeyAPIKey:         "GAME_API_KEY",
	KeyTokenURL:       "GAME_TOKEN_URL",
	KeyRequestTimeout: "GAME_REQUEST_TIMEOUT",
	KeyMaxRetries:     "GAME_MAX_RETRIES",
	KeyRetryDelay:     "GAME_RETRY_DELAY",
	KeyRetryMaxDelay:  "GAME_RETRY_MAX_DELAY",
	KeyRateLimit:      "GAME_RATE_LIMIT",
	KeyRateBurst:      "GAME_RATE_BURST",
	KeyLogLevel:       "GAME_LOG_LEVEL",
	KeyLogFormat:      "GAME_LOG_FORMAT",
	KeyVaultAddress:   "GAME_VAULT_ADDRESS",
	KeyVaultPath:      "GAME_VAULT_PATH",
}

// Durations default to whole seconds, matching the GAME_* variables.
var defaults = map[string]any{
	KeyBaseURL:        DefaultBaseURL,
	KeyRequestTimeout: 30,
	KeyMaxRetries:     3,
	KeyRetryDelay:     1,
	KeyRetryMaxDelay:  10,
	KeyRateLimit:      0,
	KeyRateBurst:      1,
	KeyLogLevel:       "info",
	KeyLogFormat:      "console",
}

// Config holds the settings of the planner client and its surroundings.
type Config struct {
	BaseURL  string `validate:"required,url"`
	APIKey   string
	TokenURL string `validate:"omitempty,url"`
	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration `validate:"gt=0"`
	// MaxRetries is the total number of attempts for a transient failure.
	MaxRetries    int           `validate:"min=1,max=10"`
	RetryDelay    time.Duration `validate:"gt=0"`
	RetryMaxDelay time.Duration `validate:"gtefield=RetryDelay"`
	// RateLimit is in requests per second. Zero disables limiting.
	RateLimit    float64 `validate:"gte=0"`
	RateBurst    int     `validate:"gte=1"`
	LogLevel     string  `validate:"oneof=debug info warn error fatal"`
	LogFormat    string  `validate:"oneof=console json"`
	VaultAddress string  `validate:"omitempty,url"`
	VaultPath    string
}

// Option customizes Load.
type Option func(*options)

type options struct {
	file      string
	overrides map[string]any
	noEnv     bool
}

// WithFile reads a YAML, JSON or TOML file before applying overrides.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithValue sets key explicitly. Explicit values win over the environment.
func WithValue(key string, value any) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[string]any)
		}
		o.overrides[key] = value
	}
}

// WithoutEnv ignores GAME_* environment variables.
func WithoutEnv() Option {
	return func(o *options) {
		o.noEnv = true
	}
}

// Default returns the built-in defaults.
func Default() Config {
	cfg, err := Load(WithoutEnv())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load resolves the configuration. Precedence from lowest to highest:
// defaults, file, environment, WithValue.
func Load(opts ...Option) (Config, error) {
	const op = "config.load"
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if !o.noEnv {
		for key, env := range envNames {
			if err := v.BindEnv(key, env); err != nil {
				return Config{}, errs.Configuration(op, "bind %s: %v", env, err)
			}
		}
	}
	if o.file != "" {
		v.SetConfigFile(o.file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errs.Configuration(op, "read %s: %v", o.file, err)
		}
	}
	for key, value := range o.overrides {
		v.Set(key, value)
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Configuration("config.validate", "%v", err)
	}
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	d := decoder{v: v}
	cfg := Config{
		BaseURL:        strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		APIKey:         v.GetString(KeyAPIKey),
		TokenURL:       v.GetString(KeyTokenURL),
		RequestTimeout: d.duration(KeyRequestTimeout),
		MaxRetries:     d.int(KeyMaxRetries),
		RetryDelay:     d.duration(KeyRetryDelay),
		RetryMaxDelay:  d.duration(KeyRetryMaxDelay),
		RateLimit:      d.float(KeyRateLimit),
		RateBurst:      d.int(KeyRateBurst),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:      strings.ToLower(v.GetString(KeyLogFormat)),
		VaultAddress:   v.GetString(KeyVaultAddress),
		VaultPath:      v.GetString(KeyVaultPath),
	}
	return cfg, d.err
}

// decoder parses raw strings strictly and keeps the first failure.
type decoder struct {
	v   *viper.Viper
	err error
}

func (d *decoder) fail(key, raw, want string) {
	if d.err != nil {
		return
	}
	d.err = errs.Configuration("config.load",
		"invalid value for %s: %q, expected %s", envNames[key], raw, want)
}

func (d *decoder) int(key string) int {
	raw := strings.TrimSpace(d.v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		d.fail(key, raw, "an integer")
	}
	return n
}

func (d *decoder) float(key string) float64 {
	raw := strings.TrimSpace(d.v.GetString(key))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		d.fail(key, raw, "a number")
	}
	return f
}

// duration accepts whole seconds ("30") or a Go duration ("250ms").
func (d *decoder) duration(key string) time.Duration {
	raw := strings.TrimSpace(d.v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		d.fail(key, raw, "an integer number of seconds or a duration")
	}
	return dur
}
