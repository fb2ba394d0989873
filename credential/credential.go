//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package credential resolves the platform API key from static values,
// environment variables or HashiCorp Vault.
package credential

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrNotFound is returned when no provider yields a credential.
var ErrNotFound = errors.New("credential: not found")

// Provider yields an API key.
type Provider interface {
	Credential(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Credential implements Provider.
func (f ProviderFunc) Credential(ctx context.Context) (string, error) { return f(ctx) }

// Static returns key as is.
func Static(key string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		if strings.TrimSpace(key) == "" {
			return "", ErrNotFound
		}
		return key, nil
	})
}

// Env reads the named environment variable.
func Env(name string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return "", ErrNotFound
		}
		return v, nil
	})
}

// Chain tries providers in order and returns the first credential found.
// ErrNotFound from a provider moves on to the next one; any other error
// stops the chain.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			key, err := p.Credential(ctx)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return "", err
			}
			return key, nil
		}
		return "", ErrNotFound
	})
}
