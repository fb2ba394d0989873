//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package credential

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// DefaultVaultField is the secret field holding the API key.
const DefaultVaultField = "api_key"

// VaultConfig locates an API key in Vault.
type VaultConfig struct {
	// Address of the Vault server. Empty uses VAULT_ADDR.
	Address string
	// Token authenticates to Vault. Empty uses VAULT_TOKEN.
	Token string
	// Path is the logical read path, e.g. "secret/data/game".
	Path string
	// Field defaults to DefaultVaultField.
	Field string
}

type vaultProvider struct {
	client *vault.Client
	path   string
	field  string
}

// Vault returns a provider reading a KV v1 or v2 secret.
func Vault(cfg VaultConfig) (Provider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("credential: vault path is required")
	}
	vc := vault.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("credential: create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	field := cfg.Field
	if field == "" {
		field = DefaultVaultField
	}
	return &vaultProvider{client: client, path: cfg.Path, field: field}, nil
}

func (p *vaultProvider) Credential(ctx context.Context) (string, error) {
	secret, err := p.client.Logical().ReadWithContext(ctx, p.path)
	if err != nil {
		return "", fmt.Errorf("credential: read vault secret %s: %w", p.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrNotFound
	}
	data := secret.Data
	// KV v2 nests the payload under "data".
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	key, ok := data[p.field].(string)
	if !ok || key == "" {
		return "", ErrNotFound
	}
	return key, nil
}
