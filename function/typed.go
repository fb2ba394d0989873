//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// TypedHandler is an executable taking its arguments as a struct.
type TypedHandler[In any] func(ctx context.Context, in In) (Status, string, map[string]any, error)

// Typed declares a function whose arguments are derived from the exported
// fields of In. Field names follow json tags, descriptions come from
// `jsonschema:"description=..."` tags, and fields tagged omitempty are
// optional. Values are decoded weakly, so "500" fills an int field and
// "true" a bool. Options passed here are applied after the derived arguments.
func Typed[In any](name, description string, handler TypedHandler[In], opts ...Option) (*Function, error) {
	args, err := argsOf[In]()
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	exec := func(ctx context.Context, raw map[string]any) (Status, string, map[string]any, error) {
		var in In
		if err := decodeArgs(raw, &in); err != nil {
			return StatusFailed, "", nil, fmt.Errorf("decode arguments: %w", err)
		}
		return handler(ctx, in)
	}
	all := append([]Option{WithArgs(args...), WithExecutable(exec)}, opts...)
	return New(name, description, all...)
}

func decodeArgs(raw map[string]any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return d.Decode(raw)
}

func argsOf[In any]() ([]Argument, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero In
	schema := r.Reflect(&zero)
	if schema == nil {
		return nil, fmt.Errorf("cannot derive a schema")
	}
	if schema.Properties == nil {
		return nil, nil
	}
	var args []Argument
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		arg := Argument{
			Name:     pair.Key,
			Optional: !slices.Contains(schema.Required, pair.Key),
		}
		if prop != nil {
			arg.Description = prop.Description
			if prop.Type != "" {
				arg.Type = TypeTags{prop.Type}
			}
		}
		args = append(args, arg)
	}
	return args, nil
}
