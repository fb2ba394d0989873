//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package errs

import "encoding/json"

// errorBody covers the error shapes the platform returns:
//
//	{"error": {"message": "..."}}
//	{"error": {"detail": "..."}}
//	{"error": "..."}
//	{"message": "..."}
//	{"detail": "..."}
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Detail  any             `json:"detail"`
}

type nestedError struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
}

// apiMessage extracts a human readable message from a response body.
// It returns "" when the body carries none.
func apiMessage(body []byte) string {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return ""
	}
	if len(eb.Error) > 0 {
		var nested nestedError
		if json.Unmarshal(eb.Error, &nested) == nil {
			if nested.Message != "" {
				return nested.Message
			}
			if s := detailString(nested.Detail); s != "" {
				return s
			}
		}
		var s string
		if json.Unmarshal(eb.Error, &s) == nil && s != "" {
			return s
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	return detailString(eb.Detail)
}

func detailString(d any) string {
	switch v := d.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
