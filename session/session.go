//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides the process-local conversation handle shared by
// agents and workers.
package session

import (
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-game-go/function"
)

// Session identifies one continuous conversation with the remote planner.
// It is owned by exactly one agent or worker and is not safe for concurrent
// use.
type Session struct {
	ID string `json:"id"`
	// FunctionResult is the last result produced in this session, or nil.
	FunctionResult *function.Result `json:"function_result,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// New returns a session with a fresh id.
func New() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now()}
}

// Reset starts a logically new conversation: a new id and no result.
func (s *Session) Reset() {
	s.ID = uuid.NewString()
	s.FunctionResult = nil
	s.CreatedAt = time.Now()
}
