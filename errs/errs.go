//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package errs defines the error taxonomy shared by the planner client and
// the agent and worker drivers.
//
// Every error raised by this module for a remote or configuration problem is
// an *Error whose Kind can be tested with errors.Is against the sentinels
// below:
//
//	if errors.Is(err, errs.ErrAuthentication) {
//		// the API key was rejected
//	}
//
// Function execution failures are never errors. They are reported as a
// FAILED function.Result.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind string

// Error kinds.
const (
	KindConfiguration  Kind = "configuration"
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindTransport      Kind = "transport"
	KindStepFailed     Kind = "step_failed"
	KindAPI            Kind = "api"
)

// Sentinels matched by errors.Is on any *Error of the same Kind.
var (
	ErrConfiguration  = &Error{Kind: KindConfiguration, Message: "configuration error"}
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrTransport      = &Error{Kind: KindTransport, Message: "transport failure"}
	ErrStepFailed     = &Error{Kind: KindStepFailed, Message: "planner step failed"}
	ErrAPI            = &Error{Kind: KindAPI, Message: "api error"}
)

// maxBodyInMessage bounds how much of a response body Error() prints.
const maxBodyInMessage = 512

// Error is the concrete error type of this module.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "planner.create_agent".
	Op      string
	Message string
	// StatusCode and Body are set when the error came from an HTTP response.
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if len(e.Body) > 0 {
		body := string(e.Body)
		if len(body) > maxBodyInMessage {
			body = body[:maxBodyInMessage] + "..."
		}
		b.WriteString(": ")
		b.WriteString(body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	if e.Kind != KindTransport {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Configuration returns a KindConfiguration error.
func Configuration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Transport wraps a network level failure.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "request failed", Err: err}
}

// StepFailed reports a planning step the remote planner marked as failed.
func StepFailed(op, reason string) *Error {
	return &Error{Kind: KindStepFailed, Op: op, Message: reason}
}

// FromResponse maps a non-2xx HTTP response to an error of the matching Kind.
func FromResponse(op string, status int, body []byte) *Error {
	e := &Error{Op: op, StatusCode: status, Body: body, Message: apiMessage(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthentication
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case status == http.StatusTooManyRequests || status >= 500:
		e.Kind = KindTransport
	default:
		e.Kind = KindAPI
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsRetryable reports whether err is a transient *Error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
