//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package simulator serves the planner wire protocol from a script. It lets
// agents and workers run end to end without the remote platform, in tests
// and from cmd/gamesim.
package simulator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/planner"
)

// Operation names, as recorded in Request.Op and matched by Fault.Op.
const (
	OpCreateAgent   = "create_agent"
	OpCreateWorkers = "create_workers"
	OpCreateSession = "create_session"
	OpNextTask      = "next_task"
	OpStartTask     = "start_task"
	OpReportResult  = "report_result"
	OpSetTask       = "set_task"
	OpNextAction    = "next_action"
	OpToken         = "token"
)

var knownOps = map[string]bool{
	OpCreateAgent: true, OpCreateWorkers: true, OpCreateSession: true,
	OpNextTask: true, OpStartTask: true, OpReportResult: true,
	OpSetTask: true, OpNextAction: true, OpToken: true,
}

// accessToken is issued by the token route when the script has an API key.
const accessToken = "simulator-access-token"

// Request is one recorded call.
type Request struct {
	Op     string
	Method string
	Path   string
	// Vars holds the path parameters, e.g. "session_id".
	Vars   map[string]string
	Header http.Header
	Body   json.RawMessage
}

// Decode unmarshals the recorded body into v.
func (r Request) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Server is a scripted planner. It is safe for concurrent use.
type Server struct {
	router  *mux.Router
	handler http.Handler

	mu         sync.Mutex
	script     Script
	directives int
	actions    int
	faults     map[string]*Fault
	ids        map[string]int
	requests   []Request
}

// New builds a server replaying script.
func New(script Script) *Server {
	s := &Server{
		router: mux.NewRouter(),
		script: script,
		faults: make(map[string]*Fault),
		ids:    make(map[string]int),
	}
	for i := range script.Faults {
		f := script.Faults[i]
		s.faults[f.Op] = &f
	}
	s.registerRoutes()
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(s.router)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	routes := []struct {
		op, path string
		h        func(r *http.Request) (int, any)
	}{
		{OpCreateAgent, "/agents", s.created("agent", "id")},
		{OpCreateWorkers, "/maps", s.created("map", "id")},
		{OpCreateSession, "/agent/{agent_id}/session", s.created("session", "session_id")},
		{OpNextTask, "/session/{session_id}/step", s.nextDirective},
		{OpStartTask, "/session/{session_id}/task/start", s.nextDirective},
		{OpReportResult, "/session/{session_id}/report", s.nextDirective},
		{OpSetTask, "/agents/{agent_id}/tasks", s.created("submission", "submission_id")},
		{OpNextAction, "/agents/{agent_id}/tasks/{submission_id}/next", s.nextAction},
		{OpToken, "/token", s.token},
	}
	for _, rt := range routes {
		s.router.HandleFunc(rt.path, s.wrap(rt.op, rt.h)).Methods(http.MethodPost)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Warnf("simulator: no route for %s %s", r.Method, r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
}

// wrap records the request, then applies authentication and faults before
// calling h.
func (s *Server) wrap(op string, h func(r *http.Request) (int, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if len(body) > 0 && !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is not json"})
			return
		}
		s.record(Request{
			Op:     op,
			Method: r.Method,
			Path:   r.URL.Path,
			Vars:   mux.Vars(r),
			Header: r.Header.Clone(),
			Body:   body,
		})
		log.Debugf("simulator: %s %s", op, r.URL.Path)

		if !s.authorized(op, r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		if status, ok := s.fault(op); ok {
			writeJSON(w, status, map[string]string{"error": fmt.Sprintf("scripted %s fault", op)})
			return
		}
		status, data := h(r)
		writeJSON(w, status, map[string]any{"data": data})
	}
}

func (s *Server) record(r Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

func (s *Server) authorized(op string, r *http.Request) bool {
	key := s.script.APIKey
	if key == "" {
		return true
	}
	if r.Header.Get(planner.HeaderAPIKey) == key {
		return true
	}
	return op != OpToken && r.Header.Get("Authorization") == "Bearer "+accessToken
}

func (s *Server) fault(op string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faults[op]
	if !ok || f.Times <= 0 {
		return 0, false
	}
	f.Times--
	return f.Status, true
}

// created answers with a fresh id under field, e.g. {"id": "agent-1"}.
func (s *Server) created(kind, field string) func(*http.Request) (int, any) {
	return func(*http.Request) (int, any) {
		s.mu.Lock()
		s.ids[kind]++
		id := fmt.Sprintf("%s-%d", kind, s.ids[kind])
		s.mu.Unlock()
		return http.StatusOK, map[string]string{field: id}
	}
}

func (s *Server) nextDirective(*http.Request) (int, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.directives >= len(s.script.Directives) {
		return http.StatusOK, planner.Directive{Type: planner.DirectiveStepFailure, Reasoning: "script exhausted"}
	}
	d := s.script.Directives[s.directives]
	s.directives++
	return http.StatusOK, d
}

func (s *Server) nextAction(*http.Request) (int, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actions >= len(s.script.Actions) {
		return http.StatusOK, planner.Action{Type: planner.ActionWait}
	}
	a := s.script.Actions[s.actions]
	s.actions++
	return http.StatusOK, a
}

func (s *Server) token(*http.Request) (int, any) {
	return http.StatusOK, map[string]string{"accessToken": accessToken}
}

// Requests returns the recorded calls in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the recorded calls of one operation.
func (s *Server) RequestsFor(op string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

// Ops returns the operation of every recorded call, in order.
func (s *Server) Ops() []string {
	reqs := s.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Op
	}
	return out
}

// Remaining reports how many scripted directives and actions are unused.
func (s *Server) Remaining() (directives, actions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script.Directives) - s.directives, len(s.script.Actions) - s.actions
}

// TokenURL returns the token route under base, for planner.NewTokenExchange.
func TokenURL(base string) string {
	return strings.TrimRight(base, "/") + "/token"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("simulator: encode response: %v", err)
	}
}
