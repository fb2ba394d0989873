//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-game-go/credential"
	"trpc.group/trpc-go/trpc-game-go/errs"
	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/planner"
	"trpc.group/trpc-go/trpc-game-go/state"
	"trpc.group/trpc-go/trpc-game-go/worker"
)

// fakeAPI hands out scripted directives in order, whatever the call.
type fakeAPI struct {
	directives []*planner.Directive
	err        error

	agents    []planner.AgentSpec
	locations [][]planner.Location
	sessions  int
	calls     []string
	nextReqs  []planner.NextTaskRequest
	startReqs []planner.StartTaskRequest
	reports   []planner.ReportRequest
}

func (f *fakeAPI) CreateAgent(_ context.Context, spec planner.AgentSpec) (string, error) {
	f.agents = append(f.agents, spec)
	return "ag1", nil
}

func (f *fakeAPI) CreateWorkers(_ context.Context, locations []planner.Location) (string, error) {
	f.locations = append(f.locations, locations)
	return "map1", nil
}

func (f *fakeAPI) CreateSession(context.Context, string, string) (string, error) {
	f.sessions++
	return "s1", nil
}

func (f *fakeAPI) next(call string) (*planner.Directive, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.directives) == 0 {
		return &planner.Directive{Type: planner.DirectiveStepFailure}, nil
	}
	d := f.directives[0]
	f.directives = f.directives[1:]
	return d, nil
}

func (f *fakeAPI) NextTask(_ context.Context, _ string, req planner.NextTaskRequest) (*planner.Directive, error) {
	f.nextReqs = append(f.nextReqs, req)
	return f.next("next")
}

func (f *fakeAPI) StartTask(_ context.Context, _ string, req planner.StartTaskRequest) (*planner.Directive, error) {
	f.startReqs = append(f.startReqs, req)
	return f.next("start")
}

func (f *fakeAPI) ReportResult(_ context.Context, _ string, req planner.ReportRequest) (*planner.Directive, error) {
	f.reports = append(f.reports, req)
	return f.next("report")
}

func readyState(result *function.Result, current state.State) state.State {
	if result == nil {
		return state.State{"status": "ready"}
	}
	return current.With("last", result.FeedbackMessage)
}

type weatherCalls struct {
	cities []any
}

func weatherWorker(t *testing.T, calls *weatherCalls) *worker.Config {
	t.Helper()
	fn, err := function.New("get_weather", "current weather of a city",
		function.WithArgs(function.Argument{Name: "city", Description: "city name", Type: []string{"string"}}),
		function.WithExecutable(func(_ context.Context, args map[string]any) (function.Status, string, map[string]any, error) {
			calls.cities = append(calls.cities, args["city"])
			return function.StatusDone, "sunny", map[string]any{"temp": 21}, nil
		}))
	require.NoError(t, err)
	cfg, err := worker.NewConfig("weather_worker", "reports weather",
		func(*function.Result, state.State) state.State { return state.State{} },
		[]*function.Function{fn})
	require.NoError(t, err)
	return cfg
}

func newAgent(t *testing.T, api *fakeAPI, workers ...*worker.Config) *Agent {
	t.Helper()
	a, err := New(context.Background(), Config{
		Name:        "weather agent",
		Goal:        "stay informed",
		Description: "tracks the weather",
		StateFunc:   readyState,
		Workers:     workers,
	}, WithClient(api))
	require.NoError(t, err)
	return a
}

func TestNewRegistersOnce(t *testing.T) {
	api := &fakeAPI{}
	a := newAgent(t, api)

	assert.Equal(t, state.State{"status": "ready"}, a.State())
	assert.Equal(t, "ag1", a.ID())
	assert.Equal(t, PhaseIdle, a.Phase())
	assert.Equal(t, []planner.AgentSpec{{Name: "weather agent", Goal: "stay informed", Description: "tracks the weather"}}, api.agents)
	assert.Zero(t, api.sessions)
}

func TestNewValidation(t *testing.T) {
	api := &fakeAPI{}
	_, err := New(context.Background(), Config{
		Name:      "a",
		StateFunc: func(*function.Result, state.State) state.State { return nil },
	}, WithClient(api))
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, api.agents)

	_, err = New(context.Background(), Config{Name: "a", StateFunc: readyState})
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = New(context.Background(), Config{Name: "a"}, WithClient(api))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Empty(t, api.agents)
}

func TestCompile(t *testing.T) {
	api := &fakeAPI{}
	a := newAgent(t, api)
	assert.ErrorIs(t, a.Compile(context.Background()), errs.ErrConfiguration)
	assert.Empty(t, api.locations)

	require.NoError(t, a.AddWorker(weatherWorker(t, &weatherCalls{})))
	require.NoError(t, a.Compile(context.Background()))
	assert.Equal(t, [][]planner.Location{{{ID: "weather_worker", Name: "weather_worker", Description: "reports weather"}}}, api.locations)
	assert.Equal(t, "map1", a.MapID())
}

func TestWorkerRegistry(t *testing.T) {
	calls := &weatherCalls{}
	a := newAgent(t, &fakeAPI{}, weatherWorker(t, calls))

	cfg, ok := a.WorkerConfig("weather_worker")
	require.True(t, ok)
	assert.Equal(t, "reports weather", cfg.Description())

	w1, err := a.Worker("weather_worker")
	require.NoError(t, err)
	w2, err := a.Worker("weather_worker")
	require.NoError(t, err)
	assert.NotSame(t, w1, w2)
	assert.NotEqual(t, w1.Session().ID, w2.Session().ID)

	_, err = a.Worker("nope")
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	other, err := worker.NewConfig("other_worker", "also weather",
		func(*function.Result, state.State) state.State { return state.State{} },
		weatherWorker(t, calls).Functions())
	require.NoError(t, err)
	assert.ErrorIs(t, a.AddWorker(other), errs.ErrConfiguration)
	require.NoError(t, a.AddWorker(weatherWorker(t, calls)), "replacing a worker keeps its functions")
}

func TestStepDrivesTaskToCompletion(t *testing.T) {
	calls := &weatherCalls{}
	api := &fakeAPI{directives: []*planner.Directive{
		{Type: planner.DirectiveStartTask, Reasoning: "asked", Task: "fetch weather"},
		{Type: planner.DirectiveCallFunction, Function: &planner.FunctionCall{
			ID: "f1", Name: "get_weather", Arguments: map[string]any{"city": "Paris"},
		}},
		{Type: planner.DirectiveFinishTask, Result: "done"},
	}}
	a := newAgent(t, api, weatherWorker(t, calls))
	ctx := context.Background()

	d, err := a.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, planner.DirectiveStartTask, d.Type)
	assert.Equal(t, PhaseTaskPending, a.Phase())
	assert.Equal(t, "fetch weather", a.Task())

	d, err = a.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, planner.DirectiveCallFunction, d.Type)
	assert.Equal(t, PhaseTaskRunning, a.Phase())
	assert.Equal(t, "sunny", a.State()["last"])

	d, err = a.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, planner.DirectiveFinishTask, d.Type)

	assert.Equal(t, []any{"Paris"}, calls.cities)
	assert.Equal(t, PhaseIdle, a.Phase())
	assert.Empty(t, a.Task())
	assert.Equal(t, "done", a.FinalResult())
	assert.Nil(t, a.Session().FunctionResult)

	assert.Equal(t, []string{"next", "start", "report"}, api.calls)
	assert.Equal(t, 1, api.sessions)
	assert.Equal(t, `{"status":"ready"}`, api.nextReqs[0].GoalState)
	require.Len(t, api.nextReqs[0].ActionSpace, 1)
	assert.Equal(t, "get_weather", api.startReqs[0].ActionSpace[0].Name)
	assert.Equal(t, planner.FunctionReport{ActionID: "f1", ActionStatus: function.StatusDone, FeedbackMessage: "sunny"},
		api.reports[0].FunctionResult)
	assert.Equal(t, `{"last":"sunny","status":"ready"}`, api.reports[0].EnvironmentState)
}

func TestStepFailureIsRecoverable(t *testing.T) {
	api := &fakeAPI{directives: []*planner.Directive{
		{Type: planner.DirectiveStepFailure},
		{Type: planner.DirectiveStartTask, Task: "fetch weather"},
	}}
	a := newAgent(t, api, weatherWorker(t, &weatherCalls{}))

	d, err := a.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, planner.DirectiveStepFailure, d.Type)
	assert.Equal(t, PhaseIdle, a.Phase())
	assert.Equal(t, state.State{"status": "ready"}, a.State())

	d, err = a.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, planner.DirectiveStartTask, d.Type)
	assert.Equal(t, "fetch weather", d.Task)
}

func TestStepFailureDuringTaskRestartsFromIdle(t *testing.T) {
	api := &fakeAPI{directives: []*planner.Directive{
		{Type: planner.DirectiveStartTask, Task: "t"},
		{Type: planner.DirectiveStepFailure},
		{Type: planner.DirectiveStartTask, Task: "t2"},
	}}
	a := newAgent(t, api, weatherWorker(t, &weatherCalls{}))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Step(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"next", "start", "next"}, api.calls)
	assert.Equal(t, "t2", a.Task())
}

func TestUndeclaredFunctionIsReported(t *testing.T) {
	api := &fakeAPI{directives: []*planner.Directive{
		{Type: planner.DirectiveStartTask, Task: "t"},
		{Type: planner.DirectiveCallFunction, Function: &planner.FunctionCall{ID: "f9", Name: "launch"}},
		{Type: planner.DirectiveFinishTask},
	}}
	a := newAgent(t, api, weatherWorker(t, &weatherCalls{}))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Step(ctx)
		require.NoError(t, err)
	}
	require.Len(t, api.reports, 1)
	assert.Equal(t, "f9", api.reports[0].FunctionResult.ActionID)
	assert.Equal(t, function.StatusFailed, api.reports[0].FunctionResult.ActionStatus)
	assert.Contains(t, api.reports[0].FunctionResult.FeedbackMessage, "launch")
}

func TestStepPropagatesTransportErrors(t *testing.T) {
	api := &fakeAPI{err: errs.Transport("planner.next_task", errors.New("connection refused"))}
	a := newAgent(t, api, weatherWorker(t, &weatherCalls{}))
	_, err := a.Step(context.Background())
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Equal(t, PhaseIdle, a.Phase())
}

func TestResetOpensNewSession(t *testing.T) {
	api := &fakeAPI{directives: []*planner.Directive{
		{Type: planner.DirectiveStartTask, Task: "t"},
		{Type: planner.DirectiveStartTask, Task: "t"},
	}}
	a := newAgent(t, api, weatherWorker(t, &weatherCalls{}))
	old := a.Session().ID

	_, err := a.Step(context.Background())
	require.NoError(t, err)
	a.Reset()
	assert.NotEqual(t, old, a.Session().ID)

	s := a.Session()
	s.ID = "changed"
	assert.NotEqual(t, "changed", a.Session().ID)
	assert.Equal(t, PhaseIdle, a.Phase())

	_, err = a.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, api.sessions)
	assert.Equal(t, []string{"next", "next"}, api.calls)
}

func TestRunStopsOnContext(t *testing.T) {
	api := &fakeAPI{}
	a, err := New(context.Background(), Config{Name: "a", StateFunc: readyState},
		WithClient(api), WithStepInterval(time.Millisecond),
		WithGoalStateFunc(func(state.State) string { return "goal" }))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = a.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotEmpty(t, api.nextReqs)
	assert.Equal(t, "goal", api.nextReqs[0].GoalState)
}

func TestRunStopsOnError(t *testing.T) {
	api := &fakeAPI{err: errs.FromResponse("planner.next_task", 401, nil)}
	a := newAgent(t, api)
	assert.ErrorIs(t, a.Run(context.Background()), errs.ErrAuthentication)
}

func TestNewResolvesKeyFromCredential(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(planner.HeaderAPIKey))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"ag-7"}}`))
	}))
	defer srv.Close()

	a, err := New(context.Background(), Config{
		Name:       "a",
		Goal:       "g",
		Credential: credential.Chain(credential.Env("GAME_TEST_UNSET_KEY"), credential.Static("vault-key")),
		StateFunc:  readyState,
	}, WithPlannerOptions(planner.WithBaseURL(srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "ag-7", a.ID())
	assert.Equal(t, []string{"vault-key"}, keys)
}
