//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-game-go/function"
	"trpc.group/trpc-go/trpc-game-go/state"
	"trpc.group/trpc-go/trpc-game-go/worker"
)

func newRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestRunBoundsParallelism(t *testing.T) {
	r := newRunner(t, WithParallelism(2))
	var running, peak, done atomic.Int32

	var jobs []Job
	for i := 0; i < 6; i++ {
		jobs = append(jobs, Func("job", func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
			return nil
		}))
	}
	require.NoError(t, r.Run(context.Background(), jobs...))
	assert.Equal(t, int32(6), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunJoinsFailures(t *testing.T) {
	r := newRunner(t)
	errA := errors.New("a broke")
	err := r.Run(context.Background(),
		Func("a", func(context.Context) error { return errA }),
		Func("b", func(context.Context) error { panic("b exploded") }),
		Func("c", func(context.Context) error { return nil }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "a: a broke")
	assert.Contains(t, err.Error(), "b: panic: b exploded")
}

func TestStopOnErrorCancelsOthers(t *testing.T) {
	r := newRunner(t, WithStopOnError(true))
	started := make(chan struct{})
	err := r.Run(context.Background(),
		Func("long", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}),
		Func("bad", func(context.Context) error {
			<-started
			return errors.New("bad")
		}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: bad")
	assert.NotContains(t, err.Error(), "long")
}

func TestCancelledParentIsNotFailure(t *testing.T) {
	r := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, Func("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	assert.NoError(t, err)
}

func TestWorkerJob(t *testing.T) {
	cfg, err := worker.NewConfig("w", "d",
		func(*function.Result, state.State) state.State { return state.State{} }, nil)
	require.NoError(t, err)
	w, err := worker.New(cfg)
	require.NoError(t, err)

	job := WorkerJob(w, "task")
	assert.Equal(t, "worker/w", job.Name())
	err = newRunner(t).Run(context.Background(), job)
	assert.ErrorIs(t, err, worker.ErrNoClient)
}
