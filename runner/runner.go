//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package runner runs many agents and workers side by side, one goroutine
// each, on a bounded ants pool. Jobs share nothing.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-game-go/agent"
	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/worker"
)

const defaultParallelism = 16

// Job is one independent driver loop.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type jobFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (j jobFunc) Name() string                  { return j.name }
func (j jobFunc) Run(ctx context.Context) error { return j.fn(ctx) }

// Func wraps fn as a Job.
func Func(name string, fn func(ctx context.Context) error) Job {
	return jobFunc{name: name, fn: fn}
}

// AgentJob runs a until its context is done.
func AgentJob(a *agent.Agent) Job {
	return Func("agent/"+a.Name(), a.Run)
}

// AgentSteps runs exactly n steps of a.
func AgentSteps(a *agent.Agent, n int) Job {
	return Func("agent/"+a.Name(), func(ctx context.Context) error {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := a.Step(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// WorkerJob runs w on task until the planner answers wait.
func WorkerJob(w *worker.Worker, task string) Job {
	return Func("worker/"+w.ID(), func(ctx context.Context) error {
		return w.Run(ctx, task)
	})
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	parallelism int
	stopOnError bool
}

// WithParallelism bounds how many jobs run at once.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithStopOnError cancels the remaining jobs after the first failure.
func WithStopOnError(stop bool) Option {
	return func(o *options) {
		o.stopOnError = stop
	}
}

// Runner owns the goroutine pool. Call Release when done.
type Runner struct {
	pool *ants.Pool
	opts options
}

// New creates a runner.
func New(opts ...Option) (*Runner, error) {
	o := options{parallelism: defaultParallelism}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism <= 0 {
		o.parallelism = defaultParallelism
	}
	pool, err := ants.NewPool(o.parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create job pool: %w", err)
	}
	return &Runner{pool: pool, opts: o}, nil
}

// Release stops the pool.
func (r *Runner) Release() {
	r.pool.Release()
}

// Run executes jobs and waits for all of them. Failures are joined, each
// prefixed with the job name. A job that stops because ctx was cancelled
// is not a failure.
func (r *Runner) Run(ctx context.Context, jobs ...Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
		if r.opts.stopOnError {
			cancel()
		}
	}

	for _, job := range jobs {
		wg.Add(1)
		j := job
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Errorf("runner: job %s panicked: %v", j.Name(), p)
					fail(fmt.Errorf("%s: panic: %v", j.Name(), p))
				}
			}()
			log.Debugf("runner: starting job %s", j.Name())
			err := j.Run(ctx)
			switch {
			case err == nil:
				log.Debugf("runner: job %s finished", j.Name())
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				log.Debugf("runner: job %s stopped: %v", j.Name(), err)
			default:
				log.Warnf("runner: job %s failed: %v", j.Name(), err)
				fail(fmt.Errorf("%s: %w", j.Name(), err))
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("%s: submit: %w", j.Name(), err))
		}
	}
	wg.Wait()
	return errors.Join(failures...)
}
