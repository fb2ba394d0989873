//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Command gamesim serves a scripted planner for local development.
//
// Usage:
//
//	gamesim -script simulator/testdata/weather.yaml
//	gamesim -script weather.yaml -addr :9090 -api-key secret -log-level debug
//
// Point an agent at it with GAME_API_BASE_URL=http://localhost:8080.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trpc.group/trpc-go/trpc-game-go/log"
	"trpc.group/trpc-go/trpc-game-go/simulator"
)

const defaultListenAddr = ":8080"

func main() {
	addr := flag.String("addr", defaultListenAddr, "Listen address")
	scriptPath := flag.String("script", "", "Path of the YAML script to replay")
	apiKey := flag.String("api-key", "", "API key to require, overriding the script")
	level := flag.String("log-level", log.LevelInfo, "Log level")
	flag.Parse()

	log.SetLevel(*level)

	var script simulator.Script
	if *scriptPath != "" {
		s, err := simulator.LoadScript(*scriptPath)
		if err != nil {
			log.Fatalf("gamesim: %v", err)
		}
		script = s
	}
	if *apiKey != "" {
		script.APIKey = *apiKey
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           simulator.New(script),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("gamesim: shutdown: %v", err)
		}
	}()

	log.Infof("gamesim: %d directives, %d actions, listening on %s",
		len(script.Directives), len(script.Actions), *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("gamesim: %v", err)
	}
}
