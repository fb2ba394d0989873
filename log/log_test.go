//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) add(level string, args ...any) {
	r.lines = append(r.lines, level+" "+fmt.Sprint(args...))
}

func (r *recordingLogger) addf(level, format string, args ...any) {
	r.lines = append(r.lines, level+" "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Debug(args ...any)                 { r.add("debug", args...) }
func (r *recordingLogger) Debugf(format string, args ...any) { r.addf("debug", format, args...) }
func (r *recordingLogger) Info(args ...any)                  { r.add("info", args...) }
func (r *recordingLogger) Infof(format string, args ...any)  { r.addf("info", format, args...) }
func (r *recordingLogger) Warn(args ...any)                  { r.add("warn", args...) }
func (r *recordingLogger) Warnf(format string, args ...any)  { r.addf("warn", format, args...) }
func (r *recordingLogger) Error(args ...any)                 { r.add("error", args...) }
func (r *recordingLogger) Errorf(format string, args ...any) { r.addf("error", format, args...) }
func (r *recordingLogger) Fatal(args ...any)                 { r.add("fatal", args...) }
func (r *recordingLogger) Fatalf(format string, args ...any) { r.addf("fatal", format, args...) }

func TestPackageHelpersForwardToDefault(t *testing.T) {
	orig := Default
	defer func() { Default = orig }()

	rec := &recordingLogger{}
	Default = rec

	Debug("a")
	Infof("b %d", 1)
	Warn("c")
	Errorf("d %s", "x")
	Tracef("body=%s", "{}")

	assert.Equal(t, []string{
		"debug a",
		"info b 1",
		"warn c",
		"error d x",
		"debug [TRACE] body={}",
	}, rec.lines)
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			SetLevel(tt.in)
			assert.Equal(t, tt.want, zapLevel.Level())
		})
	}
}

func TestSetFormatKeepsLevel(t *testing.T) {
	orig := Default
	defer func() {
		Default = orig
		SetLevel(LevelInfo)
	}()

	SetLevel(LevelError)
	SetFormat(FormatJSON)
	assert.NotSame(t, orig, Default)
	assert.Equal(t, zapcore.ErrorLevel, zapLevel.Level())
	Info("suppressed")
}

func TestDebugLoggerDemotesToDebug(t *testing.T) {
	orig := Default
	defer func() { Default = orig }()

	rec := &recordingLogger{}
	Default = rec

	l := DebugLogger{Prefix: "http: "}
	l.Errorf("attempt %d", 1)
	l.Warnf("slow")
	l.Debugf("body=%s", "{}")

	assert.Equal(t, []string{"debug http: attempt 1", "debug http: slow", "debug http: body={}"}, rec.lines)
}
