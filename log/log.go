//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

// Package log is the logging facade used by drivers, the planner client and
// plugins. The default implementation is a zap sugared logger.
package log

// Log level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Output formats accepted by SetFormat.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Default is the logger every package-level helper writes to.
// Replace it with any implementation of Logger.
var Default Logger = newZapLogger(FormatConsole)

// Logger is the logging interface used throughout trpc-game-go.
type Logger interface {
	// Debug logs to DEBUG log. Arguments are handled in the manner of fmt.Print.
	Debug(args ...any)
	// Debugf logs to DEBUG log. Arguments are handled in the manner of fmt.Printf.
	Debugf(format string, args ...any)
	// Info logs to INFO log. Arguments are handled in the manner of fmt.Print.
	Info(args ...any)
	// Infof logs to INFO log. Arguments are handled in the manner of fmt.Printf.
	Infof(format string, args ...any)
	// Warn logs to WARNING log. Arguments are handled in the manner of fmt.Print.
	Warn(args ...any)
	// Warnf logs to WARNING log. Arguments are handled in the manner of fmt.Printf.
	Warnf(format string, args ...any)
	// Error logs to ERROR log. Arguments are handled in the manner of fmt.Print.
	Error(args ...any)
	// Errorf logs to ERROR log. Arguments are handled in the manner of fmt.Printf.
	Errorf(format string, args ...any)
	// Fatal logs to FATAL log. Arguments are handled in the manner of fmt.Print.
	Fatal(args ...any)
	// Fatalf logs to FATAL log. Arguments are handled in the manner of fmt.Printf.
	Fatalf(format string, args ...any)
}

// Debug logs to DEBUG log.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs to DEBUG log.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to INFO log.
func Info(args ...any) { Default.Info(args...) }

// Infof logs to INFO log.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to WARNING log.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs to WARNING log.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to ERROR log.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs to ERROR log.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatal logs to FATAL log.
func Fatal(args ...any) { Default.Fatal(args...) }

// Fatalf logs to FATAL log.
func Fatalf(format string, args ...any) { Default.Fatalf(format, args...) }

// Tracef logs wire-level detail such as request and response bodies.
// It is written at debug level with a "[TRACE] " prefix.
func Tracef(format string, args ...any) {
	Default.Debugf("[TRACE] "+format, args...)
}

// DebugLogger writes Errorf, Warnf and Debugf calls to Default at debug
// level under Prefix. It matches the logger interface of HTTP clients
// such as resty, whose per-attempt messages callers already report.
type DebugLogger struct {
	Prefix string
}

// Errorf implements resty.Logger.
func (l DebugLogger) Errorf(format string, args ...any) { Default.Debugf(l.Prefix+format, args...) }

// Warnf implements resty.Logger.
func (l DebugLogger) Warnf(format string, args ...any) { Default.Debugf(l.Prefix+format, args...) }

// Debugf implements resty.Logger.
func (l DebugLogger) Debugf(format string, args ...any) { Default.Debugf(l.Prefix+format, args...) }
