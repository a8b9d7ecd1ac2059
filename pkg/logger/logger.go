// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the gateway's process-wide structured logger.
//
// It is a single atomic singleton configured once at daemon startup
// (Initialize) and read by every call site through package-level functions,
// so the router, backends, supervisor and registry never thread a logger
// parameter through their constructors — the same shape as the teacher's
// own pkg/logger.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/go-logr/logr"
)

var singleton atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(slog.NewTextHandler(os.Stderr, nil))
	singleton.Store(l)
}

// EnvReader abstracts environment lookups so Initialize's configuration
// logic can be tested without mutating the real process environment.
type EnvReader interface {
	Getenv(key string) string
}

type osEnvReader struct{}

func (osEnvReader) Getenv(key string) string { return os.Getenv(key) }

// Initialize configures the singleton logger from the real OS environment.
func Initialize() {
	InitializeWithEnv(osEnvReader{})
}

// InitializeWithEnv configures the singleton logger using r to read
// environment variables, letting tests stub out the environment.
func InitializeWithEnv(r EnvReader) {
	level := levelFromEnv(r)
	var handler slog.Handler
	if unstructuredLogsWithEnv(r) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	singleton.Store(slog.New(handler))
}

func levelFromEnv(r EnvReader) slog.Level {
	switch r.Getenv("ASH_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// unstructuredLogsWithEnv mirrors the teacher's default-true, explicit-false
// parsing of UNSTRUCTURED_LOGS: any unrecognized value is treated as true.
func unstructuredLogsWithEnv(r EnvReader) bool {
	return r.Getenv("UNSTRUCTURED_LOGS") != "false"
}

// Get returns the current singleton logger.
func Get() *slog.Logger {
	if l := singleton.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// NewLogr adapts the singleton logger to the logr.Logger interface for
// libraries that expect one. No package in this module calls it.
func NewLogr() logr.Logger {
	return logr.FromSlogHandler(Get().Handler())
}

// Debug logs at debug level.
func Debug(msg string) { Get().Debug(msg) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { Get().Debug(fmt.Sprintf(format, args...)) }

// Debugw logs a message with structured key-value pairs at debug level.
func Debugw(msg string, kv ...any) { Get().Debug(msg, kv...) }

// Info logs at info level.
func Info(msg string) { Get().Info(msg) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { Get().Info(fmt.Sprintf(format, args...)) }

// Infow logs a message with structured key-value pairs at info level.
func Infow(msg string, kv ...any) { Get().Info(msg, kv...) }

// Warn logs at warn level.
func Warn(msg string) { Get().Warn(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { Get().Warn(fmt.Sprintf(format, args...)) }

// Warnw logs a message with structured key-value pairs at warn level.
func Warnw(msg string, kv ...any) { Get().Warn(msg, kv...) }

// Error logs at error level.
func Error(msg string) { Get().Error(msg) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { Get().Error(fmt.Sprintf(format, args...)) }

// Errorw logs a message with structured key-value pairs at error level.
func Errorw(msg string, kv ...any) { Get().Error(msg, kv...) }

// DPanic logs at error level then panics; reserved for invariant violations
// that should only ever fire during development.
func DPanic(msg string) { Get().Error(msg); panic(msg) }

// DPanicf formats then behaves like DPanic.
func DPanicf(format string, args ...any) { DPanic(fmt.Sprintf(format, args...)) }

// DPanicw logs structured kv at error level then panics.
func DPanicw(msg string, kv ...any) {
	Get().Error(msg, kv...)
	panic(msg)
}

// Panic logs at error level then panics.
func Panic(msg string) { Get().Error(msg); panic(msg) }

// Panicf formats then behaves like Panic.
func Panicf(format string, args ...any) { Panic(fmt.Sprintf(format, args...)) }

// Panicw logs structured kv at error level then panics.
func Panicw(msg string, kv ...any) {
	Get().Error(msg, kv...)
	panic(msg)
}
