// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package local implements the host-machine backend: exec and file I/O run
// directly against the daemon's own filesystem and process table.
package local

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

// sessionID is the single synthetic session every Backend exposes.
const sessionID = "local"

// defaultExecTimeout bounds Exec when the caller doesn't supply one.
const defaultExecTimeout = 300 * time.Second

// Backend is the host-machine execution target. It exposes exactly one
// synthetic session and never supports generic tool Call — that path is
// handled by the worker protocol instead (see pkg/supervisor).
type Backend struct {
	startedAt time.Time
}

// New constructs a local Backend.
func New() *Backend {
	return &Backend{startedAt: time.Now()}
}

// Tag identifies this backend as "local".
func (*Backend) Tag() runtime.BackendTag { return runtime.BackendLocal }

// Create returns the singleton "local" session; it never provisions anything.
func (b *Backend) Create(_ context.Context, _ runtime.CreateOptions) (*runtime.Session, error) {
	return b.localSession(), nil
}

// Destroy always fails: the local session cannot be torn down.
func (*Backend) Destroy(_ context.Context, id string) error {
	if id != sessionID {
		return runtime.NewContainerError(runtime.ErrContainerNotFound, id, "not a local session")
	}
	return runtime.NewContainerError(runtime.ErrOperationForbidden, id, "the local session cannot be destroyed")
}

// List always returns the singleton session.
func (b *Backend) List(_ context.Context) ([]*runtime.Session, error) {
	return []*runtime.Session{b.localSession()}, nil
}

// Get returns the singleton session if id matches, else not-found.
func (b *Backend) Get(_ context.Context, id string) (*runtime.Session, error) {
	if id != sessionID {
		return nil, errors.NewNotFoundError("no such local session: "+id, nil)
	}
	return b.localSession(), nil
}

func (b *Backend) localSession() *runtime.Session {
	return &runtime.Session{
		ID:        sessionID,
		Name:      sessionID,
		Backend:   runtime.BackendLocal,
		Status:    runtime.StatusRunning,
		CreatedAt: b.startedAt,
	}
}

// Exec runs command in a shell on the host, capturing stdout/stderr
// separately and applying opts.Timeout (default 300s) as a dedicated
// timeout error distinct from a generic exec failure.
func (*Backend) Exec(ctx context.Context, _ string, command string, opts runtime.ExecOptions) (*runtime.ExecResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewTimeoutError("command timed out after "+timeout.String(), ctx.Err())
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return &runtime.ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// Read returns the contents of path on the host filesystem.
func (*Backend) Read(_ context.Context, _ string, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewFileError("failed to read "+path, err)
	}
	return string(data), nil
}

// Write writes text to path, creating missing parent directories.
func (*Backend) Write(_ context.Context, _ string, path string, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewFileError("failed to create parent directories for "+path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.NewFileError("failed to write "+path, err)
	}
	return nil
}

// Call is intentionally unsupported: local tool calls run through the
// worker protocol (pkg/supervisor), not through this backend.
func (*Backend) Call(_ context.Context, _ string, toolName string, _ map[string]any) (map[string]any, error) {
	return nil, errors.NewInvalidArgumentError("local backend does not support generic tool calls: "+toolName, nil)
}

// Health is always nil: the host is always "reachable" to itself.
func (*Backend) Health(_ context.Context) error { return nil }
