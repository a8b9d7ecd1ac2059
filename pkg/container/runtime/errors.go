// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors describing the possible states a backend target can be in,
// matched with errors.Is through ContainerError's Unwrap.
var (
	ErrContainerNotFound   = errors.New("container not found")
	ErrContainerExited     = errors.New("container exited unexpectedly")
	ErrContainerNotRunning = errors.New("container not running")
	ErrContainerRemoved    = errors.New("container removed")
	ErrOperationForbidden  = errors.New("operation not permitted on this target")
)

// ContainerError wraps a sentinel with the target id and a human message, so
// callers can match the class with errors.Is while still logging specifics.
type ContainerError struct {
	Err         error
	ContainerID string
	Message     string
}

func (e *ContainerError) Error() string {
	switch {
	case e.Message != "" && e.ContainerID != "":
		return fmt.Sprintf("%s: %s (container: %s)", e.Err, e.Message, e.ContainerID)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	case e.ContainerID != "":
		return fmt.Sprintf("%s (container: %s)", e.Err, e.ContainerID)
	default:
		return e.Err.Error()
	}
}

func (e *ContainerError) Unwrap() error { return e.Err }

// NewContainerError builds a ContainerError around one of the sentinels above.
func NewContainerError(err error, containerID, message string) *ContainerError {
	return &ContainerError{Err: err, ContainerID: containerID, Message: message}
}

// IsContainerNotFound reports whether err is or wraps ErrContainerNotFound.
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

// IsContainerExited reports whether err is or wraps ErrContainerExited.
func IsContainerExited(err error) bool {
	return errors.Is(err, ErrContainerExited)
}

// IsContainerNotRunning reports whether err is or wraps ErrContainerNotRunning.
func IsContainerNotRunning(err error) bool {
	return errors.Is(err, ErrContainerNotRunning)
}

// IsOperationForbidden reports whether err is or wraps ErrOperationForbidden.
func IsOperationForbidden(err error) bool {
	return errors.Is(err, ErrOperationForbidden)
}
