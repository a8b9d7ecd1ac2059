// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the gateway's application-level error taxonomy.
//
// These are semantic error kinds, not transport errors: a session-management
// handler that fails returns one of these wrapped into an isError result, never
// a JSON-RPC error envelope. See pkg/transport/errors for the transport-level
// codes.
package errors

import "fmt"

// Type identifies the semantic kind of an application error.
type Type string

// The closed set of application error kinds the gateway produces.
const (
	ErrInvalidArgument        Type = "invalid_argument"
	ErrContainerRuntime       Type = "container_runtime"
	ErrContainerNotFound      Type = "container_not_found"
	ErrContainerAlreadyExists Type = "container_already_exists"
	ErrContainerNotRunning    Type = "container_not_running"
	ErrContainerAlreadyRunning Type = "container_already_running"
	ErrRunConfigNotFound      Type = "run_config_not_found"
	ErrGroupAlreadyExists     Type = "group_already_exists"
	ErrGroupNotFound          Type = "group_not_found"
	ErrTransport              Type = "transport"
	ErrPermissions            Type = "permissions"
	ErrInternal               Type = "internal"
	ErrRoutingError           Type = "routing_error"
	ErrBackendUnavailable     Type = "backend_unavailable"
	ErrCreateFailed           Type = "create_failed"
	ErrDestroyFailed          Type = "destroy_failed"
	ErrExecFailed             Type = "exec_failed"
	ErrFileError              Type = "file_error"
	ErrTimeout                Type = "timeout"
	ErrConflict               Type = "conflict"
	ErrNotFound               Type = "not_found"
)

// Error is the gateway's application-level error. It carries a Type for
// programmatic dispatch, a human message, and an optional wrapped cause.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an *Error of the given type.
func NewError(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// NewInvalidArgumentError builds an ErrInvalidArgument.
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewContainerRuntimeError builds an ErrContainerRuntime.
func NewContainerRuntimeError(message string, cause error) *Error {
	return NewError(ErrContainerRuntime, message, cause)
}

// NewContainerNotFoundError builds an ErrContainerNotFound.
func NewContainerNotFoundError(message string, cause error) *Error {
	return NewError(ErrContainerNotFound, message, cause)
}

// NewContainerAlreadyExistsError builds an ErrContainerAlreadyExists.
func NewContainerAlreadyExistsError(message string, cause error) *Error {
	return NewError(ErrContainerAlreadyExists, message, cause)
}

// NewContainerNotRunningError builds an ErrContainerNotRunning.
func NewContainerNotRunningError(message string, cause error) *Error {
	return NewError(ErrContainerNotRunning, message, cause)
}

// NewContainerAlreadyRunningError builds an ErrContainerAlreadyRunning.
func NewContainerAlreadyRunningError(message string, cause error) *Error {
	return NewError(ErrContainerAlreadyRunning, message, cause)
}

// NewRunConfigNotFoundError builds an ErrRunConfigNotFound.
func NewRunConfigNotFoundError(message string, cause error) *Error {
	return NewError(ErrRunConfigNotFound, message, cause)
}

// NewGroupAlreadyExistsError builds an ErrGroupAlreadyExists.
func NewGroupAlreadyExistsError(message string, cause error) *Error {
	return NewError(ErrGroupAlreadyExists, message, cause)
}

// NewGroupNotFoundError builds an ErrGroupNotFound.
func NewGroupNotFoundError(message string, cause error) *Error {
	return NewError(ErrGroupNotFound, message, cause)
}

// NewTransportError builds an ErrTransport.
func NewTransportError(message string, cause error) *Error {
	return NewError(ErrTransport, message, cause)
}

// NewPermissionsError builds an ErrPermissions.
func NewPermissionsError(message string, cause error) *Error {
	return NewError(ErrPermissions, message, cause)
}

// NewInternalError builds an ErrInternal.
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

// NewRoutingError builds an ErrRoutingError: an unknown session id on a forward.
func NewRoutingError(message string, cause error) *Error {
	return NewError(ErrRoutingError, message, cause)
}

// NewBackendUnavailableError builds an ErrBackendUnavailable.
func NewBackendUnavailableError(message string, cause error) *Error {
	return NewError(ErrBackendUnavailable, message, cause)
}

// NewCreateFailedError builds an ErrCreateFailed.
func NewCreateFailedError(message string, cause error) *Error {
	return NewError(ErrCreateFailed, message, cause)
}

// NewDestroyFailedError builds an ErrDestroyFailed.
func NewDestroyFailedError(message string, cause error) *Error {
	return NewError(ErrDestroyFailed, message, cause)
}

// NewExecFailedError builds an ErrExecFailed.
func NewExecFailedError(message string, cause error) *Error {
	return NewError(ErrExecFailed, message, cause)
}

// NewFileError builds an ErrFileError.
func NewFileError(message string, cause error) *Error {
	return NewError(ErrFileError, message, cause)
}

// NewTimeoutError builds an ErrTimeout.
func NewTimeoutError(message string, cause error) *Error {
	return NewError(ErrTimeout, message, cause)
}

// NewConflictError builds an ErrConflict.
func NewConflictError(message string, cause error) *Error {
	return NewError(ErrConflict, message, cause)
}

// NewNotFoundError builds an ErrNotFound.
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// isType reports whether err is an *Error of type t.
func isType(err error, t Type) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Type == t
}

// IsInvalidArgument reports whether err is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return isType(err, ErrInvalidArgument) }

// IsContainerRuntime reports whether err is an ErrContainerRuntime.
func IsContainerRuntime(err error) bool { return isType(err, ErrContainerRuntime) }

// IsContainerNotFound reports whether err is an ErrContainerNotFound.
func IsContainerNotFound(err error) bool { return isType(err, ErrContainerNotFound) }

// IsContainerAlreadyExists reports whether err is an ErrContainerAlreadyExists.
func IsContainerAlreadyExists(err error) bool { return isType(err, ErrContainerAlreadyExists) }

// IsContainerNotRunning reports whether err is an ErrContainerNotRunning.
func IsContainerNotRunning(err error) bool { return isType(err, ErrContainerNotRunning) }

// IsContainerAlreadyRunning reports whether err is an ErrContainerAlreadyRunning.
func IsContainerAlreadyRunning(err error) bool { return isType(err, ErrContainerAlreadyRunning) }

// IsRunConfigNotFound reports whether err is an ErrRunConfigNotFound.
func IsRunConfigNotFound(err error) bool { return isType(err, ErrRunConfigNotFound) }

// IsGroupAlreadyExists reports whether err is an ErrGroupAlreadyExists.
func IsGroupAlreadyExists(err error) bool { return isType(err, ErrGroupAlreadyExists) }

// IsGroupNotFound reports whether err is an ErrGroupNotFound.
func IsGroupNotFound(err error) bool { return isType(err, ErrGroupNotFound) }

// IsTransport reports whether err is an ErrTransport.
func IsTransport(err error) bool { return isType(err, ErrTransport) }

// IsPermissions reports whether err is an ErrPermissions.
func IsPermissions(err error) bool { return isType(err, ErrPermissions) }

// IsInternal reports whether err is an ErrInternal.
func IsInternal(err error) bool { return isType(err, ErrInternal) }

// IsRoutingError reports whether err is an ErrRoutingError.
func IsRoutingError(err error) bool { return isType(err, ErrRoutingError) }

// IsBackendUnavailable reports whether err is an ErrBackendUnavailable.
func IsBackendUnavailable(err error) bool { return isType(err, ErrBackendUnavailable) }

// IsTimeout reports whether err is an ErrTimeout.
func IsTimeout(err error) bool { return isType(err, ErrTimeout) }

// IsConflict reports whether err is an ErrConflict.
func IsConflict(err error) bool { return isType(err, ErrConflict) }

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool { return isType(err, ErrNotFound) }
