// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors holds the sentinel errors for transport-level failures:
// malformed frames and unrecognized methods, as distinguished from
// application-level tool errors which travel as ordinary result data.
package errors

import "errors"

var (
	// ErrParse marks a request line that could not be decoded as JSON.
	ErrParse = errors.New("parse error")
	// ErrMethodNotFound marks a request naming a method the daemon doesn't dispatch.
	ErrMethodNotFound = errors.New("method not found")
	// ErrRouteNotFound marks a forward whose session_id has no registered route.
	ErrRouteNotFound = errors.New("route not found")
	// ErrSessionNotRunning marks a forward targeting a session that is not running.
	ErrSessionNotRunning = errors.New("session not running")
)

// Code maps a sentinel transport error to its JSON-RPC-style numeric code.
func Code(err error) int {
	switch {
	case errors.Is(err, ErrParse):
		return -32700
	case errors.Is(err, ErrMethodNotFound):
		return -32601
	default:
		return -32603 // internal error
	}
}
