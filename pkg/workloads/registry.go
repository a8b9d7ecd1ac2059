// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package workloads owns the session/route registry and the backend
// manager: the router's authoritative map from session id to endpoint, and
// the tracking of which backend owns each session.
package workloads

import (
	"sync"

	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

// Route is the router's view of where a session's worker lives.
type Route struct {
	SessionID string
	Endpoint  string
}

// Registry is the single source of truth for session → endpoint lookups.
// Every mutation is brief; the lock is never held across network I/O.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]string)}
}

// Register adds or replaces the route for sessionID. Called strictly after
// the owning backend reports a successful create, and before that create
// call returns to its caller.
func (r *Registry) Register(sessionID, endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[sessionID] = endpoint
}

// Remove deletes the route for sessionID. Called strictly after a
// successful destroy.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, sessionID)
}

// Resolve looks up the endpoint for sessionID. A miss is a routing error,
// not a transport error — callers report it as an isError:true result.
func (r *Registry) Resolve(sessionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoint, ok := r.routes[sessionID]
	if !ok {
		return "", errors.NewRoutingError("no route registered for session "+sessionID, nil)
	}
	return endpoint, nil
}

// Count returns the number of live routes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
