// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package workloads

import (
	"context"
	"sync"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

// Manager owns the backend instances and tracks which backend owns each
// session, so destroy/get/exec/call route to the right one without the
// caller needing to know.
type Manager struct {
	mu      sync.RWMutex
	backends map[runtime.BackendTag]runtime.Backend
	owners   map[string]runtime.BackendTag
	def      runtime.BackendTag
}

// NewManager constructs a Manager. defaultBackend governs Create when the
// caller passes none (conventionally Docker if reachable, else remote).
func NewManager(defaultBackend runtime.BackendTag) *Manager {
	return &Manager{
		backends: make(map[runtime.BackendTag]runtime.Backend),
		owners:   make(map[string]runtime.BackendTag),
		def:      defaultBackend,
	}
}

// Register installs a concrete backend under its tag.
func (m *Manager) Register(b runtime.Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[b.Tag()] = b
}

// SetDefault changes which backend Create uses when the caller passes none.
func (m *Manager) SetDefault(tag runtime.BackendTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = tag
}

// Default returns the current default backend tag.
func (m *Manager) Default() runtime.BackendTag {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def
}

// Backend returns the concrete backend for tag, or a backend-unavailable
// error if it was never registered (e.g. Docker when the socket is unreachable).
func (m *Manager) Backend(tag runtime.BackendTag) (runtime.Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.backends[tag]
	if !ok {
		return nil, errors.NewBackendUnavailableError(string(tag)+" backend is not available", nil)
	}
	return b, nil
}

// Create resolves the target backend (tag, or the current default when
// empty), creates the session, and records ownership.
func (m *Manager) Create(ctx context.Context, tag runtime.BackendTag, opts runtime.CreateOptions) (*runtime.Session, error) {
	if tag == "" {
		tag = m.Default()
	}
	b, err := m.Backend(tag)
	if err != nil {
		return nil, err
	}

	session, err := b.Create(ctx, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.owners[session.ID] = tag
	m.mu.Unlock()

	return session, nil
}

// Destroy routes to the owning backend and drops the ownership entry on success.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	tag, err := m.ownerOf(ctx, sessionID)
	if err != nil {
		return err
	}
	b, err := m.Backend(tag)
	if err != nil {
		return err
	}
	if err := b.Destroy(ctx, sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.owners, sessionID)
	m.mu.Unlock()
	return nil
}

// Get consults the ownership map first; on a miss it probes every backend
// in turn and returns the first hit.
func (m *Manager) Get(ctx context.Context, sessionID string) (*runtime.Session, error) {
	if tag, ok := m.knownOwner(sessionID); ok {
		b, err := m.Backend(tag)
		if err != nil {
			return nil, err
		}
		return b.Get(ctx, sessionID)
	}

	for _, tag := range m.allTags() {
		b, err := m.Backend(tag)
		if err != nil {
			continue
		}
		session, err := b.Get(ctx, sessionID)
		if err == nil && session != nil {
			m.mu.Lock()
			m.owners[sessionID] = tag
			m.mu.Unlock()
			return session, nil
		}
	}
	return nil, errors.NewNotFoundError("no such session: "+sessionID, nil)
}

// List aggregates List across every registered backend.
func (m *Manager) List(ctx context.Context) ([]*runtime.Session, error) {
	var all []*runtime.Session
	for _, tag := range m.allTags() {
		b, err := m.Backend(tag)
		if err != nil {
			continue
		}
		sessions, err := b.List(ctx)
		if err != nil {
			continue
		}
		all = append(all, sessions...)
	}
	return all, nil
}

func (m *Manager) allTags() []runtime.BackendTag {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]runtime.BackendTag, 0, len(m.backends))
	for tag := range m.backends {
		tags = append(tags, tag)
	}
	return tags
}

func (m *Manager) knownOwner(sessionID string) (runtime.BackendTag, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.owners[sessionID]
	return tag, ok
}

func (m *Manager) ownerOf(ctx context.Context, sessionID string) (runtime.BackendTag, error) {
	if tag, ok := m.knownOwner(sessionID); ok {
		return tag, nil
	}
	if _, err := m.Get(ctx, sessionID); err != nil {
		return "", err
	}
	if tag, ok := m.knownOwner(sessionID); ok {
		return tag, nil
	}
	return "", errors.NewNotFoundError("no such session: "+sessionID, nil)
}

// ExecOn forwards to the owning backend's Exec.
func (m *Manager) ExecOn(ctx context.Context, sessionID, command string, opts runtime.ExecOptions) (*runtime.ExecResult, error) {
	tag, err := m.ownerOf(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	b, err := m.Backend(tag)
	if err != nil {
		return nil, err
	}
	return b.Exec(ctx, sessionID, command, opts)
}

// CallOn forwards to the owning backend's Call.
func (m *Manager) CallOn(ctx context.Context, sessionID, toolName string, args map[string]any) (map[string]any, error) {
	tag, err := m.ownerOf(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	b, err := m.Backend(tag)
	if err != nil {
		return nil, err
	}
	return b.Call(ctx, sessionID, toolName, args)
}
