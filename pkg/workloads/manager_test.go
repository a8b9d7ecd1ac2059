// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package workloads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/local"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
)

func TestCreateTracksOwnership(t *testing.T) {
	t.Parallel()

	m := NewManager(runtime.BackendLocal)
	m.Register(local.New())

	session, err := m.Create(context.Background(), "", runtime.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "local", session.ID)

	tag, ok := m.knownOwner("local")
	assert.True(t, ok)
	assert.Equal(t, runtime.BackendLocal, tag)
}

func TestGetProbesUnknownSession(t *testing.T) {
	t.Parallel()

	m := NewManager(runtime.BackendLocal)
	m.Register(local.New())

	session, err := m.Get(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, "local", session.ID)
}

func TestDestroyUnknownSession(t *testing.T) {
	t.Parallel()

	m := NewManager(runtime.BackendLocal)
	m.Register(local.New())

	err := m.Destroy(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestBackendUnavailable(t *testing.T) {
	t.Parallel()

	m := NewManager(runtime.BackendDocker)
	_, err := m.Backend(runtime.BackendDocker)
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	t.Parallel()

	m := NewManager(runtime.BackendDocker)
	m.SetDefault(runtime.BackendRemote)
	assert.Equal(t, runtime.BackendRemote, m.Default())
}
