// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package workloads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("sess-1", "http://localhost:9000")

	endpoint, err := r.Resolve("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", endpoint)
	assert.Equal(t, 1, r.Count())
}

func TestResolveMiss(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Resolve("does-not-exist")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("sess-1", "http://localhost:9000")
	r.Remove("sess-1")

	_, err := r.Resolve("sess-1")
	assert.Error(t, err)
	assert.Equal(t, 0, r.Count())
}
