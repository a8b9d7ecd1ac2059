// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
)

func TestInitialDefaultBackend(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		configured      string
		dockerReachable bool
		remoteEnabled   bool
		want            runtime.BackendTag
	}{
		{"docker reachable uses docker", "docker", true, true, runtime.BackendDocker},
		{"docker unreachable falls back to remote", "docker", false, true, runtime.BackendRemote},
		{"docker unreachable and no remote falls back to local", "docker", false, false, runtime.BackendLocal},
		{"empty configured behaves like built-in default", "", true, true, runtime.BackendDocker},
		{"explicit override wins even if docker reachable", "remote", true, true, runtime.BackendRemote},
		{"explicit override to local always wins", "local", false, false, runtime.BackendLocal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := initialDefaultBackend(tc.configured, tc.dockerReachable, tc.remoteEnabled)
			assert.Equal(t, tc.want, got)
		})
	}
}
