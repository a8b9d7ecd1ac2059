// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package toolproto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"result":{"tools":[{"name":"shell"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.ToolsList(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(result), "shell")
}

func TestToolsCall_BackendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"error":{"code":1,"message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ToolsCall(context.Background(), "shell", map[string]any{"command": "echo hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestToolsCall_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ToolsCall(context.Background(), "shell", nil)
	require.Error(t, err)
}

func TestReady(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.True(t, c.Ready(context.Background()))
}

func TestToolsCall_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/call", req["method"])
		_, _ = w.Write([]byte(`{"id":1,"result":{"content":[{"type":"text","text":"hi"}],"isError":false}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.ToolsCall(context.Background(), "shell", map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Contains(t, string(result), "hi")
}
