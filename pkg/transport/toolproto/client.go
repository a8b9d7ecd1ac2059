// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package toolproto is the client half of the tool protocol: a single-shot
// HTTP request/response against a worker's /mcp endpoint.
package toolproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

// DefaultCallTimeout bounds a tools/call request.
const DefaultCallTimeout = 300 * time.Second

// MetadataTimeout bounds tools/list and other metadata-only requests.
const MetadataTimeout = 30 * time.Second

// Client speaks the tool protocol against one worker base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Client targeting baseURL (e.g. "http://localhost:8088").
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

type wireRequest struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *wireError      `json:"error"`
}

// ToolsList calls tools/list with the default metadata deadline and returns
// the raw result payload.
func (c *Client) ToolsList(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, MetadataTimeout)
	defer cancel()
	return c.call(ctx, "tools/list", nil)
}

// ToolsCall invokes tools/call for name with arguments, applying the default
// call deadline unless the context already carries a shorter one.
func (c *Client) ToolsCall(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()
	params := map[string]any{"name": name, "arguments": arguments}
	return c.call(ctx, "tools/call", params)
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(wireRequest{ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode tool protocol request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mcp", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewTransportError("failed to build tool protocol request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.NewBackendUnavailableError(fmt.Sprintf("worker at %s unreachable", c.BaseURL), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("failed to read tool protocol response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewExecFailedError(
			fmt.Sprintf("worker returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, errors.NewTransportError("failed to decode tool protocol response", err)
	}
	if wr.Error != nil {
		return nil, errors.NewExecFailedError(wr.Error.Message, nil)
	}
	return wr.Result, nil
}

// Ready performs a single GET against the worker root, returning true on 200.
func (c *Client) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
