// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package remote implements the cluster backend: create/destroy forward to
// a control-plane HTTP API, and tool calls forward to a cluster gateway
// stamped with the session id in a header.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

// Config configures a Backend instance.
type Config struct {
	ControlPlaneURL string
	GatewayURL      string
	DefaultImage    string
	Timeout         time.Duration
}

// Backend forwards session lifecycle to a control plane and tool calls to a
// cluster gateway; it has no local container management of its own.
type Backend struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.RWMutex
	sessions map[string]*runtime.Session
}

// New constructs a Backend from cfg, defaulting an empty Timeout to 300s.
func New(cfg Config) *Backend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &Backend{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sessions:   make(map[string]*runtime.Session),
	}
}

// Tag identifies this backend as "remote".
func (*Backend) Tag() runtime.BackendTag { return runtime.BackendRemote }

type spawnPort struct {
	ContainerPort int `json:"container_port"`
}

type spawnResources struct {
	Requests map[string]string `json:"requests,omitempty"`
	Limits   map[string]string `json:"limits,omitempty"`
}

type spawnRequest struct {
	Image       string            `json:"image"`
	Ports       []spawnPort       `json:"ports"`
	Name        string            `json:"name,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	NodeSelector map[string]string `json:"node_selector,omitempty"`
	Resources   *spawnResources   `json:"resources,omitempty"`
}

type spawnResponse struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Host   string `json:"host"`
	Ports  []struct {
		ContainerPort int `json:"container_port"`
		HostPort      int `json:"host_port"`
	} `json:"ports"`
}

// Create POSTs a spawn request to the control plane and caches the result.
func (b *Backend) Create(ctx context.Context, opts runtime.CreateOptions) (*runtime.Session, error) {
	image := opts.Image
	if image == "" {
		image = b.cfg.DefaultImage
	}

	ports := opts.Ports
	if len(ports) == 0 {
		ports = []int{3000}
	}
	req := spawnRequest{Image: image, Name: opts.Name, Env: opts.Env}
	for _, p := range ports {
		req.Ports = append(req.Ports, spawnPort{ContainerPort: p})
	}
	if len(opts.Labels) > 0 {
		req.NodeSelector = opts.Labels
	}
	if opts.Resources != nil {
		req.Resources = &spawnResources{
			Requests: nonEmpty(map[string]string{"cpu": opts.Resources.CPURequest, "memory": opts.Resources.MemoryRequest}),
			Limits:   nonEmpty(map[string]string{"cpu": opts.Resources.CPULimit, "memory": opts.Resources.MemoryLimit}),
		}
	}

	var resp spawnResponse
	if err := b.post(ctx, b.cfg.ControlPlaneURL+"/spawn", req, &resp); err != nil {
		return nil, errors.NewCreateFailedError("control plane spawn failed", err)
	}

	var portBindings []runtime.PortBinding
	for _, p := range resp.Ports {
		portBindings = append(portBindings, runtime.PortBinding{
			InsidePort: p.ContainerPort, OutsidePort: p.HostPort, Protocol: "tcp",
		})
	}

	session := &runtime.Session{
		ID:        resp.UUID,
		Name:      resp.Name,
		Backend:   runtime.BackendRemote,
		Status:    mapRemoteStatus(resp.Status),
		Host:      resp.Host,
		Ports:     portBindings,
		Image:     image,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	b.sessions[session.ID] = session
	b.mu.Unlock()

	return session, nil
}

func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapRemoteStatus(status string) runtime.Status {
	switch status {
	case "Ready", "running":
		return runtime.StatusRunning
	case "Pending", "creating":
		return runtime.StatusCreating
	default:
		return runtime.StatusUnknown
	}
}

// Destroy DELETEs the session from the control plane and drops the cache entry.
func (b *Backend) Destroy(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/deprovision/%s", b.cfg.ControlPlaneURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return errors.NewDestroyFailedError("failed to build deprovision request", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.NewDestroyFailedError("deprovision request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewDestroyFailedError(fmt.Sprintf("deprovision returned %d: %s", resp.StatusCode, body), nil)
	}

	b.mu.Lock()
	delete(b.sessions, sessionID)
	b.mu.Unlock()
	return nil
}

// List returns the locally cached sessions; the control plane exposes no
// enumeration endpoint in this deployment.
func (b *Backend) List(_ context.Context) ([]*runtime.Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*runtime.Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		out = append(out, s)
	}
	return out, nil
}

// Get returns the cached session, or not-found if unknown.
func (b *Backend) Get(_ context.Context, sessionID string) (*runtime.Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, errors.NewNotFoundError("no such remote session: "+sessionID, nil)
	}
	return s, nil
}

// Exec runs command via the shell tool through the cluster gateway. The
// worker reports success/failure as ToolResult.IsError rather than a
// numeric exit code, so ExitCode here is only ever 0 or 1.
func (b *Backend) Exec(ctx context.Context, sessionID, command string, _ runtime.ExecOptions) (*runtime.ExecResult, error) {
	result, err := b.Call(ctx, sessionID, "shell", map[string]any{"command": command})
	if err != nil {
		return nil, err
	}
	text, isError := toolResultText(result)
	exitCode := 0
	if isError {
		exitCode = 1
	}
	return &runtime.ExecResult{ExitCode: exitCode, Stdout: text}, nil
}

// Read reads path via the cluster gateway.
func (b *Backend) Read(ctx context.Context, sessionID, path string) (string, error) {
	result, err := b.Call(ctx, sessionID, "read_file", map[string]any{"path": path})
	if err != nil {
		return "", err
	}
	text, isError := toolResultText(result)
	if isError {
		return "", errors.NewFileError("failed to read "+path, fmt.Errorf("%s", text))
	}
	return text, nil
}

// Write writes text to path via the cluster gateway.
func (b *Backend) Write(ctx context.Context, sessionID, path, text string) error {
	result, err := b.Call(ctx, sessionID, "write_file", map[string]any{"path": path, "text": text})
	if err != nil {
		return err
	}
	if resultText, isError := toolResultText(result); isError {
		return errors.NewFileError("failed to write "+path, fmt.Errorf("%s", resultText))
	}
	return nil
}

// toolResultText extracts the first text block and isError flag from a
// decoded ToolResult that arrived as a generic map.
func toolResultText(result map[string]any) (string, bool) {
	isError, _ := result["isError"].(bool)
	content, _ := result["content"].([]any)
	if len(content) == 0 {
		return "", isError
	}
	block, _ := content[0].(map[string]any)
	text, _ := block["text"].(string)
	return text, isError
}

// Call forwards a tool invocation to the cluster gateway's /mcp endpoint,
// stamping the request with an X-Session-ID header so it dispatches to the
// correct pod.
func (b *Backend) Call(ctx context.Context, sessionID, toolName string, args map[string]any) (map[string]any, error) {
	body := map[string]any{
		"id":     time.Now().UnixMilli(),
		"method": "tools/call",
		"params": map[string]any{"name": toolName, "arguments": args},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.GatewayURL+"/mcp", bytes.NewReader(encoded))
	if err != nil {
		return nil, errors.NewTransportError("failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewBackendUnavailableError("cluster gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("failed to read gateway response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewExecFailedError(fmt.Sprintf("gateway call failed (%d): %s", resp.StatusCode, respBody), nil)
	}

	var decoded struct {
		Result map[string]any `json:"result"`
		Error  map[string]any `json:"error"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, errors.NewTransportError("invalid gateway response", err)
	}
	if decoded.Error != nil {
		return nil, errors.NewExecFailedError(fmt.Sprintf("gateway error: %v", decoded.Error), nil)
	}
	return decoded.Result, nil
}

// Health GETs the control plane's health endpoint.
func (b *Backend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.ControlPlaneURL+"/health", nil)
	if err != nil {
		return errors.NewBackendUnavailableError("failed to build health request", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.NewBackendUnavailableError("control plane unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.NewBackendUnavailableError(fmt.Sprintf("control plane health returned %d", resp.StatusCode), nil)
	}
	return nil
}

func (b *Backend) post(ctx context.Context, url string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, out)
}
