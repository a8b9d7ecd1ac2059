// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the router and daemon: it owns the local listening
// socket, dispatches one request per connection, and classifies tool calls
// between in-process session management and forwarded worker calls.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/dreamyang-liu/Ash-sub000/pkg/config"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/logger"
	"github.com/dreamyang-liu/Ash-sub000/pkg/process"
	"github.com/dreamyang-liu/Ash-sub000/pkg/supervisor"
	transporterrors "github.com/dreamyang-liu/Ash-sub000/pkg/transport/errors"
	"github.com/dreamyang-liu/Ash-sub000/pkg/transport/toolproto"
	"github.com/dreamyang-liu/Ash-sub000/pkg/transport/wire"
	"github.com/dreamyang-liu/Ash-sub000/pkg/workloads"
)

// sessionManagementTools is the fixed set of tool names the daemon handles
// in-process against the registry and backend manager, rather than
// forwarding to a worker.
var sessionManagementTools = map[string]bool{
	"session_create":  true,
	"session_destroy": true,
	"session_list":    true,
	"session_info":    true,
	"backend_switch":  true,
	"backend_status":  true,
}

const pidFileName = "gateway"

// Daemon is the gateway's long-lived process state.
type Daemon struct {
	cfg        *config.Config
	registry   *workloads.Registry
	manager    *workloads.Manager
	worker     *supervisor.Supervisor
	startedAt  time.Time
	startLock  *flock.Flock

	mu       sync.Mutex
	listener net.Listener
}

// New constructs a Daemon wired with the given manager and registry.
func New(cfg *config.Config, manager *workloads.Manager, registry *workloads.Registry) *Daemon {
	return &Daemon{
		cfg:      cfg,
		registry: registry,
		manager:  manager,
		worker:   supervisor.New(),
	}
}

// Run ensures the data directory, acquires a single-instance startup lock,
// refuses to start if the PID file names a still-live daemon, removes any
// stale socket, writes the PID file, starts the local worker eagerly
// (non-fatally), and serves the accept loop until ctx is cancelled or a
// termination signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	d.startedAt = time.Now()

	if err := os.MkdirAll(d.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Guard the PID-check-then-socket-steal sequence below with an flock so
	// two "ashd start" invocations racing on startup can't both pass the
	// liveness check before either has written its PID file.
	startLock := flock.New(filepath.Join(d.cfg.DataDir, "gateway.lock"))
	locked, err := startLock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire startup lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another gateway is already starting (lock held at %s)", startLock.Path())
	}
	d.startLock = startLock

	if pid, err := process.ReadPIDFile(pidFileName); err == nil && process.IsProcessAlive(pid) {
		_ = startLock.Unlock()
		return fmt.Errorf("another gateway is already running (pid %d); refusing to steal socket %s", pid, d.cfg.SocketPath)
	}

	if err := os.Remove(d.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf("failed to remove stale socket %s: %v", d.cfg.SocketPath, err)
	}

	if err := process.WriteCurrentPIDFile(pidFileName); err != nil {
		_ = startLock.Unlock()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	listener, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		_ = startLock.Unlock()
		return fmt.Errorf("failed to bind socket %s: %w", d.cfg.SocketPath, err)
	}
	d.mu.Lock()
	d.listener = listener
	d.mu.Unlock()

	go func() {
		if _, err := d.worker.Client(ctx); err != nil {
			logger.Warnf("local worker did not start eagerly: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		d.shutdown()
	}()

	logger.Infof("gateway listening on %s", d.cfg.SocketPath)
	return d.acceptLoop(listener)
}

func (d *Daemon) acceptLoop(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if isClosedError(err) {
				return nil
			}
			logger.Errorf("accept failed: %v", err)
			continue
		}
		go d.handleConn(conn)
	}
}

func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func (d *Daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	req, err := wire.ReadRequest(reader)
	if err != nil {
		_ = wire.WriteResponse(conn, wire.NewParseErrorResponse(err.Error()))
		return
	}

	resp := d.dispatch(context.Background(), req)
	if err := wire.WriteResponse(conn, resp); err != nil {
		logger.Warnf("failed to write response: %v", err)
	}
}

func (d *Daemon) dispatch(ctx context.Context, req *wire.Request) *wire.Response {
	switch req.Method {
	case "ping":
		return d.handlePing(req.ID)
	case "gateway/info":
		return d.handleGatewayInfo(ctx, req.ID)
	case "tools/list":
		return d.handleToolsList(ctx, req.ID)
	case "tools/call":
		return d.handleToolsCall(ctx, req.ID, req.Params)
	default:
		return wire.NewMethodNotFoundResponse(req.ID, req.Method)
	}
}

func (d *Daemon) handlePing(id json.RawMessage) *wire.Response {
	resp, err := wire.NewResultResponse(id, map[string]any{
		"status":      "ok",
		"uptime_secs": int(time.Since(d.startedAt).Seconds()),
	})
	if err != nil {
		return wire.NewErrorResponse(id, -32603, err.Error())
	}
	return resp
}

func (d *Daemon) handleGatewayInfo(ctx context.Context, id json.RawMessage) *wire.Response {
	workerPort := 0
	if u, err := url.Parse(d.worker.URL()); err == nil {
		workerPort, _ = strconv.Atoi(u.Port())
	}
	info := map[string]any{
		"uptime_secs":  int(time.Since(d.startedAt).Seconds()),
		"session_count": len(mustList(ctx, d.manager)),
		"route_count":   d.registry.Count(),
		"worker_port":   workerPort,
	}
	resp, err := wire.NewResultResponse(id, info)
	if err != nil {
		return wire.NewErrorResponse(id, -32603, err.Error())
	}
	return resp
}

func mustList(ctx context.Context, m *workloads.Manager) []*runtime.Session {
	sessions, err := m.List(ctx)
	if err != nil {
		return nil
	}
	return sessions
}

func (d *Daemon) handleToolsList(ctx context.Context, id json.RawMessage) *wire.Response {
	client, err := d.worker.Client(ctx)
	if err != nil {
		return wire.NewErrorResponse(id, -32603, err.Error())
	}
	result, err := client.ToolsList(ctx)
	if err != nil {
		return wire.NewErrorResponse(id, -32603, err.Error())
	}
	return &wire.Response{ID: id, Result: result}
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Daemon) handleToolsCall(ctx context.Context, id json.RawMessage, rawParams json.RawMessage) *wire.Response {
	var params toolsCallParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return wire.NewErrorResponse(id, -32603, "invalid params: "+err.Error())
	}

	var result wire.ToolResult
	if sessionManagementTools[params.Name] {
		result = d.handleSessionManagementTool(ctx, params.Name, params.Arguments)
	} else {
		result = d.forwardToolCall(ctx, params.Name, params.Arguments)
	}

	resp, err := wire.NewResultResponse(id, result)
	if err != nil {
		return wire.NewErrorResponse(id, -32603, err.Error())
	}
	return resp
}

// forwardToolCall resolves session_id (absent/"local" → local worker;
// otherwise the route registry) and forwards via the tool protocol client.
func (d *Daemon) forwardToolCall(ctx context.Context, name string, args map[string]any) wire.ToolResult {
	sessionID, _ := args["session_id"].(string)

	var endpoint string
	if sessionID == "" || sessionID == "local" {
		endpoint = d.worker.URL()
		if endpoint == "" {
			client, err := d.worker.Client(ctx)
			if err != nil {
				return wire.ErrorResult("local worker unavailable: " + err.Error())
			}
			return d.callVia(ctx, client, name, args)
		}
	} else {
		session, err := d.manager.Get(ctx, sessionID)
		if err != nil || session == nil {
			return wire.ErrorResult(fmt.Sprintf("%v: no route for session %s", transporterrors.ErrRouteNotFound, sessionID))
		}
		if session.Status != runtime.StatusRunning {
			return wire.ErrorResult(fmt.Sprintf("%v: session %s is %s", transporterrors.ErrSessionNotRunning, sessionID, session.Status))
		}

		ep, err := d.registry.Resolve(sessionID)
		if err != nil {
			return wire.ErrorResult(fmt.Sprintf("%v: no route for session %s", transporterrors.ErrRouteNotFound, sessionID))
		}
		endpoint = ep
	}

	client := toolproto.NewClient(endpoint)
	return d.callVia(ctx, client, name, args)
}

func (d *Daemon) callVia(ctx context.Context, client *toolproto.Client, name string, args map[string]any) wire.ToolResult {
	raw, err := client.ToolsCall(ctx, name, args)
	if err != nil {
		return wire.ErrorResult(err.Error())
	}
	var result wire.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return wire.ErrorResult("failed to decode worker result: " + err.Error())
	}
	return result
}

// Shutdown stops the worker, deletes the socket, and deletes the PID file.
func (d *Daemon) shutdown() {
	logger.Info("gateway shutting down")
	d.worker.Shutdown()

	d.mu.Lock()
	if d.listener != nil {
		_ = d.listener.Close()
	}
	d.mu.Unlock()

	_ = os.Remove(d.cfg.SocketPath)
	if err := process.RemovePIDFile(pidFileName); err != nil {
		logger.Warnf("failed to remove PID file: %v", err)
	}

	if d.startLock != nil {
		if err := d.startLock.Unlock(); err != nil {
			logger.Warnf("failed to release startup lock: %v", err)
		}
	}
}
