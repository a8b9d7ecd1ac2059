// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/docker"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/transport/wire"
)

// handleSessionManagementTool dispatches the fixed set of session-management
// tools against the backend manager and route registry, always returning a
// ToolResult — never a transport error.
func (d *Daemon) handleSessionManagementTool(ctx context.Context, name string, args map[string]any) wire.ToolResult {
	switch name {
	case "session_create":
		return d.sessionCreate(ctx, args)
	case "session_destroy":
		return d.sessionDestroy(ctx, args)
	case "session_list":
		return d.sessionList(ctx)
	case "session_info":
		return d.sessionInfo(ctx, args)
	case "backend_switch":
		return d.backendSwitch(args)
	case "backend_status":
		return d.backendStatus(ctx)
	default:
		return wire.ErrorResult("unknown session-management tool: " + name)
	}
}

func (d *Daemon) sessionCreate(ctx context.Context, args map[string]any) wire.ToolResult {
	backendTag := runtime.BackendTag(stringArg(args, "backend", ""))

	opts := runtime.CreateOptions{
		Name:       stringArg(args, "name", ""),
		Image:      stringArg(args, "image", ""),
		WorkingDir: stringArg(args, "working_dir", ""),
		Env:        stringMapArg(args, "env"),
		Labels:     stringMapArg(args, "labels"),
		Ports:      intSliceArg(args, "ports"),
	}
	if res, ok := args["resources"].(map[string]any); ok {
		opts.Resources = &runtime.ResourceSpec{
			CPURequest:    stringArg(res, "cpu", ""),
			MemoryRequest: stringArg(res, "memory", ""),
			CPULimit:      stringArg(res, "cpu_limit", ""),
			MemoryLimit:   stringArg(res, "memory_limit", ""),
		}
	}

	session, err := d.manager.Create(ctx, backendTag, opts)
	if err != nil {
		return wire.ErrorResult("session_create failed: " + err.Error())
	}

	endpoint, err := d.endpointForSession(session)
	if err != nil {
		return wire.ErrorResult("session created but no usable endpoint: " + err.Error())
	}
	d.registry.Register(session.ID, endpoint)

	payload, _ := json.Marshal(map[string]any{
		"backend":    session.Backend,
		"session_id": session.ID,
		"name":       session.Name,
		"status":     session.Status,
	})
	return wire.TextResult(string(payload))
}

// endpointForSession derives the route endpoint from a freshly created
// session's backend, per the three cases the router forwards to.
func (d *Daemon) endpointForSession(session *runtime.Session) (string, error) {
	switch session.Backend {
	case runtime.BackendDocker:
		for _, p := range session.Ports {
			if p.Protocol == "tcp" && p.InsidePort == docker.WorkerPort && p.OutsidePort != 0 {
				return fmt.Sprintf("http://localhost:%d", p.OutsidePort), nil
			}
		}
		return "", fmt.Errorf("no tcp worker-port binding found for docker session %s", session.ID)
	case runtime.BackendRemote:
		return d.cfg.GatewayURL + "/mcp", nil
	case runtime.BackendLocal:
		return d.worker.URL(), nil
	default:
		return "", fmt.Errorf("unknown backend %q for session %s", session.Backend, session.ID)
	}
}

func (d *Daemon) sessionDestroy(ctx context.Context, args map[string]any) wire.ToolResult {
	sessionID := stringArg(args, "session_id", "")
	if sessionID == "" {
		return wire.ErrorResult("session_destroy requires session_id")
	}

	if err := d.manager.Destroy(ctx, sessionID); err != nil {
		return wire.ErrorResult(fmt.Sprintf("session_destroy failed for %s: %s", sessionID, err.Error()))
	}
	d.registry.Remove(sessionID)
	return wire.TextResult("destroyed session " + sessionID)
}

func (d *Daemon) sessionList(ctx context.Context) wire.ToolResult {
	sessions, err := d.manager.List(ctx)
	if err != nil {
		return wire.ErrorResult("session_list failed: " + err.Error())
	}
	payload, _ := json.Marshal(sessions)
	return wire.TextResult(string(payload))
}

func (d *Daemon) sessionInfo(ctx context.Context, args map[string]any) wire.ToolResult {
	sessionID := stringArg(args, "session_id", "")
	if sessionID == "" {
		return wire.ErrorResult("session_info requires session_id")
	}
	session, err := d.manager.Get(ctx, sessionID)
	if err != nil {
		return wire.ErrorResult(fmt.Sprintf("session_info failed for %s: %s", sessionID, err.Error()))
	}
	payload, _ := json.Marshal(session)
	return wire.TextResult(string(payload))
}

func (d *Daemon) backendSwitch(args map[string]any) wire.ToolResult {
	backend := stringArg(args, "backend", "")
	if backend == "" {
		return wire.ErrorResult("backend_switch requires backend")
	}
	d.manager.SetDefault(runtime.BackendTag(backend))
	return wire.TextResult("default backend switched to " + backend)
}

func (d *Daemon) backendStatus(ctx context.Context) wire.ToolResult {
	statuses := map[string]string{}
	for _, tag := range []runtime.BackendTag{runtime.BackendLocal, runtime.BackendDocker, runtime.BackendRemote} {
		b, err := d.manager.Backend(tag)
		if err != nil {
			statuses[string(tag)] = "unavailable"
			continue
		}
		if err := b.Health(ctx); err != nil {
			statuses[string(tag)] = "unhealthy: " + err.Error()
			continue
		}
		statuses[string(tag)] = "healthy"
	}
	statuses["default"] = string(d.manager.Default())
	payload, _ := json.Marshal(statuses)
	return wire.TextResult(string(payload))
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func stringMapArg(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func intSliceArg(args map[string]any, key string) []int {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	return out
}
