// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package docker

import (
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/google/uuid"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
)

func userHomeDir() (string, error) {
	return os.UserHomeDir()
}

// randomSuffix returns a short unique container-name suffix.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func toEnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func mergeLabels(defaults, extra map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(extra))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// bootstrapScript is the command line baked into every freshly created
// container: it installs and launches the worker binary on WorkerPort.
func bootstrapScript() string {
	return fmt.Sprintf(
		"curl -fsSL https://dl.ash.dev/worker/latest/ash-worker -o /usr/local/bin/ash-worker && "+
			"chmod +x /usr/local/bin/ash-worker && "+
			"exec /usr/local/bin/ash-worker --transport http --port %d", WorkerPort)
}

// portBindingsFromInspect extracts port bindings from a container inspect
// result, preferring the TCP binding when the worker port is exposed on
// multiple protocols, and returns the worker's host-reachable base URL.
func portBindingsFromInspect(inspected container.InspectResponse) ([]runtime.PortBinding, string, error) {
	if inspected.NetworkSettings == nil {
		return nil, "", errors.NewNotFoundError("container has no network settings", nil)
	}

	var bindings []runtime.PortBinding
	var workerURL string

	for port, mappings := range inspected.NetworkSettings.Ports {
		for _, m := range mappings {
			outsidePort := 0
			if _, err := fmt.Sscanf(m.HostPort, "%d", &outsidePort); err != nil {
				continue
			}
			binding := runtime.PortBinding{
				InsidePort:  port.Int(),
				OutsidePort: outsidePort,
				Protocol:    port.Proto(),
			}
			bindings = append(bindings, binding)

			if port.Int() == WorkerPort && port.Proto() == "tcp" {
				workerURL = fmt.Sprintf("http://localhost:%d", outsidePort)
			}
		}
	}

	if workerURL == "" {
		return nil, "", errors.NewNotFoundError("worker port not mapped to a TCP host port", nil)
	}
	return bindings, workerURL, nil
}

func stateToStatus(state *container.State) runtime.Status {
	if state == nil {
		return runtime.StatusUnknown
	}
	switch {
	case state.Running:
		return runtime.StatusRunning
	case state.Status == "created":
		return runtime.StatusCreating
	case state.Status == "exited":
		return runtime.StatusStopped
	case state.Status == "dead":
		return runtime.StatusFailed
	default:
		return runtime.StatusUnknown
	}
}

func summaryToSession(s container.Summary) *runtime.Session {
	name := strings.TrimPrefix(strings.Join(s.Names, ","), "/")
	return &runtime.Session{
		ID:      s.ID,
		Name:    name,
		Backend: runtime.BackendDocker,
		Status:  summaryStateToStatus(s.State),
		Image:   s.Image,
	}
}

func summaryStateToStatus(state string) runtime.Status {
	switch state {
	case "running":
		return runtime.StatusRunning
	case "created":
		return runtime.StatusCreating
	case "exited":
		return runtime.StatusStopped
	case "dead":
		return runtime.StatusFailed
	default:
		return runtime.StatusUnknown
	}
}

func portBindingsFromPorts(ports []runtime.PortBinding) ([]runtime.PortBinding, string, error) {
	for _, p := range ports {
		if p.InsidePort == WorkerPort && p.Protocol == "tcp" && p.OutsidePort != 0 {
			return ports, fmt.Sprintf("http://localhost:%d", p.OutsidePort), nil
		}
	}
	return nil, "", errors.NewNotFoundError("no tcp binding found for worker port", nil)
}
