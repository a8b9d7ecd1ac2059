// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package docker implements the Docker backend: it ensures an image, creates
// and starts a container running the worker bootstrap, discovers the mapped
// host port, and waits for the worker to answer tools/list before returning.
package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/errors"
	"github.com/dreamyang-liu/Ash-sub000/pkg/logger"
	"github.com/dreamyang-liu/Ash-sub000/pkg/transport/toolproto"
	"github.com/dreamyang-liu/Ash-sub000/pkg/transport/wire"
)

// WorkerPort is the fixed internal port the bootstrap script launches the
// worker on inside every container.
const WorkerPort = 8088

const (
	managedByLabel      = "ash.gateway/managed-by"
	managedByLabelValue = "ash"
	containerNamePrefix = "ash-session-"

	healthWaitPoll    = 500 * time.Millisecond
	healthWaitTimeout = 120 * time.Second
)

// dockerAPI narrows *client.Client down to the handful of engine calls this
// backend depends on, so tests can substitute a fake implementation.
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *v1.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImageInspect(ctx context.Context, imageID string) (image.InspectResponse, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	Ping(ctx context.Context) (types.Ping, error)
}

// Config configures a Backend instance.
type Config struct {
	SocketPath    string
	DefaultImage  string
	ExtraLabels   map[string]string
	CallTimeout   time.Duration
}

// Backend is the Docker execution target.
type Backend struct {
	cfg Config
	api dockerAPI
}

// candidateSockets lists well-known Docker socket locations to probe, in
// priority order, when cfg.SocketPath is unset.
var candidateSockets = []string{
	"unix:///var/run/docker.sock",
	"unix://" + homeDockerDesktopSocket(),
}

func homeDockerDesktopSocket() string {
	home, err := userHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.docker/run/docker.sock"
}

// New constructs a Backend, auto-detecting the Docker socket from a small
// candidate list if cfg.SocketPath is empty.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	hosts := []string{cfg.SocketPath}
	if cfg.SocketPath == "" {
		hosts = candidateSockets
	}

	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		cli, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
		if err != nil {
			lastErr = err
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err = cli.Ping(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return &Backend{cfg: cfg, api: cli}, nil
	}
	return nil, errors.NewBackendUnavailableError("no reachable Docker socket found", lastErr)
}

// Tag identifies this backend as "docker".
func (*Backend) Tag() runtime.BackendTag { return runtime.BackendDocker }

// Health issues a lightweight Docker ping.
func (b *Backend) Health(ctx context.Context) error {
	if _, err := b.api.Ping(ctx); err != nil {
		return errors.NewBackendUnavailableError("docker engine ping failed", err)
	}
	return nil
}

// Create ensures the image, creates and starts a container running the
// worker bootstrap, discovers its mapped host port, and waits for the
// worker to answer tools/list before returning.
func (b *Backend) Create(ctx context.Context, opts runtime.CreateOptions) (*runtime.Session, error) {
	img := opts.Image
	if img == "" {
		img = b.cfg.DefaultImage
	}

	if err := b.ensureImage(ctx, img); err != nil {
		return nil, errors.NewCreateFailedError(fmt.Sprintf("image %q unavailable", img), err)
	}

	name := opts.Name
	if name == "" {
		name = containerNamePrefix + randomSuffix()
	} else {
		name = containerNamePrefix + name
	}

	exposed, bindings := b.buildPortSpecs(opts.Ports)
	labels := mergeLabels(b.cfg.ExtraLabels, opts.Labels)
	labels[managedByLabel] = managedByLabelValue

	containerCfg := &container.Config{
		Image:        img,
		Env:          toEnvSlice(opts.Env),
		WorkingDir:   opts.WorkingDir,
		Cmd:          []string{"sh", "-c", bootstrapScript()},
		ExposedPorts: exposed,
		Labels:       labels,
	}
	hostCfg := &container.HostConfig{PortBindings: bindings}

	created, err := b.api.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil {
		return nil, errors.NewCreateFailedError("container create failed", err)
	}

	if err := b.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		b.cleanupFailedCreate(ctx, created.ID)
		return nil, errors.NewCreateFailedError("container start failed", err)
	}

	inspected, err := b.api.ContainerInspect(ctx, created.ID)
	if err != nil {
		b.cleanupFailedCreate(ctx, created.ID)
		return nil, errors.NewCreateFailedError("container inspect failed after start", err)
	}

	ports, workerURL, err := portBindingsFromInspect(inspected)
	if err != nil {
		b.cleanupFailedCreate(ctx, created.ID)
		return nil, errors.NewCreateFailedError("worker port not mapped", err)
	}

	if err := waitWorkerHealthy(ctx, workerURL); err != nil {
		b.cleanupFailedCreate(ctx, created.ID)
		return nil, err
	}

	return &runtime.Session{
		ID:        created.ID,
		Name:      name,
		Backend:   runtime.BackendDocker,
		Status:    runtime.StatusRunning,
		Image:     img,
		Ports:     ports,
		CreatedAt: time.Now(),
	}, nil
}

func (b *Backend) cleanupFailedCreate(ctx context.Context, id string) {
	if err := b.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		logger.Warnf("failed to clean up container %s after create failure: %v", id, err)
	}
}

// Destroy removes the container with force and volumes.
func (b *Backend) Destroy(ctx context.Context, sessionID string) error {
	if err := b.api.ContainerRemove(ctx, sessionID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return errors.NewDestroyFailedError("failed to remove container "+sessionID, err)
	}
	return nil
}

// List filters containers by the managed-by label.
func (b *Backend) List(ctx context.Context) ([]*runtime.Session, error) {
	summaries, err := b.api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, errors.NewInternalError("failed to list containers", err)
	}

	var sessions []*runtime.Session
	for _, s := range summaries {
		if s.Labels[managedByLabel] != managedByLabelValue {
			continue
		}
		sessions = append(sessions, summaryToSession(s))
	}
	return sessions, nil
}

// Get inspects the container by id, returning nil (no error) on 404.
func (b *Backend) Get(ctx context.Context, sessionID string) (*runtime.Session, error) {
	inspected, err := b.api.ContainerInspect(ctx, sessionID)
	if client.IsErrNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternalError("container inspect failed", err)
	}

	ports, _, portErr := portBindingsFromInspect(inspected)
	if portErr != nil {
		ports = nil
	}

	return &runtime.Session{
		ID:      inspected.ID,
		Name:    inspected.Name,
		Backend: runtime.BackendDocker,
		Status:  stateToStatus(inspected.State),
		Ports:   ports,
	}, nil
}

// Exec runs command inside the container's worker via the shell tool. The
// worker reports success/failure as ToolResult.IsError rather than a numeric
// exit code, so ExitCode here is only ever 0 or 1.
func (b *Backend) Exec(ctx context.Context, sessionID, command string, _ runtime.ExecOptions) (*runtime.ExecResult, error) {
	result, err := b.callWorker(ctx, sessionID, "shell", map[string]any{"command": command})
	if err != nil {
		return nil, err
	}
	exitCode := 0
	if result.IsError {
		exitCode = 1
	}
	return &runtime.ExecResult{ExitCode: exitCode, Stdout: resultText(result)}, nil
}

// Read reads path from the container's worker.
func (b *Backend) Read(ctx context.Context, sessionID, path string) (string, error) {
	result, err := b.callWorker(ctx, sessionID, "read_file", map[string]any{"path": path})
	if err != nil {
		return "", err
	}
	if result.IsError {
		return "", errors.NewFileError("failed to read "+path, fmt.Errorf("%s", resultText(result)))
	}
	return resultText(result), nil
}

// Write writes text to path via the container's worker.
func (b *Backend) Write(ctx context.Context, sessionID, path, text string) error {
	result, err := b.callWorker(ctx, sessionID, "write_file", map[string]any{"path": path, "text": text})
	if err != nil {
		return err
	}
	if result.IsError {
		return errors.NewFileError("failed to write "+path, fmt.Errorf("%s", resultText(result)))
	}
	return nil
}

// Call forwards an arbitrary named tool to the container's worker, returning
// its ToolResult re-encoded as a generic map.
func (b *Backend) Call(ctx context.Context, sessionID, toolName string, args map[string]any) (map[string]any, error) {
	result, err := b.callWorker(ctx, sessionID, toolName, args)
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": result.Content, "isError": result.IsError}, nil
}

func (b *Backend) callWorker(ctx context.Context, sessionID, toolName string, args map[string]any) (*wire.ToolResult, error) {
	session, err := b.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.NewNotFoundError("no such session: "+sessionID, nil)
	}
	_, workerURL, err := portBindingsFromPorts(session.Ports)
	if err != nil {
		return nil, errors.NewExecFailedError("worker port not mapped for session "+sessionID, err)
	}

	raw, err := toolproto.NewClient(workerURL).ToolsCall(ctx, toolName, args)
	if err != nil {
		return nil, err
	}
	var result wire.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.NewTransportError("failed to decode worker result", err)
	}
	return &result, nil
}

func resultText(result *wire.ToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	return result.Content[0].Text
}

func (b *Backend) ensureImage(ctx context.Context, img string) error {
	if _, err := b.api.ImageInspect(ctx, img); err == nil {
		return nil
	}

	reader, err := b.api.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull failed for image %s: %w", img, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		logger.Debugf("image pull %s: %s", img, scanner.Text())
	}
	return nil
}

func (b *Backend) buildPortSpecs(requestedPorts []int) (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}

	allPorts := append([]int{WorkerPort}, requestedPorts...)
	for _, p := range allPorts {
		port, err := nat.NewPort("tcp", fmt.Sprintf("%d", p))
		if err != nil {
			continue
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}}
	}
	return exposed, bindings
}

// waitWorkerHealthy polls tools/list with a bounded exponential backoff
// until the worker answers or healthWaitTimeout elapses, smoothing over the
// brief window between container start and the worker binary listening.
func waitWorkerHealthy(ctx context.Context, workerURL string) error {
	client := toolproto.NewClient(workerURL)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = healthWaitPoll
	bo.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if _, err := client.ToolsList(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(healthWaitTimeout))
	if err != nil {
		return errors.NewTimeoutError("worker at "+workerURL+" never became healthy", err)
	}
	return nil
}
