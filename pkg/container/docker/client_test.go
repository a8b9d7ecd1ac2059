// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
)

// fakeDockerAPI provides a minimal test double for dockerAPI.
type fakeDockerAPI struct {
	listFunc         func(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	inspectFunc      func(ctx context.Context, id string) (container.InspectResponse, error)
	stopFunc         func(ctx context.Context, containerID string, options container.StopOptions) error
	createFunc       func(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error)
	startFunc        func(ctx context.Context, containerID string, options container.StartOptions) error
	removeFunc       func(ctx context.Context, containerID string, options container.RemoveOptions) error
	imageInspectFunc func(ctx context.Context, imageID string) (image.InspectResponse, error)
	imagePullFunc    func(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	pingFunc         func(ctx context.Context) (types.Ping, error)
}

func (f *fakeDockerAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, options)
	}
	return nil, nil
}

func (f *fakeDockerAPI) ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error) {
	if f.inspectFunc != nil {
		return f.inspectFunc(ctx, id)
	}
	return container.InspectResponse{}, nil
}

func (f *fakeDockerAPI) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	if f.stopFunc != nil {
		return f.stopFunc(ctx, containerID, options)
	}
	return nil
}

func (f *fakeDockerAPI) ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, cfg, hostCfg, netCfg, platform, name)
	}
	return container.CreateResponse{}, nil
}

func (f *fakeDockerAPI) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	if f.startFunc != nil {
		return f.startFunc(ctx, containerID, options)
	}
	return nil
}

func (f *fakeDockerAPI) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	if f.removeFunc != nil {
		return f.removeFunc(ctx, containerID, options)
	}
	return nil
}

func (f *fakeDockerAPI) ImageInspect(ctx context.Context, imageID string) (image.InspectResponse, error) {
	if f.imageInspectFunc != nil {
		return f.imageInspectFunc(ctx, imageID)
	}
	return image.InspectResponse{}, nil
}

func (f *fakeDockerAPI) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	if f.imagePullFunc != nil {
		return f.imagePullFunc(ctx, refStr, options)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeDockerAPI) Ping(ctx context.Context) (types.Ping, error) {
	if f.pingFunc != nil {
		return f.pingFunc(ctx)
	}
	return types.Ping{}, nil
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		b := &Backend{api: &fakeDockerAPI{}}
		assert.NoError(t, b.Health(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		b := &Backend{api: &fakeDockerAPI{pingFunc: func(context.Context) (types.Ping, error) {
			return types.Ping{}, errors.New("boom")
		}}}
		assert.Error(t, b.Health(context.Background()))
	})
}

func TestList_FiltersByManagedByLabel(t *testing.T) {
	t.Parallel()

	b := &Backend{api: &fakeDockerAPI{listFunc: func(context.Context, container.ListOptions) ([]container.Summary, error) {
		return []container.Summary{
			{ID: "a", Names: []string{"/ash-session-a"}, Labels: map[string]string{managedByLabel: managedByLabelValue}},
			{ID: "b", Names: []string{"/unrelated"}, Labels: map[string]string{}},
		}, nil
	}}}

	sessions, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "a", sessions[0].ID)
}

func TestGet_NotFoundReturnsNilNil(t *testing.T) {
	t.Parallel()

	b := &Backend{api: &fakeDockerAPI{inspectFunc: func(context.Context, string) (container.InspectResponse, error) {
		return container.InspectResponse{}, errdefs.NotFound(errors.New("no such container"))
	}}}

	session, err := b.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	var removedID string
	b := &Backend{api: &fakeDockerAPI{removeFunc: func(_ context.Context, id string, _ container.RemoveOptions) error {
		removedID = id
		return nil
	}}}

	require.NoError(t, b.Destroy(context.Background(), "abc123"))
	assert.Equal(t, "abc123", removedID)
}

func TestBuildPortSpecs(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	exposed, bindings := b.buildPortSpecs([]int{9000})

	assert.Len(t, exposed, 2) // worker port + requested port
	assert.Len(t, bindings, 2)
}

// backendWithWorker builds a Backend whose Get("sess-1") resolves to a
// running session with its worker port mapped to worker's address.
func backendWithWorker(t *testing.T, worker *httptest.Server) *Backend {
	t.Helper()

	u, err := url.Parse(worker.URL)
	require.NoError(t, err)
	hostPort := u.Port()

	workerPort, err := nat.NewPort("tcp", strconv.Itoa(WorkerPort))
	require.NoError(t, err)

	ns := &container.NetworkSettings{}
	ns.Ports = nat.PortMap{
		workerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: hostPort}},
	}

	return &Backend{api: &fakeDockerAPI{
		inspectFunc: func(context.Context, string) (container.InspectResponse, error) {
			return container.InspectResponse{
				ContainerJSONBase: &container.ContainerJSONBase{
					ID:    "sess-1",
					Name:  "/ash-session-1",
					State: &container.State{Status: "running", Running: true},
				},
				NetworkSettings: ns,
			}, nil
		},
	}}
}

func TestExec_ExtractsTextFromToolResult(t *testing.T) {
	t.Parallel()

	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"result":{"content":[{"type":"text","text":"hi\n"}],"isError":false}}`))
	}))
	defer worker.Close()

	b := backendWithWorker(t, worker)
	result, err := b.Exec(context.Background(), "sess-1", "echo hi", runtime.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hi\n", result.Stdout)
}

func TestRead_ReturnsFileContents(t *testing.T) {
	t.Parallel()

	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"result":{"content":[{"type":"text","text":"file body"}],"isError":false}}`))
	}))
	defer worker.Close()

	b := backendWithWorker(t, worker)
	text, err := b.Read(context.Background(), "sess-1", "/tmp/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "file body", text)
}

func TestRead_PropagatesToolError(t *testing.T) {
	t.Parallel()

	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"result":{"content":[{"type":"text","text":"no such file"}],"isError":true}}`))
	}))
	defer worker.Close()

	b := backendWithWorker(t, worker)
	_, err := b.Read(context.Background(), "sess-1", "/missing")
	assert.Error(t, err)
}

func TestWrite_SendsTextArgument(t *testing.T) {
	t.Parallel()

	var body map[string]any
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":1,"result":{"content":[{"type":"text","text":"ok"}],"isError":false}}`))
	}))
	defer worker.Close()

	b := backendWithWorker(t, worker)
	require.NoError(t, b.Write(context.Background(), "sess-1", "/tmp/f.txt", "hello"))

	params, _ := body["params"].(map[string]any)
	args, _ := params["arguments"].(map[string]any)
	assert.Equal(t, "hello", args["text"])
}
