// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dreamyang-liu/Ash-sub000/pkg/config"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/docker"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/local"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/remote"
	"github.com/dreamyang-liu/Ash-sub000/pkg/container/runtime"
	"github.com/dreamyang-liu/Ash-sub000/pkg/gateway"
	"github.com/dreamyang-liu/Ash-sub000/pkg/logger"
	"github.com/dreamyang-liu/Ash-sub000/pkg/workloads"
)

func newStartCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the gateway daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Path to config file")
	return cmd
}

func runStart(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	manager := workloads.NewManager(runtime.BackendLocal)
	manager.Register(local.New())

	dockerBackend, dockerErr := docker.New(ctx, docker.Config{
		SocketPath:   cfg.DockerSocket,
		DefaultImage: cfg.DockerDefaultImage,
		CallTimeout:  cfg.CallTimeout,
	})
	dockerReachable := dockerErr == nil
	if dockerErr != nil {
		logger.Warnf("docker backend unavailable: %v", dockerErr)
	} else {
		manager.Register(dockerBackend)
	}

	remoteEnabled := cfg.ControlPlaneURL != "" && cfg.GatewayURL != ""
	if remoteEnabled {
		manager.Register(remote.New(remote.Config{
			ControlPlaneURL: cfg.ControlPlaneURL,
			GatewayURL:      cfg.GatewayURL,
			Timeout:         cfg.CallTimeout,
		}))
	}

	manager.SetDefault(initialDefaultBackend(cfg.DefaultBackend, dockerReachable, remoteEnabled))

	daemon := gateway.New(cfg, manager, workloads.NewRegistry())
	return daemon.Run(ctx)
}

// initialDefaultBackend honors an explicit non-default configuration
// override; otherwise it applies "Docker if reachable, else remote" against
// what actually registered this run, rather than trusting the static
// "docker" config default regardless of whether Docker ever came up.
func initialDefaultBackend(configured string, dockerReachable, remoteEnabled bool) runtime.BackendTag {
	if configured != "" && configured != "docker" {
		return runtime.BackendTag(configured)
	}
	switch {
	case dockerReachable:
		return runtime.BackendDocker
	case remoteEnabled:
		return runtime.BackendRemote
	default:
		return runtime.BackendLocal
	}
}
