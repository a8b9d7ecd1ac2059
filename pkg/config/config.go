// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the daemon's configuration from environment
// variables, an optional config file, and finally built-in defaults, in
// that order of precedence, via Viper. No command-line flags are bound
// here; the only flag input is the config file path passed to Load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the daemon's resolved configuration.
type Config struct {
	DataDir             string
	SocketPath          string
	DockerSocket        string
	DockerDefaultImage  string
	ControlPlaneURL     string
	GatewayURL          string
	CallTimeout         time.Duration
	DefaultBackend      string
}

const envPrefix = "ASH"

// Load builds a Config by layering env > file > defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
			}
		}
	}

	return &Config{
		DataDir:            v.GetString("data_dir"),
		SocketPath:         v.GetString("socket_path"),
		DockerSocket:       v.GetString("docker_socket"),
		DockerDefaultImage: v.GetString("docker_default_image"),
		ControlPlaneURL:    v.GetString("control_plane_url"),
		GatewayURL:         v.GetString("gateway_url"),
		CallTimeout:        v.GetDuration("call_timeout"),
		DefaultBackend:     v.GetString("default_backend"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".ash")

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("socket_path", filepath.Join(dataDir, "gateway.sock"))
	v.SetDefault("docker_socket", "")
	v.SetDefault("docker_default_image", "timemagic/ash-worker:latest")
	v.SetDefault("control_plane_url", "http://localhost:8080")
	v.SetDefault("gateway_url", "http://localhost:8081")
	v.SetDefault("call_timeout", 300*time.Second)
	v.SetDefault("default_backend", "docker")
}

// PIDFilePath returns <DataDir>/gateway.pid. The daemon and the stop and
// status commands do not use this path: they keep the PID file through
// pkg/process, under the XDG data directory with a legacy copy in the OS
// temp directory.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.DataDir, "gateway.pid")
}
