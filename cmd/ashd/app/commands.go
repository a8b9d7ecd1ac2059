// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the ash gateway daemon's
// command-line surface: start, stop, and status. The full human-facing
// tool-invocation subcommand tree the teacher's own CLI carries is out of
// scope here — this is a thin operational surface for the daemon process
// itself, not a client for it.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamyang-liu/Ash-sub000/pkg/logger"
)

// NewRootCmd creates the root command for the ashd CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "ashd",
		DisableAutoGenTag: true,
		Short:             "ashd is the local gateway daemon that routes tool calls to local, Docker, and remote execution backends",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Errorf("error displaying help: %v", err)
			}
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: none; built-in defaults and ASH_* environment variables apply)")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())

	rootCmd.SilenceUsage = true
	return rootCmd
}
