// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreamyang-liu/Ash-sub000/pkg/process"
)

const daemonPIDName = "gateway"

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running gateway daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			pid, err := process.ReadPIDFile(daemonPIDName)
			if err != nil {
				return fmt.Errorf("gateway does not appear to be running: %w", err)
			}
			if !process.IsProcessAlive(pid) {
				return fmt.Errorf("gateway PID %d is not running (stale PID file)", pid)
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to locate process %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to signal process %d: %w", pid, err)
			}

			fmt.Printf("sent SIGTERM to gateway (pid %d)\n", pid)
			return nil
		},
	}
}
