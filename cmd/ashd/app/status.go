// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dreamyang-liu/Ash-sub000/pkg/process"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the gateway daemon is running",
		RunE: func(_ *cobra.Command, _ []string) error {
			pid, err := process.ReadPIDFile(daemonPIDName)
			if err != nil {
				fmt.Println("gateway: not running")
				return nil
			}
			if !process.IsProcessAlive(pid) {
				fmt.Printf("gateway: not running (stale PID file for pid %d)\n", pid)
				return nil
			}
			fmt.Printf("gateway: running (pid %d)\n", pid)
			return nil
		},
	}
}
