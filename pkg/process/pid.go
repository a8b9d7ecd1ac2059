// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package process manages the gateway daemon's PID file.
//
// The canonical location is the XDG data directory
// (<xdg.DataHome>/ash/pids/ash-<name>.pid); a legacy location under the OS
// temp directory is also written for backward compatibility with older
// gateway builds that looked there directly. Reads and the fallback path
// resolver prefer the new location but fall back to the old one.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/adrg/xdg"
)

// getPIDFilePath returns the canonical (XDG data) PID file path for name.
func getPIDFilePath(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join("ash", "pids", fmt.Sprintf("ash-%s.pid", name)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return path, nil
}

// getOldPIDFilePath returns the legacy temp-directory PID file path for name.
func getOldPIDFilePath(name string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("ash-%s.pid", name))
}

// getPIDFilePathWithFallback returns the new location unless only the old
// location currently has a file on disk, in which case it returns that.
func getPIDFilePathWithFallback(name string) (string, error) {
	newPath, err := getPIDFilePath(name)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(newPath); statErr == nil {
		return newPath, nil
	}

	oldPath := getOldPIDFilePath(name)
	if _, statErr := os.Stat(oldPath); statErr == nil {
		return oldPath, nil
	}

	return newPath, nil
}

// WritePIDFile writes pid to both the new and the legacy PID file location.
func WritePIDFile(name string, pid int) error {
	contents := []byte(strconv.Itoa(pid))

	newPath, err := getPIDFilePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(newPath, contents, 0o600); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", newPath, err)
	}

	oldPath := getOldPIDFilePath(name)
	if err := os.WriteFile(oldPath, contents, 0o600); err != nil {
		return fmt.Errorf("failed to write legacy PID file %s: %w", oldPath, err)
	}

	return nil
}

// WriteCurrentPIDFile writes the calling process's own PID for name.
func WriteCurrentPIDFile(name string) error {
	return WritePIDFile(name, os.Getpid())
}

// ReadPIDFile reads the PID for name, preferring the new location and
// falling back to the legacy one.
func ReadPIDFile(name string) (int, error) {
	newPath, err := getPIDFilePath(name)
	if err == nil {
		if pid, readErr := readPIDFromPath(newPath); readErr == nil {
			return pid, nil
		}
	}

	oldPath := getOldPIDFilePath(name)
	pid, readErr := readPIDFromPath(oldPath)
	if readErr != nil {
		return 0, fmt.Errorf("no PID file found for %s", name)
	}
	return pid, nil
}

func readPIDFromPath(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID contents in %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile removes both PID file locations for name. A missing file at
// either location is not an error.
func RemovePIDFile(name string) error {
	newPath, err := getPIDFilePath(name)
	if err == nil {
		if rmErr := os.Remove(newPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("failed to remove PID file %s: %w", newPath, rmErr)
		}
	}

	oldPath := getOldPIDFilePath(name)
	if rmErr := os.Remove(oldPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("failed to remove legacy PID file %s: %w", oldPath, rmErr)
	}

	return nil
}

// IsProcessAlive reports whether a process with the given PID currently
// exists, by probing /proc where available and falling back to signal 0.
func IsProcessAlive(pid int) bool {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err == nil {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
