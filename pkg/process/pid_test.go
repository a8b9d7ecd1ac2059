// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPIDFilePath(t *testing.T) {
	t.Parallel()

	name := "test-route"

	newPath, err := getPIDFilePath(name)
	require.NoError(t, err)
	assert.Contains(t, newPath, filepath.Join(xdg.DataHome, "ash", "pids"))
	assert.Equal(t, fmt.Sprintf("ash-%s.pid", name), filepath.Base(newPath))

	oldPath := getOldPIDFilePath(name)
	assert.Contains(t, oldPath, os.TempDir())
	assert.Equal(t, fmt.Sprintf("ash-%s.pid", name), filepath.Base(oldPath))
}

func TestPIDFileOperations(t *testing.T) {
	name := fmt.Sprintf("test-ops-%d", os.Getpid())
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	t.Run("WriteAndReadPIDFile", func(t *testing.T) {
		require.NoError(t, WritePIDFile(name, 12345))

		pid, err := ReadPIDFile(name)
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("WriteCurrentPIDFile", func(t *testing.T) {
		require.NoError(t, WriteCurrentPIDFile(name))

		pid, err := ReadPIDFile(name)
		require.NoError(t, err)
		assert.Equal(t, os.Getpid(), pid)
	})

	t.Run("ReadNonExistentPIDFile", func(t *testing.T) {
		_, err := ReadPIDFile(fmt.Sprintf("does-not-exist-%d", os.Getpid()))
		assert.Error(t, err)
	})

	t.Run("RemoveNonExistentPIDFile", func(t *testing.T) {
		assert.NotPanics(t, func() {
			err := RemovePIDFile(fmt.Sprintf("never-written-%d", os.Getpid()))
			assert.NoError(t, err)
		})
	})
}

func TestPIDFileBackwardCompatibility(t *testing.T) {
	name := fmt.Sprintf("test-compat-%d", os.Getpid())
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	newPath, err := getPIDFilePath(name)
	require.NoError(t, err)
	oldPath := getOldPIDFilePath(name)

	t.Run("ReadPIDFile_FromOldLocation", func(t *testing.T) {
		require.NoError(t, os.WriteFile(oldPath, []byte(strconv.Itoa(999)), 0o600))
		t.Cleanup(func() { _ = os.Remove(oldPath) })

		pid, err := ReadPIDFile(name)
		require.NoError(t, err)
		assert.Equal(t, 999, pid)
	})

	t.Run("ReadPIDFile_PreferNewLocation", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Dir(newPath), 0o755))
		require.NoError(t, os.WriteFile(newPath, []byte(strconv.Itoa(111)), 0o600))
		require.NoError(t, os.WriteFile(oldPath, []byte(strconv.Itoa(222)), 0o600))
		t.Cleanup(func() {
			_ = os.Remove(newPath)
			_ = os.Remove(oldPath)
		})

		pid, err := ReadPIDFile(name)
		require.NoError(t, err)
		assert.Equal(t, 111, pid)
	})

	t.Run("WritePIDFile_WritesBothLocations", func(t *testing.T) {
		require.NoError(t, WritePIDFile(name, 333))

		_, err := os.Stat(newPath)
		assert.NoError(t, err)
		_, err = os.Stat(oldPath)
		assert.NoError(t, err)
	})

	t.Run("RemovePIDFile_RemovesBothLocations", func(t *testing.T) {
		require.NoError(t, WritePIDFile(name, 444))
		require.NoError(t, RemovePIDFile(name))

		_, err := os.Stat(newPath)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(oldPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("RemovePIDFile_HandlesPartialExistence", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Dir(newPath), 0o755))
		require.NoError(t, os.WriteFile(newPath, []byte(strconv.Itoa(555)), 0o600))

		assert.NoError(t, RemovePIDFile(name))

		_, err := os.Stat(newPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("RemovePIDFile_OldFileOnly", func(t *testing.T) {
		require.NoError(t, os.WriteFile(oldPath, []byte(strconv.Itoa(666)), 0o600))

		assert.NoError(t, RemovePIDFile(name))

		_, err := os.Stat(oldPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("getPIDFilePathWithFallback", func(t *testing.T) {
		path, err := getPIDFilePathWithFallback(name)
		require.NoError(t, err)
		assert.Equal(t, newPath, path, "neither file exists: should prefer new path")

		require.NoError(t, os.WriteFile(oldPath, []byte(strconv.Itoa(1)), 0o600))
		t.Cleanup(func() { _ = os.Remove(oldPath) })
		path, err = getPIDFilePathWithFallback(name)
		require.NoError(t, err)
		assert.Equal(t, oldPath, path, "only old file exists: should fall back to old path")

		require.NoError(t, os.MkdirAll(filepath.Dir(newPath), 0o755))
		require.NoError(t, os.WriteFile(newPath, []byte(strconv.Itoa(2)), 0o600))
		t.Cleanup(func() { _ = os.Remove(newPath) })
		path, err = getPIDFilePathWithFallback(name)
		require.NoError(t, err)
		assert.Equal(t, newPath, path, "both exist: should prefer new path")
	})
}

func TestPIDFileMigration(t *testing.T) {
	name := fmt.Sprintf("test-migration-%d", os.Getpid())
	newPath, err := getPIDFilePath(name)
	require.NoError(t, err)
	oldPath := getOldPIDFilePath(name)
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	// Simulate an older daemon build that only knew about the legacy path.
	require.NoError(t, os.WriteFile(oldPath, []byte(strconv.Itoa(7777)), 0o600))

	pid, err := ReadPIDFile(name)
	require.NoError(t, err)
	assert.Equal(t, 7777, pid)

	// Once the current build writes the PID, both locations are populated.
	require.NoError(t, WriteCurrentPIDFile(name))
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
	_, err = os.Stat(oldPath)
	assert.NoError(t, err)

	require.NoError(t, RemovePIDFile(name))
	_, err = os.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
}

func TestIsProcessAlive(t *testing.T) {
	t.Parallel()

	assert.True(t, IsProcessAlive(os.Getpid()))
	assert.False(t, IsProcessAlive(999999))
}
