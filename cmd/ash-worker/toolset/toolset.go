// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package toolset implements the fixed set of tools a worker exposes:
// shell, read_file, and write_file, all running directly against the
// worker process's own filesystem and process table — whatever host that
// happens to be (bare metal, a container, or a remote node) is invisible
// to the tool implementation itself.
package toolset

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dreamyang-liu/Ash-sub000/pkg/worker"
)

const defaultShellTimeout = 300 * time.Second

// Tools implements worker.Toolset with the three built-in tools.
type Tools struct{}

// Default constructs the worker's fixed toolset.
func Default() *Tools { return &Tools{} }

// List describes the fixed toolset's schemas for tools/list.
func (*Tools) List() []worker.Tool {
	return []worker.Tool{
		{
			Name:        "shell",
			Description: "Run a shell command and capture its stdout, stderr, and exit code.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"command": map[string]any{"type": "string"}},
				"required":   []string{"command"},
			},
		},
		{
			Name:        "read_file",
			Description: "Read the contents of a file.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "write_file",
			Description: "Write text to a file, creating missing parent directories.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
					"text": map[string]any{"type": "string"},
				},
				"required": []string{"path", "text"},
			},
		},
	}
}

// Call dispatches to the named tool.
func (t *Tools) Call(r *http.Request, name string, arguments map[string]any) worker.CallToolResult {
	switch name {
	case "shell":
		return t.shell(r, arguments)
	case "read_file":
		return t.readFile(arguments)
	case "write_file":
		return t.writeFile(arguments)
	default:
		return errorResult("unknown tool: " + name)
	}
}

func (*Tools) shell(r *http.Request, args map[string]any) worker.CallToolResult {
	command, _ := args["command"].(string)
	if command == "" {
		return errorResult("shell requires a command")
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	text := stdout.String()
	if stderr.Len() > 0 {
		text += "\n--- stderr ---\n" + stderr.String()
	}
	return worker.CallToolResult{
		Content: []worker.ToolContent{{Type: "text", Text: text}},
		IsError: exitCode != 0,
	}
}

func (*Tools) readFile(args map[string]any) worker.CallToolResult {
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("read_file requires a path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errorResult("failed to read " + path + ": " + err.Error())
	}
	return textResult(string(data))
}

func (*Tools) writeFile(args map[string]any) worker.CallToolResult {
	path, _ := args["path"].(string)
	text, _ := args["text"].(string)
	if path == "" {
		return errorResult("write_file requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errorResult("failed to create parent directories for " + path + ": " + err.Error())
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errorResult("failed to write " + path + ": " + err.Error())
	}
	return textResult("wrote " + path)
}

func textResult(text string) worker.CallToolResult {
	return worker.CallToolResult{Content: []worker.ToolContent{{Type: "text", Text: text}}}
}

func errorResult(text string) worker.CallToolResult {
	return worker.CallToolResult{Content: []worker.ToolContent{{Type: "text", Text: text}}, IsError: true}
}
