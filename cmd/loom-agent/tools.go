// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/teradata-labs/loom-agent/pkg/runtime"
)

// readFileInput is fs:read_file's JSON-Schema-derived input shape.
type readFileInput struct {
	Path string `json:"path"`
}

// writeFileInput is fs:write_file's input shape.
type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// deleteInput is fs:delete's input shape.
type deleteInput struct {
	Path string `json:"path"`
}

// shellRunInput is shell:run's input shape.
type shellRunInput struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// registerBuiltinTools registers the demo tool set: fs:read_file,
// fs:write_file, fs:delete, shell:run. All file paths are sandboxed to
// workspace; fs:write_file and fs:delete are also gated by
// cognitive.ToolExecutor's approval callback before they ever reach the
// cognitive loop -- registering them here makes their descriptors
// available to the bridge and the ReAct prompt.
func registerBuiltinTools(reg *runtime.ToolRegistry, workspace string) error {
	if err := reg.Register("fs:read_file", "Read a UTF-8 text file", &readFileInput{}, func(args map[string]any) (any, error) {
		path, _ := args["path"].(string)
		abs, ok := sandboxPath(workspace, path)
		if !ok {
			return nil, fmt.Errorf("path traversal detected: path escapes workspace")
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"path": abs, "content": string(data), "lines": strings.Count(string(data), "\n") + 1}, nil
	}); err != nil {
		return err
	}

	if err := reg.Register("fs:write_file", "Write a UTF-8 text file", &writeFileInput{}, func(args map[string]any) (any, error) {
		path, _ := args["path"].(string)
		content, _ := args["content"].(string)
		abs, ok := sandboxPath(workspace, path)
		if !ok {
			return nil, fmt.Errorf("path traversal detected: path escapes workspace")
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return nil, err
		}
		return map[string]any{"path": abs, "bytes_written": len(content)}, nil
	}); err != nil {
		return err
	}

	if err := reg.Register("fs:delete", "Delete a file", &deleteInput{}, func(args map[string]any) (any, error) {
		path, _ := args["path"].(string)
		abs, ok := sandboxPath(workspace, path)
		if !ok {
			return nil, fmt.Errorf("path traversal detected: path escapes workspace")
		}
		if err := os.Remove(abs); err != nil {
			return nil, err
		}
		return map[string]any{"path": abs, "deleted": true}, nil
	}); err != nil {
		return err
	}

	if err := reg.Register("shell:run", "Run a command (argv only, never through a shell)", &shellRunInput{}, func(args map[string]any) (any, error) {
		command, _ := args["command"].(string)
		if command == "" {
			return nil, fmt.Errorf("command is required")
		}
		var cmdArgs []string
		if raw, ok := args["args"].([]any); ok {
			for _, a := range raw {
				if s, ok := a.(string); ok {
					cmdArgs = append(cmdArgs, s)
				}
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, command, cmdArgs...)
		cmd.Dir = workspace
		var stdout, stderr strings.Builder
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		exitCode := 0
		if runErr := cmd.Run(); runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return nil, runErr
			}
		}
		return map[string]any{"stdout": stdout.String(), "stderr": stderr.String(), "exit_code": exitCode}, nil
	}); err != nil {
		return err
	}

	return nil
}

// sandboxPath resolves path against workspace and rejects any result
// that escapes it, mirroring cognitive.ToolExecutor.validatePath.
func sandboxPath(workspace, path string) (string, bool) {
	root, err := filepath.Abs(workspace)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}
