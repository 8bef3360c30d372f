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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/loom-agent/pkg/runtime"
)

func TestSandboxPathAcceptsRelativePathWithinWorkspace(t *testing.T) {
	workspace := t.TempDir()
	abs, ok := sandboxPath(workspace, "notes/todo.txt")
	require.True(t, ok)
	root, _ := filepath.Abs(workspace)
	assert.Equal(t, filepath.Join(root, "notes/todo.txt"), abs)
}

func TestSandboxPathRejectsTraversalOutsideWorkspace(t *testing.T) {
	workspace := t.TempDir()
	_, ok := sandboxPath(workspace, "../../etc/passwd")
	assert.False(t, ok)
}

func TestSandboxPathAcceptsWorkspaceRootItself(t *testing.T) {
	workspace := t.TempDir()
	root, _ := filepath.Abs(workspace)
	abs, ok := sandboxPath(workspace, root)
	require.True(t, ok)
	assert.Equal(t, root, abs)
}

func TestRegisterBuiltinToolsRegistersAllFour(t *testing.T) {
	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, t.TempDir()))

	names := make(map[string]bool)
	for _, d := range reg.Descriptors() {
		names[d.Name] = true
	}
	assert.True(t, names["fs:read_file"])
	assert.True(t, names["fs:write_file"])
	assert.True(t, names["fs:delete"])
	assert.True(t, names["shell:run"])
}

func TestFSWriteThenReadFileRoundTrips(t *testing.T) {
	workspace := t.TempDir()
	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, workspace))

	writeArgs, err := json.Marshal(map[string]any{"path": "out.txt", "content": "hello"})
	require.NoError(t, err)
	_, err = reg.Invoke("fs:write_file", string(writeArgs))
	require.NoError(t, err)

	readArgs, err := json.Marshal(map[string]any{"path": "out.txt"})
	require.NoError(t, err)
	result, err := reg.Invoke("fs:read_file", string(readArgs))
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Equal(t, "hello", parsed["content"])
}

func TestFSReadFileRejectsPathEscapingWorkspace(t *testing.T) {
	workspace := t.TempDir()
	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, workspace))

	args, err := json.Marshal(map[string]any{"path": "../../etc/passwd"})
	require.NoError(t, err)
	_, err = reg.Invoke("fs:read_file", string(args))
	assert.Error(t, err)
}

func TestFSDeleteRemovesFile(t *testing.T) {
	workspace := t.TempDir()
	target := filepath.Join(workspace, "gone.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, workspace))

	args, err := json.Marshal(map[string]any{"path": "gone.txt"})
	require.NoError(t, err)
	_, err = reg.Invoke("fs:delete", string(args))
	require.NoError(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestShellRunCapturesStdoutAndExitCode(t *testing.T) {
	workspace := t.TempDir()
	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, workspace))

	args, err := json.Marshal(map[string]any{"command": "echo", "args": []string{"hi"}})
	require.NoError(t, err)
	result, err := reg.Invoke("shell:run", string(args))
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Contains(t, parsed["stdout"], "hi")
	assert.Equal(t, float64(0), parsed["exit_code"])
}

func TestShellRunRequiresCommand(t *testing.T) {
	workspace := t.TempDir()
	reg := runtime.NewToolRegistry()
	require.NoError(t, registerBuiltinTools(reg, workspace))

	args, err := json.Marshal(map[string]any{"command": ""})
	require.NoError(t, err)
	_, err = reg.Invoke("shell:run", string(args))
	assert.Error(t, err)
}
