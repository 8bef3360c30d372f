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
package cognitive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/loom-agent/pkg/contextkit"
)

// toolInvoker is the minimal surface ToolExecutor needs to route a tool
// call either to the local registry or the bridge's remote router. It is
// satisfied by *runtime.EventContext.
type toolInvoker interface {
	Tool(ctx context.Context, name, argumentsJSON string) (output, code string, err error)
}

// PermissionCallback asks a human (or policy) whether a destructive tool
// call may proceed, given a human-readable reason.
type PermissionCallback func(toolName string, args map[string]any, reason string) bool

// toolsRequiringApproval are destructive tools gated behind
// PermissionCallback before their first execution per session.
var toolsRequiringApproval = map[string]bool{
	"fs:write_file": true,
	"fs:delete":     true,
}

// ToolExecutor executes ToolCalls, gating destructive tools behind human
// approval, then routing through the bridge or (once approved) directly
// via a local sandboxed implementation. Bridge results are then
// reduced/offloaded; results of the local approved path are returned
// without a ReducedStep and are not offloaded. Grounded on loom-py's
// ToolExecutor (cognitive/executor.py).
type ToolExecutor struct {
	invoker    toolInvoker
	reducer    *contextkit.StepReducer
	offloader  *contextkit.DataOffloader
	permission PermissionCallback
	workspace  string

	mu            sync.Mutex
	approvedTools map[string]bool
}

// NewToolExecutor builds a ToolExecutor rooted at workspace (used to
// sandbox the locally-executed write_file/delete paths).
func NewToolExecutor(invoker toolInvoker, reducer *contextkit.StepReducer, offloader *contextkit.DataOffloader, workspace string, permission PermissionCallback) *ToolExecutor {
	return &ToolExecutor{
		invoker: invoker, reducer: reducer, offloader: offloader,
		workspace: workspace, permission: permission,
		approvedTools: map[string]bool{},
	}
}

// Execute runs one ToolCall end-to-end.
func (e *ToolExecutor) Execute(ctx context.Context, call *ToolCall) *Observation {
	start := time.Now()

	if e.requiresApproval(call) {
		reason := approvalReason(call)
		if !e.requestPermission(call, reason) {
			return &Observation{
				ToolName: call.Name, Success: false,
				Error:     "Action denied by user",
				LatencyMs: time.Since(start).Milliseconds(),
			}
		}
		e.mu.Lock()
		e.approvedTools[call.Name] = true
		e.mu.Unlock()
		return e.executeWithApproval(call, start)
	}

	return e.executeViaBridge(ctx, call, start)
}

func (e *ToolExecutor) requiresApproval(call *ToolCall) bool {
	e.mu.Lock()
	approved := e.approvedTools[call.Name]
	e.mu.Unlock()
	if approved {
		return false
	}
	return toolsRequiringApproval[call.Name]
}

func approvalReason(call *ToolCall) string {
	switch call.Name {
	case "fs:write_file":
		path, _ := call.Arguments["path"].(string)
		content, _ := call.Arguments["content"].(string)
		preview := content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		return fmt.Sprintf("Write to file '%s' (content: %s)", path, preview)
	case "fs:delete":
		path, _ := call.Arguments["path"].(string)
		return fmt.Sprintf("Delete file or directory '%s'", path)
	default:
		return "Destructive operation: " + call.Name
	}
}

func (e *ToolExecutor) requestPermission(call *ToolCall, reason string) bool {
	if e.permission == nil {
		return false
	}
	return e.permission(call.Name, call.Arguments, reason)
}

func (e *ToolExecutor) executeViaBridge(ctx context.Context, call *ToolCall, start time.Time) *Observation {
	argsJSON, err := json.Marshal(call.Arguments)
	if err != nil {
		return e.process(call, "", false, err.Error(), start)
	}
	out, _, err := e.invoker.Tool(ctx, call.Name, string(argsJSON))
	if err != nil {
		if strings.Contains(err.Error(), "Permission denied") && e.permission != nil {
			if e.requestPermission(call, err.Error()) {
				e.mu.Lock()
				e.approvedTools[call.Name] = true
				e.mu.Unlock()
				return e.executeWithApproval(call, start)
			}
		}
		return e.process(call, "", false, err.Error(), start)
	}

	var parsed any
	rawOutput := out
	if json.Unmarshal([]byte(out), &parsed) == nil {
		if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
			rawOutput = string(pretty)
		}
	}
	return e.process(call, rawOutput, true, "", start)
}

func (e *ToolExecutor) executeWithApproval(call *ToolCall, start time.Time) *Observation {
	var (
		output string
		err    error
	)
	switch call.Name {
	case "shell:run", "system:shell":
		output, err = e.executeShellCommand(call)
	case "fs:write_file":
		output, err = e.executeWriteFile(call)
	case "fs:delete":
		output, err = e.executeDelete(call)
	default:
		return &Observation{
			ToolName: call.Name, Success: false,
			Error:     "Cannot approve this tool type dynamically",
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	if err != nil {
		return &Observation{
			ToolName: call.Name, Success: false, Error: err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	if len(output) > 2000 {
		output = output[:2000]
	}
	return &Observation{
		ToolName: call.Name, Success: true, Output: output,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// executeShellCommand runs an argv-only command, never through a shell,
// preventing injection via unescaped metacharacters.
func (e *ToolExecutor) executeShellCommand(call *ToolCall) (string, error) {
	command, _ := call.Arguments["command"].(string)
	if command == "" {
		return "", fmt.Errorf("shell:run requires a command")
	}
	var args []string
	if raw, ok := call.Arguments["args"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = e.workspace
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after 30 seconds")
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return "", runErr
		}
	}

	data, err := json.MarshalIndent(map[string]any{
		"stdout": stdout.String(), "stderr": stderr.String(),
		"exit_code": exitCode, "approved_by_user": true,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *ToolExecutor) executeWriteFile(call *ToolCall) (string, error) {
	path, _ := call.Arguments["path"].(string)
	content, _ := call.Arguments["content"].(string)

	validated, ok := e.validatePath(path)
	if !ok {
		return "", fmt.Errorf("path traversal detected: path escapes workspace")
	}
	if err := os.MkdirAll(filepath.Dir(validated), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(validated, []byte(content), 0o644); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(map[string]any{
		"path": validated, "bytes_written": len(content), "approved_by_user": true,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *ToolExecutor) executeDelete(call *ToolCall) (string, error) {
	path, _ := call.Arguments["path"].(string)

	validated, ok := e.validatePath(path)
	if !ok {
		return "", fmt.Errorf("path traversal detected: path escapes workspace")
	}

	info, err := os.Stat(validated)
	var deletedType string
	switch {
	case err == nil && info.IsDir():
		if rmErr := os.Remove(validated); rmErr != nil {
			return "", rmErr
		}
		deletedType = "directory (empty)"
	case err == nil:
		if rmErr := os.Remove(validated); rmErr != nil {
			return "", rmErr
		}
		deletedType = "file"
	default:
		return "", fmt.Errorf("path does not exist: %s", validated)
	}

	data, err := json.MarshalIndent(map[string]any{
		"path": validated, "deleted": deletedType, "approved_by_user": true,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// validatePath resolves path against the workspace root and rejects any
// result that escapes it.
func (e *ToolExecutor) validatePath(path string) (string, bool) {
	root, err := filepath.Abs(e.workspace)
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

// process runs the (possibly) successful raw output through the
// offloader then the step reducer, attaching the offload reference onto
// the resulting Step when applicable.
func (e *ToolExecutor) process(call *ToolCall, rawOutput string, success bool, errMsg string, start time.Time) *Observation {
	latency := time.Since(start).Milliseconds()

	if !success {
		step := e.reducer.Reduce(call.Name, call.Arguments, "", false, errMsg)
		return &Observation{ToolName: call.Name, Success: false, Error: errMsg, LatencyMs: latency, ReducedStep: &step}
	}

	category := contextkit.CategoryFor(call.Name)
	identifier := contextkit.IdentifierFor(call.Name, call.Arguments, start.UnixMilli())
	offloadResult := e.offloader.Offload(category, identifier, rawOutput, false)

	output := rawOutput
	if offloadResult.Offloaded {
		output = offloadResult.Content
	}

	step := e.reducer.Reduce(call.Name, call.Arguments, output, true, "")
	if offloadResult.Offloaded {
		step.OutcomeRef = offloadResult.FilePath
	}

	if len(output) > 2000 {
		output = output[:2000]
	}
	return &Observation{ToolName: call.Name, Success: true, Output: output, LatencyMs: latency, ReducedStep: &step}
}
