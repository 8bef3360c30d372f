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
package contextkit

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// toolReducer reduces one tool's (args, result, success, error) into a
// Step's observation + metadata. Grounded on loom-py's ToolReducer ABC and
// its per-family subclasses (reducer.py).
type toolReducer interface {
	Reduce(toolName string, args map[string]any, result string, success bool, errMsg string) (observation string, metadata map[string]any)
}

const maxOutputPreview = 100
const maxResultPreview = 200
const maxShellCmdLen = 80
const shellOutputLineThreshold = 10

type fileReadReducer struct{}

func (fileReadReducer) Reduce(_ string, args map[string]any, result string, success bool, errMsg string) (string, map[string]any) {
	path, _ := args["path"].(string)
	base := filepath.Base(path)
	if !success {
		return fmt.Sprintf("Failed to read %s: %s", base, errMsg), nil
	}
	lines := strings.Count(result, "\n") + 1
	if result == "" {
		lines = 0
	}
	size := formatSize(len(result))
	return fmt.Sprintf("Read %s (%d lines, %s)", base, lines, size), map[string]any{"lines": lines, "size": len(result)}
}

type fileWriteReducer struct{}

func (fileWriteReducer) Reduce(_ string, args map[string]any, _ string, success bool, errMsg string) (string, map[string]any) {
	path, _ := args["path"].(string)
	base := filepath.Base(path)
	if !success {
		return fmt.Sprintf("Failed to write %s: %s", base, errMsg), nil
	}
	content, _ := args["content"].(string)
	lines := strings.Count(content, "\n") + 1
	if content == "" {
		lines = 0
	}
	size := formatSize(len(content))
	return fmt.Sprintf("Wrote %s (%d lines, %s)", base, lines, size), map[string]any{"lines": lines, "size": len(content)}
}

type fileEditReducer struct{}

func (fileEditReducer) Reduce(_ string, args map[string]any, _ string, success bool, errMsg string) (string, map[string]any) {
	path, _ := args["path"].(string)
	base := filepath.Base(path)
	if !success {
		return fmt.Sprintf("Failed to edit %s: %s", base, errMsg), nil
	}
	oldContent, _ := args["old_content"].(string)
	newContent, _ := args["new_content"].(string)
	oldLines := lineCount(oldContent)
	newLines := lineCount(newContent)
	delta := newLines - oldLines
	var deltaStr string
	switch {
	case delta > 0:
		deltaStr = fmt.Sprintf("+%d lines", delta)
	case delta < 0:
		deltaStr = fmt.Sprintf("-%d lines", -delta)
	default:
		deltaStr = "modified"
	}
	return fmt.Sprintf("Edited %s (%s)", base, deltaStr), map[string]any{"delta_lines": delta}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

type shellReducer struct{}

func (shellReducer) Reduce(_ string, args map[string]any, result string, success bool, errMsg string) (string, map[string]any) {
	cmd, _ := args["command"].(string)
	cmd = truncate(cmd, maxShellCmdLen)
	if !success {
		exitCode, _ := args["exit_code"]
		return fmt.Sprintf("Ran `%s` → failed (exit %v): %s", cmd, exitCode, errMsg), nil
	}
	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	if result == "" {
		lines = nil
	}
	if len(lines) > shellOutputLineThreshold {
		return fmt.Sprintf("Ran `%s` → %d lines output", cmd, len(lines)), map[string]any{"lines": len(lines)}
	}
	preview := truncate(result, maxOutputPreview)
	return fmt.Sprintf("Ran `%s` → %s", cmd, preview), map[string]any{"lines": len(lines)}
}

type searchReducer struct{}

func (searchReducer) Reduce(_ string, args map[string]any, result string, success bool, errMsg string) (string, map[string]any) {
	q, _ := args["query"].(string)
	if !success {
		return fmt.Sprintf("Search '%s' failed: %s", q, errMsg), nil
	}
	count := countMatches(result)
	return fmt.Sprintf("Search '%s' → %d matches", q, count), map[string]any{"matches": count}
}

func countMatches(result string) int {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "\n") + 1
}

var webFetchDomainRe = regexp.MustCompile(`https?://([^/]+)`)

type webFetchReducer struct{}

func (webFetchReducer) Reduce(_ string, args map[string]any, result string, success bool, errMsg string) (string, map[string]any) {
	url, _ := args["url"].(string)
	domain := url
	if m := webFetchDomainRe.FindStringSubmatch(url); m != nil {
		domain = m[1]
	}
	if !success {
		return fmt.Sprintf("Failed to fetch %s: %s", domain, errMsg), nil
	}
	return fmt.Sprintf("Fetched %s (%s)", domain, formatSize(len(result))), map[string]any{"size": len(result)}
}

type defaultReducer struct{}

func (defaultReducer) Reduce(toolName string, _ map[string]any, result string, success bool, errMsg string) (string, map[string]any) {
	if !success {
		return fmt.Sprintf("%s → failed: %s", toolName, errMsg), nil
	}
	return fmt.Sprintf("%s → %s", toolName, truncate(result, maxResultPreview)), nil
}

// StepReducer dispatches a tool invocation to a per-family reducer,
// minimizes its arguments, and assigns the next step id.
type StepReducer struct {
	ids      *StepIDGenerator
	exact    map[string]toolReducer
	fallback map[string]toolReducer
	def      toolReducer
}

// NewStepReducer builds a StepReducer with its own step-id generator.
func NewStepReducer() *StepReducer {
	fr := fileReadReducer{}
	fw := fileWriteReducer{}
	fe := fileEditReducer{}
	sh := shellReducer{}
	se := searchReducer{}
	wf := webFetchReducer{}
	return &StepReducer{
		ids: NewStepIDGenerator(),
		exact: map[string]toolReducer{
			"fs:read_file": fr, "fs:read": fr, "read_file": fr,
			"fs:write_file": fw, "fs:write": fw, "write_file": fw,
			"fs:edit_file": fe, "fs:edit": fe, "edit_file": fe,
			"shell:run": sh, "shell:exec": sh, "run_command": sh, "execute": sh,
			"fs:search": se, "fs:grep": se, "search": se, "grep": se,
			"web:fetch": wf, "web:get": wf, "http:get": wf, "fetch_url": wf,
		},
		fallback: map[string]toolReducer{
			"read": fr, "write": fw, "edit": fe, "shell": sh,
			"search": se, "grep": se, "web": wf, "http": wf,
		},
		def: defaultReducer{},
	}
}

// ResetCounter restarts step numbering at step_001 for a new cognitive run.
func (r *StepReducer) ResetCounter() { r.ids.Reset() }

func (r *StepReducer) resolve(toolName string) toolReducer {
	if red, ok := r.exact[toolName]; ok {
		return red
	}
	if idx := strings.LastIndex(toolName, ":"); idx >= 0 {
		suffix := toolName[idx+1:]
		if red, ok := r.fallback[suffix]; ok {
			return red
		}
	}
	return r.def
}

// Reduce produces a Step from one tool invocation's raw inputs/outputs.
func (r *StepReducer) Reduce(toolName string, args map[string]any, result string, success bool, errMsg string) Step {
	red := r.resolve(toolName)
	observation, meta := red.Reduce(toolName, args, result, success, errMsg)
	return Step{
		ID:          r.ids.Next(),
		ToolName:    toolName,
		MinimalArgs: minimizeArgs(args),
		Observation: observation,
		Success:     success,
		TimestampMs: time.Now().UnixMilli(),
		Error:       errMsg,
		Metadata:    meta,
	}
}

// minimizeArgs truncates large string values and summarizes containers by
// cardinality, matching loom-py's _minimize_args.
func minimizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		switch val := v.(type) {
		case string:
			out[k] = truncate(val, maxOutputPreview)
		case []any:
			out[k] = fmt.Sprintf("[%d items]", len(val))
		case map[string]any:
			out[k] = fmt.Sprintf("{%d keys}", len(val))
		default:
			out[k] = v
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func formatSize(bytes int) string {
	const kb = 1024
	const mb = kb * 1024
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
