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
	"strings"
)

// CompactionConfig holds the StepCompactor's policy knobs.
type CompactionConfig struct {
	RecentWindow     int
	MaxCompactSteps  int
	GroupSimilar     bool
	PreserveFailures bool
}

// DefaultCompactionConfig matches loom-py's CompactionConfig defaults.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		RecentWindow:     5,
		MaxCompactSteps:  20,
		GroupSimilar:     true,
		PreserveFailures: true,
	}
}

// CompactedHistory is produced by the compactor for prompt assembly.
type CompactedHistory struct {
	RecentSteps   []Step
	CompactSteps  []CompactStep
	DroppedCount  int
	TotalOriginal int
}

// FormatForPrompt renders the two-block prompt string.
func (h CompactedHistory) FormatForPrompt() string {
	var b strings.Builder
	if len(h.CompactSteps) > 0 {
		b.WriteString("Previous actions (summarized):\n")
		for _, cs := range h.CompactSteps {
			b.WriteString(cs.String())
			b.WriteString("\n")
		}
		if h.DroppedCount > 0 {
			fmt.Fprintf(&b, "... (%d earlier steps omitted)\n", h.DroppedCount)
		}
		b.WriteString("\n")
	}
	b.WriteString("Recent actions:\n")
	for _, s := range h.RecentSteps {
		mark := "✓"
		if !s.Success {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, s.Observation)
	}
	return b.String()
}

// StepCompactor compacts a step history into a recent window plus grouped
// summaries of older steps.
type StepCompactor struct {
	cfg CompactionConfig
}

// NewStepCompactor builds a StepCompactor with the given config.
func NewStepCompactor(cfg CompactionConfig) *StepCompactor {
	return &StepCompactor{cfg: cfg}
}

// Compact splits steps into a recent window plus grouped summaries of the
// older ones. len(recent)+len(compact) never exceeds RecentWindow +
// MaxCompactSteps, and RecentSteps is always a suffix of steps.
func (c *StepCompactor) Compact(steps []Step) CompactedHistory {
	total := len(steps)
	if total <= c.cfg.RecentWindow {
		return CompactedHistory{RecentSteps: steps, TotalOriginal: total}
	}

	older := steps[:total-c.cfg.RecentWindow]
	recent := steps[total-c.cfg.RecentWindow:]

	var compact []CompactStep
	if c.cfg.GroupSimilar {
		compact = groupAndCompact(older)
	} else {
		for _, s := range older {
			compact = append(compact, s.ToCompact())
		}
	}

	dropped := 0
	if len(compact) > c.cfg.MaxCompactSteps {
		dropped = len(compact) - c.cfg.MaxCompactSteps
		compact = compact[dropped:]
	}

	return CompactedHistory{
		RecentSteps:   recent,
		CompactSteps:  compact,
		DroppedCount:  dropped,
		TotalOriginal: total,
	}
}

func toolCategory(toolName string) string {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "read") || strings.Contains(lower, "write") || strings.Contains(lower, "edit") || strings.Contains(lower, "file") || strings.HasPrefix(lower, "fs:"):
		return "file"
	case strings.Contains(lower, "shell") || strings.Contains(lower, "run") || strings.Contains(lower, "exec") || strings.Contains(lower, "command"):
		return "shell"
	case strings.Contains(lower, "search") || strings.Contains(lower, "grep") || strings.Contains(lower, "find"):
		return "search"
	case strings.Contains(lower, "web") || strings.Contains(lower, "http") || strings.Contains(lower, "fetch") || strings.Contains(lower, "url"):
		return "web"
	default:
		return toolName
	}
}

var categoryNouns = map[string]string{
	"file":   "file operations",
	"shell":  "commands executed",
	"search": "searches",
	"web":    "web fetches",
}

func groupAndCompact(steps []Step) []CompactStep {
	var out []CompactStep
	i := 0
	for i < len(steps) {
		cat := toolCategory(steps[i].ToolName)
		j := i + 1
		for j < len(steps) && toolCategory(steps[j].ToolName) == cat {
			j++
		}
		run := steps[i:j]
		if len(run) == 1 {
			out = append(out, run[0].ToCompact())
		} else {
			out = append(out, summarizeGroup(run, cat))
		}
		i = j
	}
	return out
}

func summarizeGroup(run []Step, category string) CompactStep {
	failures := 0
	for _, s := range run {
		if !s.Success {
			failures++
		}
	}
	noun, ok := categoryNouns[category]
	if !ok {
		noun = fmt.Sprintf("%dx %s", len(run), category)
	} else {
		noun = fmt.Sprintf("%d %s", len(run), noun)
	}
	summary := fmt.Sprintf("[%s..%s] %s", run[0].ID, run[len(run)-1].ID, noun)
	if failures > 0 {
		summary = fmt.Sprintf("%s (%d failed)", summary, failures)
	}
	return CompactStep{ID: run[0].ID, Summary: summary}
}
