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

// Package contextkit implements the context-engineering subsystem:
// Step/CompactStep records, per-tool-family StepReducer, the content-
// addressed DataOffloader cache, and the recent-window StepCompactor.
//
// Grounded on loom-py/src/loom/context/engineering/{step,reducer,offloader}.py
// and loom-py/src/loom/context/compactor.py.
package contextkit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
)

// Step is a reduced record of one tool execution.
type Step struct {
	ID          string         `json:"id"`
	ToolName    string         `json:"tool_name"`
	MinimalArgs map[string]any `json:"minimal_args"`
	Observation string         `json:"observation"`
	Success     bool           `json:"success"`
	TimestampMs int64          `json:"timestamp_ms"`
	OutcomeRef  string         `json:"outcome_ref,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CompactStep is a one-line summary of a Step, or of a group of Steps.
type CompactStep struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// String renders a CompactStep as a bulleted line, matching loom-py's
// CompactStep.__str__.
func (c CompactStep) String() string {
	return "• " + c.Summary
}

// ToCompact reduces a Step to its one-line CompactStep form.
func (s Step) ToCompact() CompactStep {
	return CompactStep{ID: s.ID, Summary: s.Observation}
}

// StepIDGenerator is a monotonic counter for generating step IDs. Each
// generator counts on its own; Reset restarts it for a new cognitive run,
// mirroring loom-py's module-level counter + reset_counter().
type StepIDGenerator struct {
	n atomic.Int64
}

// NewStepIDGenerator returns a generator starting at step_001.
func NewStepIDGenerator() *StepIDGenerator {
	return &StepIDGenerator{}
}

// Next returns the next step id, e.g. "step_001".
func (g *StepIDGenerator) Next() string {
	n := g.n.Add(1)
	return fmt.Sprintf("step_%03d", n)
}

// Reset restarts numbering at step_001 for a new cognitive run.
func (g *StepIDGenerator) Reset() {
	g.n.Store(0)
}

var (
	defaultGen     = NewStepIDGenerator()
	defaultGenOnce sync.Once
)

// GenerateStepID returns the next step id from the package-level
// generator, for callers that don't manage their own per-run generator.
func GenerateStepID() string {
	return defaultGen.Next()
}

// ComputeContentHash returns the first 16 hex characters of the content's
// SHA-256 digest.
func ComputeContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
