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

import "github.com/teradata-labs/loom-agent/pkg/contextkit"

// ToolCall is a tool invocation the strategy executor wants to make.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Observation is the outcome of executing a ToolCall.
type Observation struct {
	ToolName    string
	Success     bool
	Output      string
	Error       string
	LatencyMs   int64
	ReducedStep *contextkit.Step
}

// ThoughtStep is one Thought -> Action -> Observation cycle.
type ThoughtStep struct {
	Step        int
	Reasoning   string
	ToolCall    *ToolCall
	Observation *Observation
	ReducedStep *contextkit.Step
}

// Result is the outcome of a full cognitive run.
type Result struct {
	Answer         string
	Steps          []ThoughtStep
	Iterations     int
	Success        bool
	Error          string
	TotalLatencyMs int64
}

// StreamEvent is one frame of a streaming cognitive run: exactly one field
// is set. Each iteration yields its chunks followed by at most one step,
// and a single result comes last.
type StreamEvent struct {
	Chunk  string
	Step   *ThoughtStep
	Result *Result
}
