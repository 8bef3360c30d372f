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

// Package cognitive implements the agent's thinking strategies:
// single-shot, chain-of-thought, and the iterative ReAct loop, plus the
// tool executor that gates destructive tools behind human approval.
//
// Grounded on loom-py/src/loom/cognitive/{config,types,loop,strategies,executor}.py.
package cognitive

// ThinkingStrategy selects how an agent reasons about a goal.
type ThinkingStrategy string

const (
	StrategySingleShot     ThinkingStrategy = "single_shot"
	StrategyReAct          ThinkingStrategy = "react"
	StrategyChainOfThought ThinkingStrategy = "cot"
)

// Config holds the cognitive loop's tunables.
type Config struct {
	SystemPrompt      string
	Strategy          ThinkingStrategy
	MaxIterations     int
	MaxToolsPerStep   int
	Temperature       float64
	StopOnFinalAnswer bool
}

// DefaultConfig matches loom-py's CognitiveConfig defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyReAct,
		MaxIterations:     10,
		MaxToolsPerStep:   3,
		Temperature:       0.7,
		StopOnFinalAnswer: true,
	}
}
