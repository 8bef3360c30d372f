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
	"time"

	"github.com/teradata-labs/loom-agent/pkg/contextkit"
)

// LLMProvider is the subset of pkg/llm.Provider the cognitive loop needs:
// a blocking completion and a streaming one.
type LLMProvider interface {
	Generate(ctx context.Context, prompt, system string, temperature float64) (string, error)
	GenerateStream(ctx context.Context, prompt, system string, temperature float64) (<-chan string, <-chan error)
}

// memoryWriter is the subset of runtime.WorkingMemory the executor needs.
type memoryWriter interface {
	Add(role, content string, metadata map[string]any)
}

// StrategyExecutor runs one of the thinking strategies for a goal.
// Grounded on loom-py's StrategyExecutor (cognitive/strategies.py).
type StrategyExecutor struct {
	llm            LLMProvider
	config         Config
	memory         memoryWriter
	toolExecutor   *ToolExecutor
	stepCompactor  *contextkit.StepCompactor
	availableTools []string
}

// NewStrategyExecutor builds a StrategyExecutor.
func NewStrategyExecutor(llm LLMProvider, config Config, memory memoryWriter, toolExecutor *ToolExecutor, stepCompactor *contextkit.StepCompactor, availableTools []string) *StrategyExecutor {
	return &StrategyExecutor{
		llm: llm, config: config, memory: memory,
		toolExecutor: toolExecutor, stepCompactor: stepCompactor, availableTools: availableTools,
	}
}

// Run dispatches to the configured ThinkingStrategy.
func (s *StrategyExecutor) Run(ctx context.Context, goal string) (*Result, error) {
	switch s.config.Strategy {
	case StrategySingleShot:
		return s.RunSingleShot(ctx, goal)
	case StrategyChainOfThought:
		return s.RunCoT(ctx, goal)
	default:
		return s.RunReAct(ctx, goal)
	}
}

// RunSingleShot makes exactly one LLM call with no tool use.
func (s *StrategyExecutor) RunSingleShot(ctx context.Context, goal string) (*Result, error) {
	system := s.config.SystemPrompt
	if system == "" {
		system = "You are a helpful AI assistant."
	}
	response, err := s.llm.Generate(ctx, goal, system, s.config.Temperature)
	if err != nil {
		return nil, err
	}
	s.memory.Add("assistant", response, nil)
	return &Result{Answer: response, Iterations: 1, Success: true}, nil
}

// RunCoT makes one LLM call against a step-by-step reasoning prompt, no
// tools.
func (s *StrategyExecutor) RunCoT(ctx context.Context, goal string) (*Result, error) {
	system := s.config.SystemPrompt
	if system == "" {
		system = "You are a helpful AI assistant. Think through problems step by step. Show your reasoning process clearly."
	}
	prompt := BuildCoTPrompt(goal)
	response, err := s.llm.Generate(ctx, prompt, system, s.config.Temperature)
	if err != nil {
		return nil, err
	}
	s.memory.Add("assistant", response, nil)
	return &Result{Answer: response, Iterations: 1, Success: true}, nil
}

// RunReAct drives the iterative Thought -> Action -> Observation loop
// until a FINAL ANSWER is produced or max_iterations is exhausted; it
// always terminates within max_iterations.
func (s *StrategyExecutor) RunReAct(ctx context.Context, goal string) (*Result, error) {
	result := &Result{}
	system := BuildReActSystemPrompt(s.config.SystemPrompt, s.availableTools)
	start := time.Now()

	for iteration := 0; iteration < s.config.MaxIterations; iteration++ {
		result.Iterations = iteration + 1

		prompt := BuildReActPrompt(goal, result.Steps, s.stepCompactor)
		response, err := s.llm.Generate(ctx, prompt, system, s.config.Temperature)
		if err != nil {
			result.Error = err.Error()
			result.Success = false
			result.TotalLatencyMs = time.Since(start).Milliseconds()
			return result, err
		}

		parsed := ParseReActResponse(response)

		switch parsed.Type {
		case ParsedFinalAnswer:
			result.Answer = parsed.Content
			result.Success = true
			s.memory.Add("assistant", result.Answer, nil)
			result.TotalLatencyMs = time.Since(start).Milliseconds()
			return result, nil

		case ParsedToolCall:
			step := s.runToolStep(ctx, iteration+1, parsed)
			result.Steps = append(result.Steps, step)

		default:
			step := ThoughtStep{Step: iteration + 1, Reasoning: parsed.Content}
			result.Steps = append(result.Steps, step)
			s.memory.Add("assistant", "Thought: "+parsed.Content, nil)
		}
	}

	if result.Answer == "" {
		result.Answer = SynthesizeAnswer(result.Steps)
		result.Success = result.Answer != ""
	}
	result.TotalLatencyMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *StrategyExecutor) runToolStep(ctx context.Context, stepNum int, parsed ParsedResponse) ThoughtStep {
	toolCall := &ToolCall{Name: parsed.Tool, Arguments: parsed.Args}
	step := ThoughtStep{Step: stepNum, Reasoning: parsed.Thought, ToolCall: toolCall}

	observation := s.toolExecutor.Execute(ctx, toolCall)
	step.Observation = observation
	if observation.ReducedStep != nil {
		step.ReducedStep = observation.ReducedStep
	}

	s.memory.Add("assistant", "Thought: "+step.Reasoning+"\nAction: "+toolCall.Name, nil)

	var obsText string
	switch {
	case observation.ReducedStep != nil && observation.ReducedStep.OutcomeRef != "":
		obsText = "Observation: (Data saved to " + observation.ReducedStep.OutcomeRef + ")"
	case observation.Success:
		obsText = "Observation: " + observation.Output
	default:
		obsText = "Observation: " + observation.Error
	}
	s.memory.Add("system", obsText, nil)

	return step
}

// RunReActStream is the streaming variant of RunReAct: LLM chunks, then
// each completed ThoughtStep, then the final Result, all delivered on the
// returned channel in order. The channel is closed when the run completes
// or ctx is cancelled.
func (s *StrategyExecutor) RunReActStream(ctx context.Context, goal string) <-chan StreamEvent {
	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		result := &Result{}
		system := BuildReActSystemPrompt(s.config.SystemPrompt, s.availableTools)

		for iteration := 0; iteration < s.config.MaxIterations; iteration++ {
			result.Iterations = iteration + 1
			prompt := BuildReActPrompt(goal, result.Steps, s.stepCompactor)

			chunks, errs := s.llm.GenerateStream(ctx, prompt, system, s.config.Temperature)
			var full string
		drain:
			for {
				select {
				case chunk, ok := <-chunks:
					if !ok {
						break drain
					}
					full += chunk
					select {
					case out <- StreamEvent{Chunk: chunk}:
					case <-ctx.Done():
						return
					}
				case err := <-errs:
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}

			parsed := ParseReActResponse(full)
			switch parsed.Type {
			case ParsedFinalAnswer:
				result.Answer = parsed.Content
				result.Success = true
				s.memory.Add("assistant", result.Answer, nil)
				out <- StreamEvent{Result: result}
				return

			case ParsedToolCall:
				step := s.runToolStep(ctx, iteration+1, parsed)
				result.Steps = append(result.Steps, step)
				out <- StreamEvent{Step: &step}

			default:
				step := ThoughtStep{Step: iteration + 1, Reasoning: parsed.Content}
				result.Steps = append(result.Steps, step)
				s.memory.Add("assistant", "Thought: "+step.Reasoning, nil)
				out <- StreamEvent{Step: &step}
			}
		}

		if result.Answer == "" {
			result.Answer = SynthesizeAnswer(result.Steps)
			result.Success = result.Answer != ""
		}
		out <- StreamEvent{Result: result}
	}()
	return out
}
