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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/teradata-labs/loom-agent/pkg/contextkit"
)

// BuildReActSystemPrompt assembles the ReAct system prompt, listing the
// agent's available tools.
func BuildReActSystemPrompt(basePrompt string, availableTools []string) string {
	base := basePrompt
	if base == "" {
		base = "You are a helpful AI assistant."
	}
	toolsDesc := ""
	if len(availableTools) > 0 {
		toolsDesc = "\n\nAvailable tools: " + strings.Join(availableTools, ", ")
	}
	return fmt.Sprintf(`%s

You follow the ReAct (Reasoning + Acting) pattern:
1. Thought: Analyze the situation and decide what to do
2. Action: If needed, call a tool using JSON format: {"tool": "tool_name", "args": {"key": "value"}}
3. STOP and wait for the real Observation from the system
4. Repeat until you have enough information

IMPORTANT RULES:
- After outputting an Action JSON, you MUST STOP immediately
- Do NOT write "Observation:" yourself - the system will provide real results
- Do NOT imagine or make up tool results
- Only output ONE thought and ONE action per response
- When you have gathered enough information, respond with:
  FINAL ANSWER: <your complete answer here>%s`, base, toolsDesc)
}

// BuildReActPrompt renders the current iteration's prompt from the goal
// and prior steps, optionally through a StepCompactor.
func BuildReActPrompt(goal string, steps []ThoughtStep, compactor *contextkit.StepCompactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s", goal)

	if len(steps) > 0 {
		b.WriteString("\n\nPrevious steps:")
		if compactor != nil {
			ckSteps := make([]contextkit.Step, 0, len(steps))
			for _, s := range steps {
				if s.ReducedStep != nil {
					ckSteps = append(ckSteps, *s.ReducedStep)
				}
			}
			if len(ckSteps) > 0 {
				history := compactor.Compact(ckSteps)
				b.WriteString("\n")
				b.WriteString(history.FormatForPrompt())
			} else {
				writeRawSteps(&b, steps)
			}
		} else {
			writeRawSteps(&b, steps)
		}
	}

	b.WriteString("\n\nWhat is your next thought or final answer?")
	return b.String()
}

func writeRawSteps(b *strings.Builder, steps []ThoughtStep) {
	for _, s := range steps {
		fmt.Fprintf(b, "\nThought %d: %s", s.Step, s.Reasoning)
		if s.ToolCall != nil {
			fmt.Fprintf(b, "\nAction: %s(%v)", s.ToolCall.Name, s.ToolCall.Arguments)
		}
		if s.Observation != nil {
			if s.Observation.Success {
				fmt.Fprintf(b, "\nObservation: %s", s.Observation.Output)
			} else {
				fmt.Fprintf(b, "\nObservation: Error - %s", s.Observation.Error)
			}
		}
	}
}

// BuildCoTPrompt renders the chain-of-thought prompt.
func BuildCoTPrompt(goal string) string {
	return fmt.Sprintf(`Task: %s

Let's think through this step by step:
1. First, I'll identify what we need to do
2. Then, I'll work through the logic
3. Finally, I'll provide the answer

Begin:`, goal)
}

// ParsedResponseType classifies a parsed LLM response.
type ParsedResponseType string

const (
	ParsedFinalAnswer ParsedResponseType = "final_answer"
	ParsedToolCall    ParsedResponseType = "tool_call"
	ParsedReasoning   ParsedResponseType = "reasoning"
)

// ParsedResponse is the result of parsing one LLM turn in the ReAct loop.
type ParsedResponse struct {
	Type    ParsedResponseType
	Content string
	Thought string
	Tool    string
	Args    map[string]any
}

var (
	finalAnswerRe   = regexp.MustCompile(`(?is)FINAL ANSWER:\s*(.+)`)
	thoughtPrefixRe = regexp.MustCompile(`(?i)^(Thought\s*\d*:|Action:)\s*`)

	truncationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\nObservation:`),
		regexp.MustCompile(`(?i)\nThought\s*\d+:`),
		regexp.MustCompile(`(?i)\nAction:\s*\n*Action:`),
		regexp.MustCompile(`(?i)\nAction:\s*[a-z_]+:`),
	}
)

// ParseReActResponse extracts a thought, a tool call, or a final answer
// out of a raw LLM response, truncating hallucinated continuations first.
func ParseReActResponse(response string) ParsedResponse {
	response = strings.TrimSpace(response)

	for _, pat := range truncationPatterns {
		loc := pat.FindStringIndex(response)
		if loc == nil {
			continue
		}
		before := response[:loc[0]]
		if hasToolCall(before) {
			response = strings.TrimSpace(before)
			break
		}
	}

	if m := finalAnswerRe.FindStringSubmatch(response); m != nil {
		return ParsedResponse{Type: ParsedFinalAnswer, Content: strings.TrimSpace(m[1])}
	}

	if tc := ExtractToolCall(response); tc != nil {
		thought := response
		if idx := strings.Index(response, "{"); idx >= 0 {
			thought = response[:idx]
		}
		thought = strings.TrimSpace(thoughtPrefixRe.ReplaceAllString(strings.TrimSpace(thought), ""))
		return ParsedResponse{Type: ParsedToolCall, Thought: thought, Tool: tc.Tool, Args: tc.Args}
	}

	content := thoughtPrefixRe.ReplaceAllString(response, "")
	return ParsedResponse{Type: ParsedReasoning, Content: content}
}

func hasToolCall(text string) bool {
	return ExtractToolCall(text) != nil
}

// extractedToolCall is the intermediate shape for both the JSON and
// Python-style extraction paths.
type extractedToolCall struct {
	Tool string
	Args map[string]any
}

var pythonStyleCallRe = regexp.MustCompile(`(?is)Action:\s*([a-z_:]+)\s*\(\s*(\{.+?\})\s*\)`)

// ExtractToolCall finds a tool-call description in text, trying a brace-
// matched JSON object first (supporting {tool,args}/{action,arguments}/
// {name,input} key aliases), then a Python-style `Action: name({...})`
// call with single-quoted keys normalized to JSON.
func ExtractToolCall(text string) *extractedToolCall {
	if tc := extractJSONToolCall(text); tc != nil {
		return tc
	}

	m := pythonStyleCallRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	toolName := m[1]
	argsStr := strings.ReplaceAll(m[2], "'", `"`)
	var args map[string]any
	if err := json.Unmarshal([]byte(argsStr), &args); err != nil {
		return nil
	}
	return &extractedToolCall{Tool: toolName, Args: args}
}

// extractJSONToolCall finds the first balanced-brace JSON object in text
// and interprets it as a tool call, matching _extract_json_tool_call's
// depth-counting brace matcher.
func extractJSONToolCall(text string) *extractedToolCall {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil
	}
	depth := 0
	end := -1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil
	}

	toolName, _ := firstString(obj, "tool", "action", "name")
	if toolName == "" {
		return nil
	}
	args, _ := firstMap(obj, "args", "arguments", "input")
	if args == nil {
		args = map[string]any{}
	}
	return &extractedToolCall{Tool: toolName, Args: args}
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func firstMap(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

// SynthesizeAnswer builds a fallback answer from gathered observations
// when the loop exhausts its iterations without an explicit final answer.
func SynthesizeAnswer(steps []ThoughtStep) string {
	if len(steps) == 0 {
		return ""
	}
	var observations []string
	for _, s := range steps {
		if s.Observation != nil && s.Observation.Success {
			out := s.Observation.Output
			if len(out) > 500 {
				out = out[:500]
			}
			observations = append(observations, "- "+out)
		}
	}
	if len(observations) > 0 {
		return "Based on the gathered information:\n" + strings.Join(observations, "\n")
	}
	return steps[len(steps)-1].Reasoning
}
