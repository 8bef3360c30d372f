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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/loom-agent/pkg/contextkit"
)

type fakeLLM struct {
	responses []string
	call      int
	err       error
}

func (f *fakeLLM) Generate(_ context.Context, prompt, system string, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.call >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.call]
	f.call++
	return r, nil
}

func (f *fakeLLM) GenerateStream(_ context.Context, prompt, system string, temperature float64) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if f.call >= len(f.responses) {
			return
		}
		chunks <- f.responses[f.call]
		f.call++
	}()
	return chunks, errs
}

type recordingMemory struct {
	entries []string
}

func (m *recordingMemory) Add(role, content string, _ map[string]any) {
	m.entries = append(m.entries, role+": "+content)
}

func TestRunSingleShot(t *testing.T) {
	llm := &fakeLLM{responses: []string{"the answer is 42"}}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{Temperature: 0.5}, mem, nil, nil, nil)

	result, err := exec.RunSingleShot(context.Background(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.True(t, result.Success)
	assert.Len(t, mem.entries, 1)
}

func TestRunSingleShotPropagatesLLMError(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("upstream down")}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{}, mem, nil, nil, nil)

	_, err := exec.RunSingleShot(context.Background(), "goal")
	assert.Error(t, err)
}

func TestRunCoT(t *testing.T) {
	llm := &fakeLLM{responses: []string{"step by step... answer: 7"}}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{}, mem, nil, nil, nil)

	result, err := exec.RunCoT(context.Background(), "sum 3 and 4")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "answer: 7")
}

func TestRunDispatchesByStrategy(t *testing.T) {
	llm := &fakeLLM{responses: []string{"FINAL ANSWER: done"}}
	mem := &recordingMemory{}

	single := NewStrategyExecutor(llm, Config{Strategy: StrategySingleShot}, mem, nil, nil, nil)
	r, err := single.Run(context.Background(), "goal")
	require.NoError(t, err)
	assert.Equal(t, "FINAL ANSWER: done", r.Answer)
}

func TestRunReActStopsOnFinalAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`Thought: let's check.
Action: {"tool": "fs:read_file", "args": {"path": "a.go"}}`,
		"FINAL ANSWER: the bug is a typo on line 3",
	}}
	mem := &recordingMemory{}
	invoker := &fakeInvoker{output: "package main"}
	toolExec := NewToolExecutor(invoker, contextkit.NewStepReducer(), contextkit.NewDataOffloader(t.TempDir(), contextkit.DefaultOffloadConfig()), t.TempDir(), nil)
	exec := NewStrategyExecutor(llm, Config{Strategy: StrategyReAct, MaxIterations: 5}, mem, toolExec, contextkit.NewStepCompactor(contextkit.DefaultCompactionConfig()), []string{"fs:read_file"})

	result, err := exec.RunReAct(context.Background(), "find the bug")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "the bug is a typo on line 3", result.Answer)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "fs:read_file", result.Steps[0].ToolCall.Name)
}

// TestRunReActTerminatesWithinMaxIterations checks that the loop always
// terminates within MaxIterations even if the LLM never emits a final
// answer.
func TestRunReActTerminatesWithinMaxIterations(t *testing.T) {
	llm := &fakeLLM{responses: []string{"Thought: still thinking, never concluding."}}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{Strategy: StrategyReAct, MaxIterations: 3}, mem, nil, nil, nil)

	result, err := exec.RunReAct(context.Background(), "an unanswerable goal")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Iterations)
	assert.Len(t, result.Steps, 3)
	assert.Equal(t, "still thinking, never concluding.", result.Answer, "falls back to the last reasoning step's content")
}

func TestRunReActPropagatesLLMErrorMidLoop(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("connection reset")}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{Strategy: StrategyReAct, MaxIterations: 3}, mem, nil, nil, nil)

	result, err := exec.RunReAct(context.Background(), "goal")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "connection reset", result.Error)
}

func TestRunReActStreamDeliversChunksStepsThenResult(t *testing.T) {
	llm := &fakeLLM{responses: []string{"FINAL ANSWER: streamed done"}}
	mem := &recordingMemory{}
	exec := NewStrategyExecutor(llm, Config{Strategy: StrategyReAct, MaxIterations: 3}, mem, nil, nil, nil)

	var gotResult *Result
	var gotChunk string
	for ev := range exec.RunReActStream(context.Background(), "goal") {
		if ev.Chunk != "" {
			gotChunk = ev.Chunk
		}
		if ev.Result != nil {
			gotResult = ev.Result
		}
	}

	require.NotNil(t, gotResult)
	assert.Equal(t, "streamed done", gotResult.Answer)
	assert.Equal(t, "FINAL ANSWER: streamed done", gotChunk)
}
