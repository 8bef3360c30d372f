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

// Package llm is an OpenAI-compatible chat-completions client: direct
// HTTP calls, blocking and SSE-streaming, against any OpenAI-compatible
// endpoint (DeepSeek, OpenAI, a local server).
//
// Grounded on pkg/llm/openai's client (HTTP + SSE scanner idiom) and
// loom-py/src/loom/llm.py's named-preset table.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config configures one LLM endpoint.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Named presets matching loom-py's LLMProvider.DEEPSEEK/OPENAI/LOCAL, with
// API keys read from the environment at preset-construction time.
var (
	presetDeepSeek = Config{
		BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat",
		APIKey: os.Getenv("DEEPSEEK_API_KEY"), Temperature: 0.7, MaxTokens: 4096, Timeout: 30 * time.Second,
	}
	presetOpenAI = Config{
		BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini",
		APIKey: os.Getenv("OPENAI_API_KEY"), Temperature: 0.7, MaxTokens: 4096, Timeout: 30 * time.Second,
	}
	presetLocal = Config{
		BaseURL: "http://localhost:8000/v1", Model: "qwen2.5-0.5b-instruct",
		Temperature: 0.8, MaxTokens: 2048, Timeout: 30 * time.Second,
	}
)

// FromName builds a Provider from one of the built-in presets: "deepseek",
// "openai", or "local" (case-insensitive).
func FromName(name string) (*Provider, error) {
	switch strings.ToLower(name) {
	case "deepseek":
		return New(presetDeepSeek), nil
	case "openai":
		return New(presetOpenAI), nil
	case "local":
		return New(presetLocal), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q, choose from deepseek, openai, local", name)
	}
}
