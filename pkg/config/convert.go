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
package config

import (
	"github.com/teradata-labs/loom-agent/pkg/cognitive"
	"github.com/teradata-labs/loom-agent/pkg/contextkit"
	"github.com/teradata-labs/loom-agent/pkg/llm"
)

// CognitiveConfig converts the resolved CognitiveSpec into a
// cognitive.Config, filling any zero fields from cognitive.DefaultConfig.
func (c *RuntimeConfig) CognitiveConfig() cognitive.Config {
	def := cognitive.DefaultConfig()
	cfg := cognitive.Config{
		Strategy:          cognitive.ThinkingStrategy(c.Cognitive.Strategy),
		MaxIterations:     c.Cognitive.MaxIterations,
		MaxToolsPerStep:   c.Cognitive.MaxToolsPerStep,
		Temperature:       c.Cognitive.Temperature,
		StopOnFinalAnswer: def.StopOnFinalAnswer,
	}
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxToolsPerStep == 0 {
		cfg.MaxToolsPerStep = def.MaxToolsPerStep
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	return cfg
}

// OffloadConfig converts the resolved OffloadSpec into a
// contextkit.OffloadConfig.
func (c *RuntimeConfig) OffloadConfig() contextkit.OffloadConfig {
	def := contextkit.DefaultOffloadConfig()
	cfg := contextkit.OffloadConfig{
		CacheDir:      c.Offload.CacheDir,
		SizeThreshold: c.Offload.SizeThreshold,
		LineThreshold: c.Offload.LineThreshold,
		PreviewLines:  c.Offload.PreviewLines,
		MaxAgeHours:   c.Offload.MaxAgeHours,
		Enabled:       c.Offload.Enabled == nil || *c.Offload.Enabled,
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.SizeThreshold == 0 {
		cfg.SizeThreshold = def.SizeThreshold
	}
	if cfg.LineThreshold == 0 {
		cfg.LineThreshold = def.LineThreshold
	}
	if cfg.PreviewLines == 0 {
		cfg.PreviewLines = def.PreviewLines
	}
	if cfg.MaxAgeHours == 0 {
		cfg.MaxAgeHours = def.MaxAgeHours
	}
	return cfg
}

// CompactionConfig converts the resolved CompactionSpec into a
// contextkit.CompactionConfig.
func (c *RuntimeConfig) CompactionConfig() contextkit.CompactionConfig {
	def := contextkit.DefaultCompactionConfig()
	cfg := contextkit.CompactionConfig{
		RecentWindow:     c.Compaction.RecentWindow,
		MaxCompactSteps:  c.Compaction.MaxCompactSteps,
		GroupSimilar:     c.Compaction.GroupSimilar == nil || *c.Compaction.GroupSimilar,
		PreserveFailures: c.Compaction.PreserveFailures == nil || *c.Compaction.PreserveFailures,
	}
	if cfg.RecentWindow == 0 {
		cfg.RecentWindow = def.RecentWindow
	}
	if cfg.MaxCompactSteps == 0 {
		cfg.MaxCompactSteps = def.MaxCompactSteps
	}
	return cfg
}

// BuildLLMProvider resolves the configured LLM provider: a project-file
// override when present, else one of the named LLM provider presets.
func (c *RuntimeConfig) BuildLLMProvider() (*llm.Provider, error) {
	if c.LLMProject != nil && c.LLMProject.BaseURL != "" {
		return llm.New(llm.Config{
			BaseURL:     c.LLMProject.BaseURL,
			Model:       c.LLMProject.Model,
			APIKey:      c.LLMProject.APIKey,
			Temperature: c.LLMProject.Temperature,
			MaxTokens:   c.LLMProject.MaxTokens,
			Timeout:     c.LLMTimeout(),
		}), nil
	}
	name := c.LLMProviderName
	if c.LLMProject != nil && c.LLMProject.Preset != "" {
		name = c.LLMProject.Preset
	}
	return llm.FromName(name)
}
