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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/loom-agent/pkg/cognitive"
)

func TestCognitiveConfigFillsZeroFieldsFromDefaults(t *testing.T) {
	cfg := (&RuntimeConfig{}).CognitiveConfig()
	def := cognitive.DefaultConfig()
	assert.Equal(t, def.Strategy, cfg.Strategy)
	assert.Equal(t, def.MaxIterations, cfg.MaxIterations)
	assert.Equal(t, def.MaxToolsPerStep, cfg.MaxToolsPerStep)
	assert.Equal(t, def.Temperature, cfg.Temperature)
}

func TestCognitiveConfigPreservesSetFields(t *testing.T) {
	rc := &RuntimeConfig{Cognitive: CognitiveSpec{
		Strategy: "cot", MaxIterations: 3, MaxToolsPerStep: 1, Temperature: 0.2,
	}}
	cfg := rc.CognitiveConfig()
	assert.Equal(t, "cot", string(cfg.Strategy))
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 1, cfg.MaxToolsPerStep)
	assert.Equal(t, 0.2, cfg.Temperature)
}

func TestOffloadConfigDefaultsEnabledWhenNilPointer(t *testing.T) {
	cfg := (&RuntimeConfig{}).OffloadConfig()
	assert.True(t, cfg.Enabled)
}

func TestOffloadConfigHonorsExplicitDisable(t *testing.T) {
	disabled := false
	rc := &RuntimeConfig{Offload: OffloadSpec{Enabled: &disabled}}
	cfg := rc.OffloadConfig()
	assert.False(t, cfg.Enabled)
}

func TestOffloadConfigFillsZeroFieldsFromDefaults(t *testing.T) {
	cfg := (&RuntimeConfig{}).OffloadConfig()
	assert.NotEmpty(t, cfg.CacheDir)
	assert.NotZero(t, cfg.SizeThreshold)
	assert.NotZero(t, cfg.LineThreshold)
	assert.NotZero(t, cfg.PreviewLines)
	assert.NotZero(t, cfg.MaxAgeHours)
}

func TestCompactionConfigDefaultsTrueWhenNilPointers(t *testing.T) {
	cfg := (&RuntimeConfig{}).CompactionConfig()
	assert.True(t, cfg.GroupSimilar)
	assert.True(t, cfg.PreserveFailures)
}

func TestCompactionConfigHonorsExplicitFalse(t *testing.T) {
	f := false
	rc := &RuntimeConfig{Compaction: CompactionSpec{GroupSimilar: &f, PreserveFailures: &f}}
	cfg := rc.CompactionConfig()
	assert.False(t, cfg.GroupSimilar)
	assert.False(t, cfg.PreserveFailures)
}

func TestBuildLLMProviderUsesNamedPreset(t *testing.T) {
	rc := &RuntimeConfig{LLMProviderName: "local"}
	provider, err := rc.BuildLLMProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestBuildLLMProviderRejectsUnknownPreset(t *testing.T) {
	rc := &RuntimeConfig{LLMProviderName: "nonexistent"}
	_, err := rc.BuildLLMProvider()
	assert.Error(t, err)
}

func TestBuildLLMProviderPrefersProjectOverrideBaseURL(t *testing.T) {
	rc := &RuntimeConfig{
		LLMProviderName: "local",
		LLMProject:      &LLMProviderSpec{BaseURL: "https://example.test/v1", Model: "custom"},
	}
	provider, err := rc.BuildLLMProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestBuildLLMProviderUsesProjectPresetOverride(t *testing.T) {
	rc := &RuntimeConfig{
		LLMProviderName: "deepseek",
		LLMProject:      &LLMProviderSpec{Preset: "local"},
	}
	provider, err := rc.BuildLLMProvider()
	require.NoError(t, err)
	assert.NotNil(t, provider)
}
