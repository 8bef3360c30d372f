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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresBridgeAddr(t *testing.T) {
	_, err := Load(viper.New(), "")
	assert.ErrorContains(t, err, "bridge.addr is required")
}

func TestLoadAppliesDefaultsWithNoProjectFile(t *testing.T) {
	v := viper.New()
	v.Set("bridge.addr", "localhost:7070")

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "localhost:7070", cfg.BridgeAddr)
	assert.Equal(t, "deepseek", cfg.LLMProviderName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "react", cfg.Cognitive.Strategy)
	assert.Equal(t, 10, cfg.Cognitive.MaxIterations)
	require.NotNil(t, cfg.Offload.Enabled)
	assert.True(t, *cfg.Offload.Enabled)
	require.NotNil(t, cfg.Compaction.GroupSimilar)
	assert.True(t, *cfg.Compaction.GroupSimilar)
	require.NotNil(t, cfg.Compaction.PreserveFailures)
	assert.True(t, *cfg.Compaction.PreserveFailures)
}

func TestLoadProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiVersion: loom-agent/v1
kind: AgentProject
metadata:
  name: demo-agent
spec:
  bridge:
    addr: project-bridge:7070
  cognitive:
    strategy: cot
    max_iterations: 4
  offload:
    enabled: false
  compaction:
    group_similar: false
    preserve_failures: false
`), 0o644))

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "project-bridge:7070", cfg.BridgeAddr)
	assert.Equal(t, "cot", cfg.Cognitive.Strategy)
	assert.Equal(t, 4, cfg.Cognitive.MaxIterations)
	require.NotNil(t, cfg.Offload.Enabled)
	assert.False(t, *cfg.Offload.Enabled)
	require.NotNil(t, cfg.Compaction.GroupSimilar)
	assert.False(t, *cfg.Compaction.GroupSimilar)
	require.NotNil(t, cfg.Compaction.PreserveFailures)
	assert.False(t, *cfg.Compaction.PreserveFailures)
}

func TestLoadCLIFlagOutranksProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiVersion: loom-agent/v1
kind: AgentProject
metadata:
  name: demo-agent
spec:
  bridge:
    addr: project-bridge:7070
`), 0o644))

	v := viper.New()
	v.Set("bridge.addr", "flag-bridge:9090")

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "flag-bridge:9090", cfg.BridgeAddr)
}

func TestLoadEnvVarOutranksProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiVersion: loom-agent/v1
kind: AgentProject
metadata:
  name: demo-agent
spec:
  bridge:
    addr: project-bridge:7070
`), 0o644))

	t.Setenv("LOOM_BRIDGE_ADDR", "env-bridge:9999")
	v := viper.New()

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "env-bridge:9999", cfg.BridgeAddr)
}

func TestLoadSelectsMatchingLLMProjectOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiVersion: loom-agent/v1
kind: AgentProject
metadata:
  name: demo-agent
spec:
  bridge:
    addr: localhost:7070
  llm_providers:
    deepseek:
      base_url: https://example.test/v1
      model: test-model
`), 0o644))

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)
	require.NotNil(t, cfg.LLMProject)
	assert.Equal(t, "https://example.test/v1", cfg.LLMProject.BaseURL)
}

func TestLoadPropagatesProjectLoadError(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLLMTimeoutDefaultsTo30Seconds(t *testing.T) {
	cfg := &RuntimeConfig{}
	assert.Equal(t, 30, int(cfg.LLMTimeout().Seconds()))
}

func TestLLMTimeoutUsesProjectOverride(t *testing.T) {
	cfg := &RuntimeConfig{LLMProject: &LLMProviderSpec{TimeoutSecs: 90}}
	assert.Equal(t, 90, int(cfg.LLMTimeout().Seconds()))
}
