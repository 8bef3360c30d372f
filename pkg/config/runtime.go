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
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RuntimeConfig is the fully-resolved configuration cmd/loom-agent needs
// to start one agent: priority is CLI flag > environment variable >
// project file > default, since project values are seeded as viper
// defaults (see applyProjectOverrides).
type RuntimeConfig struct {
	BridgeAddr      string
	LLMProviderName string
	LLMProject      *LLMProviderSpec // non-nil when overridden by the project file
	LogLevel        string
	Workspace       string
	Cognitive       CognitiveSpec
	Offload         OffloadSpec
	Compaction      CompactionSpec
}

// Load builds a RuntimeConfig from defaults, an optional project file,
// LOOM_* environment variables (via viper.AutomaticEnv), and bound CLI
// flags. v is expected to already have its flags bound with
// viper.BindPFlag by the caller (cmd/loom-agent), matching
// cmd/looms/root.go's init().
func Load(v *viper.Viper, projectFile string) (*RuntimeConfig, error) {
	setDefaults(v)

	var project *Project
	if projectFile != "" {
		p, err := LoadProject(projectFile)
		if err != nil {
			return nil, err
		}
		project = p
		applyProjectOverrides(v, project)
	}

	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &RuntimeConfig{
		BridgeAddr:      v.GetString("bridge.addr"),
		LLMProviderName: v.GetString("llm.provider"),
		LogLevel:        v.GetString("logging.level"),
		Workspace:       v.GetString("workspace"),
		Cognitive: CognitiveSpec{
			Strategy:        v.GetString("cognitive.strategy"),
			MaxIterations:   v.GetInt("cognitive.max_iterations"),
			MaxToolsPerStep: v.GetInt("cognitive.max_tools_per_step"),
			Temperature:     v.GetFloat64("cognitive.temperature"),
		},
		Offload: OffloadSpec{
			CacheDir:      v.GetString("offload.cache_dir"),
			SizeThreshold: v.GetInt("offload.size_threshold"),
			LineThreshold: v.GetInt("offload.line_threshold"),
			PreviewLines:  v.GetInt("offload.preview_lines"),
			MaxAgeHours:   v.GetInt("offload.max_age_hours"),
			Enabled:       boolPtr(v.GetBool("offload.enabled")),
		},
		Compaction: CompactionSpec{
			RecentWindow:     v.GetInt("compaction.recent_window"),
			MaxCompactSteps:  v.GetInt("compaction.max_compact_steps"),
			GroupSimilar:     boolPtr(v.GetBool("compaction.group_similar")),
			PreserveFailures: boolPtr(v.GetBool("compaction.preserve_failures")),
		},
	}

	if project != nil {
		if spec, ok := project.Spec.LLMProviders[cfg.LLMProviderName]; ok {
			cfg.LLMProject = &spec
		}
	}

	if cfg.BridgeAddr == "" {
		return nil, fmt.Errorf("config: bridge.addr is required (set --bridge-addr, LOOM_BRIDGE_ADDR, or spec.bridge.addr)")
	}
	return cfg, nil
}

// setDefaults mirrors cmd/looms/config.go's setDefaults(): every value a
// fresh RuntimeConfig needs when neither a project file nor an override
// is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bridge.addr", "")
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("logging.level", "info")
	v.SetDefault("workspace", ".")

	v.SetDefault("cognitive.strategy", "react")
	v.SetDefault("cognitive.max_iterations", 10)
	v.SetDefault("cognitive.max_tools_per_step", 3)
	v.SetDefault("cognitive.temperature", 0.7)

	v.SetDefault("offload.cache_dir", ".loom/cache")
	v.SetDefault("offload.size_threshold", 2048)
	v.SetDefault("offload.line_threshold", 50)
	v.SetDefault("offload.preview_lines", 10)
	v.SetDefault("offload.max_age_hours", 24)
	v.SetDefault("offload.enabled", true)

	v.SetDefault("compaction.recent_window", 5)
	v.SetDefault("compaction.max_compact_steps", 20)
	v.SetDefault("compaction.group_similar", true)
	v.SetDefault("compaction.preserve_failures", true)
}

// applyProjectOverrides seeds viper with the project file's values so
// that CLI flags and environment variables set afterward still take
// priority (viper.Set has flag-level priority, so these are applied as
// defaults instead).
func applyProjectOverrides(v *viper.Viper, p *Project) {
	if p.Spec.Bridge.Addr != "" {
		v.SetDefault("bridge.addr", p.Spec.Bridge.Addr)
	}
	if p.Spec.Cognitive.Strategy != "" {
		v.SetDefault("cognitive.strategy", p.Spec.Cognitive.Strategy)
	}
	if p.Spec.Cognitive.MaxIterations != 0 {
		v.SetDefault("cognitive.max_iterations", p.Spec.Cognitive.MaxIterations)
	}
	if p.Spec.Cognitive.MaxToolsPerStep != 0 {
		v.SetDefault("cognitive.max_tools_per_step", p.Spec.Cognitive.MaxToolsPerStep)
	}
	if p.Spec.Cognitive.Temperature != 0 {
		v.SetDefault("cognitive.temperature", p.Spec.Cognitive.Temperature)
	}

	if p.Spec.Offload.CacheDir != "" {
		v.SetDefault("offload.cache_dir", p.Spec.Offload.CacheDir)
	}
	if p.Spec.Offload.SizeThreshold != 0 {
		v.SetDefault("offload.size_threshold", p.Spec.Offload.SizeThreshold)
	}
	if p.Spec.Offload.LineThreshold != 0 {
		v.SetDefault("offload.line_threshold", p.Spec.Offload.LineThreshold)
	}
	if p.Spec.Offload.PreviewLines != 0 {
		v.SetDefault("offload.preview_lines", p.Spec.Offload.PreviewLines)
	}
	if p.Spec.Offload.MaxAgeHours != 0 {
		v.SetDefault("offload.max_age_hours", p.Spec.Offload.MaxAgeHours)
	}
	if p.Spec.Offload.Enabled != nil {
		v.SetDefault("offload.enabled", *p.Spec.Offload.Enabled)
	}

	if p.Spec.Compaction.RecentWindow != 0 {
		v.SetDefault("compaction.recent_window", p.Spec.Compaction.RecentWindow)
	}
	if p.Spec.Compaction.MaxCompactSteps != 0 {
		v.SetDefault("compaction.max_compact_steps", p.Spec.Compaction.MaxCompactSteps)
	}
	if p.Spec.Compaction.GroupSimilar != nil {
		v.SetDefault("compaction.group_similar", *p.Spec.Compaction.GroupSimilar)
	}
	if p.Spec.Compaction.PreserveFailures != nil {
		v.SetDefault("compaction.preserve_failures", *p.Spec.Compaction.PreserveFailures)
	}
}

// LLMTimeout returns the configured LLM timeout, defaulting to 30s when
// no project override set one.
func (c *RuntimeConfig) LLMTimeout() time.Duration {
	if c.LLMProject != nil && c.LLMProject.TimeoutSecs > 0 {
		return time.Duration(c.LLMProject.TimeoutSecs) * time.Second
	}
	return 30 * time.Second
}

func boolPtr(b bool) *bool { return &b }
