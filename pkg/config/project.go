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

// Package config loads the agent project file: an
// apiVersion/kind/metadata/spec YAML document naming the LLM providers,
// bridge address, and cognitive/offload/compaction overrides for one
// agent. Adapted from pkg/config/project_loader.go's shape, generalized
// from loom/v1 Project to loom-agent/v1 AgentProject.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Project is the parsed, validated agent project file.
type Project struct {
	APIVersion string
	Kind       string
	Metadata   ProjectMetadata
	Spec       ProjectSpec
}

type ProjectMetadata struct {
	Name        string
	Description string
	Labels      map[string]string
}

// ProjectSpec mirrors ProjectSpecYAML's shape, generalized to this
// module's domain: named LLM providers instead of backends, one bridge
// connection instead of many, cognitive/offload/compaction overrides
// instead of MCP/eval/pattern references.
type ProjectSpec struct {
	Bridge       BridgeSpec                 `yaml:"bridge"`
	LLMProviders map[string]LLMProviderSpec `yaml:"llm_providers"`
	Cognitive    CognitiveSpec              `yaml:"cognitive"`
	Offload      OffloadSpec                `yaml:"offload"`
	Compaction   CompactionSpec             `yaml:"compaction"`
}

type BridgeSpec struct {
	Addr string `yaml:"addr"`
}

// LLMProviderSpec overrides one of the named LLM provider presets, or
// defines a wholly custom endpoint when Preset is empty.
type LLMProviderSpec struct {
	Preset      string  `yaml:"preset"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

type CognitiveSpec struct {
	Strategy          string  `yaml:"strategy"`
	MaxIterations     int     `yaml:"max_iterations"`
	MaxToolsPerStep   int     `yaml:"max_tools_per_step"`
	Temperature       float64 `yaml:"temperature"`
	StopOnFinalAnswer *bool   `yaml:"stop_on_final_answer"`
}

type OffloadSpec struct {
	CacheDir      string `yaml:"cache_dir"`
	SizeThreshold int    `yaml:"size_threshold"`
	LineThreshold int    `yaml:"line_threshold"`
	PreviewLines  int    `yaml:"preview_lines"`
	MaxAgeHours   int    `yaml:"max_age_hours"`
	Enabled       *bool  `yaml:"enabled"`
}

type CompactionSpec struct {
	RecentWindow     int   `yaml:"recent_window"`
	MaxCompactSteps  int   `yaml:"max_compact_steps"`
	GroupSimilar     *bool `yaml:"group_similar"`
	PreserveFailures *bool `yaml:"preserve_failures"`
}

// projectYAML is the raw on-disk shape, kept separate from Project so
// env-var expansion and apiVersion/kind validation happen before the
// fields become the typed Project a caller works with.
type projectYAML struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   metadataYAML `yaml:"metadata"`
	Spec       ProjectSpec  `yaml:"spec"`
}

type metadataYAML struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

// LoadProject reads and validates an agent project file at path.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read project file %s: %w", path, err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var raw projectYAML
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("config: parse project YAML: %w", err)
	}
	if err := validateProjectYAML(&raw); err != nil {
		return nil, fmt.Errorf("config: invalid project: %w", err)
	}

	return &Project{
		APIVersion: raw.APIVersion,
		Kind:       raw.Kind,
		Metadata: ProjectMetadata{
			Name:        raw.Metadata.Name,
			Description: raw.Metadata.Description,
			Labels:      raw.Metadata.Labels,
		},
		Spec: raw.Spec,
	}, nil
}

func validateProjectYAML(raw *projectYAML) error {
	if raw.APIVersion == "" {
		return fmt.Errorf("apiVersion is required")
	}
	if raw.APIVersion != "loom-agent/v1" {
		return fmt.Errorf("unsupported apiVersion: %s (expected loom-agent/v1)", raw.APIVersion)
	}
	if raw.Kind != "AgentProject" {
		return fmt.Errorf("kind must be AgentProject, got: %s", raw.Kind)
	}
	if raw.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	return nil
}
