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
package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNameKnownPresets(t *testing.T) {
	tests := []struct {
		name        string
		wantBaseURL string
		wantModel   string
	}{
		{"deepseek", "https://api.deepseek.com/v1", "deepseek-chat"},
		{"DeepSeek", "https://api.deepseek.com/v1", "deepseek-chat"},
		{"openai", "https://api.openai.com/v1", "gpt-4o-mini"},
		{"local", "http://localhost:8000/v1", "qwen2.5-0.5b-instruct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromName(tt.name)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantBaseURL, p.cfg.BaseURL)
			assert.Equal(t, tt.wantModel, p.cfg.Model)
		})
	}
}

func TestFromNameUnknownPreset(t *testing.T) {
	p, err := FromName("not-a-real-provider")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-real-provider")
}
