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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, StrategyReAct, cfg.Strategy)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.MaxToolsPerStep)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.True(t, cfg.StopOnFinalAnswer)
}
