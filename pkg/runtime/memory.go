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

// Package runtime implements the Agent stream lifecycle, EventContext,
// WorkingMemory and local ToolRegistry.
//
// Grounded on loom-py/src/loom/agent.py and loom-py/src/loom/context.py.
package runtime

import "sync"

// MemoryItem is one WorkingMemory entry.
type MemoryItem struct {
	Role     string
	Content  string
	Metadata map[string]any
}

// DefaultMemoryCap is the default bounded size of WorkingMemory.
const DefaultMemoryCap = 50

// WorkingMemory is a bounded conversation scratchpad: oldest entries are
// dropped once capacity is exceeded.
type WorkingMemory struct {
	mu    sync.Mutex
	cap   int
	items []MemoryItem
}

// NewWorkingMemory builds a WorkingMemory with the given capacity (0 means
// DefaultMemoryCap).
func NewWorkingMemory(capacity int) *WorkingMemory {
	if capacity <= 0 {
		capacity = DefaultMemoryCap
	}
	return &WorkingMemory{cap: capacity}
}

// Add appends an item, dropping the oldest if over capacity.
func (m *WorkingMemory) Add(role, content string, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, MemoryItem{Role: role, Content: content, Metadata: metadata})
	if len(m.items) > m.cap {
		m.items = m.items[len(m.items)-m.cap:]
	}
}

// Items returns a snapshot of the current items, oldest first.
func (m *WorkingMemory) Items() []MemoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryItem, len(m.items))
	copy(out, m.items)
	return out
}

// Clear empties the memory.
func (m *WorkingMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
}
