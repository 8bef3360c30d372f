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
package contextkit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// OffloadConfig holds the DataOffloader's thresholds.
type OffloadConfig struct {
	CacheDir      string
	SizeThreshold int
	LineThreshold int
	PreviewLines  int
	MaxAgeHours   int
	Enabled       bool
}

// DefaultOffloadConfig matches loom-py's OffloadConfig defaults.
func DefaultOffloadConfig() OffloadConfig {
	return OffloadConfig{
		CacheDir:      ".loom/cache",
		SizeThreshold: 2048,
		LineThreshold: 50,
		PreviewLines:  10,
		MaxAgeHours:   24,
		Enabled:       true,
	}
}

// OffloadResult is the outcome of DataOffloader.Offload.
type OffloadResult struct {
	Offloaded     bool
	Content       string
	FilePath      string
	OriginalSize  int
	OriginalLines int
	ContentHash   string
}

// ToObservation renders the result as a human-readable string for use as a
// Step observation, matching loom-py's OffloadResult.to_observation.
func (r OffloadResult) ToObservation() string {
	if !r.Offloaded {
		return r.Content
	}
	return fmt.Sprintf("%s\n(Full output saved to %s, %d lines, %s)", r.Content, r.FilePath, r.OriginalLines, formatSize(r.OriginalSize))
}

// DataOffloader writes large tool outputs to a content-addressed cache
// under the workspace root and returns a preview + reference path.
type DataOffloader struct {
	workspace string
	cfg       OffloadConfig
}

// NewDataOffloader builds an offloader rooted at workspace.
func NewDataOffloader(workspace string, cfg OffloadConfig) *DataOffloader {
	return &DataOffloader{workspace: workspace, cfg: cfg}
}

var safeIDRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFilename(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, string(filepath.Separator), "_")
	id = safeIDRe.ReplaceAllString(id, "")
	if len(id) > 50 {
		id = id[:50]
	}
	if id == "" {
		id = "item"
	}
	return id
}

func extensionFor(category, content string) string {
	switch {
	case category == "search" || category == "json":
		return ".json"
	case strings.HasPrefix(strings.TrimSpace(content), "{"), strings.HasPrefix(strings.TrimSpace(content), "["):
		return ".json"
	case category == "shell_output":
		return ".log"
	default:
		return ".txt"
	}
}

// Offload writes content to the cache when it exceeds the configured
// size/line thresholds (or force is set), returning a preview result.
func (o *DataOffloader) Offload(category, identifier, content string, force bool) OffloadResult {
	hash := ComputeContentHash(content)
	lines := lineCount(content)

	if !force && o.cfg.Enabled && len(content) < o.cfg.SizeThreshold && lines < o.cfg.LineThreshold {
		return OffloadResult{Offloaded: false, Content: content, OriginalSize: len(content), OriginalLines: lines, ContentHash: hash}
	}
	if !o.cfg.Enabled {
		return OffloadResult{Offloaded: false, Content: content, OriginalSize: len(content), OriginalLines: lines, ContentHash: hash}
	}

	categoryDir := filepath.Join(o.workspace, o.cfg.CacheDir, category)

	if existing := o.findCached(categoryDir, hash); existing != "" {
		rel, _ := filepath.Rel(o.workspace, existing)
		return OffloadResult{
			Offloaded: true, Content: o.preview(content), FilePath: rel,
			OriginalSize: len(content), OriginalLines: lines, ContentHash: hash,
		}
	}

	safeID := sanitizeFilename(identifier)
	ext := extensionFor(category, content)
	filename := fmt.Sprintf("%s_%s%s", safeID, hash, ext)
	fullPath := filepath.Join(categoryDir, filename)

	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		return OffloadResult{Offloaded: false, Content: content, OriginalSize: len(content), OriginalLines: lines, ContentHash: hash}
	}
	if err := writeExclusive(fullPath, []byte(content)); err != nil && !os.IsExist(err) {
		return OffloadResult{Offloaded: false, Content: content, OriginalSize: len(content), OriginalLines: lines, ContentHash: hash}
	}

	rel, _ := filepath.Rel(o.workspace, fullPath)
	return OffloadResult{
		Offloaded: true, Content: o.preview(content), FilePath: rel,
		OriginalSize: len(content), OriginalLines: lines, ContentHash: hash,
	}
}

// writeExclusive writes content to path only if it doesn't already exist,
// avoiding a torn write visible to a concurrent reader of the
// content-addressed cache.
func writeExclusive(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(content)
	return err
}

func (o *DataOffloader) findCached(categoryDir, hash string) string {
	matches, err := filepath.Glob(filepath.Join(categoryDir, "*_"+hash+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func (o *DataOffloader) preview(content string) string {
	lines := strings.Split(content, "\n")
	n := o.cfg.PreviewLines
	if len(lines) <= 2*n {
		return content
	}
	head := lines[:n]
	tail := lines[len(lines)-n:]
	omitted := len(lines) - 2*n
	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	b.WriteString(fmt.Sprintf("\n... (%d lines omitted) ...\n", omitted))
	b.WriteString(strings.Join(tail, "\n"))
	return b.String()
}

// Cleanup removes cache files older than MaxAgeHours.
func (o *DataOffloader) Cleanup() error {
	root := filepath.Join(o.workspace, o.cfg.CacheDir)
	cutoff := time.Now().Add(-time.Duration(o.cfg.MaxAgeHours) * time.Hour)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
		return nil
	})
}

// CategoryFor maps a tool name to an offload category.
func CategoryFor(toolName string) string {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "read") || strings.Contains(lower, "file"):
		return "file_read"
	case strings.Contains(lower, "shell") || strings.Contains(lower, "run"):
		return "shell_output"
	case strings.Contains(lower, "search") || strings.Contains(lower, "grep"):
		return "search"
	case strings.Contains(lower, "web") || strings.Contains(lower, "http"):
		return "web"
	default:
		return "tool_output"
	}
}

// IdentifierFor derives an offload identifier from common path-like args,
// falling back to "<tool>_<unixTimeMs>".
func IdentifierFor(toolName string, args map[string]any, nowMs int64) string {
	for _, key := range []string{"path", "file", "filename", "url", "query"} {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s_%d", toolName, nowMs)
}
