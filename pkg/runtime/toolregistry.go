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
package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/teradata-labs/loom-agent/internal/wire"
	"github.com/xeipuuv/gojsonschema"
)

// ToolHandler executes a registered tool's logic against parsed JSON
// arguments and returns a JSON-serializable result.
type ToolHandler func(args map[string]any) (any, error)

// toolEntry is one registered tool.
type toolEntry struct {
	Name             string
	Description      string
	ParametersSchema string
	schemaLoader     gojsonschema.JSONLoader
	Handler          ToolHandler
}

// Sentinel errors for the local-handler error kinds.
var (
	ErrToolNotFound     = errors.New("tool: not found")
	ErrToolInvalidInput = errors.New("tool: invalid input")
	ErrToolExecution    = errors.New("tool: execution error")
)

// ToolRegistry maps tool name -> typed handler + JSON-Schema.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*toolEntry
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]*toolEntry{}}
}

// Register adds a tool. inputModel, if non-nil, is a pointer to a zero
// value of the tool's JSON-tagged input struct; its JSON-Schema is derived
// via reflection. A nil
// inputModel means the handler receives the raw argument map unvalidated.
func (r *ToolRegistry) Register(name, description string, inputModel any, handler ToolHandler) error {
	schema := "{}"
	var loader gojsonschema.JSONLoader
	if inputModel != nil {
		schema = DeriveJSONSchema(inputModel)
		loader = gojsonschema.NewStringLoader(schema)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = &toolEntry{
		Name: name, Description: description, ParametersSchema: schema,
		schemaLoader: loader, Handler: handler,
	}
	return nil
}

// Descriptors returns the wire tool descriptors to advertise at
// registration time.
func (r *ToolRegistry) Descriptors() []wire.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, wire.ToolDescriptor{Name: t.Name, Description: t.Description, ParametersSchema: t.ParametersSchema})
	}
	return out
}

// Invoke runs the named tool against a raw JSON arguments string,
// returning the JSON-serialized result or a classified error.
func (r *ToolRegistry) Invoke(name, argumentsJSON string) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	var args map[string]any
	if strings.TrimSpace(argumentsJSON) == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolInvalidInput, err)
	}

	if entry.schemaLoader != nil {
		docLoader := gojsonschema.NewGoLoader(args)
		result, err := gojsonschema.Validate(entry.schemaLoader, docLoader)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrToolInvalidInput, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return "", fmt.Errorf("%w: %s", ErrToolInvalidInput, strings.Join(msgs, "; "))
		}
	}

	out, err := callHandler(entry.Handler, args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolExecution, err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolExecution, err)
	}
	return string(data), nil
}

// callHandler recovers a handler panic into a TOOL_ERROR-classified error
// so a single bad tool can never take down the dispatch goroutine.
func callHandler(h ToolHandler, args map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(args)
}

// ErrorCodeFor maps an Invoke error to one of the wire ToolResult error
// codes.
func ErrorCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrToolNotFound):
		return wire.CodeNotFound
	case errors.Is(err, ErrToolInvalidInput):
		return wire.CodeInvalidInput
	case errors.Is(err, ErrToolExecution):
		return wire.CodeToolError
	default:
		return wire.CodeToolError
	}
}

// DeriveJSONSchema builds a JSON-Schema document for a tool's input struct
// via reflection over its exported fields and `json` tags: field name
// (from the tag, minus options), Go kind -> JSON-Schema type, and
// `omitempty` marking a field optional rather than required.
func DeriveJSONSchema(model any) string {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "{}"
	}

	properties := map[string]any{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		omitempty := len(parts) > 1 && parts[1] == "omitempty"

		properties[name] = map[string]any{"type": jsonSchemaType(f.Type)}
		if !omitempty {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, _ := json.Marshal(schema)
	return string(data)
}

func jsonSchemaType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
