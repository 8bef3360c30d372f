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

// Package wire defines the bridge wire protocol: the Envelope carried inside
// published/delivered events, and the client/server message frames exchanged
// over the EventStream RPC.
package wire

import (
	"time"

	"github.com/google/uuid"
)

// MetaPrefix namespaces reserved envelope metadata keys.
const MetaPrefix = "loom."

// Reserved metadata keys.
const (
	MetaThreadID      = MetaPrefix + "thread_id"
	MetaCorrelationID = MetaPrefix + "correlation_id"
	MetaSender        = MetaPrefix + "sender"
	MetaReplyTo       = MetaPrefix + "reply_to"
	MetaTTLMillis     = MetaPrefix + "ttl_ms"
	MetaTraceparent   = "traceparent"
	MetaTracestate    = "tracestate"
)

// Envelope is the unit of event transport between agent and bridge.
type Envelope struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	TimestampMs int64             `json:"timestamp_ms"`
	Source      string            `json:"source"`
	Payload     []byte            `json:"payload"`
	Metadata    map[string]string `json:"metadata"`
	Tags        []string          `json:"tags"`
	Priority    int               `json:"priority"`
}

// DefaultPriority is used when a caller does not specify one.
const DefaultPriority = 50

// New builds an Envelope with a fresh UUID v4 id and the current time,
// mirroring loom-py's Envelope.new() classmethod.
func New(evtType, source string, payload []byte) *Envelope {
	return &Envelope{
		ID:          uuid.NewString(),
		Type:        evtType,
		TimestampMs: time.Now().UnixMilli(),
		Source:      source,
		Payload:     payload,
		Metadata:    map[string]string{},
		Tags:        nil,
		Priority:    DefaultPriority,
	}
}

// SetOpt writes metadata[key] = value only when value is non-empty,
// matching the Python original's set_opt helper.
func (e *Envelope) SetOpt(key, value string) {
	if value == "" {
		return
	}
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	e.Metadata[key] = value
}

// Get returns a metadata value, or "" if absent.
func (e *Envelope) Get(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// ThreadID, CorrelationID, Sender and ReplyTo are convenience accessors
// over the reserved metadata keys.
func (e *Envelope) ThreadID() string      { return e.Get(MetaThreadID) }
func (e *Envelope) CorrelationID() string { return e.Get(MetaCorrelationID) }
func (e *Envelope) Sender() string        { return e.Get(MetaSender) }
func (e *Envelope) ReplyTo() string       { return e.Get(MetaReplyTo) }

// SetThreadID, SetCorrelationID, SetSender and SetReplyTo set the
// corresponding reserved metadata key.
func (e *Envelope) SetThreadID(v string)      { e.SetOpt(MetaThreadID, v) }
func (e *Envelope) SetCorrelationID(v string) { e.SetOpt(MetaCorrelationID, v) }
func (e *Envelope) SetSender(v string)        { e.SetOpt(MetaSender, v) }
func (e *Envelope) SetReplyTo(v string)       { e.SetOpt(MetaReplyTo, v) }

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	c.Tags = append([]string(nil), e.Tags...)
	c.Metadata = make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

// Event is the wire representation of an Envelope as carried inside
// Publish/Delivery frames.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	TimestampMs int64             `json:"timestamp_ms"`
	Source      string            `json:"source"`
	Metadata    map[string]string `json:"metadata"`
	Payload     []byte            `json:"payload"`
	Confidence  float64           `json:"confidence"`
	Tags        []string          `json:"tags"`
	Priority    int               `json:"priority"`
}

// ToEvent converts an Envelope to its wire Event representation.
func (e *Envelope) ToEvent() *Event {
	confidence := 1.0
	return &Event{
		ID:          e.ID,
		Type:        e.Type,
		TimestampMs: e.TimestampMs,
		Source:      e.Source,
		Metadata:    e.Metadata,
		Payload:     e.Payload,
		Confidence:  confidence,
		Tags:        e.Tags,
		Priority:    e.Priority,
	}
}

// FromEvent converts a wire Event back into an Envelope.
func FromEvent(ev *Event) *Envelope {
	if ev == nil {
		return nil
	}
	return &Envelope{
		ID:          ev.ID,
		Type:        ev.Type,
		TimestampMs: ev.TimestampMs,
		Source:      ev.Source,
		Payload:     ev.Payload,
		Metadata:    ev.Metadata,
		Tags:        ev.Tags,
		Priority:    ev.Priority,
	}
}
