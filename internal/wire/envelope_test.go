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
package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	before := time.Now().UnixMilli()
	env := New("agent.started", "agent-1", []byte(`{"ok":true}`))
	after := time.Now().UnixMilli()

	require.NotEmpty(t, env.ID)
	assert.Equal(t, "agent.started", env.Type)
	assert.Equal(t, "agent-1", env.Source)
	assert.Equal(t, []byte(`{"ok":true}`), env.Payload)
	assert.Equal(t, DefaultPriority, env.Priority)
	assert.NotNil(t, env.Metadata)
	assert.Empty(t, env.Metadata)
	assert.GreaterOrEqual(t, env.TimestampMs, before)
	assert.LessOrEqual(t, env.TimestampMs, after)
}

func TestNewEnvelopeGeneratesUniqueIDs(t *testing.T) {
	a := New("t", "s", nil)
	b := New("t", "s", nil)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSetOptGet(t *testing.T) {
	env := New("t", "s", nil)

	env.SetOpt(MetaThreadID, "")
	assert.Empty(t, env.Get(MetaThreadID), "empty value must not be written")

	env.SetOpt(MetaThreadID, "thread-123")
	assert.Equal(t, "thread-123", env.Get(MetaThreadID))

	assert.Empty(t, env.Get("loom.nonexistent"))
}

func TestSetOptOnNilMetadata(t *testing.T) {
	env := &Envelope{}
	env.SetOpt(MetaSender, "agent-x")
	require.NotNil(t, env.Metadata)
	assert.Equal(t, "agent-x", env.Metadata[MetaSender])
}

func TestReservedMetadataAccessors(t *testing.T) {
	env := New("t", "s", nil)
	env.SetThreadID("thread-1")
	env.SetCorrelationID("corr-1")
	env.SetSender("agent-a")
	env.SetReplyTo("agent-b")

	assert.Equal(t, "thread-1", env.ThreadID())
	assert.Equal(t, "corr-1", env.CorrelationID())
	assert.Equal(t, "agent-a", env.Sender())
	assert.Equal(t, "agent-b", env.ReplyTo())
}

func TestEnvelopeCloneIsDeep(t *testing.T) {
	env := New("t", "s", []byte("payload"))
	env.Tags = []string{"x", "y"}
	env.SetSender("agent-a")

	clone := env.Clone()
	require.Equal(t, env.ID, clone.ID)

	clone.Payload[0] = 'X'
	clone.Tags[0] = "mutated"
	clone.Metadata[MetaSender] = "agent-mutated"

	assert.Equal(t, "payload", string(env.Payload), "mutating the clone's payload must not affect the original")
	assert.Equal(t, "x", env.Tags[0], "mutating the clone's tags must not affect the original")
	assert.Equal(t, "agent-a", env.Sender(), "mutating the clone's metadata must not affect the original")
}

func TestEnvelopeCloneNil(t *testing.T) {
	var env *Envelope
	assert.Nil(t, env.Clone())
}

// TestEventRoundTrip checks that an Envelope converted to its wire Event
// representation and back reproduces every field.
func TestEventRoundTrip(t *testing.T) {
	original := New("trade.signal", "agent-7", []byte(`{"symbol":"BTC"}`))
	original.Tags = []string{"alpha", "beta"}
	original.Priority = 75
	original.SetThreadID("thread-9")
	original.SetCorrelationID("corr-9")

	ev := original.ToEvent()
	assert.Equal(t, 1.0, ev.Confidence)

	roundTripped := FromEvent(ev)

	assert.Equal(t, original.ID, roundTripped.ID)
	assert.Equal(t, original.Type, roundTripped.Type)
	assert.Equal(t, original.TimestampMs, roundTripped.TimestampMs)
	assert.Equal(t, original.Source, roundTripped.Source)
	assert.Equal(t, original.Payload, roundTripped.Payload)
	assert.Equal(t, original.Metadata, roundTripped.Metadata)
	assert.Equal(t, original.Tags, roundTripped.Tags)
	assert.Equal(t, original.Priority, roundTripped.Priority)
}

func TestFromEventNil(t *testing.T) {
	assert.Nil(t, FromEvent(nil))
}
