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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/loom-agent/internal/wire"
)

// fakeOutbound records every enqueued ClientEvent and optionally fails.
type fakeOutbound struct {
	events []*wire.ClientEvent
	err    error
}

func (f *fakeOutbound) enqueue(ev *wire.ClientEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func TestReplyTopicFormat(t *testing.T) {
	assert.Equal(t, "agent.agent-1.replies", ReplyTopic("agent-1"))
}

func TestEmitPublishesToTopic(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)

	require.NoError(t, ec.Emit(context.Background(), "agent.updates", "ping", []byte(`{"n":1}`)))
	require.Len(t, out.events, 1)
	assert.Equal(t, "agent.updates", out.events[0].Publish.Topic)
	assert.Equal(t, "ping", out.events[0].Publish.Event.Type)
}

func TestEmitPropagatesEnqueueError(t *testing.T) {
	out := &fakeOutbound{err: fmt.Errorf("enqueue failed")}
	ec := NewEventContext("agent-1", out, nil, nil, nil)
	assert.Error(t, ec.Emit(context.Background(), "topic", "evt", nil))
}

func TestRequestResolvesOnMatchingReply(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)

	go func() {
		for len(out.events) == 0 {
			time.Sleep(time.Millisecond)
		}
		corrID := wire.FromEvent(out.events[0].Publish.Event).CorrelationID()
		reply := wire.New("pong", "peer", nil)
		reply.SetCorrelationID(corrID)
		ec.resolveReply(reply)
	}()

	reply, err := ec.Request(context.Background(), "agent.request", "ping", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Type)
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)

	_, err := ec.Request(context.Background(), "agent.request", "ping", nil, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestRequestReturnsContextCancellation(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ec.Request(ctx, "agent.request", "ping", nil, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestPropagatesEnqueueError(t *testing.T) {
	out := &fakeOutbound{err: fmt.Errorf("enqueue failed")}
	ec := NewEventContext("agent-1", out, nil, nil, nil)
	_, err := ec.Request(context.Background(), "topic", "evt", nil, time.Second)
	assert.Error(t, err)
}

func TestReplyCarriesForwardCorrelationAndThreadID(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)

	original := wire.New("request", "peer", nil)
	original.SetReplyTo("agent.peer.replies")
	original.SetCorrelationID("corr-1")
	original.SetThreadID("thread-1")

	require.NoError(t, ec.Reply(context.Background(), original, "response", []byte(`{}`)))
	require.Len(t, out.events, 1)
	env := wire.FromEvent(out.events[0].Publish.Event)
	assert.Equal(t, "agent.peer.replies", out.events[0].Publish.Topic)
	assert.Equal(t, "corr-1", env.CorrelationID())
	assert.Equal(t, "thread-1", env.ThreadID())
}

func TestReplyRejectsEnvelopeWithoutReplyTo(t *testing.T) {
	out := &fakeOutbound{}
	ec := NewEventContext("agent-1", out, nil, nil, nil)
	original := wire.New("request", "peer", nil)
	assert.Error(t, ec.Reply(context.Background(), original, "response", nil))
}

func TestResolveReplyReturnsFalseWithoutCorrelationID(t *testing.T) {
	ec := NewEventContext("agent-1", &fakeOutbound{}, nil, nil, nil)
	env := wire.New("evt", "peer", nil)
	assert.False(t, ec.resolveReply(env))
}

func TestResolveReplyReturnsFalseWhenNoWaiterRegistered(t *testing.T) {
	ec := NewEventContext("agent-1", &fakeOutbound{}, nil, nil, nil)
	env := wire.New("evt", "peer", nil)
	env.SetCorrelationID("unknown")
	assert.False(t, ec.resolveReply(env))
}

func TestToolInvokesLocalRegistryFirst(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.Register("echo", "echoes input", nil, func(args map[string]any) (any, error) {
		return map[string]any{"ok": true}, nil
	}))
	ec := NewEventContext("agent-1", &fakeOutbound{}, reg, nil, nil)

	out, code, err := ec.Tool(context.Background(), "echo", `{}`)
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Contains(t, out, "ok")
}

func TestToolReturnsNotFoundWithoutRegistryOrBridge(t *testing.T) {
	ec := NewEventContext("agent-1", &fakeOutbound{}, nil, nil, nil)
	_, code, err := ec.Tool(context.Background(), "missing", `{}`)
	assert.Error(t, err)
	assert.Equal(t, wire.CodeNotFound, code)
}

func TestWithThreadIDRoundTripsThroughContext(t *testing.T) {
	ctx := WithThreadID(context.Background(), "thread-7")
	assert.Equal(t, "thread-7", threadIDFromContext(ctx))
}

func TestThreadIDFromContextEmptyWhenUnset(t *testing.T) {
	assert.Empty(t, threadIDFromContext(context.Background()))
}

func TestPlanHashIsDeterministicAndEightHexChars(t *testing.T) {
	h1 := PlanHash("sym", "action", "reasoning")
	h2 := PlanHash("sym", "action", "reasoning")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 8)
}

func TestPlanHashDiffersOnInputChange(t *testing.T) {
	assert.NotEqual(t, PlanHash("a", "b", "c"), PlanHash("a", "b", "d"))
}
