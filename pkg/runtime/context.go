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
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/loom-agent/internal/wire"
	"github.com/teradata-labs/loom-agent/pkg/bridge"
	"github.com/teradata-labs/loom-agent/pkg/telemetry"
)

// ErrRequestTimeout is returned by EventContext.Request when no reply
// arrives before its deadline.
var ErrRequestTimeout = fmt.Errorf("runtime: request timed out")

// outbound is the minimal surface EventContext needs from the owning
// Agent's send loop; satisfied by Agent.enqueue.
type outbound interface {
	enqueue(*wire.ClientEvent) error
}

// EventContext is the per-agent facade for publishing events, making
// correlated requests, replying, and invoking tools.
type EventContext struct {
	agentID   string
	replyTo   string
	out       outbound
	tracer    telemetry.Tracer
	tools     *ToolRegistry
	bridgeCli *bridge.Client

	mu      sync.Mutex
	waiters map[string]chan *wire.Envelope
}

// NewEventContext builds an EventContext for agentID, publishing through
// out and resolving replies addressed to its conventional reply topic
// ("agent.<id>.replies").
func NewEventContext(agentID string, out outbound, tools *ToolRegistry, bridgeCli *bridge.Client, tracer telemetry.Tracer) *EventContext {
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &EventContext{
		agentID:   agentID,
		replyTo:   ReplyTopic(agentID),
		out:       out,
		tracer:    tracer,
		tools:     tools,
		bridgeCli: bridgeCli,
		waiters:   map[string]chan *wire.Envelope{},
	}
}

// ReplyTopic is the conventional per-agent reply topic.
func ReplyTopic(agentID string) string {
	return fmt.Sprintf("agent.%s.replies", agentID)
}

// Emit publishes a fire-and-forget event to topic.
func (c *EventContext) Emit(ctx context.Context, topic, evtType string, payload []byte) error {
	env := wire.New(evtType, c.agentID, payload)
	env.SetThreadID(threadIDFromContext(ctx))
	ctx, span := c.tracer.Start(ctx, "emit "+evtType)
	defer span.End()
	c.tracer.Inject(ctx, env.Metadata)
	return c.out.enqueue(&wire.ClientEvent{Publish: &wire.Publish{Topic: topic, Event: env.ToEvent()}})
}

// Request publishes to topic with a fresh correlation id and reply_to set
// to this agent's reply topic, then blocks until a matching reply arrives,
// ctx is cancelled, or timeout elapses.
func (c *EventContext) Request(ctx context.Context, topic, evtType string, payload []byte, timeout time.Duration) (*wire.Envelope, error) {
	env := wire.New(evtType, c.agentID, payload)
	corrID := uuid.NewString()
	env.SetCorrelationID(corrID)
	env.SetReplyTo(c.replyTo)
	env.SetThreadID(threadIDFromContext(ctx))

	ctx, span := c.tracer.Start(ctx, "request "+evtType)
	defer span.End()
	c.tracer.Inject(ctx, env.Metadata)

	ch := make(chan *wire.Envelope, 1)
	c.mu.Lock()
	c.waiters[corrID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, corrID)
		c.mu.Unlock()
	}()

	if err := c.out.enqueue(&wire.ClientEvent{Publish: &wire.Publish{Topic: topic, Event: env.ToEvent()}}); err != nil {
		span.SetError(err)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		span.SetError(ErrRequestTimeout)
		return nil, ErrRequestTimeout
	}
}

// Reply publishes payload to the envelope's reply_to topic, carrying
// forward its correlation_id and thread_id.
func (c *EventContext) Reply(ctx context.Context, original *wire.Envelope, evtType string, payload []byte) error {
	if original.ReplyTo() == "" {
		return fmt.Errorf("runtime: envelope %s has no reply_to", original.ID)
	}
	env := wire.New(evtType, c.agentID, payload)
	env.SetCorrelationID(original.CorrelationID())
	env.SetThreadID(original.ThreadID())
	ctx, span := c.tracer.Start(ctx, "reply "+evtType)
	defer span.End()
	c.tracer.Inject(ctx, env.Metadata)
	return c.out.enqueue(&wire.ClientEvent{Publish: &wire.Publish{Topic: original.ReplyTo(), Event: env.ToEvent()}})
}

// resolveReply routes an inbound Delivery to a pending Request waiter, if
// its correlation_id matches one; returns true if it was consumed.
func (c *EventContext) resolveReply(env *wire.Envelope) bool {
	corrID := env.CorrelationID()
	if corrID == "" {
		return false
	}
	c.mu.Lock()
	ch, ok := c.waiters[corrID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- env:
	default:
	}
	return true
}

// Tool invokes a locally registered tool by name, or forwards the call to
// the bridge's tool router when no local handler is registered.
func (c *EventContext) Tool(ctx context.Context, name, argumentsJSON string) (string, string, error) {
	if c.tools != nil {
		out, err := c.tools.Invoke(name, argumentsJSON)
		if err == nil {
			return out, "", nil
		}
		if !isNotFound(err) {
			return "", ErrorCodeFor(err), err
		}
	}
	if c.bridgeCli == nil {
		return "", wire.CodeNotFound, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	result, err := c.bridgeCli.ForwardToolCall(ctx, &wire.ToolCall{
		ID: uuid.NewString(), Name: name, Arguments: argumentsJSON,
	})
	if err != nil {
		return "", wire.CodeToolError, err
	}
	if result.Status == wire.ToolStatusError {
		return "", result.Code, fmt.Errorf("%s", result.Error)
	}
	return result.Output, "", nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrToolNotFound)
}

// threadIDFromContext reads a thread id stashed by the caller, if any.
// Callers store it with WithThreadID, under the unexported threadIDKey
// below.
func threadIDFromContext(ctx context.Context) string {
	v := ctx.Value(threadIDKey{})
	s, _ := v.(string)
	return s
}

type threadIDKey struct{}

// WithThreadID returns a context carrying threadID for Emit/Request to
// stamp onto outgoing envelopes.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey{}, threadID)
}

// PlanHash computes the short content hash used to deduplicate plans
// across runs, matching loom-py's plan-hash helper: the first 8 hex
// characters of MD5(symbol + "|" + action + "|" + reasoning).
func PlanHash(symbol, action, reasoning string) string {
	sum := md5.Sum([]byte(symbol + "|" + action + "|" + reasoning))
	return hex.EncodeToString(sum[:])[:8]
}
