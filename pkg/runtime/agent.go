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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/teradata-labs/loom-agent/internal/log"
	"github.com/teradata-labs/loom-agent/internal/wire"
	"github.com/teradata-labs/loom-agent/pkg/bridge"
	"github.com/teradata-labs/loom-agent/pkg/telemetry"
	"go.uber.org/zap"
)

// State is the Agent's connection lifecycle state.
type State int

const (
	StateInit State = iota
	StateConnecting
	StateRunning
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OutboundQueueCapacity is the minimum bound on the agent's single
// outbound multiplexing queue; Publish and ToolResult frames share it
// with backpressure, never dropped.
const OutboundQueueCapacity = 1024

// HeartbeatInterval is how often the agent probes the bridge for liveness.
const HeartbeatInterval = 15 * time.Second

// HeartbeatTimeout is how long a single heartbeat probe may take before
// the agent treats the connection as dead and starts reconnecting.
const HeartbeatTimeout = 5 * time.Second

// EventHandler processes one inbound envelope delivered on a subscribed
// topic. Returning an error only logs; it never tears down the stream.
type EventHandler func(ctx context.Context, env *wire.Envelope) error

// ToolCallHandler services an inbound ToolCall and returns the result to
// send back as a ToolResult frame.
type ToolCallHandler func(ctx context.Context, call *wire.ToolCall) *wire.ToolResult

// Agent owns one bridge connection: registration, the duplex event
// stream, heartbeating with exponential-backoff reconnect, and dispatch of
// inbound Delivery/ToolCall frames. Grounded on loom-py's Agent class
// (agent.py) and this module's existing connection/retry idiom.
type Agent struct {
	id     string
	client *bridge.Client
	tools  *ToolRegistry
	memory *WorkingMemory
	tracer telemetry.Tracer
	logger *zap.Logger

	subscribedTopics []string
	handlers         map[string]EventHandler // topic -> handler
	onToolCall       ToolCallHandler

	mu    sync.RWMutex
	state State

	outboundCh chan *wire.ClientEvent
	stopCh     chan struct{}
	stopOnce   sync.Once

	evctx *EventContext
}

// NewAgent builds an Agent identified by id, talking to the bridge via
// client. Its reply topic (agent.<id>.replies) is always subscribed,
// regardless of what is passed as topics.
func NewAgent(id string, client *bridge.Client, topics []string, tools *ToolRegistry) *Agent {
	if tools == nil {
		tools = NewToolRegistry()
	}
	a := &Agent{
		id:               id,
		client:           client,
		tools:            tools,
		memory:           NewWorkingMemory(DefaultMemoryCap),
		tracer:           telemetry.NewNoopTracer(),
		logger:           log.Named("agent").With(zap.String("agent_id", id)),
		subscribedTopics: withReplyTopic(id, topics),
		handlers:         map[string]EventHandler{},
		state:            StateInit,
		outboundCh:       make(chan *wire.ClientEvent, OutboundQueueCapacity),
		stopCh:           make(chan struct{}),
	}
	a.evctx = NewEventContext(id, a, tools, client, a.tracer)
	return a
}

func withReplyTopic(id string, topics []string) []string {
	reply := ReplyTopic(id)
	for _, t := range topics {
		if t == reply {
			return topics
		}
	}
	return append(append([]string(nil), topics...), reply)
}

// SetTracer overrides the no-op default tracer (e.g. with telemetry.NewTracer).
func (a *Agent) SetTracer(t telemetry.Tracer) {
	a.tracer = t
	a.evctx.tracer = t
}

// OnTopic registers a handler invoked for every Delivery on topic.
func (a *Agent) OnTopic(topic string, h EventHandler) {
	a.handlers[topic] = h
}

// OnToolCall registers the handler invoked for inbound ToolCall frames
// addressed to this agent (tools it owns that the bridge routes to it).
func (a *Agent) OnToolCall(h ToolCallHandler) {
	a.onToolCall = h
}

// Context returns the agent's EventContext, for use from handlers and the
// cognitive loop.
func (a *Agent) Context() *EventContext { return a.evctx }

// Memory returns the agent's WorkingMemory.
func (a *Agent) Memory() *WorkingMemory { return a.memory }

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	a.logger.Info("state transition", zap.String("state", s.String()))
}

// enqueue pushes an outbound frame onto the single multiplexed queue,
// blocking under backpressure rather than dropping. It returns
// ErrStreamBroken if the agent has stopped.
func (a *Agent) enqueue(ev *wire.ClientEvent) error {
	select {
	case a.outboundCh <- ev:
		return nil
	case <-a.stopCh:
		return bridge.ErrStreamBroken
	}
}

// reconnectBackoff builds the exponential backoff policy: 0.5s initial,
// doubling, 10s ceiling, unbounded elapsed time.
func reconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run drives the Agent's full lifecycle until ctx is cancelled or Stop is
// called: connect, register, open the stream, and run the heartbeat and
// dispatch loops, reconnecting with backoff on any break.
func (a *Agent) Run(ctx context.Context) error {
	bo := reconnectBackoff()
	for {
		select {
		case <-ctx.Done():
			a.setState(StateStopped)
			return ctx.Err()
		case <-a.stopCh:
			a.setState(StateStopped)
			return nil
		default:
		}

		a.setState(StateConnecting)
		if err := a.connectAndServe(ctx); err != nil {
			a.logger.Warn("connection lost", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			a.setState(StateStopped)
			return ctx.Err()
		case <-a.stopCh:
			a.setState(StateStopped)
			return nil
		default:
		}

		a.setState(StateReconnecting)
		wait := bo.NextBackOff()
		a.logger.Info("reconnecting", zap.Duration("backoff", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			a.setState(StateStopped)
			return ctx.Err()
		case <-a.stopCh:
			a.setState(StateStopped)
			return nil
		}
	}
}

// connectAndServe performs one connect+register+stream lifecycle, running
// until the stream breaks or the context/stop signal fires. It returns nil
// only after Stop; Run does not reset its backoff after a successful
// connection.
func (a *Agent) connectAndServe(ctx context.Context) error {
	if err := a.client.Connect(ctx); err != nil {
		return err
	}

	if _, err := a.client.RegisterAgent(ctx, &wire.RegisterAgentRequest{
		AgentID:          a.id,
		SubscribedTopics: a.subscribedTopics,
		ToolDescriptors:  a.tools.Descriptors(),
	}); err != nil {
		return err
	}

	stream, err := a.client.EventStream(ctx)
	if err != nil {
		return err
	}
	if err := stream.Send(&wire.ClientEvent{Ack: &wire.Ack{MessageID: a.id}}); err != nil {
		return err
	}

	a.setState(StateRunning)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go a.outboundLoop(streamCtx, stream, errCh)
	go a.inboundLoop(streamCtx, stream, errCh)
	go a.heartbeatLoop(streamCtx, errCh)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopCh:
		_ = stream.CloseSend()
		return nil
	}
}

func (a *Agent) outboundLoop(ctx context.Context, stream *bridge.Stream, errCh chan<- error) {
	for {
		select {
		case ev := <-a.outboundCh:
			if err := stream.Send(ev); err != nil {
				errCh <- fmt.Errorf("%w: %v", bridge.ErrStreamBroken, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) inboundLoop(ctx context.Context, stream *bridge.Stream, errCh chan<- error) {
	for {
		frame, err := stream.Recv()
		if err != nil {
			errCh <- fmt.Errorf("%w: %v", bridge.ErrStreamBroken, err)
			return
		}
		a.dispatch(ctx, frame)
	}
}

func (a *Agent) dispatch(ctx context.Context, frame *wire.ServerEvent) {
	switch {
	case frame.Delivery != nil:
		a.handleDelivery(ctx, frame.Delivery)
	case frame.ToolCall != nil:
		a.handleToolCall(ctx, frame.ToolCall)
	case frame.Pong != nil:
		// liveness only; heartbeatLoop tracks timeouts independently.
	case frame.Err != nil:
		a.logger.Warn("protocol error frame", zap.String("code", frame.Err.Code), zap.String("message", frame.Err.Message))
	}
}

func (a *Agent) handleDelivery(ctx context.Context, d *wire.Delivery) {
	env := wire.FromEvent(d.Event)
	if env == nil {
		return
	}
	ctx = a.tracer.Extract(ctx, env.Metadata)

	if a.evctx.resolveReply(env) {
		return
	}
	h, ok := a.handlers[d.Topic]
	if !ok {
		return
	}
	if err := h(ctx, env); err != nil {
		a.logger.Warn("event handler error", zap.String("topic", d.Topic), zap.Error(err))
	}
}

func (a *Agent) handleToolCall(ctx context.Context, call *wire.ToolCall) {
	var result *wire.ToolResult
	if a.onToolCall != nil {
		result = a.onToolCall(ctx, call)
	} else {
		out, err := a.tools.Invoke(call.Name, call.Arguments)
		if err != nil {
			result = &wire.ToolResult{ID: call.ID, Status: wire.ToolStatusError, Code: ErrorCodeFor(err), Error: err.Error()}
		} else {
			result = &wire.ToolResult{ID: call.ID, Status: wire.ToolStatusOK, Output: out}
		}
	}
	if result.ID == "" {
		result.ID = call.ID
	}
	if err := a.enqueue(&wire.ClientEvent{ToolResult: result}); err != nil {
		a.logger.Warn("failed to deliver tool result", zap.String("tool_call_id", call.ID), zap.Error(err))
	}
}

func (a *Agent) heartbeatLoop(ctx context.Context, errCh chan<- error) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hbCtx, cancel := context.WithTimeout(ctx, HeartbeatTimeout)
			_, err := a.client.Heartbeat(hbCtx, a.id)
			cancel()
			if err != nil {
				errCh <- fmt.Errorf("%w: heartbeat: %v", bridge.ErrStreamBroken, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals graceful shutdown: in-flight frames already enqueued are
// not delivered, but the connect/reconnect loop exits cleanly. Idempotent.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// Publish emits a fire-and-forget event via this agent's EventContext.
func (a *Agent) Publish(ctx context.Context, topic, evtType string, payload []byte) error {
	return a.evctx.Emit(ctx, topic, evtType, payload)
}
