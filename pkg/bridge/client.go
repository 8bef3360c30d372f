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

// Package bridge implements the client side of the bridge wire protocol:
// connecting to the bridge broker, registering an agent, opening the
// duplex event stream, forwarding tool calls, heartbeating, and the thin
// memory RPC pass-throughs.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teradata-labs/loom-agent/internal/log"
	"github.com/teradata-labs/loom-agent/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "loom.v1.Bridge"

// Fully-qualified method names.
const (
	MethodRegisterAgent      = "/" + ServiceName + "/RegisterAgent"
	MethodEventStream        = "/" + ServiceName + "/EventStream"
	MethodForwardToolCall    = "/" + ServiceName + "/ForwardToolCall"
	MethodHeartbeat          = "/" + ServiceName + "/Heartbeat"
	MethodSavePlan           = "/" + ServiceName + "/SavePlan"
	MethodGetRecentPlans     = "/" + ServiceName + "/GetRecentPlans"
	MethodCheckDuplicate     = "/" + ServiceName + "/CheckDuplicate"
	MethodMarkExecuted       = "/" + ServiceName + "/MarkExecuted"
	MethodCheckExecuted      = "/" + ServiceName + "/CheckExecuted"
	MethodGetExecutionStats  = "/" + ServiceName + "/GetExecutionStats"
)

// Sentinel errors for the transport/registration failure kinds.
var (
	ErrBridgeUnavailable  = errors.New("bridge: unavailable")
	ErrRegistrationFailed = errors.New("bridge: registration failed")
	ErrStreamBroken       = errors.New("bridge: stream broken")
)

// Client is a stateless (re-dialable) connection to the bridge. All
// operations are idempotent with respect to Close.
type Client struct {
	addr string

	mu   sync.Mutex
	conn *grpc.ClientConn

	logger *zap.Logger
}

// NewClient constructs a Client targeting addr (e.g. LOOM_BRIDGE_ADDR).
func NewClient(addr string) *Client {
	return &Client{addr: addr, logger: log.Named("bridge")}
}

// Connect dials the bridge. Idempotent: calling Connect while already
// connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := grpc.NewClient(c.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	c.conn = conn
	return nil
}

// Close tears down the connection. Safe to call from any state, including
// before Connect or after a prior Close.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) conn_() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, fmt.Errorf("%w: not connected", ErrBridgeUnavailable)
	}
	return c.conn, nil
}

// withAgentID attaches the x-agent-id outgoing metadata, matching the
// UserIDUnaryInterceptor convention (pkg/server/interceptors.go) adapted
// to the client side.
func withAgentID(ctx context.Context, agentID string) context.Context {
	if agentID == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "x-agent-id", agentID)
}

// RegisterAgent registers (or re-registers) an agent with its subscription
// set and tool descriptors.
func (c *Client) RegisterAgent(ctx context.Context, req *wire.RegisterAgentRequest) (*wire.RegisterAgentResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	ctx = withAgentID(ctx, req.AgentID)
	resp := &wire.RegisterAgentResponse{}
	if err := conn.Invoke(ctx, MethodRegisterAgent, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%w: %s", ErrRegistrationFailed, resp.ErrorMessage)
	}
	return resp, nil
}

// ForwardToolCall invokes a remote tool via the bridge's tool router.
func (c *Client) ForwardToolCall(ctx context.Context, call *wire.ToolCall) (*wire.ToolResult, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	if call.Headers != nil {
		md := metadata.MD{}
		for k, v := range call.Headers {
			md.Append(k, v)
		}
		ctx = metadata.NewOutgoingContext(ctx, md)
	}
	result := &wire.ToolResult{}
	if err := conn.Invoke(ctx, MethodForwardToolCall, call, result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return result, nil
}

// Heartbeat is a liveness probe with caller-supplied timeout via ctx.
func (c *Client) Heartbeat(ctx context.Context, agentID string) (*wire.HeartbeatResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.HeartbeatResponse{}
	if err := conn.Invoke(ctx, MethodHeartbeat, &wire.HeartbeatRequest{AgentID: agentID}, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

// Memory RPCs: thin unary pass-throughs.

func (c *Client) SavePlan(ctx context.Context, req *wire.SavePlanRequest) (*wire.SavePlanResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.SavePlanResponse{}
	if err := conn.Invoke(ctx, MethodSavePlan, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

func (c *Client) GetRecentPlans(ctx context.Context, req *wire.GetRecentPlansRequest) (*wire.GetRecentPlansResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.GetRecentPlansResponse{}
	if err := conn.Invoke(ctx, MethodGetRecentPlans, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

func (c *Client) CheckDuplicate(ctx context.Context, req *wire.CheckDuplicateRequest) (*wire.CheckDuplicateResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.CheckDuplicateResponse{}
	if err := conn.Invoke(ctx, MethodCheckDuplicate, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

func (c *Client) MarkExecuted(ctx context.Context, req *wire.MarkExecutedRequest) (*wire.MarkExecutedResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.MarkExecutedResponse{}
	if err := conn.Invoke(ctx, MethodMarkExecuted, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

func (c *Client) CheckExecuted(ctx context.Context, req *wire.CheckExecutedRequest) (*wire.CheckExecutedResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.CheckExecutedResponse{}
	if err := conn.Invoke(ctx, MethodCheckExecuted, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

func (c *Client) GetExecutionStats(ctx context.Context, req *wire.GetExecutionStatsRequest) (*wire.GetExecutionStatsResponse, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	resp := &wire.GetExecutionStatsResponse{}
	if err := conn.Invoke(ctx, MethodGetExecutionStats, req, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp, nil
}

// EventStream opens the bidirectional event stream. The caller MUST send
// an Ack{MessageID: agentID} as the first frame.
func (c *Client) EventStream(ctx context.Context) (*Stream, error) {
	conn, err := c.conn_()
	if err != nil {
		return nil, err
	}
	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "EventStream",
		ClientStreams: true,
		ServerStreams: true,
	}, MethodEventStream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamBroken, err)
	}
	return &Stream{cs: cs}, nil
}

// DefaultHeartbeatTimeout is the RPC deadline applied to each heartbeat
// probe.
const DefaultHeartbeatTimeout = 5 * time.Second
