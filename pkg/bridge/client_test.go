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
package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/loom-agent/internal/wire"
	"github.com/teradata-labs/loom-agent/pkg/bridge"
	"github.com/teradata-labs/loom-agent/pkg/bridge/bridgetest"
)

func dialedClient(t *testing.T) (*bridge.Client, *bridgetest.Server) {
	t.Helper()
	srv, err := bridgetest.NewServer()
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	cli := bridge.NewClient(srv.Addr())
	require.NoError(t, cli.Connect(context.Background()))
	t.Cleanup(func() { _ = cli.Close() })
	return cli, srv
}

func TestClientConnectIsIdempotent(t *testing.T) {
	cli, _ := dialedClient(t)
	assert.NoError(t, cli.Connect(context.Background()))
}

func TestClientCloseIsSafeBeforeConnect(t *testing.T) {
	cli := bridge.NewClient("127.0.0.1:0")
	assert.NoError(t, cli.Close())
}

func TestClientCloseIsSafeTwice(t *testing.T) {
	cli, _ := dialedClient(t)
	require.NoError(t, cli.Close())
	assert.NoError(t, cli.Close())
}

func TestRegisterAgentSuccess(t *testing.T) {
	cli, _ := dialedClient(t)
	resp, err := cli.RegisterAgent(context.Background(), &wire.RegisterAgentRequest{AgentID: "agent-1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestForwardToolCallRoutesThroughInstalledHandler(t *testing.T) {
	cli, srv := dialedClient(t)
	srv.SetToolHandler(func(call *wire.ToolCall) *wire.ToolResult {
		return &wire.ToolResult{ID: call.ID, Status: wire.ToolStatusOK, Output: "echo:" + call.Arguments}
	})

	result, err := cli.ForwardToolCall(context.Background(), &wire.ToolCall{ID: "call-1", Name: "fs:read_file", Arguments: `{"path":"a.txt"}`})
	require.NoError(t, err)
	assert.Equal(t, wire.ToolStatusOK, result.Status)
	assert.Equal(t, `echo:{"path":"a.txt"}`, result.Output)
}

func TestForwardToolCallWithNoHandlerReturnsNotFound(t *testing.T) {
	cli, _ := dialedClient(t)
	result, err := cli.ForwardToolCall(context.Background(), &wire.ToolCall{ID: "call-2", Name: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, wire.ToolStatusError, result.Status)
	assert.Equal(t, wire.CodeNotFound, result.Code)
}

func TestHeartbeatSucceeds(t *testing.T) {
	cli, _ := dialedClient(t)
	resp, err := cli.Heartbeat(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestUnaryCallBeforeConnectReturnsBridgeUnavailable(t *testing.T) {
	cli := bridge.NewClient("127.0.0.1:0")
	_, err := cli.RegisterAgent(context.Background(), &wire.RegisterAgentRequest{AgentID: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrBridgeUnavailable)
}

func TestEventStreamPublishAndDeliver(t *testing.T) {
	cli, _ := dialedClient(t)

	stream, err := cli.EventStream(context.Background())
	require.NoError(t, err)

	require.NoError(t, stream.Send(&wire.ClientEvent{Ack: &wire.Ack{MessageID: "agent-1"}}))
	require.NoError(t, stream.Send(&wire.ClientEvent{Publish: &wire.Publish{
		Topic: "agent.updates",
		Event: wire.New("ping", "agent-1", []byte(`{"n":1}`)).ToEvent(),
	}}))

	done := make(chan *wire.ServerEvent, 1)
	go func() {
		ev, recvErr := stream.Recv()
		if recvErr == nil {
			done <- ev
		}
	}()

	select {
	case ev := <-done:
		require.NotNil(t, ev.Delivery)
		assert.Equal(t, "agent.updates", ev.Delivery.Topic)
		assert.Equal(t, "ping", ev.Delivery.Event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivered event")
	}
}
