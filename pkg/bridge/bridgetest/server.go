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

// Package bridgetest is a minimal in-process fake bridge broker used by
// integration tests for pkg/bridge and pkg/runtime. It implements just
// enough of the loom.v1.Bridge surface to exercise registration, topic
// fan-out, and tool-call forwarding: no persistence, no auth.
package bridgetest

import (
	"context"
	"net"
	"sync"

	"github.com/teradata-labs/loom-agent/internal/wire"
	"github.com/teradata-labs/loom-agent/pkg/bridge"
	"google.golang.org/grpc"
)

// Server is a fake bridge broker for tests.
type Server struct {
	grpcServer *grpc.Server
	lis        net.Listener

	mu          sync.Mutex
	subscribers map[string][]chan *wire.Delivery // topic -> agent send channels
	agentChans  map[string]chan *wire.ServerEvent
	toolHandler func(*wire.ToolCall) *wire.ToolResult
}

// NewServer creates and starts a fake bridge listening on an ephemeral
// localhost port.
func NewServer() (*Server, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		lis:         lis,
		subscribers: map[string][]chan *wire.Delivery{},
		agentChans:  map[string]chan *wire.ServerEvent{},
	}
	gs := grpc.NewServer()
	gs.RegisterService(&serviceDesc, s)
	s.grpcServer = gs
	go gs.Serve(lis)
	return s, nil
}

// Addr returns the dial target for this fake bridge.
func (s *Server) Addr() string { return s.lis.Addr().String() }

// Stop shuts the fake bridge down.
func (s *Server) Stop() { s.grpcServer.Stop() }

// SetToolHandler installs a handler invoked for every ForwardToolCall.
func (s *Server) SetToolHandler(h func(*wire.ToolCall) *wire.ToolResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolHandler = h
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: bridge.ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterAgent", Handler: registerAgentHandler},
		{MethodName: "ForwardToolCall", Handler: forwardToolCallHandler},
		{MethodName: "Heartbeat", Handler: heartbeatHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "EventStream", Handler: eventStreamHandler, ClientStreams: true, ServerStreams: true},
	},
}

func registerAgentHandler(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.RegisterAgentRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return &wire.RegisterAgentResponse{Success: true}, nil
}

func forwardToolCallHandler(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	s := srv.(*Server)
	req := &wire.ToolCall{}
	if err := dec(req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	h := s.toolHandler
	s.mu.Unlock()
	if h == nil {
		return &wire.ToolResult{ID: req.ID, Status: wire.ToolStatusError, Code: wire.CodeNotFound, Error: "no tool handler installed"}, nil
	}
	return h(req), nil
}

func heartbeatHandler(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.HeartbeatRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return &wire.HeartbeatResponse{Status: "ok"}, nil
}

// Publish delivers an event, tagged with topic, to every stream that has
// itself published on topic. Registration topics are not consulted.
func (s *Server) Publish(topic string, ev *wire.Event) {
	s.mu.Lock()
	chans := append([]chan *wire.Delivery(nil), s.subscribers[topic]...)
	s.mu.Unlock()
	for _, ch := range chans {
		ch <- &wire.Delivery{Topic: topic, Event: ev}
	}
}

type streamSession struct {
	srv    *Server
	topics map[string]bool
	ch     chan *wire.Delivery
}

func eventStreamHandler(srv any, stream grpc.ServerStream) error {
	s := srv.(*Server)
	sess := &streamSession{srv: s, topics: map[string]bool{}, ch: make(chan *wire.Delivery, 256)}

	// First frame must be the Ack handshake.
	first := &wire.ClientEvent{}
	if err := stream.RecvMsg(first); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case d, ok := <-sess.ch:
				if !ok {
					return
				}
				if err := stream.SendMsg(&wire.ServerEvent{Delivery: d}); err != nil {
					return
				}
			}
		}
	}()

	for {
		msg := &wire.ClientEvent{}
		if err := stream.RecvMsg(msg); err != nil {
			close(sess.ch)
			<-done
			return nil
		}
		if msg.Publish != nil {
			s.mu.Lock()
			s.subscribers[msg.Publish.Topic] = append(s.subscribers[msg.Publish.Topic], sess.ch)
			s.mu.Unlock()
			s.Publish(msg.Publish.Topic, msg.Publish.Event)
		}
	}
}
