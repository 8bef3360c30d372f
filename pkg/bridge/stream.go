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
package bridge

import (
	"github.com/teradata-labs/loom-agent/internal/wire"
	"google.golang.org/grpc"
)

// Stream wraps the raw grpc.ClientStream with typed Send/Recv for the
// EventStream RPC's ClientEvent/ServerEvent frames.
type Stream struct {
	cs grpc.ClientStream
}

// Send sends one ClientEvent frame.
func (s *Stream) Send(ev *wire.ClientEvent) error {
	return s.cs.SendMsg(ev)
}

// Recv receives one ServerEvent frame. Returns io.EOF when the bridge has
// closed the stream.
func (s *Stream) Recv() (*wire.ServerEvent, error) {
	ev := &wire.ServerEvent{}
	if err := s.cs.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// CloseSend half-closes the send direction.
func (s *Stream) CloseSend() error {
	return s.cs.CloseSend()
}
