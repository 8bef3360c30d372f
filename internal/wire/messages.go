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

// ToolStatus is the outcome of a tool invocation.
type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "OK"
	ToolStatusError ToolStatus = "ERROR"
)

// Tool error codes.
const (
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeToolError        = "TOOL_ERROR"
	CodeNotFound         = "NOT_FOUND"
)

// ToolDescriptor is what an agent advertises at registration time: a tool
// name, description and its JSON-Schema.
type ToolDescriptor struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ParametersSchema string `json:"parameters_schema"`
}

// ToolCall is a request to invoke a tool, flowing either as a ServerEvent
// frame (bridge -> agent) or as the payload of ForwardToolCall (agent ->
// bridge, for remote tools).
type ToolCall struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Arguments     string            `json:"arguments"`
	Headers       map[string]string `json:"headers,omitempty"`
	TimeoutMs     int64             `json:"timeout_ms,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// ToolResult is the answer to a ToolCall.
type ToolResult struct {
	ID     string     `json:"id"`
	Status ToolStatus `json:"status"`
	Output string     `json:"output,omitempty"`
	Code   string     `json:"code,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Ack is the mandatory first outbound frame of an EventStream, carrying the
// agent's own id as message_id, and is otherwise unused thereafter.
type Ack struct {
	MessageID string `json:"message_id"`
}

// Publish carries an outgoing Event to a topic.
type Publish struct {
	Topic string `json:"topic"`
	Event *Event `json:"event"`
}

// Delivery carries an incoming Event for a subscribed topic.
type Delivery struct {
	Topic string `json:"topic"`
	Event *Event `json:"event"`
}

// Err is a protocol-level error frame from the bridge; it does not tear
// down the stream.
type Err struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientEvent is one outbound stream frame. Exactly one field is set.
type ClientEvent struct {
	Ack        *Ack        `json:"ack,omitempty"`
	Publish    *Publish    `json:"publish,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ServerEvent is one inbound stream frame. Exactly one field is set.
type ServerEvent struct {
	Delivery *Delivery `json:"delivery,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Pong     *struct{} `json:"pong,omitempty"`
	Err      *Err      `json:"err,omitempty"`
}

// RegisterAgentRequest is the unary RegisterAgent request.
type RegisterAgentRequest struct {
	AgentID          string            `json:"agent_id"`
	SubscribedTopics []string          `json:"subscribed_topics"`
	ToolDescriptors  []ToolDescriptor  `json:"tool_descriptors"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// RegisterAgentResponse is the unary RegisterAgent response.
type RegisterAgentResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// HeartbeatRequest is the unary Heartbeat request.
type HeartbeatRequest struct {
	AgentID string `json:"agent_id"`
}

// HeartbeatResponse is the unary Heartbeat response.
type HeartbeatResponse struct {
	Status      string `json:"status"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// Memory RPC request/response shapes: the bridge owns the real schema,
// so these are intentionally minimal and payload-agnostic.

type SavePlanRequest struct {
	Symbol    string `json:"symbol"`
	Action    string `json:"action"`
	Reasoning string `json:"reasoning"`
}

type SavePlanResponse struct {
	PlanID string `json:"plan_id"`
}

type GetRecentPlansRequest struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

type GetRecentPlansResponse struct {
	Plans []map[string]any `json:"plans"`
}

type CheckDuplicateRequest struct {
	PlanHash string `json:"plan_hash"`
}

type CheckDuplicateResponse struct {
	Duplicate bool `json:"duplicate"`
}

type MarkExecutedRequest struct {
	PlanID string `json:"plan_id"`
}

type MarkExecutedResponse struct {
	OK bool `json:"ok"`
}

type CheckExecutedRequest struct {
	PlanID string `json:"plan_id"`
}

type CheckExecutedResponse struct {
	Executed bool `json:"executed"`
}

type GetExecutionStatsRequest struct {
	Symbol string `json:"symbol"`
}

type GetExecutionStatsResponse struct {
	Stats map[string]any `json:"stats"`
}
