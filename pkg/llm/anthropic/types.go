// Copyright 2026 Handrail Labs
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
package anthropic

import "encoding/json"

// Anthropic Messages API types.
// Reference: https://docs.anthropic.com/en/api/messages

// MessagesRequest represents a request to the Anthropic messages API.
type MessagesRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []APIMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []Tool       `json:"tools,omitempty"`
	ToolChoice  *ToolChoice  `json:"tool_choice,omitempty"`
}

// APIMessage is a single conversation turn.
type APIMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Tool describes a tool the model may call. Structured output is obtained by
// forcing a single tool whose input schema is the desired output schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice forces the model to call a specific tool.
type ToolChoice struct {
	Type string `json:"type"` // "tool"
	Name string `json:"name"`
}

// MessagesResponse represents the response from Anthropic.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // "message" or "error"
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"` // "end_turn", "max_tokens", "tool_use"
	Usage      Usage          `json:"usage"`
	Error      *APIError      `json:"error,omitempty"`
}

// ContentBlock is one piece of response content.
type ContentBlock struct {
	Type  string          `json:"type"` // "text" or "tool_use"
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// APIError represents an error from the Anthropic API.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
