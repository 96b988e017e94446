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

// Package llm defines the provider-neutral contract for structured LLM
// generation. Providers return raw JSON conforming to a caller-supplied
// schema; parsing and validation happen above this layer.
package llm

import (
	"context"
	"encoding/json"
)

// Message roles understood by all providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation entry sent to a provider.
type Message struct {
	Role    string
	Content string
}

// StructuredRequest asks a provider for output conforming to a JSON schema.
type StructuredRequest struct {
	// Messages is the full conversation: system prompt first, then history,
	// then the latest user input.
	Messages []Message

	// SchemaName labels the schema for providers that require a name
	// (OpenAI response_format, Anthropic tool name).
	SchemaName string

	// Schema is the JSON schema the output must conform to.
	Schema json.RawMessage

	// Temperature for generation. Zero means deterministic-leaning output,
	// which is what the engine wants for decisions.
	Temperature float64
}

// Provider is the interface implemented by LLM vendor adapters.
// Implementations must be safe for concurrent use; they hold no per-caller
// state.
type Provider interface {
	// GenerateStructured sends the conversation and returns the model's
	// output as raw JSON matching req.Schema, or an error if the provider
	// call failed or produced no parseable JSON. Calls are bounded by the
	// provider's configured timeout and by ctx.
	GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model identifier.
	Model() string
}
