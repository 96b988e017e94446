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
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handrail-labs/handrail/pkg/llm"
)

var testSchema = json.RawMessage(`{"type":"object","properties":{"answer":{"type":"string"}},"required":["answer"],"additionalProperties":false}`)

func testRequest() llm.StructuredRequest {
	return llm.StructuredRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a test."},
			{Role: llm.RoleUser, Content: "hello"},
		},
		SchemaName:  "test_schema",
		Schema:      testSchema,
		Temperature: 0.2,
	}
}

func TestGenerateStructured_Success(t *testing.T) {
	var captured ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {"role": "assistant", "content": "{\"answer\":\"42\"}"},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", Model: "gpt-4o", Endpoint: srv.URL})

	raw, err := c.GenerateStructured(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"42"}`, string(raw))

	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_schema", captured.ResponseFormat.Type)
	require.NotNil(t, captured.ResponseFormat.JSONSchema)
	assert.Equal(t, "test_schema", captured.ResponseFormat.JSONSchema.Name)
	assert.True(t, captured.ResponseFormat.JSONSchema.Strict)
}

func TestGenerateStructured_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", Endpoint: srv.URL})
	_, err := c.GenerateStructured(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestGenerateStructured_Truncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{
				"message": {"role": "assistant", "content": "{\"answ"},
				"finish_reason": "length"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})
	_, err := c.GenerateStructured(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestGenerateStructured_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})
	_, err := c.GenerateStructured(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	assert.Equal(t, "openai", c.Name())
	assert.NotEmpty(t, c.Model())
}
