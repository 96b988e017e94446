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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/handrail-labs/handrail/pkg/llm"
)

// Default OpenAI configuration values. Can be overridden via environment
// variables OPENAI_DEFAULT_MODEL / HANDRAIL_LLM_OPENAI_MODEL and
// OPENAI_API_ENDPOINT / HANDRAIL_LLM_OPENAI_ENDPOINT.
const (
	DefaultModel     = "gpt-4o"
	DefaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 1024
)

// Client implements the llm.Provider interface for OpenAI's API using the
// structured-outputs response format.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	maxTokens  int
}

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey    string
	Model     string        // Default: gpt-4o
	Endpoint  string        // Default: https://api.openai.com/v1/chat/completions
	Timeout   time.Duration // Default: 60s
	MaxTokens int           // Default: 1024
}

// NewClient creates a new OpenAI client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		// Check environment variable first, then use default
		if envModel := os.Getenv("OPENAI_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else if envModel := os.Getenv("HANDRAIL_LLM_OPENAI_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("OPENAI_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else if envEndpoint := os.Getenv("HANDRAIL_LLM_OPENAI_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	return &Client{
		apiKey:    config.APIKey,
		model:     config.Model,
		endpoint:  config.Endpoint,
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateStructured sends the conversation with a json_schema response
// format and returns the raw JSON content of the first choice.
func (c *Client) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	apiMessages := make([]ChatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		apiMessages = append(apiMessages, ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	temp := req.Temperature
	apiReq := &ChatCompletionRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	}

	resp, err := c.callAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("OpenAI response truncated at %d tokens", c.maxTokens)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("OpenAI returned empty content (finish_reason: %s)", choice.FinishReason)
	}
	return json.RawMessage(choice.Message.Content), nil
}

// callAPI makes the HTTP request to OpenAI's API.
func (c *Client) callAPI(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}
	return &resp, nil
}

// Compile-time interface check
var _ llm.Provider = (*Client)(nil)
