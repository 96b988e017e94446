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

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultEndpoint is the default Anthropic API endpoint
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 1024
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
	// apiVersion is the anthropic-version header value
	apiVersion = "2023-06-01"
)

// Client implements the llm.Provider interface for Anthropic's Claude API.
// Structured output is obtained through forced tool use: the output schema
// becomes the input schema of a single mandatory tool.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	maxTokens  int
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey    string
	Model     string // Default: claude-sonnet-4-5-20250929
	Endpoint  string // Default: https://api.anthropic.com/v1/messages
	Timeout   time.Duration
	MaxTokens int // Default: 1024
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		// Check environment variable first, then use default
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
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
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateStructured sends the conversation with a forced tool call and
// returns the tool input as raw JSON.
func (c *Client) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	systemPrompt, apiMessages := convertMessages(req.Messages)

	temp := req.Temperature
	apiReq := &MessagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      systemPrompt,
		Messages:    apiMessages,
		Temperature: &temp,
		Tools: []Tool{{
			Name:        req.SchemaName,
			Description: "Record the structured result of this turn.",
			InputSchema: req.Schema,
		}},
		ToolChoice: &ToolChoice{Type: "tool", Name: req.SchemaName},
	}

	resp, err := c.callAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == req.SchemaName {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("Anthropic returned no tool_use block (stop_reason: %s)", resp.StopReason)
}

// convertMessages extracts system messages into the top-level system prompt
// and maps the rest onto the messages array.
func convertMessages(messages []llm.Message) (string, []APIMessage) {
	var system string
	apiMessages := make([]APIMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		apiMessages = append(apiMessages, APIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return system, apiMessages
}

// callAPI makes the HTTP request to Anthropic's API.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}
	return &resp, nil
}

// Compile-time interface check
var _ llm.Provider = (*Client)(nil)
