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

// Package factory creates LLM providers from configuration.
package factory

import (
	"fmt"
	"os"
	"time"

	"github.com/handrail-labs/handrail/pkg/llm"
	"github.com/handrail-labs/handrail/pkg/llm/anthropic"
	"github.com/handrail-labs/handrail/pkg/llm/openai"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai" or "anthropic".
	Provider string

	// APIKey for the selected provider. Falls back to OPENAI_API_KEY or
	// ANTHROPIC_API_KEY when empty.
	APIKey string

	// Model overrides the provider default.
	Model string

	// Endpoint overrides the provider default.
	Endpoint string

	// Timeout bounds each provider call. Default 60s.
	Timeout time.Duration

	// MaxTokens bounds each response. Default per provider.
	MaxTokens int
}

// New creates a provider from config.
func New(cfg Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (config or OPENAI_API_KEY)")
		}
		return openai.NewClient(openai.Config{
			APIKey:    apiKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
		}), nil

	case "anthropic":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key (config or ANTHROPIC_API_KEY)")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:    apiKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
		}), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (want openai or anthropic)", cfg.Provider)
	}
}
