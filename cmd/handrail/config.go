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
package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	handrailconfig "github.com/handrail-labs/handrail/pkg/config"
	"github.com/handrail-labs/handrail/pkg/storage"
)

// DefaultConfigFileName is the config file searched for in the data
// directory (handrail.yaml).
const DefaultConfigFileName = "handrail"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Database storage.Config `mapstructure:"database"`
	Router   RouterConfig   `mapstructure:"router"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// DataDir is resolved from the environment, not the config file.
	DataDir string `mapstructure:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string     `mapstructure:"host"`
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig mirrors server.CORSConfig for file-based configuration.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LLMConfig selects and configures the provider.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Endpoint       string  `mapstructure:"endpoint"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
}

// RouterConfig configures cold-start routing.
type RouterConfig struct {
	// Kind is "fuzzy" or "static".
	Kind string `mapstructure:"kind"`

	// StaticWorkflow pins the static router to one workflow.
	StaticWorkflow string `mapstructure:"static_workflow"`

	// MinConfidence is the fuzzy router's cutoff.
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// SessionConfig configures session retention.
type SessionConfig struct {
	TTLHours        int    `mapstructure:"ttl_hours"`
	JanitorSchedule string `mapstructure:"janitor_schedule"`
}

// TTL returns the configured session TTL.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration with flag > file > env > default priority.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(handrailconfig.GetDataDir())
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/handrail/")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; defaults + env vars + flags apply.
	}

	viper.SetEnvPrefix("HANDRAIL")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.DataDir = handrailconfig.GetDataDir()
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	viper.SetDefault("server.cors.allowed_headers", []string{"*"})
	viper.SetDefault("server.cors.allow_credentials", false)
	viper.SetDefault("server.cors.max_age", 86400)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.timeout_seconds", 60)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.temperature", 0.2)

	viper.SetDefault("database.driver", "sqlite")

	viper.SetDefault("router.kind", "fuzzy")
	viper.SetDefault("router.min_confidence", 0.25)

	viper.SetDefault("session.ttl_hours", 72)
	viper.SetDefault("session.janitor_schedule", "@hourly")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
