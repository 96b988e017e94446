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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/handrail-labs/handrail/internal/version"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "handrail",
	Short:   "Handrail - conversational troubleshooting engine",
	Long:    `Handrail guides end users through structured diagnostic procedures authored as step graphs, delegating per-turn language understanding to an LLM constrained by structured output.`,
	Version: version.Get(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HANDRAIL_DATA_DIR/handrail.yaml)")

	rootCmd.PersistentFlags().String("host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().String("llm-provider", "openai", "LLM provider (openai, anthropic)")
	rootCmd.PersistentFlags().String("llm-model", "", "override the provider's default model")
	rootCmd.PersistentFlags().String("db-driver", "sqlite", "storage driver (memory, sqlite, postgres)")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("db-dsn", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")

	mustBindPFlag("server.host", "host")
	mustBindPFlag("server.port", "port")
	mustBindPFlag("llm.provider", "llm-provider")
	mustBindPFlag("llm.model", "llm-model")
	mustBindPFlag("database.driver", "db-driver")
	mustBindPFlag("database.path", "db-path")
	mustBindPFlag("database.dsn", "db-dsn")
	mustBindPFlag("logging.level", "log-level")
	mustBindPFlag("logging.format", "log-format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(workflowCmd)
}

func mustBindPFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}
