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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/internal/log"
	"github.com/handrail-labs/handrail/pkg/storage"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

var seedCmd = &cobra.Command{
	Use:   "seed <dir>",
	Short: "Load workflow YAML files into the database",
	Long:  `Parses, validates, and stores every workflow YAML file in the given directory. Existing workflows with the same name are replaced and their version bumped.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger := log.Logger()

	workflows, err := workflow.LoadDir(args[0])
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}
	if len(workflows) == 0 {
		return fmt.Errorf("no workflow files found in %s", args[0])
	}

	ctx := context.Background()
	backend, err := storage.New(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, wf := range workflows {
		if err := backend.Workflows().Put(ctx, wf); err != nil {
			return fmt.Errorf("failed to store workflow %s: %w", wf.Name, err)
		}
		logger.Info("stored workflow",
			zap.String("workflow", wf.Name),
			zap.Int("steps", len(wf.Steps)))
	}

	fmt.Printf("Seeded %d workflow(s) from %s\n", len(workflows), args[0])
	return nil
}
