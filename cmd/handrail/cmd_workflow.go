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

	"github.com/handrail-labs/handrail/internal/log"
	"github.com/handrail-labs/handrail/pkg/storage"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect and validate workflow definitions",
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows stored in the database",
	RunE:  runWorkflowList,
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate workflow YAML files without storing them",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowValidate,
}

func init() {
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowValidateCmd)
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := log.Setup("error", "console"); err != nil {
		return err
	}

	ctx := context.Background()
	backend, err := storage.New(ctx, cfg.Database, log.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	workflows, err := backend.Workflows().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}
	if len(workflows) == 0 {
		fmt.Println("No workflows stored.")
		return nil
	}

	for _, wf := range workflows {
		fmt.Printf("%-40s %-40s steps=%d\n", wf.Name, wf.Title, len(wf.Steps))
	}
	return nil
}

func runWorkflowValidate(cmd *cobra.Command, args []string) error {
	workflows, err := workflow.LoadDir(args[0])
	if err != nil {
		return err
	}
	for _, wf := range workflows {
		fmt.Printf("ok: %s (%d steps)\n", wf.Name, len(wf.Steps))
	}
	fmt.Printf("%d workflow(s) valid\n", len(workflows))
	return nil
}
