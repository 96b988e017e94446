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
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/handrail-labs/handrail/pkg/workflow"
)

// WorkflowStore persists workflow definitions as JSON blobs. Put bumps the
// version column on replacement so operators can tell redeploys apart.
type WorkflowStore struct {
	db *sql.DB
}

// NewWorkflowStore creates a workflow store over the shared database.
func NewWorkflowStore(db *sql.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// Get loads a workflow definition by name.
func (s *WorkflowStore) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT workflow_data FROM workflows WHERE workflow_id = ?", id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow: %w", err)
	}
	return unmarshalWorkflow(id, []byte(data))
}

// Exists reports whether a workflow is stored.
func (s *WorkflowStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workflows WHERE workflow_id = ?", id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check workflow existence: %w", err)
	}
	return count > 0, nil
}

// List returns all stored workflows.
func (s *WorkflowStore) List(ctx context.Context) ([]*workflow.Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT workflow_id, workflow_data FROM workflows ORDER BY workflow_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*workflow.Workflow
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}
		wf, err := unmarshalWorkflow(id, []byte(data))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// Put stores or replaces a workflow definition.
func (s *WorkflowStore) Put(ctx context.Context, wf *workflow.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	now := time.Now().UTC().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (workflow_id, title, workflow_data, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (workflow_id) DO UPDATE SET
			title = excluded.title,
			workflow_data = excluded.workflow_data,
			version = workflows.version + 1,
			updated_at = excluded.updated_at
	`, wf.Name, wf.Title, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}
	return nil
}

func unmarshalWorkflow(id string, data []byte) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}
	return &wf, nil
}

// Compile-time interface check
var _ workflow.Store = (*WorkflowStore)(nil)
