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
package workflow

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a workflow id does not exist in the store.
var ErrNotFound = errors.New("workflow not found")

// Store provides read access to workflow definitions plus Put for seeding.
// Implementations must treat returned workflows as immutable shared state.
type Store interface {
	// Get retrieves a workflow by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Workflow, error)

	// Exists reports whether a workflow id is known without loading it.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns all stored workflows.
	List(ctx context.Context) ([]*Workflow, error)

	// Put stores or replaces a workflow definition.
	Put(ctx context.Context, w *Workflow) error
}
