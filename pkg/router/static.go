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
package router

import "context"

// StaticRouter always routes to a single fixed workflow. Useful for
// single-workflow deployments and for tests.
type StaticRouter struct {
	workflowID string
}

// NewStatic creates a router pinned to one workflow.
func NewStatic(workflowID string) *StaticRouter {
	return &StaticRouter{workflowID: workflowID}
}

// FindBest returns the pinned workflow with full confidence.
func (r *StaticRouter) FindBest(_ context.Context, _ string) (*Match, error) {
	if r.workflowID == "" {
		return nil, ErrNoMatch
	}
	return &Match{WorkflowID: r.workflowID, Confidence: 1.0}, nil
}

// Compile-time interface check
var _ Router = (*StaticRouter)(nil)
