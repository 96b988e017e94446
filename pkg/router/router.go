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

// Package router selects the starting workflow for a session's first
// message. Routing is a cold-start concern only: once a frame is on the
// stack, all branching goes through workflow links.
package router

import (
	"context"
	"errors"
)

// ErrNoMatch is returned when no workflow plausibly matches the query.
var ErrNoMatch = errors.New("no workflow matches the query")

// Match is a routing result.
type Match struct {
	// WorkflowID names the matched workflow.
	WorkflowID string

	// Confidence is a normalized score in [0, 1].
	Confidence float64
}

// Router picks the best workflow for a free-text problem description.
type Router interface {
	// FindBest returns the best match for the query, or ErrNoMatch.
	FindBest(ctx context.Context, query string) (*Match, error)
}
