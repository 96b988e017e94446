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
package engine

import (
	"errors"
	"fmt"
)

// ErrEmptyStack is returned when a turn starts with no active frame. The
// caller must route through the cold-start path first.
var ErrEmptyStack = errors.New("session stack is empty")

// MalformedWorkflowError is fatal: an edge in a workflow definition resolved
// to a step that does not exist. The turn is refused and nothing persists.
type MalformedWorkflowError struct {
	Workflow string
	StepID   string
	Ref      string
}

func (e *MalformedWorkflowError) Error() string {
	return fmt.Sprintf("malformed workflow %q: step %q references missing step %q", e.Workflow, e.StepID, e.Ref)
}

// IsMalformedWorkflow reports whether err is a MalformedWorkflowError.
func IsMalformedWorkflow(err error) bool {
	var target *MalformedWorkflowError
	return errors.As(err, &target)
}
