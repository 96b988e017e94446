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
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Transition describes what happened to the session call stack this turn.
// It is the engine's own vocabulary, decoupled from the LLM's Status;
// downstream code branches only on the transition.
type Transition int

const (
	// TransitionHold means the pointer stayed on the current node.
	TransitionHold Transition = iota

	// TransitionAdvance means the pointer moved to the next node.
	TransitionAdvance

	// TransitionPush means a child workflow frame was pushed onto the stack.
	TransitionPush

	// TransitionPop means a frame was popped (workflow completed).
	TransitionPop
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case TransitionHold:
		return "HOLD"
	case TransitionAdvance:
		return "ADVANCE"
	case TransitionPush:
		return "PUSH"
	case TransitionPop:
		return "POP"
	default:
		return "UNKNOWN"
	}
}

// TransitionMeta bundles the context a step introduction needs beyond the
// two steps themselves.
type TransitionMeta struct {
	// Type is the transition that occurred.
	Type Transition

	// Reasoning is the executor's justification for completing the prior step.
	Reasoning string

	// Link is the workflow link taken, for PUSH transitions.
	Link *workflow.WorkflowLink

	// ChildResult is the popped child's result, for POP transitions.
	ChildResult *session.WorkflowResult
}
