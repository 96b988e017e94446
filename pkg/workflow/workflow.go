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

// Package workflow defines the immutable troubleshooting-guide model: a
// workflow is a directed graph of steps, each carrying a goal the engine
// tasks the LLM with satisfying. Definitions are loaded once and shared
// read-only across sessions.
package workflow

import "fmt"

// StepType classifies step behavior within a workflow.
type StepType string

const (
	// StepInstruction is guidance without a user choice.
	StepInstruction StepType = "instruction"

	// StepAskChoice is a decision point with predefined options.
	StepAskChoice StepType = "ask_choice"

	// StepAskSlot collects a specific piece of data from the user.
	StepAskSlot StepType = "ask_slot"

	// StepRespond provides contextual information.
	StepRespond StepType = "respond"

	// StepEnd is a terminal node marking workflow completion.
	StepEnd StepType = "end"

	// StepCallWorkflow triggers a nested sub-workflow.
	StepCallWorkflow StepType = "call_workflow"
)

// Media is a visual aid attached to a step. The caption lets the executor
// refer to the image in conversation.
type Media struct {
	URL     string `json:"url" yaml:"url"`
	Caption string `json:"caption" yaml:"caption"`
}

// WorkflowLink is a potential branch to a helper sub-workflow. Unlike
// Options, which advance the current workflow, links push a child frame onto
// the session call stack when the LLM decides the user needs the sub-task.
type WorkflowLink struct {
	// TargetWorkflowID is the destination workflow pushed onto the stack.
	TargetWorkflowID string `json:"target_workflow_id" yaml:"target_workflow_id"`

	// Title is the human-readable name, e.g. "How to Drain a Water Heater".
	Title string `json:"title" yaml:"title"`

	// Rationale describes when the detour should be offered.
	Rationale string `json:"rationale" yaml:"rationale"`

	// TriggerKeywords hint at user intent to take this path.
	TriggerKeywords []string `json:"trigger_keywords,omitempty" yaml:"trigger_keywords,omitempty"`
}

// Option is a valid logical exit for an ask_choice step. The option id is
// what the LLM returns as result_value when it marks the step complete.
type Option struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	NextStepID string `json:"next_step_id" yaml:"next_step_id"`
}

// Step is the fundamental unit of work in a workflow. The executor builds
// the per-turn system prompt from these fields, conditionally injecting
// blocks for whichever fields are present.
type Step struct {
	// ID is unique within the workflow.
	ID string `json:"id" yaml:"id"`

	// Type classifies the step's behavior.
	Type StepType `json:"type" yaml:"type"`

	// Goal is the step objective and success criterion.
	Goal string `json:"goal" yaml:"goal"`

	// BackgroundContext holds static facts and tips for the LLM.
	BackgroundContext string `json:"background_context,omitempty" yaml:"background_context,omitempty"`

	// Media is an optional visual aid.
	Media *Media `json:"media,omitempty" yaml:"media,omitempty"`

	// Warning is critical safety text. The user must acknowledge it before
	// the step may complete.
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`

	// SuggestedLinks are helper sub-workflows reachable from this step.
	SuggestedLinks []WorkflowLink `json:"suggested_links,omitempty" yaml:"suggested_links,omitempty"`

	// Options are the valid logical exits for ask_choice steps, in authored
	// order.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	// NextStep is the default linear successor when no option applies.
	NextStep string `json:"next_step,omitempty" yaml:"next_step,omitempty"`

	// SlotName is where collected data is stored for ask_slot steps.
	SlotName string `json:"slot_name,omitempty" yaml:"slot_name,omitempty"`
}

// IsTerminal reports whether the step is an end node.
func (s *Step) IsTerminal() bool {
	return s.Type == StepEnd
}

// FindOption returns the option with the given id, or nil.
func (s *Step) FindOption(id string) *Option {
	for i := range s.Options {
		if s.Options[i].ID == id {
			return &s.Options[i]
		}
	}
	return nil
}

// FindLink returns the suggested link targeting the given workflow id, or nil.
func (s *Step) FindLink(targetWorkflowID string) *WorkflowLink {
	for i := range s.SuggestedLinks {
		if s.SuggestedLinks[i].TargetWorkflowID == targetWorkflowID {
			return &s.SuggestedLinks[i]
		}
	}
	return nil
}

// Workflow is a complete troubleshooting guide: a named graph of steps with
// a designated entry point. Workflows are invoked directly (root) or pushed
// as sub-workflows via WorkflowLinks.
type Workflow struct {
	// Name is the unique workflow identifier, also used as the link target id.
	Name string `json:"name" yaml:"name"`

	// Title is the human-readable guide title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Keywords bias the cold-start router toward this guide.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// StartStep is the entry-point step id.
	StartStep string `json:"start_step" yaml:"start_step"`

	// Steps maps step id to definition for O(1) lookup.
	Steps map[string]*Step `json:"steps" yaml:"steps"`
}

// Step returns the step with the given id.
func (w *Workflow) Step(id string) (*Step, bool) {
	s, ok := w.Steps[id]
	return s, ok
}

// Validate checks the structural invariants of a workflow definition:
// a non-empty name, a start step that exists, and every intra-workflow edge
// (next_step, option next_step_id) resolving to a defined step. Link targets
// reference other workflows and are validated against the store at load time.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow has no name")
	}
	if w.StartStep == "" {
		return fmt.Errorf("workflow %q has no start_step", w.Name)
	}
	if _, ok := w.Steps[w.StartStep]; !ok {
		return fmt.Errorf("workflow %q: start_step %q is not a defined step", w.Name, w.StartStep)
	}
	for id, step := range w.Steps {
		if step == nil {
			return fmt.Errorf("workflow %q: step %q is nil", w.Name, id)
		}
		if step.ID == "" {
			step.ID = id
		} else if step.ID != id {
			return fmt.Errorf("workflow %q: step keyed %q declares id %q", w.Name, id, step.ID)
		}
		switch step.Type {
		case StepInstruction, StepAskChoice, StepAskSlot, StepRespond, StepEnd, StepCallWorkflow:
		default:
			return fmt.Errorf("workflow %q: step %q has unknown type %q", w.Name, id, step.Type)
		}
		if step.NextStep != "" {
			if _, ok := w.Steps[step.NextStep]; !ok {
				return fmt.Errorf("workflow %q: step %q next_step %q does not exist", w.Name, id, step.NextStep)
			}
		}
		for _, opt := range step.Options {
			if opt.ID == "" {
				return fmt.Errorf("workflow %q: step %q has an option without an id", w.Name, id)
			}
			if _, ok := w.Steps[opt.NextStepID]; !ok {
				return fmt.Errorf("workflow %q: step %q option %q next_step_id %q does not exist",
					w.Name, id, opt.ID, opt.NextStepID)
			}
		}
		if step.Type == StepAskSlot && step.SlotName == "" {
			return fmt.Errorf("workflow %q: ask_slot step %q has no slot_name", w.Name, id)
		}
		for _, link := range step.SuggestedLinks {
			if link.TargetWorkflowID == "" {
				return fmt.Errorf("workflow %q: step %q has a link without a target_workflow_id", w.Name, id)
			}
		}
	}
	return nil
}

// LinkTargets returns the distinct workflow ids referenced by suggested
// links anywhere in the graph. Used to validate cross-workflow edges when
// seeding a store.
func (w *Workflow) LinkTargets() []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, step := range w.Steps {
		for _, link := range step.SuggestedLinks {
			if _, ok := seen[link.TargetWorkflowID]; ok {
				continue
			}
			seen[link.TargetWorkflowID] = struct{}{}
			targets = append(targets, link.TargetWorkflowID)
		}
	}
	return targets
}
