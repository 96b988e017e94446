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
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Status is the LLM's per-turn assessment of the current step. It answers a
// single question: based on the user's latest input, has this step's goal
// been satisfied? It is deliberately disjoint from the engine's Transition
// set; only the engine maps one onto the other.
type Status string

const (
	// StatusInProgress means the goal is not yet met; more interaction is needed.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusComplete means the goal is fully satisfied.
	StatusComplete Status = "COMPLETE"

	// StatusCallWorkflow requests a branch into a helper sub-workflow.
	StatusCallWorkflow Status = "CALL_WORKFLOW"

	// StatusGiveUp means the goal cannot be met due to a blocker or safety issue.
	StatusGiveUp Status = "GIVE_UP"
)

// Decision is the strict JSON structure the LLM must generate every turn.
type Decision struct {
	// ReplyToUser is the natural-language response shown to the user.
	ReplyToUser string `json:"reply_to_user"`

	// Status is the LLM's assessment of the current step after this turn.
	Status Status `json:"status"`

	// ResultValue carries the option id (choices), slot value (slots), or
	// target workflow id (branching). Empty otherwise.
	ResultValue string `json:"result_value"`

	// Reasoning is a brief justification, used for logging and for the
	// transition narrator's context.
	Reasoning string `json:"reasoning"`
}

// DecisionSchemaName labels the schema in provider requests.
const DecisionSchemaName = "step_decision"

// DecisionSchema is the JSON schema enforced on every LLM response. All
// fields are required (result_value is nullable) so providers running in
// strict mode accept it unchanged.
var DecisionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reply_to_user": {
			"type": "string",
			"description": "The natural language response to show the user. Be helpful, clear, and safe."
		},
		"status": {
			"type": "string",
			"enum": ["IN_PROGRESS", "COMPLETE", "CALL_WORKFLOW", "GIVE_UP"],
			"description": "The status of the current step after this turn."
		},
		"result_value": {
			"type": ["string", "null"],
			"description": "The value extracted (for slots), the option ID (for choices), or the workflow ID (for branching)."
		},
		"reasoning": {
			"type": "string",
			"description": "Brief internal justification for why this status was chosen."
		}
	},
	"required": ["reply_to_user", "status", "result_value", "reasoning"],
	"additionalProperties": false
}`)

var decisionSchema = mustCompileSchema(DecisionSchema)

func mustCompileSchema(raw json.RawMessage) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid decision schema: %v", err))
	}
	return s
}

// ParseDecision validates raw LLM output against the decision schema and
// decodes it. A schema violation (including an unknown status) is an error;
// callers degrade to their deterministic fallback.
func ParseDecision(raw json.RawMessage) (*Decision, error) {
	result, err := decisionSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("decision is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("decision violates schema: %v", result.Errors())
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode decision: %w", err)
	}
	return &d, nil
}
