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
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/handrail-labs/handrail/pkg/llm"
	"github.com/handrail-labs/handrail/pkg/storage/memory"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// stubProvider replays queued responses and records every request it sees.
type stubProvider struct {
	mu        sync.Mutex
	responses []json.RawMessage
	err       error
	requests  []llm.StructuredRequest
}

func (p *stubProvider) GenerateStructured(_ context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("stub provider: no response queued for request %d", len(p.requests))
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }

func (p *stubProvider) queue(decisions ...json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, decisions...)
}

// systemPrompt returns the system message of the i-th recorded request.
func (p *stubProvider) systemPrompt(t *testing.T, i int) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Greater(t, len(p.requests), i, "request %d was never made", i)
	msgs := p.requests[i].Messages
	require.NotEmpty(t, msgs)
	require.Equal(t, llm.RoleSystem, msgs[0].Role)
	return msgs[0].Content
}

func (p *stubProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func decisionJSON(t *testing.T, reply string, status Status, resultValue string) json.RawMessage {
	t.Helper()
	d := map[string]any{
		"reply_to_user": reply,
		"status":        status,
		"reasoning":     "stubbed",
	}
	if resultValue == "" {
		d["result_value"] = nil
	} else {
		d["result_value"] = resultValue
	}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	return raw
}

func waterHeaterWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name:      "troubleshoot_lukewarm_water",
		Title:     "Troubleshoot Lukewarm Water",
		StartStep: "step_01_thermostat",
		Steps: map[string]*workflow.Step{
			"step_01_thermostat": {
				Type:    workflow.StepAskChoice,
				Goal:    "Determine if the thermostat is set correctly (around 120°F).",
				Warning: "Do not set the temperature above 120°F (scalding risk).",
				Options: []workflow.Option{
					{ID: "was_low", Label: "The thermostat was set too low.", NextStepID: "end_success_thermostat"},
					{ID: "was_correct", Label: "The thermostat was already set correctly.", NextStepID: "step_02_breaker"},
				},
			},
			"step_02_breaker": {
				Type: workflow.StepAskChoice,
				Goal: "Check whether the water heater breaker has tripped.",
				Options: []workflow.Option{
					{ID: "tripped", Label: "The breaker was tripped.", NextStepID: "step_02a_reset_breaker"},
					{ID: "not_tripped", Label: "The breaker is fine.", NextStepID: "step_04_sediment"},
				},
			},
			"step_02a_reset_breaker": {
				Type:     workflow.StepInstruction,
				Goal:     "Guide the user through resetting the breaker.",
				NextStep: "end_monitor",
			},
			"step_04_sediment": {
				Type: workflow.StepInstruction,
				Goal: "Assess whether sediment buildup is reducing tank capacity.",
				SuggestedLinks: []workflow.WorkflowLink{{
					TargetWorkflowID: "drain_water_heater",
					Title:            "How to Drain a Water Heater",
					Rationale:        "Draining the tank flushes out sediment.",
					TriggerKeywords:  []string{"drain", "flush"},
				}},
				NextStep: "end_monitor",
			},
			"end_success_thermostat": {
				Type: workflow.StepEnd,
				Goal: "The thermostat was set too low; raising it should restore hot water within an hour.",
			},
			"end_monitor": {
				Type: workflow.StepEnd,
				Goal: "Monitor the water temperature over the next day.",
			},
		},
	}
}

func drainWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name:      "drain_water_heater",
		Title:     "How to Drain a Water Heater",
		StartStep: "drain_step_01_power_off",
		Steps: map[string]*workflow.Step{
			"drain_step_01_power_off": {
				Type:     workflow.StepInstruction,
				Goal:     "Guide user to turn off power or gas to the water heater.",
				Warning:  "Never drain with power on - heating elements will burn out if exposed to air.",
				NextStep: "drain_step_02_attach_hose",
			},
			"drain_step_02_attach_hose": {
				Type:     workflow.StepInstruction,
				Goal:     "Guide user to connect a hose and drain the tank.",
				NextStep: "drain_end_success",
			},
			"drain_end_success": {
				Type: workflow.StepEnd,
				Goal: "Confirm successful completion of the drain procedure.",
			},
		},
	}
}

func newTestStore(t *testing.T, workflows ...*workflow.Workflow) *memory.WorkflowStore {
	t.Helper()
	store := memory.NewWorkflowStore()
	for _, wf := range workflows {
		require.NoError(t, wf.Validate())
		require.NoError(t, store.Put(context.Background(), wf))
	}
	return store
}

func newTestEngine(t *testing.T, store workflow.Store, provider llm.Provider) *Engine {
	t.Helper()
	return New(store, NewExecutor(provider), NewNarrator(provider, nil), nil)
}
