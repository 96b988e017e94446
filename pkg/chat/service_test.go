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
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handrail-labs/handrail/pkg/engine"
	"github.com/handrail-labs/handrail/pkg/llm"
	"github.com/handrail-labs/handrail/pkg/router"
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/storage/memory"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

type scriptedProvider struct {
	mu        sync.Mutex
	responses []json.RawMessage
}

func (p *scriptedProvider) GenerateStructured(_ context.Context, _ llm.StructuredRequest) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("scripted provider exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) queue(reply, status, resultValue string) {
	d := map[string]any{
		"reply_to_user": reply,
		"status":        status,
		"reasoning":     "scripted",
	}
	if resultValue == "" {
		d["result_value"] = nil
	} else {
		d["result_value"] = resultValue
	}
	raw, _ := json.Marshal(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, raw)
}

func heaterWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name:      "troubleshoot_lukewarm_water",
		Title:     "Troubleshoot Lukewarm Water",
		Keywords:  []string{"lukewarm water", "hot water", "water heater"},
		StartStep: "step_01_thermostat",
		Steps: map[string]*workflow.Step{
			"step_01_thermostat": {
				Type: workflow.StepAskChoice,
				Goal: "Determine if the thermostat is set correctly.",
				Options: []workflow.Option{
					{ID: "was_low", Label: "The thermostat was set too low.", NextStepID: "end_success"},
					{ID: "was_correct", Label: "It was already correct.", NextStepID: "step_02_breaker"},
				},
			},
			"step_02_breaker": {
				Type:     workflow.StepInstruction,
				Goal:     "Check the breaker panel.",
				NextStep: "end_success",
			},
			"end_success": {
				Type: workflow.StepEnd,
				Goal: "The thermostat was the culprit.",
			},
		},
	}
}

type testEnv struct {
	service  *Service
	backend  *memory.Backend
	provider *scriptedProvider
}

func newTestEnv(t *testing.T, r router.Router) *testEnv {
	t.Helper()
	backend := memory.NewBackend()
	wf := heaterWorkflow()
	require.NoError(t, wf.Validate())
	require.NoError(t, backend.Workflows().Put(context.Background(), wf))

	provider := &scriptedProvider{}
	eng := engine.New(backend.Workflows(), engine.NewExecutor(provider), engine.NewNarrator(provider, nil), nil)
	if r == nil {
		r = router.NewFuzzy(backend.Workflows())
	}
	return &testEnv{
		service:  NewService(backend.Sessions(), backend.Workflows(), r, eng, nil),
		backend:  backend,
		provider: provider,
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	state, err := env.service.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, state.SessionID)

	got, err := env.service.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, got.SessionID)
	assert.Empty(t, got.Stack)

	require.NoError(t, env.service.DeleteSession(ctx, state.SessionID))
	_, err = env.service.GetSession(ctx, state.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.ErrorIs(t, env.service.DeleteSession(ctx, "missing"), session.ErrNotFound)
}

func TestProcessMessage_ColdStartRoutesAndExecutes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	state, err := env.service.CreateSession(ctx)
	require.NoError(t, err)

	env.provider.queue("Let's check the thermostat on your water heater first.", "IN_PROGRESS", "")

	result, err := env.service.ProcessMessage(ctx, state.SessionID, "my water is lukewarm")
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, result.Status)
	assert.Equal(t, "troubleshoot_lukewarm_water", result.ActiveWorkflow)
	assert.Equal(t, "Troubleshoot Lukewarm Water", result.ActiveWorkflowTitle)
	assert.Equal(t, "step_01_thermostat", result.ActiveStepID)
	assert.Equal(t, 3, result.TotalSteps)
	assert.Equal(t, "Let's check the thermostat on your water heater first.", result.Reply)

	// The stored session gained the root frame and both turn messages.
	stored, err := env.service.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.Stack, 1)
	assert.Equal(t, "step_01_thermostat", stored.ActiveFrame().CurrentStepID)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "my water is lukewarm", stored.History[0].Content)
}

func TestProcessMessage_RouterMissLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	state, err := env.service.CreateSession(ctx)
	require.NoError(t, err)

	result, err := env.service.ProcessMessage(ctx, state.SessionID, "xzqvw jjkpr zzyyx")
	assert.ErrorIs(t, err, ErrNoMatchingWorkflow)
	require.NotNil(t, result)
	assert.Equal(t, NoMatchReply, result.Reply)
	assert.Equal(t, StatusInProgress, result.Status)

	stored, err := env.service.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.Stack)
	assert.Empty(t, stored.History)
}

func TestProcessMessage_CompletesSession(t *testing.T) {
	env := newTestEnv(t, router.NewStatic("troubleshoot_lukewarm_water"))
	ctx := context.Background()

	state, err := env.service.CreateSession(ctx)
	require.NoError(t, err)

	// Turn 1: cold start onto the thermostat step.
	env.provider.queue("Is the dial set near 120°F?", "IN_PROGRESS", "")
	_, err = env.service.ProcessMessage(ctx, state.SessionID, "lukewarm water everywhere")
	require.NoError(t, err)

	// Turn 2: the low setting resolves it; advancing onto the end step
	// finishes the workflow.
	env.provider.queue("That explains it. Turn it up and you're done!", "COMPLETE", "was_low")
	result, err := env.service.ProcessMessage(ctx, state.SessionID, "it was set to low")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.ActiveWorkflow)
	assert.Empty(t, result.ActiveStepID)

	stored, err := env.service.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.Stack)
	require.Len(t, stored.History, 4)
}

func TestProcessMessage_EngineErrorDoesNotPersist(t *testing.T) {
	env := newTestEnv(t, router.NewStatic("broken"))
	ctx := context.Background()

	// A structurally broken definition: the only step points nowhere.
	broken := &workflow.Workflow{
		Name:      "broken",
		Title:     "Broken",
		StartStep: "first",
		Steps: map[string]*workflow.Step{
			"first": {ID: "first", Type: workflow.StepInstruction, Goal: "Do the thing.", NextStep: "nowhere"},
		},
	}
	require.NoError(t, env.backend.Workflows().Put(ctx, broken))

	state, err := env.service.CreateSession(ctx)
	require.NoError(t, err)

	env.provider.queue("Done!", "COMPLETE", "")
	_, err = env.service.ProcessMessage(ctx, state.SessionID, "finished")
	require.Error(t, err)
	assert.True(t, engine.IsMalformedWorkflow(err))

	// The failed turn must not leak into the store: no frame, no history.
	stored, err := env.service.GetSession(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.Stack)
	assert.Empty(t, stored.History)
}

func TestProcessMessage_UnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.service.ProcessMessage(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
