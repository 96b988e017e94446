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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

func TestHandleMessage_EmptyStack(t *testing.T) {
	provider := &stubProvider{}
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	_, err := eng.HandleMessage(context.Background(), session.New("s1"), "hello")
	assert.ErrorIs(t, err, ErrEmptyStack)
	assert.Zero(t, provider.requestCount())
}

func TestHandleMessage_Hold(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Have you checked the dial yet?", StatusInProgress, ""))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_01_thermostat"})

	out, err := eng.HandleMessage(context.Background(), state, "not yet")
	require.NoError(t, err)

	assert.Equal(t, TransitionHold, out.Transition)
	assert.Equal(t, "Have you checked the dial yet?", out.Reply)
	assert.False(t, out.Done)
	assert.Equal(t, "troubleshoot_lukewarm_water", out.ActiveWorkflow)

	// The state machine did not move and only the executor was called.
	require.Len(t, state.Stack, 1)
	assert.Equal(t, "step_01_thermostat", state.ActiveFrame().CurrentStepID)
	assert.Equal(t, 1, provider.requestCount())

	// One user message and one assistant message were appended.
	require.Len(t, state.History, 2)
	assert.Equal(t, session.RoleUser, state.History[0].Role)
	assert.Equal(t, "not yet", state.History[0].Content)
	assert.Equal(t, session.RoleAssistant, state.History[1].Role)
}

func TestHandleMessage_ChoiceAdvancesToEndAndPops(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "The low setting explains it. You're all set!", StatusComplete, "was_low"))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_01_thermostat"})

	out, err := eng.HandleMessage(context.Background(), state, "it was turned way down")
	require.NoError(t, err)

	// Advancing onto an end step finishes the workflow in the same turn.
	assert.Equal(t, TransitionPop, out.Transition)
	assert.True(t, out.Done)
	assert.Empty(t, out.ActiveWorkflow)
	assert.Empty(t, state.Stack)

	// The stack emptied, so the executor's reply stands and no introduction
	// was generated.
	assert.Equal(t, "The low setting explains it. You're all set!", out.Reply)
	assert.Equal(t, 1, provider.requestCount())
}

func TestHandleMessage_Advance(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(
		decisionJSON(t, "Tripped it is.", StatusComplete, "tripped"),
		decisionJSON(t, "Good find. Now let's reset that breaker safely.", StatusInProgress, ""),
	)
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_02_breaker"})

	out, err := eng.HandleMessage(context.Background(), state, "yes, the breaker is in the middle position")
	require.NoError(t, err)

	assert.Equal(t, TransitionAdvance, out.Transition)
	assert.Equal(t, "step_02a_reset_breaker", state.ActiveFrame().CurrentStepID)

	// The reply is the narrator's introduction of the new step, not the
	// executor's assessment of the old one.
	assert.Equal(t, "Good find. Now let's reset that breaker safely.", out.Reply)
	require.Equal(t, 2, provider.requestCount())
	intro := provider.systemPrompt(t, 1)
	assert.Contains(t, intro, "TRANSITION: Step completed, advancing to next step.")
	assert.Contains(t, intro, "Guide the user through resetting the breaker.")

	// The narrator also sees the message that triggered the transition.
	introMsgs := provider.requests[1].Messages
	require.Len(t, introMsgs, 2)
	assert.Equal(t, "yes, the breaker is in the middle position", introMsgs[1].Content)
}

func TestHandleMessage_Push(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(
		decisionJSON(t, "Happy to walk you through draining it.", StatusCallWorkflow, "drain_water_heater"),
		decisionJSON(t, "Let's drain the tank. First, cut the power.", StatusInProgress, ""),
	)
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow(), drainWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_04_sediment"})

	out, err := eng.HandleMessage(context.Background(), state, "how do I drain the tank?")
	require.NoError(t, err)

	assert.Equal(t, TransitionPush, out.Transition)
	require.Len(t, state.Stack, 2)
	top := state.ActiveFrame()
	assert.Equal(t, "drain_water_heater", top.WorkflowName)
	assert.Equal(t, "drain_step_01_power_off", top.CurrentStepID)
	assert.Equal(t, "drain_water_heater", out.ActiveWorkflow)

	intro := provider.systemPrompt(t, 1)
	assert.Contains(t, intro, "TRANSITION: Branching to helper sub-workflow.")
	assert.Contains(t, intro, "How to Drain a Water Heater")
	assert.Contains(t, intro, "SAFETY WARNING: Never drain with power on")
	assert.Equal(t, "Let's drain the tank. First, cut the power.", out.Reply)
}

func TestHandleMessage_PopDeliversMailbox(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(
		decisionJSON(t, "Tank is drained and refilling.", StatusComplete, ""),
		decisionJSON(t, "Nice work draining the tank. Back to the sediment check.", StatusInProgress, ""),
	)
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow(), drainWorkflow()), provider)

	state := session.New("s1")
	state.SetSlot("serial_number", "WH-1234")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_04_sediment"})
	state.Push(&session.Frame{WorkflowName: "drain_water_heater", CurrentStepID: "drain_end_success"})

	out, err := eng.HandleMessage(context.Background(), state, "done, the tank is empty")
	require.NoError(t, err)

	assert.Equal(t, TransitionPop, out.Transition)
	require.Len(t, state.Stack, 1)

	parent := state.ActiveFrame()
	assert.Equal(t, "step_04_sediment", parent.CurrentStepID)
	require.NotNil(t, parent.PendingChildResult)
	assert.Equal(t, "drain_water_heater", parent.PendingChildResult.SourceWorkflowID)
	assert.Equal(t, session.ResultSuccess, parent.PendingChildResult.Status)
	assert.Equal(t, "Tank is drained and refilling.", parent.PendingChildResult.Summary)
	// Session-wide slots stay on the session; the result carries none.
	assert.Empty(t, parent.PendingChildResult.SlotsCollected)
	assert.Equal(t, "WH-1234", state.Slots["serial_number"])

	intro := provider.systemPrompt(t, 1)
	assert.Contains(t, intro, "TRANSITION: Sub-workflow completed, returning to main task.")
	assert.Contains(t, intro, "drain_water_heater")
	assert.Equal(t, "Nice work draining the tank. Back to the sediment check.", out.Reply)

	// The next executor turn sees the mailbox exactly once.
	provider.queue(decisionJSON(t, "Given the fresh drain, let's keep monitoring.", StatusInProgress, ""))
	_, err = eng.HandleMessage(context.Background(), state, "what now?")
	require.NoError(t, err)

	execPrompt := provider.systemPrompt(t, 2)
	assert.Contains(t, execPrompt, "SYSTEM NOTIFICATION: A sub-task has just finished.")
	assert.Contains(t, execPrompt, "Tank is drained and refilling.")
	assert.Nil(t, state.ActiveFrame().PendingChildResult)
}

func TestHandleMessage_PopToEmptyFromEndStep(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Glad it's sorted. Enjoy the hot water!", StatusComplete, ""))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "end_monitor"})

	out, err := eng.HandleMessage(context.Background(), state, "temperature held steady all day")
	require.NoError(t, err)

	assert.Equal(t, TransitionPop, out.Transition)
	assert.True(t, out.Done)
	assert.Empty(t, state.Stack)
	assert.Equal(t, "Glad it's sorted. Enjoy the hot water!", out.Reply)
	assert.Equal(t, 1, provider.requestCount())
}

func TestHandleMessage_GiveUpEscalates(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Understood. This one needs a licensed electrician.", StatusGiveUp, ""))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_02a_reset_breaker"})

	out, err := eng.HandleMessage(context.Background(), state, "I can't reach the panel")
	require.NoError(t, err)

	assert.Equal(t, TransitionHold, out.Transition)
	assert.True(t, state.Escalated)
	assert.Equal(t, "step_02a_reset_breaker", state.ActiveFrame().CurrentStepID)
}

func TestHandleMessage_CallWorkflowUnknownTargetHolds(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Let me pull that up.", StatusCallWorkflow, "replace_anode_rod"))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_04_sediment"})

	out, err := eng.HandleMessage(context.Background(), state, "can you help with the anode rod?")
	require.NoError(t, err)

	// A branch to an unregistered workflow degrades to a hold.
	assert.Equal(t, TransitionHold, out.Transition)
	require.Len(t, state.Stack, 1)
	assert.Equal(t, "step_04_sediment", state.ActiveFrame().CurrentStepID)
	assert.Equal(t, "Let me pull that up.", out.Reply)
}

func TestHandleMessage_UnlistedOptionFallsToDefaultEdge(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Done with the sediment check.", StatusComplete, "no_such_option"))
	eng := newTestEngine(t, newTestStore(t, waterHeaterWorkflow()), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "troubleshoot_lukewarm_water", CurrentStepID: "step_04_sediment"})

	out, err := eng.HandleMessage(context.Background(), state, "checked it")
	require.NoError(t, err)

	// step_04_sediment's static edge goes to end_monitor, which pops.
	assert.Equal(t, TransitionPop, out.Transition)
	assert.Empty(t, state.Stack)
	assert.True(t, out.Done)
}

func TestHandleMessage_MalformedWorkflowAbortsTurn(t *testing.T) {
	broken := &workflow.Workflow{
		Name:      "broken",
		Title:     "Broken",
		StartStep: "first",
		Steps: map[string]*workflow.Step{
			"first": {ID: "first", Type: workflow.StepInstruction, Goal: "Do the thing.", NextStep: "nowhere"},
		},
	}
	store := newTestStore(t)
	require.NoError(t, store.Put(context.Background(), broken))

	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Done!", StatusComplete, ""))
	eng := newTestEngine(t, store, provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "broken", CurrentStepID: "first"})

	_, err := eng.HandleMessage(context.Background(), state, "finished")
	require.Error(t, err)
	assert.True(t, IsMalformedWorkflow(err))

	// The turn aborted before any history was recorded.
	require.Len(t, state.Stack, 1)
	assert.Equal(t, "first", state.ActiveFrame().CurrentStepID)
	assert.Empty(t, state.History)
}

func TestHandleMessage_AskSlotCollectsValue(t *testing.T) {
	withSlot := &workflow.Workflow{
		Name:      "register_unit",
		Title:     "Register the Unit",
		StartStep: "collect_serial",
		Steps: map[string]*workflow.Step{
			"collect_serial": {
				Type:     workflow.StepAskSlot,
				Goal:     "Collect the unit's serial number.",
				SlotName: "serial_number",
				NextStep: "done",
			},
			"done": {Type: workflow.StepEnd, Goal: "Registration info captured."},
		},
	}

	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Got it, thanks.", StatusComplete, "WH-1234"))
	eng := newTestEngine(t, newTestStore(t, withSlot), provider)

	state := session.New("s1")
	state.Push(&session.Frame{WorkflowName: "register_unit", CurrentStepID: "collect_serial"})

	out, err := eng.HandleMessage(context.Background(), state, "it's WH-1234")
	require.NoError(t, err)

	assert.Equal(t, "WH-1234", state.Slots["serial_number"])
	assert.Equal(t, TransitionPop, out.Transition)
}
