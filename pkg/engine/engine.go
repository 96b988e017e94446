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

// Package engine drives the hierarchical troubleshooting state machine. Each
// user turn is executed against the step at the top of the session's call
// stack; the LLM's status assessment is mapped onto a stack transition (hold,
// advance, push, pop) and the engine mutates the session accordingly.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Engine executes conversational turns over a session's workflow call stack.
// It mutates the *session.State it is handed; callers that need atomicity
// should pass a clone and persist it only on success.
type Engine struct {
	workflows workflow.Store
	executor  *Executor
	narrator  *Narrator
	logger    *zap.Logger
}

// New creates an engine.
func New(workflows workflow.Store, executor *Executor, narrator *Narrator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		workflows: workflows,
		executor:  executor,
		narrator:  narrator,
		logger:    logger,
	}
}

// TurnOutput is the result of one processed turn.
type TurnOutput struct {
	// Reply is the assistant message for the user.
	Reply string

	// Transition records what happened to the call stack.
	Transition Transition

	// ActiveWorkflow and ActiveStep identify the node the session rests on
	// after the turn. Both are empty when the stack emptied out.
	ActiveWorkflow string
	ActiveStep     *workflow.Step

	// ActiveWorkflowTitle and ActiveStepTotal describe the active workflow
	// for display: its human title and how many steps it defines.
	ActiveWorkflowTitle string
	ActiveStepTotal     int

	// Done reports that the root workflow completed and the stack is empty.
	Done bool
}

// HandleMessage processes one user message against the active frame.
//
// Sequence: execute the turn on the current step, consume the frame's child
// result mailbox, map the decision onto a stack transition, then narrate the
// newly active step if the pointer moved. A malformed workflow definition
// aborts the turn with no state change.
func (e *Engine) HandleMessage(ctx context.Context, state *session.State, userMessage string) (*TurnOutput, error) {
	frame := state.ActiveFrame()
	if frame == nil {
		return nil, ErrEmptyStack
	}

	wf, err := e.workflows.Get(ctx, frame.WorkflowName)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %q: %w", frame.WorkflowName, err)
	}
	step, ok := wf.Step(frame.CurrentStepID)
	if !ok {
		return nil, &MalformedWorkflowError{Workflow: wf.Name, StepID: frame.CurrentStepID, Ref: frame.CurrentStepID}
	}

	decision := e.executor.RunTurn(ctx, step, frame, state.History, userMessage)

	// The mailbox is consumed by exactly one execution prompt. Clear it
	// before applying the decision so a POP this turn can deposit a fresh
	// result into the parent frame without being clobbered.
	frame.PendingChildResult = nil

	transition, meta, err := e.applyDecision(ctx, state, wf, step, frame, decision)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("turn processed",
		zap.String("session_id", state.SessionID),
		zap.String("workflow", wf.Name),
		zap.String("step_id", step.ID),
		zap.String("status", string(decision.Status)),
		zap.String("transition", transition.String()))

	reply := decision.ReplyToUser
	active := state.ActiveFrame()
	if transition != TransitionHold && active != nil {
		// The pointer moved and a frame remains: generate the unified
		// acknowledgement + introduction for the new top of stack.
		nextWf, err := e.workflows.Get(ctx, active.WorkflowName)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %q: %w", active.WorkflowName, err)
		}
		nextStep, ok := nextWf.Step(active.CurrentStepID)
		if !ok {
			return nil, &MalformedWorkflowError{Workflow: nextWf.Name, StepID: active.CurrentStepID, Ref: active.CurrentStepID}
		}
		intro := e.narrator.IntroduceStep(ctx, step, nextStep, meta, state.History, userMessage)
		reply = intro.ReplyToUser
	}

	if userMessage != "" {
		state.AppendMessage(session.RoleUser, userMessage)
	}
	state.AppendMessage(session.RoleAssistant, reply)
	state.UpdatedAt = time.Now().UTC()

	out := &TurnOutput{
		Reply:      reply,
		Transition: transition,
		Done:       state.Terminal(),
	}
	if active != nil {
		out.ActiveWorkflow = active.WorkflowName
		activeWf, err := e.workflows.Get(ctx, active.WorkflowName)
		if err == nil {
			out.ActiveWorkflowTitle = activeWf.Title
			out.ActiveStepTotal = len(activeWf.Steps)
			if s, ok := activeWf.Step(active.CurrentStepID); ok {
				out.ActiveStep = s
			}
		}
	}
	return out, nil
}

// applyDecision maps the LLM's status onto a stack transition and performs
// the corresponding mutation. Unknown or unusable decisions degrade to a
// hold; only a structurally broken workflow definition is a hard error.
func (e *Engine) applyDecision(ctx context.Context, state *session.State, wf *workflow.Workflow, step *workflow.Step, frame *session.Frame, decision *Decision) (Transition, TransitionMeta, error) {
	meta := TransitionMeta{Reasoning: decision.Reasoning}

	switch decision.Status {
	case StatusInProgress:
		meta.Type = TransitionHold
		return TransitionHold, meta, nil

	case StatusGiveUp:
		state.Escalated = true
		e.logger.Info("user gave up on step",
			zap.String("session_id", state.SessionID),
			zap.String("workflow", wf.Name),
			zap.String("step_id", step.ID),
			zap.String("reasoning", decision.Reasoning))
		meta.Type = TransitionHold
		return TransitionHold, meta, nil

	case StatusCallWorkflow:
		return e.applyCallWorkflow(ctx, state, wf, step, decision, meta)

	case StatusComplete:
		return e.applyComplete(state, wf, step, frame, decision, meta)

	default:
		e.logger.Warn("unknown decision status, holding",
			zap.String("status", string(decision.Status)),
			zap.String("step_id", step.ID))
		meta.Type = TransitionHold
		return TransitionHold, meta, nil
	}
}

func (e *Engine) applyCallWorkflow(ctx context.Context, state *session.State, wf *workflow.Workflow, step *workflow.Step, decision *Decision, meta TransitionMeta) (Transition, TransitionMeta, error) {
	target := decision.ResultValue
	if target == "" {
		e.logger.Warn("CALL_WORKFLOW without a target, holding",
			zap.String("workflow", wf.Name),
			zap.String("step_id", step.ID))
		meta.Type = TransitionHold
		return TransitionHold, meta, nil
	}

	child, err := e.workflows.Get(ctx, target)
	if err != nil {
		e.logger.Warn("CALL_WORKFLOW targets unknown workflow, holding",
			zap.String("target", target),
			zap.String("step_id", step.ID),
			zap.Error(err))
		meta.Type = TransitionHold
		return TransitionHold, meta, nil
	}

	state.Push(&session.Frame{
		WorkflowName:  child.Name,
		CurrentStepID: child.StartStep,
	})
	meta.Type = TransitionPush
	meta.Link = step.FindLink(target)
	return TransitionPush, meta, nil
}

func (e *Engine) applyComplete(state *session.State, wf *workflow.Workflow, step *workflow.Step, frame *session.Frame, decision *Decision, meta TransitionMeta) (Transition, TransitionMeta, error) {
	// End steps complete the whole workflow: pop the frame and deliver the
	// result to the parent's mailbox.
	if step.IsTerminal() {
		return e.popFrame(state, wf, decision.ReplyToUser, meta)
	}

	if step.Type == workflow.StepAskSlot && step.SlotName != "" && decision.ResultValue != "" {
		state.SetSlot(step.SlotName, decision.ResultValue)
	}

	nextID := e.resolveNextStep(wf, step, decision)
	if nextID == "" {
		// No outgoing edge: treat completion as the end of this workflow.
		return e.popFrame(state, wf, decision.ReplyToUser, meta)
	}

	nextStep, ok := wf.Step(nextID)
	if !ok {
		return TransitionHold, meta, &MalformedWorkflowError{Workflow: wf.Name, StepID: step.ID, Ref: nextID}
	}

	// Advancing directly onto an end node short-circuits: the workflow is
	// finished, and the end step's goal is the result summary.
	if nextStep.IsTerminal() {
		return e.popFrame(state, wf, nextStep.Goal, meta)
	}

	frame.CurrentStepID = nextID
	meta.Type = TransitionAdvance
	return TransitionAdvance, meta, nil
}

// resolveNextStep picks the outgoing edge for a completed step: the chosen
// option's next step for choices, the static next step otherwise.
func (e *Engine) resolveNextStep(wf *workflow.Workflow, step *workflow.Step, decision *Decision) string {
	if step.Type == workflow.StepAskChoice {
		if opt := step.FindOption(decision.ResultValue); opt != nil {
			return opt.NextStepID
		}
		e.logger.Warn("COMPLETE with unlisted option, using default edge",
			zap.String("workflow", wf.Name),
			zap.String("step_id", step.ID),
			zap.String("result_value", decision.ResultValue))
	}
	return step.NextStep
}

// popFrame removes the active frame and deposits the result into the new
// top's mailbox. Slots live on the session and stay visible to the parent
// directly; the result itself carries none, so a child can never echo back
// values the parent or an earlier sibling collected.
func (e *Engine) popFrame(state *session.State, wf *workflow.Workflow, summary string, meta TransitionMeta) (Transition, TransitionMeta, error) {
	state.Pop()

	result := &session.WorkflowResult{
		SourceWorkflowID: wf.Name,
		Status:           session.ResultSuccess,
		Summary:          summary,
	}

	if parent := state.ActiveFrame(); parent != nil {
		parent.PendingChildResult = result
	}
	meta.Type = TransitionPop
	meta.ChildResult = result
	return TransitionPop, meta, nil
}
