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
	"fmt"
	"strings"

	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Prompt templates for step execution. Blocks are conditional; assembly
// order is fixed.
const (
	stepTurnPreamble = `You are an expert DIY Home Repair Assistant.
You are guiding a user through a specific troubleshooting step.`

	stepTurnRubric = `INSTRUCTIONS:
1. If the user has satisfied the Goal (or confirmed the action), set status='COMPLETE'.
2. If the user is struggling or asks for help, provide guidance based on the Context.
3. If the user encounters a danger or cannot perform the step, set status='GIVE_UP'.`

	warningBlock = `CRITICAL SAFETY WARNING: %s
You MUST ensure the user acknowledges this warning before proceeding.`

	mailboxBlock = `SYSTEM NOTIFICATION: A sub-task has just finished.
Sub-task Status: %s
Sub-task Summary: %s
INSTRUCTION: Welcome the user back. Use this result to determine if the current step goal is now met.`

	optionsBlockHeader = `VALID OUTCOMES (for 'result_value' when COMPLETE):`
	optionsBlockFooter = `When status is COMPLETE, you MUST set 'result_value' to one of the IDs above.`

	linksBlockHeader = `AVAILABLE HELPER WORKFLOWS:
If the user explicitly asks for help with a related sub-task, you can branch to one of these workflows.`
	linksBlockFooter = `To branch to a helper workflow:
- Set status='CALL_WORKFLOW'
- Set result_value to the workflow ID
IMPORTANT: Only use CALL_WORKFLOW when the user clearly needs or requests the sub-task. Do not proactively suggest branching unless the user is stuck.`
)

// BuildStepExecutionPrompt assembles the system prompt for one conversational
// turn on a step. The frame contributes the mailbox block when a child
// workflow has just returned.
func BuildStepExecutionPrompt(step *workflow.Step, frame *session.Frame) string {
	var b strings.Builder
	b.WriteString(stepTurnPreamble)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "CURRENT STEP GOAL: %s\n", step.Goal)
	fmt.Fprintf(&b, "CONTEXT: %s\n", step.BackgroundContext)

	if step.Media != nil && step.Media.Caption != "" {
		fmt.Fprintf(&b, "VISUAL AID: %s (shown to the user alongside your reply)\n", step.Media.Caption)
	}

	if step.Warning != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, warningBlock, step.Warning)
		b.WriteString("\n")
	}

	if frame != nil && frame.PendingChildResult != nil {
		r := frame.PendingChildResult
		b.WriteString("\n")
		fmt.Fprintf(&b, mailboxBlock, r.Status, r.Summary)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(stepTurnRubric)

	if step.Type == workflow.StepAskChoice && len(step.Options) > 0 {
		b.WriteString("\n\n")
		b.WriteString(optionsBlockHeader)
		for _, opt := range step.Options {
			fmt.Fprintf(&b, "\n- ID: '%s' | Description: %s", opt.ID, opt.Label)
		}
		b.WriteString("\n")
		b.WriteString(optionsBlockFooter)
	}

	if len(step.SuggestedLinks) > 0 {
		b.WriteString("\n\n")
		b.WriteString(linksBlockHeader)
		for _, link := range step.SuggestedLinks {
			fmt.Fprintf(&b, "\n- ID: '%s' | Title: %s\n  When to offer: %s",
				link.TargetWorkflowID, link.Title, link.Rationale)
		}
		b.WriteString("\n")
		b.WriteString(linksBlockFooter)
	}

	return b.String()
}

// Prompt templates for step introductions after a transition.
const (
	transitionPreamble = `You are an expert DIY Home Repair Assistant introducing the next step.

Your task is to generate a response that:
1. Briefly acknowledges what just happened (the transition)
2. Smoothly introduces the current step the user needs to complete
3. Includes any safety warnings with appropriate emphasis

Keep the message concise but warm. Avoid redundancy.`

	transitionOutputInstructions = `OUTPUT INSTRUCTIONS:
- reply_to_user: Your natural, flowing message to the user
- status: Must be "IN_PROGRESS" (the user hasn't started this step yet)
- reasoning: Brief explanation of the transition (e.g., "Introduced step after completing previous")
- result_value: Leave empty (null)`

	contextAdvance = `TRANSITION: Step completed, advancing to next step.
Completed step goal: %s
Why it's complete: %s`

	contextPush = `TRANSITION: Branching to helper sub-workflow.
Parent step: %s
Sub-workflow: %s
Rationale: %s`

	contextPop = `TRANSITION: Sub-workflow completed, returning to main task.
Completed: %s
Summary: %s`
)

// BuildStepIntroductionPrompt assembles the system prompt for the unified
// message generated after an ADVANCE, PUSH, or POP transition.
func BuildStepIntroductionPrompt(from, to *workflow.Step, meta TransitionMeta) string {
	var b strings.Builder
	b.WriteString(transitionPreamble)
	b.WriteString("\n\n")
	b.WriteString(buildTransitionContext(from, meta))
	b.WriteString("\n\n")
	b.WriteString("STEP TO INTRODUCE:\n")
	fmt.Fprintf(&b, "Goal: %s\n", to.Goal)
	if to.BackgroundContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", to.BackgroundContext)
	}
	if to.Warning != "" {
		fmt.Fprintf(&b, "SAFETY WARNING: %s\n", to.Warning)
		b.WriteString("You MUST include this warning prominently in your message.\n")
	}
	b.WriteString("\n")
	b.WriteString(transitionOutputInstructions)
	return b.String()
}

func buildTransitionContext(from *workflow.Step, meta TransitionMeta) string {
	switch meta.Type {
	case TransitionPush:
		title, rationale := "sub-workflow", ""
		if meta.Link != nil {
			title = meta.Link.Title
			rationale = meta.Link.Rationale
		}
		return fmt.Sprintf(contextPush, from.Goal, title, rationale)
	case TransitionPop:
		if meta.ChildResult == nil {
			return fmt.Sprintf(contextPop, "sub-workflow", "")
		}
		return fmt.Sprintf(contextPop, meta.ChildResult.SourceWorkflowID, meta.ChildResult.Summary)
	default:
		return fmt.Sprintf(contextAdvance, from.Goal, meta.Reasoning)
	}
}
