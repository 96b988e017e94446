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

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/llm"
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Narrator generates the single unified message shown after a transition:
// it acknowledges what just happened and introduces the newly active step.
type Narrator struct {
	provider     llm.Provider
	logger       *zap.Logger
	historyLimit int
	temperature  float64
}

// NewNarrator creates a transition narrator.
func NewNarrator(provider llm.Provider, logger *zap.Logger) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{
		provider:     provider,
		logger:       logger,
		historyLimit: DefaultHistoryTokenBudget,
		temperature:  0.4,
	}
}

// IntroduceStep produces the introduction decision for the step the session
// just arrived at. The conversation so far and the message that triggered
// the transition are passed through so the introduction matches the dialogue
// tone. The returned decision always has status IN_PROGRESS and no result
// value, regardless of what the model generated: the new step has not been
// worked on yet.
func (n *Narrator) IntroduceStep(ctx context.Context, from, to *workflow.Step, meta TransitionMeta, history []session.Message, userMessage string) *Decision {
	systemPrompt := BuildStepIntroductionPrompt(from, to, meta)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range trimHistory(history, n.historyLimit) {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	if userMessage != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	}

	raw, err := n.provider.GenerateStructured(ctx, llm.StructuredRequest{
		Messages:    messages,
		SchemaName:  DecisionSchemaName,
		Schema:      DecisionSchema,
		Temperature: n.temperature,
	})
	if err != nil {
		n.logger.Warn("narrator provider call failed",
			zap.String("transition", meta.Type.String()),
			zap.Error(err))
		return fallbackIntroduction(to)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		n.logger.Warn("narrator returned invalid decision",
			zap.String("transition", meta.Type.String()),
			zap.Error(err))
		return fallbackIntroduction(to)
	}

	decision.Status = StatusInProgress
	decision.ResultValue = ""
	return decision
}

// fallbackIntroduction is the deterministic introduction used when the
// model is unavailable. Crude but functional: the step goal is shown as-is.
func fallbackIntroduction(to *workflow.Step) *Decision {
	reply := "Let's proceed. " + to.Goal
	if to.Warning != "" {
		reply += "\n\nIMPORTANT: " + to.Warning
	}
	return &Decision{
		ReplyToUser: reply,
		Status:      StatusInProgress,
		Reasoning:   "Deterministic fallback introduction.",
	}
}
