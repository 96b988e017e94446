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

// Executor runs one conversational turn against the current step. It never
// returns an error to the engine: any provider or parse failure degrades to
// a safe holding decision so the session is never corrupted by a bad turn.
type Executor struct {
	provider     llm.Provider
	logger       *zap.Logger
	historyLimit int
	temperature  float64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithHistoryTokenBudget overrides the history token budget.
func WithHistoryTokenBudget(budget int) ExecutorOption {
	return func(e *Executor) { e.historyLimit = budget }
}

// NewExecutor creates a step executor backed by the given provider.
func NewExecutor(provider llm.Provider, opts ...ExecutorOption) *Executor {
	e := &Executor{
		provider:     provider,
		logger:       zap.NewNop(),
		historyLimit: DefaultHistoryTokenBudget,
		temperature:  0.2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn executes one turn: assemble the step-execution prompt, call the
// provider, and parse the structured decision. userMessage may be empty on
// system-initiated turns.
func (e *Executor) RunTurn(ctx context.Context, step *workflow.Step, frame *session.Frame, history []session.Message, userMessage string) *Decision {
	systemPrompt := BuildStepExecutionPrompt(step, frame)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range trimHistory(history, e.historyLimit) {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	if userMessage != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	}

	raw, err := e.provider.GenerateStructured(ctx, llm.StructuredRequest{
		Messages:    messages,
		SchemaName:  DecisionSchemaName,
		Schema:      DecisionSchema,
		Temperature: e.temperature,
	})
	if err != nil {
		e.logger.Warn("step executor provider call failed",
			zap.String("step_id", step.ID),
			zap.Error(err))
		return fallbackDecision(err)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		e.logger.Warn("step executor returned invalid decision",
			zap.String("step_id", step.ID),
			zap.Error(err))
		return fallbackDecision(err)
	}
	return decision
}

// fallbackDecision holds the session in place after a failed turn. The user
// sees a retry message and the state machine does not move.
func fallbackDecision(err error) *Decision {
	return &Decision{
		ReplyToUser: "System error, please try again.",
		Status:      StatusInProgress,
		Reasoning:   "Error: " + err.Error(),
	}
}
