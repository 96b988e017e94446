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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handrail-labs/handrail/pkg/llm"
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

func TestIntroduceStep_ForcesInProgress(t *testing.T) {
	provider := &stubProvider{}
	// A confused model claims the new step is already complete.
	provider.queue(decisionJSON(t, "On to the breaker panel!", StatusComplete, "tripped"))
	n := NewNarrator(provider, nil)

	from := &workflow.Step{ID: "a", Goal: "Check the thermostat."}
	to := &workflow.Step{ID: "b", Goal: "Check the breaker."}

	d := n.IntroduceStep(context.Background(), from, to, TransitionMeta{Type: TransitionAdvance}, nil, "")

	assert.Equal(t, "On to the breaker panel!", d.ReplyToUser)
	assert.Equal(t, StatusInProgress, d.Status)
	assert.Empty(t, d.ResultValue)
	assert.InDelta(t, 0.4, provider.requests[0].Temperature, 0.001)
}

func TestIntroduceStep_CarriesConversationContext(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Great, next up is the breaker panel.", StatusInProgress, ""))
	n := NewNarrator(provider, nil)

	from := &workflow.Step{ID: "a", Goal: "Check the thermostat."}
	to := &workflow.Step{ID: "b", Goal: "Check the breaker."}
	history := []session.Message{
		{Role: session.RoleUser, Content: "my water is lukewarm"},
		{Role: session.RoleAssistant, Content: "Let's check the thermostat dial first."},
	}

	n.IntroduceStep(context.Background(), from, to, TransitionMeta{Type: TransitionAdvance}, history, "it was set too low, fixed it")

	// System prompt, both history messages, then the triggering user message.
	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "my water is lukewarm", msgs[1].Content)
	assert.Equal(t, "Let's check the thermostat dial first.", msgs[2].Content)
	assert.Equal(t, llm.RoleUser, msgs[3].Role)
	assert.Equal(t, "it was set too low, fixed it", msgs[3].Content)
}

func TestIntroduceStep_EmptyUserMessageOmitted(t *testing.T) {
	provider := &stubProvider{}
	provider.queue(decisionJSON(t, "Moving on.", StatusInProgress, ""))
	n := NewNarrator(provider, nil)

	history := []session.Message{
		{Role: session.RoleUser, Content: "ok"},
	}
	n.IntroduceStep(context.Background(), &workflow.Step{ID: "a"}, &workflow.Step{ID: "b", Goal: "Next."}, TransitionMeta{Type: TransitionAdvance}, history, "")

	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
}

func TestIntroduceStep_FallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	n := NewNarrator(provider, nil)

	to := &workflow.Step{
		ID:      "b",
		Goal:    "Turn off power to the heater.",
		Warning: "Never drain with power on.",
	}

	d := n.IntroduceStep(context.Background(), &workflow.Step{ID: "a"}, to, TransitionMeta{Type: TransitionPush}, nil, "drain it")

	require.NotNil(t, d)
	assert.Equal(t, StatusInProgress, d.Status)
	assert.Contains(t, d.ReplyToUser, "Let's proceed. Turn off power to the heater.")
	assert.Contains(t, d.ReplyToUser, "IMPORTANT: Never drain with power on.")
}
