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

// Package session holds the per-user runtime state: a call stack of workflow
// frames, the conversation history, and collected slots. State is plain data
// with JSON round-trip guarantees so stores can persist it as a single blob.
package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResultStatus is the outcome classification of a completed sub-workflow.
type ResultStatus string

const (
	// ResultSuccess means the sub-workflow ran to a terminal step.
	ResultSuccess ResultStatus = "SUCCESS"

	// ResultAborted is reserved for explicit-abandonment flows. Parents must
	// tolerate it even though the engine does not currently produce it.
	ResultAborted ResultStatus = "ABORTED"
)

// WorkflowResult is the output of a completed sub-workflow, delivered to the
// parent frame's mailbox on POP.
type WorkflowResult struct {
	SourceWorkflowID string         `json:"source_workflow_id"`
	Status           ResultStatus   `json:"status"`
	Summary          string         `json:"summary"`
	SlotsCollected   map[string]any `json:"slots_collected,omitempty"`
}

// Frame is a single call-stack entry: one activation of a workflow with a
// pointer to its current step. PendingChildResult is the mailbox where a
// popped child's result waits for the parent's next turn.
type Frame struct {
	WorkflowName       string          `json:"workflow_name"`
	CurrentStepID      string          `json:"current_step_id"`
	PendingChildResult *WorkflowResult `json:"pending_child_result,omitempty"`
}

// State is the complete runtime state of one user session. The top of the
// stack is the active frame; an empty stack means the session is terminal
// until a new workflow is selected.
type State struct {
	SessionID string         `json:"session_id"`
	Stack     []*Frame       `json:"stack"`
	Slots     map[string]any `json:"slots,omitempty"`
	History   []Message      `json:"history"`
	Escalated bool           `json:"escalated,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New returns an empty session with the given id.
func New(id string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID: id,
		Slots:     make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActiveFrame returns the top of the stack, or nil when the stack is empty.
func (s *State) ActiveFrame() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	return s.Stack[len(s.Stack)-1]
}

// Push appends a frame, making it the active frame.
func (s *State) Push(f *Frame) {
	s.Stack = append(s.Stack, f)
}

// Pop removes and returns the active frame, or nil when the stack is empty.
func (s *State) Pop() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top
}

// Terminal reports whether the session has no active workflow.
func (s *State) Terminal() bool {
	return len(s.Stack) == 0
}

// AppendMessage adds a message to the history.
func (s *State) AppendMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// SetSlot records a collected value under the given slot name.
func (s *State) SetSlot(name string, value any) {
	if s.Slots == nil {
		s.Slots = make(map[string]any)
	}
	s.Slots[name] = value
}

// Clone returns a deep copy of the state. The engine mutates a clone during
// a turn so a failed turn leaves the caller's session untouched.
func (s *State) Clone() *State {
	cp := &State{
		SessionID: s.SessionID,
		Escalated: s.Escalated,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Stack != nil {
		cp.Stack = make([]*Frame, len(s.Stack))
		for i, f := range s.Stack {
			ff := *f
			if f.PendingChildResult != nil {
				r := *f.PendingChildResult
				r.SlotsCollected = cloneMap(f.PendingChildResult.SlotsCollected)
				ff.PendingChildResult = &r
			}
			cp.Stack[i] = &ff
		}
	}
	if s.Slots != nil {
		cp.Slots = cloneMap(s.Slots)
	}
	if s.History != nil {
		cp.History = make([]Message, len(s.History))
		copy(cp.History, s.History)
	}
	return cp
}

// Marshal serializes the state to JSON.
func (s *State) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	return data, nil
}

// Unmarshal rehydrates a state from its JSON serialization.
func Unmarshal(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &s, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
