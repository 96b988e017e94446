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

// Package chat is the per-turn facade over the workflow engine: it owns
// session lifecycle, cold-start routing, per-session serialization, and
// turn atomicity.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/engine"
	"github.com/handrail-labs/handrail/pkg/router"
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// ErrNoMatchingWorkflow is returned when a cold-start turn finds no guide
// for the user's query. The session is left unchanged.
var ErrNoMatchingWorkflow = errors.New("no matching workflow for query")

// NoMatchReply is the friendly fallback shown on a router miss.
const NoMatchReply = "I'm sorry, I couldn't find a troubleshooting guide for that problem. Could you describe the issue differently?"

// TurnStatus is the session-level status reported to callers.
type TurnStatus string

const (
	// StatusInProgress means the session still has active frames.
	StatusInProgress TurnStatus = "IN_PROGRESS"

	// StatusCompleted means the root workflow finished and the stack is empty.
	StatusCompleted TurnStatus = "COMPLETED"
)

// TurnResult is the shaped outcome of one processed message.
type TurnResult struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// Reply is the assistant message.
	Reply string `json:"reply"`

	// Status reports whether the session is still active.
	Status TurnStatus `json:"status"`

	// ActiveWorkflow and ActiveStepID locate the session after the turn.
	// Empty once the session completes.
	ActiveWorkflow string `json:"active_workflow,omitempty"`
	ActiveStepID   string `json:"active_step_id,omitempty"`

	// ActiveWorkflowTitle and TotalSteps describe the active guide for
	// display in clients.
	ActiveWorkflowTitle string `json:"active_workflow_title,omitempty"`
	TotalSteps          int    `json:"total_steps,omitempty"`

	// Media is the active step's visual aid, if any.
	Media *workflow.Media `json:"media,omitempty"`

	// Escalated reports that the user gave up on a step and a human should
	// follow up.
	Escalated bool `json:"escalated,omitempty"`
}

// Service composes the stores, router, and engine into the chat API.
type Service struct {
	sessions  session.Store
	workflows workflow.Store
	router    router.Router
	engine    *engine.Engine
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a chat service.
func NewService(sessions session.Store, workflows workflow.Store, r router.Router, eng *engine.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:  sessions,
		workflows: workflows,
		router:    r,
		engine:    eng,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// CreateSession allocates a new empty session.
func (s *Service) CreateSession(ctx context.Context) (*session.State, error) {
	state, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session created", zap.String("session_id", state.SessionID))
	return state, nil
}

// GetSession loads a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (*session.State, error) {
	return s.sessions.Get(ctx, id)
}

// DeleteSession removes a session. Returns session.ErrNotFound if absent.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	existed, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return session.ErrNotFound
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// ProcessMessage runs one conversational turn. Concurrent turns on the same
// session are serialized. The engine operates on a clone of the loaded
// state; the store sees the new state only after the whole turn succeeds.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := stored.Clone()

	if state.ActiveFrame() == nil {
		if done, result, err := s.coldStart(ctx, state, text); done {
			return result, err
		}
	}

	out, err := s.engine.HandleMessage(ctx, state, text)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return s.shapeResult(state, out), nil
}

// coldStart routes the first message of a session to a workflow and pushes
// the initial frame. Returns done=true when the turn should short-circuit
// (router miss) instead of running the engine.
func (s *Service) coldStart(ctx context.Context, state *session.State, text string) (bool, *TurnResult, error) {
	match, err := s.router.FindBest(ctx, text)
	if errors.Is(err, router.ErrNoMatch) {
		s.logger.Info("no workflow matched cold-start query",
			zap.String("session_id", state.SessionID))
		return true, &TurnResult{
			SessionID: state.SessionID,
			Reply:     NoMatchReply,
			Status:    StatusInProgress,
		}, ErrNoMatchingWorkflow
	}
	if err != nil {
		return true, nil, fmt.Errorf("router failed: %w", err)
	}

	wf, err := s.workflows.Get(ctx, match.WorkflowID)
	if err != nil {
		return true, nil, fmt.Errorf("router selected unknown workflow %q: %w", match.WorkflowID, err)
	}

	state.Push(&session.Frame{
		WorkflowName:  wf.Name,
		CurrentStepID: wf.StartStep,
	})
	s.logger.Info("cold start routed",
		zap.String("session_id", state.SessionID),
		zap.String("workflow", wf.Name),
		zap.Float64("confidence", match.Confidence))
	return false, nil, nil
}

func (s *Service) shapeResult(state *session.State, out *engine.TurnOutput) *TurnResult {
	result := &TurnResult{
		SessionID:           state.SessionID,
		Reply:               out.Reply,
		Status:              StatusInProgress,
		ActiveWorkflow:      out.ActiveWorkflow,
		ActiveWorkflowTitle: out.ActiveWorkflowTitle,
		TotalSteps:          out.ActiveStepTotal,
		Escalated:           state.Escalated,
	}
	if out.Done {
		result.Status = StatusCompleted
	}
	if out.ActiveStep != nil {
		result.ActiveStepID = out.ActiveStep.ID
		result.Media = out.ActiveStep.Media
	}
	return result
}

// sessionLock returns the per-session mutex, creating it on first use.
// Locks are never removed; sessions are bounded by the TTL janitor and a
// bare mutex is small.
func (s *Service) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
