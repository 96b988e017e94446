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
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/chat"
	"github.com/handrail-labs/handrail/pkg/engine"
	"github.com/handrail-labs/handrail/pkg/session"
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sessionView struct {
	SessionID      string            `json:"session_id"`
	Status         chat.TurnStatus   `json:"status"`
	ActiveWorkflow string            `json:"active_workflow,omitempty"`
	ActiveStepID   string            `json:"active_step_id,omitempty"`
	StackDepth     int               `json:"stack_depth"`
	Escalated      bool              `json:"escalated,omitempty"`
	History        []session.Message `json:"history"`
}

type postMessageRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.chat.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: state.SessionID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := s.chat.GetSession(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	view := sessionView{
		SessionID:  state.SessionID,
		Status:     chat.StatusInProgress,
		StackDepth: len(state.Stack),
		Escalated:  state.Escalated,
		History:    state.History,
	}
	if view.History == nil {
		view.History = []session.Message{}
	}
	if frame := state.ActiveFrame(); frame != nil {
		view.ActiveWorkflow = frame.WorkflowName
		view.ActiveStepID = frame.CurrentStepID
	} else if len(state.History) > 0 {
		view.Status = chat.StatusCompleted
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.chat.DeleteSession(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete session", zap.String("session_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.chat.ProcessMessage(r.Context(), id, req.Text)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, chat.ErrNoMatchingWorkflow):
		// Router miss on cold start: the friendly reply rides along with a
		// 422 so API clients can distinguish it from a normal turn.
		s.writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	case engine.IsMalformedWorkflow(err):
		s.logger.Error("malformed workflow", zap.String("session_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "workflow definition is broken")
		return
	case err != nil:
		s.logger.Error("failed to process message", zap.String("session_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
