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

// Package memory provides an in-memory storage backend for tests and
// ephemeral single-process deployments. Nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Backend holds both stores in process memory.
type Backend struct {
	sessions  *SessionStore
	workflows *WorkflowStore
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		sessions:  NewSessionStore(),
		workflows: NewWorkflowStore(),
	}
}

// Sessions returns the in-memory session store.
func (b *Backend) Sessions() session.Store { return b.sessions }

// Workflows returns the in-memory workflow store.
func (b *Backend) Workflows() workflow.Store { return b.workflows }

// Migrate is a no-op for the memory backend.
func (b *Backend) Migrate(_ context.Context) error { return nil }

// Ping always succeeds.
func (b *Backend) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// SessionStore keeps sessions in a map. States are cloned on the way in and
// out so callers can't mutate stored state through shared pointers.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.State
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session.State)}
}

// Create allocates a new session with a random id.
func (s *SessionStore) Create(_ context.Context) (*session.State, error) {
	state := session.New(uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = state.Clone()
	return state, nil
}

// Get returns a copy of the session.
func (s *SessionStore) Get(_ context.Context, id string) (*session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return state.Clone(), nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(_ context.Context, state *session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[state.SessionID]; !ok {
		return session.ErrNotFound
	}
	s.sessions[state.SessionID] = state.Clone()
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	delete(s.sessions, id)
	return true, nil
}

// DeleteIdle removes sessions whose UpdatedAt is before the cutoff.
func (s *SessionStore) DeleteIdle(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, state := range s.sessions {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// WorkflowStore keeps workflow definitions in a map. Stored workflows are
// treated as immutable; pointers are shared.
type WorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow
}

// NewWorkflowStore creates an empty workflow store.
func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{workflows: make(map[string]*workflow.Workflow)}
}

// Get retrieves a workflow by name.
func (s *WorkflowStore) Get(_ context.Context, id string) (*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return wf, nil
}

// Exists reports whether a workflow is stored.
func (s *WorkflowStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.workflows[id]
	return ok, nil
}

// List returns all stored workflows.
func (s *WorkflowStore) List(_ context.Context) ([]*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*workflow.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	return out, nil
}

// Put stores or replaces a workflow.
func (s *WorkflowStore) Put(_ context.Context, wf *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.Name] = wf
	return nil
}

// Compile-time checks
var (
	_ session.Store  = (*SessionStore)(nil)
	_ workflow.Store = (*WorkflowStore)(nil)
)
