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
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/handrail-labs/handrail/pkg/session"
)

// SessionStore persists sessions as JSON blobs in the sessions table.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store over the shared database.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new empty session with a random id.
func (s *SessionStore) Create(ctx context.Context) (*session.State, error) {
	state := session.New(uuid.NewString())
	data, err := state.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (session_id, state, created_at, updated_at) VALUES (?, ?, ?, ?)",
		state.SessionID, string(data), state.CreatedAt.Unix(), state.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return state, nil
}

// Get loads a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM sessions WHERE session_id = ?", id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	state, err := session.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return state, nil
}

// Save replaces the stored session state.
func (s *SessionStore) Save(ctx context.Context, state *session.State) error {
	data, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET state = ?, updated_at = ? WHERE session_id = ?",
		string(data), state.UpdatedAt.Unix(), state.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected > 0, nil
}

// DeleteIdle removes sessions last updated before the cutoff.
func (s *SessionStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE updated_at < ?", cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return int(affected), nil
}

// Compile-time interface check
var _ session.Store = (*SessionStore)(nil)
