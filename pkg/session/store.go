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
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id does not exist in the store.
var ErrNotFound = errors.New("session not found")

// Store persists session state. Save is a full-state replacement; callers
// own turn-level atomicity (the chat service saves only after a turn fully
// succeeds).
type Store interface {
	// Create allocates a new empty session with a fresh id.
	Create(ctx context.Context) (*State, error)

	// Get retrieves a session by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*State, error)

	// Save persists the session. Returns ErrNotFound if the session was
	// never created or has been deleted.
	Save(ctx context.Context, s *State) error

	// Delete removes a session. Reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteIdle removes sessions not updated since the cutoff and returns
	// how many were removed. Used by the janitor.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}
