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

// Package storage composes the session and workflow stores behind a single
// backend interface with a driver factory. One Backend per server process.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/storage/memory"
	"github.com/handrail-labs/handrail/pkg/storage/postgres"
	"github.com/handrail-labs/handrail/pkg/storage/sqlite"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// Backend is the composed interface for all persistence. Implementations
// include the memory, sqlite, and postgres backends.
type Backend interface {
	// Sessions returns the session store.
	Sessions() session.Store

	// Workflows returns the workflow definition store.
	Workflows() workflow.Store

	// Migrate brings the schema to the latest version.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases all underlying connections.
	Close() error
}

// Config selects and configures a storage driver.
type Config struct {
	// Driver is "memory", "sqlite", or "postgres". Defaults to sqlite.
	Driver string `mapstructure:"driver"`

	// Path is the database file path for the sqlite driver. Empty means
	// the default under the data directory.
	Path string `mapstructure:"path"`

	// DSN is the connection string for the postgres driver.
	DSN string `mapstructure:"dsn"`

	// Encrypt enables at-rest encryption for the sqlite driver. Requires a
	// cgo build; plain builds fail fast rather than silently writing
	// cleartext.
	Encrypt bool `mapstructure:"encrypt"`

	// EncryptionKey is the sqlite encryption key when Encrypt is set.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// New creates a Backend from config.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "memory":
		return memory.NewBackend(), nil

	case "sqlite", "":
		return sqlite.NewBackend(sqlite.Config{
			Path:          cfg.Path,
			Encrypt:       cfg.Encrypt,
			EncryptionKey: cfg.EncryptionKey,
		}, logger)

	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		return postgres.NewBackend(ctx, postgres.Config{DSN: cfg.DSN}, logger)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q (want memory, sqlite, or postgres)", cfg.Driver)
	}
}
