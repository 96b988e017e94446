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

// Package sqlite provides the SQLite storage backend. It is the default
// driver: a single database file under the data directory, WAL mode, with
// optional at-rest encryption on cgo builds.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/internal/sqlitedriver"
	"github.com/handrail-labs/handrail/pkg/config"
	"github.com/handrail-labs/handrail/pkg/session"
	"github.com/handrail-labs/handrail/pkg/workflow"
)

// DefaultDBFile is the database filename under the data directory.
const DefaultDBFile = "handrail.db"

// Config holds SQLite backend configuration.
type Config struct {
	// Path to the database file. Empty means $HANDRAIL_DATA_DIR/handrail.db.
	Path string

	// Encrypt enables SQLCipher at-rest encryption. Only available on cgo
	// builds; plain builds return an error instead of writing cleartext.
	Encrypt bool

	// EncryptionKey is required when Encrypt is set.
	EncryptionKey string
}

// Backend implements storage over a single SQLite file. Both stores share
// one *sql.DB; WAL mode keeps readers and the writer from blocking each
// other.
type Backend struct {
	db        *sql.DB
	path      string
	sessions  *SessionStore
	workflows *WorkflowStore
	migrator  *Migrator
	logger    *zap.Logger
}

// NewBackend opens (creating if needed) the database file and prepares both
// stores. Migrations are not run here; call Migrate.
func NewBackend(cfg Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := cfg.Path
	if path == "" {
		path = filepath.Join(config.GetDataDir(), DefaultDBFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if cfg.Encrypt && !sqlitedriver.EncryptionSupported {
		return nil, fmt.Errorf("database encryption requires a cgo build")
	}

	dsn := path
	if cfg.Encrypt {
		dsn = fmt.Sprintf("%s?_pragma_key=%s&_pragma_cipher_page_size=4096",
			path, url.QueryEscape(cfg.EncryptionKey))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL for concurrent reads during writes; busy_timeout so contending
	// connections wait instead of failing immediately.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	migrator, err := NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Backend{
		db:        db,
		path:      path,
		sessions:  NewSessionStore(db),
		workflows: NewWorkflowStore(db),
		migrator:  migrator,
		logger:    logger,
	}, nil
}

// Sessions returns the SQLite session store.
func (b *Backend) Sessions() session.Store { return b.sessions }

// Workflows returns the SQLite workflow store.
func (b *Backend) Workflows() workflow.Store { return b.workflows }

// Migrate applies pending schema migrations.
func (b *Backend) Migrate(ctx context.Context) error {
	return b.migrator.MigrateUp(ctx)
}

// Ping verifies the database file is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }
