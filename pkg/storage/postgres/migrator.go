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
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is a single schema migration step.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
}

// migrationAdvisoryLockID prevents concurrent migration runs across server
// replicas sharing the same database.
const migrationAdvisoryLockID = 718304261

// Migrator manages PostgreSQL schema migrations from embedded SQL files.
type Migrator struct {
	db         *sql.DB
	logger     *zap.Logger
	migrations []Migration
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	migrations, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return &Migrator{db: db, logger: logger, migrations: migrations}, nil
}

// MigrateUp applies all pending migrations under an advisory lock.
func (m *Migrator) MigrateUp(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationAdvisoryLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		// Best-effort; released on disconnect anyway.
		_, _ = m.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", migrationAdvisoryLockID)
	}()

	if err := m.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}
		if err := m.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		applied++
	}
	if applied > 0 {
		m.logger.Info("applied schema migrations",
			zap.Int("count", applied),
			zap.Int("from_version", current))
	}
	return nil
}

// CurrentVersion returns the highest applied migration version.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	return version, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			description TEXT
		)
	`)
	return err
}

func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING",
		migration.Version, migration.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration version: %w", err)
	}
	return tx.Commit()
}

// loadMigrations reads embedded SQL files and pairs up/down variants.
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	upFiles := make(map[int]string)
	downFiles := make(map[int]string)
	descriptions := make(map[int]string)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		content, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		if desc, ok := strings.CutSuffix(parts[1], ".up.sql"); ok {
			descriptions[version] = desc
			upFiles[version] = string(content)
		} else if strings.HasSuffix(parts[1], ".down.sql") {
			downFiles[version] = string(content)
		}
	}

	var versions []int
	for v := range upFiles {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	migrations := make([]Migration, 0, len(versions))
	for _, v := range versions {
		migrations = append(migrations, Migration{
			Version:     v,
			Description: descriptions[v],
			UpSQL:       upFiles[v],
			DownSQL:     downFiles[v],
		})
	}
	return migrations, nil
}
