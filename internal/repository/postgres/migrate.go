package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// MigrationState reports whether one migration file has been applied.
type MigrationState struct {
	Name      string
	AppliedAt *time.Time
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]time.Time, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT name, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			at   time.Time
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[name] = at
	}
	return applied, rows.Err()
}

// Migrate applies every *.sql file in fsys that is not yet recorded in
// schema_migrations, in lexical order, each in its own transaction. It stops
// at the first failure and returns the names applied so far.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	files, err := migrationFiles(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, name := range files {
		if _, ok := applied[name]; ok {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return done, fmt.Errorf("read %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, name, string(body)); err != nil {
			return done, err
		}
		done = append(done, name)
	}
	return done, nil
}

func applyMigration(ctx context.Context, db *sql.DB, name, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer tx.Rollback()

	if strings.TrimSpace(body) != "" {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// MigrationStatus lists every migration file with its applied time, if any.
func MigrationStatus(ctx context.Context, db *sql.DB, fsys fs.FS) ([]MigrationState, error) {
	files, err := migrationFiles(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationState, 0, len(files))
	for _, name := range files {
		st := MigrationState{Name: name}
		if at, ok := applied[name]; ok {
			at := at
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}
