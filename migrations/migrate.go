// Package migrations applies the embedded schema on startup.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed *.sql
var files embed.FS

const ensureTableQuery = `
CREATE TABLE IF NOT EXISTS schema_migrations_scheduling (
	filename text PRIMARY KEY,
	applied_at timestamptz NOT NULL DEFAULT now()
)`

// Up applies every embedded migration that has not been recorded yet, each in its own transaction.
func Up(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if db == nil {
		return errors.New("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := db.ExecContext(ctx, ensureTableQuery); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return fmt.Errorf("list embedded migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		if err := db.GetContext(ctx, &applied, `SELECT EXISTS (SELECT 1 FROM schema_migrations_scheduling WHERE filename = $1)`, name); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := apply(ctx, db, name, string(body)); err != nil {
			if !isIgnorable(err) {
				return err
			}
			logger.Warn("migration already present, marking applied", zap.String("migration", name), zap.Error(err))
			if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations_scheduling (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`, name); err != nil {
				return fmt.Errorf("record migration %s after ignored error: %w", name, err)
			}
			continue
		}
		logger.Info("migration applied", zap.String("migration", name))
	}

	return nil
}

func apply(ctx context.Context, db *sqlx.DB, name, body string) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations_scheduling (filename) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

func isIgnorable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "42P07", // duplicate_table
		"42710", // duplicate_object
		"42701": // duplicate_column
		return true
	}
	return false
}
