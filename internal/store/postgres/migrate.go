package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "fairway_schema_migrations"

// Migrate applies every embedded migration that is not yet recorded, one transaction per file.
// Only the goose Up section of each file is executed.
func Migrate(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return errors.New("db is required")
	}

	if _, err := db.NewRaw(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
	filename text PRIMARY KEY,
	applied_at timestamptz NOT NULL DEFAULT now()
)`).Exec(ctx); err != nil {
		return fmt.Errorf("ensure migration table %s: %w", migrationsTable, err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list embedded migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := isApplied(ctx, db, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		b, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}

		err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range splitSQLStatements(upSQL) {
				if normalized, ok := normalizeExtensionStatement(stmt); ok {
					stmt = normalized
				}
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return err
				}
			}
			_, err := tx.NewRaw(`INSERT INTO `+migrationsTable+` (filename) VALUES (?)`, name).Exec(ctx)
			return err
		})
		if err != nil {
			if !isIgnorableMigrationError(err) {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			if err := markApplied(ctx, db, name); err != nil {
				return fmt.Errorf("record migration %s after ignored error: %w", name, err)
			}
		}
	}
	return nil
}

func isApplied(ctx context.Context, db bun.IDB, name string) (bool, error) {
	var exists bool
	err := db.NewRaw(`SELECT EXISTS (SELECT 1 FROM `+migrationsTable+` WHERE filename = ?)`, name).Scan(ctx, &exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return exists, nil
}

func markApplied(ctx context.Context, db bun.IDB, name string) error {
	_, err := db.NewRaw(`INSERT INTO `+migrationsTable+` (filename) VALUES (?) ON CONFLICT (filename) DO NOTHING`, name).Exec(ctx)
	return err
}

func isIgnorableMigrationError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case "42P07", // duplicate_table
		"42710", // duplicate_object
		"42P06", // duplicate_schema
		"42701": // duplicate_column
		return true
	default:
		return false
	}
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

// btree_gist always lands in public so per-schema test runs can share it.
func normalizeExtensionStatement(stmt string) (string, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "CREATE EXTENSION") {
		return "", false
	}
	if !strings.Contains(upper, "BTREE_GIST") {
		return "", false
	}
	if strings.Contains(upper, " SCHEMA ") {
		return "", false
	}
	return s + " SCHEMA public", true
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
