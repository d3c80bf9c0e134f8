package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema migration.
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		content, readErr := migrationFiles.ReadFile(name)
		if readErr != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, readErr)
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		migrations = append(migrations, Migration{Version: version, SQL: string(content)})
	}
	return migrations, nil
}

// Migrate applies every embedded migration that has not been recorded yet and
// returns the versions it applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS public.exempla_schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return nil, WrapError(err, "create migrations table")
	}

	tm := NewTransactionManager(pool)
	applied := make([]string, 0, len(migrations))
	for _, migration := range migrations {
		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM public.exempla_schema_migrations WHERE version = $1)`,
			migration.Version,
		).Scan(&exists); err != nil {
			return applied, WrapError(err, "check migration "+migration.Version)
		}
		if exists {
			continue
		}

		err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
			qi := GetQueryInterface(txCtx, pool)
			if _, execErr := qi.Exec(txCtx, migration.SQL); execErr != nil {
				return WrapError(execErr, "apply migration "+migration.Version)
			}
			_, execErr := qi.Exec(txCtx,
				`INSERT INTO public.exempla_schema_migrations (version) VALUES ($1)`, migration.Version)
			return WrapError(execErr, "record migration "+migration.Version)
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, migration.Version)
	}
	return applied, nil
}
