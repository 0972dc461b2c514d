package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"
)

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL
)`

// Migration is one NNNN_name.up.sql file.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Migrator applies migrations that are not yet recorded in
// schema_migrations. Each file runs in its own transaction together with
// its version row.
type Migrator struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

func NewMigrator(db *sql.DB, driver string, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{db: db, driver: driver, log: log}
}

// ApplyDir applies the migrations found in a directory on disk.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) (int, error) {
	return m.ApplyFS(ctx, os.DirFS(dir), ".")
}

// ApplyFS applies the pending migrations under root and returns how many ran.
func (m *Migrator) ApplyFS(ctx context.Context, fsys fs.FS, root string) (int, error) {
	all, err := LoadMigrations(fsys, root)
	if err != nil {
		return 0, err
	}

	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range all {
		if applied[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return ran, err
		}
		m.log.Info("migration applied", slog.String("version", mig.Version), slog.String("name", mig.Name))
		ran++
	}
	return ran, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", mig.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if strings.TrimSpace(mig.SQL) != "" {
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			return fmt.Errorf("run migration %s: %w", mig.Name, err)
		}
	}

	insert := "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"
	if m.driver == DriverPostgres {
		insert = "INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)"
	}
	if _, err := tx.ExecContext(ctx, insert, mig.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record migration %s: %w", mig.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", mig.Name, err)
	}
	return nil
}

// LoadMigrations reads the *.up.sql files under root ordered by version.
// The version is the file name up to the first underscore.
func LoadMigrations(fsys fs.FS, root string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("list migrations in %q: %w", root, err)
	}

	var out []Migration
	seen := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		version, _, ok := strings.Cut(name, "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("migration %q has no version prefix", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %q and %q share version %s", prev, name, version)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}
