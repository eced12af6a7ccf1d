// Package migrations owns the events database schema. Changes ship as
// embedded SQL pairs (sql/NNNN_name.up.sql / .down.sql) tracked in the
// festql_schema_migrations table; the API binary applies pending migrations
// on boot and festql-migrate drives them by hand.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "festql_schema_migrations"

var migrationNamePattern = regexp.MustCompile(`^([0-9]+)_(.+)\.(up|down)\.sql$`)

// Runner applies and rolls back schema migrations, one transaction per
// step. NewRunner wires the embedded migration files.
type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// Up applies pending migrations in version order. steps caps how many run;
// 0 applies everything. Returns the number applied.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	all, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	done, err := appliedVersions(ctx, db, false)
	if err != nil {
		return 0, err
	}

	doneSet := make(map[int64]struct{}, len(done))
	for _, version := range done {
		doneSet[version] = struct{}{}
	}

	count := 0
	for _, m := range all {
		if _, ok := doneSet[m.Version]; ok {
			continue
		}
		if steps > 0 && count >= steps {
			break
		}
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO `+migrationTable+` (version) VALUES ($1)`, m.Version); err != nil {
				return fmt.Errorf("mark migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down rolls back the most recently applied migrations. steps defaults
// to 1.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	all, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	done, err := appliedVersions(ctx, db, true)
	if err != nil {
		return 0, err
	}

	byVersion := make(map[int64]migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}

	count := 0
	for _, version := range done {
		if count >= steps {
			break
		}
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("applied migration %d is missing from source", version)
		}
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Down); err != nil {
				return fmt.Errorf("rollback migration %d (%s): %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+migrationTable+` WHERE version = $1`, m.Version); err != nil {
				return fmt.Errorf("unmark migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB, latestFirst bool) ([]int64, error) {
	order := "ASC"
	if latestFirst {
		order = "DESC"
	}
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version `+order)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

// loadMigrations reads everything under sql/, pairing up and down scripts
// by version. Files that do not match the NNNN_name.(up|down).sql pattern
// are ignored; a version with only half its pair is an error.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}

	byVersion := map[int64]migration{}
	for _, name := range names {
		matches := migrationNamePattern.FindStringSubmatch(path.Base(name))
		if matches == nil {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", name, err)
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}

		m := byVersion[version]
		m.Version = version
		m.Name = matches[2]
		if matches[3] == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
		byVersion[version] = m
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.Up) == "" {
			return nil, fmt.Errorf("migration %d (%s) missing up SQL", m.Version, m.Name)
		}
		if strings.TrimSpace(m.Down) == "" {
			return nil, fmt.Errorf("migration %d (%s) missing down SQL", m.Version, m.Name)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
