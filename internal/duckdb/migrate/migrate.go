// Package migrate applies the event store's embedded schema migrations.
// Files are named NNN_description.sql and run in version order, each in its
// own transaction, exactly once per database.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       VARCHAR NOT NULL,
	applied_at TIMESTAMP DEFAULT current_timestamp
)`

// Runner applies pending migrations to one database.
type Runner struct {
	db  *sql.DB
	src fs.FS
}

// NewRunner creates a migration runner for the given database connection.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, src: embedded}
}

type step struct {
	version int
	name    string
	body    string
}

// steps returns every embedded migration sorted by version. Duplicate
// versions are an error.
func (r *Runner) steps() ([]step, error) {
	names, err := fs.Glob(r.src, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("migrate: list migrations: %w", err)
	}

	out := make([]step, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, p := range names {
		name := path.Base(p)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migrate: bad version in %s: %w", name, err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrate: version %d used by %s and %s", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(r.src, p)
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", name, err)
		}
		out = append(out, step{version: version, name: name, body: string(body)})
	}

	slices.SortFunc(out, func(a, b step) int { return a.version - b.version })
	return out, nil
}

// applied returns the set of recorded versions, creating the ledger table
// on first use.
func (r *Runner) applied() (map[int]bool, error) {
	if _, err := r.db.Exec(ledgerDDL); err != nil {
		return nil, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}
	rows, err := r.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: read schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("migrate: scan version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (r *Runner) pending() ([]step, map[int]bool, error) {
	done, err := r.applied()
	if err != nil {
		return nil, nil, err
	}
	all, err := r.steps()
	if err != nil {
		return nil, nil, err
	}
	todo := all[:0:0]
	for _, s := range all {
		if !done[s.version] {
			todo = append(todo, s)
		}
	}
	return todo, done, nil
}

// Run applies every pending migration in version order.
func (r *Runner) Run() error {
	todo, _, err := r.pending()
	if err != nil {
		return err
	}
	for _, s := range todo {
		if err := r.apply(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) apply(s step) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", s.name, err)
	}
	defer tx.Rollback()

	log.Printf("duckdb: applying migration %s", s.name)
	if _, err := tx.Exec(s.body); err != nil {
		return fmt.Errorf("migrate: apply %s: %w", s.name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", s.version, s.name); err != nil {
		return fmt.Errorf("migrate: record %s: %w", s.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", s.name, err)
	}
	return nil
}

// Status reports the highest applied version and how many migrations
// are still pending.
func (r *Runner) Status() (current int, pending int, err error) {
	todo, done, err := r.pending()
	if err != nil {
		return 0, 0, err
	}
	for v := range done {
		current = max(current, v)
	}
	return current, len(todo), nil
}
