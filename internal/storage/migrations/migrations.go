// Package migrations applies versioned schema changes to the SQL journal backends.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Dialects understood by the runner
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Migration is one versioned schema change
type Migration struct {
	// Version orders migrations lexically, e.g. "001"
	Version     string
	Description string
	UpSQL       string
}

// Status reports whether a migration has been applied
type Status struct {
	Version     string
	Description string
	Applied     bool
}

// Runner applies migrations and records them in schema_migrations
type Runner struct {
	db      *sql.DB
	dialect string
}

// NewRunner creates a runner for db using the given dialect
func NewRunner(db *sql.DB, dialect string) *Runner {
	return &Runner{db: db, dialect: dialect}
}

// ForDialect returns the journal migrations of a dialect
func ForDialect(dialect string) ([]Migration, error) {
	switch dialect {
	case DialectSQLite:
		return sqliteMigrations(), nil
	case DialectPostgres:
		return postgresMigrations(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	appliedAt := "BIGINT"
	if r.dialect == DialectSQLite {
		appliedAt = "INTEGER"
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(32) PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at %s NOT NULL
		)`, appliedAt))
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[version] = true
	}
	return done, rows.Err()
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
	}

	record := "INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)"
	if r.dialect == DialectPostgres {
		record = "INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)"
	}
	if _, err := tx.ExecContext(ctx, record, m.Version, m.Description, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}

	return tx.Commit()
}

// Apply runs every pending migration in version order and returns how many
// were applied
func (r *Runner) Apply(ctx context.Context, migrations []Migration) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for i, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return i, fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
	}
	return len(pending), nil
}

// Status lists migrations with their applied state, ordered by version
func (r *Runner) Status(ctx context.Context, migrations []Migration) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	status := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		status = append(status, Status{Version: m.Version, Description: m.Description, Applied: done[m.Version]})
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Version < status[j].Version })
	return status, nil
}

func sqliteMigrations() []Migration {
	return []Migration{
		{
			Version:     "001",
			Description: "events table",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					seq INTEGER NOT NULL,
					kind TEXT NOT NULL,
					key_name TEXT NOT NULL DEFAULT '',
					mods TEXT NOT NULL DEFAULT '',
					x INTEGER NOT NULL DEFAULT 0,
					y INTEGER NOT NULL DEFAULT 0,
					button TEXT NOT NULL DEFAULT '',
					width INTEGER NOT NULL DEFAULT 0,
					height INTEGER NOT NULL DEFAULT 0,
					text TEXT NOT NULL DEFAULT '',
					payload TEXT,
					at_ns INTEGER NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_events_run_seq ON events(run_id, seq);
			`,
		},
		{
			Version:     "002",
			Description: "index events by time",
			UpSQL:       `CREATE INDEX IF NOT EXISTS idx_events_at ON events(at_ns DESC);`,
		},
	}
}

func postgresMigrations() []Migration {
	return []Migration{
		{
			Version:     "001",
			Description: "events table",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS events (
					id BIGSERIAL PRIMARY KEY,
					run_id VARCHAR(64) NOT NULL,
					seq BIGINT NOT NULL,
					kind VARCHAR(16) NOT NULL,
					key_name TEXT NOT NULL DEFAULT '',
					mods TEXT NOT NULL DEFAULT '',
					x INTEGER NOT NULL DEFAULT 0,
					y INTEGER NOT NULL DEFAULT 0,
					button TEXT NOT NULL DEFAULT '',
					width INTEGER NOT NULL DEFAULT 0,
					height INTEGER NOT NULL DEFAULT 0,
					text TEXT NOT NULL DEFAULT '',
					payload JSONB,
					at_ns BIGINT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_events_run_seq ON events(run_id, seq);
			`,
		},
		{
			Version:     "002",
			Description: "index events by time",
			UpSQL:       `CREATE INDEX IF NOT EXISTS idx_events_at ON events(at_ns DESC);`,
		},
	}
}
