package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	migrations "github.com/inference-gateway/modui/internal/storage/migrations"
)

const recordColumns = "run_id, seq, kind, key_name, mods, x, y, button, width, height, text, payload, at_ns"

// sqlStore implements EventStorage over database/sql. Queries are written
// with ? placeholders and rebound for postgres.
type sqlStore struct {
	db      *sql.DB
	dialect string
}

func (s *sqlStore) bind(query string) string {
	if s.dialect != migrations.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) migrate(ctx context.Context) error {
	migs, err := migrations.ForDialect(s.dialect)
	if err != nil {
		return err
	}
	if _, err := migrations.NewRunner(s.db, s.dialect).Apply(ctx, migs); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Append stores one event record
func (s *sqlStore) Append(ctx context.Context, rec Record) error {
	var payload sql.NullString
	if len(rec.Payload) > 0 {
		payload = sql.NullString{String: string(rec.Payload), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.bind(`
		INSERT INTO events (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.RunID, int64(rec.Seq), rec.Kind, rec.Key, rec.Mods, rec.X, rec.Y, rec.Button,
		rec.Width, rec.Height, rec.Text, payload, rec.Time.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append event %d: %w", rec.Seq, err)
	}
	return nil
}

// Events returns the records of a run ordered by sequence number
func (s *sqlStore) Events(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
		SELECT `+recordColumns+`
		FROM events WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []Record
	for rows.Next() {
		var (
			rec     Record
			seq     int64
			payload sql.NullString
			atNs    int64
		)
		if err := rows.Scan(&rec.RunID, &seq, &rec.Kind, &rec.Key, &rec.Mods, &rec.X, &rec.Y,
			&rec.Button, &rec.Width, &rec.Height, &rec.Text, &payload, &atNs); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Seq = uint64(seq)
		if payload.Valid {
			rec.Payload = []byte(payload.String)
		}
		rec.Time = time.Unix(0, atNs).UTC()
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrRunNotFound
	}
	return recs, nil
}

// Runs returns summaries of the most recent runs, newest first
func (s *sqlStore) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, COUNT(*), MIN(at_ns), MAX(at_ns)
		FROM events
		GROUP BY run_id
		ORDER BY MIN(at_ns) DESC, run_id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var (
			sum          RunSummary
			count        int64
			first, final int64
		)
		if err := rows.Scan(&sum.RunID, &count, &first, &final); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.Events = int(count)
		sum.Started = time.Unix(0, first).UTC()
		sum.Ended = time.Unix(0, final).UTC()
		runs = append(runs, sum)
	}
	return runs, rows.Err()
}

// DeleteRun removes every record of a run
func (s *sqlStore) DeleteRun(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, s.bind("DELETE FROM events WHERE run_id = ?"), runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health checks if the database is reachable and functional
func (s *sqlStore) Health(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	return nil
}
