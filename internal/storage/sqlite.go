package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	migrations "github.com/inference-gateway/modui/internal/storage/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements EventStorage using SQLite
type SQLiteStorage struct {
	*sqlStore
	path string
}

// NewSQLiteStorage opens (creating if needed) the journal database at path.
// ":memory:" keeps the journal in a single in-memory connection.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	storage := &SQLiteStorage{
		sqlStore: &sqlStore{db: db, dialect: migrations.DialectSQLite},
		path:     path,
	}
	if err := storage.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

// Path returns the database file path
func (s *SQLiteStorage) Path() string {
	return s.path
}
