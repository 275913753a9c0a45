package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	migrations "github.com/inference-gateway/modui/internal/storage/migrations"
	_ "github.com/lib/pq"
)

// PostgresStorage implements EventStorage using PostgreSQL
type PostgresStorage struct {
	*sqlStore
}

// NewPostgresStorage connects to dsn, retrying for up to connectTimeout
// while the server comes up, and applies pending migrations
func NewPostgresStorage(ctx context.Context, dsn string, connectTimeout time.Duration) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	err = retryConnect(ctx, connectTimeout, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	storage := &PostgresStorage{
		sqlStore: &sqlStore{db: db, dialect: migrations.DialectPostgres},
	}
	if err := storage.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}
