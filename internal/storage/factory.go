package storage

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

const defaultConnectTimeout = 10 * time.Second

// NewStorage creates a new storage instance based on the provided configuration
func NewStorage(ctx context.Context, config StorageConfig) (EventStorage, error) {
	var (
		store EventStorage
		err   error
	)
	switch config.Type {
	case "sqlite":
		store, err = NewSQLiteStorage(ctx, config.DSN)
	case "postgres":
		store, err = NewPostgresStorage(ctx, config.DSN, connectTimeout(config))
	case "redis":
		store, err = NewRedisStorage(ctx, config.DSN, connectTimeout(config))
	case "memory":
		store = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func connectTimeout(config StorageConfig) time.Duration {
	if config.ConnectTimeout > 0 {
		return config.ConnectTimeout
	}
	return defaultConnectTimeout
}

// retryConnect calls ping with exponential backoff until it succeeds, ctx is
// done or maxElapsed has passed
func retryConnect(ctx context.Context, maxElapsed time.Duration, ping func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		return ping(ctx)
	}, backoff.WithContext(bo, ctx))
}
