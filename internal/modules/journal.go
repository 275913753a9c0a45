package modules

import (
	"context"
	"fmt"
	"time"

	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	storage "github.com/inference-gateway/modui/internal/storage"
	zap "go.uber.org/zap"
)

const journalWriteTimeout = 5 * time.Second

// Journal appends every event to an EventStorage. A failed write fails the
// event and therefore halts dispatch for the run.
type Journal[T any] struct {
	store  storage.EventStorage
	runID  string
	ctx    context.Context
	logger *zap.Logger
}

// OpenJournal opens the storage backend described by cfg
func OpenJournal[T any](ctx context.Context, cfg config.JournalConfig, env Env) (*Journal[T], error) {
	store, err := storage.NewStorage(ctx, storage.StorageConfig{
		Type:           cfg.Driver,
		DSN:            cfg.DSN,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	env.logger().Info("journal opened", zap.String("driver", cfg.Driver), zap.String("run_id", env.RunID))
	return NewJournal[T](ctx, store, env), nil
}

// NewJournal wraps an open storage
func NewJournal[T any](ctx context.Context, store storage.EventStorage, env Env) *Journal[T] {
	return &Journal[T]{
		store:  store,
		runID:  env.RunID,
		ctx:    ctx,
		logger: env.logger(),
	}
}

// Name returns "journal"
func (j *Journal[T]) Name() string {
	return "journal"
}

// HandleEvent persists ev
func (j *Journal[T]) HandleEvent(ev *eventloop.Event[T], _ eventloop.Target) eventloop.Outcome[error] {
	rec, err := NewRecord(j.runID, ev)
	if err != nil {
		return eventloop.Fail(fmt.Errorf("journal: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), journalWriteTimeout)
	defer cancel()
	if err := j.store.Append(ctx, rec); err != nil {
		return eventloop.Fail(fmt.Errorf("journal: %w", err))
	}
	return eventloop.Continue[error]()
}

// Store returns the underlying storage
func (j *Journal[T]) Store() storage.EventStorage {
	return j.store
}

// Close closes the storage
func (j *Journal[T]) Close() error {
	return j.store.Close()
}
