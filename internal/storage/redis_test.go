package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/go-redis/redis/v8"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStorageWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = s.Close() }()

	exerciseStorage(t, s)

	assert.True(t, mr.Exists("modui:run:run-a"))
	assert.False(t, mr.Exists("modui:run:run-b"))
}

func TestRedisStorageFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewStorage(ctx, StorageConfig{
		Type:           "redis",
		DSN:            "redis://" + mr.Addr() + "/0",
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.IsType(t, &RedisStorage{}, store)

	rec := Record{RunID: "run-1", Seq: 1, Kind: "key", Key: "q", Time: time.Now().UTC()}
	require.NoError(t, store.Append(ctx, rec))

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 1, runs[0].Events)
}

func TestRedisStorageServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStorageWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer func() { _ = s.Close() }()

	mr.Close()

	err := s.Append(context.Background(), Record{RunID: "run-1", Seq: 1, Kind: "key"})
	assert.ErrorContains(t, err, "failed to append event 1")
	assert.Error(t, s.Health(context.Background()))
}
