package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "modui"

// RedisStorage implements EventStorage using one Redis list per run plus a
// sorted set indexing runs by start time
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to the redis:// URL, retrying for up to
// connectTimeout
func NewRedisStorage(ctx context.Context, url string, connectTimeout time.Duration) (*RedisStorage, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(options)

	err = retryConnect(ctx, connectTimeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageWithClient(client), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", redisKeyPrefix, runID)
}

func (s *RedisStorage) indexKey() string {
	return redisKeyPrefix + ":runs"
}

// Append stores one event record
func (s *RedisStorage) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal event %d: %w", rec.Seq, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.runKey(rec.RunID), data)
		pipe.ZAddNX(ctx, s.indexKey(), &redis.Z{
			Score:  float64(rec.Time.UnixMilli()),
			Member: rec.RunID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append event %d: %w", rec.Seq, err)
	}
	return nil
}

// Events returns the records of a run ordered by sequence number
func (s *RedisStorage) Events(ctx context.Context, runID string) ([]Record, error) {
	items, err := s.client.LRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrRunNotFound
	}

	recs := make([]Record, 0, len(items))
	for i, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Runs returns summaries of the most recent runs, newest first
func (s *RedisStorage) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		sum, err := s.summary(ctx, id)
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, sum)
	}
	return runs, nil
}

func (s *RedisStorage) summary(ctx context.Context, runID string) (RunSummary, error) {
	key := s.runKey(runID)
	count, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to count events: %w", err)
	}
	if count == 0 {
		return RunSummary{}, ErrRunNotFound
	}

	sum := RunSummary{RunID: runID, Events: int(count)}
	for idx, dst := range map[int64]*time.Time{0: &sum.Started, -1: &sum.Ended} {
		item, err := s.client.LIndex(ctx, key, idx).Result()
		if err != nil {
			return RunSummary{}, fmt.Errorf("failed to read event: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return RunSummary{}, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		*dst = rec.Time
	}
	return sum, nil
}

// DeleteRun removes every record of a run
func (s *RedisStorage) DeleteRun(ctx context.Context, runID string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.runKey(runID))
		pipe.ZRem(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if del.Val() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Health checks if Redis is reachable
func (s *RedisStorage) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
