package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	redis "github.com/go-redis/redis/v8"
	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	zap "go.uber.org/zap"
)

const defaultBroadcastMaxElapsed = 5 * time.Second

// Broadcast publishes every event as JSON on a Redis channel
type Broadcast[T any] struct {
	client  *redis.Client
	channel string
	runID   string
	ctx     context.Context
}

// DialBroadcast connects to Redis, retrying with exponential backoff for up
// to cfg.MaxElapsed
func DialBroadcast[T any](ctx context.Context, cfg config.BroadcastConfig, env Env) (*Broadcast[T], error) {
	if cfg.Channel == "" {
		return nil, fmt.Errorf("broadcast channel is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = defaultBroadcastMaxElapsed
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := client.Ping(ctx).Err()
		if err != nil {
			env.logger().Debug("redis not reachable", zap.String("addr", cfg.Addr), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return NewBroadcastWithClient[T](ctx, client, cfg.Channel, env.RunID), nil
}

// NewBroadcastWithClient publishes through an existing client
func NewBroadcastWithClient[T any](ctx context.Context, client *redis.Client, channel, runID string) *Broadcast[T] {
	return &Broadcast[T]{client: client, channel: channel, runID: runID, ctx: ctx}
}

// Name returns "broadcast"
func (b *Broadcast[T]) Name() string {
	return "broadcast"
}

// Channel returns the Redis channel events are published on
func (b *Broadcast[T]) Channel() string {
	return b.channel
}

// HandleEvent publishes ev. A publish failure fails the event.
func (b *Broadcast[T]) HandleEvent(ev *eventloop.Event[T], _ eventloop.Target) eventloop.Outcome[error] {
	rec, err := NewRecord(b.runID, ev)
	if err != nil {
		return eventloop.Fail(fmt.Errorf("broadcast: %w", err))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return eventloop.Fail(fmt.Errorf("broadcast: %w", err))
	}

	if err := b.client.Publish(context.WithoutCancel(b.ctx), b.channel, data).Err(); err != nil {
		return eventloop.Fail(fmt.Errorf("broadcast publish failed: %w", err))
	}
	return eventloop.Continue[error]()
}

// Close closes the Redis client
func (b *Broadcast[T]) Close() error {
	return b.client.Close()
}
