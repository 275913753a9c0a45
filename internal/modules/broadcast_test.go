package modules

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/go-redis/redis/v8"
	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	storage "github.com/inference-gateway/modui/internal/storage"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func TestBroadcastPublishFailureFails(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := NewBroadcastWithClient[string](context.Background(), client, "events", "run-1")
	t.Cleanup(func() { _ = b.Close() })

	assert.Equal(t, "events", b.Channel())

	var target eventloop.ExitFlag
	out := b.HandleEvent(keyEvent(1, "a"), &target)
	require.True(t, out.Failed())

	err, _ := out.Err()
	assert.ErrorContains(t, err, "broadcast publish failed")
}

func TestDialBroadcast(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BroadcastConfig
		wantErr string
	}{
		{
			name:    "missing channel",
			cfg:     config.BroadcastConfig{Addr: "127.0.0.1:1"},
			wantErr: "broadcast channel is required",
		},
		{
			name:    "unreachable server",
			cfg:     config.BroadcastConfig{Addr: "127.0.0.1:1", Channel: "events", MaxElapsed: 200 * time.Millisecond},
			wantErr: "failed to connect to Redis at 127.0.0.1:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DialBroadcast[string](context.Background(), tt.cfg, Env{})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDialBroadcastCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := DialBroadcast[string](ctx, config.BroadcastConfig{Addr: "127.0.0.1:1", Channel: "events", MaxElapsed: time.Minute}, Env{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestBroadcastPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	b, err := DialBroadcast[string](ctx, config.BroadcastConfig{Addr: mr.Addr(), Channel: "modui.events", MaxElapsed: time.Second}, Env{RunID: "run-1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	subscriber := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = subscriber.Close() })
	sub := subscriber.Subscribe(ctx, "modui.events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	var target eventloop.ExitFlag
	out := b.HandleEvent(&eventloop.Event[string]{Seq: 4, Kind: eventloop.KindUser, User: "ping"}, &target)
	require.True(t, out.Continued())

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var rec storage.Record
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &rec))
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, uint64(4), rec.Seq)
	assert.Equal(t, "user", rec.Kind)
	assert.JSONEq(t, `"ping"`, string(rec.Payload))
}
