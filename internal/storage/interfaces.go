package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run has no recorded events
var ErrRunNotFound = errors.New("run not found")

// EventStorage persists dispatched events grouped by run
type EventStorage interface {
	// Append stores one event record
	Append(ctx context.Context, rec Record) error

	// Events returns the records of a run ordered by sequence number
	Events(ctx context.Context, runID string) ([]Record, error)

	// Runs returns summaries of the most recent runs, newest first.
	// A limit of zero or less returns every run.
	Runs(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun removes every record of a run
	DeleteRun(ctx context.Context, runID string) error

	// Close closes the storage connection
	Close() error

	// Health checks if the storage is healthy and reachable
	Health(ctx context.Context) error
}

// Record is the persisted form of a dispatched event
type Record struct {
	RunID   string          `json:"run_id"`
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	Key     string          `json:"key,omitempty"`
	Mods    string          `json:"mods,omitempty"`
	X       int             `json:"x,omitempty"`
	Y       int             `json:"y,omitempty"`
	Button  string          `json:"button,omitempty"`
	Width   int             `json:"width,omitempty"`
	Height  int             `json:"height,omitempty"`
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Time    time.Time       `json:"time"`
}

// RunSummary describes the events recorded for one run
type RunSummary struct {
	RunID   string    `json:"run_id"`
	Events  int       `json:"events"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`
}

// StorageConfig contains configuration for storage backends
type StorageConfig struct {
	// Type specifies the storage backend type (sqlite, postgres, redis, memory)
	Type string `json:"type" yaml:"type"`

	// DSN is a file path for sqlite, a connection string for postgres and a
	// redis:// URL for redis
	DSN string `json:"dsn" yaml:"dsn"`

	// ConnectTimeout bounds connection retries for networked backends
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}
