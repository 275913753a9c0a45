package modules

import (
	"context"

	eventloop "github.com/inference-gateway/modui/eventloop"
	storage "github.com/inference-gateway/modui/internal/storage"
	mock "github.com/stretchr/testify/mock"
)

// FakeStorage is a mock implementation of storage.EventStorage
type FakeStorage struct {
	mock.Mock
}

func (f *FakeStorage) Append(ctx context.Context, rec storage.Record) error {
	args := f.Called(ctx, rec)
	return args.Error(0)
}

func (f *FakeStorage) Events(ctx context.Context, runID string) ([]storage.Record, error) {
	args := f.Called(ctx, runID)
	recs, _ := args.Get(0).([]storage.Record)
	return recs, args.Error(1)
}

func (f *FakeStorage) Runs(ctx context.Context, limit int) ([]storage.RunSummary, error) {
	args := f.Called(ctx, limit)
	runs, _ := args.Get(0).([]storage.RunSummary)
	return runs, args.Error(1)
}

func (f *FakeStorage) DeleteRun(ctx context.Context, runID string) error {
	return f.Called(ctx, runID).Error(0)
}

func (f *FakeStorage) Close() error {
	return f.Called().Error(0)
}

func (f *FakeStorage) Health(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

// FakeModule is a mock implementation of Module
type FakeModule struct {
	mock.Mock
	name string
	view string
}

func (f *FakeModule) Name() string {
	return f.name
}

func (f *FakeModule) HandleEvent(ev *eventloop.Event[string], target eventloop.Target) eventloop.Outcome[error] {
	args := f.Called(ev, target)
	return args.Get(0).(eventloop.Outcome[error])
}

func (f *FakeModule) Close() error {
	return f.Called().Error(0)
}

// viewModule is a FakeModule that renders
type viewModule struct {
	*FakeModule
}

func (v viewModule) View() string {
	return v.view
}

func keyEvent(seq uint64, key string) *eventloop.Event[string] {
	return &eventloop.Event[string]{Seq: seq, Kind: eventloop.KindKey, Key: key, Runes: []rune(key)}
}
