package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	script "github.com/inference-gateway/modui/internal/source/script"
	storage "github.com/inference-gateway/modui/internal/storage"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

const replaySession = `
name: cmd
events:
  - kind: resize
    width: 80
    height: 24
  - kind: key
    key: j
    repeat: 2
  - kind: key
    key: q
  - kind: key
    key: k
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunSessionScript(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Source.Backend = config.BackendScript
	cfg.Source.Script.Path = writeScript(t, replaySession)
	cfg.Modules.Enabled = []string{"keymap", "journal", "status"}
	cfg.Modules.Journal.DSN = filepath.Join(dir, "journal.db")
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	result, err := runSession(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), result.Stats.Dispatched)
	assert.Equal(t, uint64(1), result.Stats.Captured)
	assert.Equal(t, uint64(4), result.Stats.Continued)
	assert.Contains(t, out.String(), "run "+result.RunID+": 5 events")

	store, err := storage.NewSQLiteStorage(context.Background(), cfg.Modules.Journal.DSN)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	records, err := store.Events(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "resize", records[0].Kind)
	for _, rec := range records[1:] {
		assert.Equal(t, "j", rec.Key)
	}
}

func TestRunSessionBuildFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Backend = config.BackendScript
	cfg.Source.Script.Path = writeScript(t, replaySession)
	cfg.Modules.Enabled = []string{"journal"}
	cfg.Modules.Journal.Driver = "tape"

	_, err := runSession(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to build module journal")
}

func TestRunSessionMissingScript(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Backend = config.BackendScript
	cfg.Source.Script.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := runSession(context.Background(), cfg, &bytes.Buffer{})

	var initErr *eventloop.SourceInitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func runScriptLoop(t *testing.T, content string, handlers ...eventloop.Handler[eventloop.Unit, error]) error {
	t.Helper()
	s, err := script.Parse([]byte(content))
	require.NoError(t, err)
	loop, err := eventloop.FromBuilder[eventloop.Unit, error](eventloop.BuilderFunc[eventloop.Unit](func() (eventloop.Source[eventloop.Unit], error) {
		src, err := script.New[eventloop.Unit](s)
		if err != nil {
			return nil, err
		}
		return src, nil
	}))
	require.NoError(t, err)
	return loop.Run(handlers)
}

func TestReportRunError(t *testing.T) {
	failing := eventloop.HandlerFunc[eventloop.Unit, error](func(ev *eventloop.Event[eventloop.Unit], target eventloop.Target) eventloop.Outcome[error] {
		return eventloop.Fail(errors.New("boom"))
	})
	handlerErr := runScriptLoop(t, replaySession, failing)
	require.Error(t, handlerErr)

	sourceErr := runScriptLoop(t, "name: broken\nerror: device lost\nevents:\n  - kind: redraw\n")
	require.Error(t, sourceErr)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		err     error
		wantErr string
	}{
		{name: "clean run", ctx: context.Background()},
		{name: "handler error", ctx: context.Background(), err: handlerErr, wantErr: "module failed at event #1: boom"},
		{name: "handler error after interrupt", ctx: cancelled, err: handlerErr, wantErr: "module failed at event #1: boom"},
		{name: "source error", ctx: context.Background(), err: sourceErr, wantErr: "event source failed"},
		{name: "source error after interrupt", ctx: cancelled, err: sourceErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reportRunError(tt.ctx, tt.err, &sessionResult{FailedSeq: 1})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReplayAndJournalCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	path := writeScript(t, replaySession)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"replay", path, "--modules", "keymap,journal"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "5 events")

	out.Reset()
	rootCmd.SetArgs([]string{"journal", "list", "--format", "json"})
	require.NoError(t, rootCmd.Execute())

	var listing struct {
		Runs  []storage.RunSummary `json:"runs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &listing))
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, 4, listing.Runs[0].Events)

	runID := listing.Runs[0].RunID
	out.Reset()
	rootCmd.SetArgs([]string{"journal", "show", runID, "--format", "json"})
	require.NoError(t, rootCmd.Execute())

	var records []storage.Record
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 4)
	assert.Equal(t, runID, records[0].RunID)

	out.Reset()
	rootCmd.SetArgs([]string{"journal", "delete", runID})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Deleted run "+runID))
}

func TestCloseOnDone(t *testing.T) {
	src := &closingSource{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	stop := closeOnDone(ctx, src)
	defer stop()
	cancel()

	<-src.closed
}

type closingSource struct {
	closed chan struct{}
}

func (s *closingSource) Run(fn func(ev *eventloop.Event[eventloop.Unit], target eventloop.Target)) error {
	return nil
}

func (s *closingSource) Close() {
	close(s.closed)
}
