package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
	zapcore "go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  zapcore.Level
		expectErr bool
	}{
		{name: "debug", input: "debug", expected: zapcore.DebugLevel},
		{name: "mixed case info", input: "Info", expected: zapcore.InfoLevel},
		{name: "empty defaults to warn", input: "", expected: zapcore.WarnLevel},
		{name: "warning alias", input: "warning", expected: zapcore.WarnLevel},
		{name: "error", input: "error", expected: zapcore.ErrorLevel},
		{name: "invalid", input: "loud", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "modui.log")

	l, err := New(false, Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	l.Info("event loop running")
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event loop running")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(false, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx, logs := TestContext()
	ctx = WithRun(ctx, "run-1")

	L(ctx).Info("dispatched")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].ContextMap()["run_id"])

	assert.NotNil(t, FromContext(context.Background()))
}
