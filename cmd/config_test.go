package cmd

import (
	"bytes"
	"testing"

	config "github.com/inference-gateway/modui/config"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	out, err := executeRoot(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully created "+config.DefaultConfigPath)

	_, err = executeRoot(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = executeRoot(t, "config", "set", "source.backend", "x11")
	require.NoError(t, err)
	_, err = executeRoot(t, "config", "set", "modules.enabled", "keymap,journal")
	require.NoError(t, err)

	cfg, err := config.Load(config.DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, config.BackendX11, cfg.Source.Backend)
	assert.Equal(t, []string{"keymap", "journal"}, cfg.Modules.Enabled)

	out, err = executeRoot(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: x11")

	_, err = executeRoot(t, "config", "set", "source.backend", "carrier-pigeon")
	assert.ErrorContains(t, err, "invalid source.backend")
}

func TestInitConfigEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv("MODUI_SOURCE_BACKEND", "script")
	t.Setenv("MODUI_SOURCE_SCRIPT_PATH", "session.yaml")

	initConfig()

	cfg, err := getConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, config.BackendScript, cfg.Source.Backend)
	assert.Equal(t, "session.yaml", cfg.Source.Script.Path)
}

func TestModulesAndVersionCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	out, err := executeRoot(t, "modules")
	require.NoError(t, err)
	for _, name := range []string{"keymap", "trace", "status", "journal", "broadcast", "mirror"} {
		assert.Contains(t, out, name)
	}

	out, err = executeRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "modui version "+version)
}
