package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--version"}))
}

func TestRun_UnknownFlag(t *testing.T) {
	assert.Equal(t, 2, run([]string{"--no-such-flag"}))
}

func TestRun_InvalidConfigExitsNonZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablenode.yml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "9.9"`), 0644))

	assert.Equal(t, 1, run([]string{"--config", path}))
}

func TestRun_MissingConfigFile(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--config", "/nonexistent/tablenode.yml"}))
}

func TestLoadConfig_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("TABLENODE_TRANSPORT", "redis")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Link.Transport)
	assert.Equal(t, 16, cfg.Display.Width)
}
