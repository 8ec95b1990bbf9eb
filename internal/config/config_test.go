package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlyPresentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: keyword\nseed: 42\nmodel: anthropic:claude-sonnet-4-6\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "keyword", cfg.Policy)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(42), *cfg.Seed)
	assert.Equal(t, "vaccine", cfg.Catalog)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolveModel_EnvWins(t *testing.T) {
	cfg := &Config{Model: "openai:gpt-4o"}
	t.Setenv(ModelEnv, "")
	assert.Equal(t, "openai:gpt-4o", cfg.ResolveModel())

	t.Setenv(ModelEnv, "gemini:gemini-1.5-pro")
	assert.Equal(t, "gemini:gemini-1.5-pro", cfg.ResolveModel())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/auditor")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/auditor", ".protoaudit", "config.yaml"), path)
}
