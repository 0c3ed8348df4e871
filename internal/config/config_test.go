package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "http://localhost:11434/v1/", cfg.LLMBaseURL)
	assert.Equal(t, "llama3.1:8b", cfg.LLMModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30, cfg.LLMRequestsPerMinute)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.ErrorIs(t, cfg.RequireToken(), ErrMissingToken)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /tmp/cache\nllm_model: mistral\nllm_timeout: 5s\n"), 0o600))
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("GITHUB_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cache", cfg.DataDir)
	assert.Equal(t, "from-env", cfg.LLMModel, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.NoError(t, cfg.RequireToken())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
