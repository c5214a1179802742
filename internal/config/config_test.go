package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1/", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek/deepseek-r1", cfg.LLM.ResearchModel)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif"}, cfg.Images.AllowedTypes)
	assert.Equal(t, int64(5*1024*1024), cfg.Images.MaxImageBytes)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "/static", cfg.Storage.StaticPrefix)
	assert.Equal(t, 4, cfg.Pipeline.ImageConcurrency)
	assert.Equal(t, uint(3), cfg.Pipeline.RetryMaxTries)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Contains(t, cfg.Server.CORSAllowedMethods, "POST")
	assert.True(t, cfg.Server.CORSAllowCredentials)
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	os.Unsetenv("OPENROUTER_API_KEY")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("IMAGE_CONCURRENCY", "0")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "IMAGE_CONCURRENCY")
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENROUTER_API_KEY=from-file\nNOTES_MODEL=file-model\nSERVER_PORT=9001\n"), 0o600))

	// The environment takes precedence over the file.
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("OPENROUTER_API_KEY", "")
	os.Unsetenv("OPENROUTER_API_KEY")
	t.Setenv("NOTES_MODEL", "")
	os.Unsetenv("NOTES_MODEL")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "file-model", cfg.LLM.NotesModel)
	assert.Equal(t, "9100", cfg.Server.Port)
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "k")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
}
