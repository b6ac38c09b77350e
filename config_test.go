package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CHROMADMIN_ADDR", "CHROMADMIN_SESSION_TTL_MINUTES", "CHROMADMIN_DATA_DIR",
	"CHROMADMIN_LOG_FILE", "CHROMADMIN_PRODUCTION", "EMBEDDING_PROVIDER",
	"CHROMA_HOST", "CHROMA_PORT", "CHROMA_TENANT", "CHROMA_DATABASE", "CHROMA_SSL",
	"CHROMA_TIMEOUT_SECONDS", "GEMINI_API_KEY", "GEMINI_EMBEDDING_MODEL",
	"LMSTUDIO_BASE_URL", "LMSTUDIO_EMBEDDING_MODEL",
}

// clearConfigEnv blanks every variable LoadConfig reads; empty values are ignored.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultSessionTTLMinutes*time.Minute, cfg.SessionTTL())
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, EmbeddingProviderHash, cfg.EmbeddingProvider)
	assert.Equal(t, DefaultRemoteHost, cfg.Remote.Host)
	assert.Equal(t, DefaultRemotePort, cfg.Remote.Port)
	assert.Equal(t, DefaultTenant, cfg.Remote.Tenant)
	assert.Equal(t, DefaultDatabase, cfg.Remote.Database)
	assert.Equal(t, DefaultRemoteTimeoutSeconds*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, DefaultEmbeddingModel, cfg.Gemini.EmbeddingModel)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"listen_addr": ":9000",
		"data_dir": "/var/lib/chromadmin",
		"embedding_provider": "lmstudio",
		"remote": {"host": "chroma.internal", "port": 9100, "use_tls": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("CHROMA_PORT", "9200")
	t.Setenv("CHROMADMIN_SESSION_TTL_MINUTES", "5")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/chromadmin", cfg.DataDir)
	assert.Equal(t, "chroma.internal", cfg.Remote.Host)
	assert.Equal(t, 9200, cfg.Remote.Port)
	assert.True(t, cfg.Remote.UseTLS)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL())
	assert.Equal(t, DefaultLMStudioURL, cfg.LMStudio.BaseURL)
	assert.Equal(t, DefaultLMStudioModel, cfg.LMStudio.EmbeddingModel)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path, nil)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestLoadConfigIgnoresBadNumbers(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CHROMA_PORT", "eight-thousand")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRemotePort, cfg.Remote.Port)
}
