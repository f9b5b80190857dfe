package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "http://localhost:8000", c.Oracle.BaseURL)
	assert.Equal(t, 30*time.Second, c.Polling.Signals)
	assert.Equal(t, 120*time.Second, c.Polling.Causal)
	assert.Equal(t, 20, c.Oracle.HistoryLimit)
	assert.Equal(t, "none", c.Notify.Backend)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
oracle:
  base_url: http://oracle.internal:9000/
polling:
  signals: 5s
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "http://oracle.internal:9000", c.Oracle.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 5*time.Second, c.Polling.Signals)
	assert.Equal(t, 60*time.Second, c.Polling.Predictions, "untouched keys keep defaults")
	assert.Equal(t, "json", c.Log.Format)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("notify:\n  backend: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("notify:\n  backend: kafka\n"))
	assert.ErrorContains(t, err, "brokers")

	_, err = Parse([]byte("polling:\n  causal: -1s\n"))
	assert.ErrorContains(t, err, "polling.causal")
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	t.Setenv("ORACLE_API_URL", "http://10.0.0.5:8000")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "not-a-number")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, "http://10.0.0.5:8000", c.Oracle.BaseURL)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 0, c.Notify.Redis.DB, "unparseable values keep the default")
}

func TestLoadWithEnvMissingFileFallsBack(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}
