package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.APIBaseURL)
	assert.Equal(t, "ws://127.0.0.1:8000", cfg.WSBaseURL)
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizpin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://quiz.example.com/api
ws_base_url: wss://quiz.example.com
token: secret
reconnect:
  enabled: false
  interval: 10s
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://quiz.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "wss://quiz.example.com", cfg.WSBaseURL)
	assert.Equal(t, "secret", cfg.Token)
	assert.False(t, cfg.Reconnect.Enabled)
	assert.Equal(t, 10*time.Second, cfg.ReconnectInterval(3*time.Second))
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizpin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: from-file\n"), 0o600))

	t.Setenv("QUIZ_TOKEN", "from-env")
	t.Setenv("QUIZ_API_URL", "http://env.example.com/api")
	t.Setenv("QUIZ_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "http://env.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizpin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::not yaml::"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestReconnectIntervalFallback(t *testing.T) {
	var cfg Config
	assert.Equal(t, 3*time.Second, cfg.ReconnectInterval(3*time.Second))

	cfg.Reconnect.Interval = "bogus"
	assert.Equal(t, 3*time.Second, cfg.ReconnectInterval(3*time.Second))

	cfg.Reconnect.Interval = "500ms"
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectInterval(3*time.Second))
}

func TestSessionWSURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ws://127.0.0.1:8000/ws/session/123456/", cfg.SessionWSURL("123456"))
}
