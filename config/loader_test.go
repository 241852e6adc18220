package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 0.6, cfg.Agents.Flight.ScoreThreshold)
	assert.Equal(t, 0.6, cfg.Agents.Policy.ScoreThreshold)
	assert.Equal(t, 0.7, cfg.Agents.Web.ScoreThreshold)
	assert.Equal(t, "policy", cfg.Router.FallbackSource)
	assert.Equal(t, 10, cfg.History.MaxMessages)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  http_port: 9000
agents:
  web:
    collection: Notices
    score_threshold: 0.75
    top_k: 3
router:
  fallback_source: web
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "Notices", cfg.Agents.Web.Collection)
	assert.Equal(t, 0.75, cfg.Agents.Web.ScoreThreshold)
	assert.Equal(t, 3, cfg.Agents.Web.TopK)
	assert.Equal(t, "web", cfg.Router.FallbackSource)
	// Untouched sections keep their defaults.
	assert.Equal(t, "FlightStatus", cfg.Agents.Flight.Collection)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AERODESK_SERVER_HTTP_PORT", "7070")
	t.Setenv("AERODESK_ROUTER_AGENT_TIMEOUT", "5s")
	t.Setenv("AERODESK_AGENTS_WEB_SCORE_THRESHOLD", "0.8")
	t.Setenv("AERODESK_REDIS_ENABLED", "true")
	t.Setenv("AERODESK_LOG_OUTPUT_PATHS", "stdout, /var/log/aerodesk.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.Router.AgentTimeout)
	assert.Equal(t, 0.8, cfg.Agents.Web.ScoreThreshold)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/aerodesk.log"}, cfg.Log.OutputPaths)
}

func TestLoad_EnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoad_Validator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Server.HTTPPort = 0
	assert.ErrorContains(t, cfg.Validate(), "invalid HTTP port")

	cfg = DefaultConfig()
	cfg.Router.FallbackSource = "database"
	assert.ErrorContains(t, cfg.Validate(), "fallback_source")

	cfg = DefaultConfig()
	cfg.Agents.Web.ScoreThreshold = 1.5
	assert.ErrorContains(t, cfg.Validate(), "score_threshold")

	cfg = DefaultConfig()
	cfg.Agents.Flight.Collection = ""
	assert.ErrorContains(t, cfg.Validate(), "collection")
}
