package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Server.Port)
	assert.Equal(t, "/api/events", cfg.Server.BasePath)
	assert.Equal(t, 100, cfg.App.SyncDefaultLimit)
	assert.Equal(t, 500, cfg.App.SyncMaxLimit)
	assert.Equal(t, 7, cfg.App.SessionRetentionDays)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
  env: production
database:
  url: "postgres://localhost/events"
app:
  sync_max_limit: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "postgres://localhost/events", cfg.Database.URL)
	assert.Equal(t, 250, cfg.App.SyncMaxLimit)
	// Untouched fields keep their defaults
	assert.Equal(t, "/api/events", cfg.Server.BasePath)
	assert.Equal(t, 100, cfg.App.SyncDefaultLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("DATABASE_URL", "postgres://db:5432/events")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("INTERNAL_API_KEY", "shared-secret")

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "postgres://db:5432/events", cfg.Database.URL)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, "shared-secret", cfg.Auth.InternalAPIKey)
}
