package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadFromYAML(t *testing.T) {
	writeConfig(t, `
server_addr: ":9090"
cors_allowed_origins:
  - https://app.example.com
session:
  store: redis
  redis_url: redis://localhost:6379/0
  duration_hours: 4
  override_secret: yaml-secret
backend:
  database_url: postgres://localhost/app
  max_connections: 25
  jwt_secret: hs256-secret
cloud:
  region: us-east-1
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 4*time.Hour, cfg.SessionDuration())
	assert.Equal(t, 25, cfg.DBMaxConnections())
	assert.Equal(t, "us-east-1", cfg.Cloud.Region)
}

func TestEnvOverridesYAML(t *testing.T) {
	writeConfig(t, `
session:
  override_secret: yaml-secret
backend:
  database_url: postgres://localhost/app
`)
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("OVERRIDE_SECRET", "env-secret")
	t.Setenv("SESSION_DURATION_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.Equal(t, "env-secret", cfg.Session.OverrideSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionDuration())
}

func TestDefaults(t *testing.T) {
	writeConfig(t, `
session:
  override_secret: s
backend:
  database_url: postgres://localhost/app
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, 8*time.Hour, cfg.SessionDuration())
	assert.Equal(t, 10, cfg.DBMaxConnections())
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
}

func TestMissingDatabaseURLFails(t *testing.T) {
	writeConfig(t, `
session:
  override_secret: s
`)
	_, err := Load()
	assert.Error(t, err)
}

func TestMissingOverrideSecretFails(t *testing.T) {
	writeConfig(t, `
backend:
  database_url: postgres://localhost/app
`)
	_, err := Load()
	assert.Error(t, err)
}

func TestUnknownSessionStoreFails(t *testing.T) {
	writeConfig(t, `
session:
  store: memcached
  override_secret: s
backend:
  database_url: postgres://localhost/app
`)
	_, err := Load()
	assert.Error(t, err)
}
