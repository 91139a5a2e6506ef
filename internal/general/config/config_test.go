package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
# service config
database:
  host: db.internal
  port: 5433
  user: nav
  password: "s3cret"
  database: livenav

rabbitmq:
  host: mq.internal
  port: 5672
  user: nav
  password: nav

redis:
  host: redis.internal
  port: 6380
  password: 'redispass'
  cache_ttl_ms: 5000

graphhopper:
  base_url: "https://gh.internal/api/1"
  api_key: gh-key
  timeout_ms: 2500
  locale: de

websocket:
  port: 9090

jwt:
  secret_key: "topsecret"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "s3cret", cfg.Database.Password, "quotes are stripped")
	assert.Equal(t, "livenav", cfg.Database.Name)

	assert.Equal(t, "redispass", cfg.Redis.Password)
	assert.Equal(t, 5*time.Second, cfg.IncidentCacheTTL())

	assert.Equal(t, "https://gh.internal/api/1", cfg.GraphHopper.BaseURL)
	assert.Equal(t, "gh-key", cfg.GraphHopper.APIKey)
	assert.Equal(t, 2500*time.Millisecond, cfg.RouteTimeout())
	assert.Equal(t, "de", cfg.GraphHopper.Locale)

	assert.Equal(t, 9090, cfg.WebSocket.Port)
	assert.Equal(t, "topsecret", cfg.JWT.SecretKey)
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  user: nav
  password: nav
  database: livenav

rabbitmq:
  user: guest
  password: guest
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 15*time.Second, cfg.IncidentCacheTTL())
	assert.Equal(t, "https://graphhopper.com/api/1", cfg.GraphHopper.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RouteTimeout())
	assert.Equal(t, "en", cfg.GraphHopper.Locale)
	assert.Equal(t, 8080, cfg.WebSocket.Port)
	assert.NotEmpty(t, cfg.JWT.SecretKey, "a random secret is generated when unset")
}

func TestLoadFromFileRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
database:
  user: nav
  password: nav
  database: livenav
  flavor: vanilla
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestLoadFromFileValidation(t *testing.T) {
	path := writeConfig(t, `
database:
  user: nav
  password: nav
  database: livenav
  port: 70000

rabbitmq:
  user: guest
  password: guest
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.port")
}

func TestLoadFromFileMissingRequired(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user is required")
}
