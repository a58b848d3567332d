package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's .env and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
	for key := range defaults {
		env := strings.ToUpper(key)
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "tasks.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.True(t, cfg.MigrateOnStart)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "logs.json", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "task_api", cfg.ServiceName)
	assert.Equal(t, "1.0", cfg.LogSchemaVersion)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://app@db:5432/tasks")
	t.Setenv("DB_TIMEOUT", "2s")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("LOG_STDOUT", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://app@db:5432/tasks", cfg.PostgresDSN)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.True(t, cfg.LogStdout)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	yaml := "http_port: 7000\nlog_level: debug\ncache_ttl: 1m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"zero timeout", map[string]string{"DB_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}
