package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AuditLogging)
	assert.False(t, cfg.RedisEnabled())
	assert.Empty(t, cfg.CallbackSecret)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=governance sslmode=disable", cfg.PostgresDSN())
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9090\nREDIS_HOST=cache\nCACHE_TTL=5m\n"), 0o600))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUDIT_LOGGING", "false")
	t.Cleanup(func() {
		for _, key := range []string{"APP_PORT", "REDIS_HOST", "CACHE_TTL"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.AppPort)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.AuditLogging)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POSTGRES_PORT", "five")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "POSTGRES_PORT")
}

func TestLoadConfig_CallbackSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SIGNATURE_CALLBACK_SECRET", "provider-secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "provider-secret", cfg.CallbackSecret)

	t.Setenv("SIGNATURE_CALLBACK_SECRET", "s3cret")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "SIGNATURE_CALLBACK_SECRET")
}
