package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")

	cfg := FromEnv()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:leads.db")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_SECRET_KEY", "0123456789abcdef0123456789abcdef")

	cfg := FromEnv()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Auth.Enabled)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")

	cfg := FromEnv()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		t.Setenv("DATABASE_URL", "postgres://localhost/leads")
		return FromEnv()
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "missing database url",
			mutate:  func(cfg *Config) { cfg.Database.URL = "" },
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(cfg *Config) { cfg.Database.Driver = "mysql" },
			wantErr: "DB_DRIVER must be one of",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr: "SERVER_PORT must be between 1 and 65535",
		},
		{
			name: "auth with short secret",
			mutate: func(cfg *Config) {
				cfg.Auth.Enabled = true
				cfg.Auth.SecretKey = "short"
			},
			wantErr: "JWT_SECRET_KEY must be at least 32 characters long",
		},
		{
			name: "rsa auth without public key",
			mutate: func(cfg *Config) {
				cfg.Auth.Enabled = true
				cfg.Auth.UseRSAKeys = true
			},
			wantErr: "JWT_PUBLIC_KEY is required",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "trace" },
			wantErr: "LOG_LEVEL must be one of",
		},
		{
			name:    "bad log output",
			mutate:  func(cfg *Config) { cfg.Logging.Output = "syslog" },
			wantErr: "LOG_OUTPUT must be one of",
		},
		{
			name: "cache without ttl",
			mutate: func(cfg *Config) {
				cfg.Cache.Enabled = true
				cfg.Cache.DefaultTTL = 0
			},
			wantErr: "CACHE_DEFAULT_TTL must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_CollectsAllErrors(t *testing.T) {
	cfg := FromEnv()
	cfg.Database.URL = ""
	cfg.Server.Port = 0

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "SERVER_PORT must be between 1 and 65535")
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("existing environment wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("LEAD_TEST_FROM_FILE=file\nLEAD_TEST_PRESET=file\n"), 0o600))

		t.Setenv("LEAD_TEST_PRESET", "env")
		t.Setenv("LEAD_TEST_FROM_FILE", "")
		os.Unsetenv("LEAD_TEST_FROM_FILE")

		require.NoError(t, loadEnvFile(path))
		t.Cleanup(func() { os.Unsetenv("LEAD_TEST_FROM_FILE") })

		assert.Equal(t, "file", os.Getenv("LEAD_TEST_FROM_FILE"))
		assert.Equal(t, "env", os.Getenv("LEAD_TEST_PRESET"))
	})
}
