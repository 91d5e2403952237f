package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SNAPSHOT_TIMEOUT", "MUTATION_RATE_PER_MIN", "CORS_ORIGINS", "STORE_BACKEND", "AUTH_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.SnapshotTimeout)
	assert.Equal(t, 60, cfg.Server.MutationsPerMinute)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, AuthFirebase, cfg.Auth.Mode)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SNAPSHOT_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUTH_MODE", "header")
	t.Setenv("AUTH_DEV_USER", "dev")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.SnapshotTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, AuthHeader, cfg.Auth.Mode)
	assert.Equal(t, "dev", cfg.Auth.DevUser)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	t.Setenv("SNAPSHOT_TIMEOUT", "soon")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Server.SnapshotTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", SnapshotTimeout: time.Second},
			Store:  StoreConfig{Backend: BackendMemory},
			Auth:   AuthConfig{Mode: AuthFirebase},
			App:    AppConfig{Environment: "development"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "mongo" }, wantErr: "STORE_BACKEND"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }, wantErr: "DB_DSN"},
		{name: "nats without url", mutate: func(c *Config) { c.Store.Backend = BackendNATS }, wantErr: "NATS_URL"},
		{name: "unknown auth", mutate: func(c *Config) { c.Auth.Mode = "basic" }, wantErr: "AUTH_MODE"},
		{name: "header auth in production", mutate: func(c *Config) {
			c.Auth.Mode = AuthHeader
			c.App.Environment = "production"
		}, wantErr: "not allowed in production"},
		{name: "zero snapshot timeout", mutate: func(c *Config) { c.Server.SnapshotTimeout = 0 }, wantErr: "SNAPSHOT_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
