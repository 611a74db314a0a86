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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
jwt:
  secret: s3cret
  expiry_hours: 2
pagination:
  default_limit: 10
  max_limit: 50
outbox:
  poll_interval: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL())
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)

	// untouched keys keep their defaults
	assert.Equal(t, "patient_admin", cfg.Auth.AdminGroup)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "clinical-api", cfg.JWT.Issuer)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("CLINICAL_JWT_SECRET", "from-env")
	t.Setenv("CLINICAL_DATABASE_HOST", "db.internal")
	t.Setenv("CLINICAL_AUTH_ADMIN_GROUP", "admins")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "admins", cfg.Auth.AdminGroup)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("CLINICAL_JWT_SECRET", "x")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{Driver: DriverPostgres},
			JWT:        JWTConfig{Secret: "s"},
			Pagination: PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"secret", func(c *Config) { c.JWT.Secret = "" }},
		{"default limit", func(c *Config) { c.Pagination.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Pagination.MaxLimit = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "h", Port: 1, User: "u", Name: "n", SSLMode: "disable"},
		Outbox:   OutboxConfig{BatchSize: 7, PollInterval: time.Second, RetryAttempts: 2, RetryDelay: time.Minute},
		Redis:    RedisConfig{URL: "redis://r:6379/1", BreakerFailures: 3},
		Log:      LogConfig{Level: "debug", Format: "console"},
	}

	assert.Equal(t, "host=h port=1 user=u password= dbname=n sslmode=disable", cfg.Database.ToPostgresConfig().DSN())
	assert.Equal(t, 7, cfg.Outbox.ToWorkerConfig().BatchSize)
	assert.Equal(t, 3, cfg.Redis.ToBrokerConfig().BreakerFailures)
	assert.Equal(t, "console", cfg.Log.ToLoggerConfig().Format)
}
