package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("POCA_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("POCA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("POCA_UPLOAD_PER_MINUTE", "10")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.EqualValues(t, 5<<20, cfg.Upload.MaxBytes)
	assert.Equal(t, 10, cfg.Upload.PerMinute)
	assert.Equal(t, "pocabinder", cfg.Telemetry.ServiceName)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9090"
log:
  level: debug
  encoding: json
db:
  driver: postgres
  dsn: postgres://localhost/poca
auth:
  jwt_secret: from-file
  issuer: https://id.example
`), 0o600))
	t.Setenv("POCA_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://id.example", cfg.Auth.Issuer)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POCA_AUTH_JWT_SECRET", "")

	_, err := Load(filepath.Join(dir, "none.yaml"))
	assert.ErrorContains(t, err, "jwt_secret")

	t.Setenv("POCA_AUTH_JWT_SECRET", "x")
	t.Setenv("POCA_DB_DRIVER", "mysql")
	_, err = Load(filepath.Join(dir, "none.yaml"))
	assert.ErrorContains(t, err, "db.driver")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o600))
	t.Setenv("POCA_DB_DRIVER", "sqlite")
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("POCA_CONFIG", "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("POCA_CONFIG", "/etc/poca.yaml")
	assert.Equal(t, "/etc/poca.yaml", Path())
}
