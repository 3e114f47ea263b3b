package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyDir chdirs into a temp dir so no stray config.yaml is picked up.
func emptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	emptyDir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/database.db", cfg.Database.DSN)
	assert.Equal(t, "", cfg.Seed.Path)
	assert.Equal(t, time.Hour, cfg.Recommend.Window)
	assert.Equal(t, 10, cfg.Recommend.PopularCount)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := emptyDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  driver: postgres
  dsn: postgres://chef@localhost/recipes?sslmode=disable
recommend:
  window: 30m
  popular_count: 5
`), 0o600))

	t.Setenv("FRIDGECHEF_RECOMMEND_POPULAR_COUNT", "3")
	t.Setenv("FRIDGECHEF_MAX_BODY_BYTES", "4096")
	t.Setenv("FRIDGECHEF_CORS_ORIGINS", "http://localhost:8081, http://example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Recommend.Window)
	assert.Equal(t, 3, cfg.Recommend.PopularCount)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodyBytes)
	assert.Equal(t, []string{"http://localhost:8081", "http://example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	dir := emptyDir(t)
	path := filepath.Join(dir, "elsewhere.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	emptyDir(t)
	t.Setenv("FRIDGECHEF_DATABASE_DRIVER", "mysql")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Driver")
}

func TestLoad_MissingFile(t *testing.T) {
	emptyDir(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
