package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_LOCATION", "./data")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30, cfg.Auth.JWTExpireMinute)
	assert.Equal(t, StoreDriverJSON, cfg.Store.Driver)
	assert.Equal(t, "./data", cfg.Store.Location)
	assert.Equal(t, 10, cfg.Posts.DefaultLimit)
	assert.Equal(t, 100, cfg.Posts.MaxLimit)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
}

func TestLoad_RequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_RequiresStoreLocation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_LOCATION", "  ")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingStore)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestLoad_FileThenEnv(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 9090

[auth]
jwt_secret = "from-file"
jwt_expire_minute = 15

[store]
driver = "mongo"
location = "mongodb://localhost:27017"
database = "anime_site"

[posts]
default_limit = 5
max_limit = 50

[redis]
addr = "127.0.0.1:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("STORE_LOCATION")
	t.Setenv("APP_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 15, cfg.Auth.JWTExpireMinute)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, "anime_site", cfg.Store.Database)
	assert.Equal(t, 5, cfg.Posts.DefaultLimit)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}

func TestLoad_BadFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\nport = "), 0o644))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_Paging(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "s"
	cfg.Store.Location = "dir"
	require.NoError(t, cfg.Validate())

	cfg.Posts.DefaultLimit = 500
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPaging)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("SOME_INT", 1))

	t.Setenv("SOME_INT", "nope")
	assert.Equal(t, 1, getEnvAsInt("SOME_INT", 1))

	assert.Equal(t, 3, getEnvAsInt("UNSET_INT_FOR_TEST", 3))
}
