package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/btgraph/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, filepath.Join("/tmp/cache-home", "btgraph"), cfg.Cache.Dir)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
catalog = "game.toml"
author = "jane"
log_level = "debug"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/1"
key_prefix = "btgraph:staging:"
ttl = "2h"

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
database = "trees"

[layout]
h_spacing = 400

[server]
addr = "127.0.0.1:9000"
read_timeout = "5s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "game.toml", cfg.Catalog)
	assert.Equal(t, "jane", cfg.Author)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "btgraph:staging:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, "trees", cfg.Store.Database)
	assert.Equal(t, float32(400), cfg.Layout.Options().HSpacing)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	// Unset keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Std())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", `colour = "red"`},
		{"bad syntax", `author = `},
		{"bad log level", `log_level = "loud"`},
		{"bad cache backend", "[cache]\nbackend = \"memcached\""},
		{"mongo without uri", "[store]\nbackend = \"mongo\""},
		{"bad duration", "[cache]\nttl = \"soon\""},
		{"negative spacing", "[layout]\nv_spacing = -1"},
		{"empty addr", "[server]\naddr = \"\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvMongoURI, "")
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "uri")
	require.NoError(t, os.WriteFile(secret, []byte("mongodb://db:27017\n"), 0o600))
	t.Setenv(EnvMongoURI+"_FILE", secret)
	t.Setenv(EnvRedisPassword, "hunter2")

	cfg, err := Load(writeConfig(t, "[store]\nbackend = \"mongo\""))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Store.MongoURI)
	assert.Equal(t, "hunter2", cfg.Cache.RedisPassword)
}

func TestResolveSecretMissingFile(t *testing.T) {
	t.Setenv("BTGRAPH_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	_, err := ResolveSecret("BTGRAPH_TEST_SECRET")
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/cfg", "btgraph", "config.toml"), DefaultPath())
	assert.Equal(t, filepath.Join("/data", "btgraph", "documents"), DataDir())
}
