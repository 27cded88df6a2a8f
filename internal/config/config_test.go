package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	path := write(t, `
store: redis
format: json
redis:
  addr: cache:6380
  ttl: 1h
lock:
  enabled: true
  ttl: 45s
serve:
  addr: 127.0.0.1:9000
`)
	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "127.0.0.1:9000", cfg.Serve.Addr)
	assert.Equal(t, "trees", cfg.Dir, "unset keys keep their defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad store", "store: s3\n", "store must be one of"},
		{"bad format", "format: toml\n", "format must be one of"},
		{"bad addr", "serve:\n  addr: nowhere\n", "serve.addr must be host:port"},
		{"missing dir", "dir: \"\"\n", "dir is required"},
		{"redis without addr", "store: redis\nredis:\n  addr: \"\"\n", "redis.addr is required"},
		{"short lock", "lock:\n  enabled: true\n  ttl: 10ms\n", "lock.ttl must be at least 1s"},
		{"key not base64", "encryption:\n  key: \"not base64!\"\n", "encryption.key must be base64"},
		{"fallback without key", "encryption:\n  fallback_keys: [\"AAAA\"]\n", "encryption.fallback_keys requires encryption.key"},
		{"malformed", "store: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.body), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
