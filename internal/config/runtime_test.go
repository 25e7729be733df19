package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestRuntimeFromEnv_Defaults(t *testing.T) {
	rt, err := runtimeFromEnv(envMap(nil))
	require.NoError(t, err)
	assert.False(t, rt.PersistenceEnabled())
	assert.False(t, rt.CacheEnabled())
	assert.Equal(t, "127.0.0.1:8090", rt.Addr())
	assert.Positive(t, rt.Workers)
}

func TestRuntimeFromEnv_Overrides(t *testing.T) {
	rt, err := runtimeFromEnv(envMap(map[string]string{
		"IVCRUSH_PG_DSN":       "postgres://localhost/ivcrush?sslmode=disable",
		"IVCRUSH_REDIS_ADDR":   "localhost:6379",
		"IVCRUSH_HTTP_PORT":    "9000",
		"IVCRUSH_WORKERS":      "0",
		"IVCRUSH_CACHE_TTL":    "90m",
		"IVCRUSH_RATE_PER_SEC": "2.5",
	}))
	require.NoError(t, err)
	assert.True(t, rt.PersistenceEnabled())
	assert.True(t, rt.CacheEnabled())
	assert.Equal(t, 9000, rt.HTTPPort)
	assert.Equal(t, 1, rt.Workers)
	assert.Equal(t, 90*time.Minute, rt.CacheTTL)
	assert.Equal(t, 2.5, rt.RatePerSec)
}

func TestRuntimeFromEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"IVCRUSH_HTTP_PORT": "http"},
		{"IVCRUSH_CACHE_TTL": "soon"},
		{"IVCRUSH_RATE_PER_SEC": "0"},
		{"IVCRUSH_BREAKER_FAILURES": "0"},
	} {
		_, err := runtimeFromEnv(envMap(env))
		assert.Error(t, err, "%v", env)
	}
}

func TestLoadRuntime_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IVCRUSH_HTTP_HOST=0.0.0.0\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("IVCRUSH_HTTP_HOST") })

	rt, err := LoadRuntime(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", rt.HTTPHost)

	_, err = LoadRuntime(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
