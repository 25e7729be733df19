package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Runtime holds process-level settings for the CLI and HTTP server. Nothing
// here influences scoring results.
type Runtime struct {
	PostgresDSN  string
	RedisAddr    string
	RedisDB      int
	HTTPHost     string
	HTTPPort     int
	Workers      int
	CacheTTL     time.Duration
	QueryTimeout time.Duration
	RatePerSec   float64
	RateBurst    int
	Circuit      CircuitConfig
}

// CircuitConfig configures the breaker guarding the cache and repository
type CircuitConfig struct {
	FailureThreshold int           // consecutive failures to open
	MaxRequests      int           // half-open probes
	OpenTimeout      time.Duration // time spent open before probing
}

// Validate ensures circuit breaker configuration is valid
func (c CircuitConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open_timeout must be positive, got %s", c.OpenTimeout)
	}
	return nil
}

// DefaultRuntime returns settings with persistence and caching disabled
func DefaultRuntime() Runtime {
	return Runtime{
		HTTPHost:     "127.0.0.1",
		HTTPPort:     8090,
		Workers:      runtime.NumCPU(),
		CacheTTL:     24 * time.Hour,
		QueryTimeout: 5 * time.Second,
		RatePerSec:   5,
		RateBurst:    10,
		Circuit: CircuitConfig{
			FailureThreshold: 3,
			MaxRequests:      1,
			OpenTimeout:      30 * time.Second,
		},
	}
}

// LoadRuntime reads settings from the environment after loading the given
// .env files. A missing .env file is not an error.
func LoadRuntime(envFiles ...string) (Runtime, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Runtime{}, fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return runtimeFromEnv(os.Getenv)
}

func runtimeFromEnv(getenv func(string) string) (Runtime, error) {
	rt := DefaultRuntime()
	rt.PostgresDSN = strings.TrimSpace(getenv("IVCRUSH_PG_DSN"))
	rt.RedisAddr = strings.TrimSpace(getenv("IVCRUSH_REDIS_ADDR"))

	if v := getenv("IVCRUSH_HTTP_HOST"); v != "" {
		rt.HTTPHost = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"IVCRUSH_REDIS_DB", &rt.RedisDB},
		{"IVCRUSH_HTTP_PORT", &rt.HTTPPort},
		{"IVCRUSH_WORKERS", &rt.Workers},
		{"IVCRUSH_RATE_BURST", &rt.RateBurst},
		{"IVCRUSH_BREAKER_FAILURES", &rt.Circuit.FailureThreshold},
	}
	for _, e := range ints {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Runtime{}, fmt.Errorf("%s: %q is not a non-negative integer", e.key, v)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"IVCRUSH_CACHE_TTL", &rt.CacheTTL},
		{"IVCRUSH_QUERY_TIMEOUT", &rt.QueryTimeout},
		{"IVCRUSH_BREAKER_OPEN", &rt.Circuit.OpenTimeout},
	}
	for _, e := range durations {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Runtime{}, fmt.Errorf("%s: %q is not a valid duration", e.key, v)
		}
		*e.dst = d
	}

	if v := getenv("IVCRUSH_RATE_PER_SEC"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			return Runtime{}, fmt.Errorf("IVCRUSH_RATE_PER_SEC: %q must be a positive number", v)
		}
		rt.RatePerSec = r
	}

	if rt.Workers == 0 {
		rt.Workers = 1
	}
	if err := rt.Circuit.Validate(); err != nil {
		return Runtime{}, fmt.Errorf("circuit: %w", err)
	}
	return rt, nil
}

// Addr returns host:port for the HTTP listener
func (r Runtime) Addr() string {
	return fmt.Sprintf("%s:%d", r.HTTPHost, r.HTTPPort)
}

// PersistenceEnabled reports whether a Postgres DSN was configured
func (r Runtime) PersistenceEnabled() bool { return r.PostgresDSN != "" }

// CacheEnabled reports whether a Redis address was configured
func (r Runtime) CacheEnabled() bool { return r.RedisAddr != "" }
