// Package cache stores backtest results in Redis keyed by configuration,
// dataset and run bounds. Every call goes through a circuit breaker; an
// unavailable Redis behaves like an empty cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/net/circuit"
)

const (
	keyPrefix = "ivcrush:backtest:"
	cacheType = "backtest"
)

// Recorder receives cache and breaker events; metrics.Registry implements it
type Recorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	RecordCacheError(cacheType, op string)
	SetBreakerState(name, state string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string)           {}
func (nopRecorder) RecordCacheMiss(string)          {}
func (nopRecorder) RecordCacheError(string, string) {}
func (nopRecorder) SetBreakerState(string, string)  {}

// ResultCache caches backtest results
type ResultCache struct {
	client   redis.Cmdable
	ttl      time.Duration
	breaker  *circuit.Breaker
	recorder Recorder
}

// New creates a cache over an existing client. rec may be nil.
func New(client redis.Cmdable, ttl time.Duration, cc config.CircuitConfig, rec Recorder) *ResultCache {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ResultCache{
		client:   client,
		ttl:      ttl,
		breaker:  circuit.New("redis", cc, rec.SetBreakerState, redis.Nil),
		recorder: rec,
	}
}

// Dial connects to Redis and verifies the connection
func Dial(ctx context.Context, rt config.Runtime, rec Recorder) (*ResultCache, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        rt.RedisAddr,
		DB:          rt.RedisDB,
		DialTimeout: rt.QueryTimeout,
		ReadTimeout: rt.QueryTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis %s: %w", rt.RedisAddr, err)
	}
	return New(client, rt.CacheTTL, rt.Circuit, rec), client, nil
}

// Key derives the cache key for one run. Two runs with the same key produce
// identical results.
func Key(configFingerprint, datasetFingerprint string, opts backtest.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%.2f",
		configFingerprint,
		datasetFingerprint,
		opts.Start.UTC().Format(time.RFC3339),
		opts.End.UTC().Format(time.RFC3339),
		opts.Capital,
	)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached result. A miss, a broken entry or an unavailable
// backend all report found=false; err is only set for backend failures so
// callers can log them.
func (c *ResultCache) Get(ctx context.Context, key string) (*backtest.Result, bool, error) {
	var data []byte
	err := c.breaker.Call(func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		return err
	})

	switch {
	case errors.Is(err, redis.Nil):
		c.recorder.RecordCacheMiss(cacheType)
		return nil, false, nil
	case err != nil:
		c.recorder.RecordCacheError(cacheType, "get")
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var res backtest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("Discarding undecodable cache entry")
		c.recorder.RecordCacheMiss(cacheType)
		return nil, false, nil
	}
	c.recorder.RecordCacheHit(cacheType)
	return &res, true, nil
}

// Set stores a result with the configured TTL
func (c *ResultCache) Set(ctx context.Context, key string, res *backtest.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	err = c.breaker.Call(func() error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		c.recorder.RecordCacheError(cacheType, "set")
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// BreakerState exposes the breaker state for health reporting
func (c *ResultCache) BreakerState() string {
	return c.breaker.State()
}

// Ping checks Redis through the breaker
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.breaker.Call(func() error {
		return c.client.Ping(ctx).Err()
	})
}
