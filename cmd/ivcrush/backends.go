package main

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/cache"
	"github.com/sawpanic/ivcrush/internal/config"
	httpapi "github.com/sawpanic/ivcrush/internal/interfaces/http"
	"github.com/sawpanic/ivcrush/internal/net/circuit"
	"github.com/sawpanic/ivcrush/internal/persistence"
	"github.com/sawpanic/ivcrush/internal/persistence/postgres"
)

// backends are the optional Redis cache and Postgres repository. Either may
// be missing; a backend that cannot be reached at startup is disabled.
type backends struct {
	cache *cache.ResultCache
	redis *redis.Client
	db    *sqlx.DB
	repo  *persistence.Guarded
}

func openBackends(ctx context.Context, rt config.Runtime, rec cache.Recorder) *backends {
	b := &backends{}

	if rt.CacheEnabled() {
		c, client, err := cache.Dial(ctx, rt, rec)
		if err != nil {
			log.Warn().Err(err).Msg("Result cache disabled")
		} else {
			b.cache, b.redis = c, client
			log.Info().Str("addr", rt.RedisAddr).Dur("ttl", rt.CacheTTL).Msg("Result cache enabled")
		}
	}

	if rt.PersistenceEnabled() {
		db, err := postgres.Open(ctx, rt.PostgresDSN, rt.QueryTimeout)
		if err == nil {
			err = postgres.Migrate(ctx, db)
			if err != nil {
				db.Close()
			}
		}
		if err != nil {
			log.Warn().Err(err).Msg("Run persistence disabled")
		} else {
			var listener circuit.StateListener
			if rec != nil {
				listener = rec.SetBreakerState
			}
			breaker := circuit.New("postgres", rt.Circuit, listener, persistence.ErrNotFound)
			b.db = db
			b.repo = persistence.NewGuarded(postgres.NewRunsRepo(db, rt.QueryTimeout), breaker)
			log.Info().Msg("Run persistence enabled")
		}
	}
	return b
}

// service builds the backtest service over whatever backends are up
func (b *backends) service(observer backtest.Observer) *application.BacktestService {
	var c application.ResultCache
	if b.cache != nil {
		c = b.cache
	}
	var repo persistence.RunsRepo
	if b.repo != nil {
		repo = b.repo
	}
	return application.NewBacktestService(c, repo, observer)
}

// checks reports backend health for GET /health
func (b *backends) checks() map[string]httpapi.Checker {
	checks := make(map[string]httpapi.Checker)
	if b.cache != nil {
		checks["redis"] = func(ctx context.Context) httpapi.CheckResult {
			start := time.Now()
			res := httpapi.CheckResult{Status: "pass"}
			if err := b.cache.Ping(ctx); err != nil {
				res.Status = "fail"
				res.Errors = []string{err.Error()}
			}
			res.Breaker = b.cache.BreakerState()
			res.Duration = time.Since(start).String()
			return res
		}
	}
	if b.repo != nil {
		checks["postgres"] = func(ctx context.Context) httpapi.CheckResult {
			h := b.repo.Health(ctx)
			res := httpapi.CheckResult{
				Status:   "pass",
				Breaker:  b.repo.BreakerState(),
				Errors:   h.Errors,
				Duration: (time.Duration(h.ResponseTimeMS) * time.Millisecond).String(),
			}
			if !h.Healthy {
				res.Status = "fail"
			}
			return res
		}
	}
	return checks
}

func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close postgres pool")
		}
	}
}
