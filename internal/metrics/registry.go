// Package metrics holds the Prometheus instruments for backtests, the HTTP
// API and the result cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "ivcrush"

// Registry holds all Prometheus metrics on a private registerer so that
// tests and multiple servers never collide on the default one
type Registry struct {
	reg *prometheus.Registry

	// Backtest metrics
	BacktestRuns     *prometheus.CounterVec
	ActiveBacktests  prometheus.Gauge
	BacktestEvents   *prometheus.CounterVec
	BacktestTrades   *prometheus.CounterVec
	TradePnL         *prometheus.HistogramVec
	BacktestPnL      *prometheus.GaugeVec
	BacktestSharpe   *prometheus.GaugeVec
	BacktestDuration *prometheus.HistogramVec

	// Scoring metrics
	StrategiesScored *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	// Cache and breaker metrics
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheErrors   *prometheus.CounterVec
	CacheHitRatio *prometheus.GaugeVec
	BreakerState  *prometheus.GaugeVec
}

// NewRegistry creates and registers every metric
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		BacktestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtest_runs_total",
				Help:      "Total number of completed backtest runs by configuration",
			},
			[]string{"config"},
		),

		ActiveBacktests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_backtests",
				Help:      "Number of backtests currently running",
			},
		),

		BacktestEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtest_events_total",
				Help:      "Earnings events processed by configuration and outcome",
			},
			[]string{"config", "outcome"},
		),

		BacktestTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtest_trades_total",
				Help:      "Simulated trades by configuration and result",
			},
			[]string{"config", "result"},
		),

		TradePnL: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backtest_trade_pnl_dollars",
				Help:      "Per-trade P&L in dollars",
				Buckets:   []float64{-10000, -5000, -2500, -1000, -500, -100, 0, 100, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"config"},
		),

		BacktestPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtest_total_pnl_dollars",
				Help:      "Total P&L of the latest run by configuration",
			},
			[]string{"config"},
		),

		BacktestSharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtest_sharpe",
				Help:      "Per-trade Sharpe ratio of the latest run by configuration",
			},
			[]string{"config"},
		),

		BacktestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backtest_duration_seconds",
				Help:      "Wall time of backtest runs",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"config"},
		),

		StrategiesScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategies_scored_total",
				Help:      "Strategies scored through the API by configuration and eligibility",
			},
			[]string{"config", "eligible"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route"},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		CacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Cache operations that failed or were short-circuited",
			},
			[]string{"cache_type", "op"},
		),

		CacheHitRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_hit_ratio",
				Help:      "Current cache hit ratio (0.0 to 1.0) by cache type",
			},
			[]string{"cache_type"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	r.reg.MustRegister(
		r.BacktestRuns,
		r.ActiveBacktests,
		r.BacktestEvents,
		r.BacktestTrades,
		r.TradePnL,
		r.BacktestPnL,
		r.BacktestSharpe,
		r.BacktestDuration,
		r.StrategiesScored,
		r.HTTPRequests,
		r.HTTPDuration,
		r.RateLimited,
		r.CacheHits,
		r.CacheMisses,
		r.CacheErrors,
		r.CacheHitRatio,
		r.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordRequest records one HTTP request
func (r *Registry) RecordRequest(route, method string, status int, duration time.Duration) {
	r.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordScored counts scored strategies for one configuration
func (r *Registry) RecordScored(config string, eligible, ineligible int) {
	r.StrategiesScored.WithLabelValues(config, "true").Add(float64(eligible))
	r.StrategiesScored.WithLabelValues(config, "false").Add(float64(ineligible))
}

// RecordCacheHit records a cache hit for the specified cache type
func (r *Registry) RecordCacheHit(cacheType string) {
	r.CacheHits.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio(cacheType)
}

// RecordCacheMiss records a cache miss for the specified cache type
func (r *Registry) RecordCacheMiss(cacheType string) {
	r.CacheMisses.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio(cacheType)
}

// RecordCacheError records a failed cache operation
func (r *Registry) RecordCacheError(cacheType, op string) {
	r.CacheErrors.WithLabelValues(cacheType, op).Inc()
	log.Warn().
		Str("cache_type", cacheType).
		Str("op", op).
		Msg("Cache error recorded")
}

// SetBreakerState records a breaker transition; state is the gobreaker
// state name
func (r *Registry) SetBreakerState(name, state string) {
	r.BreakerState.WithLabelValues(name).Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	}
	return -1
}

// updateCacheHitRatio recomputes the ratio for one cache type
func (r *Registry) updateCacheHitRatio(cacheType string) {
	hits := CounterValue(r.CacheHits.WithLabelValues(cacheType))
	misses := CounterValue(r.CacheMisses.WithLabelValues(cacheType))
	if total := hits + misses; total > 0 {
		r.CacheHitRatio.WithLabelValues(cacheType).Set(hits / total)
	}
}
