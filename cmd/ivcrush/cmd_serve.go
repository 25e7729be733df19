package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/ivcrush/internal/config"
	httpapi "github.com/sawpanic/ivcrush/internal/interfaces/http"
	"github.com/sawpanic/ivcrush/internal/metrics"
	"github.com/sawpanic/ivcrush/internal/net/ratelimit"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring and backtest HTTP API with Prometheus metrics",
		Long: `Starts the HTTP API:

  POST /v1/rank        rank and size one event's candidates
  POST /v1/backtest    compare configurations over a posted dataset
  GET  /v1/configs     list configurations
  GET  /v1/runs        persisted runs (requires IVCRUSH_PG_DSN)
  GET  /health         backend and breaker status
  GET  /metrics        Prometheus metrics

Redis (IVCRUSH_REDIS_ADDR) and Postgres (IVCRUSH_PG_DSN) are optional.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := a.runtime
			if cmd.Flags().Changed("host") {
				rt.HTTPHost = host
			}
			if cmd.Flags().Changed("port") {
				rt.HTTPPort = port
			}
			return a.serve(rt)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Listen host (overrides IVCRUSH_HTTP_HOST)")
	cmd.Flags().IntVar(&port, "port", 8090, "Listen port (overrides IVCRUSH_HTTP_PORT)")
	return cmd
}

func (a *app) serve(rt config.Runtime) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	b := openBackends(ctx, rt, reg)
	defer b.Close()

	limiter := ratelimit.NewLimiter(rt.RatePerSec, rt.RateBurst)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	server, err := httpapi.NewServer(httpapi.ServerConfigFromRuntime(rt), httpapi.Deps{
		Catalog: a.catalog,
		Service: b.service(reg.Backtest()),
		Metrics: reg,
		Limiter: limiter,
		Checks:  b.checks(),
		Version: version,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
