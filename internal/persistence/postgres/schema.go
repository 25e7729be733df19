package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema creates the backtest tables; safe to run repeatedly
const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id                  UUID PRIMARY KEY,
	config              TEXT NOT NULL,
	config_fingerprint  TEXT NOT NULL,
	dataset_fingerprint TEXT NOT NULL,
	events              INTEGER NOT NULL,
	trades              INTEGER NOT NULL,
	win_rate            DOUBLE PRECISION NOT NULL,
	total_pnl           NUMERIC(18,2) NOT NULL,
	sharpe              DOUBLE PRECISION NOT NULL,
	sortino             DOUBLE PRECISION NOT NULL,
	max_drawdown        NUMERIC(18,2) NOT NULL,
	profit_factor       DOUBLE PRECISION NOT NULL,
	skips               JSONB NOT NULL DEFAULT '[]',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS backtest_runs_config_idx ON backtest_runs (config, created_at DESC);

CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id            UUID NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
	seq               INTEGER NOT NULL,
	symbol            TEXT NOT NULL,
	event_date        DATE NOT NULL,
	kind              TEXT NOT NULL,
	rank              INTEGER NOT NULL,
	score             DOUBLE PRECISION NOT NULL,
	contracts         INTEGER NOT NULL,
	fallback          BOOLEAN NOT NULL,
	credit            NUMERIC(18,2) NOT NULL,
	max_loss          NUMERIC(18,2) NOT NULL,
	entry_price       DOUBLE PRECISION NOT NULL,
	exit_price        DOUBLE PRECISION NOT NULL,
	realized_move_pct DOUBLE PRECISION NOT NULL,
	pnl_per_contract  NUMERIC(18,2) NOT NULL,
	pnl               NUMERIC(18,2) NOT NULL,
	rationale         TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, dsn string, timeout time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate applies Schema
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
