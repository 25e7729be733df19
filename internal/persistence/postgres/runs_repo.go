package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/persistence"
)

// RunsRepo implements persistence.RunsRepo for PostgreSQL
type RunsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
	newID   func() uuid.UUID
}

// NewRunsRepo creates a new PostgreSQL backtest run repository
func NewRunsRepo(db *sqlx.DB, timeout time.Duration) *RunsRepo {
	return &RunsRepo{db: db, timeout: timeout, newID: uuid.New}
}

var _ persistence.RunsRepo = (*RunsRepo)(nil)

const runColumns = `id, config, config_fingerprint, dataset_fingerprint, events, trades,
	win_rate, total_pnl, sharpe, sortino, max_drawdown, profit_factor, created_at`

// tradeRow is the table shape of a backtest trade
type tradeRow struct {
	Symbol          string    `db:"symbol"`
	EventDate       time.Time `db:"event_date"`
	Kind            string    `db:"kind"`
	Rank            int       `db:"rank"`
	Score           float64   `db:"score"`
	Contracts       int       `db:"contracts"`
	Fallback        bool      `db:"fallback"`
	Credit          float64   `db:"credit"`
	MaxLoss         float64   `db:"max_loss"`
	EntryPrice      float64   `db:"entry_price"`
	ExitPrice       float64   `db:"exit_price"`
	RealizedMovePct float64   `db:"realized_move_pct"`
	PnLPerContract  float64   `db:"pnl_per_contract"`
	PnL             float64   `db:"pnl"`
	Rationale       string    `db:"rationale"`
}

func (r tradeRow) trade() backtest.Trade {
	return backtest.Trade{
		Symbol:          r.Symbol,
		Date:            r.EventDate,
		Kind:            strategy.Kind(r.Kind),
		Rank:            r.Rank,
		Score:           r.Score,
		Contracts:       r.Contracts,
		Fallback:        r.Fallback,
		Credit:          r.Credit,
		MaxLoss:         r.MaxLoss,
		EntryPrice:      r.EntryPrice,
		ExitPrice:       r.ExitPrice,
		RealizedMovePct: r.RealizedMovePct,
		PnLPerContract:  r.PnLPerContract,
		PnL:             r.PnL,
		Rationale:       r.Rationale,
	}
}

// Save inserts the run header and its trades in one transaction
func (r *RunsRepo) Save(ctx context.Context, res *backtest.Result, datasetFingerprint string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(res.Trades)/100+1))
	defer cancel()

	run := persistence.RunFromResult(res, datasetFingerprint)
	run.ID = r.newID()

	skipsJSON, err := json.Marshal(res.Skips)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal skips: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, config, config_fingerprint, dataset_fingerprint, events, trades,
			win_rate, total_pnl, sharpe, sortino, max_drawdown, profit_factor, skips)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.Config, run.ConfigFingerprint, run.DatasetFingerprint, run.Events, run.Trades,
		run.WinRate, run.TotalPnL, run.Sharpe, run.Sortino, run.MaxDrawdown, run.ProfitFactor, skipsJSON)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return uuid.Nil, fmt.Errorf("duplicate run %s: %w", run.ID, err)
		}
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, seq, symbol, event_date, kind, rank, score, contracts, fallback,
			credit, max_loss, entry_price, exit_price, realized_move_pct, pnl_per_contract, pnl, rationale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range res.Trades {
		_, err = stmt.ExecContext(ctx,
			run.ID, i, t.Symbol, t.Date, string(t.Kind), t.Rank, t.Score, t.Contracts, t.Fallback,
			t.Credit, t.MaxLoss, t.EntryPrice, t.ExitPrice, t.RealizedMovePct, t.PnLPerContract, t.PnL, t.Rationale)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// Get returns one run header
func (r *RunsRepo) Get(ctx context.Context, id uuid.UUID) (*persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.Run
	err := r.db.QueryRowxContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE id = $1`, id).StructScan(&run)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// Trades returns the trades of a run in insertion order
func (r *RunsRepo) Trades(ctx context.Context, id uuid.UUID) ([]backtest.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []tradeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT symbol, event_date, kind, rank, score, contracts, fallback, credit, max_loss,
			entry_price, exit_price, realized_move_pct, pnl_per_contract, pnl, rationale
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}

	trades := make([]backtest.Trade, len(rows))
	for i, row := range rows {
		trades[i] = row.trade()
	}
	return trades, nil
}

// ListByConfig returns the most recent runs of one configuration
func (r *RunsRepo) ListByConfig(ctx context.Context, config string, limit int) ([]persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	runs := make([]persistence.Run, 0)
	err := r.db.SelectContext(ctx, &runs, `
		SELECT `+runColumns+`
		FROM backtest_runs
		WHERE config = $1
		ORDER BY created_at DESC
		LIMIT $2`, config, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by config: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent runs across all configurations
func (r *RunsRepo) Latest(ctx context.Context, limit int) ([]persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	runs := make([]persistence.Run, 0)
	err := r.db.SelectContext(ctx, &runs, `
		SELECT `+runColumns+`
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	return runs, nil
}

// Health pings the database
func (r *RunsRepo) Health(ctx context.Context) persistence.HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	check := persistence.HealthCheck{Healthy: true, LastCheck: start.UTC()}
	if err := r.db.PingContext(ctx); err != nil {
		check.Healthy = false
		check.Errors = append(check.Errors, err.Error())
	}
	check.ResponseTimeMS = time.Since(start).Milliseconds()
	return check
}
