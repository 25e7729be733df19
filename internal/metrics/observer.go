package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sawpanic/ivcrush/internal/backtest"
)

// BacktestObserver feeds backtest callbacks into the registry
type BacktestObserver struct {
	reg *Registry
	now func() time.Time

	mu      sync.Mutex
	started map[string]time.Time
}

// Backtest returns an observer bound to the registry
func (r *Registry) Backtest() *BacktestObserver {
	return &BacktestObserver{reg: r, now: time.Now, started: make(map[string]time.Time)}
}

func (o *BacktestObserver) RunStarted(config string, _ int) {
	o.mu.Lock()
	o.started[config] = o.now()
	o.mu.Unlock()
	o.reg.ActiveBacktests.Inc()
}

func (o *BacktestObserver) EventProcessed(config string, _, _ int, trades []backtest.Trade, skip *backtest.Skip) {
	if skip != nil {
		o.reg.BacktestEvents.WithLabelValues(config, "skip").Inc()
		return
	}
	o.reg.BacktestEvents.WithLabelValues(config, "trade").Inc()
	for _, t := range trades {
		result := "loss"
		if t.Win() {
			result = "win"
		}
		o.reg.BacktestTrades.WithLabelValues(config, result).Inc()
		o.reg.TradePnL.WithLabelValues(config).Observe(t.PnL)
	}
}

func (o *BacktestObserver) RunFinished(config string, result *backtest.Result) {
	o.reg.ActiveBacktests.Dec()
	o.reg.BacktestRuns.WithLabelValues(config).Inc()
	o.reg.BacktestPnL.WithLabelValues(config).Set(result.Stats.TotalPnL)
	o.reg.BacktestSharpe.WithLabelValues(config).Set(result.Stats.Sharpe)

	o.mu.Lock()
	start, ok := o.started[config]
	delete(o.started, config)
	o.mu.Unlock()
	if ok {
		o.reg.BacktestDuration.WithLabelValues(config).Observe(o.now().Sub(start).Seconds())
	}
}

// CounterValue reads the current value of a counter
func CounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// GaugeValue reads the current value of a gauge
func GaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
