package perf

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Alert severities
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
)

// Alert flags a backtest statistic that breached a threshold
type Alert struct {
	Type      string  `json:"type"`     // sharpe, drawdown, win_rate, profit_factor, sample_size
	Severity  string  `json:"severity"` // CRITICAL, WARNING
	Message   string  `json:"message"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Config    string  `json:"config,omitempty"`
}

// AlertThresholds configures CheckAlerts
type AlertThresholds struct {
	MinSharpe      float64 `yaml:"min_sharpe"`       // per-trade Sharpe
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"` // of capital
	MinWinRate     float64 `yaml:"min_win_rate"`
	MinTrades      int     `yaml:"min_trades"`
}

// DefaultAlertThresholds returns conservative review thresholds
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MinSharpe:      0.10,
		MaxDrawdownPct: 0.20,
		MinWinRate:     0.50,
		MinTrades:      10,
	}
}

// CheckAlerts compares stats against thresholds. capital scales the drawdown
// threshold; capital <= 0 skips the drawdown check.
func CheckAlerts(config string, stats Stats, capital float64, th AlertThresholds) []Alert {
	alerts := make([]Alert, 0)

	if stats.Trades < th.MinTrades {
		alerts = append(alerts, Alert{
			Type:      "sample_size",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("only %d trades, statistics are unreliable below %d", stats.Trades, th.MinTrades),
			Metric:    "trades",
			Value:     float64(stats.Trades),
			Threshold: float64(th.MinTrades),
		})
	}

	if stats.Trades >= 2 && stats.Sharpe < th.MinSharpe {
		alerts = append(alerts, Alert{
			Type:      "sharpe",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Sharpe ratio %.3f is below minimum threshold of %.3f", stats.Sharpe, th.MinSharpe),
			Metric:    "sharpe",
			Value:     stats.Sharpe,
			Threshold: th.MinSharpe,
		})
	}

	if capital > 0 && th.MaxDrawdownPct > 0 {
		ddPct := stats.MaxDrawdown / capital
		if ddPct > th.MaxDrawdownPct {
			severity := SeverityWarning
			if ddPct > th.MaxDrawdownPct*1.5 {
				severity = SeverityCritical
			}
			alerts = append(alerts, Alert{
				Type:      "drawdown",
				Severity:  severity,
				Message:   fmt.Sprintf("Maximum drawdown %.2f%% of capital exceeds threshold of %.2f%%", ddPct*100, th.MaxDrawdownPct*100),
				Metric:    "max_drawdown_pct",
				Value:     ddPct,
				Threshold: th.MaxDrawdownPct,
			})
		}
	}

	if stats.Trades > 0 && stats.WinRate < th.MinWinRate {
		alerts = append(alerts, Alert{
			Type:      "win_rate",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Win rate %.2f%% is below %.2f%%", stats.WinRate*100, th.MinWinRate*100),
			Metric:    "win_rate",
			Value:     stats.WinRate,
			Threshold: th.MinWinRate,
		})
	}

	if stats.ProfitFactor > 0 && stats.ProfitFactor < 1.0 {
		alerts = append(alerts, Alert{
			Type:      "profit_factor",
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("Profit factor %.2f indicates net losses", stats.ProfitFactor),
			Metric:    "profit_factor",
			Value:     stats.ProfitFactor,
			Threshold: 1.0,
		})
	}

	for i := range alerts {
		alerts[i].Config = config
	}
	return alerts
}

// AlertSummary counts alerts by severity and type
type AlertSummary struct {
	TotalAlerts int            `json:"total_alerts"`
	BySeverity  map[string]int `json:"by_severity"`
	ByType      map[string]int `json:"by_type"`
	TopAlerts   []Alert        `json:"top_alerts"` // critical first
}

// SummarizeAlerts creates an alert summary
func SummarizeAlerts(alerts []Alert) AlertSummary {
	summary := AlertSummary{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[string]int),
		ByType:      make(map[string]int),
	}

	for _, alert := range alerts {
		summary.BySeverity[alert.Severity]++
		summary.ByType[alert.Type]++
	}

	top := append([]Alert(nil), alerts...)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Severity == SeverityCritical && top[j].Severity != SeverityCritical
	})
	if len(top) > 5 {
		top = top[:5]
	}
	summary.TopAlerts = top
	return summary
}

// LogAlerts writes alerts through the global logger
func LogAlerts(alerts []Alert) {
	for _, alert := range alerts {
		event := log.Warn()
		if alert.Severity == SeverityCritical {
			event = log.Error()
		}
		event.
			Str("config", alert.Config).
			Str("metric", alert.Metric).
			Float64("value", alert.Value).
			Float64("threshold", alert.Threshold).
			Msg(alert.Message)
	}
}
