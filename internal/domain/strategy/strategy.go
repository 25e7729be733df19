// Package strategy holds the option strategy model shared by the scoring,
// sizing and backtest packages.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ContractMultiplier is the number of shares controlled by one option contract
const ContractMultiplier = 100.0

// OptionType is the option right of a leg
type OptionType string

const (
	Put  OptionType = "put"
	Call OptionType = "call"
)

// Role tells whether the leg was sold (premium collected) or bought (protection)
type Role string

const (
	Short Role = "short"
	Long  Role = "long"
)

// Kind names the strategy variant
type Kind string

const (
	KindNaked          Kind = "naked"
	KindVerticalCredit Kind = "vertical_credit"
	KindIronCondor     Kind = "iron_condor"
	KindIronButterfly  Kind = "iron_butterfly"
)

// Valid reports whether k is a known strategy kind
func (k Kind) Valid() bool {
	switch k {
	case KindNaked, KindVerticalCredit, KindIronCondor, KindIronButterfly:
		return true
	}
	return false
}

// Greeks are position sensitivities; for a Strategy they are net of all legs
type Greeks struct {
	Delta float64 `json:"delta" yaml:"delta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Theta float64 `json:"theta" yaml:"theta"`
	Vega  float64 `json:"vega" yaml:"vega"`
}

// LiquiditySnapshot is the order-book quality of a single option contract
type LiquiditySnapshot struct {
	OpenInterest int     `json:"open_interest" yaml:"open_interest"`
	SpreadPct    float64 `json:"spread_pct" yaml:"spread_pct"` // (ask-bid)/mid × 100
	Volume       int     `json:"volume" yaml:"volume"`
}

// Leg is one option position inside a strategy. Liquidity and Greeks are nil
// when the market snapshot did not carry them.
type Leg struct {
	Type      OptionType         `json:"type" yaml:"type"`
	Role      Role               `json:"role" yaml:"role"`
	Strike    float64            `json:"strike" yaml:"strike"`
	Liquidity *LiquiditySnapshot `json:"liquidity,omitempty" yaml:"liquidity,omitempty"`
	Greeks    *Greeks            `json:"greeks,omitempty" yaml:"greeks,omitempty"`
}

// IntrinsicAt returns the per-share intrinsic value of the leg with the
// underlying at price
func (l Leg) IntrinsicAt(price float64) float64 {
	switch l.Type {
	case Call:
		return math.Max(0, price-l.Strike)
	case Put:
		return math.Max(0, l.Strike-price)
	}
	return 0
}

func (l Leg) sign() float64 {
	if l.Role == Short {
		return -1
	}
	return 1
}

// Strategy is a candidate trade for one underlying and expiration.
// Credit and MaxLoss are dollars per contract.
type Strategy struct {
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Expiration time.Time `json:"expiration" yaml:"expiration"`
	Kind       Kind      `json:"kind" yaml:"kind"`
	Legs       []Leg     `json:"legs" yaml:"legs"`
	Credit     float64   `json:"credit" yaml:"credit"`
	MaxLoss    float64   `json:"max_loss" yaml:"max_loss"`
	Breakevens []float64 `json:"breakevens" yaml:"breakevens"`
	POP        float64   `json:"pop" yaml:"pop"`
	RewardRisk float64   `json:"reward_risk" yaml:"reward_risk"`
	Greeks     *Greeks   `json:"greeks,omitempty" yaml:"greeks,omitempty"`
}

var (
	ErrUnknownKind    = errors.New("unknown strategy kind")
	ErrNoLegs         = errors.New("strategy has no legs")
	ErrBreakevenCount = errors.New("strategy needs one or two breakevens")
)

// Validate performs structural checks only. Economic fields (POP, RR) are
// validated where they are consumed, so bad market data degrades instead of
// failing the batch.
func (s Strategy) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if len(s.Legs) == 0 {
		return ErrNoLegs
	}
	if n := len(s.Breakevens); n < 1 || n > 2 {
		return fmt.Errorf("%w: got %d", ErrBreakevenCount, n)
	}
	if len(s.Breakevens) == 2 && s.Breakevens[0] > s.Breakevens[1] {
		return fmt.Errorf("breakevens out of order: %.2f > %.2f", s.Breakevens[0], s.Breakevens[1])
	}
	return nil
}

// ShortLegs returns the legs where premium was collected
func (s Strategy) ShortLegs() []Leg {
	short := make([]Leg, 0, len(s.Legs))
	for _, leg := range s.Legs {
		if leg.Role == Short {
			short = append(short, leg)
		}
	}
	return short
}

// IsDoubleSided reports whether the strategy has a bounded profit zone
func (s Strategy) IsDoubleSided() bool {
	return len(s.Breakevens) == 2
}

// NetGreeks prefers the strategy-level greeks and otherwise nets the per-leg
// greeks by role. Returns nil when no greeks are known at all.
func (s Strategy) NetGreeks() *Greeks {
	if s.Greeks != nil {
		g := *s.Greeks
		return &g
	}

	var net Greeks
	found := false
	for _, leg := range s.Legs {
		if leg.Greeks == nil {
			continue
		}
		found = true
		sign := leg.sign()
		net.Delta += sign * leg.Greeks.Delta
		net.Gamma += sign * leg.Greeks.Gamma
		net.Theta += sign * leg.Greeks.Theta
		net.Vega += sign * leg.Greeks.Vega
	}
	if !found {
		return nil
	}
	return &net
}

// PayoffAt returns the expiration P&L of one contract with the underlying at
// price. Strategies without legs fall back to the breakeven model: full
// credit inside the profit zone, full max loss outside it.
func (s Strategy) PayoffAt(price float64) float64 {
	if len(s.Legs) == 0 {
		if s.inProfitZone(price) {
			return s.Credit
		}
		return -s.MaxLoss
	}

	pnl := s.Credit
	for _, leg := range s.Legs {
		pnl += leg.sign() * leg.IntrinsicAt(price) * ContractMultiplier
	}
	return pnl
}

func (s Strategy) inProfitZone(price float64) bool {
	switch len(s.Breakevens) {
	case 1:
		// single breakeven: side of the zone follows the short option
		for _, leg := range s.ShortLegs() {
			if leg.Type == Call {
				return price <= s.Breakevens[0]
			}
		}
		return price >= s.Breakevens[0]
	case 2:
		return price >= s.Breakevens[0] && price <= s.Breakevens[1]
	}
	return false
}

// Label is a short human-readable description used in logs and reports
func (s Strategy) Label() string {
	return fmt.Sprintf("%s %s %s", s.Symbol, s.Kind, s.Expiration.Format("2006-01-02"))
}
