package engine

import (
	"github.com/shopspring/decimal"

	"github.com/driftwood-labs/sigengine/signal"
)

// PnLCalculator computes realized PnL at close, in decimal.Decimal
// internally so fee/slippage/partial-close blending does not accumulate
// float error (spec.md §4.7). This is the one piece of the engine grounded
// outside the teacher: guyghost-constantine (a trading engine in the
// example pack) depends on shopspring/decimal for exactly this kind of
// money arithmetic, and the teacher itself only ever deals in raw float64
// "scaled price units" with a TODO for real money conversion
// (backtest/candle_engine.go's closePosition), so decimal is the better-
// grounded choice for the one place precision actually matters.
type PnLCalculator struct {
	PercentFee      float64
	PercentSlippage float64
}

// NewPnLCalculator builds a calculator from the process fee/slippage
// configuration.
func NewPnLCalculator(percentFee, percentSlippage float64) *PnLCalculator {
	return &PnLCalculator{PercentFee: percentFee, PercentSlippage: percentSlippage}
}

// Realized returns the realized PnL percent for a full close of pos at
// priceClose, per spec.md §4.7's formula.
func (c *PnLCalculator) Realized(pos signal.Position, priceOpen, priceClose float64) float64 {
	open := decimal.NewFromFloat(priceOpen)
	px := decimal.NewFromFloat(priceClose)
	costFactor := decimal.NewFromFloat(1).Add(decimal.NewFromFloat(c.PercentSlippage + c.PercentFee))
	proceedsFactor := decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(c.PercentSlippage + c.PercentFee))

	var ratio decimal.Decimal
	switch pos {
	case signal.Long:
		// ((priceClose * (1 - fee - slippage)) / (priceOpen * (1 + fee + slippage)) - 1) * 100
		ratio = px.Mul(proceedsFactor).Div(open.Mul(costFactor))
	case signal.Short:
		// symmetric: profit when price falls
		ratio = open.Mul(proceedsFactor).Div(px.Mul(costFactor))
	default:
		return 0
	}

	pct := ratio.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	f, _ := pct.Float64()
	return f
}

// UnrealizedPercent returns the current unrealized profit percent (before
// the close-side fee/slippage haircut Realized applies), used by the
// breakeven and partial trackers to decide whether a threshold has been
// crossed.
func UnrealizedPercent(pos signal.Position, priceOpen, currentPrice float64) float64 {
	open := decimal.NewFromFloat(priceOpen)
	cur := decimal.NewFromFloat(currentPrice)

	var ratio decimal.Decimal
	switch pos {
	case signal.Long:
		ratio = cur.Div(open)
	case signal.Short:
		ratio = open.Div(cur)
	default:
		return 0
	}
	pct := ratio.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	f, _ := pct.Float64()
	return f
}
