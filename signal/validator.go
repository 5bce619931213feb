package signal

import (
	"fmt"
	"math"

	"github.com/driftwood-labs/sigengine/config"
)

// InvalidSignalError is returned by Validate when a proposal fails the
// structural or economic checks in spec.md §4.2.
type InvalidSignalError struct {
	Reason string
}

func (e *InvalidSignalError) Error() string {
	return fmt.Sprintf("invalid signal: %s", e.Reason)
}

// Validator checks a Proposal (already resolved to a concrete PriceOpen)
// against the process configuration.
type Validator struct {
	cfg *config.Config
}

// NewValidator builds a Validator bound to cfg.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate implements spec.md §4.2. priceOpen must already be resolved
// (current VWAP for immediate signals, or the proposal's PriceOpen for
// scheduled ones).
func (v *Validator) Validate(p Proposal, priceOpen float64) error {
	if !isFinitePositive(priceOpen) || !isFinitePositive(p.PriceTakeProfit) ||
		!isFinitePositive(p.PriceStopLoss) {
		return &InvalidSignalError{Reason: "priceOpen, priceTakeProfit, and priceStopLoss must be finite and positive"}
	}
	if p.MinuteEstimatedTime <= 0 {
		return &InvalidSignalError{Reason: "minuteEstimatedTime must be positive"}
	}

	switch p.Position {
	case Long:
		if !(p.PriceTakeProfit > priceOpen && priceOpen > p.PriceStopLoss) {
			return &InvalidSignalError{Reason: "long requires priceTakeProfit > priceOpen > priceStopLoss"}
		}
	case Short:
		if !(p.PriceStopLoss > priceOpen && priceOpen > p.PriceTakeProfit) {
			return &InvalidSignalError{Reason: "short requires priceStopLoss > priceOpen > priceTakeProfit"}
		}
	default:
		return &InvalidSignalError{Reason: fmt.Sprintf("unknown position %q", p.Position)}
	}

	tpDistancePct := math.Abs(p.PriceTakeProfit-priceOpen) / priceOpen
	minTP := (v.cfg.PercentSlippage+v.cfg.PercentFee)*2 + v.cfg.MinProfitMarginPct
	if tpDistancePct < minTP {
		return &InvalidSignalError{Reason: fmt.Sprintf(
			"take-profit distance %.4f%% below minimum %.4f%%", tpDistancePct*100, minTP*100)}
	}

	slDistancePct := math.Abs(priceOpen-p.PriceStopLoss) / priceOpen
	if slDistancePct < v.cfg.MinStopLossDistancePct || slDistancePct > v.cfg.MaxStopLossDistancePct {
		return &InvalidSignalError{Reason: fmt.Sprintf(
			"stop-loss distance %.4f%% outside [%.4f%%, %.4f%%]",
			slDistancePct*100, v.cfg.MinStopLossDistancePct*100, v.cfg.MaxStopLossDistancePct*100)}
	}

	if p.MinuteEstimatedTime > v.cfg.MaxSignalLifetimeMinutes {
		return &InvalidSignalError{Reason: fmt.Sprintf(
			"minuteEstimatedTime %d exceeds max %d", p.MinuteEstimatedTime, v.cfg.MaxSignalLifetimeMinutes)}
	}

	return nil
}

func isFinitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
