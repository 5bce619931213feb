// Package engine implements the per-(symbol, strategy) signal lifecycle
// state machine (spec.md §4.1): the StrategyEngine, its PnL/partial/
// breakeven helpers, and the provider interfaces it is driven by.
package engine

import (
	"context"
	"time"

	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/signal"
)

// Context is the small immutable value passed into every provider call, so
// a strategy author can read "when" and "backtest" without reaching for
// global state (spec.md §9, "Context propagation").
type Context struct {
	Symbol       string
	When         time.Time
	Backtest     bool
	StrategyName string
	ExchangeName string
	FrameName    string
}

// StrategyProvider is the injected, per-strategy-name collaborator
// (spec.md §6). GetSignal may suspend (it takes a context.Context for
// cancellation) and may return (nil, nil) for "wait".
type StrategyProvider interface {
	GetSignal(ctx context.Context, sigCtx Context) (*signal.Proposal, error)
	Interval() market.Interval
}

// RiskNamed is an optional StrategyProvider extension naming the risk
// validator set(s) to run for this strategy's signals. New consults it via
// the Gate's risk.Registry (risk.Gate.ForStrategy): if the strategy
// implements RiskNamed and the Gate has a Registry attached, RiskName()
// and RiskList() are resolved into a concrete validator chain; otherwise
// the Gate's own fixed Validators apply unchanged.
type RiskNamed interface {
	RiskName() string
	RiskList() []string
}

// Lifecycle callbacks a StrategyProvider may optionally implement.
// Engines invoke whichever of these the provider satisfies; none are
// required.
type (
	OnOpenHook          interface{ OnOpen(signal.ActiveSignal) }
	OnActiveHook        interface{ OnActive(signal.ActiveSignal) }
	OnIdleHook          interface{ OnIdle() }
	OnCloseHook         interface{ OnClose(signal.ActiveSignal, signal.CloseReason, float64) }
	OnScheduleHook      interface{ OnSchedule(signal.ScheduledSignal) }
	OnCancelHook        interface{ OnCancel(signal.ScheduledSignal, signal.CancelReason) }
	OnWriteHook         interface{ OnWrite(signal.ActiveSignal) }
	OnTickHook          interface{ OnTick(time.Time, float64) }
	OnPartialProfitHook interface{ OnPartialProfit(signal.ActiveSignal, float64) }
	OnPartialLossHook   interface{ OnPartialLoss(signal.ActiveSignal, float64) }
	OnBreakevenHook     interface{ OnBreakeven(signal.ActiveSignal) }
	OnPingHook          interface{ OnPing(signal.ActiveSignal) }
)

// ExchangeProvider is the injected, per-exchange-name collaborator
// (spec.md §6). GetCandles must return exactly limit candles whose first
// OpenTime equals the interval-aligned since, and must be side-effect-free.
// In backtest mode the BacktestDriver reports a FatalError when a
// forward-candle fetch starts after, or returns a candle after, the frame's
// last timestamp; fetches are not checked against the current tick's time.
type ExchangeProvider interface {
	GetCandles(ctx context.Context, symbol string, interval market.Interval, since time.Time, limit int) ([]market.Candle, error)
	FormatPrice(symbol string, price float64) string
	FormatQuantity(symbol string, qty float64) string
}

// FrameProvider supplies the finite, ordered, deduplicated tick timeline a
// BacktestDriver replays (spec.md §6, backtest only).
type FrameProvider interface {
	GetTimeframe(symbol string) ([]time.Time, error)
}
