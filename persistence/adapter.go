// Package persistence implements the crash-safe, per-(symbol, strategy)
// signal store spec.md §4.5 and §6 describe: atomic temp-then-rename
// writes, atomic remove, and an ownership check on restore.
package persistence

import "github.com/driftwood-labs/sigengine/signal"

// Adapter is the interface engines depend on. A backtest run uses NoopAdapter;
// a live run uses FileAdapter (or any other implementation satisfying this
// interface, e.g. a database-backed one).
type Adapter interface {
	// LoadActive restores the persisted ActiveSignal for (symbol, strategy),
	// if any. ok is false when nothing is stored.
	LoadActive(symbol, strategyName string) (sig signal.ActiveSignal, ok bool, err error)

	// SaveActive atomically persists sig as the active record for
	// (sig.Symbol, sig.StrategyName).
	SaveActive(sig signal.ActiveSignal) error

	// DeleteActive atomically removes the active record, if any.
	DeleteActive(symbol, strategyName string) error

	// LoadScheduled restores the persisted ScheduledSignal for
	// (symbol, strategy), if any.
	LoadScheduled(symbol, strategyName string) (sig signal.ScheduledSignal, ok bool, err error)

	// SaveScheduled atomically persists sig as the scheduled record.
	SaveScheduled(sig signal.ScheduledSignal) error

	// DeleteScheduled atomically removes the scheduled record, if any.
	DeleteScheduled(symbol, strategyName string) error
}

// CheckOwnership implements spec.md §3's ownership-marker check: a restored
// record whose (exchangeName, strategyName, symbol) does not match the
// engine performing the restore is stale and must be discarded.
func CheckOwnership(a signal.ActiveSignal, exchangeName, strategyName, symbol string) bool {
	gotExchange, gotStrategy, gotSymbol := a.Owner()
	return gotExchange == exchangeName && gotStrategy == strategyName && gotSymbol == symbol
}
