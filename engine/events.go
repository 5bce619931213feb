package engine

import "github.com/driftwood-labs/sigengine/signal"

// PartialEvent is the payload published on the partial-profit and
// partial-loss topics (spec.md §4.8). Automatic events come from the
// PartialTracker detecting a configured milestone crossing; non-automatic
// events come from an explicit PartialProfit/PartialLoss call that actually
// closed part of the position.
type PartialEvent struct {
	Signal    signal.ActiveSignal
	Level     float64 // configured percent-from-entry level, for automatic events
	ClosedPct float64 // percent of original size closed, for explicit calls
	Price     float64
	Automatic bool
}
