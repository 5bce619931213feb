package engine

import "sort"

// PartialTracker maintains, per signal ID, the set of profit and loss
// percent levels already emitted, so each level fires exactly once per
// signal (spec.md §4.7, testable property 4).
type PartialTracker struct {
	levels       []float64
	emittedGain  map[string]map[float64]bool
	emittedLoss  map[string]map[float64]bool
}

// NewPartialTracker builds a tracker that checks the given ascending
// percent levels (e.g. 10, 20, 30, ...).
func NewPartialTracker(levels []float64) *PartialTracker {
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	return &PartialTracker{
		levels:      sorted,
		emittedGain: make(map[string]map[float64]bool),
		emittedLoss: make(map[string]map[float64]bool),
	}
}

// Evaluate reports any profit/loss levels newly crossed by unrealizedPct
// (positive = profit, negative = loss) for the given signal ID. Each
// returned level is guaranteed not to have been returned before for this
// ID.
func (t *PartialTracker) Evaluate(signalID string, unrealizedPct float64) (newProfitLevels, newLossLevels []float64) {
	if unrealizedPct >= 0 {
		seen := t.emittedGain[signalID]
		if seen == nil {
			seen = make(map[float64]bool)
			t.emittedGain[signalID] = seen
		}
		for _, lvl := range t.levels {
			if unrealizedPct >= lvl && !seen[lvl] {
				seen[lvl] = true
				newProfitLevels = append(newProfitLevels, lvl)
			}
		}
	} else {
		loss := -unrealizedPct
		seen := t.emittedLoss[signalID]
		if seen == nil {
			seen = make(map[float64]bool)
			t.emittedLoss[signalID] = seen
		}
		for _, lvl := range t.levels {
			if loss >= lvl && !seen[lvl] {
				seen[lvl] = true
				newLossLevels = append(newLossLevels, lvl)
			}
		}
	}
	return newProfitLevels, newLossLevels
}

// Forget releases the per-signal bookkeeping once a signal closes or is
// cancelled, so the maps do not grow unbounded across a long-running
// engine's lifetime.
func (t *PartialTracker) Forget(signalID string) {
	delete(t.emittedGain, signalID)
	delete(t.emittedLoss, signalID)
}
