// Package walker implements the WalkerDriver (spec.md §2): an out-of-core
// summary driver that sequentially runs a BacktestDriver for each strategy
// in a list and tracks whichever run scored best by a caller-chosen metric,
// grounded on the teacher's backtest.Runner sequencing.
package walker

import (
	"context"
	"fmt"

	"github.com/driftwood-labs/sigengine/backtest"
	"github.com/driftwood-labs/sigengine/config"
	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/persistence"
	"github.com/driftwood-labs/sigengine/risk"
	"github.com/driftwood-labs/sigengine/signal"
)

// Metric scores a completed backtest.Result; higher is better. Callers pick
// whichever figure of merit matters to them (win rate, trade count, a
// PnL-weighted score computed from their own onResult callback, ...).
type Metric func(backtest.Result) float64

// Candidate is one strategy entry for the walker to run.
type Candidate struct {
	Name         string
	Symbol       string
	StrategyName string
	ExchangeName string
	FrameName    string
	Strategy     engine.StrategyProvider
	Exchange     engine.ExchangeProvider
	Persist      persistence.Adapter
	Gate         *risk.Gate
	Frame        engine.FrameProvider
}

// RunSummary pairs one candidate's name with its backtest result and score.
type RunSummary struct {
	Name   string
	Result backtest.Result
	Score  float64
}

// Driver sequentially runs a BacktestDriver per Candidate, publishing
// progress-walker after each completed run and done-walker once every
// candidate has run.
type Driver struct {
	cfg    *config.Config
	bus    *eventbus.Bus
	metric Metric
}

// New builds a Driver. metric scores each candidate's backtest.Result; if
// nil, winRate (wins/trades, 0 for no trades) is used.
func New(cfg *config.Config, bus *eventbus.Bus, metric Metric) *Driver {
	if metric == nil {
		metric = winRate
	}
	return &Driver{cfg: cfg, bus: bus, metric: metric}
}

func winRate(r backtest.Result) float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Run runs every candidate's BacktestDriver to completion, in order, and
// returns every run's summary plus the index of the best-scoring one. A
// candidate whose driver construction or run fails aborts the whole walk;
// partial results up to that point are still returned alongside the error.
func (d *Driver) Run(ctx context.Context, candidates []Candidate, onResult func(candidateName string, r signal.TickResult)) ([]RunSummary, int, error) {
	summaries := make([]RunSummary, 0, len(candidates))
	best := -1

	for i, c := range candidates {
		eng := engine.New(d.cfg, c.Symbol, c.StrategyName, c.ExchangeName, c.FrameName, true,
			c.Strategy, c.Exchange, c.Persist, c.Gate, d.bus)

		driver, err := backtest.New(d.cfg, eng, c.Exchange, c.Frame, d.bus, c.Symbol, backtest.Options{})
		if err != nil {
			return summaries, best, fmt.Errorf("walker: candidate %q: %w", c.Name, err)
		}

		result, err := driver.Run(ctx, func(r signal.TickResult) {
			if onResult != nil {
				onResult(c.Name, r)
			}
		})
		if err != nil {
			return summaries, best, fmt.Errorf("walker: candidate %q: %w", c.Name, err)
		}

		score := d.metric(result)
		summaries = append(summaries, RunSummary{Name: c.Name, Result: result, Score: score})
		if best == -1 || score > summaries[best].Score {
			best = i
		}

		d.bus.Publish(eventbus.TopicProgressWalker, ProgressEvent{Completed: i + 1, Total: len(candidates), Candidate: c.Name})
	}

	d.bus.Publish(eventbus.TopicDoneWalker, summaries)
	return summaries, best, nil
}

// ProgressEvent is the payload published on the progress-walker topic.
type ProgressEvent struct {
	Completed int
	Total     int
	Candidate string
}
