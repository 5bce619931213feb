package persistence

import "github.com/driftwood-labs/sigengine/signal"

// NoopAdapter is the backtest-mode Adapter: every call is a no-op, matching
// spec.md §4.5's "backtest mode is a no-op".
type NoopAdapter struct{}

func (NoopAdapter) LoadActive(string, string) (signal.ActiveSignal, bool, error) {
	return signal.ActiveSignal{}, false, nil
}

func (NoopAdapter) SaveActive(signal.ActiveSignal) error { return nil }

func (NoopAdapter) DeleteActive(string, string) error { return nil }

func (NoopAdapter) LoadScheduled(string, string) (signal.ScheduledSignal, bool, error) {
	return signal.ScheduledSignal{}, false, nil
}

func (NoopAdapter) SaveScheduled(signal.ScheduledSignal) error { return nil }

func (NoopAdapter) DeleteScheduled(string, string) error { return nil }
