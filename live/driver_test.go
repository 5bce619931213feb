package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftwood-labs/sigengine/config"
	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/persistence"
	"github.com/driftwood-labs/sigengine/risk"
	"github.com/driftwood-labs/sigengine/signal"
)

// fakeClock advances in fixed steps on every Sleep call, without ever
// actually blocking, so tests run instantly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
}

// seqExchange serves a price that steps through a scripted sequence keyed
// by elapsed minutes since base, holding the last value once exhausted.
type seqExchange struct {
	base   time.Time
	prices []float64
}

func (e *seqExchange) priceAt(when time.Time) float64 {
	offset := int(when.Sub(e.base) / time.Minute)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(e.prices) {
		offset = len(e.prices) - 1
	}
	return e.prices[offset]
}

func (e *seqExchange) GetCandles(_ context.Context, _ string, _ market.Interval, since time.Time, limit int) ([]market.Candle, error) {
	out := make([]market.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		t := since.Add(time.Duration(i) * time.Minute)
		p := e.priceAt(t)
		out = append(out, market.Candle{OpenTime: t, Open: p, High: p, Low: p, Close: p, Volume: 1})
	}
	return out, nil
}

func (e *seqExchange) FormatPrice(_ string, _ float64) string    { return "" }
func (e *seqExchange) FormatQuantity(_ string, _ float64) string { return "" }

// onceStrategy returns a single proposal on its first GetSignal call, then
// waits forever.
type onceStrategy struct {
	proposal *signal.Proposal
	fired    bool
}

func (s *onceStrategy) GetSignal(_ context.Context, _ engine.Context) (*signal.Proposal, error) {
	if s.fired {
		return nil, nil
	}
	s.fired = true
	return s.proposal, nil
}

func (s *onceStrategy) Interval() market.Interval { return market.Interval1m }

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.MinProfitMarginPct = 0.001
	cfg.AvgPriceCandlesCount = 1
	cfg.TickTTL = time.Minute
	return cfg
}

// TestDriverTicksUntilClosed drives a live engine tick by tick (no
// fast-forwarding, unlike the backtest driver) through open -> active ->
// take-profit close, stopping the loop via context cancellation once the
// close event is observed.
func TestDriverTicksUntilClosed(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exchange := &seqExchange{base: base, prices: []float64{50000, 50100, 51500}}
	strategy := &onceStrategy{proposal: &signal.Proposal{
		Position: signal.Long, PriceTakeProfit: 51000, PriceStopLoss: 49000, MinuteEstimatedTime: 120,
	}}

	cfg := newTestConfig()
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", false, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	clock := &fakeClock{now: base}
	driver := New(cfg, eng, exchange, bus, "BTCUSDT", Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	var seen []signal.TickResult
	err := driver.Run(ctx, func(r signal.TickResult) {
		seen = append(seen, r)
		if r.Kind == signal.KindClosed {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, seen, 2)
	require.Equal(t, signal.KindOpened, seen[0].Kind)
	require.Equal(t, signal.KindClosed, seen[1].Kind)
	require.Equal(t, signal.CloseTakeProfit, seen[1].CloseReason)
}

// TestDriverCooperativeShutdownDrainsActiveSignal confirms that calling
// Stop while a signal is active does not cut the loop short: Run keeps
// ticking until the in-flight signal reaches a terminal state, then
// returns cleanly with no error.
func TestDriverCooperativeShutdownDrainsActiveSignal(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exchange := &seqExchange{base: base, prices: []float64{50000, 50100, 51500}}
	strategy := &onceStrategy{proposal: &signal.Proposal{
		Position: signal.Long, PriceTakeProfit: 51000, PriceStopLoss: 49000, MinuteEstimatedTime: 120,
	}}

	cfg := newTestConfig()
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", false, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	clock := &fakeClock{now: base}
	driver := New(cfg, eng, exchange, bus, "BTCUSDT", Options{Clock: clock})

	var seen []signal.TickResult
	err := driver.Run(context.Background(), func(r signal.TickResult) {
		seen = append(seen, r)
		if r.Kind == signal.KindOpened {
			driver.Stop() // shutdown requested while a signal is in flight
		}
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.Equal(t, signal.KindOpened, seen[0].Kind)
	require.Equal(t, signal.KindClosed, seen[1].Kind)
}

// TestDriverRestoresPersistedActiveSignalOnFirstTick exercises
// crash-recovery at the driver level: a signal persisted by a prior
// process is picked up on the very first tick and carried to its
// take-profit close.
func TestDriverRestoresPersistedActiveSignalOnFirstTick(t *testing.T) {
	dir := t.TempDir()
	adapter, err := persistence.NewFileAdapter(dir)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, adapter.SaveActive(signal.ActiveSignal{
		ID: "sig-1", Symbol: "BTCUSDT", StrategyName: "s1", ExchangeName: "x1",
		Position: signal.Long, PriceOpen: 50000, PriceTakeProfit: 51000, PriceStopLoss: 49000,
		OriginalPriceTakeProfit: 51000, OriginalPriceStopLoss: 49000,
		MinuteEstimatedTime: 120, ScheduledAt: base, PendingAt: base,
	}))

	exchange := &seqExchange{base: base, prices: []float64{50100, 51500}}
	strategy := &onceStrategy{} // never proposes; the restored signal drives everything

	cfg := newTestConfig()
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", false, strategy, exchange, adapter, gate, bus)

	clock := &fakeClock{now: base}
	driver := New(cfg, eng, exchange, bus, "BTCUSDT", Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	var seen []signal.TickResult
	err = driver.Run(ctx, func(r signal.TickResult) {
		seen = append(seen, r)
		if r.Kind == signal.KindClosed {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, seen, 1)
	require.Equal(t, signal.KindClosed, seen[0].Kind)
	require.Equal(t, "sig-1", seen[0].Signal.ID)
	require.Equal(t, signal.CloseTakeProfit, seen[0].CloseReason)
}

// TestDriverPublishesDoneLiveOnCleanExit confirms Run publishes
// TopicDoneLive (not just TopicExit) when it returns cleanly, matching
// backtest.Driver's TopicDoneBacktest and walker.Driver's TopicDoneWalker.
func TestDriverPublishesDoneLiveOnCleanExit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exchange := &seqExchange{base: base, prices: []float64{50000}}
	strategy := &onceStrategy{} // never proposes; loop exits once Stop drains to idle

	cfg := newTestConfig()
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", false, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	done := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.TopicDoneLive, func(ev eventbus.Event) {
		done <- ev
	})

	clock := &fakeClock{now: base}
	driver := New(cfg, eng, exchange, bus, "BTCUSDT", Options{Clock: clock})
	driver.Stop() // nothing ever opens, so the very first drained() check exits cleanly

	err := driver.Run(context.Background(), nil)
	require.NoError(t, err)

	select {
	case ev := <-done:
		require.Nil(t, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for TopicDoneLive")
	}
}
