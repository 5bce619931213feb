package backtest

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

// flatExchange serves 1-minute candles from an in-memory, gapless series
// starting at baseTime, every candle holding price flat unless overridden.
type flatExchange struct {
	base    time.Time
	candles map[int64]market.Candle // minute offset from base -> candle
	flat    float64
}

func newFlatExchange(base time.Time, flat float64) *flatExchange {
	return &flatExchange{base: base, candles: make(map[int64]market.Candle), flat: flat}
}

func (e *flatExchange) set(minuteOffset int64, c market.Candle) {
	e.candles[minuteOffset] = c
}

func (e *flatExchange) GetCandles(_ context.Context, _ string, _ market.Interval, since time.Time, limit int) ([]market.Candle, error) {
	out := make([]market.Candle, 0, limit)
	offset := int64(since.Sub(e.base) / time.Minute)
	for i := 0; i < limit; i++ {
		mo := offset + int64(i)
		t := e.base.Add(time.Duration(mo) * time.Minute)
		if c, ok := e.candles[mo]; ok {
			c.OpenTime = t
			out = append(out, c)
			continue
		}
		out = append(out, market.Candle{OpenTime: t, Open: e.flat, High: e.flat, Low: e.flat, Close: e.flat, Volume: 1})
	}
	return out, nil
}

func (e *flatExchange) FormatPrice(_ string, price float64) string    { return "" }
func (e *flatExchange) FormatQuantity(_ string, qty float64) string   { return "" }

// onceStrategy returns a single proposal on its first GetSignal call, then
// waits forever.
type onceStrategy struct {
	proposal *signal.Proposal
	fired    bool
	interval market.Interval
}

func (s *onceStrategy) GetSignal(_ context.Context, _ engine.Context) (*signal.Proposal, error) {
	if s.fired {
		return nil, nil
	}
	s.fired = true
	return s.proposal, nil
}

func (s *onceStrategy) Interval() market.Interval {
	if s.interval == "" {
		return market.Interval1m
	}
	return s.interval
}

func TestDriverFastForwardsToTakeProfit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := UniformFrame{Start: base, End: base.Add(200 * time.Minute), Interval: time.Minute}

	exchange := newFlatExchange(base, 50000)
	// the candle 3 minutes after entry touches take-profit.
	exchange.set(3, market.Candle{Open: 50200, High: 51200, Low: 50100, Close: 51000})

	strategy := &onceStrategy{proposal: &signal.Proposal{
		Position: signal.Long, PriceTakeProfit: 51000, PriceStopLoss: 49000, MinuteEstimatedTime: 60,
	}}

	cfg := config.Default()
	cfg.MinProfitMarginPct = 0.001
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", true, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	driver, err := New(cfg, eng, exchange, frame, bus, "BTCUSDT", Options{})
	require.NoError(t, err)

	r, ok, err := driver.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, signal.KindClosed, r.Kind)
	require.Equal(t, signal.CloseTakeProfit, r.CloseReason)

	_, ok, err = driver.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok, "strategy never proposes again")
}

func TestDriverScheduleTimeoutYieldsCancelled(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := UniformFrame{Start: base, End: base.Add(240 * time.Minute), Interval: time.Minute}

	exchange := newFlatExchange(base, 50000)
	strategy := &onceStrategy{proposal: &signal.Proposal{
		Position: signal.Short, PriceOpen: 50500, PriceTakeProfit: 49000, PriceStopLoss: 51500, MinuteEstimatedTime: 120,
	}}

	cfg := config.Default()
	cfg.ScheduleAwaitMinutes = 120
	cfg.MinProfitMarginPct = 0.001
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", true, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	driver, err := New(cfg, eng, exchange, frame, bus, "BTCUSDT", Options{})
	require.NoError(t, err)

	r, ok, err := driver.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, signal.KindCancelled, r.Kind)
	require.Equal(t, signal.CancelScheduleTimeout, r.CancelReason)
}

func TestDriverRunAggregatesResult(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := UniformFrame{Start: base, End: base.Add(200 * time.Minute), Interval: time.Minute}

	exchange := newFlatExchange(base, 50000)
	exchange.set(3, market.Candle{Open: 50200, High: 51200, Low: 50100, Close: 51000})

	strategy := &onceStrategy{proposal: &signal.Proposal{
		Position: signal.Long, PriceTakeProfit: 51000, PriceStopLoss: 49000, MinuteEstimatedTime: 60,
	}}

	cfg := config.Default()
	cfg.MinProfitMarginPct = 0.001
	gate := risk.NewGate(risk.NewPortfolio())
	bus := eventbus.New()
	eng := engine.New(cfg, "BTCUSDT", "s1", "x1", "", true, strategy, exchange, persistence.NoopAdapter{}, gate, bus)

	driver, err := New(cfg, eng, exchange, frame, bus, "BTCUSDT", Options{})
	require.NoError(t, err)

	var seen []signal.TickResult
	result, err := driver.Run(context.Background(), func(r signal.TickResult) {
		seen = append(seen, r)
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	require.Equal(t, 1, result.Trades)
	require.Equal(t, 1, result.Wins)
}
