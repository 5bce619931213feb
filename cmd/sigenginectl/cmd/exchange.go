package cmd

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/driftwood-labs/sigengine/market"
)

// randomWalkExchange is a deterministic, seeded synthetic ExchangeProvider
// for demos: it lazily generates a 1-minute random walk from startPrice and
// serves GetCandles by aggregating that walk into whichever interval width
// is requested. Generation is memoized so repeated or overlapping windows
// (the backtest driver fetches both a small rolling window for VWAP and a
// long forward window for fast-forwarding) see a single consistent series.
type randomWalkExchange struct {
	base       time.Time
	startPrice float64
	volatility float64 // stddev of each 1-minute log-ish step, in price units

	mu      sync.Mutex
	rng     *rand.Rand
	closes  []float64 // closes[i] is the close of the 1-minute candle at base+i*time.Minute
}

func newRandomWalkExchange(base time.Time, startPrice, volatility float64, seed int64) *randomWalkExchange {
	return &randomWalkExchange{
		base: base, startPrice: startPrice, volatility: volatility,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// closeAt returns the 1-minute close at offset, generating and memoizing
// every minute up to offset on first access.
func (e *randomWalkExchange) closeAt(offset int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	for len(e.closes) <= offset {
		prev := e.startPrice
		if len(e.closes) > 0 {
			prev = e.closes[len(e.closes)-1]
		}
		step := e.rng.NormFloat64() * e.volatility
		next := prev + step
		if next <= 0 {
			next = prev
		}
		e.closes = append(e.closes, next)
	}
	return e.closes[offset]
}

func (e *randomWalkExchange) minuteOffset(t time.Time) int {
	off := int(t.Sub(e.base) / time.Minute)
	if off < 0 {
		off = 0
	}
	return off
}

// GetCandles implements engine.ExchangeProvider.
func (e *randomWalkExchange) GetCandles(_ context.Context, _ string, interval market.Interval, since time.Time, limit int) ([]market.Candle, error) {
	width := interval.Duration()
	if width <= 0 {
		width = time.Minute
	}
	minutesPerBucket := int(width / time.Minute)
	if minutesPerBucket < 1 {
		minutesPerBucket = 1
	}

	startOffset := e.minuteOffset(since)
	out := make([]market.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		bucketStart := startOffset + i*minutesPerBucket
		openPrice := e.startPrice
		if bucketStart > 0 {
			openPrice = e.closeAt(bucketStart - 1)
		}
		high, low := openPrice, openPrice
		var volume float64
		closePrice := openPrice
		for m := 0; m < minutesPerBucket; m++ {
			c := e.closeAt(bucketStart + m)
			if c > high {
				high = c
			}
			if c < low {
				low = c
			}
			closePrice = c
			volume += 1
		}
		out = append(out, market.Candle{
			OpenTime: since.Add(time.Duration(i) * width),
			Open:     openPrice, High: high, Low: low, Close: closePrice, Volume: volume,
		})
	}
	return out, nil
}

func (e *randomWalkExchange) FormatPrice(_ string, price float64) string {
	return formatFixed(price, 2)
}

func (e *randomWalkExchange) FormatQuantity(_ string, qty float64) string {
	return formatFixed(qty, 4)
}
