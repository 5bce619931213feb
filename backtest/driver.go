// Package backtest implements the BacktestDriver (spec.md §4.3): a finite,
// lazily-pulled sequence of terminal tick results over a frame of historical
// timestamps, fast-forwarding through candles once a signal opens rather
// than ticking one simulated minute at a time.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftwood-labs/sigengine/config"
	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/signal"
)

// defaultBufferMinutes pads the forward-candle fetch past
// ScheduleAwaitMinutes+minuteEstimatedTime so a signal that activates near
// the end of its await window still has its full lifetime's worth of
// candles on hand without a second fetch.
const defaultBufferMinutes = 5

// Options configures a Driver beyond its required collaborators.
type Options struct {
	// BufferMinutes pads the forward-candle fetch window (see
	// defaultBufferMinutes). Zero selects the default.
	BufferMinutes int
}

// Driver is a pull-based iterator: call Next repeatedly until ok is false.
// It is not safe for concurrent use.
type Driver struct {
	cfg      *config.Config
	engine   *engine.Engine
	exchange engine.ExchangeProvider
	bus      *eventbus.Bus
	symbol   string

	bufferMinutes int

	timestamps []time.Time
	idx        int
	total      int

	tradesSeen int
	wins       int
	losses     int
	start, end time.Time
}

// New builds a Driver over the timestamps frame.GetTimeframe(symbol)
// returns, which must be non-empty and ordered.
func New(
	cfg *config.Config,
	eng *engine.Engine,
	exchange engine.ExchangeProvider,
	frame engine.FrameProvider,
	bus *eventbus.Bus,
	symbol string,
	opts Options,
) (*Driver, error) {
	timestamps, err := frame.GetTimeframe(symbol)
	if err != nil {
		return nil, fmt.Errorf("backtest: get timeframe: %w", err)
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("backtest: frame produced an empty timeline for %s", symbol)
	}

	buffer := opts.BufferMinutes
	if buffer <= 0 {
		buffer = defaultBufferMinutes
	}

	return &Driver{
		cfg: cfg, engine: eng, exchange: exchange, bus: bus, symbol: symbol,
		bufferMinutes: buffer,
		timestamps:    timestamps,
		total:         len(timestamps),
	}, nil
}

// Result summarizes a completed (or aborted) backtest run, in the spirit of
// the teacher's own backtest.Result.
type Result struct {
	Trades, Wins, Losses int
	Start, End           time.Time
}

// Next advances the driver by at least one frame timestamp and returns the
// next terminal event (opened-then-fast-forwarded-to-closed, cancelled, or a
// direct cancellation reached without ever opening). ok is false once the
// frame is exhausted or the engine has stopped with nothing in flight.
func (d *Driver) Next(ctx context.Context) (signal.TickResult, bool, error) {
	for d.idx < d.total {
		if d.engineIsDrained() {
			return signal.TickResult{}, false, nil
		}

		when := d.timestamps[d.idx]
		currentPrice, err := d.currentPrice(ctx, when)
		if err != nil {
			return signal.TickResult{}, false, fmt.Errorf("backtest: fetch current price at %s: %w", when, err)
		}

		result := d.engine.Tick(ctx, when, currentPrice)
		d.idx++

		if result.Kind == signal.KindOpened {
			final, err := d.fastForward(ctx, result)
			if err != nil {
				var fatal *engine.FatalError
				if errors.As(err, &fatal) {
					d.bus.Publish(eventbus.TopicExit, fatal)
				}
				return signal.TickResult{}, false, err
			}
			d.recordTerminal(final)
			d.emitProgress()
			return final, true, nil
		}

		d.emitProgress()

		if result.Kind == signal.KindClosed || result.Kind == signal.KindCancelled {
			d.recordTerminal(result)
			return result, true, nil
		}
		// idle/active/scheduled: not yielded, advance to the next timestamp.
	}
	return signal.TickResult{}, false, nil
}

func (d *Driver) engineIsDrained() bool {
	if !d.engine.Stopped() {
		return false
	}
	if _, ok := d.engine.Active(); ok {
		return false
	}
	if _, ok := d.engine.Scheduled(); ok {
		return false
	}
	return true
}

// fastForward implements spec.md §4.3 step 4: fetch enough 1-minute candles
// to cover the worst case the newly opened signal could live through, feed
// them to Engine.Backtest, and advance the driver's own index past the
// candle timeline the fast-forward consumed.
func (d *Driver) fastForward(ctx context.Context, opened signal.TickResult) (signal.TickResult, error) {
	sig := opened.Signal
	limit := d.bufferMinutes + d.cfg.ScheduleAwaitMinutes + sig.MinuteEstimatedTime + 1
	since := market.AlignTime(sig.PendingAt, time.Minute)

	frameEnd := d.timestamps[d.total-1]
	if since.After(frameEnd) {
		return signal.TickResult{}, &engine.FatalError{
			Op: "fetch-forward-candles", Err: fmt.Errorf("since %s is beyond the frame's end %s", since, frameEnd),
		}
	}

	candles, err := d.exchange.GetCandles(ctx, d.symbol, market.Interval1m, since, limit)
	if err != nil {
		return signal.TickResult{}, fmt.Errorf("backtest: fetch forward candles: %w", err)
	}
	for _, c := range candles {
		if c.OpenTime.After(frameEnd) {
			return signal.TickResult{}, &engine.FatalError{
				Op:  "fetch-forward-candles",
				Err: fmt.Errorf("candle at %s is beyond the frame's end %s (look-ahead)", c.OpenTime, frameEnd),
			}
		}
	}

	result := d.engine.Backtest(candles, time.Minute)
	d.advanceIndexTo(result.Time)
	return result, nil
}

// advanceIndexTo skips the driver's own timestamp cursor past any frame
// ticks the fast-forward already accounted for, per spec.md §4.3 step 4's
// "set i forward to the close timestamp".
func (d *Driver) advanceIndexTo(t time.Time) {
	for d.idx < d.total && d.timestamps[d.idx].Before(t) {
		d.idx++
	}
}

func (d *Driver) currentPrice(ctx context.Context, when time.Time) (float64, error) {
	n := d.cfg.AvgPriceCandlesCount
	aligned := market.AlignTime(when, time.Minute)
	since := aligned.Add(-time.Duration(n-1) * time.Minute)

	candles, err := d.exchange.GetCandles(ctx, d.symbol, market.Interval1m, since, n)
	if err != nil {
		return 0, err
	}
	return market.VWAP(candles), nil
}

func (d *Driver) emitProgress() {
	d.bus.Publish(eventbus.TopicProgressBacktest, ProgressEvent{ProcessedFrames: d.idx, TotalFrames: d.total})
}

func (d *Driver) recordTerminal(r signal.TickResult) {
	d.tradesSeen++
	if r.Kind == signal.KindClosed {
		if r.PnLPercent > 0 {
			d.wins++
		} else if r.PnLPercent < 0 {
			d.losses++
		}
	}
	if d.start.IsZero() || r.Time.Before(d.start) {
		d.start = r.Time
	}
	if d.end.IsZero() || r.Time.After(d.end) {
		d.end = r.Time
	}
}

// ProgressEvent is the payload published on the progress-backtest topic.
type ProgressEvent struct {
	ProcessedFrames int
	TotalFrames     int
}

// Run drains the driver to completion, invoking onResult for every yielded
// terminal event, and publishes done-backtest with the aggregate Result
// once the frame (or the engine's cooperative stop) is exhausted. Consumers
// that want to break out of the loop early should call Next directly
// instead of Run.
func (d *Driver) Run(ctx context.Context, onResult func(signal.TickResult)) (Result, error) {
	for {
		r, ok, err := d.Next(ctx)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
		if onResult != nil {
			onResult(r)
		}
	}

	result := Result{Trades: d.tradesSeen, Wins: d.wins, Losses: d.losses, Start: d.start, End: d.end}
	d.bus.Publish(eventbus.TopicDoneBacktest, result)
	return result, nil
}
