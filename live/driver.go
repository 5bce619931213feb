// Package live implements the LiveDriver (spec.md §4.4): an infinite,
// wall-clock-paced loop around a single Engine, ticking once per TICK_TTL
// and yielding only terminal (opened/closed/cancelled) results to its
// caller while the engine keeps publishing every Kind on the event bus.
package live

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/driftwood-labs/sigengine/config"
	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/signal"
)

// Clock abstracts wall-clock time so tests can drive the loop without
// sleeping for real. RealClock is the production implementation.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock ticks real wall-clock time.
type RealClock struct{}

func (RealClock) Now() time.Time      { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// Driver runs Engine.Tick on a TICK_TTL cadence until the caller cancels
// ctx or calls Stop, cooperatively draining any in-flight signal first
// (spec.md §4.4, "graceful shutdown"). It is not safe for concurrent use.
type Driver struct {
	cfg      *config.Config
	engine   *engine.Engine
	exchange engine.ExchangeProvider
	bus      *eventbus.Bus
	symbol   string
	clock    Clock
}

// Options configures a Driver beyond its required collaborators.
type Options struct {
	// Clock overrides RealClock{}, for tests.
	Clock Clock
}

// New builds a live Driver over eng, polling exchange for the VWAP current
// price ahead of every tick.
func New(cfg *config.Config, eng *engine.Engine, exchange engine.ExchangeProvider, bus *eventbus.Bus, symbol string, opts Options) *Driver {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Driver{cfg: cfg, engine: eng, exchange: exchange, bus: bus, symbol: symbol, clock: clock}
}

// Run ticks the engine forever, invoking onResult for every opened, closed,
// or cancelled result, until ctx is cancelled or the engine's own Stop()
// drains to idle. A transient error (current-price fetch failure) is
// logged and the loop retries after TICK_TTL; a FatalError terminates the
// loop immediately, publishing TopicExit before returning.
func (d *Driver) Run(ctx context.Context, onResult func(signal.TickResult)) error {
	for {
		select {
		case <-ctx.Done():
			d.publishTerminal(ctx.Err())
			return ctx.Err()
		default:
		}

		if d.drained() {
			d.publishTerminal(nil)
			return nil
		}

		now := d.clock.Now()
		currentPrice, err := d.currentPrice(ctx, now)
		if err != nil {
			var fatal *engine.FatalError
			if errors.As(err, &fatal) {
				log.Printf("live[%s]: fatal: %v", d.symbol, fatal)
				d.publishTerminal(fatal)
				return fatal
			}
			log.Printf("live[%s]: transient: fetch current price: %v", d.symbol, err)
			d.sleep(ctx)
			continue
		}

		result := d.engine.Tick(ctx, now, currentPrice)
		switch result.Kind {
		case signal.KindOpened, signal.KindClosed, signal.KindCancelled:
			if onResult != nil {
				onResult(result)
			}
		}

		if d.drained() {
			d.publishTerminal(nil)
			return nil
		}

		d.sleep(ctx)
	}
}

// publishTerminal emits both TopicExit and TopicDoneLive on loop exit, err
// being nil on a clean stop. TopicDoneLive mirrors backtest.Driver's
// TopicDoneBacktest and walker.Driver's TopicDoneWalker, so a subscriber
// that only cares "is this driver finished" has one topic name per driver
// kind rather than needing to know LiveDriver's exit signal is called
// something else.
func (d *Driver) publishTerminal(err error) {
	d.bus.Publish(eventbus.TopicExit, err)
	d.bus.Publish(eventbus.TopicDoneLive, err)
}

// Stop requests cooperative shutdown: the engine stops admitting new
// signals, but Run keeps ticking until any in-flight signal closes or is
// cancelled, then returns.
func (d *Driver) Stop() {
	d.engine.Stop()
}

// drained reports whether the engine has been stopped and has nothing left
// in flight, matching backtest.Driver's own end-of-stream check.
func (d *Driver) drained() bool {
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

func (d *Driver) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	default:
		d.clock.Sleep(d.cfg.TickTTL)
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
