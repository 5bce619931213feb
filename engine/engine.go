package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/driftwood-labs/sigengine/config"
	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/internal/id"
	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/persistence"
	"github.com/driftwood-labs/sigengine/risk"
	"github.com/driftwood-labs/sigengine/signal"
)

// Engine is the per-(symbol, strategy) StrategyEngine spec.md §4.1 describes:
// a single-writer state machine over idle/scheduled/active, driven one tick
// (or one candle, in backtest mode) at a time. An Engine is not safe to tick
// from two goroutines concurrently; callers (BacktestDriver, LiveDriver) own
// exactly one Engine per (symbol, strategy) pair and tick it serially.
type Engine struct {
	cfg *config.Config

	symbol       string
	strategyName string
	exchangeName string
	frameName    string
	backtestMode bool

	strategy  StrategyProvider
	exchange  ExchangeProvider
	persist   persistence.Adapter
	gate      *risk.Gate
	bus       *eventbus.Bus
	validator *signal.Validator

	pnl       *PnLCalculator
	partial   *PartialTracker
	breakeven *BreakevenTracker

	restored bool // live only: has restoreLocked run at least once

	stopped   bool
	active    *signal.ActiveSignal
	scheduled *signal.ScheduledSignal

	lastSignalTime      time.Time
	partialContribution map[string]float64 // signal ID -> weighted PnL% already locked in by partial closes
}

// New builds an Engine for one (symbol, strategyName, exchangeName) tuple.
// backtestMode selects NoopAdapter semantics at the call site (spec.md
// §4.5): callers pass persistence.NoopAdapter{} for backtests and a
// persistence.Adapter backed by disk for live runs.
func New(
	cfg *config.Config,
	symbol, strategyName, exchangeName, frameName string,
	backtestMode bool,
	strategy StrategyProvider,
	exchange ExchangeProvider,
	persist persistence.Adapter,
	gate *risk.Gate,
	bus *eventbus.Bus,
) *Engine {
	return &Engine{
		cfg:          cfg,
		symbol:       symbol,
		strategyName: strategyName,
		exchangeName: exchangeName,
		frameName:    frameName,
		backtestMode: backtestMode,
		strategy:     strategy,
		exchange:     exchange,
		persist:      persist,
		gate:         gate.ForStrategy(strategy),
		bus:          bus,
		validator:    signal.NewValidator(cfg),
		pnl:          NewPnLCalculator(cfg.PercentFee, cfg.PercentSlippage),
		partial:      NewPartialTracker(cfg.PartialLevels),
		breakeven:    NewBreakevenTracker(cfg.PercentFee, cfg.PercentSlippage, cfg.BreakevenThresholdPct),
		// backtestMode engines never restore; they start idle by construction.
		restored:            backtestMode,
		partialContribution: make(map[string]float64),
	}
}

// Tick advances the engine by one wall-clock step (spec.md §4.1, §4.4). The
// live driver calls it on every iteration; the backtest driver calls it at
// every frame timestamp and switches to Backtest only to fast-forward an
// opened signal.
func (e *Engine) Tick(ctx context.Context, now time.Time, currentPrice float64) signal.TickResult {
	if !e.restored {
		e.restoreLocked()
		e.restored = true
	}

	if hook, ok := e.strategy.(OnTickHook); ok {
		hook.OnTick(now, currentPrice)
	}

	switch {
	case e.active != nil:
		return e.tickActiveLocked(ctx, now, currentPrice)
	case e.scheduled != nil:
		return e.tickScheduledLocked(ctx, now, currentPrice)
	case e.stopped:
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	default:
		return e.tickIdleLocked(ctx, now, currentPrice)
	}
}

// restoreLocked reloads any persisted active or scheduled record on the
// first live tick (spec.md §3, crash recovery). Records failing the
// ownership check are discarded and removed from disk.
func (e *Engine) restoreLocked() {
	if a, ok, err := e.persist.LoadActive(e.symbol, e.strategyName); err != nil {
		e.emitError("restore-active", err)
	} else if ok {
		if persistence.CheckOwnership(a, e.exchangeName, e.strategyName, e.symbol) {
			e.active = &a
		} else {
			log.Printf("engine: discarding stale active record for %s/%s (ownership mismatch)", e.symbol, e.strategyName)
			if derr := e.persist.DeleteActive(e.symbol, e.strategyName); derr != nil {
				e.emitError("discard-stale-active", derr)
			}
		}
	}

	if s, ok, err := e.persist.LoadScheduled(e.symbol, e.strategyName); err != nil {
		e.emitError("restore-scheduled", err)
	} else if ok {
		if persistence.CheckOwnership(s.ActiveSignal, e.exchangeName, e.strategyName, e.symbol) {
			e.scheduled = &s
		} else {
			log.Printf("engine: discarding stale scheduled record for %s/%s (ownership mismatch)", e.symbol, e.strategyName)
			if derr := e.persist.DeleteScheduled(e.symbol, e.strategyName); derr != nil {
				e.emitError("discard-stale-scheduled", derr)
			}
		}
	}
}

func (e *Engine) tickIdleLocked(ctx context.Context, now time.Time, currentPrice float64) signal.TickResult {
	if e.stopped {
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}

	if !e.lastSignalTime.IsZero() && now.Sub(e.lastSignalTime) < e.strategy.Interval().Duration() {
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}

	sigCtx := Context{
		Symbol: e.symbol, When: now, Backtest: e.backtestMode,
		StrategyName: e.strategyName, ExchangeName: e.exchangeName, FrameName: e.frameName,
	}
	proposal, err := e.strategy.GetSignal(ctx, sigCtx)
	if err != nil {
		e.emitError("get-signal", err)
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}
	if proposal == nil || proposal.Wait {
		if hook, ok := e.strategy.(OnIdleHook); ok {
			hook.OnIdle()
		}
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}

	e.lastSignalTime = now
	return e.admitProposalLocked(*proposal, now, currentPrice)
}

// admitProposalLocked validates a freshly returned proposal and either opens
// it immediately, schedules it, or rejects it, shared by the idle-tick path
// and (conceptually) anywhere else a fresh proposal is admitted.
func (e *Engine) admitProposalLocked(proposal signal.Proposal, now time.Time, currentPrice float64) signal.TickResult {
	priceOpen := currentPrice
	isScheduled := proposal.HasOpenPrice()
	if isScheduled {
		priceOpen = proposal.PriceOpen
	}

	if err := e.validator.Validate(proposal, priceOpen); err != nil {
		e.bus.Publish(eventbus.TopicValidationError, err)
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}

	sigID := proposal.ID
	if sigID == "" {
		sigID = id.New()
	}

	base := signal.ActiveSignal{
		ID: sigID, Symbol: e.symbol, StrategyName: e.strategyName,
		ExchangeName: e.exchangeName, FrameName: e.frameName,
		Position: proposal.Position, PriceOpen: priceOpen,
		PriceTakeProfit: proposal.PriceTakeProfit, PriceStopLoss: proposal.PriceStopLoss,
		OriginalPriceTakeProfit: proposal.PriceTakeProfit, OriginalPriceStopLoss: proposal.PriceStopLoss,
		MinuteEstimatedTime: proposal.MinuteEstimatedTime,
		ScheduledAt:         now,
		Note:                proposal.Note,
	}

	if isScheduled {
		base.PendingAt = now
		sched := signal.ScheduledSignal{ActiveSignal: base, IsScheduled: true}
		e.scheduled = &sched
		e.persistScheduledLocked(sched)
		result := signal.TickResult{Kind: signal.KindScheduled, Signal: &sched.ActiveSignal, Time: now}
		e.bus.Publish(eventbus.TopicSignal, result)
		if hook, ok := e.strategy.(OnScheduleHook); ok {
			hook.OnSchedule(sched)
		}
		return result
	}

	base.PendingAt = now
	if rej := e.gate.Evaluate(e.candidateFor(base, now)); rej != nil {
		e.bus.Publish(eventbus.TopicRiskRejection, *rej)
		return signal.TickResult{Kind: signal.KindIdle, Time: now}
	}
	e.active = &base
	e.persistActiveLocked(base)
	result := signal.TickResult{Kind: signal.KindOpened, Signal: &base, Time: now}
	e.bus.Publish(e.topicForMode(), result)
	e.bus.Publish(eventbus.TopicSignal, result)
	if hook, ok := e.strategy.(OnOpenHook); ok {
		hook.OnOpen(base)
	}
	return result
}

func (e *Engine) tickScheduledLocked(ctx context.Context, now time.Time, currentPrice float64) signal.TickResult {
	s := e.scheduled

	if slBeforeEntryBreached(s.ActiveSignal, currentPrice) {
		return e.cancelScheduledLocked(*s, signal.CancelSLBeforeEntry, now)
	}
	if scheduleActivated(s.ActiveSignal, currentPrice) {
		return e.activateScheduledLocked(*s, now)
	}
	if now.Sub(s.ScheduledAt) >= time.Duration(e.cfg.ScheduleAwaitMinutes)*time.Minute {
		return e.cancelScheduledLocked(*s, signal.CancelScheduleTimeout, now)
	}

	e.bus.Publish(eventbus.TopicPingScheduled, s.ActiveSignal)
	return signal.TickResult{Kind: signal.KindScheduled, Signal: &s.ActiveSignal, Time: now}
}

func (e *Engine) activateScheduledLocked(s signal.ScheduledSignal, now time.Time) signal.TickResult {
	active := s.ActiveSignal
	active.PendingAt = now

	if rej := e.gate.Evaluate(e.candidateFor(active, now)); rej != nil {
		e.bus.Publish(eventbus.TopicRiskRejection, *rej)
		return signal.TickResult{Kind: signal.KindScheduled, Signal: &s.ActiveSignal, Time: now}
	}

	e.scheduled = nil
	e.active = &active
	e.persistActiveLocked(active)
	if err := e.persist.DeleteScheduled(e.symbol, e.strategyName); err != nil {
		e.emitError("delete-scheduled-on-activate", err)
	}

	result := signal.TickResult{Kind: signal.KindOpened, Signal: &active, Time: now}
	e.bus.Publish(e.topicForMode(), result)
	e.bus.Publish(eventbus.TopicSignal, result)
	if hook, ok := e.strategy.(OnOpenHook); ok {
		hook.OnOpen(active)
	}
	return result
}

func (e *Engine) cancelScheduledLocked(s signal.ScheduledSignal, reason signal.CancelReason, now time.Time) signal.TickResult {
	e.scheduled = nil
	if err := e.persist.DeleteScheduled(e.symbol, e.strategyName); err != nil {
		e.emitError("delete-scheduled-on-cancel", err)
	}
	e.partial.Forget(s.ID)
	e.breakeven.Forget(s.ID)
	delete(e.partialContribution, s.ID)

	result := signal.TickResult{Kind: signal.KindCancelled, Signal: &s.ActiveSignal, Time: now, CancelReason: reason}
	e.bus.Publish(eventbus.TopicSignal, result)
	if hook, ok := e.strategy.(OnCancelHook); ok {
		hook.OnCancel(s, reason)
	}
	return result
}

func (e *Engine) tickActiveLocked(ctx context.Context, now time.Time, currentPrice float64) signal.TickResult {
	a := e.active

	e.evaluateBreakevenAndPartialLocked(a, currentPrice)

	if reason, priceClose, ok := checkTickClose(*a, currentPrice, now); ok {
		return e.closeActiveLocked(*a, reason, priceClose, now)
	}

	if hook, ok := e.strategy.(OnActiveHook); ok {
		hook.OnActive(*a)
	}
	e.bus.Publish(eventbus.TopicPingActive, *a)
	return signal.TickResult{Kind: signal.KindActive, Signal: a, Time: now}
}

// evaluateBreakevenAndPartialLocked runs the two always-on trackers against
// the current favorable price for the active signal, in the order spec.md
// §4.1 specifies: breakeven before partial. A breakeven crossing moves the
// stop-loss to the entry price; partial milestones only emit events.
func (e *Engine) evaluateBreakevenAndPartialLocked(a *signal.ActiveSignal, favorablePrice float64) {
	unrealized := UnrealizedPercent(a.Position, a.PriceOpen, favorablePrice)

	if e.breakeven.Crossed(a.ID, unrealized) {
		a.PriceStopLoss = a.PriceOpen
		e.persistActiveLocked(*a)
		e.bus.Publish(eventbus.TopicBreakeven, *a)
		if hook, ok := e.strategy.(OnBreakevenHook); ok {
			hook.OnBreakeven(*a)
		}
	}

	gains, losses := e.partial.Evaluate(a.ID, unrealized)
	for _, lvl := range gains {
		e.bus.Publish(eventbus.TopicPartialProfit, PartialEvent{Signal: *a, Level: lvl, Automatic: true})
		if hook, ok := e.strategy.(OnPartialProfitHook); ok {
			hook.OnPartialProfit(*a, lvl)
		}
	}
	for _, lvl := range losses {
		e.bus.Publish(eventbus.TopicPartialLoss, PartialEvent{Signal: *a, Level: lvl, Automatic: true})
		if hook, ok := e.strategy.(OnPartialLossHook); ok {
			hook.OnPartialLoss(*a, lvl)
		}
	}
}

func (e *Engine) closeActiveLocked(a signal.ActiveSignal, reason signal.CloseReason, priceClose float64, now time.Time) signal.TickResult {
	pnlPct := e.finalPnLLocked(a, priceClose)

	e.active = nil
	if err := e.persist.DeleteActive(e.symbol, e.strategyName); err != nil {
		e.emitError("delete-active-on-close", err)
	}
	e.gate.Close(e.symbol, e.strategyName)
	e.partial.Forget(a.ID)
	e.breakeven.Forget(a.ID)
	delete(e.partialContribution, a.ID)

	result := signal.TickResult{
		Kind: signal.KindClosed, Signal: &a, Time: now,
		CloseReason: reason, PriceClose: priceClose, PnLPercent: pnlPct,
	}
	e.bus.Publish(e.topicForMode(), result)
	e.bus.Publish(eventbus.TopicSignal, result)
	if hook, ok := e.strategy.(OnCloseHook); ok {
		hook.OnClose(a, reason, pnlPct)
	}
	return result
}

// finalPnLLocked blends any partial-close contribution already locked in for
// this signal with the PnL of the remaining, still-open size closing at
// priceClose (spec.md §4.7).
func (e *Engine) finalPnLLocked(a signal.ActiveSignal, priceClose float64) float64 {
	contribution := e.partialContribution[a.ID]
	if a.PartialClosedPct <= 0 {
		return e.pnl.Realized(a.Position, a.PriceOpen, priceClose)
	}
	remainingPct := 100 - a.PartialClosedPct
	if remainingPct < 0 {
		remainingPct = 0
	}
	remainingPnL := e.pnl.Realized(a.Position, a.PriceOpen, priceClose) * remainingPct / 100
	return contribution + remainingPnL
}

func (e *Engine) candidateFor(a signal.ActiveSignal, now time.Time) risk.Candidate {
	return risk.Candidate{
		Symbol: e.symbol, StrategyName: e.strategyName, ExchangeName: e.exchangeName,
		Proposal: signal.Proposal{
			Position: a.Position, PriceOpen: a.PriceOpen,
			PriceTakeProfit: a.PriceTakeProfit, PriceStopLoss: a.PriceStopLoss,
			MinuteEstimatedTime: a.MinuteEstimatedTime, Note: a.Note,
		},
		PriceOpen: a.PriceOpen, Now: now,
	}
}

func (e *Engine) persistActiveLocked(a signal.ActiveSignal) {
	if err := e.persist.SaveActive(a); err != nil {
		e.emitError("persist-active", err)
	}
	if hook, ok := e.strategy.(OnWriteHook); ok {
		hook.OnWrite(a)
	}
}

func (e *Engine) persistScheduledLocked(s signal.ScheduledSignal) {
	if err := e.persist.SaveScheduled(s); err != nil {
		e.emitError("persist-scheduled", err)
	}
}

func (e *Engine) emitError(op string, err error) {
	log.Printf("engine[%s/%s]: %s: %v", e.symbol, e.strategyName, op, err)
	e.bus.Publish(eventbus.TopicError, &RecoverableError{Op: op, Err: err})
}

func (e *Engine) topicForMode() eventbus.Topic {
	if e.backtestMode {
		return eventbus.TopicSignalBacktest
	}
	return eventbus.TopicSignalLive
}

// checkTickClose evaluates TP/SL/time-expiry against a single current price
// (live-tick mode has no intra-candle ambiguity to resolve).
func checkTickClose(a signal.ActiveSignal, currentPrice float64, now time.Time) (signal.CloseReason, float64, bool) {
	switch a.Position {
	case signal.Long:
		if currentPrice <= a.PriceStopLoss {
			return signal.CloseStopLoss, a.PriceStopLoss, true
		}
		if currentPrice >= a.PriceTakeProfit {
			return signal.CloseTakeProfit, a.PriceTakeProfit, true
		}
	case signal.Short:
		if currentPrice >= a.PriceStopLoss {
			return signal.CloseStopLoss, a.PriceStopLoss, true
		}
		if currentPrice <= a.PriceTakeProfit {
			return signal.CloseTakeProfit, a.PriceTakeProfit, true
		}
	}
	if now.Sub(a.PendingAt) >= time.Duration(a.MinuteEstimatedTime)*time.Minute {
		return signal.CloseTimeExpired, currentPrice, true
	}
	return "", 0, false
}

func slBeforeEntryBreached(s signal.ActiveSignal, currentPrice float64) bool {
	switch s.Position {
	case signal.Long:
		return currentPrice <= s.PriceStopLoss
	case signal.Short:
		return currentPrice >= s.PriceStopLoss
	}
	return false
}

func scheduleActivated(s signal.ActiveSignal, currentPrice float64) bool {
	switch s.Position {
	case signal.Long:
		return currentPrice <= s.PriceOpen
	case signal.Short:
		return currentPrice >= s.PriceOpen
	}
	return false
}

// Backtest fast-forwards the engine across a run of consecutive candles,
// stopping and returning as soon as the signal closes or is cancelled
// (spec.md §4.3's "fast-forward" contract). If no terminal event occurs
// within the given candles, it returns the last live state (active,
// scheduled, or idle) so the caller knows whether to fetch more. interval is
// the candle width (the forward candles a BacktestDriver fetches for
// fast-forwarding are always 1-minute bars, independent of the strategy's
// own signal-check interval).
func (e *Engine) Backtest(candles []market.Candle, interval time.Duration) signal.TickResult {
	for _, c := range candles {
		closeAt := c.OpenTime.Add(interval)

		if e.scheduled != nil {
			s := e.scheduled
			if candleBreachesSL(s.ActiveSignal, c) {
				return e.cancelScheduledLocked(*s, signal.CancelSLBeforeEntry, c.OpenTime)
			}
			if !candleTouchesOpen(s.ActiveSignal, c) {
				if c.OpenTime.Sub(s.ScheduledAt) >= time.Duration(e.cfg.ScheduleAwaitMinutes)*time.Minute {
					return e.cancelScheduledLocked(*s, signal.CancelScheduleTimeout, c.OpenTime)
				}
				continue
			}
			result := e.activateScheduledLocked(*s, c.OpenTime)
			if result.Kind != signal.KindOpened {
				// risk-rejected: stays scheduled, re-evaluate on the next candle.
				continue
			}
			// fall through: evaluate the same candle against the freshly
			// opened signal below, since an activation can still touch its
			// own TP/SL within the remainder of the candle that opened it.
		}

		if e.active == nil {
			continue
		}
		a := e.active

		// Close conditions run before breakeven/partial, so a stop-loss moved
		// to entry on this candle's high is not tested against its own low.
		if reason, priceClose, ok := candleCheckClose(*a, c, closeAt); ok {
			return e.closeActiveLocked(*a, reason, priceClose, c.OpenTime)
		}

		e.evaluateBreakevenAndPartialLocked(a, extremeFavorable(a.Position, c))
	}

	switch {
	case e.active != nil:
		return signal.TickResult{Kind: signal.KindActive, Signal: e.active, Time: lastCandleTime(candles)}
	case e.scheduled != nil:
		return signal.TickResult{Kind: signal.KindScheduled, Signal: &e.scheduled.ActiveSignal, Time: lastCandleTime(candles)}
	default:
		return signal.TickResult{Kind: signal.KindIdle, Time: lastCandleTime(candles)}
	}
}

func lastCandleTime(candles []market.Candle) time.Time {
	if len(candles) == 0 {
		return time.Time{}
	}
	return candles[len(candles)-1].OpenTime
}

func extremeFavorable(pos signal.Position, c market.Candle) float64 {
	if pos == signal.Long {
		return c.High
	}
	return c.Low
}

func candleTouchesOpen(s signal.ActiveSignal, c market.Candle) bool {
	switch s.Position {
	case signal.Long:
		return c.Low <= s.PriceOpen
	case signal.Short:
		return c.High >= s.PriceOpen
	}
	return false
}

func candleBreachesSL(s signal.ActiveSignal, c market.Candle) bool {
	switch s.Position {
	case signal.Long:
		return c.Low <= s.PriceStopLoss
	case signal.Short:
		return c.High >= s.PriceStopLoss
	}
	return false
}

// candleCheckClose implements the intra-candle TP/SL tie-break rule spec.md
// §4.3 mandates: on a candle that touches both levels, stop-loss wins,
// except when the candle's open already clears take-profit favorably (a gap
// through TP), in which case the fill is the open price and the reason is
// take-profit. Time expiry is only checked when neither level triggers.
func candleCheckClose(a signal.ActiveSignal, c market.Candle, closeAt time.Time) (signal.CloseReason, float64, bool) {
	switch a.Position {
	case signal.Long:
		slHit := c.Low <= a.PriceStopLoss
		tpHit := c.High >= a.PriceTakeProfit
		switch {
		case slHit && tpHit:
			if c.Open >= a.PriceTakeProfit {
				return signal.CloseTakeProfit, c.Open, true
			}
			return signal.CloseStopLoss, a.PriceStopLoss, true
		case slHit:
			return signal.CloseStopLoss, a.PriceStopLoss, true
		case tpHit:
			return signal.CloseTakeProfit, a.PriceTakeProfit, true
		}
	case signal.Short:
		slHit := c.High >= a.PriceStopLoss
		tpHit := c.Low <= a.PriceTakeProfit
		switch {
		case slHit && tpHit:
			if c.Open <= a.PriceTakeProfit {
				return signal.CloseTakeProfit, c.Open, true
			}
			return signal.CloseStopLoss, a.PriceStopLoss, true
		case slHit:
			return signal.CloseStopLoss, a.PriceStopLoss, true
		case tpHit:
			return signal.CloseTakeProfit, a.PriceTakeProfit, true
		}
	}
	if closeAt.Sub(a.PendingAt) >= time.Duration(a.MinuteEstimatedTime)*time.Minute {
		return signal.CloseTimeExpired, c.Close, true
	}
	return "", 0, false
}

// Stop tells the engine to stop proposing new signals once idle. It does not
// touch an in-flight active or scheduled signal, which must still close or
// be cancelled normally (spec.md §4.1). Calling Stop twice is equivalent to
// calling it once.
func (e *Engine) Stop() {
	e.stopped = true
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	return e.stopped
}

// Cancel cancels the current scheduled signal, if any, on explicit user
// request. cancelID, if non-empty, must match the scheduled signal's
// CancelID when that is set; an empty cancelID cancels unconditionally.
// Signals scheduled by the engine itself carry an empty CancelID, so any
// cancelID cancels them.
func (e *Engine) Cancel(cancelID string, now time.Time) error {
	if e.scheduled == nil {
		return fmt.Errorf("engine: no scheduled signal to cancel")
	}
	if cancelID != "" && e.scheduled.CancelID != "" && e.scheduled.CancelID != cancelID {
		return fmt.Errorf("engine: cancelId %q does not match scheduled signal", cancelID)
	}
	e.cancelScheduledLocked(*e.scheduled, signal.CancelUserRequest, now)
	return nil
}

// PartialProfit closes pct percent of the original position size at
// currentPrice, locking in its PnL contribution and reducing the remaining
// size future close events are computed over (spec.md §4.1). It is the
// explicit, user-triggered counterpart to the automatic partial-profit
// milestone events evaluateBreakevenAndPartialLocked emits.
func (e *Engine) PartialProfit(pct, currentPrice float64) error {
	return e.partialCloseLocked(pct, currentPrice, eventbus.TopicPartialProfit)
}

// PartialLoss is PartialProfit's counterpart for a loss-side partial close.
func (e *Engine) PartialLoss(pct, currentPrice float64) error {
	return e.partialCloseLocked(pct, currentPrice, eventbus.TopicPartialLoss)
}

func (e *Engine) partialCloseLocked(pct, currentPrice float64, topic eventbus.Topic) error {
	if e.active == nil {
		return fmt.Errorf("engine: no active signal to partially close")
	}
	if pct <= 0 || pct > 100 {
		return fmt.Errorf("engine: partial close pct %.4f out of range (0,100]", pct)
	}
	a := e.active

	sliceRealized := e.pnl.Realized(a.Position, a.PriceOpen, currentPrice)
	e.partialContribution[a.ID] += pct / 100 * sliceRealized

	a.PartialClosedPct += pct
	if a.PartialClosedPct > 100 {
		a.PartialClosedPct = 100
	}
	e.persistActiveLocked(*a)

	e.bus.Publish(topic, PartialEvent{Signal: *a, ClosedPct: pct, Price: currentPrice})
	if topic == eventbus.TopicPartialProfit {
		if hook, ok := e.strategy.(OnPartialProfitHook); ok {
			hook.OnPartialProfit(*a, pct)
		}
	} else {
		if hook, ok := e.strategy.(OnPartialLossHook); ok {
			hook.OnPartialLoss(*a, pct)
		}
	}
	return nil
}

// Breakeven moves the active signal's stop-loss to its entry price on
// explicit user request, the same mutation the automatic breakeven tracker
// applies once its threshold is crossed.
func (e *Engine) Breakeven() error {
	if e.active == nil {
		return fmt.Errorf("engine: no active signal")
	}
	a := e.active
	a.PriceStopLoss = a.PriceOpen
	e.persistActiveLocked(*a)
	e.bus.Publish(eventbus.TopicBreakeven, *a)
	if hook, ok := e.strategy.(OnBreakevenHook); ok {
		hook.OnBreakeven(*a)
	}
	return nil
}

// TrailingStop shifts the active signal's stop-loss by pctShift percent from
// its ORIGINAL stop-loss (never compounding from a previously shifted
// value, spec.md §4.1), rejecting a shift that would make the new stop
// already crossed by currentPrice.
func (e *Engine) TrailingStop(pctShift, currentPrice float64) error {
	if e.active == nil {
		return fmt.Errorf("engine: no active signal")
	}
	a := e.active
	newSL := shiftFromOriginal(a.Position, a.OriginalPriceStopLoss, pctShift)
	if wouldAlreadyTrigger(a.Position, "sl", newSL, currentPrice) {
		return fmt.Errorf("engine: trailing stop to %.8f would immediately trigger at %.8f", newSL, currentPrice)
	}
	a.PriceStopLoss = newSL
	e.persistActiveLocked(*a)
	return nil
}

// TrailingTake is TrailingStop's counterpart for the take-profit level.
func (e *Engine) TrailingTake(pctShift, currentPrice float64) error {
	if e.active == nil {
		return fmt.Errorf("engine: no active signal")
	}
	a := e.active
	newTP := shiftFromOriginal(a.Position, a.OriginalPriceTakeProfit, pctShift)
	if wouldAlreadyTrigger(a.Position, "tp", newTP, currentPrice) {
		return fmt.Errorf("engine: trailing take to %.8f would immediately trigger at %.8f", newTP, currentPrice)
	}
	a.PriceTakeProfit = newTP
	e.persistActiveLocked(*a)
	return nil
}

func shiftFromOriginal(pos signal.Position, original, pctShift float64) float64 {
	switch pos {
	case signal.Long:
		return original * (1 + pctShift/100)
	case signal.Short:
		return original * (1 - pctShift/100)
	default:
		return original
	}
}

func wouldAlreadyTrigger(pos signal.Position, kind string, price, currentPrice float64) bool {
	switch pos {
	case signal.Long:
		if kind == "sl" {
			return currentPrice <= price
		}
		return currentPrice >= price
	case signal.Short:
		if kind == "sl" {
			return currentPrice >= price
		}
		return currentPrice <= price
	}
	return false
}

// Active returns a copy of the current active signal, if any.
func (e *Engine) Active() (signal.ActiveSignal, bool) {
	if e.active == nil {
		return signal.ActiveSignal{}, false
	}
	return *e.active, true
}

// Scheduled returns a copy of the current scheduled signal, if any.
func (e *Engine) Scheduled() (signal.ScheduledSignal, bool) {
	if e.scheduled == nil {
		return signal.ScheduledSignal{}, false
	}
	return *e.scheduled, true
}
