// Package sqlitelog is an optional EventBus subscriber that journals every
// closed or cancelled signal to SQLite, grounded on the teacher's
// journal.SQLiteJournal (journal/sqlite.go, journal/schema.go). It lives
// outside the core engine/driver packages: nothing in engine, backtest,
// live, or walker imports it, matching spec.md's reporting sinks staying
// out of core scope.
package sqlitelog

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/driftwood-labs/sigengine/eventbus"
	"github.com/driftwood-labs/sigengine/signal"
)

// Sink persists closed/cancelled signal events to a SQLite database.
type Sink struct {
	db *sql.DB
}

// Open creates (or reuses) a SQLite database at path and ensures the
// signals table exists.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitelog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitelog: create schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// Subscribe registers the sink against every topic a terminal signal event
// can arrive on (spec.md §4.8): the mode-specific live/backtest topics plus
// the mode-agnostic signal topic, so a single sink can log both live and
// backtest runs without the caller subscribing per-topic themselves.
func (s *Sink) Subscribe(bus *eventbus.Bus) eventbus.Unsubscribe {
	unsubs := []eventbus.Unsubscribe{
		bus.Subscribe(eventbus.TopicSignalLive, s.handle),
		bus.Subscribe(eventbus.TopicSignalBacktest, s.handle),
		bus.Subscribe(eventbus.TopicSignal, s.handle),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *Sink) handle(ev eventbus.Event) {
	r, ok := ev.Payload.(signal.TickResult)
	if !ok {
		return
	}
	switch r.Kind {
	case signal.KindClosed:
		s.recordClosed(r)
	case signal.KindCancelled:
		s.recordCancelled(r)
	}
}

func (s *Sink) recordClosed(r signal.TickResult) {
	if r.Signal == nil {
		return
	}
	sig := r.Signal
	if _, err := s.db.Exec(`
		INSERT INTO signals
		(id, symbol, strategy_name, exchange_name, position, price_open, price_take_profit,
		 price_stop_loss, scheduled_at, pending_at, closed_at, price_close, pnl_percent, close_reason, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'closed')
		ON CONFLICT(id) DO UPDATE SET
			closed_at = excluded.closed_at, price_close = excluded.price_close,
			pnl_percent = excluded.pnl_percent, close_reason = excluded.close_reason, kind = 'closed'`,
		sig.ID, sig.Symbol, sig.StrategyName, sig.ExchangeName, string(sig.Position),
		sig.PriceOpen, sig.PriceTakeProfit, sig.PriceStopLoss,
		sig.ScheduledAt, sig.PendingAt, r.Time, r.PriceClose, r.PnLPercent, string(r.CloseReason),
	); err != nil {
		log.Printf("sqlitelog: record closed signal %s: %v", sig.ID, err)
	}
}

func (s *Sink) recordCancelled(r signal.TickResult) {
	if r.Signal == nil {
		return
	}
	sig := r.Signal
	if _, err := s.db.Exec(`
		INSERT INTO signals
		(id, symbol, strategy_name, exchange_name, position, price_open, price_take_profit,
		 price_stop_loss, scheduled_at, pending_at, closed_at, cancel_reason, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'cancelled')
		ON CONFLICT(id) DO UPDATE SET
			closed_at = excluded.closed_at, cancel_reason = excluded.cancel_reason, kind = 'cancelled'`,
		sig.ID, sig.Symbol, sig.StrategyName, sig.ExchangeName, string(sig.Position),
		sig.PriceOpen, sig.PriceTakeProfit, sig.PriceStopLoss,
		sig.ScheduledAt, sig.PendingAt, r.Time, string(r.CancelReason),
	); err != nil {
		log.Printf("sqlitelog: record cancelled signal %s: %v", sig.ID, err)
	}
}

// Close closes the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
