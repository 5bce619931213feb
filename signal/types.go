// Package signal defines the signal lifecycle data model: proposals from a
// strategy, the persisted active/scheduled records, and the discriminated
// tick result the engine returns on every tick.
package signal

import "time"

// Position is the direction of a signal.
type Position string

const (
	Long  Position = "long"
	Short Position = "short"
)

// Proposal is what a strategy's getSignal callback returns. A nil
// *Proposal (or one with Wait set) means "do nothing this tick".
type Proposal struct {
	Wait                bool
	Position            Position
	PriceOpen           float64 // zero means "open immediately at current VWAP"
	PriceTakeProfit     float64
	PriceStopLoss       float64
	MinuteEstimatedTime int
	Note                string
	ID                  string // optional; preserved onto ActiveSignal if set
}

// HasOpenPrice reports whether this proposal is a scheduled (limit) signal.
func (p Proposal) HasOpenPrice() bool {
	return p.PriceOpen != 0
}

// CloseReason names why an ActiveSignal closed.
type CloseReason string

const (
	CloseTakeProfit CloseReason = "take_profit"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTimeExpired CloseReason = "time_expired"
)

// CancelReason names why a ScheduledSignal was cancelled.
type CancelReason string

const (
	CancelScheduleTimeout CancelReason = "schedule_timeout"
	CancelUserRequest     CancelReason = "user_cancel"
	CancelSLBeforeEntry   CancelReason = "sl_before_entry"
)

// ActiveSignal is the core persisted record for an open or scheduled
// position. Field names are part of the wire compatibility contract
// (spec.md §6) and must not be renamed.
type ActiveSignal struct {
	ID                      string    `json:"id"`
	Symbol                  string    `json:"symbol"`
	StrategyName            string    `json:"strategyName"`
	ExchangeName            string    `json:"exchangeName"`
	FrameName               string    `json:"frameName"`
	Position                Position  `json:"position"`
	PriceOpen               float64   `json:"priceOpen"`
	PriceTakeProfit         float64   `json:"priceTakeProfit"`
	PriceStopLoss           float64   `json:"priceStopLoss"`
	OriginalPriceStopLoss   float64   `json:"originalPriceStopLoss"`
	OriginalPriceTakeProfit float64   `json:"originalPriceTakeProfit"`
	MinuteEstimatedTime     int       `json:"minuteEstimatedTime"`
	ScheduledAt             time.Time `json:"scheduledAt"`
	PendingAt               time.Time `json:"pendingAt"`
	Note                    string    `json:"note"`
	PartialClosedPct        float64   `json:"partialClosedPct"`
}

// ScheduledSignal is an ActiveSignal awaiting activation at PriceOpen.
type ScheduledSignal struct {
	ActiveSignal
	IsScheduled bool   `json:"_isScheduled"`
	CancelID    string `json:"cancelId,omitempty"`
}

// Owner returns the ownership marker spec.md §3 defines: restored records
// whose marker mismatches the current engine's are discarded.
func (a ActiveSignal) Owner() (exchangeName, strategyName, symbol string) {
	return a.ExchangeName, a.StrategyName, a.Symbol
}

// ResultKind discriminates the TickResult sum type.
type ResultKind string

const (
	KindIdle      ResultKind = "idle"
	KindScheduled ResultKind = "scheduled"
	KindOpened    ResultKind = "opened"
	KindActive    ResultKind = "active"
	KindClosed    ResultKind = "closed"
	KindCancelled ResultKind = "cancelled"
)

// TickResult is the discriminated result of one tick or backtest step.
// Only the fields relevant to Kind are populated; callers should switch on
// Kind rather than testing for presence of a payload field.
type TickResult struct {
	Kind ResultKind

	Signal *ActiveSignal // populated for opened/active/closed/scheduled/cancelled
	Time   time.Time     // the tick or close timestamp this result occurred at

	CloseReason  CloseReason  // populated for closed
	PriceClose   float64      // populated for closed
	PnLPercent   float64      // populated for closed
	CancelReason CancelReason // populated for cancelled
}
