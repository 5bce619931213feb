package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/driftwood-labs/sigengine/engine"
	"github.com/driftwood-labs/sigengine/market"
	"github.com/driftwood-labs/sigengine/signal"
)

// openOnceStrategy opens a single position at its first GetSignal call
// with fixed TP/SL distances expressed as a percent of the entry price,
// then waits forever. It mirrors the teacher's "open-once" demo strategy.
// OnTick records the latest current price so GetSignal can turn the
// configured percent distances into absolute TP/SL prices.
type openOnceStrategy struct {
	position            signal.Position
	takeProfitPct       float64
	stopLossPct         float64
	minuteEstimatedTime int
	interval            market.Interval
	riskName            string

	fired     bool
	lastPrice float64
}

// RiskName and RiskList implement engine.RiskNamed, letting --risk-name
// select which risk.Registry validator set the gate runs for this
// strategy's signals.
func (s *openOnceStrategy) RiskName() string   { return s.riskName }
func (s *openOnceStrategy) RiskList() []string { return nil }

func (s *openOnceStrategy) OnTick(_ time.Time, currentPrice float64) {
	s.lastPrice = currentPrice
}

func (s *openOnceStrategy) GetSignal(_ context.Context, _ engine.Context) (*signal.Proposal, error) {
	if s.fired || s.lastPrice <= 0 {
		return nil, nil
	}
	s.fired = true

	tp, sl := s.lastPrice*(1+s.takeProfitPct), s.lastPrice*(1-s.stopLossPct)
	if s.position == signal.Short {
		tp, sl = s.lastPrice*(1-s.takeProfitPct), s.lastPrice*(1+s.stopLossPct)
	}
	return &signal.Proposal{
		Position: s.position, PriceTakeProfit: tp, PriceStopLoss: sl,
		MinuteEstimatedTime: s.minuteEstimatedTime,
	}, nil
}

func (s *openOnceStrategy) Interval() market.Interval {
	if s.interval == "" {
		return market.Interval1m
	}
	return s.interval
}

func formatFixed(v float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, v)
}
