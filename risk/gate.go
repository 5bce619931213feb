package risk

import (
	"fmt"
	"time"

	"github.com/driftwood-labs/sigengine/signal"
)

// Rejection is returned by a failing Validator and carried onto the
// risk-rejection event spec.md §4.8 names.
type Rejection struct {
	ValidatorName string
	Reason        string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.ValidatorName, r.Reason)
}

// Candidate is everything a Validator needs to judge a proposed signal: the
// candidate itself, the instant it is proposed at, and the resolved open
// price (current VWAP for immediate signals).
type Candidate struct {
	Symbol       string
	StrategyName string
	ExchangeName string
	Proposal     signal.Proposal
	PriceOpen    float64
	Now          time.Time
}

// Validator is a pure risk check: given a candidate and a snapshot of every
// currently active position across strategies, it admits or rejects.
// Validators must not mutate either argument.
type Validator interface {
	Name() string
	Check(c Candidate, active []Position) *Rejection
}

// Gate runs an ordered chain of Validators. The first rejection
// short-circuits the remaining chain (spec.md §4.6, and the Open Question
// in spec.md §9 resolved as: run the union of riskName/riskList validators,
// in order, all must admit).
type Gate struct {
	Portfolio  *Portfolio
	Validators []Validator
	// Registry, if set, lets ForStrategy resolve a RiskNamed strategy's
	// named validator set(s) instead of always running Validators.
	Registry *Registry
}

// NewGate builds a Gate bound to portfolio with the given validator chain.
func NewGate(portfolio *Portfolio, validators ...Validator) *Gate {
	return &Gate{Portfolio: portfolio, Validators: validators}
}

// Evaluate runs every validator against c and the current portfolio
// snapshot. On admit it registers the new position in the Portfolio (the
// only place Gate mutates shared state); on rejection it returns the first
// Rejection encountered and does not touch the Portfolio.
func (g *Gate) Evaluate(c Candidate) *Rejection {
	active := g.Portfolio.Snapshot()

	for _, v := range g.Validators {
		if rej := v.Check(c, active); rej != nil {
			return rej
		}
	}

	g.Portfolio.Admit(Position{
		Symbol:       c.Symbol,
		StrategyName: c.StrategyName,
		ExchangeName: c.ExchangeName,
		Position:     c.Proposal.Position,
		PriceOpen:    c.PriceOpen,
		OpenedAt:     c.Now,
	})
	return nil
}

// Close removes the (symbol, strategyName) position from the Portfolio.
// Engines call this when an active signal closes; a scheduled signal is
// only admitted on activation, so its cancellation has nothing to remove.
func (g *Gate) Close(symbol, strategyName string) {
	g.Portfolio.Retire(symbol, strategyName)
}
