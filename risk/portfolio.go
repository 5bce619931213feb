// Package risk implements the RiskGate (spec.md §4.6): a process-wide
// Portfolio of active positions and an ordered chain of pure validators
// that admit or reject a proposed signal.
package risk

import (
	"sync"
	"time"

	"github.com/driftwood-labs/sigengine/signal"
)

// Position is the Portfolio's view of one active signal, keyed by
// (symbol, strategyName).
type Position struct {
	Symbol       string
	StrategyName string
	ExchangeName string
	Position     signal.Position
	PriceOpen    float64
	OpenedAt     time.Time
}

// key identifies a position the same way ActiveSignal's at-most-one
// invariant does (spec.md §3).
type key struct {
	symbol       string
	strategyName string
}

// Portfolio is the process-wide registry of currently active positions,
// shared by every engine instance in the process (spec.md §4.6, §9 "Process-
// wide portfolio"). All mutation happens through Admit/Retire, which
// serialize with an internal mutex; callers never need their own locking.
type Portfolio struct {
	mu        sync.Mutex
	positions map[key]Position
}

// NewPortfolio returns an empty Portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{positions: make(map[key]Position)}
}

// Admit registers a newly opened position. It is idempotent for the same
// (symbol, strategyName) key: a second Admit simply overwrites.
func (p *Portfolio) Admit(pos Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[key{pos.Symbol, pos.StrategyName}] = pos
}

// Retire removes the position for (symbol, strategyName), if present.
func (p *Portfolio) Retire(symbol, strategyName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.positions, key{symbol, strategyName})
}

// Snapshot returns a point-in-time copy of all active positions, safe for
// validators to range over without holding the Portfolio's lock.
func (p *Portfolio) Snapshot() []Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out
}

// Count returns the number of currently active positions.
func (p *Portfolio) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.positions)
}
