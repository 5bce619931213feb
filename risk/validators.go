package risk

import "fmt"

// MaxActivePositions rejects a candidate once the portfolio already holds
// at least Max positions. Grounded on the teacher's risk/checks.go
// "TOO_MANY_OPEN_TRADES" exposure check, generalized from a single-account
// broker to the cross-strategy Portfolio.
type MaxActivePositions struct {
	Max int
}

func (v MaxActivePositions) Name() string { return "max-active-positions" }

func (v MaxActivePositions) Check(c Candidate, active []Position) *Rejection {
	if len(active) >= v.Max {
		return &Rejection{
			ValidatorName: v.Name(),
			Reason:        fmt.Sprintf("active positions %d >= max %d", len(active), v.Max),
		}
	}
	return nil
}

// MaxPositionsPerSymbol rejects a candidate if the symbol already has Max
// or more active positions across all strategies, bounding per-symbol
// exposure independent of MaxActivePositions.
type MaxPositionsPerSymbol struct {
	Max int
}

func (v MaxPositionsPerSymbol) Name() string { return "max-positions-per-symbol" }

func (v MaxPositionsPerSymbol) Check(c Candidate, active []Position) *Rejection {
	count := 0
	for _, p := range active {
		if p.Symbol == c.Symbol {
			count++
		}
	}
	if count >= v.Max {
		return &Rejection{
			ValidatorName: v.Name(),
			Reason:        fmt.Sprintf("symbol %s already has %d active position(s) >= max %d", c.Symbol, count, v.Max),
		}
	}
	return nil
}

// MaxExposurePerDirection rejects a candidate if the portfolio already
// holds Max or more active positions in the candidate's direction (long or
// short), limiting one-sided market exposure across the whole portfolio.
type MaxExposurePerDirection struct {
	Max int
}

func (v MaxExposurePerDirection) Name() string { return "max-exposure-per-direction" }

func (v MaxExposurePerDirection) Check(c Candidate, active []Position) *Rejection {
	count := 0
	for _, p := range active {
		if p.Position == c.Proposal.Position {
			count++
		}
	}
	if count >= v.Max {
		return &Rejection{
			ValidatorName: v.Name(),
			Reason: fmt.Sprintf("%d active %s position(s) >= max %d",
				count, c.Proposal.Position, v.Max),
		}
	}
	return nil
}
