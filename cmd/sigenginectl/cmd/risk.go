package cmd

import "github.com/driftwood-labs/sigengine/risk"

// demoRiskRegistry names the validator sets --risk-name can select between.
// "default" mirrors the teacher's single TOO_MANY_OPEN_TRADES-style check;
// "conservative" layers on a per-symbol and per-direction exposure cap.
func demoRiskRegistry() *risk.Registry {
	reg := risk.NewRegistry()
	reg.Register("default", risk.MaxActivePositions{Max: 5})
	reg.Register("conservative",
		risk.MaxActivePositions{Max: 2},
		risk.MaxPositionsPerSymbol{Max: 1},
		risk.MaxExposurePerDirection{Max: 1},
	)
	return reg
}
