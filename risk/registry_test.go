package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRiskNamed struct {
	name string
	list []string
}

func (f fakeRiskNamed) RiskName() string   { return f.name }
func (f fakeRiskNamed) RiskList() []string { return f.list }

func TestRegistryResolveDedupesAcrossSets(t *testing.T) {
	reg := NewRegistry()
	capLimit := MaxActivePositions{Max: 1}
	reg.Register("a", capLimit, MaxPositionsPerSymbol{Max: 2})
	reg.Register("b", capLimit, MaxExposurePerDirection{Max: 3})

	resolved := reg.Resolve([]string{"a", "b"})
	require.Len(t, resolved, 3)
	names := []string{resolved[0].Name(), resolved[1].Name(), resolved[2].Name()}
	assert.Equal(t, []string{"max-active-positions", "max-positions-per-symbol", "max-exposure-per-direction"}, names)
}

func TestRegistryResolveUnknownNameYieldsNothing(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", MaxActivePositions{Max: 1})

	assert.Empty(t, reg.Resolve([]string{"unregistered"}))
	assert.Empty(t, reg.Resolve(nil))
}

func TestGateForStrategyResolvesNamedSet(t *testing.T) {
	reg := NewRegistry()
	reg.Register("tight", MaxActivePositions{Max: 0})
	base := &Gate{Portfolio: NewPortfolio(), Registry: reg}

	resolved := base.ForStrategy(fakeRiskNamed{name: "tight"})
	require.NotSame(t, base, resolved)
	require.Len(t, resolved.Validators, 1)
	assert.Equal(t, "max-active-positions", resolved.Validators[0].Name())
	assert.Same(t, base.Portfolio, resolved.Portfolio)
}

func TestGateForStrategyFallsBackWithoutRegistryOrRiskNamed(t *testing.T) {
	base := NewGate(NewPortfolio(), MaxActivePositions{Max: 5})

	assert.Same(t, base, base.ForStrategy(fakeRiskNamed{name: "anything"}))
	assert.Same(t, base, base.ForStrategy("not-risk-named"))
}
