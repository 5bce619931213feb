package risk

// riskNamed is satisfied by any StrategyProvider that names the risk
// validator set(s) to run for its signals (engine.RiskNamed). Declared
// locally, rather than imported, since engine already imports risk.
type riskNamed interface {
	RiskName() string
	RiskList() []string
}

// Registry maps a risk-validator-set name to the Validators composing it,
// so a strategy's RiskName()/RiskList() can be resolved into a concrete
// validator chain at engine construction time (spec.md §6, and the §9 Open
// Question resolved as: run the union of riskName/riskList validators, in
// order, all must admit).
type Registry struct {
	sets map[string][]Validator
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string][]Validator)}
}

// Register names a validator set. A second Register call with the same
// name replaces it.
func (r *Registry) Register(name string, validators ...Validator) {
	r.sets[name] = validators
}

// Resolve returns the ordered, deduplicated (by Validator.Name) union of
// every Validator registered under any of names. An unknown name
// contributes nothing rather than erroring, so a strategy naming a set
// that hasn't been registered yet degrades to no extra checks.
func (r *Registry) Resolve(names []string) []Validator {
	seen := make(map[string]bool)
	var out []Validator
	for _, name := range names {
		if name == "" {
			continue
		}
		for _, v := range r.sets[name] {
			if seen[v.Name()] {
				continue
			}
			seen[v.Name()] = true
			out = append(out, v)
		}
	}
	return out
}

// ForStrategy returns the Gate that should evaluate signals proposed by
// strategy: if strategy implements RiskNamed and g has a Registry
// attached, it resolves RiskName()+RiskList() through the Registry and
// returns a new Gate over the same Portfolio with that validator set.
// Otherwise it returns g unchanged, so engines built without a Registry or
// against a plain StrategyProvider keep their fixed validator chain.
func (g *Gate) ForStrategy(strategy interface{}) *Gate {
	rn, ok := strategy.(riskNamed)
	if !ok || g.Registry == nil {
		return g
	}

	names := append([]string{rn.RiskName()}, rn.RiskList()...)
	resolved := g.Registry.Resolve(names)
	if len(resolved) == 0 {
		return g
	}
	return &Gate{Portfolio: g.Portfolio, Validators: resolved, Registry: g.Registry}
}
