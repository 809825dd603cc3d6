package world

// ScenarioState holds the three shared progress counters plus opaque
// per-module blobs (§3, §4.8). Mutated only through additive deltas.
type ScenarioState struct {
	Science    float64
	Funds      float64
	Reputation float64

	// Modules holds opaque per-module scenario blobs, relayed but never
	// interpreted by the server (§4.8).
	Modules map[string][]byte
}

// NewScenarioState constructs a zeroed scenario ledger.
func NewScenarioState() *ScenarioState {
	return &ScenarioState{Modules: make(map[string][]byte)}
}

// ApplyDelta applies an additive share-progress delta and returns the new
// absolute totals (§4.8, §8 property 7).
func (s *ScenarioState) ApplyDelta(scienceDelta, fundsDelta, reputationDelta float64) (science, funds, reputation float64) {
	if s == nil {
		return 0, 0, 0
	}
	s.Science += scienceDelta
	s.Funds += fundsDelta
	s.Reputation += reputationDelta
	return s.Science, s.Funds, s.Reputation
}

// SetModule stores an opaque per-module blob, overwriting any previous value.
func (s *ScenarioState) SetModule(name string, blob []byte) {
	if s == nil || name == "" {
		return
	}
	if s.Modules == nil {
		s.Modules = make(map[string][]byte)
	}
	s.Modules[name] = blob
}
