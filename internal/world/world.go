package world

// Diff groups every dirty-tracked change produced by one tick, ready to be
// handed to the Dispatcher for broadcast. Grounded on the teacher's
// state.TickDiff, extended with kerbals alongside vessels.
type Diff struct {
	Vessels VesselDiff
	Kerbals KerbalDiff
}

// HasChanges reports whether anything needs to be broadcast this tick.
func (d Diff) HasChanges() bool {
	return len(d.Vessels.Updated) > 0 || len(d.Vessels.Removed) > 0 ||
		len(d.Kerbals.Updated) > 0 || len(d.Kerbals.Removed) > 0
}

// World is the in-memory Match State owned exclusively by one match's tick
// thread (§3: "the Match exclusively owns all Player, Vessel, Kerbal ...
// records").
type World struct {
	Players  *PlayerRegistry
	Vessels  *VesselRegistry
	Kerbals  *KerbalRegistry
	Scenario *ScenarioState
}

// NewWorld constructs an empty Match State.
func NewWorld() *World {
	return &World{
		Players:  NewPlayerRegistry(),
		Vessels:  NewVesselRegistry(),
		Kerbals:  NewKerbalRegistry(),
		Scenario: NewScenarioState(),
	}
}

// ConsumeDiff drains the per-tick diff from every dirty-tracked registry.
func (w *World) ConsumeDiff() Diff {
	if w == nil {
		return Diff{}
	}
	return Diff{
		Vessels: w.Vessels.ConsumeDiff(),
		Kerbals: w.Kerbals.ConsumeDiff(),
	}
}
