package world

import (
	"testing"
	"time"
)

func TestVesselRegistryDiffTracking(t *testing.T) {
	reg := NewVesselRegistry()
	reg.Upsert(&Vessel{VesselID: "v1", Name: "Kerbal X"})
	reg.Upsert(&Vessel{VesselID: "v2", Name: "Debris"})

	diff := reg.ConsumeDiff()
	if len(diff.Updated) != 2 {
		t.Fatalf("expected 2 updated vessels, got %d", len(diff.Updated))
	}

	// A second consume with no further writes should be empty.
	if diff := reg.ConsumeDiff(); diff.HasChanges() {
		t.Fatalf("expected no pending diff after consume, got %#v", diff)
	}

	reg.Remove("v1")
	diff = reg.ConsumeDiff()
	if len(diff.Removed) != 1 || diff.Removed[0] != "v1" {
		t.Fatalf("expected v1 removed, got %#v", diff.Removed)
	}
	if reg.Exists("v1") {
		t.Fatalf("expected v1 to no longer exist")
	}
}

func TestScenarioStateAdditivity(t *testing.T) {
	s := NewScenarioState()
	deltas := [][3]float64{
		{10, 0, 0},
		{0, -50000, 5},
		{5, 0, 0},
	}
	var science, funds, reputation float64
	for _, d := range deltas {
		science, funds, reputation = s.ApplyDelta(d[0], d[1], d[2])
	}
	if science != 15 {
		t.Fatalf("expected science=15, got %v", science)
	}
	if funds != -50000 {
		t.Fatalf("expected funds=-50000, got %v", funds)
	}
	if reputation != 5 {
		t.Fatalf("expected reputation=5, got %v", reputation)
	}
}

func TestPlayerRegistryIdleDetection(t *testing.T) {
	reg := NewPlayerRegistry()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.Join(&Player{SessionID: "s1", LastActivity: now.Add(-10 * time.Minute)})
	reg.Join(&Player{SessionID: "s2", LastActivity: now})

	idle := reg.IdleSince(now, 5*time.Minute)
	if len(idle) != 1 || idle[0] != "s1" {
		t.Fatalf("expected only s1 idle, got %#v", idle)
	}
}

func TestPlayerRegistryInvariant(t *testing.T) {
	reg := NewPlayerRegistry()
	reg.Join(&Player{SessionID: "s1", Username: "alice"})
	p := reg.Get("s1")
	if p == nil || p.SessionID != "s1" {
		t.Fatalf("expected players[s1].session_id == s1")
	}
	if !reg.Leave("s1") {
		t.Fatalf("expected leave to report the session existed")
	}
	if reg.Get("s1") != nil {
		t.Fatalf("expected player removed after leave")
	}
}
