package warp

import (
	"testing"
	"time"
)

// S6 (subspace time): subspace 0 at base=100, created at wall=1000; querying
// at wall=1005 should report 105 (± epsilon).
func TestScenarioS6SubspaceTime(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 16, 40, 0, time.UTC) // wall=1000s from epoch-ish anchor
	now := created.Add(5 * time.Second)

	m := New().WithClock(func() time.Time { return now })
	m.subspaces[0] = &Subspace{SubspaceID: 0, BaseUniverseTime: 100, CreationTimestamp: created}
	m.playerSub["p1"] = 0

	got := m.UniverseTimeFor("p1")
	if got < 104.999 || got > 105.001 {
		t.Fatalf("expected universe time ~105, got %v", got)
	}
}

func TestMCUModeUsesMinimumRate(t *testing.T) {
	m := New()
	m.SetMode(ModeMCU)
	m.ReportRate("p1", 4.0)
	m.ReportRate("p2", 1.0)
	m.ReportRate("p3", 10.0)

	before := m.UniverseTime()
	m.Advance(1.0)
	after := m.UniverseTime()

	if got := after - before; got < 0.999 || got > 1.001 {
		t.Fatalf("expected advance by min rate 1.0, got %v", got)
	}
}

func TestMCUModeDefaultsToRealtimeWithNoReports(t *testing.T) {
	m := New()
	m.SetMode(ModeMCU)
	before := m.UniverseTime()
	m.Advance(1.0)
	if got := m.UniverseTime() - before; got < 0.999 || got > 1.001 {
		t.Fatalf("expected default 1x rate with no reports, got %v", got)
	}
}

func TestAdminModeUsesAdminRate(t *testing.T) {
	m := New()
	m.SetMode(ModeAdmin)
	m.SetAdminRate(5.0)
	before := m.UniverseTime()
	m.Advance(1.0)
	if got := m.UniverseTime() - before; got < 4.999 || got > 5.001 {
		t.Fatalf("expected advance by admin rate 5.0, got %v", got)
	}
}

func TestSubspaceSplitAndMerge(t *testing.T) {
	m := New()
	m.JoinSubspace("p1")
	m.JoinSubspace("p2")

	newID := m.Split("p1")
	if newID == 0 {
		t.Fatalf("expected split to allocate a nonzero subspace id")
	}
	sub, ok := m.SubspaceOf("p1")
	if !ok || sub != newID {
		t.Fatalf("expected p1 moved into new subspace %d, got %d", newID, sub)
	}

	if ok := m.Merge("p1", 0); !ok {
		t.Fatalf("expected merge into subspace 0 to succeed")
	}
	sub, ok = m.SubspaceOf("p1")
	if !ok || sub != 0 {
		t.Fatalf("expected p1 back in subspace 0, got %d", sub)
	}

	// The now-empty split subspace should have been pruned, subspace 0 must remain.
	found0 := false
	foundOld := false
	for _, s := range m.Subspaces() {
		if s.SubspaceID == 0 {
			found0 = true
		}
		if s.SubspaceID == newID {
			foundOld = true
		}
	}
	if !found0 {
		t.Fatalf("expected default subspace 0 to persist")
	}
	if foundOld {
		t.Fatalf("expected emptied subspace %d to be pruned", newID)
	}
}

func TestMergeUnknownSubspaceFails(t *testing.T) {
	m := New()
	m.JoinSubspace("p1")
	if ok := m.Merge("p1", 999); ok {
		t.Fatalf("expected merge into unknown subspace to fail")
	}
}

func TestLeaveClearsWarpBookkeeping(t *testing.T) {
	m := New()
	m.SetMode(ModeMCU)
	m.JoinSubspace("p1")
	m.ReportRate("p1", 2.0)

	m.Leave("p1")

	if _, ok := m.SubspaceOf("p1"); ok {
		t.Fatalf("expected p1's subspace membership cleared on leave")
	}
	// Rate should no longer factor into the mcu minimum.
	m.ReportRate("p2", 8.0)
	before := m.UniverseTime()
	m.Advance(1.0)
	if got := m.UniverseTime() - before; got < 7.999 || got > 8.001 {
		t.Fatalf("expected p1's stale rate ignored, advance ~8.0, got %v", got)
	}
}

func TestSetModeAnchorsUniverseTime(t *testing.T) {
	m := New()
	m.Advance(10) // universe_time now 10 in subspace mode
	before := m.UniverseTime()
	ev := m.SetMode(ModeAdmin)
	if ev.Mode != ModeAdmin {
		t.Fatalf("expected mode-change event to report new mode, got %v", ev.Mode)
	}
	if m.UniverseTime() != before {
		t.Fatalf("expected universe_time continuous across mode switch, before=%v after=%v", before, m.UniverseTime())
	}
}
