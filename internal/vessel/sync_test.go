package vessel

import (
	"testing"
	"time"

	"lunamatch/internal/lock"
	"lunamatch/internal/world"
)

func newSync() (*Sync, *world.World, *lock.Manager) {
	w := world.NewWorld()
	locks := lock.New()
	return New(w, locks, nil), w, locks
}

func TestProtoAutoGrantsControlOnNewVessel(t *testing.T) {
	s, w, locks := newSync()
	result, events := s.Proto("A", &world.Vessel{VesselID: "v1", Name: "Ship"})
	if result.Outcome != 0 {
		t.Fatalf("expected OK outcome, got %v", result.Outcome)
	}
	if len(events) != 1 || events[0].Action != "granted" || events[0].Type != lock.Control {
		t.Fatalf("expected auto-granted Control lock, got %#v", events)
	}
	if !w.Vessels.Exists("v1") {
		t.Fatalf("expected vessel stored")
	}
	owned := locks.OwnedBy("A")
	if len(owned) != 1 || owned[0].Type != lock.Control {
		t.Fatalf("expected A to hold Control(v1), got %#v", owned)
	}
}

func TestProtoRateLimited(t *testing.T) {
	s, _, _ := newSync()
	for i := 0; i < 5; i++ {
		result, _ := s.Proto("A", &world.Vessel{VesselID: "v" + string(rune('a'+i))})
		if result.Outcome != 0 {
			t.Fatalf("expected burst allowance to cover 5 uploads, failed at %d: %v", i, result.Outcome)
		}
	}
	result, _ := s.Proto("A", &world.Vessel{VesselID: "v6"})
	if result.Outcome != 3 { // protocol.RateLimited
		t.Fatalf("expected 6th upload within the same instant to be rate limited, got %v", result.Outcome)
	}
}

func TestUpdateRequiresLock(t *testing.T) {
	s, w, _ := newSync()
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})
	result := s.Update("B", "v1", 0, world.Vector3{}, world.Vector3{}, world.Vector3{}, nil)
	if result.Outcome != 2 { // protocol.Authorization
		t.Fatalf("expected Authorization without the Update lock, got %v", result.Outcome)
	}
}

func TestUpdateRejectsNaN(t *testing.T) {
	s, w, locks := newSync()
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})
	locks.Acquire(lock.Key{Type: lock.Update, VesselID: "v1"}, "A", false)

	nan := world.Vector3{X: nanFloat()}
	result := s.Update("A", "v1", 0, nan, world.Vector3{}, world.Vector3{}, nil)
	if result.Outcome != 1 { // protocol.Protocol
		t.Fatalf("expected Protocol rejection for NaN payload, got %v", result.Outcome)
	}
}

func TestUpdateRejectsTooFastInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s, w, locks := newSync()
	s.validator = s.validator.WithClock(clock)
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})
	locks.Acquire(lock.Key{Type: lock.Update, VesselID: "v1"}, "A", false)

	first := s.Update("A", "v1", 0, world.Vector3{X: 1}, world.Vector3{}, world.Vector3{}, nil)
	if first.Outcome != 0 {
		t.Fatalf("expected first update accepted, got %v", first.Outcome)
	}

	now = now.Add(5 * time.Millisecond)
	second := s.Update("A", "v1", 0, world.Vector3{X: 2}, world.Vector3{}, world.Vector3{}, nil)
	if second.Outcome != 1 {
		t.Fatalf("expected second update within 20ms rejected, got %v", second.Outcome)
	}
}

func TestUpdateRejectsTeleport(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { now = now.Add(time.Second); return now }

	s, w, locks := newSync()
	s.validator = s.validator.WithClock(clock)
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})
	locks.Acquire(lock.Key{Type: lock.Update, VesselID: "v1"}, "A", false)

	first := s.Update("A", "v1", 0, world.Vector3{X: 0}, world.Vector3{}, world.Vector3{}, nil)
	if first.Outcome != 0 {
		t.Fatalf("expected first update accepted, got %v", first.Outcome)
	}
	second := s.Update("A", "v1", 0, world.Vector3{X: DefaultTeleportThreshold * 10}, world.Vector3{}, world.Vector3{}, nil)
	if second.Outcome != 1 {
		t.Fatalf("expected teleporting update rejected, got %v", second.Outcome)
	}
}

func TestRemoveDropsLocksAndTombstones(t *testing.T) {
	s, w, locks := newSync()
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})
	locks.Acquire(lock.Key{Type: lock.Control, VesselID: "v1"}, "A", false)
	locks.Acquire(lock.Key{Type: lock.Update, VesselID: "v1"}, "A", false)

	result, events := s.Remove("A", "v1", false)
	if result.Outcome != 0 {
		t.Fatalf("expected OK, got %v", result.Outcome)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 lock release events, got %d", len(events))
	}
	if w.Vessels.Exists("v1") {
		t.Fatalf("expected vessel removed")
	}

	// Late update after removal should be dropped via tombstone.
	reUpdate := s.Update("A", "v1", 0, world.Vector3{}, world.Vector3{}, world.Vector3{}, nil)
	if reUpdate.Outcome != 4 { // protocol.NotFound
		t.Fatalf("expected NotFound for tombstoned vessel, got %v", reUpdate.Outcome)
	}
}

func TestRemoveRequiresOwnerOrAdmin(t *testing.T) {
	s, w, _ := newSync()
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", Owner: "A"})

	result, _ := s.Remove("B", "v1", false)
	if result.Outcome != 2 { // protocol.Authorization
		t.Fatalf("expected Authorization for non-owner non-admin, got %v", result.Outcome)
	}
	result, _ = s.Remove("B", "v1", true)
	if result.Outcome != 0 {
		t.Fatalf("expected admin override to succeed, got %v", result.Outcome)
	}
}

func nanFloat() float64 {
	var zero float64
	return zero / zero
}
