package admin

import (
	"fmt"
	"testing"
	"time"

	"lunamatch/internal/lock"
	"lunamatch/internal/world"
)

func TestAutoPromoteOnlyFirstJoiner(t *testing.T) {
	s := NewSet()
	s.AutoPromoteFirstJoiner("p1")
	s.AutoPromoteFirstJoiner("p2")
	if !s.IsAdmin("p1") {
		t.Fatalf("expected first joiner promoted")
	}
	if s.IsAdmin("p2") {
		t.Fatalf("expected second joiner not auto-promoted")
	}
}

func TestGrantAndRevoke(t *testing.T) {
	s := NewSet()
	s.Grant("p1")
	if !s.IsAdmin("p1") {
		t.Fatalf("expected p1 granted")
	}
	s.Revoke("p1")
	if s.IsAdmin("p1") {
		t.Fatalf("expected p1 revoked")
	}
}

func TestDekesslerRemovesOnlyDebris(t *testing.T) {
	w := world.NewWorld()
	locks := lock.New()
	w.Vessels.Upsert(&world.Vessel{VesselID: "d1", Type: world.VesselDebris})
	w.Vessels.Upsert(&world.Vessel{VesselID: "s1", Type: world.VesselShip})
	locks.Acquire(lock.Key{Type: lock.Control, VesselID: "d1"}, "A", false)

	removed := Dekessler(w, locks)
	if len(removed) != 1 || removed[0].VesselID != "d1" {
		t.Fatalf("expected only debris removed, got %#v", removed)
	}
	if w.Vessels.Exists("d1") {
		t.Fatalf("expected debris vessel removed")
	}
	if !w.Vessels.Exists("s1") {
		t.Fatalf("expected ship vessel untouched")
	}
	if len(locks.OwnedBy("A")) != 0 {
		t.Fatalf("expected locks on removed debris released")
	}
}

func TestNukeMatchesLandedLocationCaseInsensitive(t *testing.T) {
	w := world.NewWorld()
	locks := lock.New()
	w.Vessels.Upsert(&world.Vessel{VesselID: "v1", LandedAt: "KSC Runway 09"})
	w.Vessels.Upsert(&world.Vessel{VesselID: "v2", LandedAt: "Mun Mare Crisium"})

	removed := Nuke(w, locks)
	if len(removed) != 1 || removed[0].VesselID != "v1" {
		t.Fatalf("expected only the KSC vessel removed, got %#v", removed)
	}
}

type memStore struct {
	data map[string]map[string]any
}

func newMemStore() *memStore { return &memStore{data: make(map[string]map[string]any)} }

func (m *memStore) Put(collection, key string, value any) error {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]any)
	}
	m.data[collection][key] = value
	return nil
}

func (m *memStore) Get(collection, key string, dst any) (bool, error) {
	bucket, ok := m.data[collection]
	if !ok {
		return false, nil
	}
	val, ok := bucket[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *BanRecord:
		*d = val.(BanRecord)
	case *groupsDocument:
		*d = val.(groupsDocument)
	default:
		return false, fmt.Errorf("unsupported dst type %T", dst)
	}
	return true, nil
}

func (m *memStore) Delete(collection, key string) error {
	if bucket, ok := m.data[collection]; ok {
		delete(bucket, key)
	}
	return nil
}

func TestBanListRoundTrip(t *testing.T) {
	store := newMemStore()
	bans := NewBanList(store).WithClock(func() time.Time { return time.Unix(0, 0) })

	banned, err := bans.IsBanned("u1")
	if err != nil || banned {
		t.Fatalf("expected u1 not banned initially")
	}
	if err := bans.Ban("u1", "cheating"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	banned, err = bans.IsBanned("u1")
	if err != nil || !banned {
		t.Fatalf("expected u1 banned after Ban")
	}
	if err := bans.Unban("u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	banned, _ = bans.IsBanned("u1")
	if banned {
		t.Fatalf("expected u1 unbanned")
	}
}

func TestGroupsRoundTrip(t *testing.T) {
	store := newMemStore()
	groups := NewGroups(store)
	if err := groups.Create("wolfpack", "A", []string{"A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := groups.Update("wolfpack", []string{"A", "B"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, ok := groups.Get("wolfpack")
	if !ok || len(g.Members) != 2 {
		t.Fatalf("expected 2 members after update, got %#v", g)
	}

	// Reload from store to confirm persistence.
	reloaded := NewGroups(store)
	g, ok = reloaded.Get("wolfpack")
	if !ok || len(g.Members) != 2 {
		t.Fatalf("expected roster to persist across reload, got %#v", g)
	}
}

func TestAuditRingBufferWrapsAndOrders(t *testing.T) {
	a := NewAudit(3)
	a.Record("admin1", "kick", "sess1", "ok")
	a.Record("admin1", "ban", "user1", "ok")
	a.Record("admin1", "dekessler", "", "ok")
	a.Record("admin1", "nuke", "", "ok") // overwrites the oldest (kick)

	recent := a.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected ring capped at 3 entries, got %d", len(recent))
	}
	if recent[0].Action != "ban" {
		t.Fatalf("expected oldest surviving entry to be 'ban', got %q", recent[0].Action)
	}
	if recent[len(recent)-1].Action != "nuke" {
		t.Fatalf("expected newest entry last, got %q", recent[len(recent)-1].Action)
	}
}
