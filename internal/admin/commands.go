package admin

import (
	"strings"
	"time"

	"lunamatch/internal/lock"
	"lunamatch/internal/world"
)

// Removal describes one vessel dropped by a sweep command, for broadcast.
type Removal struct {
	VesselID string
}

// Dekessler removes every Debris vessel (§4.10).
func Dekessler(w *world.World, locks *lock.Manager) []Removal {
	return sweepVessels(w, locks, func(v *world.Vessel) bool {
		return v.Type == world.VesselDebris
	})
}

var nukeMarkers = []string{"ksc", "runway", "launchpad"}

// Nuke removes every vessel whose landed-location string contains any of
// {KSC, Runway, Launchpad} case-insensitively (§4.10).
func Nuke(w *world.World, locks *lock.Manager) []Removal {
	return sweepVessels(w, locks, func(v *world.Vessel) bool {
		loc := strings.ToLower(v.LandedAt)
		for _, marker := range nukeMarkers {
			if strings.Contains(loc, marker) {
				return true
			}
		}
		return false
	})
}

func sweepVessels(w *world.World, locks *lock.Manager, match func(*world.Vessel) bool) []Removal {
	if w == nil {
		return nil
	}
	var removed []Removal
	for _, v := range w.Vessels.Snapshot() {
		if !match(v) {
			continue
		}
		locks.ReleaseVessel(v.VesselID)
		w.Vessels.Remove(v.VesselID)
		removed = append(removed, Removal{VesselID: v.VesselID})
	}
	return removed
}

// BanRecord is the persisted shape of one ban (storage collection "bans",
// §6).
type BanRecord struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BanStore is the narrow slice of the Storage Adapter the Admin Plane needs
// for ban persistence, kept as a local interface so this package does not
// import internal/storage directly.
type BanStore interface {
	Put(collection, key string, value any) error
	Get(collection, key string, dst any) (bool, error)
	Delete(collection, key string) error
}

// BanList enforces the ban check used by join_attempt (§4.3/§4.10).
type BanList struct {
	store BanStore
	now   func() time.Time
}

// NewBanList constructs a BanList backed by the given store.
func NewBanList(store BanStore) *BanList {
	return &BanList{store: store, now: time.Now}
}

// WithClock overrides the time source, for deterministic tests.
func (b *BanList) WithClock(now func() time.Time) *BanList {
	if b != nil && now != nil {
		b.now = now
	}
	return b
}

// Ban persists a ban record keyed by user_id (§4.10).
func (b *BanList) Ban(userID, reason string) error {
	if b == nil || b.store == nil {
		return nil
	}
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	return b.store.Put("bans", userID, BanRecord{UserID: userID, Reason: reason, Timestamp: now()})
}

// Unban removes a ban record.
func (b *BanList) Unban(userID string) error {
	if b == nil || b.store == nil {
		return nil
	}
	return b.store.Delete("bans", userID)
}

// IsBanned reports whether join_attempt must reject this user_id.
func (b *BanList) IsBanned(userID string) (bool, error) {
	if b == nil || b.store == nil {
		return false, nil
	}
	var rec BanRecord
	found, err := b.store.Get("bans", userID, &rec)
	if err != nil {
		return false, err
	}
	return found, nil
}
