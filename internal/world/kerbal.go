package world

import "time"

// Kerbal is keyed by kerbal_id (§3).
type Kerbal struct {
	KerbalID   string
	Name       string
	Type       string
	Status     string
	VesselID   string
	Experience float64
	Courage    float64
	Stupidity  float64
	UpdatedBy  string
	UpdatedAt  time.Time
}

// KerbalDiff groups updated and removed kerbal identifiers for a tick.
type KerbalDiff struct {
	Updated []*Kerbal
	Removed []string
}

// KerbalRegistry maintains the authoritative kerbal roster with the same
// dirty-tracking shape as VesselRegistry.
type KerbalRegistry struct {
	kerbals map[string]*Kerbal
	dirty   map[string]struct{}
	removed map[string]struct{}
}

// NewKerbalRegistry constructs an empty registry.
func NewKerbalRegistry() *KerbalRegistry {
	return &KerbalRegistry{
		kerbals: make(map[string]*Kerbal),
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

// Upsert records or updates a kerbal and flags it dirty.
func (r *KerbalRegistry) Upsert(k *Kerbal) {
	if r == nil || k == nil || k.KerbalID == "" {
		return
	}
	clone := *k
	r.kerbals[clone.KerbalID] = &clone
	delete(r.removed, clone.KerbalID)
	r.dirty[clone.KerbalID] = struct{}{}
}

// Remove deletes a kerbal and marks it removed.
func (r *KerbalRegistry) Remove(kerbalID string) bool {
	if r == nil || kerbalID == "" {
		return false
	}
	_, existed := r.kerbals[kerbalID]
	delete(r.kerbals, kerbalID)
	delete(r.dirty, kerbalID)
	r.removed[kerbalID] = struct{}{}
	return existed
}

// Get returns the stored kerbal, or nil.
func (r *KerbalRegistry) Get(kerbalID string) *Kerbal {
	if r == nil {
		return nil
	}
	return r.kerbals[kerbalID]
}

// ConsumeDiff drains and clears the pending updates/removals.
func (r *KerbalRegistry) ConsumeDiff() KerbalDiff {
	if r == nil {
		return KerbalDiff{}
	}
	updated := make([]*Kerbal, 0, len(r.dirty))
	for id := range r.dirty {
		if k, ok := r.kerbals[id]; ok {
			updated = append(updated, k)
		}
	}
	removed := make([]string, 0, len(r.removed))
	for id := range r.removed {
		removed = append(removed, id)
	}
	r.dirty = make(map[string]struct{})
	r.removed = make(map[string]struct{})
	return KerbalDiff{Updated: updated, Removed: removed}
}

// Snapshot returns every stored kerbal, used for the Join server-snapshot.
func (r *KerbalRegistry) Snapshot() []*Kerbal {
	if r == nil {
		return nil
	}
	out := make([]*Kerbal, 0, len(r.kerbals))
	for _, k := range r.kerbals {
		out = append(out, k)
	}
	return out
}
