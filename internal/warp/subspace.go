package warp

// Split creates a new subspace rooted at the current universe time visible
// to the requester, and moves the requester into it (§4.6: "players may
// request a new subspace; new subspaces inherit the current wall clock as
// base"). Returns the new subspace id.
func (m *Machine) Split(sessionID string) int {
	if m == nil {
		return 0
	}
	base := m.UniverseTimeFor(sessionID)
	id := m.nextSubspace
	m.nextSubspace++
	m.subspaces[id] = &Subspace{SubspaceID: id, BaseUniverseTime: base, CreationTimestamp: m.now()}
	m.playerSub[sessionID] = id
	return id
}

// Merge moves a requester into an existing subspace (§4.6: "or join
// another"). Reports false if the target subspace does not exist.
func (m *Machine) Merge(sessionID string, targetSubspaceID int) bool {
	if m == nil {
		return false
	}
	if _, ok := m.subspaces[targetSubspaceID]; !ok {
		return false
	}
	m.playerSub[sessionID] = targetSubspaceID
	m.pruneEmpty()
	return true
}

// pruneEmpty drops subspaces with no remaining members, except subspace 0
// which always exists as the default. Subspaces that still have members are
// kept as they are; none are merged here, so no tie-break between them is
// applied.
func (m *Machine) pruneEmpty() {
	counts := make(map[int]int)
	for _, sub := range m.playerSub {
		counts[sub]++
	}
	for id := range m.subspaces {
		if id == 0 {
			continue
		}
		if counts[id] == 0 {
			delete(m.subspaces, id)
		}
	}
}

// Subspaces returns every live subspace, for snapshot/debug purposes.
func (m *Machine) Subspaces() []*Subspace {
	if m == nil {
		return nil
	}
	out := make([]*Subspace, 0, len(m.subspaces))
	for _, s := range m.subspaces {
		out = append(out, s)
	}
	return out
}

// SubspaceOf returns the subspace id a session currently belongs to.
func (m *Machine) SubspaceOf(sessionID string) (int, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.playerSub[sessionID]
	return id, ok
}
