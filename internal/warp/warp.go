// Package warp implements the time-warp sub-machine (§4.6): universe_time
// advancement under three coexisting modes (subspace, mcu, admin), subspace
// split/merge, and the admin-only warp-mode transitions that anchor a fresh
// universe_time on every mode change.
//
// Like internal/lock and internal/world, Machine carries no mutex: it is
// only ever touched from the owning match's tick goroutine (§5).
package warp

import "time"

// Mode enumerates the three warp modes named in §3/§4.6.
type Mode string

const (
	ModeSubspace Mode = "subspace"
	ModeMCU      Mode = "mcu"
	ModeAdmin    Mode = "admin"
)

// Subspace is a named time-origin: universe time for a member equals
// base + elapsed wall-clock since the subspace was created (§3).
type Subspace struct {
	SubspaceID        int
	BaseUniverseTime  float64
	CreationTimestamp time.Time
}

// At returns the universe time this subspace reports at wall-clock now.
func (s Subspace) At(now time.Time) float64 {
	return s.BaseUniverseTime + now.Sub(s.CreationTimestamp).Seconds()
}

// Event describes a broadcast-worthy warp change, translated by the router
// into WARP opcode messages (§6 opcode 40).
type Event struct {
	Mode       Mode
	Rate       float64
	SubspaceID int
}

// Machine owns one match's warp state.
type Machine struct {
	mode          Mode
	universeTime  float64
	adminRate     float64
	subspaces     map[int]*Subspace
	playerSub     map[string]int // session_id -> subspace_id
	playerRate    map[string]float64 // session_id -> last reported warp_rate (mcu mode)
	nextSubspace  int
	now           func() time.Time
}

// New constructs a Machine starting in subspace mode with a single subspace
// rooted at universe_time 0.
func New() *Machine {
	m := &Machine{
		mode:         ModeSubspace,
		adminRate:    1.0,
		subspaces:    make(map[int]*Subspace),
		playerSub:    make(map[string]int),
		playerRate:   make(map[string]float64),
		nextSubspace: 1,
		now:          time.Now,
	}
	m.subspaces[0] = &Subspace{SubspaceID: 0, BaseUniverseTime: 0, CreationTimestamp: m.now()}
	return m
}

// WithClock overrides the time source, for deterministic tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	if m != nil && now != nil {
		m.now = now
	}
	return m
}

// Mode returns the active warp mode.
func (m *Machine) Mode() Mode {
	if m == nil {
		return ModeSubspace
	}
	return m.mode
}

// UniverseTime returns the match-wide universe_time accumulator, used
// directly in mcu/admin mode; subspace mode clients should call
// UniverseTimeFor(session) instead.
func (m *Machine) UniverseTime() float64 {
	if m == nil {
		return 0
	}
	return m.universeTime
}

// UniverseTimeFor returns the universe time visible to a given session,
// honoring subspace membership when in subspace mode (§4.6, tested by S6).
func (m *Machine) UniverseTimeFor(sessionID string) float64 {
	if m == nil {
		return 0
	}
	if m.mode != ModeSubspace {
		return m.universeTime
	}
	subID, ok := m.playerSub[sessionID]
	if !ok {
		return m.universeTime
	}
	sub, ok := m.subspaces[subID]
	if !ok {
		return m.universeTime
	}
	return sub.At(m.now())
}

// JoinSubspace assigns a player to subspace 0 (the default) on join.
func (m *Machine) JoinSubspace(sessionID string) {
	if m == nil {
		return
	}
	m.playerSub[sessionID] = 0
}

// Leave removes all warp bookkeeping for a departed session.
func (m *Machine) Leave(sessionID string) {
	if m == nil {
		return
	}
	delete(m.playerSub, sessionID)
	delete(m.playerRate, sessionID)
}

// Advance moves universe_time forward by one tick of duration dt seconds,
// per the mode-specific rule in §4.6. In subspace mode the match-wide
// accumulator still advances at realtime (1x) so mode switches have a
// sane anchor; per-player time in that mode comes from UniverseTimeFor.
func (m *Machine) Advance(dt float64) {
	if m == nil {
		return
	}
	switch m.mode {
	case ModeMCU:
		rate := m.minReportedRate()
		m.universeTime += dt * rate
	case ModeAdmin:
		m.universeTime += dt * m.adminRate
	default: // subspace
		m.universeTime += dt
	}
}

func (m *Machine) minReportedRate() float64 {
	if len(m.playerRate) == 0 {
		return 1.0
	}
	min := -1.0
	for _, r := range m.playerRate {
		if min < 0 || r < min {
			min = r
		}
	}
	if min < 0 {
		return 1.0
	}
	return min
}

// ReportRate records a player's requested warp_rate for mcu-mode
// min-rate computation (§4.6's "minimum warp_rate reported by any present
// player").
func (m *Machine) ReportRate(sessionID string, rate float64) {
	if m == nil || rate <= 0 {
		return
	}
	m.playerRate[sessionID] = rate
}

// SetMode transitions the match to a new warp mode, admin-gated by the
// caller (§4.4: Warp authorization is mode-dependent). Every transition
// anchors a fresh universe_time (§4.6's "mode transitions broadcast ... a
// fresh universe_time anchor") — here that anchor is simply the current
// accumulator value carried forward unchanged, since Advance already keeps
// it continuous across modes.
func (m *Machine) SetMode(mode Mode) Event {
	if m == nil {
		return Event{}
	}
	m.mode = mode
	return Event{Mode: mode, Rate: m.adminRate}
}

// SetAdminRate updates the admin-mode warp factor (§4.6's admin_warp_factor).
func (m *Machine) SetAdminRate(rate float64) {
	if m == nil || rate <= 0 {
		return
	}
	m.adminRate = rate
}
