package vessel

import (
	"math"
	"time"

	"lunamatch/internal/world"
)

// RejectReason identifies why an Update was dropped by the anti-cheat check
// (§4.7: "reject if inter-update interval < 20 ms, if position delta implies
// teleport beyond a body-dependent threshold, or if payload contains NaN").
type RejectReason string

const (
	RejectNone      RejectReason = ""
	RejectInterval  RejectReason = "interval_too_short"
	RejectTeleport  RejectReason = "teleport"
	RejectNaN       RejectReason = "nan_payload"
)

// TeleportThresholds maps a celestial body index to the maximum plausible
// per-update position delta (meters) before a jump is treated as a cheat.
// Bodies not listed fall back to DefaultTeleportThreshold.
type TeleportThresholds map[int]float64

// DefaultTeleportThreshold is used for any body absent from the threshold map.
const DefaultTeleportThreshold = 50000.0

// MinUpdateInterval is the minimum time allowed between two accepted Update
// messages for the same vessel (§4.7).
const MinUpdateInterval = 20 * time.Millisecond

// Validator enforces the anti-cheat rules for VesselUpdate payloads. It
// tracks one lastUpdate timestamp and position per vessel, mirroring the
// teacher's per-client cooldown bookkeeping in internal/input/validation.go
// adapted from throttle/brake/steer channels to position/rotation/velocity.
type Validator struct {
	thresholds TeleportThresholds
	last       map[string]lastState
	now        func() time.Time
}

type lastState struct {
	at       time.Time
	position world.Vector3
}

// NewValidator constructs a Validator with the given per-body thresholds.
func NewValidator(thresholds TeleportThresholds) *Validator {
	return &Validator{thresholds: thresholds, last: make(map[string]lastState), now: time.Now}
}

// WithClock overrides the time source, for deterministic tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	if v != nil && now != nil {
		v.now = now
	}
	return v
}

func isFiniteVector(vec world.Vector3) bool {
	return !math.IsNaN(vec.X) && !math.IsNaN(vec.Y) && !math.IsNaN(vec.Z) &&
		!math.IsInf(vec.X, 0) && !math.IsInf(vec.Y, 0) && !math.IsInf(vec.Z, 0)
}

func distance(a, b world.Vector3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v *Validator) threshold(body int) float64 {
	if v.thresholds != nil {
		if t, ok := v.thresholds[body]; ok {
			return t
		}
	}
	return DefaultTeleportThreshold
}

// Validate checks one proposed Update against the anti-cheat rules and the
// vessel's previous accepted state. It does not mutate anything; the caller
// applies Accept() once the update has been approved.
func (v *Validator) Validate(vesselID string, body int, position, rotation, velocity world.Vector3) RejectReason {
	if v == nil {
		return RejectNone
	}
	if !isFiniteVector(position) || !isFiniteVector(rotation) || !isFiniteVector(velocity) {
		return RejectNaN
	}

	prev, ok := v.last[vesselID]
	if !ok {
		return RejectNone
	}

	now := time.Now
	if v.now != nil {
		now = v.now
	}
	if now().Sub(prev.at) < MinUpdateInterval {
		return RejectInterval
	}
	if distance(position, prev.position) > v.threshold(body) {
		return RejectTeleport
	}
	return RejectNone
}

// Accept records the position/time of an approved update for future checks.
func (v *Validator) Accept(vesselID string, position world.Vector3) {
	if v == nil {
		return
	}
	now := time.Now
	if v.now != nil {
		now = v.now
	}
	v.last[vesselID] = lastState{at: now(), position: position}
}

// Forget drops tracking state for a removed vessel.
func (v *Validator) Forget(vesselID string) {
	if v == nil {
		return
	}
	delete(v.last, vesselID)
}
