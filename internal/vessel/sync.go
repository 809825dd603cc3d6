// Package vessel implements Vessel Sync (§4.7): the Proto/Update/Remove
// paths over the Match State's vessel registry, anti-cheat validation for
// Update, and the tombstone set that silently absorbs late updates for
// vessels that have already been removed.
package vessel

import (
	"time"

	"golang.org/x/time/rate"

	"lunamatch/internal/lock"
	"lunamatch/internal/protocol"
	"lunamatch/internal/world"
)

// ProtoLimit is the per-user rate for full-vessel Proto uploads (§4.7: "5
// per user per 60 s").
var ProtoLimit = rate.Every(60 * time.Second / 5)

// UpdateLimit is the per-vessel rate for delta Updates (§4.7: "50/s").
var UpdateLimit = rate.Every(time.Second / 50)

// Sync wires the vessel registry, lock manager, anti-cheat validator, and
// tombstone set together behind the three wire operations.
type Sync struct {
	world      *world.World
	locks      *lock.Manager
	validator  *Validator
	tombstones *Tombstones
	protoLim   map[string]*rate.Limiter // owner -> limiter
	updateLim  map[string]*rate.Limiter // vessel_id -> limiter
}

// New constructs a Sync bound to one match's world and lock manager.
func New(w *world.World, locks *lock.Manager, thresholds TeleportThresholds) *Sync {
	return &Sync{
		world:      w,
		locks:      locks,
		validator:  NewValidator(thresholds),
		tombstones: NewTombstones(),
		protoLim:   make(map[string]*rate.Limiter),
		updateLim:  make(map[string]*rate.Limiter),
	}
}

func (s *Sync) protoLimiter(owner string) *rate.Limiter {
	l, ok := s.protoLim[owner]
	if !ok {
		l = rate.NewLimiter(ProtoLimit, 5)
		s.protoLim[owner] = l
	}
	return l
}

func (s *Sync) updateLimiter(vesselID string) *rate.Limiter {
	l, ok := s.updateLim[vesselID]
	if !ok {
		l = rate.NewLimiter(UpdateLimit, 50)
		s.updateLim[vesselID] = l
	}
	return l
}

// Proto handles a full-vessel upload (§4.7 "Proto" path). If the vessel is
// new, a Control lock is auto-created for the sender.
func (s *Sync) Proto(sender string, v *world.Vessel) (protocol.Result, []lock.Event) {
	if v == nil || v.VesselID == "" {
		return protocol.Of(protocol.Protocol, "missing vessel_id"), nil
	}
	if !s.protoLimiter(sender).Allow() {
		return protocol.Of(protocol.RateLimited, "proto_rate_limit"), nil
	}
	if s.tombstones.Contains(v.VesselID) {
		return protocol.Of(protocol.NotFound, "vessel_tombstoned"), nil
	}

	isNew := !s.world.Vessels.Exists(v.VesselID)
	v.Owner = sender
	v.LastUpdate = time.Now()
	s.world.Vessels.Upsert(v)

	var events []lock.Event
	if isNew {
		events, _ = s.locks.Acquire(lock.Key{Type: lock.Control, VesselID: v.VesselID}, sender, false)
	}
	return protocol.Ok(), events
}

// Update handles a delta update (§4.7 "Update" path): requires the Update
// lock, is per-vessel rate limited, and runs anti-cheat validation.
func (s *Sync) Update(sender string, vesselID string, body int, position, rotation, velocity world.Vector3, apply func(*world.Vessel)) protocol.Result {
	if s.tombstones.Contains(vesselID) {
		return protocol.Of(protocol.NotFound, "vessel_tombstoned")
	}
	owner, held := s.locks.UpdateExists(vesselID)
	if !held || owner != sender {
		return protocol.Of(protocol.Authorization, "update_lock_required")
	}
	if !s.updateLimiter(vesselID).Allow() {
		return protocol.Of(protocol.RateLimited, "update_rate_limit")
	}
	if reason := s.validator.Validate(vesselID, body, position, rotation, velocity); reason != RejectNone {
		return protocol.Of(protocol.Protocol, string(reason))
	}

	v := s.world.Vessels.Get(vesselID)
	if v == nil {
		return protocol.Of(protocol.NotFound, "vessel_missing")
	}
	if apply != nil {
		apply(v)
	}
	v.LastUpdate = time.Now()
	s.world.Vessels.MarkDirty(vesselID)
	s.validator.Accept(vesselID, position)
	return protocol.Ok()
}

// Remove handles vessel deletion (§4.7 "Remove" path): drops every lock
// referencing the vessel, removes it from the registry, and tombstones the
// id so late updates are silently absorbed.
func (s *Sync) Remove(sender string, vesselID string, isAdmin bool) (protocol.Result, []lock.Event) {
	v := s.world.Vessels.Get(vesselID)
	if v == nil {
		return protocol.Of(protocol.NotFound, "vessel_missing"), nil
	}
	if v.Owner != sender && !isAdmin {
		return protocol.Of(protocol.Authorization, "not_owner"), nil
	}

	events := s.locks.ReleaseVessel(vesselID)
	s.world.Vessels.Remove(vesselID)
	s.tombstones.Add(vesselID)
	s.validator.Forget(vesselID)
	delete(s.updateLim, vesselID)
	return protocol.Ok(), events
}

// Tick runs periodic tombstone cleanup; call once per tick from the
// Lifecycle Runner (§4.7's throttled-sweep requirement).
func (s *Sync) Tick() {
	s.tombstones.Sweep()
}
