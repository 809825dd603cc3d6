package match

import (
	"context"
	"time"

	"lunamatch/internal/admin"
	"lunamatch/internal/asset"
	"lunamatch/internal/chat"
	"lunamatch/internal/codec"
	"lunamatch/internal/config"
	"lunamatch/internal/dispatcher"
	"lunamatch/internal/lock"
	"lunamatch/internal/logging"
	"lunamatch/internal/protocol"
	"lunamatch/internal/router"
	"lunamatch/internal/simulation"
	"lunamatch/internal/vessel"
	"lunamatch/internal/warp"
	"lunamatch/internal/world"
)

// Store is the narrow slice of the Storage Adapter the Lifecycle Runner
// hands down to the Admin Plane for ban/group persistence.
type Store interface {
	Put(collection, key string, value any) error
	Get(collection, key string, dst any) (bool, error)
	Delete(collection, key string) error
	List(collection string) ([]string, error)
}

// Setup is the create-match request payload (§6: "create_match(setup)").
type Setup struct {
	ServerName    string   `json:"server_name"`
	Description   string   `json:"description"`
	GameMode      string   `json:"game_mode"`
	Password      string   `json:"password"`
	Version       string   `json:"version"`
	Region        string   `json:"region"`
	Host          string   `json:"host"`
	Port          int      `json:"port"`
	MaxPlayers    int      `json:"max_players"`
	RequiredMods  []string `json:"required_mods,omitempty"`
	ForbiddenMods []string `json:"forbidden_mods,omitempty"`
}

// Runner drives one match's Init/JoinAttempt/Join/Loop/Leave/Terminate
// lifecycle (§4.3), wrapping the fixed-timestep Loop almost verbatim and
// wiring the Match State, Lock Manager, Warp Subsystem, Vessel Sync, Chat
// Relay, Admin Plane, and Opcode Router around it.
type Runner struct {
	session *Session
	cfg     *config.Config
	logger  *logging.Logger
	store   Store
	setup   Setup

	World   *world.World
	Locks   *lock.Manager
	Warp    *warp.Machine
	Vessels *vessel.Sync
	Chat    *chat.Relay
	Admins  *admin.Set
	Bans    *admin.BanList
	Groups  *admin.Groups
	Audit   *admin.Audit
	Router  *router.Router
	Dispatch *dispatcher.Dispatcher

	loop    *simulation.Loop
	monitor *simulation.TickMonitor

	tickCount      int
	degradedStreak int
	degraded       bool
	lastEmptyAt    time.Time
}

// New constructs a Runner for one match instance, bound to the given
// transport (for the Dispatcher) and storage adapter (for bans/groups/
// assets). matchID, when non-empty, pins the Session's identifier so the
// Registry's map key and the Session's own snapshot agree; left empty, the
// Session falls back to its own environment/timestamp-derived default.
func New(cfg *config.Config, matchID string, transport dispatcher.Transport, store Store, logger *logging.Logger) (*Runner, error) {
	sessionOpts := []SessionOption{WithSessionCapacity(Capacity{MaxPlayers: cfg.MaxClients})}
	if matchID != "" {
		sessionOpts = append(sessionOpts, WithSessionMatchID(matchID))
	}
	session, err := NewSession(sessionOpts...)
	if err != nil {
		return nil, err
	}

	w := world.NewWorld()
	locks := lock.New()
	warpMachine := warp.New()
	vessels := vessel.New(w, locks, nil)
	chatRelay := chat.NewRelay()
	admins := admin.NewSet()

	var bans *admin.BanList
	var groups *admin.Groups
	var assets *asset.Broker
	if store != nil {
		bans = admin.NewBanList(store)
		groups = admin.NewGroups(store)
		assets = asset.New(store, asset.Quota{
			MaxItemsPerKindPerUser: cfg.MaxItemsPerKindPerUser,
			MaxFolders:             cfg.MaxFolders,
		}, logger)
	}
	audit := admin.NewAudit(256)
	dispatch := dispatcher.New(transport, logger)

	r := &Runner{
		session:  session,
		cfg:      cfg,
		logger:   logger,
		store:    store,
		World:    w,
		Locks:    locks,
		Warp:     warpMachine,
		Vessels:  vessels,
		Chat:     chatRelay,
		Admins:   admins,
		Bans:     bans,
		Groups:   groups,
		Audit:    audit,
		Dispatch: dispatch,
		monitor:  simulation.NewTickMonitor(),
		lastEmptyAt: time.Now(),
	}
	r.Router = &router.Router{
		World: w, Locks: locks, Warp: warpMachine, Vessels: vessels,
		Chat: chatRelay, Admins: admins, Bans: bans, Groups: groups, Assets: assets,
		Audit: audit, Dispatch: dispatch,
	}
	r.loop = simulation.NewLoop(cfg.TickHz, r.tick)
	return r, nil
}

// ID returns the match identifier (§3).
func (r *Runner) ID() string {
	return r.session.Snapshot().MatchID
}

// SessionSnapshot exposes the underlying Session's capacity/roster view for
// the admin HTTP surface (§6 match capacity endpoint).
func (r *Runner) SessionSnapshot() Snapshot {
	return r.session.Snapshot()
}

// AdjustCapacity mutates the match's participant bounds at runtime, keeping
// the Lifecycle Runner's own capacity tracking (JoinAttempt's quota check)
// in sync with the Session's.
func (r *Runner) AdjustCapacity(minPlayers, maxPlayers int) (Snapshot, error) {
	snapshot, err := r.session.AdjustCapacity(minPlayers, maxPlayers)
	if err != nil {
		return Snapshot{}, err
	}
	r.cfg.MaxClients = maxPlayers
	return snapshot, nil
}

// ApplyServerSetup records the create_match setup on the Runner and mirrors
// its server-identifying fields onto the Session (§6 list_matches label:
// server_name/game_mode/region/version belong to the setup, not to the
// Session's own capacity/roster bookkeeping).
func (r *Runner) ApplyServerSetup(setup Setup) {
	r.setup = setup
	r.session.SetMetadata(Metadata{
		ServerName: setup.ServerName,
		GameMode:   setup.GameMode,
		Region:     setup.Region,
		Version:    setup.Version,
	})
}

// PublishModControlManifest persists the match's required/forbidden mod
// lists to the Storage Adapter (§6: "configuration:mod_control"), so
// clients can self-validate before attempting to join, per §9's minimum
// requirement regardless of which enforcement policy is configured.
func (r *Runner) PublishModControlManifest() {
	if r.store == nil {
		return
	}
	manifest := struct {
		Required  []string `json:"required"`
		Forbidden []string `json:"forbidden"`
	}{Required: r.setup.RequiredMods, Forbidden: r.setup.ForbiddenMods}
	if err := r.store.Put("configuration", "mod_control", manifest); err != nil && r.logger != nil {
		r.logger.Warn("failed to publish mod-control manifest", logging.Error(err))
	}
}

// JoinAttempt validates a prospective player before a session is
// established (§4.3's "join_attempt(presence, metadata)"): ban check,
// password check, mod-list compatibility, then capacity.
func (r *Runner) JoinAttempt(userID, password string, mods []string) protocol.Result {
	if r.Bans != nil {
		banned, err := r.Bans.IsBanned(userID)
		if err != nil {
			return protocol.Of(protocol.Persistence, "ban_check_failed")
		}
		if banned {
			return protocol.Of(protocol.Authorization, "banned")
		}
	}
	if r.setup.Password != "" && password != r.setup.Password {
		return protocol.Of(protocol.Authorization, "password_mismatch")
	}
	if result := r.checkModControl(mods); result.Outcome != protocol.OK {
		return result
	}
	snapshot := r.session.Snapshot()
	if snapshot.Capacity.MaxPlayers > 0 && len(snapshot.ActivePlayers) >= snapshot.Capacity.MaxPlayers {
		return protocol.Of(protocol.Quota, "match_full")
	}
	return protocol.Ok()
}

// checkModControl enforces the §9 mod-control Open Question resolution:
// under the "reject" policy (`LUNAMATCH_MOD_CONTROL_POLICY`), a presented
// mod list missing a required mod or carrying a forbidden one fails
// join_attempt; under "warn" the mismatch is logged but never blocks the
// join.
func (r *Runner) checkModControl(mods []string) protocol.Result {
	if len(r.setup.RequiredMods) == 0 && len(r.setup.ForbiddenMods) == 0 {
		return protocol.Ok()
	}
	present := make(map[string]struct{}, len(mods))
	for _, m := range mods {
		present[m] = struct{}{}
	}
	var missing, forbidden []string
	for _, required := range r.setup.RequiredMods {
		if _, ok := present[required]; !ok {
			missing = append(missing, required)
		}
	}
	for _, banned := range r.setup.ForbiddenMods {
		if _, ok := present[banned]; ok {
			forbidden = append(forbidden, banned)
		}
	}
	if len(missing) == 0 && len(forbidden) == 0 {
		return protocol.Ok()
	}
	if r.cfg.ModControlPolicy == "warn" {
		if r.logger != nil {
			r.logger.Warn("join_attempt: mod-list mismatch allowed under warn policy",
				logging.Strings("missing", missing), logging.Strings("forbidden", forbidden))
		}
		return protocol.Ok()
	}
	return protocol.Of(protocol.Authorization, "mod_incompatible")
}

// Join installs a connected player into Match State (§4.3's "join"),
// auto-promoting the first joiner to admin, anchoring warp subspace
// membership, and broadcasting the current world snapshot to the newcomer.
func (r *Runner) Join(sessionID, userID, username string) protocol.Result {
	if _, err := r.session.Join(sessionID); err != nil {
		return protocol.Of(protocol.Quota, "match_full")
	}
	r.World.Players.Join(&world.Player{
		SessionID:    sessionID,
		UserID:       userID,
		Username:     username,
		Status:       world.StatusConnecting,
		LastActivity: time.Now(),
	})
	r.Admins.AutoPromoteFirstJoiner(sessionID)
	r.Warp.JoinSubspace(sessionID)

	if r.Dispatch != nil {
		for _, v := range r.World.Vessels.Snapshot() {
			r.Dispatch.Unicast(codec.VesselProto, codec.VesselProtoPayload{
				VesselID: v.VesselID, Name: v.Name, Type: string(v.Type), Body: v.Body,
			}, []string{sessionID})
		}
		r.Dispatch.Broadcast(codec.PlayerStatus, codec.PlayerStatusPayload{Status: string(world.StatusConnecting)})
	}
	r.Audit.Record(sessionID, "join", userID, "ok")
	return protocol.Ok()
}

// Leave tears down a departed player's footprint (§4.3's "leave", §8
// property 3): releases every lock it held, clears warp and chat
// bookkeeping, and drops the player record.
func (r *Runner) Leave(sessionID string) {
	events := r.Locks.ReleaseAll(sessionID)
	for _, ev := range events {
		if r.Dispatch != nil {
			payload := codec.LockPayload{Action: ev.Action, LockType: string(ev.Type), Owner: &ev.Owner}
			if ev.VesselID != "" {
				payload.VesselID = &ev.VesselID
			}
			r.Dispatch.Broadcast(codec.Lock, payload)
		}
	}
	r.Warp.Leave(sessionID)
	r.Chat.Forget(sessionID)
	r.World.Players.Leave(sessionID)
	r.session.Leave(sessionID)
	r.Audit.Record(sessionID, "leave", "", "ok")
	if r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.PlayerStatus, codec.PlayerStatusPayload{Status: string(world.StatusIdle)})
	}
}

// Start begins the 20Hz tick loop (§2, §5).
func (r *Runner) Start(ctx context.Context) {
	r.loop.Start(ctx)
}

// Stop halts the tick loop and waits for it to drain.
func (r *Runner) Stop() {
	r.loop.Stop()
}

// Empty reports whether the match currently has no connected players, for
// the idle-match reaper's Terminate trigger (§4.3: empty for MaxEmptySec).
func (r *Runner) Empty() bool {
	return r.World.Players.Count() == 0
}

// EmptySince reports how long the match has had zero players.
func (r *Runner) EmptySince() time.Duration {
	if !r.Empty() {
		return 0
	}
	return time.Since(r.lastEmptyAt)
}

// TickSnapshot exposes tick timing stats for the discovery/metrics surface.
func (r *Runner) TickSnapshot() simulation.TickMetricsSnapshot {
	return r.monitor.Snapshot()
}

// Degraded reports whether three consecutive ticks have overrun 2x the
// configured tick period (SPEC_FULL.md: degraded-tick flagging).
func (r *Runner) Degraded() bool {
	return r.degraded
}

// tick runs one fixed-timestep step of the match: advance warp time, sweep
// vessel tombstones, reap idle players, broadcast the per-tick diff, and
// periodically broadcast a time-sync SETTINGS message (§4.3).
func (r *Runner) tick(step time.Duration) {
	start := time.Now()
	dt := step.Seconds()

	if r.World.Players.Count() > 0 {
		r.lastEmptyAt = time.Now()
	}

	r.Warp.Advance(dt)
	r.Vessels.Tick()
	r.reapIdle()

	diff := r.World.ConsumeDiff()
	if diff.HasChanges() && r.Dispatch != nil {
		for _, v := range diff.Vessels.Updated {
			r.Dispatch.Broadcast(codec.VesselUpdate, codec.VesselUpdatePayload{
				VesselID: v.VesselID,
				Position: codec.Vector3Payload(v.Position),
				Rotation: codec.Vector3Payload(v.Rotation),
				Velocity: codec.Vector3Payload(v.Velocity),
			})
		}
		for _, id := range diff.Vessels.Removed {
			r.Dispatch.Broadcast(codec.VesselRemove, codec.VesselRemovePayload{VesselID: id})
		}
		for _, k := range diff.Kerbals.Updated {
			var vesselID *string
			if k.VesselID != "" {
				vesselID = &k.VesselID
			}
			r.Dispatch.Broadcast(codec.Kerbal, codec.KerbalPayload{
				KerbalID: k.KerbalID, Name: k.Name, Type: k.Type, Status: k.Status,
				VesselID: vesselID, Experience: k.Experience, Courage: k.Courage, Stupidity: k.Stupidity,
			})
		}
	}

	r.tickCount++
	if r.cfg.TimeSyncTicks > 0 && r.tickCount%r.cfg.TimeSyncTicks == 0 && r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.Settings, codec.SettingsPayload{
			Kind:         "time_sync",
			UniverseTime: r.Warp.UniverseTime(),
			TickRate:     r.cfg.TickHz,
		})
	}

	elapsed := time.Since(start)
	r.monitor.Observe(elapsed)
	if elapsed > 2*step {
		r.degradedStreak++
	} else {
		r.degradedStreak = 0
	}
	wasDegraded := r.degraded
	r.degraded = r.degradedStreak >= r.cfg.DegradedTickThreshold
	if r.degraded && !wasDegraded && r.logger != nil {
		r.logger.Warn("match: tick loop degraded", logging.Int("streak", r.degradedStreak))
	}
}

// reapIdle kicks players whose last_activity exceeds the configured
// timeout (§4.3).
func (r *Runner) reapIdle() {
	timeout := time.Duration(r.cfg.IdleKickSec) * time.Second
	if timeout <= 0 {
		return
	}
	for _, sessionID := range r.World.Players.IdleSince(time.Now(), timeout) {
		if r.Dispatch != nil {
			r.Dispatch.Kick(sessionID, "idle_timeout")
		}
		r.Leave(sessionID)
	}
}
