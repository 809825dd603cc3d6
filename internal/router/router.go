// Package router implements the Opcode Router (§4.4): dispatch by opcode
// with the authorization matrix from the component design, translating
// wire payloads into calls against Match State, the Lock Manager, the Warp
// Subsystem, Vessel Sync, Chat, Progress, and the Admin Plane, then
// publishing results through the Dispatcher.
package router

import (
	"time"

	"lunamatch/internal/admin"
	"lunamatch/internal/asset"
	"lunamatch/internal/chat"
	"lunamatch/internal/codec"
	"lunamatch/internal/dispatcher"
	"lunamatch/internal/lock"
	"lunamatch/internal/progress"
	"lunamatch/internal/protocol"
	"lunamatch/internal/vessel"
	"lunamatch/internal/warp"
	"lunamatch/internal/world"
)

// Router holds every dependency a handler might need. One Router is built
// per match and lives on the tick thread (§5) — no internal locking.
type Router struct {
	World   *world.World
	Locks   *lock.Manager
	Warp    *warp.Machine
	Vessels *vessel.Sync
	Chat    *chat.Relay
	Admins  *admin.Set
	Bans    *admin.BanList
	Groups  *admin.Groups
	Assets  *asset.Broker
	Audit   *admin.Audit
	Dispatch *dispatcher.Dispatcher
}

// Route decodes and dispatches one inbound frame. It never returns an
// error to the caller: every failure mode is classified as a
// protocol.Result and handled here (logged, dropped, or advised) per §4.4/§7.
func (r *Router) Route(sender string, env codec.Envelope) protocol.Result {
	switch env.Opcode {
	case codec.Chat:
		return r.handleChat(sender, env)
	case codec.PlayerStatus:
		return r.handlePlayerStatus(sender, env)
	case codec.PlayerColor:
		return r.handlePlayerColor(sender, env)
	case codec.Vessel:
		return r.handleVessel(sender, env)
	case codec.VesselProto:
		return r.handleVesselProto(sender, env)
	case codec.VesselUpdate:
		return r.handleVesselUpdate(sender, env)
	case codec.VesselRemove:
		return r.handleVesselRemove(sender, env)
	case codec.Kerbal:
		return r.handleKerbal(sender, env)
	case codec.Warp:
		return r.handleWarp(sender, env)
	case codec.Lock:
		return r.handleLock(sender, env)
	case codec.ShareProgress:
		return r.handleShareProgress(sender, env)
	case codec.Scenario:
		return r.handleScenario(sender, env)
	case codec.AdminCommand:
		return r.handleAdminCommand(sender, env)
	case codec.GroupCreate:
		return r.handleGroupCreate(sender, env)
	case codec.GroupRemove:
		return r.handleGroupRemove(sender, env)
	case codec.GroupUpdate:
		return r.handleGroupUpdate(sender, env)
	case codec.GroupList:
		return r.handleGroupList(sender, env)
	case codec.CraftUpload:
		return r.handleAssetUpload(sender, env, asset.KindCraft, codec.CraftNotify)
	case codec.CraftDownload:
		return r.handleAssetDownload(sender, env, asset.KindCraft)
	case codec.CraftList:
		return r.handleAssetList(sender, env, asset.KindCraft)
	case codec.CraftDelete:
		return r.handleAssetDelete(sender, env, asset.KindCraft, codec.CraftNotify)
	case codec.ScreenshotUpload:
		return r.handleAssetUpload(sender, env, asset.KindScreenshot, codec.ScreenshotNotify)
	case codec.ScreenshotDownload:
		return r.handleAssetDownload(sender, env, asset.KindScreenshot)
	case codec.ScreenshotList:
		return r.handleAssetList(sender, env, asset.KindScreenshot)
	case codec.FlagUpload:
		return r.handleAssetUpload(sender, env, asset.KindFlag, 0)
	case codec.FlagList:
		return r.handleAssetList(sender, env, asset.KindFlag)
	default:
		return protocol.Of(protocol.Protocol, "unhandled_opcode")
	}
}

// handleVessel accepts a full vessel JSON snapshot (§6 opcode 10), treated
// as an idempotent upsert equivalent to VESSEL_PROTO since the wire table
// gives both the same field shape.
func (r *Router) handleVessel(sender string, env codec.Envelope) protocol.Result {
	var payload codec.VesselProtoPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_vessel")
	}
	v := &world.Vessel{
		VesselID:  payload.VesselID,
		Name:      payload.Name,
		Type:      world.VesselType(payload.Type),
		Body:      payload.Body,
		Position:  world.Vector3(payload.Position),
		Rotation:  world.Vector3(payload.Rotation),
		Parts:     payload.Parts,
		ProtoData: payload.ProtoData,
	}
	result, lockEvents := r.Vessels.Proto(sender, v)
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.Vessel, payload)
		r.broadcastLockEvents(lockEvents)
	}
	return result
}

// handleKerbal upserts a kerbal record (§6 opcode 20) and relays it to
// every other session.
func (r *Router) handleKerbal(sender string, env codec.Envelope) protocol.Result {
	var payload codec.KerbalPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_kerbal")
	}
	if payload.KerbalID == "" {
		return protocol.Of(protocol.Protocol, "missing_kerbal_id")
	}
	k := &world.Kerbal{
		KerbalID:   payload.KerbalID,
		Name:       payload.Name,
		Type:       payload.Type,
		Status:     payload.Status,
		Experience: payload.Experience,
		Courage:    payload.Courage,
		Stupidity:  payload.Stupidity,
		UpdatedBy:  sender,
		UpdatedAt:  time.Now(),
	}
	if payload.VesselID != nil {
		k.VesselID = *payload.VesselID
	}
	r.World.Kerbals.Upsert(k)
	if r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.Kerbal, payload, sender)
	}
	return protocol.Ok()
}

// handleGroupCreate registers a new roster (§6 opcode 80).
func (r *Router) handleGroupCreate(sender string, env codec.Envelope) protocol.Result {
	var payload codec.GroupPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_group_create")
	}
	if payload.Name == "" {
		return protocol.Of(protocol.Protocol, "missing_group_name")
	}
	owner := payload.Owner
	if owner == "" {
		owner = sender
	}
	if err := r.Groups.Create(payload.Name, owner, payload.Members); err != nil {
		return protocol.Of(protocol.Persistence, "group_create_failed")
	}
	if r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.GroupCreate, codec.GroupPayload{Name: payload.Name, Members: payload.Members, Owner: owner})
	}
	return protocol.Ok()
}

// handleGroupRemove deletes a roster; owner-only (§6 opcode 81).
func (r *Router) handleGroupRemove(sender string, env codec.Envelope) protocol.Result {
	var payload codec.GroupPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_group_remove")
	}
	group, ok := r.Groups.Get(payload.Name)
	if !ok {
		return protocol.Of(protocol.NotFound, "group_missing")
	}
	if group.Owner != sender && (r.Admins == nil || !r.Admins.IsAdmin(sender)) {
		return protocol.Of(protocol.Authorization, "not_group_owner")
	}
	if err := r.Groups.Remove(payload.Name); err != nil {
		return protocol.Of(protocol.Persistence, "group_remove_failed")
	}
	if r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.GroupRemove, codec.GroupPayload{Name: payload.Name})
	}
	return protocol.Ok()
}

// handleGroupUpdate replaces a roster's membership; owner-only (§6 opcode 82).
func (r *Router) handleGroupUpdate(sender string, env codec.Envelope) protocol.Result {
	var payload codec.GroupPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_group_update")
	}
	group, ok := r.Groups.Get(payload.Name)
	if !ok {
		return protocol.Of(protocol.NotFound, "group_missing")
	}
	if group.Owner != sender && (r.Admins == nil || !r.Admins.IsAdmin(sender)) {
		return protocol.Of(protocol.Authorization, "not_group_owner")
	}
	if err := r.Groups.Update(payload.Name, payload.Members); err != nil {
		return protocol.Of(protocol.Persistence, "group_update_failed")
	}
	if r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.GroupUpdate, codec.GroupPayload{Name: payload.Name, Members: payload.Members, Owner: group.Owner})
	}
	return protocol.Ok()
}

// handleGroupList unicasts the full roster set (§6 opcode 83).
func (r *Router) handleGroupList(sender string, env codec.Envelope) protocol.Result {
	groups := r.Groups.List()
	payloads := make([]codec.GroupPayload, 0, len(groups))
	for _, g := range groups {
		payloads = append(payloads, codec.GroupPayload{Name: g.Name, Members: g.Members, Owner: g.Owner})
	}
	if r.Dispatch != nil {
		r.Dispatch.Unicast(codec.GroupList, payloads, []string{sender})
	}
	return protocol.Ok()
}

// handleAssetUpload stores a craft/screenshot/flag and, for kinds that
// carry a notification opcode, broadcasts the upload to every other
// session (§4.9, §6 opcodes 90/100/110).
func (r *Router) handleAssetUpload(sender string, env codec.Envelope, kind asset.Kind, notify codec.Opcode) protocol.Result {
	if r.Assets == nil {
		return protocol.Of(protocol.Persistence, "assets_unavailable")
	}
	var payload codec.AssetUploadPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_asset_upload")
	}
	result := r.Assets.Upload(kind, sender, payload.Folder, payload.Key, payload.Data, payload.Thumbnail)
	if result.Outcome == protocol.OK && r.Dispatch != nil && notify != 0 {
		r.Dispatch.BroadcastExcept(notify, codec.AssetNotificationPayload{
			Kind: string(kind), Folder: payload.Folder, Key: payload.Key, Action: "uploaded",
		}, sender)
	}
	return result
}

// handleAssetDownload unicasts one stored item back to the requester (§6
// opcodes 91/101).
func (r *Router) handleAssetDownload(sender string, env codec.Envelope, kind asset.Kind) protocol.Result {
	if r.Assets == nil {
		return protocol.Of(protocol.Persistence, "assets_unavailable")
	}
	var payload codec.AssetDownloadRequestPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_asset_download")
	}
	item, result := r.Assets.DownloadRequest(kind, payload.Folder, payload.Key)
	if result.Outcome != protocol.OK {
		return result
	}
	if r.Dispatch != nil {
		downloadOpcode := codec.CraftDownload
		if kind == asset.KindScreenshot {
			downloadOpcode = codec.ScreenshotDownload
		}
		r.Dispatch.Unicast(downloadOpcode, codec.AssetDownloadResponsePayload{
			Folder: item.Folder, Key: item.Key, Data: item.Data, Thumbnail: item.Thumbnail,
		}, []string{sender})
	}
	return protocol.Ok()
}

// handleAssetList unicasts the kind's folder listing (every uploader's
// folders), or the items
// within a named folder when the payload carries one (§6 opcodes 92/102/111).
func (r *Router) handleAssetList(sender string, env codec.Envelope, kind asset.Kind) protocol.Result {
	if r.Assets == nil {
		return protocol.Of(protocol.Persistence, "assets_unavailable")
	}
	var payload codec.AssetListItemsPayload
	_ = env.DecodeAs(&payload)
	if r.Dispatch == nil {
		return protocol.Ok()
	}
	if payload.Folder == "" {
		folders, result := r.Assets.ListFolders(kind)
		if result.Outcome != protocol.OK {
			return result
		}
		r.Dispatch.Unicast(listOpcodeFor(kind), codec.AssetListFoldersPayload{Folders: folders}, []string{sender})
		return protocol.Ok()
	}
	items, result := r.Assets.ListItems(kind, payload.Folder)
	if result.Outcome != protocol.OK {
		return result
	}
	r.Dispatch.Unicast(listOpcodeFor(kind), codec.AssetListItemsPayload{Folder: payload.Folder, Items: items}, []string{sender})
	return protocol.Ok()
}

func listOpcodeFor(kind asset.Kind) codec.Opcode {
	switch kind {
	case asset.KindScreenshot:
		return codec.ScreenshotList
	case asset.KindFlag:
		return codec.FlagList
	default:
		return codec.CraftList
	}
}

// handleAssetDelete removes a stored craft/screenshot; owner-only (§6
// opcode 93).
func (r *Router) handleAssetDelete(sender string, env codec.Envelope, kind asset.Kind, notify codec.Opcode) protocol.Result {
	if r.Assets == nil {
		return protocol.Of(protocol.Persistence, "assets_unavailable")
	}
	var payload codec.AssetDeletePayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_asset_delete")
	}
	item, result := r.Assets.DownloadRequest(kind, payload.Folder, payload.Key)
	if result.Outcome != protocol.OK {
		return result
	}
	result = r.Assets.Delete(kind, sender, item.Owner, payload.Folder, payload.Key)
	if result.Outcome == protocol.OK && r.Dispatch != nil && notify != 0 {
		r.Dispatch.Broadcast(notify, codec.AssetNotificationPayload{
			Kind: string(kind), Folder: payload.Folder, Key: payload.Key, Action: "deleted",
		})
	}
	return result
}

func (r *Router) handleChat(sender string, env codec.Envelope) protocol.Result {
	var payload codec.ChatPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_chat")
	}
	result := r.Chat.Send(sender, payload.Message)
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.Chat, payload, sender)
	}
	return result
}

func (r *Router) handlePlayerStatus(sender string, env codec.Envelope) protocol.Result {
	var payload codec.PlayerStatusPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_player_status")
	}
	p := r.World.Players.Get(sender)
	if p == nil {
		return protocol.Of(protocol.NotFound, "player_missing")
	}
	p.Status = world.PlayerStatus(payload.Status)
	if payload.VesselID != nil {
		p.ControlledVessel = *payload.VesselID
	}
	if r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.PlayerStatus, payload, sender)
	}
	return protocol.Ok()
}

func (r *Router) handlePlayerColor(sender string, env codec.Envelope) protocol.Result {
	var payload codec.PlayerColorPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_player_color")
	}
	p := r.World.Players.Get(sender)
	if p == nil {
		return protocol.Of(protocol.NotFound, "player_missing")
	}
	p.Color = [3]uint8{payload.R, payload.G, payload.B}
	if r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.PlayerColor, payload, sender)
	}
	return protocol.Ok()
}

func (r *Router) handleVesselProto(sender string, env codec.Envelope) protocol.Result {
	var payload codec.VesselProtoPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_vessel_proto")
	}
	v := &world.Vessel{
		VesselID:  payload.VesselID,
		Name:      payload.Name,
		Type:      world.VesselType(payload.Type),
		Body:      payload.Body,
		Position:  world.Vector3(payload.Position),
		Rotation:  world.Vector3(payload.Rotation),
		Parts:     payload.Parts,
		ProtoData: payload.ProtoData,
	}
	result, lockEvents := r.Vessels.Proto(sender, v)
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.VesselProto, payload)
		r.broadcastLockEvents(lockEvents)
	}
	return result
}

func (r *Router) handleVesselUpdate(sender string, env codec.Envelope) protocol.Result {
	var payload codec.VesselUpdatePayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_vessel_update")
	}
	// VESSEL_UPDATE's wire payload carries no body index (§6); the
	// anti-cheat body-dependent teleport threshold (§4.7) looks it up from
	// the vessel's already-stored record instead.
	body := 0
	if existing := r.World.Vessels.Get(payload.VesselID); existing != nil {
		body = existing.Body
	}
	result := r.Vessels.Update(sender, payload.VesselID, body,
		world.Vector3(payload.Position), world.Vector3(payload.Rotation), world.Vector3(payload.Velocity),
		func(v *world.Vessel) {
			v.Position = world.Vector3(payload.Position)
			v.Rotation = world.Vector3(payload.Rotation)
			v.Velocity = world.Vector3(payload.Velocity)
			v.AngularVelocity = world.Vector3(payload.AngularVelocity)
			v.Orbit = world.Orbit(payload.Orbit)
		})
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.VesselUpdate, payload, sender)
	}
	return result
}

func (r *Router) handleVesselRemove(sender string, env codec.Envelope) protocol.Result {
	var payload codec.VesselRemovePayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_vessel_remove")
	}
	isAdmin := r.Admins != nil && r.Admins.IsAdmin(sender)
	result, lockEvents := r.Vessels.Remove(sender, payload.VesselID, isAdmin)
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.VesselRemove, payload)
		r.broadcastLockEvents(lockEvents)
	}
	return result
}

func (r *Router) handleWarp(sender string, env codec.Envelope) protocol.Result {
	var payload codec.WarpPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_warp")
	}
	isAdmin := r.Admins != nil && r.Admins.IsAdmin(sender)

	switch r.Warp.Mode() {
	case warp.ModeAdmin:
		if !isAdmin {
			return protocol.Of(protocol.Authorization, "admin_warp_mode")
		}
		if payload.Rate != nil {
			r.Warp.SetAdminRate(*payload.Rate)
		}
	case warp.ModeMCU:
		if payload.Rate != nil {
			r.Warp.ReportRate(sender, *payload.Rate)
		}
	default: // subspace
		if payload.SubspaceID != nil {
			if !r.Warp.Merge(sender, *payload.SubspaceID) {
				return protocol.Of(protocol.NotFound, "subspace_missing")
			}
		} else {
			r.Warp.Split(sender)
		}
	}

	if payload.Mode != nil {
		if !isAdmin {
			return protocol.Of(protocol.Authorization, "mode_change_requires_admin")
		}
		ev := r.Warp.SetMode(warp.Mode(*payload.Mode))
		if r.Dispatch != nil {
			r.Dispatch.Broadcast(codec.Warp, codec.WarpPayload{Mode: payload.Mode, Rate: &ev.Rate})
		}
	}
	return protocol.Ok()
}

func (r *Router) handleLock(sender string, env codec.Envelope) protocol.Result {
	var payload codec.LockPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_lock")
	}
	key := lock.Key{Type: lock.Type(payload.LockType)}
	if payload.VesselID != nil {
		key.VesselID = *payload.VesselID
	}
	if payload.KerbalName != nil {
		key.KerbalName = *payload.KerbalName
	}

	switch payload.Action {
	case "acquire":
		force := r.lockForceAllowed(key, sender)
		events, ok := r.Locks.Acquire(key, sender, force)
		r.broadcastLockEvents(events)
		if !ok {
			return protocol.Of(protocol.Conflict, "lock_held")
		}
		return protocol.Ok()
	case "release":
		event, ok := r.Locks.Release(key, sender)
		if ok && r.Dispatch != nil {
			r.broadcastLockEvents([]lock.Event{event})
		}
		return protocol.Ok() // release is a no-op on failure, never an error (§4.5)
	default:
		return protocol.Of(protocol.Protocol, "unknown_lock_action")
	}
}

// lockForceAllowed computes the cascade condition server-side (§4.5 steps
// 2b/3) instead of trusting a client-supplied flag: an Update acquire may
// force iff the requester already holds that vessel's Control lock, and a
// Control acquire may force only for an admin override.
func (r *Router) lockForceAllowed(key lock.Key, sender string) bool {
	switch key.Type {
	case lock.Update:
		owner, ok := r.Locks.Get(lock.Key{Type: lock.Control, VesselID: key.VesselID})
		return ok && owner.Owner == sender
	case lock.Control:
		return r.Admins != nil && r.Admins.IsAdmin(sender)
	default:
		return false
	}
}

func (r *Router) broadcastLockEvents(events []lock.Event) {
	if r.Dispatch == nil {
		return
	}
	for _, ev := range events {
		payload := codec.LockPayload{Action: ev.Action, LockType: string(ev.Type), Owner: &ev.Owner}
		if ev.VesselID != "" {
			payload.VesselID = &ev.VesselID
		}
		if ev.KerbalName != "" {
			payload.KerbalName = &ev.KerbalName
		}
		r.Dispatch.Broadcast(codec.Lock, payload)
	}
}

func (r *Router) handleShareProgress(sender string, env codec.Envelope) protocol.Result {
	var payload codec.ShareProgressPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_share_progress")
	}
	science, funds, reputation, result := progress.ApplyShareProgress(r.World.Scenario,
		floatOrZero(payload.ScienceDelta), floatOrZero(payload.FundsDelta), floatOrZero(payload.ReputationDelta))
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.Broadcast(codec.ShareProgress, map[string]float64{
			"science": science, "funds": funds, "reputation": reputation,
		})
	}
	return result
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// handleAdminCommand dispatches a privileged command. Any sender not in the
// AdminSet is rejected with Authorization, logged by the caller but never
// disconnected (§4.4/§4.10).
func (r *Router) handleAdminCommand(sender string, env codec.Envelope) protocol.Result {
	var payload codec.AdminCommandPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_admin_command")
	}
	if r.Admins == nil || !r.Admins.IsAdmin(sender) {
		r.record(sender, payload.Command, "", "authorization")
		return protocol.Of(protocol.Authorization, "not_admin")
	}

	switch payload.Command {
	case "dekessler":
		removals := admin.Dekessler(r.World, r.Locks)
		r.broadcastRemovals(removals)
		r.record(sender, payload.Command, "", "ok")
		return protocol.Ok()
	case "nuke":
		removals := admin.Nuke(r.World, r.Locks)
		r.broadcastRemovals(removals)
		r.record(sender, payload.Command, "", "ok")
		return protocol.Ok()
	case "kick":
		target, _ := payload.Args["session_id"].(string)
		if target == "" {
			return protocol.Of(protocol.Protocol, "missing_session_id")
		}
		if r.Dispatch != nil {
			r.Dispatch.Kick(target, "admin_kick")
		}
		r.record(sender, payload.Command, target, "ok")
		return protocol.Ok()
	case "ban":
		userID, _ := payload.Args["user_id"].(string)
		reason, _ := payload.Args["reason"].(string)
		if userID == "" {
			return protocol.Of(protocol.Protocol, "missing_user_id")
		}
		if r.Bans != nil {
			if err := r.Bans.Ban(userID, reason); err != nil {
				return protocol.Of(protocol.Persistence, "ban_failed")
			}
		}
		r.record(sender, payload.Command, userID, "ok")
		return protocol.Ok()
	case "unban":
		userID, _ := payload.Args["user_id"].(string)
		if userID == "" {
			return protocol.Of(protocol.Protocol, "missing_user_id")
		}
		if r.Bans != nil {
			if err := r.Bans.Unban(userID); err != nil {
				return protocol.Of(protocol.Persistence, "unban_failed")
			}
		}
		r.record(sender, payload.Command, userID, "ok")
		return protocol.Ok()
	case "grant_admin":
		target, _ := payload.Args["session_id"].(string)
		if target == "" {
			return protocol.Of(protocol.Protocol, "missing_session_id")
		}
		r.Admins.Grant(target)
		r.record(sender, payload.Command, target, "ok")
		return protocol.Ok()
	case "revoke_admin":
		target, _ := payload.Args["session_id"].(string)
		if target == "" {
			return protocol.Of(protocol.Protocol, "missing_session_id")
		}
		r.Admins.Revoke(target)
		r.record(sender, payload.Command, target, "ok")
		return protocol.Ok()
	case "set_warp_mode":
		mode, _ := payload.Args["mode"].(string)
		if mode == "" {
			return protocol.Of(protocol.Protocol, "missing_mode")
		}
		ev := r.Warp.SetMode(warp.Mode(mode))
		if r.Dispatch != nil {
			r.Dispatch.Broadcast(codec.Warp, codec.WarpPayload{Mode: &mode, Rate: &ev.Rate})
		}
		r.record(sender, payload.Command, mode, "ok")
		return protocol.Ok()
	case "announce":
		message, _ := payload.Args["message"].(string)
		if message == "" {
			return protocol.Of(protocol.Protocol, "missing_message")
		}
		if r.Dispatch != nil {
			r.Dispatch.Broadcast(codec.Chat, codec.ChatPayload{Message: message, Channel: "announce"})
		}
		r.record(sender, payload.Command, message, "ok")
		return protocol.Ok()
	default:
		return protocol.Of(protocol.Protocol, "unknown_admin_command")
	}
}

func (r *Router) broadcastRemovals(removals []admin.Removal) {
	if r.Dispatch == nil {
		return
	}
	for _, removal := range removals {
		r.Dispatch.Broadcast(codec.VesselRemove, codec.VesselRemovePayload{VesselID: removal.VesselID})
	}
}

func (r *Router) record(actor, action, target, outcome string) {
	if r.Audit != nil {
		r.Audit.Record(actor, action, target, outcome)
	}
}

func (r *Router) handleScenario(sender string, env codec.Envelope) protocol.Result {
	var payload codec.ScenarioPayload
	if err := env.DecodeAs(&payload); err != nil {
		return protocol.Of(protocol.Protocol, "malformed_scenario")
	}
	result := progress.RelayScenario(r.World.Scenario, payload.Module, payload.Data)
	if result.Outcome == protocol.OK && r.Dispatch != nil {
		r.Dispatch.BroadcastExcept(codec.Scenario, payload, sender)
	}
	return result
}
