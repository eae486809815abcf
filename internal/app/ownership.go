package app

import (
	"context"
	"slices"
	"strings"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

// Manager runs the owner and co-owner commands. Owner-only operations find
// the room by ownership; claim and reject find it by where the caller is
// physically sitting.
type Manager struct {
	Registry  *Registry
	Platform  core.Platform
	Lifecycle *Lifecycle
	Policy    Policy
}

func (m *Manager) policy() Policy {
	if m.Policy == nil {
		return SimplePolicy{}
	}
	return m.Policy
}

func (m *Manager) ownedRoom(caller domain.Caller, action Action) (domain.Room, error) {
	room, ok := m.Registry.LookupRoomByOwner(caller.GuildID, caller.UserID)
	if !ok {
		return domain.Room{}, domain.NotFound("owned room", domain.ErrRoomNotFound)
	}
	if !m.policy().Allow(action, RoleOf(room, caller.UserID)) {
		return domain.Room{}, domain.Unauthorized("only the room owner can " + action.String())
	}
	return room, nil
}

// occupiedRoom resolves the registered room the caller is currently in.
func (m *Manager) occupiedRoom(ctx context.Context, caller domain.Caller) (domain.Room, []domain.UserID, error) {
	ch, err := m.Platform.VoiceChannelOf(ctx, caller.GuildID, caller.UserID)
	if err != nil {
		return domain.Room{}, nil, domain.Platform("voice location", err)
	}
	if ch == "" {
		return domain.Room{}, nil, domain.NotFound("voice channel", domain.ErrNotInVoice)
	}
	room, ok := m.Registry.LookupRoom(ch)
	if !ok {
		return domain.Room{}, nil, domain.NotFound("temporary room", domain.ErrNotTempRoom)
	}
	members, err := m.Platform.LiveMembers(ctx, caller.GuildID, ch)
	if err != nil {
		return domain.Room{}, nil, domain.Platform("live members", err)
	}
	return room, members, nil
}

func (m *Manager) Rename(ctx context.Context, caller domain.Caller, name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, domain.ErrEmptyName
	}
	room, err := m.ownedRoom(caller, ActRename)
	if err != nil {
		return domain.Room{}, err
	}
	if err := m.Platform.RenameChannel(ctx, room.ChannelID, name); err != nil {
		return domain.Room{}, domain.Platform("rename channel", err)
	}
	return room, nil
}

func (m *Manager) Lock(ctx context.Context, caller domain.Caller) error {
	return m.setPermission(ctx, caller, ActLock, domain.PermissionEdit{Connect: boolPtr(false)})
}

func (m *Manager) Unlock(ctx context.Context, caller domain.Caller) error {
	return m.setPermission(ctx, caller, ActUnlock, domain.PermissionEdit{Connect: boolPtr(true)})
}

func (m *Manager) Hide(ctx context.Context, caller domain.Caller) error {
	return m.setPermission(ctx, caller, ActHide, domain.PermissionEdit{View: boolPtr(false)})
}

func (m *Manager) Unhide(ctx context.Context, caller domain.Caller) error {
	return m.setPermission(ctx, caller, ActUnhide, domain.PermissionEdit{View: boolPtr(true)})
}

func (m *Manager) setPermission(ctx context.Context, caller domain.Caller, action Action, edit domain.PermissionEdit) error {
	room, err := m.ownedRoom(caller, action)
	if err != nil {
		return err
	}
	if err := m.Platform.SetChannelPermission(ctx, room.GuildID, room.ChannelID, edit); err != nil {
		return domain.Platform("set permission", err)
	}
	return nil
}

// Transfer hands the caller's room to target. Transferring to the current
// owner is a no-op.
func (m *Manager) Transfer(ctx context.Context, caller domain.Caller, target domain.UserID) (domain.Room, error) {
	if target == "" {
		return domain.Room{}, domain.NotFound("target user", nil)
	}
	room, err := m.ownedRoom(caller, ActTransfer)
	if err != nil {
		return domain.Room{}, err
	}
	if err := m.Registry.SetOwner(room.ChannelID, target); err != nil {
		return domain.Room{}, err
	}
	room, _ = m.Registry.LookupRoom(room.ChannelID)
	return room, nil
}

// AddCoOwner reports false when target already had the role or owns the room.
func (m *Manager) AddCoOwner(ctx context.Context, caller domain.Caller, target domain.UserID) (bool, error) {
	if target == "" {
		return false, domain.NotFound("target user", nil)
	}
	room, err := m.ownedRoom(caller, ActAddCoOwner)
	if err != nil {
		return false, err
	}
	if room.IsOwner(target) {
		return false, nil
	}
	return m.Registry.AddCoOwner(room.ChannelID, target)
}

func (m *Manager) Info(ctx context.Context, caller domain.Caller) (core.RoomInfo, error) {
	room, err := m.ownedRoom(caller, ActInfo)
	if err != nil {
		return core.RoomInfo{}, err
	}
	ch, err := m.Platform.ChannelInfo(ctx, room.ChannelID)
	if err != nil {
		return core.RoomInfo{}, domain.Platform("channel info", err)
	}
	members, err := m.Platform.LiveMembers(ctx, room.GuildID, room.ChannelID)
	if err != nil {
		return core.RoomInfo{}, domain.Platform("live members", err)
	}
	info := core.RoomInfo{
		ChannelID:   room.ChannelID,
		Name:        ch.Name,
		Owner:       m.identity(ctx, room.GuildID, room.OwnerID),
		CoOwners:    make([]domain.Identity, 0, len(room.CoOwnerIDs)),
		MemberCount: len(members),
	}
	for _, uid := range room.CoOwnerIDs {
		info.CoOwners = append(info.CoOwners, m.identity(ctx, room.GuildID, uid))
	}
	return info, nil
}

// identity degrades to a bare mention when the user cannot be resolved.
func (m *Manager) identity(ctx context.Context, gid domain.GuildID, uid domain.UserID) domain.Identity {
	id, err := m.Platform.ResolveUser(ctx, gid, uid)
	if err != nil {
		logFor(ctx, "app.ownership").Debug().Err(err).Str("user", string(uid)).Msg("resolve user failed")
		return domain.Identity{ID: uid, Mention: uid.Mention()}
	}
	return id
}

// Close deletes the caller's room. The entry is removed even when the
// platform delete fails; the failure is still reported.
func (m *Manager) Close(ctx context.Context, caller domain.Caller) error {
	room, err := m.ownedRoom(caller, ActClose)
	if err != nil {
		return err
	}
	return m.Lifecycle.destroy(ctx, room.ChannelID)
}

// Claim takes over the room the caller is in, provided its recorded owner
// is not in it. Co-owners are cleared. Claiming a room you already own
// succeeds without changes.
func (m *Manager) Claim(ctx context.Context, caller domain.Caller) (domain.Room, error) {
	room, members, err := m.occupiedRoom(ctx, caller)
	if err != nil {
		return domain.Room{}, err
	}
	if room.IsOwner(caller.UserID) {
		return room, nil
	}
	if slices.Contains(members, room.OwnerID) {
		return domain.Room{}, domain.Unauthorized("the owner is still in the room")
	}
	if err := m.Registry.SetOwner(room.ChannelID, caller.UserID); err != nil {
		return domain.Room{}, err
	}
	room, _ = m.Registry.LookupRoom(room.ChannelID)
	return room, nil
}

// Reject disconnects target from the room the caller is in. Owners and
// co-owners may do this.
func (m *Manager) Reject(ctx context.Context, caller domain.Caller, target domain.UserID) error {
	if target == "" {
		return domain.NotFound("target user", nil)
	}
	room, members, err := m.occupiedRoom(ctx, caller)
	if err != nil {
		return err
	}
	if !m.policy().Allow(ActReject, RoleOf(room, caller.UserID)) {
		return domain.Unauthorized("only the room owner or a co-owner can reject")
	}
	if !slices.Contains(members, target) {
		return domain.NotFound("target in room", domain.ErrTargetAbsent)
	}
	if err := m.Platform.MoveMember(ctx, room.GuildID, target, ""); err != nil {
		return domain.Platform("disconnect member", err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
