package core

import (
	"context"

	"github.com/dkeye/tempvoice/internal/domain"
)

// ChannelProvisioner creates, edits and removes voice channels.
type ChannelProvisioner interface {
	CreateVoiceChannel(ctx context.Context, guildID domain.GuildID, name string, categoryID domain.ChannelID) (domain.ChannelID, error)
	DeleteChannel(ctx context.Context, channelID domain.ChannelID) error
	RenameChannel(ctx context.Context, channelID domain.ChannelID, name string) error
	// ChannelInfo returns domain.ErrChannelMissing when the channel is gone.
	ChannelInfo(ctx context.Context, channelID domain.ChannelID) (domain.ChannelInfo, error)
}

// PermissionSetter edits the default-role overwrite of a channel.
type PermissionSetter interface {
	SetChannelPermission(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID, edit domain.PermissionEdit) error
}

// Presence reads and changes live voice occupancy. Nothing here is cached by
// the caller: occupancy changes faster than anything we persist.
type Presence interface {
	LiveMembers(ctx context.Context, guildID domain.GuildID, channelID domain.ChannelID) ([]domain.UserID, error)
	// VoiceChannelOf returns "" when the user is not in voice.
	VoiceChannelOf(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (domain.ChannelID, error)
	// MoveMember moves the user into channelID, or disconnects them when channelID is "".
	MoveMember(ctx context.Context, guildID domain.GuildID, userID domain.UserID, channelID domain.ChannelID) error
}

// Directory resolves identities.
type Directory interface {
	ResolveUser(ctx context.Context, guildID domain.GuildID, userID domain.UserID) (domain.Identity, error)
	GuildOwner(ctx context.Context, guildID domain.GuildID) (domain.UserID, error)
}

// Platform is everything the bot needs from the chat platform.
type Platform interface {
	ChannelProvisioner
	PermissionSetter
	Presence
	Directory
}

// RoomInfo is the read-only view returned by the info command.
type RoomInfo struct {
	ChannelID   domain.ChannelID  `json:"channel_id"`
	Name        string            `json:"name"`
	Owner       domain.Identity   `json:"owner"`
	CoOwners    []domain.Identity `json:"co_owners"`
	MemberCount int               `json:"member_count"`
}
