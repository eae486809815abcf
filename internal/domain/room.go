package domain

import (
	"slices"
	"time"
)

// Room is one ephemeral voice channel under management.
// Member count is deliberately absent: it is always read live from the platform.
type Room struct {
	ChannelID  ChannelID `json:"channel_id"`
	GuildID    GuildID   `json:"guild_id"`
	OwnerID    UserID    `json:"owner_id"`
	CoOwnerIDs []UserID  `json:"co_owner_ids"`
	CreatedAt  time.Time `json:"-"`
}

func (r Room) IsOwner(u UserID) bool { return r.OwnerID == u }

func (r Room) IsCoOwner(u UserID) bool { return slices.Contains(r.CoOwnerIDs, u) }

// Clone returns a copy that shares no memory with r.
func (r Room) Clone() Room {
	r.CoOwnerIDs = slices.Clone(r.CoOwnerIDs)
	if r.CoOwnerIDs == nil {
		r.CoOwnerIDs = []UserID{}
	}
	return r
}

// ChannelInfo is what the platform reports about a channel.
type ChannelInfo struct {
	ID         ChannelID
	GuildID    GuildID
	Name       string
	CategoryID ChannelID
}

// PermissionEdit toggles default-role permissions on a channel. Nil leaves a bit untouched.
type PermissionEdit struct {
	Connect *bool
	View    *bool
}
