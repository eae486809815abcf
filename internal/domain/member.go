package domain

// Caller identifies who issued a command and where.
type Caller struct {
	GuildID GuildID
	UserID  UserID
}

// VoiceStateChange is a member's voice presence moving from Before to After.
// An empty ChannelID means "not in voice".
type VoiceStateChange struct {
	GuildID     GuildID
	UserID      UserID
	DisplayName string
	Before      ChannelID
	After       ChannelID
}

// Joined reports whether the change entered channel c from somewhere else.
func (v VoiceStateChange) Joined(c ChannelID) bool {
	return c != "" && v.After == c && v.Before != v.After
}

// Left reports whether the change left the Before channel.
func (v VoiceStateChange) Left() bool {
	return v.Before != "" && v.After != v.Before
}
