// Package domain contains entities without platform logic, just meta-data
package domain

type (
	GuildID   string
	ChannelID string
	UserID    string
)

// Mention renders the platform mention markup for a user.
func (u UserID) Mention() string {
	return "<@" + string(u) + ">"
}

// Identity is the displayable form of a user as resolved from the platform.
type Identity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Mention     string `json:"mention"`
}
