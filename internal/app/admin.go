package app

import (
	"context"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

// Admin holds the guild-owner setup operations.
type Admin struct {
	Registry  *Registry
	Directory core.Directory
}

// ConfigureEntry makes ch the guild's Join-To-Create channel. Only the
// guild's top-level owner may do this.
func (a *Admin) ConfigureEntry(ctx context.Context, caller domain.Caller, ch domain.ChannelID) error {
	owner, err := a.Directory.GuildOwner(ctx, caller.GuildID)
	if err != nil {
		return domain.Platform("guild owner", err)
	}
	if owner != caller.UserID {
		return domain.Unauthorized("only the server owner can set the entry channel")
	}
	return a.Registry.ConfigureEntry(caller.GuildID, ch)
}
