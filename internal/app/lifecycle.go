package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
)

const (
	DefaultNameTemplate = "{user}'s Room"
	maxChannelNameLen   = 100
)

// Lifecycle creates rooms when someone joins a guild's entry channel and
// tears them down once presence shows them empty.
type Lifecycle struct {
	Registry     *Registry
	Platform     core.Platform
	NameTemplate string
}

// HandleVoiceState evaluates creation, then teardown. The two concern
// different channels, so a failure in one does not skip the other. Nothing
// is returned: there is no caller to report to, errors are logged.
func (l *Lifecycle) HandleVoiceState(ctx context.Context, ev domain.VoiceStateChange) {
	logger := logFor(ctx, "app.lifecycle")

	if entry, ok := l.Registry.EntryChannel(ev.GuildID); ok && ev.Joined(entry) {
		ch, err := l.createRoom(ctx, ev, entry)
		if err != nil {
			logger.Error().Err(err).Str("guild", string(ev.GuildID)).Str("user", string(ev.UserID)).Msg("room creation failed")
		} else {
			logger.Info().Str("guild", string(ev.GuildID)).Str("user", string(ev.UserID)).Str("channel", string(ch)).Msg("room created")
		}
	}

	if ev.Left() && l.Registry.IsRoom(ev.Before) {
		deleted, err := l.TeardownIfEmpty(ctx, ev.GuildID, ev.Before)
		if err != nil {
			logger.Error().Err(err).Str("channel", string(ev.Before)).Msg("room teardown failed")
		} else if deleted {
			logger.Info().Str("channel", string(ev.Before)).Msg("empty room removed")
		}
	}
}

// HandleChannelDelete forgets a room or an entry channel deleted behind our back.
func (l *Lifecycle) HandleChannelDelete(ctx context.Context, gid domain.GuildID, ch domain.ChannelID) {
	logger := logFor(ctx, "app.lifecycle")
	if removed, err := l.Registry.RemoveRoom(ch); err != nil {
		logger.Error().Err(err).Str("channel", string(ch)).Msg("could not forget deleted room")
	} else if removed {
		logger.Info().Str("channel", string(ch)).Msg("room channel deleted externally")
	}
	if entry, ok := l.Registry.EntryChannel(gid); ok && entry == ch {
		if err := l.Registry.ConfigureEntry(gid, ""); err != nil {
			logger.Error().Err(err).Str("guild", string(gid)).Msg("could not clear deleted entry channel")
			return
		}
		logger.Warn().Str("guild", string(gid)).Str("channel", string(ch)).Msg("entry channel deleted, setup cleared")
	}
}

// createRoom registers the new channel before moving the user in. The move
// is best effort: if it fails the room stays registered and the reconciler
// removes it once it is found empty.
func (l *Lifecycle) createRoom(ctx context.Context, ev domain.VoiceStateChange, entry domain.ChannelID) (domain.ChannelID, error) {
	logger := logFor(ctx, "app.lifecycle")

	info, err := l.Platform.ChannelInfo(ctx, entry)
	if err != nil {
		return "", domain.Platform("entry channel info", err)
	}
	display := ev.DisplayName
	if display == "" {
		if id, err := l.Platform.ResolveUser(ctx, ev.GuildID, ev.UserID); err == nil {
			display = id.DisplayName
		}
	}
	ch, err := l.Platform.CreateVoiceChannel(ctx, ev.GuildID, RoomName(l.NameTemplate, display), info.CategoryID)
	if err != nil {
		return "", domain.Platform("create voice channel", err)
	}
	if err := l.Registry.RegisterRoom(ev.GuildID, ch, ev.UserID); err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			return ch, err
		}
		logger.Warn().Err(err).Str("channel", string(ch)).Msg("room registered in memory only")
	}
	if err := l.Platform.MoveMember(ctx, ev.GuildID, ev.UserID, ch); err != nil {
		logger.Warn().Err(err).Str("channel", string(ch)).Str("user", string(ev.UserID)).Msg("move into new room failed, room kept")
	}
	return ch, nil
}

// TeardownIfEmpty destroys the room when the platform reports nobody inside.
// The count is read live rather than taken from the triggering event, so a
// join racing the leave keeps the room alive. If the count cannot be read
// nothing is deleted.
func (l *Lifecycle) TeardownIfEmpty(ctx context.Context, gid domain.GuildID, ch domain.ChannelID) (bool, error) {
	members, err := l.Platform.LiveMembers(ctx, gid, ch)
	if errors.Is(err, domain.ErrChannelMissing) {
		_, err := l.Registry.RemoveRoom(ch)
		return true, err
	}
	if err != nil {
		return false, domain.Platform("live members", err)
	}
	if len(members) > 0 {
		return false, nil
	}
	return true, l.destroy(ctx, ch)
}

// destroy deletes the channel and always drops the registry entry: a dead
// entry would block claim and teardown on an ID that no longer exists,
// which is worse than a leaked channel.
func (l *Lifecycle) destroy(ctx context.Context, ch domain.ChannelID) error {
	delErr := l.Platform.DeleteChannel(ctx, ch)
	if errors.Is(delErr, domain.ErrChannelMissing) {
		delErr = nil
	}
	if delErr != nil {
		logFor(ctx, "app.lifecycle").Warn().Err(delErr).Str("channel", string(ch)).Msg("delete failed, dropping entry anyway")
	}
	if _, err := l.Registry.RemoveRoom(ch); err != nil {
		return err
	}
	if delErr != nil {
		return domain.Platform("delete channel", delErr)
	}
	return nil
}

// RoomName fills template with the user's display name, trimmed to the
// platform's channel name limit.
func RoomName(template, display string) string {
	if template == "" {
		template = DefaultNameTemplate
	}
	display = strings.TrimSpace(display)
	if display == "" {
		display = "Someone"
	}
	name := strings.TrimSpace(strings.ReplaceAll(template, "{user}", display))
	if utf8.RuneCountInString(name) > maxChannelNameLen {
		name = string([]rune(name)[:maxChannelNameLen])
	}
	return name
}
