// Package discord binds the room engine to a Discord gateway session.
package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/domain"
)

// Platform implements core.Platform on top of a discordgo session. Reads
// prefer the gateway state cache and fall back to REST.
type Platform struct {
	s     *discordgo.Session
	users *lru.Cache
}

func NewPlatform(s *discordgo.Session, cacheSize int) (*Platform, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	users, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Platform{s: s, users: users}, nil
}

func (p *Platform) CreateVoiceChannel(ctx context.Context, gid domain.GuildID, name string, category domain.ChannelID) (domain.ChannelID, error) {
	ch, err := p.s.GuildChannelCreateComplex(string(gid), discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: string(category),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr(err)
	}
	return domain.ChannelID(ch.ID), nil
}

func (p *Platform) DeleteChannel(ctx context.Context, ch domain.ChannelID) error {
	_, err := p.s.ChannelDelete(string(ch), discordgo.WithContext(ctx))
	return mapErr(err)
}

func (p *Platform) RenameChannel(ctx context.Context, ch domain.ChannelID, name string) error {
	_, err := p.s.ChannelEdit(string(ch), &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (p *Platform) ChannelInfo(ctx context.Context, ch domain.ChannelID) (domain.ChannelInfo, error) {
	c, err := p.channel(ctx, ch)
	if err != nil {
		return domain.ChannelInfo{}, err
	}
	return domain.ChannelInfo{
		ID:         domain.ChannelID(c.ID),
		GuildID:    domain.GuildID(c.GuildID),
		Name:       c.Name,
		CategoryID: domain.ChannelID(c.ParentID),
	}, nil
}

func (p *Platform) channel(ctx context.Context, ch domain.ChannelID) (*discordgo.Channel, error) {
	if c, err := p.s.State.Channel(string(ch)); err == nil {
		return c, nil
	}
	c, err := p.s.Channel(string(ch), discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// SetChannelPermission edits the @everyone overwrite, keeping every bit the
// edit does not mention.
func (p *Platform) SetChannelPermission(ctx context.Context, gid domain.GuildID, ch domain.ChannelID, edit domain.PermissionEdit) error {
	c, err := p.channel(ctx, ch)
	if err != nil {
		return err
	}
	var allow, deny int64
	for _, ow := range c.PermissionOverwrites {
		if ow.ID == string(gid) && ow.Type == discordgo.PermissionOverwriteTypeRole {
			allow, deny = ow.Allow, ow.Deny
			break
		}
	}
	allow, deny = mergeOverwrite(allow, deny, edit)
	err = p.s.ChannelPermissionSet(string(ch), string(gid), discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (p *Platform) LiveMembers(ctx context.Context, gid domain.GuildID, ch domain.ChannelID) ([]domain.UserID, error) {
	if _, err := p.channel(ctx, ch); err != nil {
		return nil, err
	}
	g, err := p.s.State.Guild(string(gid))
	if err != nil {
		return nil, err
	}
	p.s.State.RLock()
	defer p.s.State.RUnlock()
	var out []domain.UserID
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == string(ch) {
			out = append(out, domain.UserID(vs.UserID))
		}
	}
	return out, nil
}

func (p *Platform) VoiceChannelOf(_ context.Context, gid domain.GuildID, uid domain.UserID) (domain.ChannelID, error) {
	vs, err := p.s.State.VoiceState(string(gid), string(uid))
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.ChannelID(vs.ChannelID), nil
}

func (p *Platform) MoveMember(ctx context.Context, gid domain.GuildID, uid domain.UserID, ch domain.ChannelID) error {
	var target *string
	if ch != "" {
		id := string(ch)
		target = &id
	}
	return mapErr(p.s.GuildMemberMove(string(gid), string(uid), target, discordgo.WithContext(ctx)))
}

func (p *Platform) ResolveUser(ctx context.Context, gid domain.GuildID, uid domain.UserID) (domain.Identity, error) {
	key := userKey(gid, uid)
	if v, ok := p.users.Get(key); ok {
		return v.(domain.Identity), nil
	}
	m, err := p.s.State.Member(string(gid), string(uid))
	if err != nil {
		m, err = p.s.GuildMember(string(gid), string(uid), discordgo.WithContext(ctx))
		if err != nil {
			return domain.Identity{}, mapErr(err)
		}
	}
	id := identityOf(m)
	p.users.Add(key, id)
	return id, nil
}

// Forget drops a cached identity, e.g. after a nickname change.
func (p *Platform) Forget(gid domain.GuildID, uid domain.UserID) {
	if p.users.Remove(userKey(gid, uid)) {
		log.Debug().Str("module", "discord").Str("user", string(uid)).Msg("identity cache entry dropped")
	}
}

func (p *Platform) GuildOwner(ctx context.Context, gid domain.GuildID) (domain.UserID, error) {
	if g, err := p.s.State.Guild(string(gid)); err == nil && g.OwnerID != "" {
		return domain.UserID(g.OwnerID), nil
	}
	g, err := p.s.Guild(string(gid), discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr(err)
	}
	return domain.UserID(g.OwnerID), nil
}

func userKey(gid domain.GuildID, uid domain.UserID) string {
	return string(gid) + "/" + string(uid)
}

func identityOf(m *discordgo.Member) domain.Identity {
	uid := domain.UserID("")
	if m.User != nil {
		uid = domain.UserID(m.User.ID)
	}
	return domain.Identity{ID: uid, DisplayName: displayName(m), Mention: uid.Mention()}
}

// displayName is the guild nickname, then the global name, then the username.
func displayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func mergeOverwrite(allow, deny int64, edit domain.PermissionEdit) (int64, int64) {
	apply := func(bit int64, want *bool) {
		if want == nil {
			return
		}
		allow &^= bit
		deny &^= bit
		if *want {
			allow |= bit
		} else {
			deny |= bit
		}
	}
	apply(discordgo.PermissionVoiceConnect, edit.Connect)
	apply(discordgo.PermissionViewChannel, edit.View)
	return allow, deny
}

// mapErr turns "unknown channel" responses into domain.ErrChannelMissing.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
			return domain.ErrChannelMissing
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound && rest.Message == nil {
			return domain.ErrChannelMissing
		}
	}
	return err
}
