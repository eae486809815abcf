// Package store persists the single TempVoice document: per guild, the
// Join-To-Create entry channel plus room ownership and co-ownership.
package store

import (
	"slices"

	"github.com/dkeye/tempvoice/internal/domain"
)

type GuildDocument struct {
	EntryChannelID domain.ChannelID                      `json:"entry_channel_id,omitempty"`
	VoiceOwners    map[domain.ChannelID]domain.UserID   `json:"voice_owners"`
	CoOwners       map[domain.ChannelID][]domain.UserID `json:"co_owners"`
}

type Document struct {
	Guilds map[domain.GuildID]*GuildDocument `json:"guilds"`
}

func NewDocument() *Document {
	return &Document{Guilds: make(map[domain.GuildID]*GuildDocument)}
}

func newGuildDocument() *GuildDocument {
	return &GuildDocument{
		VoiceOwners: make(map[domain.ChannelID]domain.UserID),
		CoOwners:    make(map[domain.ChannelID][]domain.UserID),
	}
}

// Guild returns the document for id, creating it if needed.
func (d *Document) Guild(id domain.GuildID) *GuildDocument {
	g, ok := d.Guilds[id]
	if !ok || g == nil {
		g = newGuildDocument()
		d.Guilds[id] = g
	}
	return g
}

// Normalize fills nil maps left behind by decoding sparse input and drops
// co-owner lists of channels that no longer have an owner.
func (d *Document) Normalize() *Document {
	if d.Guilds == nil {
		d.Guilds = make(map[domain.GuildID]*GuildDocument)
	}
	for id, g := range d.Guilds {
		if g == nil {
			d.Guilds[id] = newGuildDocument()
			continue
		}
		if g.VoiceOwners == nil {
			g.VoiceOwners = make(map[domain.ChannelID]domain.UserID)
		}
		if g.CoOwners == nil {
			g.CoOwners = make(map[domain.ChannelID][]domain.UserID)
		}
		for ch := range g.CoOwners {
			if _, ok := g.VoiceOwners[ch]; !ok {
				delete(g.CoOwners, ch)
			}
		}
	}
	return d
}

// Rooms flattens the document into rooms, unordered.
func (d *Document) Rooms() []domain.Room {
	var out []domain.Room
	for gid, g := range d.Guilds {
		for ch, owner := range g.VoiceOwners {
			out = append(out, domain.Room{
				ChannelID:  ch,
				GuildID:    gid,
				OwnerID:    owner,
				CoOwnerIDs: slices.Clone(g.CoOwners[ch]),
			})
		}
	}
	return out
}
