package app

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
	"github.com/rs/zerolog/log"
)

// Registry is the in-memory view of the store and the only place room
// ownership is read or changed. Every mutation is flushed before it returns.
type Registry struct {
	mu      sync.RWMutex
	store   store.Store
	entries map[domain.GuildID]domain.ChannelID
	rooms   map[domain.ChannelID]*domain.Room
	now     func() time.Time
}

func NewRegistry(st store.Store) (*Registry, error) {
	doc, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	r := &Registry{
		store:   st,
		entries: make(map[domain.GuildID]domain.ChannelID),
		rooms:   make(map[domain.ChannelID]*domain.Room),
		now:     time.Now,
	}
	for gid, g := range doc.Guilds {
		if g.EntryChannelID != "" {
			r.entries[gid] = g.EntryChannelID
		}
	}
	loadedAt := r.now()
	for _, room := range doc.Rooms() {
		room := room.Clone()
		room.CreatedAt = loadedAt
		r.rooms[room.ChannelID] = &room
	}
	log.Info().Str("module", "app.registry").Int("guilds", len(r.entries)).Int("rooms", len(r.rooms)).Msg("registry loaded")
	return r, nil
}

func (r *Registry) ConfigureEntry(gid domain.GuildID, ch domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch == "" {
		delete(r.entries, gid)
	} else {
		r.entries[gid] = ch
	}
	log.Info().Str("module", "app.registry").Str("guild", string(gid)).Str("channel", string(ch)).Msg("configured entry channel")
	return r.flushLocked()
}

func (r *Registry) EntryChannel(gid domain.GuildID) (domain.ChannelID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.entries[gid]
	return ch, ok
}

func (r *Registry) RegisterRoom(gid domain.GuildID, ch domain.ChannelID, owner domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[ch]; ok {
		return fmt.Errorf("register %s: %w", ch, domain.ErrRoomExists)
	}
	r.rooms[ch] = &domain.Room{
		ChannelID:  ch,
		GuildID:    gid,
		OwnerID:    owner,
		CoOwnerIDs: []domain.UserID{},
		CreatedAt:  r.now(),
	}
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Str("owner", string(owner)).Msg("registered room")
	return r.flushLocked()
}

// LookupRoomByOwner scans all live rooms. If a user owns several (possible
// after a transfer) the lowest channel ID wins so the answer is stable.
func (r *Registry) LookupRoomByOwner(gid domain.GuildID, uid domain.UserID) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Room
	for _, room := range r.rooms {
		if room.GuildID != gid || room.OwnerID != uid {
			continue
		}
		if found == nil || room.ChannelID < found.ChannelID {
			found = room
		}
	}
	if found == nil {
		return domain.Room{}, false
	}
	return found.Clone(), true
}

func (r *Registry) LookupRoom(ch domain.ChannelID) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[ch]
	if !ok {
		return domain.Room{}, false
	}
	return room.Clone(), true
}

func (r *Registry) IsRoom(ch domain.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[ch]
	return ok
}

// SetOwner hands the room to uid and drops every co-owner. Setting the
// current owner again changes nothing.
func (r *Registry) SetOwner(ch domain.ChannelID, uid domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[ch]
	if !ok {
		return fmt.Errorf("set owner of %s: %w", ch, domain.ErrRoomNotFound)
	}
	if room.OwnerID == uid {
		return nil
	}
	prev := room.OwnerID
	room.OwnerID = uid
	room.CoOwnerIDs = []domain.UserID{}
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Str("from", string(prev)).Str("to", string(uid)).Msg("owner changed")
	return r.flushLocked()
}

// AddCoOwner reports false when uid already was a co-owner.
func (r *Registry) AddCoOwner(ch domain.ChannelID, uid domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[ch]
	if !ok {
		return false, fmt.Errorf("add co-owner to %s: %w", ch, domain.ErrRoomNotFound)
	}
	if slices.Contains(room.CoOwnerIDs, uid) {
		return false, nil
	}
	room.CoOwnerIDs = append(room.CoOwnerIDs, uid)
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Str("user", string(uid)).Msg("co-owner added")
	return true, r.flushLocked()
}

// RemoveRoom reports false when there was nothing to remove.
func (r *Registry) RemoveRoom(ch domain.ChannelID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[ch]; !ok {
		return false, nil
	}
	delete(r.rooms, ch)
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Msg("removed room")
	return true, r.flushLocked()
}

// Rooms returns a snapshot ordered by channel ID. An empty gid means every guild.
func (r *Registry) Rooms(gid domain.GuildID) []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if gid != "" && room.GuildID != gid {
			continue
		}
		out = append(out, room.Clone())
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		return strings.Compare(string(a.ChannelID), string(b.ChannelID))
	})
	return out
}

// GuildOfEntry returns the guild that uses ch as its entry channel.
func (r *Registry) GuildOfEntry(ch domain.ChannelID) (domain.GuildID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for gid, entry := range r.entries {
		if entry == ch {
			return gid, true
		}
	}
	return "", false
}

func (r *Registry) flushLocked() error {
	doc := store.NewDocument()
	for gid, ch := range r.entries {
		doc.Guild(gid).EntryChannelID = ch
	}
	for ch, room := range r.rooms {
		g := doc.Guild(room.GuildID)
		g.VoiceOwners[ch] = room.OwnerID
		if len(room.CoOwnerIDs) > 0 {
			g.CoOwners[ch] = slices.Clone(room.CoOwnerIDs)
		}
	}
	if err := r.store.Save(doc); err != nil {
		log.Error().Err(err).Str("module", "app.registry").Msg("flush failed")
		return &domain.PersistenceError{Err: err}
	}
	return nil
}
