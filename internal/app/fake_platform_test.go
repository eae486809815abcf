package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type move struct {
	user domain.UserID
	from domain.ChannelID
	to   domain.ChannelID
}

// fakePlatform is an in-memory guild: channels, voice presence, owners.
// Moves the bot makes are queued so the test can replay them as the
// presence events the gateway would deliver.
type fakePlatform struct {
	mu       sync.Mutex
	nextID   int
	channels map[domain.ChannelID]domain.ChannelInfo
	created  map[domain.ChannelID]bool
	voice    map[domain.UserID]domain.ChannelID
	names    map[domain.UserID]string
	owners   map[domain.GuildID]domain.UserID
	perms    map[domain.ChannelID]domain.PermissionEdit
	pending  []move

	failCreate error
	failDelete error
	failMove   error
	failLive   error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels: make(map[domain.ChannelID]domain.ChannelInfo),
		created:  make(map[domain.ChannelID]bool),
		voice:    make(map[domain.UserID]domain.ChannelID),
		names:    make(map[domain.UserID]string),
		owners:   make(map[domain.GuildID]domain.UserID),
		perms:    make(map[domain.ChannelID]domain.PermissionEdit),
	}
}

func (f *fakePlatform) addChannel(gid domain.GuildID, ch domain.ChannelID, name string, category domain.ChannelID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch] = domain.ChannelInfo{ID: ch, GuildID: gid, Name: name, CategoryID: category}
}

func (f *fakePlatform) CreateVoiceChannel(_ context.Context, gid domain.GuildID, name string, category domain.ChannelID) (domain.ChannelID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	ch := domain.ChannelID(fmt.Sprintf("room-%03d", f.nextID))
	f.channels[ch] = domain.ChannelInfo{ID: ch, GuildID: gid, Name: name, CategoryID: category}
	f.created[ch] = true
	return ch, nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, ch domain.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	if _, ok := f.channels[ch]; !ok {
		return domain.ErrChannelMissing
	}
	delete(f.channels, ch)
	for uid, at := range f.voice {
		if at == ch {
			delete(f.voice, uid)
		}
	}
	return nil
}

func (f *fakePlatform) RenameChannel(_ context.Context, ch domain.ChannelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.channels[ch]
	if !ok {
		return domain.ErrChannelMissing
	}
	info.Name = name
	f.channels[ch] = info
	return nil
}

func (f *fakePlatform) ChannelInfo(_ context.Context, ch domain.ChannelID) (domain.ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.channels[ch]
	if !ok {
		return domain.ChannelInfo{}, domain.ErrChannelMissing
	}
	return info, nil
}

func (f *fakePlatform) SetChannelPermission(_ context.Context, _ domain.GuildID, ch domain.ChannelID, edit domain.PermissionEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.perms[ch]
	if edit.Connect != nil {
		cur.Connect = edit.Connect
	}
	if edit.View != nil {
		cur.View = edit.View
	}
	f.perms[ch] = cur
	return nil
}

func (f *fakePlatform) LiveMembers(_ context.Context, _ domain.GuildID, ch domain.ChannelID) ([]domain.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLive != nil {
		return nil, f.failLive
	}
	if _, ok := f.channels[ch]; !ok {
		return nil, domain.ErrChannelMissing
	}
	var out []domain.UserID
	for uid, at := range f.voice {
		if at == ch {
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakePlatform) VoiceChannelOf(_ context.Context, _ domain.GuildID, uid domain.UserID) (domain.ChannelID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[uid], nil
}

func (f *fakePlatform) MoveMember(_ context.Context, _ domain.GuildID, uid domain.UserID, ch domain.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMove != nil {
		return f.failMove
	}
	from := f.voice[uid]
	if ch == "" {
		delete(f.voice, uid)
	} else {
		f.voice[uid] = ch
	}
	f.pending = append(f.pending, move{user: uid, from: from, to: ch})
	return nil
}

func (f *fakePlatform) ResolveUser(_ context.Context, _ domain.GuildID, uid domain.UserID) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[uid]
	if !ok {
		return domain.Identity{}, errors.New("unknown user")
	}
	return domain.Identity{ID: uid, DisplayName: name, Mention: uid.Mention()}, nil
}

func (f *fakePlatform) GuildOwner(_ context.Context, gid domain.GuildID) (domain.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[gid], nil
}

func (f *fakePlatform) where(uid domain.UserID) domain.ChannelID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[uid]
}

func (f *fakePlatform) exists(ch domain.ChannelID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[ch]
	return ok
}

// liveCreated lists channels the bot created that still exist.
func (f *fakePlatform) liveCreated() []domain.ChannelID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChannelID
	for ch := range f.created {
		if _, ok := f.channels[ch]; ok {
			out = append(out, ch)
		}
	}
	slices.Sort(out)
	return out
}

func (f *fakePlatform) takePending() []move {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

const (
	testGuild = domain.GuildID("g1")
	entryCh   = domain.ChannelID("entry")
	lobbyCh   = domain.ChannelID("lobby")
	category  = domain.ChannelID("temp-category")
)

type testEnv struct {
	platform  *fakePlatform
	registry  *Registry
	lifecycle *Lifecycle
	manager   *Manager
	storePath string
	store     store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	st, err := store.OpenJSON(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := NewRegistry(st)
	require.NoError(t, err)

	p := newFakePlatform()
	p.addChannel(testGuild, entryCh, "Join To Create", category)
	p.addChannel(testGuild, lobbyCh, "Lobby", "")
	p.owners[testGuild] = "guild-owner"
	require.NoError(t, reg.ConfigureEntry(testGuild, entryCh))

	lc := &Lifecycle{Registry: reg, Platform: p, NameTemplate: DefaultNameTemplate}
	return &testEnv{
		platform:  p,
		registry:  reg,
		lifecycle: lc,
		manager:   &Manager{Registry: reg, Platform: p, Lifecycle: lc},
		storePath: path,
		store:     st,
	}
}

// moveTo changes a user's presence and delivers the resulting event, then
// replays any moves the bot made in response, the way the gateway would.
func (e *testEnv) moveTo(uid domain.UserID, to domain.ChannelID) {
	ctx := context.Background()
	e.platform.mu.Lock()
	from := e.platform.voice[uid]
	if to == "" {
		delete(e.platform.voice, uid)
	} else {
		e.platform.voice[uid] = to
	}
	e.platform.mu.Unlock()

	e.lifecycle.HandleVoiceState(ctx, domain.VoiceStateChange{
		GuildID: testGuild, UserID: uid, DisplayName: e.platform.names[uid], Before: from, After: to,
	})
	for {
		moves := e.platform.takePending()
		if len(moves) == 0 {
			return
		}
		for _, mv := range moves {
			e.lifecycle.HandleVoiceState(ctx, domain.VoiceStateChange{
				GuildID: testGuild, UserID: mv.user, DisplayName: e.platform.names[mv.user], Before: mv.from, After: mv.to,
			})
		}
	}
}

func (e *testEnv) caller(uid domain.UserID) domain.Caller {
	return domain.Caller{GuildID: testGuild, UserID: uid}
}

// registeredChannels lists the registry's rooms by channel.
func (e *testEnv) registeredChannels() []domain.ChannelID {
	var out []domain.ChannelID
	for _, r := range e.registry.Rooms("") {
		out = append(out, r.ChannelID)
	}
	return out
}
