package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ownedRoom sets up a room owned by "o" with o inside it.
func ownedRoom(t *testing.T, env *testEnv) domain.Room {
	t.Helper()
	env.moveTo("o", entryCh)
	room, ok := env.registry.LookupRoomByOwner(testGuild, "o")
	require.True(t, ok)
	return room
}

func isAuthErr(err error) bool {
	var target *domain.AuthorizationError
	return errors.As(err, &target)
}

func isNotFound(err error) bool {
	var target *domain.NotFoundError
	return errors.As(err, &target)
}

func TestCoOwnerRejectScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	added, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)
	require.True(t, added)
	env.moveTo("w", room.ChannelID)
	env.moveTo("x", room.ChannelID)
	env.moveTo("o", lobbyCh)
	require.True(t, env.registry.IsRoom(room.ChannelID))

	require.NoError(t, env.manager.Reject(ctx, env.caller("w"), "x"))
	assert.Equal(t, domain.ChannelID(""), env.platform.where("x"))

	err = env.manager.Reject(ctx, env.caller("w"), "o")
	assert.True(t, isNotFound(err))
	assert.ErrorIs(t, err, domain.ErrTargetAbsent)
	assert.Equal(t, lobbyCh, env.platform.where("o"))
}

func TestRejectRequiresOwnerOrCoOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)
	env.moveTo("x", room.ChannelID)
	env.moveTo("y", room.ChannelID)

	err := env.manager.Reject(ctx, env.caller("x"), "y")
	assert.True(t, isAuthErr(err))
	assert.Equal(t, room.ChannelID, env.platform.where("y"))

	require.NoError(t, env.manager.Reject(ctx, env.caller("o"), "y"))
	assert.Equal(t, domain.ChannelID(""), env.platform.where("y"))
}

func TestRejectOutsideTempRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.moveTo("o", lobbyCh)

	err := env.manager.Reject(ctx, env.caller("o"), "x")
	assert.ErrorIs(t, err, domain.ErrNotTempRoom)

	err = env.manager.Reject(ctx, env.caller("nobody"), "x")
	assert.ErrorIs(t, err, domain.ErrNotInVoice)
}

func TestRejectDisconnectFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)
	env.moveTo("x", room.ChannelID)

	env.platform.failMove = errBoom
	err := env.manager.Reject(ctx, env.caller("o"), "x")
	var perr *domain.PlatformError
	assert.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, errBoom)
}

func TestClaimScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)
	_, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)
	env.moveTo("c", room.ChannelID)
	env.moveTo("o", lobbyCh)

	claimed, err := env.manager.Claim(ctx, env.caller("c"))
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("c"), claimed.OwnerID)
	assert.Empty(t, claimed.CoOwnerIDs)

	_, err = env.manager.Transfer(ctx, env.caller("o"), "o2")
	assert.True(t, isNotFound(err))
	got, _ := env.registry.LookupRoom(room.ChannelID)
	assert.Equal(t, domain.UserID("c"), got.OwnerID)
}

func TestClaimFailsWhileOwnerPresent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)
	_, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)
	env.moveTo("c", room.ChannelID)

	_, err = env.manager.Claim(ctx, env.caller("c"))
	assert.True(t, isAuthErr(err))

	got, _ := env.registry.LookupRoom(room.ChannelID)
	assert.Equal(t, domain.UserID("o"), got.OwnerID)
	assert.Equal(t, []domain.UserID{"w"}, got.CoOwnerIDs)
}

func TestClaimByOwnerIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ownedRoom(t, env)
	_, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)

	room, err := env.manager.Claim(ctx, env.caller("o"))
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("o"), room.OwnerID)
	assert.Equal(t, []domain.UserID{"w"}, room.CoOwnerIDs)
}

func TestClaimRequiresVoiceAndTempRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.Claim(ctx, env.caller("c"))
	assert.ErrorIs(t, err, domain.ErrNotInVoice)

	env.moveTo("c", lobbyCh)
	_, err = env.manager.Claim(ctx, env.caller("c"))
	assert.ErrorIs(t, err, domain.ErrNotTempRoom)
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)
	_, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)

	// Transferring to yourself changes nothing.
	same, err := env.manager.Transfer(ctx, env.caller("o"), "o")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("o"), same.OwnerID)
	assert.Equal(t, []domain.UserID{"w"}, same.CoOwnerIDs)

	moved, err := env.manager.Transfer(ctx, env.caller("o"), "t")
	require.NoError(t, err)
	assert.Equal(t, room.ChannelID, moved.ChannelID)
	assert.Equal(t, domain.UserID("t"), moved.OwnerID)
	assert.Empty(t, moved.CoOwnerIDs)

	_, err = env.manager.Transfer(ctx, env.caller("o"), "t")
	assert.True(t, isNotFound(err))
}

func TestAddCoOwnerDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	added, err := env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = env.manager.AddCoOwner(ctx, env.caller("o"), "w")
	require.NoError(t, err)
	assert.False(t, added)
	added, err = env.manager.AddCoOwner(ctx, env.caller("o"), "o")
	require.NoError(t, err)
	assert.False(t, added)

	got, _ := env.registry.LookupRoom(room.ChannelID)
	assert.Equal(t, []domain.UserID{"w"}, got.CoOwnerIDs)

	_, err = env.manager.AddCoOwner(ctx, env.caller("w"), "z")
	assert.True(t, isNotFound(err))
}

func TestLockHidePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	require.NoError(t, env.manager.Lock(ctx, env.caller("o")))
	require.NoError(t, env.manager.Hide(ctx, env.caller("o")))
	perms := env.platform.perms[room.ChannelID]
	require.NotNil(t, perms.Connect)
	require.NotNil(t, perms.View)
	assert.False(t, *perms.Connect)
	assert.False(t, *perms.View)

	require.NoError(t, env.manager.Unlock(ctx, env.caller("o")))
	require.NoError(t, env.manager.Unhide(ctx, env.caller("o")))
	perms = env.platform.perms[room.ChannelID]
	assert.True(t, *perms.Connect)
	assert.True(t, *perms.View)

	assert.True(t, isNotFound(env.manager.Lock(ctx, env.caller("stranger"))))
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	_, err := env.manager.Rename(ctx, env.caller("o"), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = env.manager.Rename(ctx, env.caller("o"), "Study Hall")
	require.NoError(t, err)
	info, _ := env.platform.ChannelInfo(ctx, room.ChannelID)
	assert.Equal(t, "Study Hall", info.Name)
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.platform.names["o"] = "Olga"
	room := ownedRoom(t, env)
	env.moveTo("x", room.ChannelID)
	_, err := env.manager.AddCoOwner(ctx, env.caller("o"), "ghost")
	require.NoError(t, err)

	info, err := env.manager.Info(ctx, env.caller("o"))
	require.NoError(t, err)
	assert.Equal(t, "Olga's Room", info.Name)
	assert.Equal(t, "<@o>", info.Owner.Mention)
	assert.Equal(t, 2, info.MemberCount)
	require.Len(t, info.CoOwners, 1)
	assert.Equal(t, "<@ghost>", info.CoOwners[0].Mention)
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	require.NoError(t, env.manager.Close(ctx, env.caller("o")))
	assert.False(t, env.registry.IsRoom(room.ChannelID))
	assert.False(t, env.platform.exists(room.ChannelID))

	assert.True(t, isNotFound(env.manager.Close(ctx, env.caller("o"))))
}

func TestCloseDeleteFailureStillForgetsRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := ownedRoom(t, env)

	env.platform.failDelete = errBoom
	err := env.manager.Close(ctx, env.caller("o"))
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, env.registry.IsRoom(room.ChannelID))
}

func TestAdminConfigureEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := &Admin{Registry: env.registry, Directory: env.platform}

	err := admin.ConfigureEntry(ctx, env.caller("o"), "other")
	assert.True(t, isAuthErr(err))
	entry, _ := env.registry.EntryChannel(testGuild)
	assert.Equal(t, entryCh, entry)

	require.NoError(t, admin.ConfigureEntry(ctx, env.caller("guild-owner"), "other"))
	entry, _ = env.registry.EntryChannel(testGuild)
	assert.Equal(t, domain.ChannelID("other"), entry)
}

func TestSimplePolicy(t *testing.T) {
	p := SimplePolicy{}
	assert.True(t, p.Allow(ActReject, RoleCoOwner))
	assert.True(t, p.Allow(ActReject, RoleOwner))
	assert.False(t, p.Allow(ActReject, RoleNone))
	assert.False(t, p.Allow(ActClose, RoleCoOwner))
	assert.True(t, p.Allow(ActClose, RoleOwner))
}
