// Package command turns ".v" text commands into ownership operations and
// produces exactly one reply for each recognized invocation.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultPrefix = ".v "

// Ownership is the slice of app.Manager the commands need.
type Ownership interface {
	Rename(ctx context.Context, caller domain.Caller, name string) (domain.Room, error)
	Lock(ctx context.Context, caller domain.Caller) error
	Unlock(ctx context.Context, caller domain.Caller) error
	Hide(ctx context.Context, caller domain.Caller) error
	Unhide(ctx context.Context, caller domain.Caller) error
	Transfer(ctx context.Context, caller domain.Caller, target domain.UserID) (domain.Room, error)
	AddCoOwner(ctx context.Context, caller domain.Caller, target domain.UserID) (bool, error)
	Info(ctx context.Context, caller domain.Caller) (core.RoomInfo, error)
	Close(ctx context.Context, caller domain.Caller) error
	Claim(ctx context.Context, caller domain.Caller) (domain.Room, error)
	Reject(ctx context.Context, caller domain.Caller, target domain.UserID) error
}

// Invocation is one parsed command message.
type Invocation struct {
	Caller   domain.Caller
	Name     string
	Args     string
	Mentions []domain.UserID
}

func (inv Invocation) target() domain.UserID {
	if len(inv.Mentions) == 0 {
		return ""
	}
	return inv.Mentions[0]
}

type Router struct {
	Ownership Ownership
	Limiter   *RateLimiter
	Prefix    string
}

func (r *Router) prefix() string {
	if r.Prefix == "" {
		return DefaultPrefix
	}
	return r.Prefix
}

// Parse splits content into command name and argument text. ok is false
// when content does not start with the prefix.
func (r *Router) Parse(content string) (name, args string, ok bool) {
	rest, found := strings.CutPrefix(content, r.prefix())
	if !found {
		return "", "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", false
	}
	name, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// Handle runs inv. handled is false for unknown commands, which get no reply.
func (r *Router) Handle(ctx context.Context, inv Invocation) (reply Reply, handled bool) {
	if !isKnown(inv.Name) {
		log.Debug().Str("module", "command").Str("name", inv.Name).Msg("unknown command")
		return Reply{}, false
	}
	if !r.Limiter.Allow(inv.Caller.UserID) {
		return Text("⏳ Slow down a little."), true
	}
	log.Info().Str("module", "command").Str("name", inv.Name).Str("guild", string(inv.Caller.GuildID)).
		Str("user", string(inv.Caller.UserID)).Msg("command")

	switch inv.Name {
	case "name":
		return r.rename(ctx, inv), true
	case "lock":
		return r.simple(r.Ownership.Lock(ctx, inv.Caller), "🔒 Room locked."), true
	case "unlock":
		return r.simple(r.Ownership.Unlock(ctx, inv.Caller), "🔓 Room unlocked."), true
	case "hide":
		return r.simple(r.Ownership.Hide(ctx, inv.Caller), "👁 Room hidden."), true
	case "unhide":
		return r.simple(r.Ownership.Unhide(ctx, inv.Caller), "👁 Room visible."), true
	case "transfer":
		return r.transfer(ctx, inv), true
	case "addco":
		return r.addCoOwner(ctx, inv), true
	case "info":
		return r.info(ctx, inv), true
	case "close":
		return r.simple(r.Ownership.Close(ctx, inv.Caller), "❌ Room closed."), true
	case "claim":
		return r.claim(ctx, inv), true
	case "reject":
		return r.reject(ctx, inv), true
	case "commands":
		return r.help(), true
	}
	return Reply{}, false
}

func (r *Router) usage(args string) Reply {
	return Text(fmt.Sprintf("❌ Usage: `%s%s`", r.prefix(), args))
}

func (r *Router) simple(err error, ok string) Reply {
	if err != nil {
		return ErrorReply(err)
	}
	return Text(ok)
}

func (r *Router) rename(ctx context.Context, inv Invocation) Reply {
	if inv.Args == "" {
		return r.usage("name <new name>")
	}
	if _, err := r.Ownership.Rename(ctx, inv.Caller, inv.Args); err != nil {
		if errors.Is(err, domain.ErrEmptyName) {
			return r.usage("name <new name>")
		}
		return ErrorReply(err)
	}
	return Text(fmt.Sprintf("✨ Room renamed to **%s**", inv.Args))
}

func (r *Router) transfer(ctx context.Context, inv Invocation) Reply {
	target := inv.target()
	if target == "" {
		return r.usage("transfer @user")
	}
	if _, err := r.Ownership.Transfer(ctx, inv.Caller, target); err != nil {
		return ErrorReply(err)
	}
	return Text("👑 Ownership transferred to " + target.Mention())
}

func (r *Router) addCoOwner(ctx context.Context, inv Invocation) Reply {
	target := inv.target()
	if target == "" {
		return r.usage("addco @user")
	}
	added, err := r.Ownership.AddCoOwner(ctx, inv.Caller, target)
	if err != nil {
		return ErrorReply(err)
	}
	if !added {
		return Text(target.Mention() + " already manages this room.")
	}
	return Text("✨ " + target.Mention() + " added as co-owner.")
}

func (r *Router) info(ctx context.Context, inv Invocation) Reply {
	info, err := r.Ownership.Info(ctx, inv.Caller)
	if err != nil {
		return ErrorReply(err)
	}
	owner := info.Owner.Mention
	if owner == "" {
		owner = "Unknown"
	}
	embed := &Embed{
		Title: "📊 Room Info",
		Color: ColorInfo,
		Fields: []Field{
			{Name: "Room Name", Value: info.Name},
			{Name: "Owner", Value: owner},
		},
	}
	if len(info.CoOwners) > 0 {
		mentions := make([]string, 0, len(info.CoOwners))
		for _, co := range info.CoOwners {
			mentions = append(mentions, co.Mention)
		}
		embed.Fields = append(embed.Fields, Field{Name: "Co-owners", Value: strings.Join(mentions, ", ")})
	}
	embed.Fields = append(embed.Fields, Field{Name: "Users", Value: fmt.Sprint(info.MemberCount)})
	return Reply{Embed: embed}
}

func (r *Router) claim(ctx context.Context, inv Invocation) Reply {
	if _, err := r.Ownership.Claim(ctx, inv.Caller); err != nil {
		return ErrorReply(err)
	}
	return Text("👑 You now own this room, " + inv.Caller.UserID.Mention() + ".")
}

func (r *Router) reject(ctx context.Context, inv Invocation) Reply {
	target := inv.target()
	if target == "" {
		return r.usage("reject @user")
	}
	if err := r.Ownership.Reject(ctx, inv.Caller, target); err != nil {
		return ErrorReply(err)
	}
	return Text("👢 " + target.Mention() + " was removed from the room.")
}
