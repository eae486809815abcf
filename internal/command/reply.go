package command

import (
	"errors"
	"strings"

	"github.com/dkeye/tempvoice/internal/domain"
)

const (
	ColorInfo     = 0x5865F2
	ColorCommands = 0x00FFE5
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title  string
	Color  int
	Fields []Field
}

// Reply is the single answer to one invocation: text, or an embed.
type Reply struct {
	Content string
	Embed   *Embed
}

func Text(s string) Reply { return Reply{Content: s} }

// ErrorReply maps the error taxonomy onto what the user is told.
func ErrorReply(err error) Reply {
	var (
		authErr    *domain.AuthorizationError
		notFound   *domain.NotFoundError
		platErr    *domain.PlatformError
		persistErr *domain.PersistenceError
	)
	switch {
	case errors.Is(err, domain.ErrNotInVoice):
		return Text("❌ You must be inside a temporary room.")
	case errors.Is(err, domain.ErrNotTempRoom):
		return Text("❌ This is not a temporary room.")
	case errors.Is(err, domain.ErrTargetAbsent):
		return Text("❌ That user is not in your room.")
	case errors.Is(err, domain.ErrRoomNotFound):
		return Text("❌ You don't own a room.")
	case errors.As(err, &notFound):
		return Text("❌ " + sentence(notFound.Error()))
	case errors.As(err, &authErr):
		return Text("❌ " + sentence(authErr.Reason))
	case errors.As(err, &platErr):
		return Text("❌ Discord refused that. Make sure the bot can manage channels and move members.")
	case errors.As(err, &persistErr):
		return Text("⚠️ Done, but the change could not be saved and may be lost on restart.")
	default:
		return Text("❌ Something went wrong.")
	}
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
