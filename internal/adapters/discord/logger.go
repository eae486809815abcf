package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// gatewayLogger routes discordgo's internal logging into zerolog.
func gatewayLogger(msgL, _ int, format string, a ...interface{}) {
	var ev *zerolog.Event
	switch msgL {
	case discordgo.LogError:
		ev = log.Error()
	case discordgo.LogWarning:
		ev = log.Warn()
	case discordgo.LogInformational:
		ev = log.Info()
	default:
		ev = log.Debug()
	}
	ev.Str("module", "discordgo").Msg(fmt.Sprintf(format, a...))
}
