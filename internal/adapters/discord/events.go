package discord

import (
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/dkeye/tempvoice/internal/command"
	"github.com/dkeye/tempvoice/internal/domain"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// voiceStateChange uses the state cache's previous voice state as Before.
func voiceStateChange(v *discordgo.VoiceStateUpdate) domain.VoiceStateChange {
	ev := domain.VoiceStateChange{
		GuildID: domain.GuildID(v.GuildID),
		UserID:  domain.UserID(v.UserID),
		After:   domain.ChannelID(v.ChannelID),
	}
	if v.BeforeUpdate != nil {
		ev.Before = domain.ChannelID(v.BeforeUpdate.ChannelID)
	}
	if v.Member != nil {
		ev.DisplayName = displayName(v.Member)
	}
	return ev
}

// mentionIDs lists user mentions in the order they appear in args. The
// gateway's mention list carries no order, so it is only a fallback.
func mentionIDs(args string, mentioned []*discordgo.User) []domain.UserID {
	var out []domain.UserID
	for _, m := range mentionPattern.FindAllStringSubmatch(args, -1) {
		out = append(out, domain.UserID(m[1]))
	}
	if len(out) > 0 {
		return out
	}
	for _, u := range mentioned {
		out = append(out, domain.UserID(u.ID))
	}
	return out
}

func render(reply command.Reply, ref *discordgo.MessageReference) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content:   reply.Content,
		Reference: ref,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if reply.Embed != nil {
		embed := &discordgo.MessageEmbed{Title: reply.Embed.Title, Color: reply.Embed.Color}
		for _, f := range reply.Embed.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		msg.Embeds = []*discordgo.MessageEmbed{embed}
	}
	return msg
}
