package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/command"
	"github.com/dkeye/tempvoice/internal/domain"
)

const (
	Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers

	setupCommand = "setuptap"
)

var setupDefinition = &discordgo.ApplicationCommand{
	Name:        setupCommand,
	Description: "Set the Join-To-Create voice channel",
	Options: []*discordgo.ApplicationCommandOption{{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "Voice channel people join to get their own room",
		Required:     true,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
	}},
}

// NewSession builds a gateway session with the intents the bot needs.
// Events are dispatched synchronously so they reach the loop in the order
// the gateway delivered them.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	s.SyncEvents = true
	s.StateEnabled = true
	s.LogLevel = discordgo.LogWarning
	discordgo.Logger = gatewayLogger
	return s, nil
}

// Bot turns gateway events into loop jobs.
type Bot struct {
	Session   *discordgo.Session
	Platform  *Platform
	Loop      *app.Loop
	Lifecycle *app.Lifecycle
	Admin     *app.Admin
	Commands  *command.Router

	removes []func()
}

// Start registers the handlers and opens the gateway.
func (b *Bot) Start() error {
	b.removes = append(b.removes,
		b.Session.AddHandler(b.onReady),
		b.Session.AddHandler(b.onVoiceState),
		b.Session.AddHandler(b.onMessage),
		b.Session.AddHandler(b.onInteraction),
		b.Session.AddHandler(b.onChannelDelete),
		b.Session.AddHandler(b.onMemberUpdate),
	)
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	for _, remove := range b.removes {
		remove()
	}
	b.removes = nil
	return b.Session.Close()
}

func (b *Bot) submit(name string, job app.Job) {
	if err := b.Loop.Submit(name, job); err != nil {
		log.Warn().Err(err).Str("module", "discord").Str("job", name).Msg("event dropped")
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("module", "discord").Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("gateway ready")
	if _, err := s.ApplicationCommandCreate(r.User.ID, "", setupDefinition); err != nil {
		log.Error().Err(err).Str("module", "discord").Msg("could not register /" + setupCommand)
	}
}

func (b *Bot) onVoiceState(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	ev := voiceStateChange(v)
	b.submit("voice_state", func(ctx context.Context) {
		b.Lifecycle.HandleVoiceState(ctx, ev)
	})
}

func (b *Bot) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	gid, ch := domain.GuildID(c.GuildID), domain.ChannelID(c.ID)
	b.submit("channel_delete", func(ctx context.Context) {
		b.Lifecycle.HandleChannelDelete(ctx, gid, ch)
	})
}

func (b *Bot) onMemberUpdate(_ *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.Member == nil || m.User == nil {
		return
	}
	b.Platform.Forget(domain.GuildID(m.GuildID), domain.UserID(m.User.ID))
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	name, args, ok := b.Commands.Parse(m.Content)
	if !ok {
		return
	}
	inv := command.Invocation{
		Caller:   domain.Caller{GuildID: domain.GuildID(m.GuildID), UserID: domain.UserID(m.Author.ID)},
		Name:     name,
		Args:     args,
		Mentions: mentionIDs(args, m.Mentions),
	}
	ref := m.Reference()
	channelID := m.ChannelID
	b.submit("command."+name, func(ctx context.Context) {
		reply, handled := b.Commands.Handle(ctx, inv)
		if !handled {
			return
		}
		if _, err := s.ChannelMessageSendComplex(channelID, render(reply, ref), discordgo.WithContext(ctx)); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("module", "discord").Str("channel", channelID).Msg("reply failed")
		}
	})
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != setupCommand || len(data.Options) == 0 {
		return
	}
	caller := domain.Caller{GuildID: domain.GuildID(i.GuildID), UserID: domain.UserID(i.Member.User.ID)}
	ch := domain.ChannelID(fmt.Sprint(data.Options[0].Value))
	interaction := i.Interaction
	b.submit("command."+setupCommand, func(ctx context.Context) {
		var msg string
		if err := b.Admin.ConfigureEntry(ctx, caller, ch); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("module", "discord").Str("guild", string(caller.GuildID)).Msg("setup rejected")
			msg = command.ErrorReply(err).Content
		} else {
			msg = fmt.Sprintf("✅ Join-To-Create set to <#%s>", ch)
		}
		err := s.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: msg, Flags: discordgo.MessageFlagsEphemeral},
		}, discordgo.WithContext(ctx))
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("module", "discord").Msg("interaction response failed")
		}
	})
}
