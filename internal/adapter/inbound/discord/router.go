// Package discord routes gateway events and commands into the onboarding service.
package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	discordout "github.com/devmob/onboard/internal/adapter/outbound/discord"
	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/inbound"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Responder answers interactions. *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// CommandRegistrar registers application commands. *discordgo.Session implements it.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Config holds router configuration.
type Config struct {
	RegisterCommands bool
	// EventTimeout bounds synchronous work done for one event.
	EventTimeout time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		RegisterCommands: true,
		EventTimeout:     time.Minute,
	}
}

// Router translates gateway events into onboarding calls.
type Router struct {
	onboarding inbound.OnboardingPort
	platform   outbound.PlatformPort
	responder  Responder
	registrar  CommandRegistrar
	config     *Config
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewRouter creates a new event router.
func NewRouter(
	onboarding inbound.OnboardingPort,
	platform outbound.PlatformPort,
	responder Responder,
	registrar CommandRegistrar,
	config *Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Router {
	if config == nil {
		config = DefaultConfig()
	}
	if config.EventTimeout <= 0 {
		config.EventTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		onboarding: onboarding,
		platform:   platform,
		responder:  responder,
		registrar:  registrar,
		config:     config,
		metrics:    m,
		logger:     logger.Named("router"),
	}
}

// Register attaches every handler to the session.
func (r *Router) Register(s *discordgo.Session) {
	s.AddHandler(r.onReady)
	s.AddHandler(r.onGuildCreate)
	s.AddHandler(r.onGuildDelete)
	s.AddHandler(r.onInviteCreate)
	s.AddHandler(r.onMemberAdd)
	s.AddHandler(r.onMessageCreate)
	s.AddHandler(r.onInteractionCreate)
}

// guard runs fn with a bounded context and turns panics into log entries.
func (r *Router) guard(event string, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordPlatformError("handler_panic")
			r.logger.Error("event handler panic",
				zap.String("event", event),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.config.EventTimeout)
	defer cancel()
	fn(ctx)
}

func (r *Router) onReady(s *discordgo.Session, e *discordgo.Ready) {
	r.guard("ready", func(ctx context.Context) {
		if e.User == nil {
			return
		}
		r.logger.Info("gateway ready",
			zap.String("bot", e.User.Username),
			zap.Int("guilds", len(e.Guilds)),
		)
		if r.config.RegisterCommands && r.registrar != nil {
			r.registerCommands(ctx, e.User.ID)
		}
	})
}

func (r *Router) registerCommands(ctx context.Context, appID string) {
	cmds, err := r.registrar.ApplicationCommandBulkOverwrite(appID, "", Commands, discordgo.WithContext(ctx))
	if err != nil {
		r.metrics.RecordPlatformError("register_commands")
		r.logger.Error("failed to register commands", zap.Error(err))
		return
	}
	r.logger.Info("commands registered", zap.Int("count", len(cmds)))
}

func (r *Router) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	r.guard("guild_create", func(ctx context.Context) {
		if e.Guild == nil || e.Unavailable {
			return
		}
		r.onboarding.OnGuildAvailable(ctx, discordout.ToSnowflake(e.ID))
	})
}

func (r *Router) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	r.guard("guild_delete", func(ctx context.Context) {
		if e.Guild == nil {
			return
		}
		r.onboarding.OnGuildRemoved(discordout.ToSnowflake(e.ID))
	})
}

func (r *Router) onInviteCreate(_ *discordgo.Session, e *discordgo.InviteCreate) {
	r.guard("invite_create", func(ctx context.Context) {
		if e.Invite == nil {
			return
		}
		r.onboarding.OnInviteCreated(discordout.ToSnowflake(e.GuildID), discordout.ToInvite(e.Invite))
	})
}

func (r *Router) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	r.guard("member_add", func(ctx context.Context) {
		member := discordout.ToMember(e.Member, e.GuildID)
		if member == nil {
			return
		}
		r.onboarding.OnMemberJoined(ctx, member)
	})
}

func (r *Router) onMessageCreate(_ *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Message == nil || e.Author == nil || e.Author.Bot || e.GuildID == "" {
		return
	}
	name, ok := parseTextCommand(e.Content)
	if !ok {
		return
	}
	r.guard("message_create", func(ctx context.Context) {
		invoker := discordout.ToUserMember(e.Author, e.GuildID)
		if e.Member != nil {
			for _, id := range e.Member.Roles {
				invoker.RoleIDs = append(invoker.RoleIDs, discordout.ToSnowflake(id))
			}
			if e.Member.Nick != "" {
				invoker.Nickname = e.Member.Nick
			}
		}

		reply := r.onboarding.HandleCommand(ctx, &model.CommandInvocation{
			Name:      name,
			GuildID:   discordout.ToSnowflake(e.GuildID),
			ChannelID: discordout.ToSnowflake(e.ChannelID),
			Invoker:   invoker,
		})
		if reply == nil {
			return
		}
		content := reply.Content
		if content != "" {
			content = invoker.Mention() + " " + content
		}
		if _, err := r.platform.SendMessage(ctx, discordout.ToSnowflake(e.ChannelID), content, reply.Embed); err != nil {
			r.logger.Warn("failed to reply to text command", zap.Error(err))
		}
	})
}

func (r *Router) onInteractionCreate(_ *discordgo.Session, e *discordgo.InteractionCreate) {
	r.guard("interaction_create", func(ctx context.Context) {
		cmd := invocationFromInteraction(e)
		if cmd == nil || cmd.Invoker == nil {
			return
		}
		log := r.logger.With(zap.String("command", string(cmd.Name)), zap.String("invoker_id", cmd.Invoker.ID.String()))

		var flags discordgo.MessageFlags
		if ephemeralCommands[cmd.Name] {
			flags = discordgo.MessageFlagsEphemeral
		}
		err := r.responder.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: flags},
		}, discordgo.WithContext(ctx))
		if err != nil {
			r.metrics.RecordPlatformError("interaction_respond")
			log.Error("failed to acknowledge command", zap.Error(err))
			return
		}

		reply := r.onboarding.HandleCommand(ctx, cmd)
		if reply == nil {
			reply = &model.CommandReply{Content: "Done."}
		}
		if _, err := r.responder.InteractionResponseEdit(e.Interaction, responseEdit(reply), discordgo.WithContext(ctx)); err != nil {
			r.metrics.RecordPlatformError("interaction_edit")
			log.Error("failed to send command reply", zap.Error(err))
		}
	})
}
