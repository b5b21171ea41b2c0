package outbound

import (
	"context"

	"github.com/devmob/onboard/internal/model"
)

// ===== Chat Platform Ports =====

// PlatformPort defines the chat platform calls the onboarding core depends on.
type PlatformPort interface {
	// FetchInvites lists the guild's invites with their current use counts.
	FetchInvites(ctx context.Context, guildID model.Snowflake) ([]*model.Invite, error)

	// SendMessage posts a message and returns it as stored by the platform.
	SendMessage(ctx context.Context, channelID model.Snowflake, content string, embed *model.Embed) (*model.Message, error)

	// FetchRecentMessages returns up to limit messages, newest first.
	FetchRecentMessages(ctx context.Context, channelID model.Snowflake, limit int) ([]*model.Message, error)

	// GetMember fetches the member with its current roles.
	GetMember(ctx context.Context, guildID, userID model.Snowflake) (*model.Member, error)

	// GuildRoles lists the guild's roles.
	GuildRoles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error)

	// AddRole grants a role to a member.
	AddRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error

	// RemoveRole revokes a role from a member.
	RemoveRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error

	// CreatePrivateThread opens a private thread under parentID and adds the member to it.
	CreatePrivateThread(ctx context.Context, parentID model.Snowflake, member *model.Member) (model.Snowflake, error)
}

// DirectoryPort exposes read-only platform state for health and debug endpoints.
type DirectoryPort interface {
	// Connected reports whether the gateway session is up.
	Connected() bool

	// BotName returns the bot account's username.
	BotName() string

	// Guilds lists the guilds the bot is in.
	Guilds(ctx context.Context) ([]*model.Guild, error)

	// Channels lists a guild's channels.
	Channels(ctx context.Context, guildID model.Snowflake) ([]*model.Channel, error)

	// Roles lists a guild's roles.
	Roles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error)
}
