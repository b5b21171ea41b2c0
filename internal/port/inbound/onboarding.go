package inbound

import (
	"context"

	"github.com/devmob/onboard/internal/model"
)

// OnboardingPort is what the chat gateway adapter drives.
type OnboardingPort interface {
	// OnGuildAvailable snapshots the guild's invites.
	OnGuildAvailable(ctx context.Context, guildID model.Snowflake)

	// OnGuildRemoved drops per-guild state.
	OnGuildRemoved(guildID model.Snowflake)

	// OnInviteCreated records a new invite.
	OnInviteCreated(guildID model.Snowflake, invite *model.Invite)

	// OnMemberJoined attributes the join and assigns the initial role.
	OnMemberJoined(ctx context.Context, member *model.Member)

	// HandleCommand executes a user command and returns the reply.
	HandleCommand(ctx context.Context, cmd *model.CommandInvocation) *model.CommandReply
}

// StatusPort exposes onboarding state to the HTTP surface.
type StatusPort interface {
	// InviteSnapshot returns the cached invite counters of a guild.
	InviteSnapshot(guildID model.Snowflake) ([]*model.Invite, error)

	// ActiveInterviews returns the number of interviews in progress.
	ActiveInterviews() int

	// Configured reports which optional settings are present.
	Configured() map[string]bool
}
