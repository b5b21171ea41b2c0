package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

const replyOwnerOnly = "Only the owner can use this command."

// HandleCommand dispatches a user command and returns the reply to show.
func (s *Service) HandleCommand(ctx context.Context, cmd *model.CommandInvocation) *model.CommandReply {
	if cmd == nil || cmd.Invoker == nil {
		return ephemeral("Unknown command.")
	}
	log := s.logger.With(
		zap.String("command", string(cmd.Name)),
		zap.String("invoker_id", cmd.Invoker.ID.String()),
	)
	log.Debug("command received")

	switch cmd.Name {
	case model.CommandJoin:
		return s.Join(ctx, cmd.Invoker, cmd.ChannelID)
	case model.CommandStory:
		return s.showStory(ctx, targetOf(cmd))
	case model.CommandInvite:
		return s.showInvite(ctx, targetOf(cmd))
	case model.CommandPromote:
		if !s.isOwner(cmd.Invoker) {
			return ephemeral(replyOwnerOnly)
		}
		return s.promote(ctx, cmd.Target)
	case model.CommandDeleteStory:
		if !s.isOwner(cmd.Invoker) {
			return ephemeral(replyOwnerOnly)
		}
		return s.deleteStory(ctx, cmd.Target)
	default:
		log.Warn("unknown command")
		return ephemeral("Unknown command.")
	}
}

func targetOf(cmd *model.CommandInvocation) *model.Member {
	if cmd.Target != nil {
		return cmd.Target
	}
	return cmd.Invoker
}

func (s *Service) isOwner(m *model.Member) bool {
	return !s.config.OwnerID.IsZero() && m != nil && m.ID == s.config.OwnerID
}

func (s *Service) showStory(ctx context.Context, member *model.Member) *model.CommandReply {
	story, ok, err := s.stories.Get(ctx, member.ID)
	if err != nil {
		s.metrics.RecordPersistenceError("stories")
		s.logger.Error("failed to read story", zap.String("member_id", member.ID.String()), zap.Error(err))
		return ephemeral("Could not read the story right now.")
	}
	if !ok {
		return ephemeral(fmt.Sprintf("%s has no story yet.", member.DisplayName()))
	}
	return &model.CommandReply{
		Embed: &model.Embed{
			Title:        StoryTitle(story),
			Description:  truncate(story, 4000),
			Color:        model.ColorBlue,
			Footer:       "UserID: " + member.ID.String(),
			ThumbnailURL: member.AvatarURL,
		},
	}
}

func (s *Service) showInvite(ctx context.Context, member *model.Member) *model.CommandReply {
	if s.history == nil {
		return ephemeral("Invite history is not available.")
	}
	rec, err := s.history.Get(ctx, member.ID)
	if err != nil {
		s.metrics.RecordPersistenceError("invite_history")
		s.logger.Error("failed to read invite history", zap.String("member_id", member.ID.String()), zap.Error(err))
		return ephemeral("Could not read the invite history right now.")
	}
	if rec == nil {
		return ephemeral(fmt.Sprintf("No invite history for %s.", member.DisplayName()))
	}

	inviter := rec.InviterName
	if !rec.InviterID.IsZero() {
		inviter = fmt.Sprintf("%s (<@%s>)", rec.InviterName, rec.InviterID)
	}
	color := model.ColorOrange
	if !rec.InviterID.IsZero() {
		color = model.ColorGreen
	}
	return &model.CommandReply{
		Embed: &model.Embed{
			Title: "📨 How " + member.DisplayName() + " joined",
			Description: fmt.Sprintf("**Inviter:** %s\n**Invite code:** %s\n**Joined:** %s",
				inviter, rec.InviteCode, rec.JoinDate.UTC().Format("2006-01-02 15:04 MST")),
			Color:  color,
			Footer: "UserID: " + member.ID.String(),
		},
	}
}

func (s *Service) promote(ctx context.Context, member *model.Member) *model.CommandReply {
	if member == nil {
		return ephemeral("Specify the member to promote.")
	}
	if err := s.roles.PromoteToAssociate(ctx, member); err != nil {
		s.logger.Error("manual promotion failed", zap.String("member_id", member.ID.String()), zap.Error(err))
		s.audit(ctx, "Role error", "manual promotion of "+member.Mention()+" failed", err)
		return ephemeral("Promotion failed: " + apperrors.Kind(err))
	}
	return ephemeral(member.DisplayName() + " is now an Associate.")
}

func (s *Service) deleteStory(ctx context.Context, member *model.Member) *model.CommandReply {
	if member == nil {
		return ephemeral("Specify the member whose story to delete.")
	}
	existed, err := s.stories.Delete(ctx, member.ID)
	if err != nil {
		s.metrics.RecordPersistenceError("stories")
		s.logger.Error("failed to delete story", zap.String("member_id", member.ID.String()), zap.Error(err))
		return ephemeral("Could not delete the story right now.")
	}
	if !existed {
		return ephemeral(fmt.Sprintf("%s has no story.", member.DisplayName()))
	}
	return ephemeral(fmt.Sprintf("Story of %s deleted.", member.DisplayName()))
}
