package onboarding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/domain/biography"
	"github.com/devmob/onboard/internal/domain/interview"
	"github.com/devmob/onboard/internal/model"
)

// Join replies shown to the invoking member.
const (
	replyOnboardingDisabled = "Onboarding is not configured on this server."
	replyAlreadyMember      = "You are already a member of the family."
	replyInProgress         = "Your interview is already in progress. Check your private thread."
	replyCooldown           = "Slow down. Try `/join` again in a few minutes."
	replyStarted            = "Your interview is starting in a private thread. Answer each question there."
	replyWelcomeBack        = "Welcome back! You are already part of the family. Role: Associate."
	replyShuttingDown       = "The bot is restarting. Try again in a minute."
)

// Join starts onboarding for the invoking member. The interview runs in the
// background; the reply only reports how the request was handled.
func (s *Service) Join(ctx context.Context, member *model.Member, channelID model.Snowflake) *model.CommandReply {
	log := s.logger.With(zap.String("member_id", member.ID.String()))

	if s.config.EntryChannelID.IsZero() {
		return ephemeral(replyOnboardingDisabled)
	}
	if channelID != s.config.EntryChannelID {
		return ephemeral(fmt.Sprintf("Use `/join` in <#%s>.", s.config.EntryChannelID))
	}

	if s.orchestrator.IsActive(member.ID) {
		return ephemeral(replyInProgress)
	}

	if s.limiter != nil && s.config.JoinLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, "join:"+member.ID.String(), s.config.JoinLimit, s.config.JoinWindow)
		if err != nil {
			log.Warn("join rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return ephemeral(replyCooldown)
		}
	}

	if s.roles.IsAssociate(ctx, member) {
		return ephemeral(replyAlreadyMember)
	}

	if returning, reason := s.classifier.IsReturning(ctx, member); returning {
		log.Info("returning member used join", zap.String("reason", string(reason)))
		s.welcomeBack(ctx, member, channelID)
		return ephemeral(replyWelcomeBack)
	}

	started := s.spawn(func(ctx context.Context) {
		s.onboard(ctx, member, channelID)
	})
	if !started {
		return ephemeral(replyShuttingDown)
	}
	return ephemeral(replyStarted)
}

// onboard runs interview, biography, persistence, role update and announcement.
func (s *Service) onboard(ctx context.Context, member *model.Member, parentID model.Snowflake) {
	log := s.logger.With(
		zap.String("member_id", member.ID.String()),
		zap.String("guild_id", member.GuildID.String()),
	)

	inviter := s.attributor.ResolveInviter(ctx, member)

	session, err := s.orchestrator.Run(ctx, interview.Request{
		Member:          member,
		ParentChannelID: parentID,
	})
	switch {
	case errors.Is(err, interview.ErrSessionActive):
		log.Info("interview already running")
		return
	case errors.Is(err, interview.ErrInterviewTimeout):
		log.Info("interview timed out, answers discarded")
		return
	case errors.Is(err, context.Canceled):
		log.Info("interview cancelled")
		return
	case err != nil:
		log.Error("interview failed", zap.Error(err))
		s.audit(ctx, "Interview error", "interview failed for "+member.Mention(), err)
		return
	}

	s.attributor.Release(member.ID)

	story := s.generator.Generate(ctx, biography.RequestFromInviter(session.Answers, inviter))
	if biography.IsPlaceholder(story) {
		log.Warn("biography not generated", zap.String("placeholder", story))
		s.audit(ctx, "Story error", "biography generation failed for "+member.Mention()+": "+story, nil)
		s.notify(ctx, session.ChannelID, story)
	} else if err := s.stories.Save(ctx, member.ID, story); err != nil {
		s.metrics.RecordPersistenceError("stories")
		log.Error("failed to save biography", zap.Error(err))
		s.audit(ctx, "Storage error", "failed to save story for "+member.Mention(), err)
	}

	if err := s.roles.PromoteToAssociate(ctx, member); err != nil {
		log.Error("failed to promote member", zap.Error(err))
		s.audit(ctx, "Role error", "failed to promote "+member.Mention(), err)
	}

	if !biography.IsPlaceholder(story) {
		s.Announce(ctx, member, story, inviter.Known())
	}
	log.Info("onboarding completed", zap.Bool("has_inviter", inviter.Known()))
}

// welcomeBack promotes a returning member and greets them. A zero channelID
// skips the greeting in the command channel.
func (s *Service) welcomeBack(ctx context.Context, member *model.Member, channelID model.Snowflake) {
	if err := s.roles.PromoteToAssociate(ctx, member); err != nil {
		s.logger.Warn("failed to promote returning member",
			zap.String("member_id", member.ID.String()),
			zap.Error(err),
		)
		s.audit(ctx, "Role error", "failed to promote returning member "+member.Mention(), err)
	}
	s.AnnounceReturning(ctx, member, channelID)
}

func ephemeral(content string) *model.CommandReply {
	return &model.CommandReply{Content: content, Ephemeral: true}
}
