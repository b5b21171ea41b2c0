package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// Announce posts the biography to the story channel, green when the member
// had an attributable inviter and orange otherwise.
func (s *Service) Announce(ctx context.Context, member *model.Member, story string, hasInviter bool) {
	if s.config.StoryChannelID.IsZero() {
		return
	}

	color, status := model.ColorOrange, "No invite"
	if hasInviter {
		color, status = model.ColorGreen, "Invited"
	}
	embed := &model.Embed{
		Title:        fmt.Sprintf("🎭 %s - a new story!", member.DisplayName()),
		Description:  story,
		Color:        color,
		Footer:       fmt.Sprintf("UserID: %s | %s", member.ID, status),
		ThumbnailURL: member.AvatarURL,
		Timestamp:    time.Now().UTC(),
	}
	if _, err := s.platform.SendMessage(ctx, s.config.StoryChannelID, member.Mention(), embed); err != nil {
		s.metrics.RecordPlatformError("send_message")
		s.logger.Error("failed to announce biography", zap.String("member_id", member.ID.String()), zap.Error(err))
		return
	}
	s.metrics.RecordAnnouncement("biography")
}

// AnnounceReturning greets a returning member in channelID, when set, and in
// the story channel.
func (s *Service) AnnounceReturning(ctx context.Context, member *model.Member, channelID model.Snowflake) {
	if !channelID.IsZero() {
		embed := &model.Embed{
			Title:       "🎭 Welcome back!",
			Description: "You are an old member of the family. Welcome back.\nRole: Associate.",
			Color:       model.ColorGreen,
			Timestamp:   time.Now().UTC(),
		}
		if _, err := s.platform.SendMessage(ctx, channelID, member.Mention(), embed); err != nil {
			s.metrics.RecordPlatformError("send_message")
			s.logger.Warn("failed to send welcome back", zap.Error(err))
		}
	}

	if s.config.StoryChannelID.IsZero() {
		return
	}
	embed := &model.Embed{
		Title:        "🎭 An old member is back!",
		Description:  fmt.Sprintf("**%s** is an old member and has returned to the family! 🎉", member.DisplayName()),
		Color:        model.ColorGreen,
		Footer:       fmt.Sprintf("🟢 Returning member: %s | UserID: %s", member.DisplayName(), member.ID),
		ThumbnailURL: member.AvatarURL,
		Timestamp:    time.Now().UTC(),
	}
	if _, err := s.platform.SendMessage(ctx, s.config.StoryChannelID, "", embed); err != nil {
		s.metrics.RecordPlatformError("send_message")
		s.logger.Warn("failed to announce returning member", zap.Error(err))
		return
	}
	s.metrics.RecordAnnouncement("returning")
}

// notify posts a plain message, ignoring failures.
func (s *Service) notify(ctx context.Context, channelID model.Snowflake, content string) {
	if channelID.IsZero() {
		return
	}
	if _, err := s.platform.SendMessage(ctx, channelID, content, nil); err != nil {
		s.metrics.RecordPlatformError("send_message")
		s.logger.Warn("failed to send notice", zap.Error(err))
	}
}

// audit mirrors an error report to the log channel, best effort.
func (s *Service) audit(ctx context.Context, title, detail string, err error) {
	if s.config.LogChannelID.IsZero() {
		return
	}
	desc := detail
	if err != nil {
		desc = fmt.Sprintf("%s\n\n`%s` %v", detail, apperrors.Kind(err), err)
	}
	embed := &model.Embed{
		Title:       "❌ " + title,
		Description: truncate(desc, 4000),
		Color:       model.ColorRed,
		Timestamp:   time.Now().UTC(),
	}
	if _, sendErr := s.platform.SendMessage(ctx, s.config.LogChannelID, "", embed); sendErr != nil {
		s.metrics.RecordPlatformError("send_message")
		s.logger.Warn("failed to write audit log", zap.Error(sendErr))
	}
}

// StoryTitle derives an embed title from the first line of a biography.
func StoryTitle(story string) string {
	first, _, _ := strings.Cut(story, "\n")
	first = strings.NewReplacer("**", "", "#", "", "*", "").Replace(first)
	first = strings.TrimSpace(first)
	if first == "" || len([]rune(first)) > 100 {
		return "Member story"
	}
	return first
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
