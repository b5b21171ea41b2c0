package onboarding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/domain/biography"
	"github.com/devmob/onboard/internal/domain/interview"
	"github.com/devmob/onboard/internal/domain/invite"
	"github.com/devmob/onboard/internal/domain/membership"
	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/inbound"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Config holds onboarding configuration.
type Config struct {
	EntryChannelID model.Snowflake
	StoryChannelID model.Snowflake
	LogChannelID   model.Snowflake
	OwnerID        model.Snowflake

	// Join command cooldown, applied when a rate limiter is wired.
	JoinLimit  int
	JoinWindow time.Duration

	// Presence flags reported by the health endpoint.
	Configured map[string]bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		JoinLimit:  3,
		JoinWindow: 10 * time.Minute,
	}
}

// Deps groups the collaborators of the service.
type Deps struct {
	Platform     outbound.PlatformPort
	Stories      outbound.StoryStorePort
	History      outbound.InviteHistoryPort
	Limiter      outbound.RateLimiterPort // optional
	Attributor   *invite.Attributor
	Orchestrator *interview.Orchestrator
	Generator    *biography.Generator
	Classifier   *membership.Classifier
	Roles        *membership.RoleManager
}

// Service glues platform events and commands to the onboarding pipeline.
type Service struct {
	platform     outbound.PlatformPort
	stories      outbound.StoryStorePort
	history      outbound.InviteHistoryPort
	limiter      outbound.RateLimiterPort
	attributor   *invite.Attributor
	orchestrator *interview.Orchestrator
	generator    *biography.Generator
	classifier   *membership.Classifier
	roles        *membership.RoleManager

	config  *Config
	metrics *metrics.Metrics
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Compile-time checks
var (
	_ inbound.OnboardingPort = (*Service)(nil)
	_ inbound.StatusPort     = (*Service)(nil)
)

// NewService creates a new onboarding service.
func NewService(deps Deps, config *Config, m *metrics.Metrics, logger *zap.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		platform:     deps.Platform,
		stories:      deps.Stories,
		history:      deps.History,
		limiter:      deps.Limiter,
		attributor:   deps.Attributor,
		orchestrator: deps.Orchestrator,
		generator:    deps.Generator,
		classifier:   deps.Classifier,
		roles:        deps.Roles,
		config:       config,
		metrics:      m,
		logger:       logger.Named("onboarding"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ===== Lifecycle =====

// Stop cancels running interviews and waits for them to finish or ctx to expire.
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("onboarding stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("onboarding stop timed out", zap.Int("active", s.orchestrator.ActiveCount()))
		return ctx.Err()
	}
}

// Wait blocks until every background onboarding has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// spawn runs fn in a tracked goroutine bound to the service context.
func (s *Service) spawn(fn func(ctx context.Context)) bool {
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("onboarding panic", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
		fn(s.ctx)
	}()
	return true
}

// ===== Platform events =====

// OnGuildAvailable snapshots the guild's invites.
func (s *Service) OnGuildAvailable(ctx context.Context, guildID model.Snowflake) {
	if err := s.attributor.Initialize(ctx, guildID); err != nil {
		s.logger.Warn("failed to snapshot invites", zap.String("guild_id", guildID.String()), zap.Error(err))
	}
}

// OnGuildRemoved drops per-guild state.
func (s *Service) OnGuildRemoved(guildID model.Snowflake) {
	s.attributor.Forget(guildID)
}

// OnInviteCreated records a new invite.
func (s *Service) OnInviteCreated(guildID model.Snowflake, inv *model.Invite) {
	s.attributor.TrackInvite(guildID, inv)
}

// OnMemberJoined attributes the join, records it, and either welcomes a
// returning member back or marks the newcomer as an Outsider.
func (s *Service) OnMemberJoined(ctx context.Context, member *model.Member) {
	if member == nil || member.Bot {
		return
	}
	log := s.logger.With(
		zap.String("member_id", member.ID.String()),
		zap.String("guild_id", member.GuildID.String()),
	)
	log.Info("member joined", zap.String("username", member.Username))

	attr, err := s.attributor.AttributeJoin(ctx, member)
	if err != nil {
		log.Warn("invite attribution failed", zap.Error(err))
	}
	if s.recordHistory(ctx, member, attr, log) {
		s.attributor.Release(member.ID)
	}

	if returning, reason := s.classifier.IsReturning(ctx, member); returning {
		log.Info("returning member joined", zap.String("reason", string(reason)))
		s.welcomeBack(ctx, member, 0)
		return
	}

	if err := s.roles.AssignOutsider(ctx, member); err != nil {
		log.Warn("failed to assign outsider role", zap.Error(err))
		s.audit(ctx, "Role error", "failed to assign Outsider to "+member.Mention(), err)
	}
}

// recordHistory writes the join record and reports whether this join's
// attribution is now the stored one.
func (s *Service) recordHistory(ctx context.Context, member *model.Member, attr *model.Attribution, log *zap.Logger) bool {
	if s.history == nil {
		return false
	}
	rec := &model.InviteHistoryRecord{
		InviterName: "Unknown",
		InviteCode:  "Unknown",
		JoinDate:    time.Now().UTC(),
	}
	if attr.IsKnown() {
		rec.InviteCode = attr.Code
		rec.InviterID = attr.InviterID
		if attr.InviterName != "" {
			rec.InviterName = attr.InviterName
		}
	}
	saved, err := s.history.SaveIfAbsent(ctx, member.ID, rec)
	if err != nil {
		s.metrics.RecordPersistenceError("invite_history")
		log.Warn("failed to save invite history", zap.Error(err))
		return false
	}
	return saved
}

// ===== Status =====

// InviteSnapshot returns the cached invite counters of a guild.
func (s *Service) InviteSnapshot(guildID model.Snowflake) ([]*model.Invite, error) {
	return s.attributor.Snapshot(guildID)
}

// ActiveInterviews returns the number of interviews in progress.
func (s *Service) ActiveInterviews() int {
	return s.orchestrator.ActiveCount()
}

// Configured reports which optional settings are present.
func (s *Service) Configured() map[string]bool {
	out := make(map[string]bool, len(s.config.Configured))
	for k, v := range s.config.Configured {
		out[k] = v
	}
	return out
}
