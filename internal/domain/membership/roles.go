package membership

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// RoleConfig holds the two mutually exclusive role ids.
type RoleConfig struct {
	AssociateRoleID model.Snowflake
	OutsiderRoleID  model.Snowflake
}

// RoleManager keeps Associate and Outsider mutually exclusive. Operations are
// serialized so that every call sees the result of the previous one.
type RoleManager struct {
	platform outbound.PlatformPort
	config   *RoleConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu sync.Mutex
}

// NewRoleManager creates a new role manager.
func NewRoleManager(platform outbound.PlatformPort, config *RoleConfig, m *metrics.Metrics, logger *zap.Logger) *RoleManager {
	if config == nil {
		config = &RoleConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleManager{
		platform: platform,
		config:   config,
		metrics:  m,
		logger:   logger.Named("roles"),
	}
}

// current returns the member with fresh roles, falling back to the given copy.
func (r *RoleManager) current(ctx context.Context, member *model.Member) *model.Member {
	fresh, err := r.platform.GetMember(ctx, member.GuildID, member.ID)
	if err != nil {
		r.metrics.RecordPlatformError("get_member")
		r.logger.Warn("failed to refresh member roles",
			zap.String("member_id", member.ID.String()),
			zap.Error(err),
		)
		return member
	}
	return fresh
}

// PromoteToAssociate removes Outsider, then grants Associate. Idempotent.
func (r *RoleManager) PromoteToAssociate(ctx context.Context, member *model.Member) error {
	if r.config.AssociateRoleID.IsZero() {
		return apperrors.ConfigurationMissing("DISCORD_ASSOCIATE_ROLE_ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.current(ctx, member)
	if !r.config.OutsiderRoleID.IsZero() && m.HasRole(r.config.OutsiderRoleID) {
		if err := r.remove(ctx, m, r.config.OutsiderRoleID, "outsider"); err != nil {
			return err
		}
	}
	if !m.HasRole(r.config.AssociateRoleID) {
		if err := r.add(ctx, m, r.config.AssociateRoleID, "associate"); err != nil {
			return err
		}
	}
	return r.ensureExclusive(ctx, member)
}

// AssignOutsider grants Outsider to a member that holds neither role.
// A member already holding both keeps only Associate.
func (r *RoleManager) AssignOutsider(ctx context.Context, member *model.Member) error {
	if r.config.OutsiderRoleID.IsZero() {
		return apperrors.ConfigurationMissing("DISCORD_OUTSIDER_ROLE_ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.current(ctx, member)
	if m.HasRole(r.config.OutsiderRoleID) || m.HasRole(r.config.AssociateRoleID) {
		return r.ensureExclusive(ctx, member)
	}
	return r.add(ctx, m, r.config.OutsiderRoleID, "outsider")
}

// EnsureExclusive removes Outsider from a member holding both roles.
func (r *RoleManager) EnsureExclusive(ctx context.Context, member *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureExclusive(ctx, member)
}

func (r *RoleManager) ensureExclusive(ctx context.Context, member *model.Member) error {
	if r.config.AssociateRoleID.IsZero() || r.config.OutsiderRoleID.IsZero() {
		return nil
	}
	m := r.current(ctx, member)
	if m.HasRole(r.config.AssociateRoleID) && m.HasRole(r.config.OutsiderRoleID) {
		r.logger.Info("member held both roles, removing outsider", zap.String("member_id", m.ID.String()))
		return r.remove(ctx, m, r.config.OutsiderRoleID, "outsider")
	}
	return nil
}

// IsAssociate reports whether the member currently holds Associate.
func (r *RoleManager) IsAssociate(ctx context.Context, member *model.Member) bool {
	if r.config.AssociateRoleID.IsZero() {
		return false
	}
	return r.current(ctx, member).HasRole(r.config.AssociateRoleID)
}

func (r *RoleManager) add(ctx context.Context, m *model.Member, roleID model.Snowflake, name string) error {
	if err := r.platform.AddRole(ctx, m.GuildID, m.ID, roleID); err != nil {
		r.metrics.RecordPlatformError("add_role")
		return apperrors.Platform("add "+name+" role", err)
	}
	r.metrics.RecordRoleChange(name, "add")
	r.logger.Info("role added", zap.String("member_id", m.ID.String()), zap.String("role", name))
	return nil
}

func (r *RoleManager) remove(ctx context.Context, m *model.Member, roleID model.Snowflake, name string) error {
	if err := r.platform.RemoveRole(ctx, m.GuildID, m.ID, roleID); err != nil {
		r.metrics.RecordPlatformError("remove_role")
		return apperrors.Platform("remove "+name+" role", err)
	}
	r.metrics.RecordRoleChange(name, "remove")
	r.logger.Info("role removed", zap.String("member_id", m.ID.String()), zap.String("role", name))
	return nil
}
