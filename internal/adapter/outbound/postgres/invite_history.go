package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// inviteHistoryAdapter implements outbound.InviteHistoryPort.
type inviteHistoryAdapter struct {
	db *gorm.DB
}

// NewInviteHistoryAdapter creates a new invite history database adapter.
func NewInviteHistoryAdapter(db *gorm.DB) outbound.InviteHistoryPort {
	return &inviteHistoryAdapter{db: db}
}

func (a *inviteHistoryAdapter) Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	var e InviteHistoryEntity
	err := a.db.WithContext(ctx).
		Where("member_id = ?", memberID.String()).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Persistence("invite_history.get", err)
	}
	return e.toModel(), nil
}

func (a *inviteHistoryAdapter) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	result := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(toHistoryEntity(memberID, record))
	if result.Error != nil {
		return false, apperrors.Persistence("invite_history.save", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Compile-time check
var _ outbound.InviteHistoryPort = (*inviteHistoryAdapter)(nil)
