package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// storyAdapter implements outbound.StoryStorePort.
type storyAdapter struct {
	db *gorm.DB
}

// NewStoryAdapter creates a new story database adapter.
func NewStoryAdapter(db *gorm.DB) outbound.StoryStorePort {
	return &storyAdapter{db: db}
}

func (a *storyAdapter) Get(ctx context.Context, memberID model.Snowflake) (string, bool, error) {
	var e StoryEntity
	err := a.db.WithContext(ctx).
		Where("member_id = ?", memberID.String()).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, apperrors.Persistence("stories.get", err)
	}
	return e.Story, true, nil
}

func (a *storyAdapter) Save(ctx context.Context, memberID model.Snowflake, story string) error {
	e := &StoryEntity{MemberID: memberID.String(), Story: story, UpdatedAt: time.Now().UTC()}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"story", "updated_at"}),
		}).
		Create(e).Error
	if err != nil {
		return apperrors.Persistence("stories.save", err)
	}
	return nil
}

func (a *storyAdapter) Delete(ctx context.Context, memberID model.Snowflake) (bool, error) {
	result := a.db.WithContext(ctx).
		Delete(&StoryEntity{}, "member_id = ?", memberID.String())
	if result.Error != nil {
		return false, apperrors.Persistence("stories.delete", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Compile-time check
var _ outbound.StoryStorePort = (*storyAdapter)(nil)
