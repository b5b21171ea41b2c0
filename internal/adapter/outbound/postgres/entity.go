// Package postgres provides gorm-backed story and invite history adapters.
package postgres

import (
	"time"

	"github.com/devmob/onboard/internal/model"
)

// StoryEntity is one member biography row.
type StoryEntity struct {
	MemberID  string    `gorm:"primaryKey;size:20"`
	Story     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name.
func (StoryEntity) TableName() string {
	return "stories"
}

// InviteHistoryEntity is one member join record row.
type InviteHistoryEntity struct {
	MemberID    string    `gorm:"primaryKey;size:20"`
	InviterName string    `gorm:"not null"`
	InviterID   string    `gorm:"size:20;not null"`
	InviteCode  string    `gorm:"not null"`
	JoinDate    time.Time `gorm:"not null"`
}

// TableName returns the table name.
func (InviteHistoryEntity) TableName() string {
	return "invite_history"
}

// Models lists the entities to migrate.
func Models() []any {
	return []any{&StoryEntity{}, &InviteHistoryEntity{}}
}

func toHistoryEntity(memberID model.Snowflake, r *model.InviteHistoryRecord) *InviteHistoryEntity {
	return &InviteHistoryEntity{
		MemberID:    memberID.String(),
		InviterName: r.InviterName,
		InviterID:   r.InviterID.String(),
		InviteCode:  r.InviteCode,
		JoinDate:    r.JoinDate.UTC(),
	}
}

func (e *InviteHistoryEntity) toModel() *model.InviteHistoryRecord {
	return &model.InviteHistoryRecord{
		InviterName: e.InviterName,
		InviterID:   model.SnowflakeOrZero(e.InviterID),
		InviteCode:  e.InviteCode,
		JoinDate:    e.JoinDate.UTC(),
	}
}
