package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devmob/onboard/internal/model"
)

func TestInviteHistoryEntity_RoundTrip(t *testing.T) {
	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	rec := &model.InviteHistoryRecord{
		InviterName: "boss",
		InviterID:   42,
		InviteCode:  "abc",
		JoinDate:    joined,
	}

	e := toHistoryEntity(100, rec)
	assert.Equal(t, "100", e.MemberID)
	assert.Equal(t, "42", e.InviterID)
	assert.Equal(t, time.UTC, e.JoinDate.Location())

	back := e.toModel()
	assert.Equal(t, rec.InviterName, back.InviterName)
	assert.Equal(t, rec.InviterID, back.InviterID)
	assert.Equal(t, rec.InviteCode, back.InviteCode)
	assert.True(t, joined.Equal(back.JoinDate))
}

func TestInviteHistoryEntity_UnknownInviter(t *testing.T) {
	e := toHistoryEntity(100, &model.InviteHistoryRecord{InviterName: "Unknown", InviteCode: "Unknown"})
	assert.Equal(t, "0", e.InviterID)
	assert.True(t, e.toModel().InviterID.IsZero())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "stories", StoryEntity{}.TableName())
	assert.Equal(t, "invite_history", InviteHistoryEntity{}.TableName())
	assert.Len(t, Models(), 2)
}
