package filestore

import (
	"context"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// inviteHistory implements outbound.InviteHistoryPort on a JSON file.
type inviteHistory struct {
	file *jsonFile[model.InviteHistoryRecord]
}

// NewInviteHistory creates an invite history backed by path.
func NewInviteHistory(path string) outbound.InviteHistoryPort {
	return &inviteHistory{file: newJSONFile[model.InviteHistoryRecord](path)}
}

func (h *inviteHistory) Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok, err := h.file.get(memberID)
	if err != nil {
		return nil, apperrors.Persistence("invite_history.get", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (h *inviteHistory) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var written bool
	err := h.file.update(func(doc map[model.Snowflake]model.InviteHistoryRecord) bool {
		if _, ok := doc[memberID]; ok {
			return false
		}
		doc[memberID] = *record
		written = true
		return true
	})
	if err != nil {
		return false, apperrors.Persistence("invite_history.save", err)
	}
	return written, nil
}

// Compile-time check
var _ outbound.InviteHistoryPort = (*inviteHistory)(nil)
