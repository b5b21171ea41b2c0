package outbound

import (
	"context"

	"github.com/devmob/onboard/internal/model"
)

// ===== Persistence Ports =====

// StoryStorePort persists member biographies.
type StoryStorePort interface {
	// Get returns the biography and whether one exists.
	Get(ctx context.Context, memberID model.Snowflake) (string, bool, error)

	// Save stores the biography, replacing any previous one.
	Save(ctx context.Context, memberID model.Snowflake, story string) error

	// Delete removes the biography and reports whether one existed.
	Delete(ctx context.Context, memberID model.Snowflake) (bool, error)
}

// InviteHistoryPort persists how members joined.
type InviteHistoryPort interface {
	// Get returns the record, or nil when none exists.
	Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error)

	// SaveIfAbsent writes the record unless one exists and reports whether it wrote.
	SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error)
}
