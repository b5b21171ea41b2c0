package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmob/onboard/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "onboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStories(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.Ping(ctx))

	_, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, 1, "first"))
	require.NoError(t, store.Save(ctx, 1, "second"))

	story, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", story)

	existed, err := store.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestInviteHistory(t *testing.T) {
	ctx := context.Background()
	history := openTestStore(t).History()

	rec, err := history.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, rec)

	joined := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	written, err := history.SaveIfAbsent(ctx, 9, &model.InviteHistoryRecord{
		InviterName: "boss", InviterID: 123456789012345678, InviteCode: "abc", JoinDate: joined,
	})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = history.SaveIfAbsent(ctx, 9, &model.InviteHistoryRecord{InviterName: "Unknown", InviteCode: "Unknown"})
	require.NoError(t, err)
	assert.False(t, written)

	rec, err = history.Get(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "boss", rec.InviterName)
	assert.Equal(t, model.Snowflake(123456789012345678), rec.InviterID)
	assert.Equal(t, "abc", rec.InviteCode)
	assert.True(t, joined.Equal(rec.JoinDate))
}
