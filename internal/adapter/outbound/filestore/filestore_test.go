package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmob/onboard/internal/model"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

func TestStoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stories.json")
	store := NewStoryStore(path)

	_, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, 1, "first"))
	require.NoError(t, store.Save(ctx, 1, "second"))
	require.NoError(t, store.Save(ctx, 2, "other"))

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

	reopened := NewStoryStore(path)
	story, ok, err = reopened.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "other", story)
}

func TestStoryStore_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	store := NewStoryStore(path)
	require.NoError(t, store.Save(context.Background(), 123456789012345678, "tale"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]string{"123456789012345678": "tale"}, doc)
}

func TestStoryStore_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42": "legacy story"}`), 0o644))

	story, ok, err := NewStoryStore(path).Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "legacy story", story)
}

func TestStoryStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, _, err := NewStoryStore(path).Get(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestStoryStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	store := NewStoryStore(filepath.Join(t.TempDir(), "stories.json"))

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id model.Snowflake) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, id, "story"))
		}(model.Snowflake(i))
	}
	wg.Wait()

	for i := 1; i <= 20; i++ {
		_, ok, err := store.Get(ctx, model.Snowflake(i))
		require.NoError(t, err)
		assert.True(t, ok, "member %d", i)
	}
}

func TestInviteHistory_WriteOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "invite_history.json")
	history := NewInviteHistory(path)

	rec, err := history.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, rec)

	joined := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	written, err := history.SaveIfAbsent(ctx, 7, &model.InviteHistoryRecord{
		InviterName: "boss", InviterID: 42, InviteCode: "abc", JoinDate: joined,
	})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = history.SaveIfAbsent(ctx, 7, &model.InviteHistoryRecord{InviterName: "Unknown", InviteCode: "Unknown"})
	require.NoError(t, err)
	assert.False(t, written)

	rec, err = history.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "boss", rec.InviterName)
	assert.Equal(t, model.Snowflake(42), rec.InviterID)
	assert.True(t, joined.Equal(rec.JoinDate))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"inviterName": "boss"`)
	assert.Contains(t, string(data), `"inviteCode": "abc"`)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStoryStore(filepath.Join(t.TempDir(), "stories.json"))
	assert.ErrorIs(t, store.Save(ctx, 1, "x"), context.Canceled)
}
