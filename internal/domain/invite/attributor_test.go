package invite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
	"github.com/devmob/onboard/internal/testutil"
)

const guildID model.Snowflake = 500

func newTestAttributor(t *testing.T, fallback bool) (*Attributor, *testutil.FakePlatform, *testutil.MemoryStoryStore) {
	t.Helper()
	platform := testutil.NewFakePlatform()
	stories := testutil.NewMemoryStoryStore()
	a := NewAttributor(platform, stories, nil, &Config{FallbackEnabled: fallback}, nil, zap.NewNop())
	return a, platform, stories
}

func joiner(id model.Snowflake) *model.Member {
	return &model.Member{ID: id, GuildID: guildID, Username: "joiner"}
}

func TestAttributeJoin_ExactIncrease(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)
	platform.SetInvites(guildID,
		&model.Invite{Code: "A", Uses: 3, InviterID: 10, InviterName: "alice"},
		&model.Invite{Code: "B", Uses: 7, InviterID: 20, InviterName: "bob"},
	)
	require.NoError(t, a.Initialize(ctx, guildID))

	platform.UseInvite(guildID, "A")
	attr, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)

	assert.Equal(t, model.AttributionExact, attr.Method)
	assert.Equal(t, "A", attr.Code)
	assert.Equal(t, 3, attr.PreviousUses)
	assert.Equal(t, 4, attr.Uses)
	assert.Equal(t, model.Snowflake(10), attr.InviterID)
	assert.Equal(t, "alice", attr.InviterName)
}

func TestAttributeJoin_SnapshotOverwritten(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, false)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 3, InviterID: 10, InviterName: "alice"})
	require.NoError(t, a.Initialize(ctx, guildID))

	platform.UseInvite(guildID, "A")
	first, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)
	assert.Equal(t, model.AttributionExact, first.Method)

	// No further join happened; the earlier increase must not be seen again.
	second, err := a.AttributeJoin(ctx, joiner(2))
	require.NoError(t, err)
	assert.Equal(t, model.AttributionUnknown, second.Method)

	snap, err := a.Snapshot(guildID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 4, snap[0].Uses)
}

func TestAttributeJoin_SecondCallNeverExactWithFallback(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 3, InviterID: 10, InviterName: "alice"})
	require.NoError(t, a.Initialize(ctx, guildID))

	platform.UseInvite(guildID, "A")
	_, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)

	second, err := a.AttributeJoin(ctx, joiner(2))
	require.NoError(t, err)
	assert.NotEqual(t, model.AttributionExact, second.Method)
}

func TestAttributeJoin_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		invites  []*model.Invite
		fallback bool
		method   model.AttributionMethod
		code     string
	}{
		{
			name: "single highest count",
			invites: []*model.Invite{
				{Code: "A", Uses: 5, InviterID: 10, InviterName: "alice"},
				{Code: "B", Uses: 2, InviterID: 20, InviterName: "bob"},
			},
			fallback: true,
			method:   model.AttributionFallback,
			code:     "A",
		},
		{
			name: "tie gives unknown",
			invites: []*model.Invite{
				{Code: "A", Uses: 5},
				{Code: "B", Uses: 5},
			},
			fallback: true,
			method:   model.AttributionUnknown,
		},
		{
			name: "no positive counts",
			invites: []*model.Invite{
				{Code: "A", Uses: 0},
			},
			fallback: true,
			method:   model.AttributionUnknown,
		},
		{
			name: "disabled",
			invites: []*model.Invite{
				{Code: "A", Uses: 5},
			},
			fallback: false,
			method:   model.AttributionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			a, platform, _ := newTestAttributor(t, tt.fallback)
			platform.SetInvites(guildID, tt.invites...)
			require.NoError(t, a.Initialize(ctx, guildID))

			attr, err := a.AttributeJoin(ctx, joiner(1))
			require.NoError(t, err)
			assert.Equal(t, tt.method, attr.Method)
			assert.Equal(t, tt.code, attr.Code)
		})
	}
}

func TestAttributeJoin_UnknownCodeCountsFromZero(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, false)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 3})
	require.NoError(t, a.Initialize(ctx, guildID))

	platform.SetInvites(guildID,
		&model.Invite{Code: "A", Uses: 3},
		&model.Invite{Code: "NEW", Uses: 1, InviterID: 30, InviterName: "carol"},
	)
	attr, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)
	assert.Equal(t, model.AttributionExact, attr.Method)
	assert.Equal(t, "NEW", attr.Code)
	assert.Equal(t, 0, attr.PreviousUses)
}

func TestAttributeJoin_TrackedInvite(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, false)
	platform.SetInvites(guildID)
	require.NoError(t, a.Initialize(ctx, guildID))

	inv := &model.Invite{Code: "FRESH", Uses: 0, InviterID: 40, InviterName: "dave"}
	a.TrackInvite(guildID, inv)
	platform.SetInvites(guildID, inv)
	platform.UseInvite(guildID, "FRESH")

	attr, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)
	assert.Equal(t, model.AttributionExact, attr.Method)
	assert.Equal(t, "FRESH", attr.Code)
}

func TestAttributeJoin_MissingSnapshotInitializes(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 9})

	attr, err := a.AttributeJoin(ctx, joiner(1))
	require.NoError(t, err)
	assert.Equal(t, model.AttributionUnknown, attr.Method)

	snap, err := a.Snapshot(guildID)
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestAttributeJoin_FetchFailure(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 1})
	require.NoError(t, a.Initialize(ctx, guildID))

	platform.FailOn("FetchInvites", errors.New("503"))
	attr, err := a.AttributeJoin(ctx, joiner(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsPlatform(err))
	assert.Equal(t, model.AttributionUnknown, attr.Method)

	snap, err := a.Snapshot(guildID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap[0].Uses)
}

func TestAttributeJoin_ConcurrentJoinsSerialized(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)
	platform.SetInvites(guildID,
		&model.Invite{Code: "X", Uses: 0, InviterID: 10, InviterName: "alice"},
		&model.Invite{Code: "Y", Uses: 0, InviterID: 20, InviterName: "bob"},
	)
	require.NoError(t, a.Initialize(ctx, guildID))
	platform.UseInvite(guildID, "X")
	platform.UseInvite(guildID, "Y")

	var wg sync.WaitGroup
	results := make([]*model.Attribution, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attr, err := a.AttributeJoin(ctx, joiner(model.Snowflake(i+1)))
			assert.NoError(t, err)
			results[i] = attr
		}(i)
	}
	wg.Wait()

	exact := 0
	for _, r := range results {
		if r.Method == model.AttributionExact {
			exact++
			assert.Equal(t, "X", r.Code)
		} else {
			assert.Equal(t, model.AttributionUnknown, r.Method)
		}
	}
	assert.Equal(t, 1, exact)
	assert.Equal(t, 2, platform.Calls("FetchInvites")-1)
}

func TestResolveInviter(t *testing.T) {
	ctx := context.Background()
	a, platform, stories := newTestAttributor(t, false)

	platform.SetRoles(guildID,
		&model.Role{ID: guildID, Name: "@everyone", Position: 0},
		&model.Role{ID: 71, Name: "Associate", Position: 1},
		&model.Role{ID: 72, Name: "Capo", Position: 5},
	)
	platform.AddMember(&model.Member{ID: 10, GuildID: guildID, Username: "alice", RoleIDs: []model.Snowflake{guildID, 71, 72}})
	require.NoError(t, stories.Save(ctx, 10, "Alice's tale"))

	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 0, InviterID: 10, InviterName: "alice"})
	require.NoError(t, a.Initialize(ctx, guildID))
	platform.UseInvite(guildID, "A")

	m := joiner(1)
	_, err := a.AttributeJoin(ctx, m)
	require.NoError(t, err)

	info := a.ResolveInviter(ctx, m)
	assert.True(t, info.Known())
	assert.Equal(t, "alice", info.Name)
	assert.Equal(t, "Capo", info.TopRoleName)
	assert.Equal(t, "Alice's tale", info.PreviousBiography)
	assert.Equal(t, "A", info.InviteCode)

	// A retried interview resolves the same inviter.
	again := a.ResolveInviter(ctx, m)
	assert.Equal(t, info, again)

	a.Release(m.ID)
	_, pending := a.Pending(m.ID)
	assert.False(t, pending)
	assert.False(t, a.ResolveInviter(ctx, m).Known())
}

func TestResolveInviter_FallsBackToHistory(t *testing.T) {
	ctx := context.Background()
	platform := testutil.NewFakePlatform()
	stories := testutil.NewMemoryStoryStore()
	history := testutil.NewMemoryInviteHistory()
	a := NewAttributor(platform, stories, history, DefaultConfig(), nil, zap.NewNop())

	platform.SetRoles(guildID, &model.Role{ID: 72, Name: "Capo", Position: 5})
	platform.AddMember(&model.Member{ID: 10, GuildID: guildID, Username: "alice", RoleIDs: []model.Snowflake{72}})
	require.NoError(t, stories.Save(ctx, 10, "Alice's tale"))

	m := joiner(1)
	assert.False(t, a.ResolveInviter(ctx, m).Known())

	_, err := history.SaveIfAbsent(ctx, m.ID, &model.InviteHistoryRecord{
		InviterName: "alice",
		InviterID:   10,
		InviteCode:  "A",
		JoinDate:    time.Now(),
	})
	require.NoError(t, err)

	info := a.ResolveInviter(ctx, m)
	assert.True(t, info.Known())
	assert.Equal(t, "alice", info.Name)
	assert.Equal(t, "Capo", info.TopRoleName)
	assert.Equal(t, "Alice's tale", info.PreviousBiography)
	assert.Equal(t, "A", info.InviteCode)
}

func TestResolveInviter_UnknownHistoryRecord(t *testing.T) {
	ctx := context.Background()
	history := testutil.NewMemoryInviteHistory()
	a := NewAttributor(testutil.NewFakePlatform(), nil, history, DefaultConfig(), nil, zap.NewNop())

	_, err := history.SaveIfAbsent(ctx, 1, &model.InviteHistoryRecord{
		InviterName: "Unknown",
		InviteCode:  "Unknown",
		JoinDate:    time.Now(),
	})
	require.NoError(t, err)

	assert.False(t, a.ResolveInviter(ctx, joiner(1)).Known())
}

func TestResolveInviter_Unknown(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, false)
	platform.SetInvites(guildID, &model.Invite{Code: "A", Uses: 2})
	require.NoError(t, a.Initialize(ctx, guildID))

	m := joiner(1)
	_, err := a.AttributeJoin(ctx, m)
	require.NoError(t, err)

	info := a.ResolveInviter(ctx, m)
	assert.False(t, info.Known())
	assert.Empty(t, info.Name)
	assert.Zero(t, platform.Calls("GetMember"))
}

func TestTopRoleName(t *testing.T) {
	m := &model.Member{ID: 1, GuildID: guildID, RoleIDs: []model.Snowflake{guildID}}
	roles := []*model.Role{{ID: guildID, Name: "@everyone", Position: 0}}
	assert.Empty(t, TopRoleName(m, roles))
}

func TestSnapshotAndForget(t *testing.T) {
	ctx := context.Background()
	a, platform, _ := newTestAttributor(t, true)

	_, err := a.Snapshot(guildID)
	assert.ErrorIs(t, err, ErrNotInitialized)

	platform.SetInvites(guildID, &model.Invite{Code: "B", Uses: 1}, &model.Invite{Code: "A", Uses: 2})
	require.NoError(t, a.Initialize(ctx, guildID))

	snap, err := a.Snapshot(guildID)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "A", snap[0].Code)

	a.Forget(guildID)
	_, err = a.Snapshot(guildID)
	assert.ErrorIs(t, err, ErrNotInitialized)
}
