package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/domain/biography"
	"github.com/devmob/onboard/internal/domain/interview"
	"github.com/devmob/onboard/internal/domain/invite"
	"github.com/devmob/onboard/internal/domain/membership"
	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/testutil"
)

const (
	guildID     model.Snowflake = 500
	entryID     model.Snowflake = 600
	storyID     model.Snowflake = 700
	logID       model.Snowflake = 800
	associateID model.Snowflake = 901
	outsiderID  model.Snowflake = 902
	capoID      model.Snowflake = 903
	ownerID     model.Snowflake = 42
	newcomerID  model.Snowflake = 100
)

const generatedStory = "**The Quiet Fixer**\nThey arrived in The Underworld with nothing but a laptop."

// ===== Mock Rate Limiter =====

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) AllowN(ctx context.Context, key string, n int, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, n, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Int(0), args.Error(1)
}

// ===== Fixture =====

type fixture struct {
	svc      *Service
	platform *testutil.FakePlatform
	stories  *testutil.MemoryStoryStore
	history  *testutil.MemoryInviteHistory
	provider *testutil.FakeTextProvider
}

func newFixture(t *testing.T, limiter outbound.RateLimiterPort) *fixture {
	t.Helper()
	platform := testutil.NewFakePlatform()
	stories := testutil.NewMemoryStoryStore()
	history := testutil.NewMemoryInviteHistory()
	provider := &testutil.FakeTextProvider{Response: generatedStory}
	logger := zap.NewNop()

	platform.SetRoles(guildID,
		&model.Role{ID: guildID, Name: "@everyone", Position: 0},
		&model.Role{ID: outsiderID, Name: "Outsider", Position: 1},
		&model.Role{ID: associateID, Name: "Associate", Position: 2},
		&model.Role{ID: capoID, Name: "Capo", Position: 5},
	)
	platform.AddMember(&model.Member{ID: ownerID, GuildID: guildID, Username: "boss", RoleIDs: []model.Snowflake{capoID}})
	platform.SetInvites(guildID, &model.Invite{Code: "abc", Uses: 0, InviterID: ownerID, InviterName: "boss"})

	ivCfg := &interview.Config{
		AnswerTimeout:  2 * time.Second,
		PollInterval:   2 * time.Millisecond,
		HistoryLimit:   10,
		UseThreads:     true,
		Questions:      interview.DefaultQuestions(),
		StoryChannelID: storyID,
	}
	roleCfg := &membership.RoleConfig{AssociateRoleID: associateID, OutsiderRoleID: outsiderID}
	clsCfg := &membership.ClassifierConfig{AnnouncementChannelID: storyID, ScanLimit: 200, NameMatch: membership.NameMatchExact}

	deps := Deps{
		Platform:     platform,
		Stories:      stories,
		History:      history,
		Limiter:      limiter,
		Attributor:   invite.NewAttributor(platform, stories, history, invite.DefaultConfig(), nil, logger),
		Orchestrator: interview.NewOrchestrator(platform, ivCfg, nil, logger),
		Generator:    biography.NewGenerator(provider, biography.DefaultConfig(), nil, logger),
		Classifier:   membership.NewClassifier(stories, platform, clsCfg, nil, logger),
		Roles:        membership.NewRoleManager(platform, roleCfg, nil, logger),
	}
	cfg := &Config{
		EntryChannelID: entryID,
		StoryChannelID: storyID,
		LogChannelID:   logID,
		OwnerID:        ownerID,
		JoinLimit:      3,
		JoinWindow:     time.Minute,
		Configured:     map[string]bool{"openai": true},
	}
	svc := NewService(deps, cfg, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})

	svc.OnGuildAvailable(context.Background(), guildID)
	return &fixture{svc: svc, platform: platform, stories: stories, history: history, provider: provider}
}

func (f *fixture) addMember(id model.Snowflake, name string, roles ...model.Snowflake) *model.Member {
	m := &model.Member{ID: id, GuildID: guildID, Username: name, RoleIDs: roles}
	f.platform.AddMember(m)
	return f.platform.Member(guildID, id)
}

// autoAnswer makes every member answer each question asked in their thread.
func (f *fixture) autoAnswer(members ...*model.Member) {
	byID := make(map[model.Snowflake]*model.Member)
	for _, m := range members {
		byID[m.ID] = m
	}
	var mu sync.Mutex
	counts := make(map[model.Snowflake]int)
	f.platform.OnSend(func(p *testutil.FakePlatform, msg *model.Message) {
		if len(msg.Embeds) == 0 || msg.Embeds[0].Title != interview.QuestionTitle {
			return
		}
		owner, ok := p.ThreadMember(msg.ChannelID)
		if !ok {
			return
		}
		m, ok := byID[owner]
		if !ok {
			return
		}
		mu.Lock()
		counts[owner]++
		n := counts[owner]
		mu.Unlock()
		p.Post(msg.ChannelID, m, fmt.Sprintf("answer %d", n))
	})
}

func (f *fixture) join(member *model.Member, channelID model.Snowflake) *model.CommandReply {
	return f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name:      model.CommandJoin,
		GuildID:   guildID,
		ChannelID: channelID,
		Invoker:   member,
	})
}

func embedsIn(p *testutil.FakePlatform, channelID model.Snowflake) []*model.Embed {
	var out []*model.Embed
	for _, m := range p.BotMessages(channelID) {
		out = append(out, m.Embeds...)
	}
	return out
}

// ===== End-to-end =====

func TestOnboarding_UnknownInviterEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie")
	f.autoAnswer(member)

	f.svc.OnMemberJoined(context.Background(), member)

	rec, err := f.history.Get(context.Background(), newcomerID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Unknown", rec.InviterName)
	assert.Equal(t, "Unknown", rec.InviteCode)
	assert.True(t, f.platform.Member(guildID, newcomerID).HasRole(outsiderID))

	reply := f.join(member, entryID)
	assert.Equal(t, replyStarted, reply.Content)
	assert.True(t, reply.Ephemeral)
	f.svc.Wait()

	require.Len(t, f.provider.Prompts(), 1)
	assert.True(t, f.provider.PromptContains("Inviter: no inviter", "answer 1", "answer 4"))

	story, ok, err := f.stories.Get(context.Background(), newcomerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, generatedStory, story)

	got := f.platform.Member(guildID, newcomerID)
	assert.True(t, got.HasRole(associateID))
	assert.False(t, got.HasRole(outsiderID))

	embeds := embedsIn(f.platform, storyID)
	require.Len(t, embeds, 1)
	assert.Equal(t, "🎭 newbie - a new story!", embeds[0].Title)
	assert.Equal(t, generatedStory, embeds[0].Description)
	assert.Equal(t, model.ColorOrange, embeds[0].Color)
	assert.Contains(t, embeds[0].Footer, "UserID: 100")

	announce := f.platform.BotMessages(storyID)[0]
	assert.True(t, announce.Mentions(newcomerID))
}

func TestOnboarding_ExactInviterEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.stories.Save(context.Background(), ownerID, "The boss built this city."))
	member := f.addMember(newcomerID, "newbie")
	f.autoAnswer(member)

	f.platform.UseInvite(guildID, "abc")
	f.svc.OnMemberJoined(context.Background(), member)

	rec, err := f.history.Get(context.Background(), newcomerID)
	require.NoError(t, err)
	assert.Equal(t, "boss", rec.InviterName)
	assert.Equal(t, ownerID, rec.InviterID)
	assert.Equal(t, "abc", rec.InviteCode)

	f.join(member, entryID)
	f.svc.Wait()

	require.Len(t, f.provider.Prompts(), 1)
	assert.True(t, f.provider.PromptContains("boss", "Capo", "The boss built this city."))

	embeds := embedsIn(f.platform, storyID)
	require.Len(t, embeds, 1)
	assert.Equal(t, model.ColorGreen, embeds[0].Color)
}

func TestOnboarding_PlaceholderIsNotStored(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.Err = &outbound.ProviderError{StatusCode: 500, Body: "boom"}
	member := f.addMember(newcomerID, "newbie", outsiderID)
	f.autoAnswer(member)

	f.join(member, entryID)
	f.svc.Wait()

	assert.Equal(t, 0, f.stories.Len())
	assert.Empty(t, f.platform.BotMessages(storyID))

	got := f.platform.Member(guildID, newcomerID)
	assert.True(t, got.HasRole(associateID))
	assert.False(t, got.HasRole(outsiderID))

	audits := embedsIn(f.platform, logID)
	require.NotEmpty(t, audits)
	assert.Contains(t, audits[0].Title, "Story error")
}

func TestOnboarding_TimeoutStoresNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.orchestrator = interview.NewOrchestrator(f.platform, &interview.Config{
		AnswerTimeout: 20 * time.Millisecond,
		PollInterval:  2 * time.Millisecond,
		HistoryLimit:  10,
		UseThreads:    true,
		Questions:     interview.DefaultQuestions(),
	}, nil, zap.NewNop())
	member := f.addMember(newcomerID, "newbie", outsiderID)

	f.join(member, entryID)
	f.svc.Wait()

	assert.Empty(t, f.provider.Prompts())
	assert.Equal(t, 0, f.stories.Len())
	got := f.platform.Member(guildID, newcomerID)
	assert.True(t, got.HasRole(outsiderID))
	assert.False(t, got.HasRole(associateID))
}

func TestOnboarding_RetryAfterTimeoutKeepsInviter(t *testing.T) {
	f := newFixture(t, nil)
	answering := f.svc.orchestrator
	f.svc.orchestrator = interview.NewOrchestrator(f.platform, &interview.Config{
		AnswerTimeout: 20 * time.Millisecond,
		PollInterval:  2 * time.Millisecond,
		HistoryLimit:  10,
		UseThreads:    true,
		Questions:     interview.DefaultQuestions(),
	}, nil, zap.NewNop())
	member := f.addMember(newcomerID, "newbie")

	f.platform.UseInvite(guildID, "abc")
	f.svc.OnMemberJoined(context.Background(), member)
	_, pending := f.svc.attributor.Pending(newcomerID)
	assert.False(t, pending, "recorded joins resolve from invite history")

	f.join(member, entryID)
	f.svc.Wait()
	require.Empty(t, f.provider.Prompts())

	f.svc.orchestrator = answering
	f.autoAnswer(member)
	assert.Equal(t, replyStarted, f.join(member, entryID).Content)
	f.svc.Wait()

	require.Len(t, f.provider.Prompts(), 1)
	assert.True(t, f.provider.PromptContains("boss", "Capo"))

	embeds := embedsIn(f.platform, storyID)
	require.Len(t, embeds, 1)
	assert.Equal(t, model.ColorGreen, embeds[0].Color)
}

// ===== Returning members =====

func TestOnMemberJoined_ReturningMember(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.stories.Save(context.Background(), newcomerID, "old story"))
	member := f.addMember(newcomerID, "veteran")

	f.svc.OnMemberJoined(context.Background(), member)

	got := f.platform.Member(guildID, newcomerID)
	assert.True(t, got.HasRole(associateID))
	assert.False(t, got.HasRole(outsiderID))

	embeds := embedsIn(f.platform, storyID)
	require.Len(t, embeds, 1)
	assert.Contains(t, embeds[0].Description, "veteran")
	assert.Equal(t, 0, f.platform.Calls("CreatePrivateThread"))
}

func TestJoin_ReturningMemberGetsNoInterview(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "veteran")
	f.platform.PostEmbed(storyID, &model.Embed{Title: "🎭 veteran - a new story!"}, newcomerID)

	reply := f.join(member, entryID)
	f.svc.Wait()

	assert.Equal(t, replyWelcomeBack, reply.Content)
	assert.Equal(t, 0, f.platform.Calls("CreatePrivateThread"))
	assert.Empty(t, f.provider.Prompts())
	assert.True(t, f.platform.Member(guildID, newcomerID).HasRole(associateID))
	assert.NotEmpty(t, f.platform.BotMessages(entryID))
}

func TestOnMemberJoined_IgnoresBots(t *testing.T) {
	f := newFixture(t, nil)
	bot := &model.Member{ID: 77, GuildID: guildID, Username: "helper", Bot: true}
	f.platform.AddMember(bot)

	f.svc.OnMemberJoined(context.Background(), bot)

	rec, err := f.history.Get(context.Background(), 77)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, f.platform.Calls("AddRole"))
}

// ===== Join guards =====

func TestJoin_Guards(t *testing.T) {
	t.Run("wrong channel", func(t *testing.T) {
		f := newFixture(t, nil)
		member := f.addMember(newcomerID, "newbie")

		reply := f.join(member, storyID)
		assert.Contains(t, reply.Content, "<#600>")
		assert.Equal(t, 0, f.platform.Calls("CreatePrivateThread"))
	})

	t.Run("already associate", func(t *testing.T) {
		f := newFixture(t, nil)
		member := f.addMember(newcomerID, "newbie", associateID)

		reply := f.join(member, entryID)
		assert.Equal(t, replyAlreadyMember, reply.Content)
	})

	t.Run("onboarding disabled", func(t *testing.T) {
		f := newFixture(t, nil)
		f.svc.config.EntryChannelID = 0
		member := f.addMember(newcomerID, "newbie")

		reply := f.join(member, entryID)
		assert.Equal(t, replyOnboardingDisabled, reply.Content)
	})

	t.Run("rate limited", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Allow", mock.Anything, "join:100", 3, time.Minute).Return(false, nil)
		f := newFixture(t, limiter)
		member := f.addMember(newcomerID, "newbie")

		reply := f.join(member, entryID)
		assert.Equal(t, replyCooldown, reply.Content)
		limiter.AssertExpectations(t)
	})

	t.Run("limiter failure lets the join through", func(t *testing.T) {
		limiter := new(MockRateLimiter)
		limiter.On("Allow", mock.Anything, "join:100", 3, time.Minute).Return(false, errors.New("redis down"))
		f := newFixture(t, limiter)
		member := f.addMember(newcomerID, "newbie")
		f.autoAnswer(member)

		reply := f.join(member, entryID)
		f.svc.Wait()
		assert.Equal(t, replyStarted, reply.Content)
		assert.Len(t, f.provider.Prompts(), 1)
	})
}

func TestJoin_AfterStop(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.Stop(context.Background()))
	member := f.addMember(newcomerID, "newbie")

	reply := f.join(member, entryID)
	assert.Equal(t, replyShuttingDown, reply.Content)
}

func TestStop_CancelsRunningInterviews(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie")

	f.join(member, entryID)
	require.Eventually(t, func() bool { return f.svc.ActiveInterviews() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.svc.Stop(ctx))
	assert.Equal(t, 0, f.svc.ActiveInterviews())
	assert.Empty(t, f.provider.Prompts())
}

// ===== Commands =====

func TestHandleCommand_Story(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie")
	owner := f.platform.Member(guildID, ownerID)

	reply := f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name: model.CommandStory, Invoker: owner, Target: member,
	})
	assert.Contains(t, reply.Content, "no story")

	require.NoError(t, f.stories.Save(context.Background(), newcomerID, generatedStory))
	reply = f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name: model.CommandStory, Invoker: owner, Target: member,
	})
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "The Quiet Fixer", reply.Embed.Title)
	assert.Equal(t, generatedStory, reply.Embed.Description)
}

func TestHandleCommand_Invite(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie")
	f.platform.UseInvite(guildID, "abc")
	f.svc.OnMemberJoined(context.Background(), member)

	reply := f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name: model.CommandInvite, Invoker: member,
	})
	require.NotNil(t, reply.Embed)
	assert.Contains(t, reply.Embed.Description, "boss")
	assert.Contains(t, reply.Embed.Description, "abc")
	assert.Equal(t, model.ColorGreen, reply.Embed.Color)
}

func TestHandleCommand_OwnerOnly(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie", outsiderID)
	require.NoError(t, f.stories.Save(context.Background(), newcomerID, "story"))

	for _, name := range []model.CommandName{model.CommandPromote, model.CommandDeleteStory} {
		reply := f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
			Name: name, Invoker: member, Target: member,
		})
		assert.Equal(t, replyOwnerOnly, reply.Content, name)
	}
	assert.Equal(t, 1, f.stories.Len())
	assert.False(t, f.platform.Member(guildID, newcomerID).HasRole(associateID))

	owner := f.platform.Member(guildID, ownerID)
	reply := f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name: model.CommandPromote, Invoker: owner, Target: member,
	})
	assert.Contains(t, reply.Content, "Associate")
	got := f.platform.Member(guildID, newcomerID)
	assert.True(t, got.HasRole(associateID))
	assert.False(t, got.HasRole(outsiderID))

	reply = f.svc.HandleCommand(context.Background(), &model.CommandInvocation{
		Name: model.CommandDeleteStory, Invoker: owner, Target: member,
	})
	assert.Contains(t, reply.Content, "deleted")
	assert.Equal(t, 0, f.stories.Len())
}

func TestHandleCommand_Unknown(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(newcomerID, "newbie")

	reply := f.svc.HandleCommand(context.Background(), &model.CommandInvocation{Name: "dance", Invoker: member})
	assert.True(t, reply.Ephemeral)
	assert.Nil(t, f.svc.HandleCommand(context.Background(), nil).Embed)
}

// ===== Helpers =====

func TestStoryTitle(t *testing.T) {
	tests := []struct {
		story string
		want  string
	}{
		{"**The Fixer**\nbody", "The Fixer"},
		{"# Don Byte\nbody", "Don Byte"},
		{"*italic* title", "italic title"},
		{"\nbody", "Member story"},
		{strings.Repeat("x", 101), "Member story"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StoryTitle(tt.story))
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)

	invites, err := f.svc.InviteSnapshot(guildID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, 0, invites[0].Uses)

	assert.Equal(t, 0, f.svc.ActiveInterviews())
	assert.Equal(t, map[string]bool{"openai": true}, f.svc.Configured())
}
