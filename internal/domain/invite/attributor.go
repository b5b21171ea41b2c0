package invite

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Config holds attribution policy.
type Config struct {
	// FallbackEnabled attributes a join to the single most used invite when no
	// counter increased.
	FallbackEnabled bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{FallbackEnabled: true}
}

// guildState is the last observed invite counters of one guild.
// mu is held across fetch, compare and overwrite.
type guildState struct {
	mu          sync.Mutex
	initialized bool
	snapshot    map[string]*model.Invite
}

// Attributor infers which invite a new member used by diffing use counters.
type Attributor struct {
	platform outbound.PlatformPort
	stories  outbound.StoryStorePort
	history  outbound.InviteHistoryPort
	config   *Config
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	guilds map[model.Snowflake]*guildState

	pendingMu sync.Mutex
	pending   map[model.Snowflake]*model.Attribution
}

// NewAttributor creates a new invite attributor.
func NewAttributor(
	platform outbound.PlatformPort,
	stories outbound.StoryStorePort,
	history outbound.InviteHistoryPort,
	config *Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Attributor {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Attributor{
		platform: platform,
		stories:  stories,
		history:  history,
		config:   config,
		metrics:  m,
		logger:   logger.Named("invite"),
		guilds:   make(map[model.Snowflake]*guildState),
		pending:  make(map[model.Snowflake]*model.Attribution),
	}
}

func (a *Attributor) state(guildID model.Snowflake) *guildState {
	a.mu.Lock()
	defer a.mu.Unlock()
	gs, ok := a.guilds[guildID]
	if !ok {
		gs = &guildState{snapshot: make(map[string]*model.Invite)}
		a.guilds[guildID] = gs
	}
	return gs
}

// Initialize fetches the guild's invites and stores them as the snapshot.
func (a *Attributor) Initialize(ctx context.Context, guildID model.Snowflake) error {
	gs := a.state(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	invites, err := a.platform.FetchInvites(ctx, guildID)
	if err != nil {
		a.metrics.RecordPlatformError("fetch_invites")
		return apperrors.Platform("fetch invites", err)
	}
	gs.replace(invites)
	gs.initialized = true

	a.logger.Info("invite snapshot initialized",
		zap.String("guild_id", guildID.String()),
		zap.Int("invites", len(invites)),
	)
	return nil
}

// TrackInvite records a newly created invite so its first use counts as an increase.
func (a *Attributor) TrackInvite(guildID model.Snowflake, inv *model.Invite) {
	if inv == nil || inv.Code == "" {
		return
	}
	gs := a.state(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	c := *inv
	gs.snapshot[inv.Code] = &c
	a.logger.Debug("invite tracked",
		zap.String("guild_id", guildID.String()),
		zap.String("code", inv.Code),
		zap.Int("uses", inv.Uses),
	)
}

// AttributeJoin diffs the guild's invites against the snapshot and remembers
// the result for the member. The snapshot is overwritten with the fetched
// counters whatever the outcome.
func (a *Attributor) AttributeJoin(ctx context.Context, member *model.Member) (*model.Attribution, error) {
	if member == nil || member.GuildID.IsZero() {
		return model.UnknownAttribution(), ErrNoGuild
	}

	gs := a.state(member.GuildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	log := a.logger.With(
		zap.String("guild_id", member.GuildID.String()),
		zap.String("member_id", member.ID.String()),
	)

	invites, err := a.platform.FetchInvites(ctx, member.GuildID)
	if err != nil {
		a.metrics.RecordPlatformError("fetch_invites")
		a.remember(member.ID, model.UnknownAttribution())
		a.metrics.RecordAttribution(string(model.AttributionUnknown))
		return model.UnknownAttribution(), apperrors.Platform("fetch invites", err)
	}

	var result *model.Attribution
	if !gs.initialized {
		log.Warn("no invite snapshot for guild, initializing")
		result = model.UnknownAttribution()
		gs.initialized = true
	} else {
		result = diff(gs.snapshot, invites, a.config.FallbackEnabled)
	}
	gs.replace(invites)

	a.remember(member.ID, result)
	a.metrics.RecordAttribution(string(result.Method))

	log.Info("join attributed",
		zap.String("method", string(result.Method)),
		zap.String("code", result.Code),
		zap.String("inviter_id", result.InviterID.String()),
	)
	return result, nil
}

// diff returns the first invite whose counter strictly increased, the single
// most used invite when fallback is enabled, or unknown.
func diff(snapshot map[string]*model.Invite, invites []*model.Invite, fallback bool) *model.Attribution {
	for _, inv := range invites {
		prev := 0
		if old, ok := snapshot[inv.Code]; ok {
			prev = old.Uses
		}
		if inv.Uses > prev {
			return attribution(model.AttributionExact, inv, prev)
		}
	}

	if !fallback {
		return model.UnknownAttribution()
	}

	var best *model.Invite
	tied := false
	for _, inv := range invites {
		switch {
		case inv.Uses <= 0:
		case best == nil || inv.Uses > best.Uses:
			best, tied = inv, false
		case inv.Uses == best.Uses:
			tied = true
		}
	}
	if best == nil || tied {
		return model.UnknownAttribution()
	}
	prev := 0
	if old, ok := snapshot[best.Code]; ok {
		prev = old.Uses
	}
	return attribution(model.AttributionFallback, best, prev)
}

func attribution(method model.AttributionMethod, inv *model.Invite, prev int) *model.Attribution {
	return &model.Attribution{
		Method:       method,
		Code:         inv.Code,
		PreviousUses: prev,
		Uses:         inv.Uses,
		InviterID:    inv.InviterID,
		InviterName:  inv.InviterName,
	}
}

func (gs *guildState) replace(invites []*model.Invite) {
	next := make(map[string]*model.Invite, len(invites))
	for _, inv := range invites {
		c := *inv
		next[inv.Code] = &c
	}
	gs.snapshot = next
}

func (a *Attributor) remember(memberID model.Snowflake, attr *model.Attribution) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	a.pending[memberID] = attr
}

// Pending returns the attribution stored for the member at join time.
func (a *Attributor) Pending(memberID model.Snowflake) (*model.Attribution, bool) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	attr, ok := a.pending[memberID]
	return attr, ok
}

// Release drops the member's pending attribution. Call it once the member is
// onboarded or the join has been recorded in invite history.
func (a *Attributor) Release(memberID model.Snowflake) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	delete(a.pending, memberID)
}

// lookup returns the pending attribution, falling back to the member's invite
// history record.
func (a *Attributor) lookup(ctx context.Context, memberID model.Snowflake) (*model.Attribution, bool) {
	if attr, ok := a.Pending(memberID); ok {
		return attr, true
	}
	if a.history == nil {
		return nil, false
	}
	rec, err := a.history.Get(ctx, memberID)
	if err != nil {
		a.metrics.RecordPersistenceError("invite_history")
		a.logger.Warn("failed to read invite history",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
		return nil, false
	}
	if rec == nil || rec.InviterID.IsZero() || rec.InviteCode == "" {
		return nil, false
	}
	return &model.Attribution{
		Method:      model.AttributionRecorded,
		Code:        rec.InviteCode,
		InviterID:   rec.InviterID,
		InviterName: rec.InviterName,
	}, true
}

// ResolveInviter looks up the member's attribution and enriches it with the
// inviter's top role and previous biography. The attribution is not consumed,
// so a retried interview resolves the same inviter. Anything that cannot be
// attributed resolves to the unknown inviter.
func (a *Attributor) ResolveInviter(ctx context.Context, member *model.Member) model.InviterInfo {
	attr, ok := a.lookup(ctx, member.ID)
	if !ok || !attr.IsKnown() || attr.InviterID.IsZero() {
		return model.UnknownInviter()
	}

	log := a.logger.With(
		zap.String("member_id", member.ID.String()),
		zap.String("inviter_id", attr.InviterID.String()),
	)

	info := model.InviterInfo{
		ID:         attr.InviterID,
		Name:       attr.InviterName,
		InviteCode: attr.Code,
	}

	inviter, err := a.platform.GetMember(ctx, member.GuildID, attr.InviterID)
	if err != nil {
		a.metrics.RecordPlatformError("get_member")
		log.Warn("failed to fetch inviter", zap.Error(err))
	} else {
		if inviter.DisplayName() != "" {
			info.Name = inviter.DisplayName()
		}
		roles, err := a.platform.GuildRoles(ctx, member.GuildID)
		if err != nil {
			a.metrics.RecordPlatformError("guild_roles")
			log.Warn("failed to fetch guild roles", zap.Error(err))
		} else {
			info.TopRoleName = TopRoleName(inviter, roles)
		}
	}

	if a.stories != nil {
		story, found, err := a.stories.Get(ctx, attr.InviterID)
		if err != nil {
			a.metrics.RecordPersistenceError("stories")
			log.Warn("failed to load inviter biography", zap.Error(err))
		} else if found {
			info.PreviousBiography = story
		}
	}

	if info.Name == "" {
		return model.UnknownInviter()
	}
	return info
}

// TopRoleName returns the name of the member's highest positioned role,
// ignoring the default role whose id equals the guild id.
func TopRoleName(member *model.Member, roles []*model.Role) string {
	var top *model.Role
	for _, r := range roles {
		if r.ID == member.GuildID || !member.HasRole(r.ID) {
			continue
		}
		if top == nil || r.Position > top.Position {
			top = r
		}
	}
	if top == nil {
		return ""
	}
	return top.Name
}

// Snapshot returns a copy of the guild's invite counters ordered by code.
func (a *Attributor) Snapshot(guildID model.Snowflake) ([]*model.Invite, error) {
	a.mu.Lock()
	gs, ok := a.guilds[guildID]
	a.mu.Unlock()
	if !ok {
		return nil, ErrNotInitialized
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if !gs.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]*model.Invite, 0, len(gs.snapshot))
	for _, inv := range gs.snapshot {
		c := *inv
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Forget drops the guild's snapshot.
func (a *Attributor) Forget(guildID model.Snowflake) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.guilds, guildID)
}
