// Package testutil provides in-memory fakes of the outbound ports for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
)

// BotID is the author id of every message the fake posts on behalf of the bot.
const BotID model.Snowflake = 1

// SendHook is invoked after the bot posts a message. It runs without the
// platform lock held, so it may call back into the platform.
type SendHook func(p *FakePlatform, msg *model.Message)

// FakePlatform is an in-memory chat platform. Every message receives a
// strictly increasing timestamp.
type FakePlatform struct {
	mu       sync.Mutex
	clock    time.Time
	nextID   model.Snowflake
	invites  map[model.Snowflake][]*model.Invite
	messages map[model.Snowflake][]*model.Message
	members  map[model.Snowflake]map[model.Snowflake]*model.Member
	roles    map[model.Snowflake][]*model.Role
	threads  map[model.Snowflake]model.Snowflake // thread -> member
	failures map[string]error
	calls    map[string]int
	hooks    []SendHook
}

// NewFakePlatform creates an empty platform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		nextID:   1000,
		invites:  make(map[model.Snowflake][]*model.Invite),
		messages: make(map[model.Snowflake][]*model.Message),
		members:  make(map[model.Snowflake]map[model.Snowflake]*model.Member),
		roles:    make(map[model.Snowflake][]*model.Role),
		threads:  make(map[model.Snowflake]model.Snowflake),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Compile-time checks
var (
	_ outbound.PlatformPort  = (*FakePlatform)(nil)
	_ outbound.DirectoryPort = (*FakePlatform)(nil)
)

// ===== Setup helpers =====

// SetInvites replaces the guild's invites.
func (p *FakePlatform) SetInvites(guildID model.Snowflake, invites ...*model.Invite) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]*model.Invite, 0, len(invites))
	for _, inv := range invites {
		c := *inv
		cp = append(cp, &c)
	}
	p.invites[guildID] = cp
}

// UseInvite increments an invite's use counter.
func (p *FakePlatform) UseInvite(guildID model.Snowflake, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inv := range p.invites[guildID] {
		if inv.Code == code {
			inv.Uses++
			return
		}
	}
}

// AddMember registers a guild member.
func (p *FakePlatform) AddMember(m *model.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[m.GuildID] == nil {
		p.members[m.GuildID] = make(map[model.Snowflake]*model.Member)
	}
	c := *m
	c.RoleIDs = append([]model.Snowflake(nil), m.RoleIDs...)
	p.members[m.GuildID][m.ID] = &c
}

// SetRoles replaces the guild's roles.
func (p *FakePlatform) SetRoles(guildID model.Snowflake, roles ...*model.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[guildID] = roles
}

// FailOn makes every call of op return err. A nil err clears the failure.
func (p *FakePlatform) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// OnSend registers a hook run after every bot message.
func (p *FakePlatform) OnSend(hook SendHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook)
}

// Post appends a message written by author to the channel.
func (p *FakePlatform) Post(channelID model.Snowflake, author *model.Member, content string) *model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := &model.Message{
		ID:         p.newID(),
		ChannelID:  channelID,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		AuthorBot:  author.Bot,
		Content:    content,
		Timestamp:  p.tick(),
	}
	p.messages[channelID] = append(p.messages[channelID], msg)
	return msg
}

// PostEmbed appends a bot message carrying an embed, without running hooks.
func (p *FakePlatform) PostEmbed(channelID model.Snowflake, embed *model.Embed, mentions ...model.Snowflake) *model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := &model.Message{
		ID:         p.newID(),
		ChannelID:  channelID,
		AuthorID:   BotID,
		AuthorName: "onboard",
		AuthorBot:  true,
		Timestamp:  p.tick(),
		MentionIDs: mentions,
		Embeds:     []*model.Embed{embed},
	}
	p.messages[channelID] = append(p.messages[channelID], msg)
	return msg
}

// ===== Inspection helpers =====

// Messages returns the channel's messages, oldest first.
func (p *FakePlatform) Messages(channelID model.Snowflake) []*model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.Message(nil), p.messages[channelID]...)
}

// BotMessages returns the bot's messages in the channel, oldest first.
func (p *FakePlatform) BotMessages(channelID model.Snowflake) []*model.Message {
	var out []*model.Message
	for _, m := range p.Messages(channelID) {
		if m.AuthorID == BotID {
			out = append(out, m)
		}
	}
	return out
}

// Member returns a copy of the stored member, or nil.
func (p *FakePlatform) Member(guildID, userID model.Snowflake) *model.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[guildID][userID]
	if !ok {
		return nil
	}
	c := *m
	c.RoleIDs = append([]model.Snowflake(nil), m.RoleIDs...)
	return &c
}

// Calls returns how often op was invoked.
func (p *FakePlatform) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// ThreadMember returns the member added to a thread.
func (p *FakePlatform) ThreadMember(threadID model.Snowflake) (model.Snowflake, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.threads[threadID]
	return id, ok
}

// ===== PlatformPort =====

func (p *FakePlatform) FetchInvites(ctx context.Context, guildID model.Snowflake) ([]*model.Invite, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("FetchInvites"); err != nil {
		return nil, err
	}
	out := make([]*model.Invite, 0, len(p.invites[guildID]))
	for _, inv := range p.invites[guildID] {
		c := *inv
		out = append(out, &c)
	}
	return out, nil
}

func (p *FakePlatform) SendMessage(ctx context.Context, channelID model.Snowflake, content string, embed *model.Embed) (*model.Message, error) {
	p.mu.Lock()
	if err := p.enter("SendMessage"); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	msg := &model.Message{
		ID:         p.newID(),
		ChannelID:  channelID,
		AuthorID:   BotID,
		AuthorName: "onboard",
		AuthorBot:  true,
		Content:    content,
		Timestamp:  p.tick(),
		MentionIDs: parseMentions(content),
	}
	if embed != nil {
		c := *embed
		msg.Embeds = []*model.Embed{&c}
	}
	p.messages[channelID] = append(p.messages[channelID], msg)
	hooks := append([]SendHook(nil), p.hooks...)
	p.mu.Unlock()

	for _, h := range hooks {
		h(p, msg)
	}
	return msg, nil
}

func (p *FakePlatform) FetchRecentMessages(ctx context.Context, channelID model.Snowflake, limit int) ([]*model.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("FetchRecentMessages"); err != nil {
		return nil, err
	}
	all := p.messages[channelID]
	out := make([]*model.Message, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (p *FakePlatform) GetMember(ctx context.Context, guildID, userID model.Snowflake) (*model.Member, error) {
	p.mu.Lock()
	if err := p.enter("GetMember"); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()
	m := p.Member(guildID, userID)
	if m == nil {
		return nil, fmt.Errorf("unknown member %s", userID)
	}
	return m, nil
}

func (p *FakePlatform) GuildRoles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("GuildRoles"); err != nil {
		return nil, err
	}
	return append([]*model.Role(nil), p.roles[guildID]...), nil
}

func (p *FakePlatform) AddRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("AddRole"); err != nil {
		return err
	}
	m, ok := p.members[guildID][userID]
	if !ok {
		return fmt.Errorf("unknown member %s", userID)
	}
	if !m.HasRole(roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	return nil
}

func (p *FakePlatform) RemoveRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("RemoveRole"); err != nil {
		return err
	}
	m, ok := p.members[guildID][userID]
	if !ok {
		return fmt.Errorf("unknown member %s", userID)
	}
	kept := m.RoleIDs[:0]
	for _, id := range m.RoleIDs {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.RoleIDs = kept
	return nil
}

func (p *FakePlatform) CreatePrivateThread(ctx context.Context, parentID model.Snowflake, member *model.Member) (model.Snowflake, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("CreatePrivateThread"); err != nil {
		return 0, err
	}
	id := p.newID()
	p.threads[id] = member.ID
	return id, nil
}

// ===== DirectoryPort =====

func (p *FakePlatform) Connected() bool { return true }

func (p *FakePlatform) BotName() string { return "onboard" }

func (p *FakePlatform) Guilds(ctx context.Context) ([]*model.Guild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*model.Guild
	for id, members := range p.members {
		out = append(out, &model.Guild{ID: id, Name: "guild-" + id.String(), MemberCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *FakePlatform) Channels(ctx context.Context, guildID model.Snowflake) ([]*model.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*model.Channel
	for id := range p.messages {
		out = append(out, &model.Channel{ID: id, Name: "channel-" + id.String(), Type: "text"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *FakePlatform) Roles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error) {
	return p.GuildRoles(ctx, guildID)
}

// enter records a call and returns the configured failure. Callers hold mu.
func (p *FakePlatform) enter(op string) error {
	p.calls[op]++
	return p.failures[op]
}

func (p *FakePlatform) newID() model.Snowflake {
	p.nextID++
	return p.nextID
}

func (p *FakePlatform) tick() time.Time {
	p.clock = p.clock.Add(time.Millisecond)
	return p.clock
}

// parseMentions extracts <@id> markup.
func parseMentions(content string) []model.Snowflake {
	var out []model.Snowflake
	for i := 0; i < len(content); i++ {
		if content[i] != '<' || i+2 >= len(content) || content[i+1] != '@' {
			continue
		}
		j := i + 2
		if j < len(content) && content[j] == '!' {
			j++
		}
		start := j
		for j < len(content) && content[j] >= '0' && content[j] <= '9' {
			j++
		}
		if j < len(content) && content[j] == '>' && j > start {
			out = append(out, model.SnowflakeOrZero(content[start:j]))
		}
	}
	return out
}
