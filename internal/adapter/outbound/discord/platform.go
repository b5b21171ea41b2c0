package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// Discord caps message history pages at 100.
const maxPage = 100

// Compile-time checks
var (
	_ outbound.PlatformPort  = (*Client)(nil)
	_ outbound.DirectoryPort = (*Client)(nil)
)

func (c *Client) fail(op string, err error) error {
	c.metrics.RecordPlatformError(op)
	return apperrors.Platform(op, err)
}

// ===== PlatformPort =====

func (c *Client) FetchInvites(ctx context.Context, guildID model.Snowflake) ([]*model.Invite, error) {
	invites, err := c.session.GuildInvites(guildID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.fail("fetch_invites", err)
	}
	out := make([]*model.Invite, 0, len(invites))
	for _, inv := range invites {
		out = append(out, ToInvite(inv))
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID model.Snowflake, content string, embed *model.Embed) (*model.Message, error) {
	data := &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{FromEmbed(embed)}
	}
	msg, err := c.session.ChannelMessageSendComplex(channelID.String(), data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.fail("send_message", err)
	}
	return ToMessage(msg), nil
}

// FetchRecentMessages pages backwards until limit messages are collected.
func (c *Client) FetchRecentMessages(ctx context.Context, channelID model.Snowflake, limit int) ([]*model.Message, error) {
	out := make([]*model.Message, 0, limit)
	before := ""
	for len(out) < limit {
		page := min(limit-len(out), maxPage)
		msgs, err := c.session.ChannelMessages(channelID.String(), page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, c.fail("fetch_messages", err)
		}
		for _, m := range msgs {
			out = append(out, ToMessage(m))
		}
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return out, nil
}

func (c *Client) GetMember(ctx context.Context, guildID, userID model.Snowflake) (*model.Member, error) {
	m, err := c.session.GuildMember(guildID.String(), userID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.fail("get_member", err)
	}
	return ToMember(m, guildID.String()), nil
}

func (c *Client) GuildRoles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error) {
	roles, err := c.session.GuildRoles(guildID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.fail("guild_roles", err)
	}
	out := make([]*model.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, ToRole(r))
	}
	return out, nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error {
	if err := c.session.GuildMemberRoleAdd(guildID.String(), userID.String(), roleID.String(), discordgo.WithContext(ctx)); err != nil {
		return c.fail("add_role", err)
	}
	return nil
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID model.Snowflake) error {
	if err := c.session.GuildMemberRoleRemove(guildID.String(), userID.String(), roleID.String(), discordgo.WithContext(ctx)); err != nil {
		return c.fail("remove_role", err)
	}
	return nil
}

func (c *Client) CreatePrivateThread(ctx context.Context, parentID model.Snowflake, member *model.Member) (model.Snowflake, error) {
	thread, err := c.session.ThreadStartComplex(parentID.String(), &discordgo.ThreadStart{
		Name:                threadName(member),
		AutoArchiveDuration: 60,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return 0, c.fail("create_thread", err)
	}
	if err := c.session.ThreadMemberAdd(thread.ID, member.ID.String(), discordgo.WithContext(ctx)); err != nil {
		return 0, c.fail("add_thread_member", err)
	}
	return ToSnowflake(thread.ID), nil
}

func threadName(member *model.Member) string {
	name := fmt.Sprintf("interview-%s", member.DisplayName())
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

// ===== DirectoryPort =====

func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) BotName() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.Username
}

func (c *Client) Guilds(ctx context.Context) ([]*model.Guild, error) {
	if c.session.State == nil {
		return nil, ErrNotConnected
	}
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	out := make([]*model.Guild, 0, len(c.session.State.Guilds))
	for _, g := range c.session.State.Guilds {
		out = append(out, &model.Guild{ID: ToSnowflake(g.ID), Name: g.Name, MemberCount: g.MemberCount})
	}
	return out, nil
}

func (c *Client) Channels(ctx context.Context, guildID model.Snowflake) ([]*model.Channel, error) {
	channels, err := c.session.GuildChannels(guildID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.fail("guild_channels", err)
	}
	out := make([]*model.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, &model.Channel{ID: ToSnowflake(ch.ID), Name: ch.Name, Type: channelTypeName(ch.Type)})
	}
	return out, nil
}

func (c *Client) Roles(ctx context.Context, guildID model.Snowflake) ([]*model.Role, error) {
	return c.GuildRoles(ctx, guildID)
}
