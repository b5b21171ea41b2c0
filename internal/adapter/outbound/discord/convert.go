package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/devmob/onboard/internal/model"
)

// ===== discordgo -> model =====

// ToSnowflake converts a platform id string. Malformed ids become zero.
func ToSnowflake(id string) model.Snowflake {
	return model.SnowflakeOrZero(id)
}

// ToMember converts a guild member.
func ToMember(m *discordgo.Member, guildID string) *model.Member {
	if m == nil || m.User == nil {
		return nil
	}
	if m.GuildID != "" {
		guildID = m.GuildID
	}
	out := &model.Member{
		ID:        ToSnowflake(m.User.ID),
		GuildID:   ToSnowflake(guildID),
		Username:  m.User.Username,
		Nickname:  m.Nick,
		Bot:       m.User.Bot,
		JoinedAt:  m.JoinedAt,
		AvatarURL: m.AvatarURL(""),
	}
	if out.Nickname == "" {
		out.Nickname = m.User.GlobalName
	}
	out.RoleIDs = make([]model.Snowflake, 0, len(m.Roles))
	for _, r := range m.Roles {
		out.RoleIDs = append(out.RoleIDs, ToSnowflake(r))
	}
	return out
}

// ToUserMember builds a member from a bare user, used when only the user is known.
func ToUserMember(u *discordgo.User, guildID string) *model.Member {
	if u == nil {
		return nil
	}
	return &model.Member{
		ID:        ToSnowflake(u.ID),
		GuildID:   ToSnowflake(guildID),
		Username:  u.Username,
		Nickname:  u.GlobalName,
		Bot:       u.Bot,
		AvatarURL: u.AvatarURL(""),
	}
}

// ToMessage converts a channel message.
func ToMessage(m *discordgo.Message) *model.Message {
	if m == nil {
		return nil
	}
	out := &model.Message{
		ID:        ToSnowflake(m.ID),
		ChannelID: ToSnowflake(m.ChannelID),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = ToSnowflake(m.Author.ID)
		out.AuthorName = m.Author.Username
		out.AuthorBot = m.Author.Bot
	}
	for _, u := range m.Mentions {
		out.MentionIDs = append(out.MentionIDs, ToSnowflake(u.ID))
	}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, ToEmbed(e))
	}
	return out
}

// ToEmbed converts a message embed.
func ToEmbed(e *discordgo.MessageEmbed) *model.Embed {
	out := &model.Embed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	if e.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			out.Timestamp = ts
		}
	}
	return out
}

// ToInvite converts an invite with its counter.
func ToInvite(inv *discordgo.Invite) *model.Invite {
	out := &model.Invite{Code: inv.Code, Uses: inv.Uses}
	if inv.Inviter != nil {
		out.InviterID = ToSnowflake(inv.Inviter.ID)
		out.InviterName = inv.Inviter.Username
	}
	return out
}

// ToRole converts a guild role.
func ToRole(r *discordgo.Role) *model.Role {
	return &model.Role{ID: ToSnowflake(r.ID), Name: r.Name, Position: r.Position}
}

// ===== model -> discordgo =====

// FromEmbed builds the platform embed.
func FromEmbed(e *model.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

func channelTypeName(t discordgo.ChannelType) string {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return "text"
	case discordgo.ChannelTypeGuildVoice:
		return "voice"
	case discordgo.ChannelTypeGuildCategory:
		return "category"
	case discordgo.ChannelTypeGuildNews:
		return "news"
	case discordgo.ChannelTypeGuildForum:
		return "forum"
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return "thread"
	default:
		return "other"
	}
}
