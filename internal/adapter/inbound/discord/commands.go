package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	discordout "github.com/devmob/onboard/internal/adapter/outbound/discord"
	"github.com/devmob/onboard/internal/model"
)

const memberOption = "member"

// Commands are the application commands registered on ready.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        string(model.CommandJoin),
		Description: "Start your interview to join the family",
	},
	{
		Name:        string(model.CommandStory),
		Description: "Show a member's story",
		Options:     []*discordgo.ApplicationCommandOption{memberArg("The member whose story to show", false)},
	},
	{
		Name:        string(model.CommandInvite),
		Description: "Show who invited a member",
		Options:     []*discordgo.ApplicationCommandOption{memberArg("The member to look up", false)},
	},
	{
		Name:        string(model.CommandPromote),
		Description: "Promote a member to Associate (owner only)",
		Options:     []*discordgo.ApplicationCommandOption{memberArg("The member to promote", true)},
	},
	{
		Name:        string(model.CommandDeleteStory),
		Description: "Delete a member's story (owner only)",
		Options:     []*discordgo.ApplicationCommandOption{memberArg("The member whose story to delete", true)},
	},
}

func memberArg(desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        memberOption,
		Description: desc,
		Required:    required,
	}
}

// ephemeralCommands answer only to the invoker.
var ephemeralCommands = map[model.CommandName]bool{
	model.CommandJoin:        true,
	model.CommandPromote:     true,
	model.CommandDeleteStory: true,
}

// parseTextCommand recognizes the plain-text join triggers.
func parseTextCommand(content string) (model.CommandName, bool) {
	switch strings.ToLower(strings.TrimSpace(content)) {
	case "/join", "!join":
		return model.CommandJoin, true
	}
	return "", false
}

// invocationFromInteraction converts a slash command interaction.
func invocationFromInteraction(i *discordgo.InteractionCreate) *model.CommandInvocation {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()

	cmd := &model.CommandInvocation{
		Name:      model.CommandName(data.Name),
		GuildID:   discordout.ToSnowflake(i.GuildID),
		ChannelID: discordout.ToSnowflake(i.ChannelID),
	}
	switch {
	case i.Member != nil:
		cmd.Invoker = discordout.ToMember(i.Member, i.GuildID)
	case i.User != nil:
		cmd.Invoker = discordout.ToUserMember(i.User, i.GuildID)
	}

	for _, opt := range data.Options {
		if opt.Name != memberOption || opt.Type != discordgo.ApplicationCommandOptionUser {
			continue
		}
		userID, _ := opt.Value.(string)
		cmd.Target = resolvedMember(data.Resolved, userID, i.GuildID)
	}
	return cmd
}

func resolvedMember(r *discordgo.ApplicationCommandInteractionDataResolved, userID, guildID string) *model.Member {
	if r == nil || userID == "" {
		return &model.Member{ID: discordout.ToSnowflake(userID), GuildID: discordout.ToSnowflake(guildID)}
	}
	user := r.Users[userID]
	if m, ok := r.Members[userID]; ok && user != nil {
		full := *m
		full.User = user
		return discordout.ToMember(&full, guildID)
	}
	if user != nil {
		return discordout.ToUserMember(user, guildID)
	}
	return &model.Member{ID: discordout.ToSnowflake(userID), GuildID: discordout.ToSnowflake(guildID)}
}

// responseEdit renders a reply as the deferred interaction response.
func responseEdit(reply *model.CommandReply) *discordgo.WebhookEdit {
	content := reply.Content
	embeds := []*discordgo.MessageEmbed{}
	if reply.Embed != nil {
		embeds = append(embeds, discordout.FromEmbed(reply.Embed))
	}
	return &discordgo.WebhookEdit{Content: &content, Embeds: &embeds}
}
