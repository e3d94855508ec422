package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/config"
)

// maxChoices is the Discord limit on static option choices.
const maxChoices = 25

func floatPtr(v float64) *float64 { return &v }

// buildCommands returns the guild slash commands. Instance names are
// offered as choices, so the set is rebuilt whenever the config changes.
func buildCommands(cfg *config.AppConfig) []*discordgo.ApplicationCommand {
	var instanceChoices []*discordgo.ApplicationCommandOptionChoice
	for _, inst := range cfg.MCSManager.Instances {
		if len(instanceChoices) == maxChoices {
			break
		}
		instanceChoices = append(instanceChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  inst.Name,
			Value: inst.Name,
		})
	}

	instanceOption := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "name",
			Description: "Instance name",
			Required:    true,
			Choices:     instanceChoices,
		}
	}
	shortcutID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Shortcut id",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "faq",
			Description: "Suggests a user to read the FAQ Channel",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Optionally choose if you want to ping a member",
			}},
		},
		{Name: "info", Description: "Shows some useful information about the bot"},
		{Name: "close", Description: "Closes a Forum Post"},
		{Name: "sendfaq", Description: "Prints out all configured FAQ entries in the FAQ channel"},
		{Name: "reloadconfig", Description: "Reloads the bot's configuration"},
		{
			Name:        "purge",
			Description: "Deletes messages from a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user whose messages should be deleted",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Only delete messages from the last N days",
					MinValue:    floatPtr(1),
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Only scan this channel",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "Maximum number of messages to delete",
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "shortcut",
			Description: "Manage and use message shortcuts",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a new shortcut",
					Options: []*discordgo.ApplicationCommandOption{
						shortcutID,
						{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "What the shortcut is for", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Title of the message", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: `Message body, \n for new lines`, Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a shortcut",
					Options:     []*discordgo.ApplicationCommandOption{shortcutID},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "execute",
					Description: "Send a shortcut message",
					Options:     []*discordgo.ApplicationCommandOption{shortcutID},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List all shortcuts",
				},
			},
		},
		{
			Name:        "server",
			Description: "Control MCSManager instances",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List configured instances"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "Show instance status", Options: []*discordgo.ApplicationCommandOption{instanceOption()}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "start", Description: "Start an instance", Options: []*discordgo.ApplicationCommandOption{instanceOption()}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stop", Description: "Stop an instance", Options: []*discordgo.ApplicationCommandOption{instanceOption()}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "restart", Description: "Restart an instance", Options: []*discordgo.ApplicationCommandOption{instanceOption()}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "kill", Description: "Force stop an instance", Options: []*discordgo.ApplicationCommandOption{instanceOption()}},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "command",
					Description: "Send a console command to an instance",
					Options: []*discordgo.ApplicationCommandOption{
						instanceOption(),
						{Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Console command", Required: true},
					},
				},
			},
		},
	}
}
