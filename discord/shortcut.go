package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/shortcuts"
)

// maxEmbedFields is the Discord limit on fields per embed.
const maxEmbedFields = 25

func (c *DefaultDiscord) cmdShortcut(ctx context.Context, inv *invocation) {
	if c.shortcuts == nil {
		c.replyEmbed(inv, errorEmbed("Shortcuts are not available."), true)
		return
	}

	switch inv.sub {
	case "add":
		c.shortcutAdd(ctx, inv)
	case "remove":
		c.shortcutRemove(ctx, inv)
	case "execute":
		c.shortcutExecute(ctx, inv)
	case "list":
		c.shortcutList(ctx, inv)
	case "":
		c.replyEmbed(inv, errorEmbed("Invalid subcommand"), true)
	default:
		c.replyEmbed(inv, errorEmbed("Unknown subcommand: "+inv.sub), true)
	}
}

func (c *DefaultDiscord) shortcutAdd(ctx context.Context, inv *invocation) {
	if !c.requireModerator(inv) {
		return
	}

	sc := models.Shortcut{
		ID:                 inv.options.String("id"),
		Description:        inv.options.String("description"),
		MessageTitle:       inv.options.String("title"),
		MessageDescription: inv.options.String("message"),
	}
	id := sc.NormalizedID()

	err := c.shortcuts.Add(ctx, sc)
	switch {
	case errors.Is(err, shortcuts.ErrIncomplete):
		c.replyEmbed(inv, errorEmbed("All fields are required!"), true)
		return
	case errors.Is(err, shortcuts.ErrExists):
		c.replyEmbed(inv, errorEmbed(fmt.Sprintf("A shortcut with the ID `%s` already exists!", id)), true)
		return
	case err != nil:
		inv.log.ErrorW("failed to add shortcut", "id", id, "error", err)
		c.replyEmbed(inv, errorEmbed("Failed to save the shortcut."), true)
		return
	}

	c.replyEmbed(inv, successEmbed("Shortcut Added", "",
		Field("ID", "`"+id+"`"),
		Field("Description", sc.Description),
		Field("Message Title", sc.MessageTitle),
		Field("Message Description", sc.MessageDescription),
	), true)
}

func (c *DefaultDiscord) shortcutRemove(ctx context.Context, inv *invocation) {
	if !c.requireModerator(inv) {
		return
	}

	id := models.NormalizeID(inv.options.String("id"))
	if id == "" {
		c.replyEmbed(inv, errorEmbed("ID is required!"), true)
		return
	}

	err := c.shortcuts.Remove(ctx, id)
	switch {
	case errors.Is(err, shortcuts.ErrNotFound):
		c.replyEmbed(inv, errorEmbed(fmt.Sprintf("No shortcut found with the ID `%s`!", id)), true)
		return
	case err != nil:
		inv.log.ErrorW("failed to remove shortcut", "id", id, "error", err)
		c.replyEmbed(inv, errorEmbed("Failed to remove the shortcut."), true)
		return
	}

	c.replyEmbed(inv, successEmbed("Shortcut Removed", fmt.Sprintf("The shortcut `%s` has been removed.", id)), true)
}

func (c *DefaultDiscord) shortcutExecute(ctx context.Context, inv *invocation) {
	id := models.NormalizeID(inv.options.String("id"))
	if id == "" {
		c.replyEmbed(inv, errorEmbed("ID is required!"), true)
		return
	}

	sc, err := c.shortcuts.Get(ctx, id)
	if errors.Is(err, shortcuts.ErrNotFound) {
		c.replyEmbed(inv, errorEmbed(fmt.Sprintf("No shortcut found with the ID `%s`!", id)), true)
		return
	}
	if err != nil {
		inv.log.ErrorW("failed to load shortcut", "id", id, "error", err)
		c.replyEmbed(inv, errorEmbed("Failed to load the shortcut."), true)
		return
	}

	c.replyEmbed(inv, Embed(ColorDefault, sc.MessageTitle, sc.RenderedDescription()), false)
	inv.log.InfoW("shortcut executed", "id", id)
}

func (c *DefaultDiscord) shortcutList(ctx context.Context, inv *invocation) {
	list, err := c.shortcuts.List(ctx)
	if err != nil {
		inv.log.ErrorW("failed to list shortcuts", "error", err)
		c.replyEmbed(inv, errorEmbed("Failed to load the shortcuts."), true)
		return
	}
	if len(list) == 0 {
		c.replyEmbed(inv, errorEmbed("No shortcuts available."), true)
		return
	}

	embed := Embed(ColorDefault, "📋 Available Shortcuts", "Here are all the available shortcuts you can execute:")
	for i, sc := range list {
		if i == maxEmbedFields {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("and %d more", len(list)-maxEmbedFields)}
			break
		}
		embed.Fields = append(embed.Fields, Field("`/"+sc.ID+"`", sc.Description))
	}
	c.replyEmbed(inv, embed, false)
}
