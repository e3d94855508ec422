package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/store"
)

func (c *DefaultDiscord) onThreadCreate(_ *discordgo.Session, t *discordgo.ThreadCreate) {
	if t.Channel == nil || !t.NewlyCreated || t.ParentID == "" {
		return
	}

	forums := c.config.Get().Forums
	if t.ParentID == forums.SuggestionForumID {
		c.openSuggestion(c.ctx, t.Channel)
		return
	}
	if forum, ok := forums.Lookup(t.ParentID); ok {
		c.welcome(t.Channel, forum)
	}
}

// welcome greets the author of a new help thread.
func (c *DefaultDiscord) welcome(thread *discordgo.Channel, forum config.Forum) {
	if forum.Welcome == "" {
		return
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{Embed(ColorDefault, "Welcome to the "+forum.Name+" forum", forum.Welcome)},
	}
	if thread.OwnerID != "" {
		msg.Content = mentionUser(thread.OwnerID)
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{thread.OwnerID}}
	}
	if _, err := c.session.ChannelMessageSendComplex(thread.ID, msg); err != nil {
		c.logger.WarnW("failed to greet new thread", "thread_id", thread.ID, "forum", forum.Name, "error", err)
		return
	}
	c.logger.InfoW("greeted new thread", "thread_id", thread.ID, "forum", forum.Name)
}

// onThreadDelete drops the votes of a deleted suggestion thread.
func (c *DefaultDiscord) onThreadDelete(_ *discordgo.Session, t *discordgo.ThreadDelete) {
	if t.Channel == nil || c.votes == nil {
		return
	}

	err := c.votes.DeleteSuggestion(c.ctx, t.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		c.logger.WarnW("failed to delete suggestion", "thread_id", t.ID, "error", err)
	default:
		c.logger.InfoW("suggestion deleted with its thread", "thread_id", t.ID)
	}
}
