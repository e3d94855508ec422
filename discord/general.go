package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/models"
)

const (
	panelCheckTimeout = 3 * time.Second
	activityWindow    = 7 * 24 * time.Hour
)

func (c *DefaultDiscord) cmdFAQ(_ context.Context, inv *invocation) {
	channelID := inv.cfg.FAQ.ChannelID
	if channelID == "" {
		c.replyEmbed(inv, errorEmbed("The FAQ channel is not configured."), true)
		return
	}

	embed := Embed(ColorDefault, "", "", Field("Frequently Asked Questions",
		"You can find the FAQ here: "+mentionChannel(channelID)+
			"\nIt contains information and documentations that you should read before asking for help."))

	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if target := inv.options.String("user"); target != "" {
		data.Content = mentionUser(target)
		data.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{target}}
	}
	c.respond(inv, data)
}

func (c *DefaultDiscord) cmdInfo(ctx context.Context, inv *invocation) {
	now := c.clock.Now()
	uptime := strings.TrimSpace(humanize.RelTime(c.startedAt, now, "", ""))

	fields := []*discordgo.MessageEmbedField{
		InlineField("Version", config.Version),
		InlineField("Uptime", uptime),
		InlineField("Go", runtime.Version()),
		InlineField("discordgo", discordgo.VERSION),
	}

	if c.shortcuts != nil {
		if n, err := c.shortcuts.Count(ctx); err == nil {
			fields = append(fields, InlineField("Shortcuts", strconv.Itoa(n)))
		} else {
			inv.log.WarnW("failed to count shortcuts", "error", err)
		}
	}

	if c.audit != nil && !inv.cfg.Inactivity.Disabled {
		since := now.Add(-activityWindow)
		reminded, rerr := c.audit.CountThreadActionsSince(ctx, models.ThreadActionRemind, since)
		closed, cerr := c.audit.CountThreadActionsSince(ctx, models.ThreadActionClose, since)
		if err := errors.Join(rerr, cerr); err != nil {
			inv.log.WarnW("failed to count thread actions", "error", err)
		} else {
			fields = append(fields, InlineField("Inactivity (7d)", fmt.Sprintf("%d reminded · %d closed", reminded, closed)))
		}
	}

	if c.panel != nil && inv.cfg.MCSManager.Enabled() {
		checkCtx, cancel := context.WithTimeout(ctx, panelCheckTimeout)
		overview, err := c.panel.Overview(checkCtx)
		cancel()
		if err != nil {
			inv.log.WarnW("panel overview failed", "error", err)
			fields = append(fields, InlineField("Panel", "unreachable"))
		} else {
			fields = append(fields, InlineField("Panel", overview.Version))
		}
	}

	embed := Embed(ColorDefault, "MCSManager Bot", "Community bot for the MCSManager Discord server.", fields...)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Started " + humanize.Time(c.startedAt)}
	c.replyEmbed(inv, embed, false)
}

func (c *DefaultDiscord) cmdSendFAQ(_ context.Context, inv *invocation) {
	if !c.requireModerator(inv) {
		return
	}

	faq := inv.cfg.FAQ
	if faq.ChannelID == "" {
		c.replyEmbed(inv, errorEmbed("The FAQ channel is not configured."), true)
		return
	}
	if len(faq.Entries) == 0 {
		c.replyEmbed(inv, errorEmbed("No FAQ entries are configured."), true)
		return
	}

	sent := 0
	for _, entry := range faq.Entries {
		_, err := c.session.ChannelMessageSendComplex(faq.ChannelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{Embed(ColorDefault, entry.Question, entry.Answer)},
		})
		if err != nil {
			inv.log.ErrorW("failed to send faq entry", "question", entry.Question, "error", err)
			continue
		}
		sent++
	}

	if sent == 0 {
		c.replyEmbed(inv, errorEmbed("Failed to send the FAQ entries."), true)
		return
	}
	c.replyEmbed(inv, successEmbed("FAQ sent",
		fmt.Sprintf("Sent %d of %d entries to %s.", sent, len(faq.Entries), mentionChannel(faq.ChannelID))), true)
}

func (c *DefaultDiscord) cmdReloadConfig(_ context.Context, inv *invocation) {
	if !c.requireModerator(inv) {
		return
	}

	if _, err := c.config.Reload(); err != nil {
		inv.log.ErrorW("config reload failed", "error", err)
		c.replyEmbed(inv, errorEmbed("Failed to reload the configuration: "+err.Error()), true)
		return
	}
	inv.log.InfoW("config reloaded")
	c.replyEmbed(inv, successEmbed("Configuration reloaded", ""), true)
}

func (c *DefaultDiscord) cmdClose(_ context.Context, inv *invocation) {
	thread, err := c.session.Channel(inv.interaction.ChannelID)
	if err != nil {
		inv.log.ErrorW("failed to fetch channel", "error", err)
		c.replyEmbed(inv, errorEmbed("Could not look up this channel."), true)
		return
	}

	forumName, ok := inv.cfg.Forums.Name(thread.ParentID)
	if !thread.IsThread() || !ok {
		c.replyEmbed(inv, errorEmbed("This command can only be used in a support or bug report post."), true)
		return
	}

	caller := userID(inv.interaction)
	if caller != thread.OwnerID && !c.isModerator(inv) {
		c.replyEmbed(inv, errorEmbed("Only the author of this post or a moderator can close it."), true)
		return
	}

	forum, err := c.session.Channel(thread.ParentID)
	if err != nil {
		inv.log.WarnW("failed to fetch forum", "forum_id", thread.ParentID, "error", err)
	}
	if _, err := ApplyTag(c.session, thread, forum, inv.cfg.Forums.ClosedTag); err != nil {
		inv.log.WarnW("failed to apply closed tag", "error", err)
	}

	c.replyEmbed(inv, Embed(ColorError, "Post closed",
		fmt.Sprintf("This post has been closed by %s.\n\nIf you still need help, feel free to create a new post in the %s forum.",
			mentionUser(caller), forumName)), false)

	if err := LockAndArchive(c.session, thread.ID); err != nil {
		inv.log.ErrorW("failed to close thread", "thread_id", thread.ID, "error", err)
		return
	}
	inv.log.InfoW("thread closed", "thread_id", thread.ID, "forum", forumName,
		"by_owner", caller == thread.OwnerID)
}
