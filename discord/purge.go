package discord

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/timeutil"
)

// purgeBatch is the Discord maximum for a single history request.
const purgeBatch = 100

type purgeRequest struct {
	GuildID   string
	TargetID  string
	ChannelID string
	Days      int
	Limit     int
	Cutoff    time.Time
}

func (c *DefaultDiscord) cmdPurge(_ context.Context, inv *invocation) {
	if !c.requireModerator(inv) {
		return
	}

	req := purgeRequest{
		GuildID:   inv.interaction.GuildID,
		TargetID:  inv.options.String("user"),
		ChannelID: inv.options.String("channel"),
		Days:      max(inv.options.Int("days"), 0),
		Limit:     max(inv.options.Int("count"), 0),
	}
	if req.TargetID == "" {
		c.replyEmbed(inv, errorEmbed("User not found."), true)
		return
	}
	if req.GuildID == "" {
		c.replyEmbed(inv, errorEmbed("Guild not found."), true)
		return
	}
	if req.Days > 0 {
		req.Cutoff = timeutil.DaysAgo(c.clock.Now(), req.Days)
	}

	if !c.deferReply(inv, false) {
		return
	}

	started := c.goJob(func(ctx context.Context) {
		deleted := c.purge(ctx, inv.log, req)
		c.editReply(inv, purgeResultEmbed(req, deleted))

		inv.log.InfoW("purge finished",
			"target", req.TargetID,
			"channel_id", req.ChannelID,
			"days", req.Days,
			"limit", req.Limit,
			"deleted", deleted,
		)

		if c.audit == nil {
			return
		}
		record := models.PurgeRecord{
			InvocationID: inv.id,
			ModeratorID:  userID(inv.interaction),
			TargetUserID: req.TargetID,
			ChannelID:    req.ChannelID,
			Days:         req.Days,
			Limit:        req.Limit,
			Deleted:      deleted,
			CreatedAt:    c.clock.Now(),
		}
		if err := c.audit.InsertPurgeRecord(context.WithoutCancel(ctx), record); err != nil {
			inv.log.ErrorW("failed to store purge record", "error", err)
		}
	})
	if !started {
		inv.log.WarnW("purge rejected during shutdown")
		c.editReply(inv, errorEmbed("The bot is shutting down. Please try again shortly."))
	}
}

// purge deletes the target's messages and returns how many were removed.
// Each channel is read newest first; a channel ends at the first message
// older than the cutoff, at the limit, or at a short batch.
func (c *DefaultDiscord) purge(ctx context.Context, log logger.Logger, req purgeRequest) int {
	channels := []string{req.ChannelID}
	if req.ChannelID == "" {
		all, err := c.session.GuildChannels(req.GuildID)
		if err != nil {
			log.ErrorW("failed to list guild channels", "error", err)
			return 0
		}
		channels = channels[:0]
		for _, ch := range all {
			if ch.Type == discordgo.ChannelTypeGuildText {
				channels = append(channels, ch.ID)
			}
		}
	}

	deleted := 0
	limitReached := func() bool { return req.Limit > 0 && deleted >= req.Limit }

	for _, channelID := range channels {
		if limitReached() || ctx.Err() != nil {
			break
		}
		log.DebugW("scanning channel", "channel_id", channelID)

		before := ""
		for !limitReached() && ctx.Err() == nil {
			msgs, err := c.session.ChannelMessages(channelID, purgeBatch, before, "", "")
			if err != nil {
				log.DebugW("could not read channel history", "channel_id", channelID, "error", err)
				break
			}
			if len(msgs) == 0 {
				break
			}

			done := false
			for _, msg := range msgs {
				if limitReached() {
					done = true
					break
				}
				if !req.Cutoff.IsZero() && msg.Timestamp.Before(req.Cutoff) {
					done = true
					break
				}
				if msg.Author == nil || msg.Author.ID != req.TargetID {
					continue
				}
				if err := c.session.ChannelMessageDelete(channelID, msg.ID); err != nil {
					log.DebugW("could not delete message", "channel_id", channelID, "message_id", msg.ID, "error", err)
					continue
				}
				deleted++
			}

			if done || len(msgs) < purgeBatch {
				break
			}
			before = msgs[len(msgs)-1].ID
		}
	}
	return deleted
}

func purgeResultEmbed(req purgeRequest, deleted int) *discordgo.MessageEmbed {
	embed := successEmbed("Messages Deleted",
		fmt.Sprintf("Successfully deleted messages from **%s**", mentionUser(req.TargetID)),
		Field("Messages Deleted", strconv.Itoa(deleted)),
	)
	if req.ChannelID != "" {
		embed.Fields = append(embed.Fields, Field("Channel", mentionChannel(req.ChannelID)))
	}
	if req.Days > 0 {
		embed.Fields = append(embed.Fields, Field("Time Range", fmt.Sprintf("Last %d day(s)", req.Days)))
	} else {
		embed.Fields = append(embed.Fields, Field("Time Range", "All messages"))
	}
	if req.Limit > 0 {
		embed.Fields = append(embed.Fields, Field("Limit", fmt.Sprintf("%d messages", req.Limit)))
	}
	return embed
}
