package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/mclogs"
)

func (c *DefaultDiscord) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.Bot || len(m.Attachments) == 0 {
		return
	}
	cfg := c.config.Get()
	if cfg.LogUpload.Disabled || c.uploader == nil {
		return
	}

	var attachments []*discordgo.MessageAttachment
	for _, a := range m.Attachments {
		if cfg.LogUpload.Accepts(a.Filename) {
			attachments = append(attachments, a)
		}
	}
	if len(attachments) == 0 || !c.uploadAllowed(cfg, m.ChannelID) {
		return
	}

	msg := m.Message
	c.goJob(func(ctx context.Context) {
		c.uploadLogs(ctx, cfg.LogUpload, msg, attachments)
	})
}

// uploadAllowed reports whether logs posted in channelID are uploaded:
// either the channel itself is listed or it is a thread under a listed
// channel. No list means threads in the configured forums.
func (c *DefaultDiscord) uploadAllowed(cfg *config.AppConfig, channelID string) bool {
	allowed := cfg.LogUpload.Channels
	if len(allowed) == 0 {
		for _, forum := range cfg.Forums.List() {
			allowed = append(allowed, forum.ID)
		}
	}
	if len(allowed) == 0 {
		return false
	}
	if slices.Contains(allowed, channelID) {
		return true
	}

	ch, err := c.session.Channel(channelID)
	if err != nil {
		c.logger.WarnW("failed to fetch channel for log upload", "channel_id", channelID, "error", err)
		return false
	}
	return ch.IsThread() && slices.Contains(allowed, ch.ParentID)
}

func (c *DefaultDiscord) uploadLogs(ctx context.Context, cfg mclogs.Config, msg *discordgo.Message, attachments []*discordgo.MessageAttachment) {
	log := c.logger.With("channel_id", msg.ChannelID, "message_id", msg.ID, "author_id", msg.Author.ID)

	var lines []string
	for _, a := range attachments {
		if cfg.MaxBytes > 0 && int64(a.Size) > cfg.MaxBytes {
			lines = append(lines, fmt.Sprintf("`%s`: too large (%s, limit %s)",
				a.Filename, humanize.IBytes(uint64(a.Size)), humanize.IBytes(uint64(cfg.MaxBytes))))
			continue
		}

		content, err := c.uploader.Fetch(ctx, a.URL, cfg.MaxBytes)
		if errors.Is(err, mclogs.ErrTooLarge) {
			lines = append(lines, fmt.Sprintf("`%s`: too large (limit %s)", a.Filename, humanize.IBytes(uint64(cfg.MaxBytes))))
			continue
		}
		if err != nil {
			log.WarnW("failed to download attachment", "file", a.Filename, "error", err)
			continue
		}

		paste, err := c.uploader.Upload(ctx, content)
		if err != nil {
			log.WarnW("failed to upload log", "file", a.Filename, "error", err)
			continue
		}
		log.InfoW("log uploaded", "file", a.Filename, "url", paste.URL, "size", humanize.IBytes(uint64(len(content))))
		lines = append(lines, fmt.Sprintf("`%s`: %s", a.Filename, paste.URL))
	}

	if len(lines) == 0 {
		return
	}

	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{Embed(ColorDefault, "Log uploaded", strings.Join(lines, "\n"))},
		Reference:       msg.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		log.ErrorW("failed to reply with log links", "error", err)
	}
}
