package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/mcsmanager/mcsm_bot/clock"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/mclogs"
	"github.com/mcsmanager/mcsm_bot/mcsmanager"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/shortcuts"
)

var _ Discord = (*DefaultDiscord)(nil)

// Intents requested on connect. MessageContent is needed to see attachments
// for the log uploader, reactions carry suggestion votes.
const Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent | discordgo.IntentGuildMessageReactions

// AuditLog stores the moderation trail: /purge runs and the inactivity
// checker's thread actions.
type AuditLog interface {
	InsertPurgeRecord(ctx context.Context, record models.PurgeRecord) error
	CountThreadActionsSince(ctx context.Context, kind models.ThreadActionKind, since time.Time) (int, error)
}

type handlerFunc func(ctx context.Context, inv *invocation)

type DefaultDiscord struct {
	session   Session
	config    *config.Holder
	shortcuts *shortcuts.Registry
	audit     AuditLog
	votes     VoteStore
	panel     mcsmanager.Client
	uploader  mclogs.Uploader
	clock     clock.Clock
	logger    logger.Logger
	handlers  map[string]handlerFunc
	startedAt time.Time

	mu             sync.Mutex
	appID          string
	removeHandlers []func()
	stopped        bool

	voteMu sync.Mutex

	// Background jobs (purges, uploads) run on ctx and are awaited by Stop.
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

type Params struct {
	// Session overrides the gateway session; nil creates one from the
	// configured token.
	Session   Session
	Config    *config.Holder
	Shortcuts *shortcuts.Registry
	Audit     AuditLog
	Votes     VoteStore
	Panel     mcsmanager.Client
	Uploader  mclogs.Uploader
	Clock     clock.Clock
	Logger    logger.Logger
}

func New(p Params) (*DefaultDiscord, error) {
	if p.Config == nil {
		return nil, errors.New("discord: config holder is required")
	}

	session := p.Session
	if session == nil {
		s, err := discordgo.New("Bot " + p.Config.Get().Discord.Token)
		if err != nil {
			return nil, fmt.Errorf("create discord session: %w", err)
		}
		s.Identify.Intents = Intents
		session = s
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &DefaultDiscord{
		session:   session,
		config:    p.Config,
		shortcuts: p.Shortcuts,
		audit:     p.Audit,
		votes:     p.Votes,
		panel:     p.Panel,
		uploader:  p.Uploader,
		clock:     clk,
		logger:    logger.OrNop(p.Logger),
		startedAt: clk.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.handlers = map[string]handlerFunc{
		"faq":          c.cmdFAQ,
		"info":         c.cmdInfo,
		"close":        c.cmdClose,
		"sendfaq":      c.cmdSendFAQ,
		"reloadconfig": c.cmdReloadConfig,
		"purge":        c.cmdPurge,
		"shortcut":     c.cmdShortcut,
		"server":       c.cmdServer,
	}
	return c, nil
}

// Session returns the underlying gateway session.
func (c *DefaultDiscord) Session() Session {
	return c.session
}

func (c *DefaultDiscord) Start(ctx context.Context) error {
	// Handlers go in before Open so the first Ready is not missed.
	c.mu.Lock()
	c.removeHandlers = append(c.removeHandlers,
		c.session.AddHandler(c.onReady),
		c.session.AddHandler(c.onInteraction),
		c.session.AddHandler(c.onMessageCreate),
		c.session.AddHandler(c.onThreadCreate),
		c.session.AddHandler(c.onThreadDelete),
		c.session.AddHandler(c.onReactionAdd),
		c.session.AddHandler(c.onReactionRemove),
	)
	c.mu.Unlock()

	c.config.OnReload(c.onConfigReload)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}
	return nil
}

func (c *DefaultDiscord) Stop() {
	c.mu.Lock()
	for _, remove := range c.removeHandlers {
		remove()
	}
	c.removeHandlers = nil
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	c.jobs.Wait()

	if err := c.session.Close(); err != nil {
		c.logger.WarnW("failed to close discord session", "error", err)
	}
}

func (c *DefaultDiscord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		c.mu.Lock()
		c.appID = r.User.ID
		c.mu.Unlock()
	}
	c.logger.InfoW("discord connected", "session_id", r.SessionID, "guilds", len(r.Guilds))

	cfg := c.config.Get()
	if err := c.registerCommands(cfg); err != nil {
		c.logger.ErrorW("failed to register slash commands", "error", err)
	}
	if err := c.updateStatus(cfg); err != nil {
		c.logger.WarnW("failed to set activity", "error", err)
	}
}

func (c *DefaultDiscord) onConfigReload(cfg *config.AppConfig) {
	c.mu.Lock()
	ready := c.appID != ""
	c.mu.Unlock()
	if !ready {
		return
	}
	if err := c.registerCommands(cfg); err != nil {
		c.logger.ErrorW("failed to re-register slash commands", "error", err)
	}
	if err := c.updateStatus(cfg); err != nil {
		c.logger.WarnW("failed to set activity", "error", err)
	}
}

func (c *DefaultDiscord) registerCommands(cfg *config.AppConfig) error {
	c.mu.Lock()
	appID := c.appID
	c.mu.Unlock()

	cmds, err := c.session.ApplicationCommandBulkOverwrite(appID, cfg.Discord.GuildID, buildCommands(cfg))
	if err != nil {
		return err
	}
	c.logger.InfoW("slash commands registered", "guild_id", cfg.Discord.GuildID, "count", len(cmds))
	return nil
}

func (c *DefaultDiscord) updateStatus(cfg *config.AppConfig) error {
	return c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: cfg.Discord.Status,
		Activities: []*discordgo.Activity{{
			Name: cfg.ActivityText(),
			Type: discordgo.ActivityTypeGame,
		}},
	})
}

// invocation carries one slash command call through its handler.
type invocation struct {
	id          string
	interaction *discordgo.Interaction
	name        string
	sub         string
	options     options
	cfg         *config.AppConfig
	log         logger.Logger
}

func (c *DefaultDiscord) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	inv := &invocation{
		id:          uuid.NewString(),
		interaction: i.Interaction,
		name:        data.Name,
		cfg:         c.config.Get(),
	}
	inv.sub, inv.options = splitOptions(data.Options)
	inv.log = c.logger.With(
		"invocation_id", inv.id,
		"command", inv.name,
		"subcommand", inv.sub,
		"user_id", userID(i.Interaction),
	)

	handler, ok := c.handlers[data.Name]
	if !ok {
		inv.log.WarnW("unknown command")
		c.replyEmbed(inv, errorEmbed("Unknown command."), true)
		return
	}

	inv.log.InfoW("command invoked", "channel_id", i.ChannelID)
	handler(c.ctx, inv)
}

// isModerator reports whether the caller holds a configured moderator role.
// Direct messages carry no member and are never privileged.
func (c *DefaultDiscord) isModerator(inv *invocation) bool {
	member := inv.interaction.Member
	if member == nil {
		return false
	}
	return inv.cfg.IsModerator(member.Roles)
}

func (c *DefaultDiscord) requireModerator(inv *invocation) bool {
	if c.isModerator(inv) {
		return true
	}
	inv.log.InfoW("permission denied")
	c.replyEmbed(inv, errorEmbed("You don't have permission to use this command."), true)
	return false
}

func (c *DefaultDiscord) respond(inv *invocation, data *discordgo.InteractionResponseData) {
	err := c.session.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		inv.log.ErrorW("failed to respond to interaction", "error", err)
	}
}

func (c *DefaultDiscord) replyEmbed(inv *invocation, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	c.respond(inv, data)
}

func (c *DefaultDiscord) deferReply(inv *invocation, ephemeral bool) bool {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := c.session.InteractionRespond(inv.interaction, resp); err != nil {
		inv.log.ErrorW("failed to defer interaction", "error", err)
		return false
	}
	return true
}

func (c *DefaultDiscord) editReply(inv *invocation, embeds ...*discordgo.MessageEmbed) {
	if _, err := c.session.InteractionResponseEdit(inv.interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		inv.log.ErrorW("failed to edit interaction response", "error", err)
	}
}

// goJob runs fn in the background on the adapter's context. Jobs
// submitted once Stop has begun are dropped.
func (c *DefaultDiscord) goJob(fn func(ctx context.Context)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		fn(c.ctx)
	}()
	return true
}

// selfID is the bot's own user id, known once Ready arrived.
func (c *DefaultDiscord) selfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appID
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func mentionUser(id string) string    { return "<@" + id + ">" }
func mentionChannel(id string) string { return "<#" + id + ">" }
