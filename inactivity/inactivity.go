package inactivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/clock"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/discord"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/timeutil"
	"golang.org/x/sync/errgroup"
)

// Recorder stores the actions taken on threads.
type Recorder interface {
	InsertThreadAction(ctx context.Context, action models.ThreadAction) error
}

// Summary counts what a single pass did.
type Summary struct {
	Checked  int
	Reminded int
	Closed   int
}

// Checker reminds and auto-closes inactive threads in the help forums once
// a day.
type Checker struct {
	session  discord.Session
	config   *config.Holder
	recorder Recorder
	clock    clock.Clock
	logger   logger.Logger
	after    func(time.Duration) <-chan time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

type Params struct {
	Session  discord.Session
	Config   *config.Holder
	Recorder Recorder
	Clock    clock.Clock
	Logger   logger.Logger
}

func New(p Params) *Checker {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Checker{
		session:  p.Session,
		config:   p.Config,
		recorder: p.Recorder,
		clock:    clk,
		logger:   logger.OrNop(p.Logger),
		after:    time.After,
	}
}

// Start schedules the daily pass until Stop is called or ctx ends.
func (c *Checker) Start(ctx context.Context) error {
	if c.session == nil || c.config == nil {
		return errors.New("inactivity: session and config are required")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop cancels a running pass and waits for the loop to exit.
func (c *Checker) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
}

func (c *Checker) run(ctx context.Context) {
	defer close(c.done)

	for {
		cfg := c.config.Get().Inactivity
		now := c.clock.Now()
		next := timeutil.NextDailyRun(now, cfg.RunHour, timeutil.LoadLocation(cfg.Timezone))
		c.logger.InfoW("inactivity check scheduled", "at", next, "in", next.Sub(now).Round(time.Second))

		select {
		case <-ctx.Done():
			return
		case <-c.after(next.Sub(now)):
		}

		if c.config.Get().Inactivity.Disabled {
			c.logger.InfoW("inactivity check disabled, skipping")
			continue
		}

		summary, err := c.RunOnce(ctx)
		if err != nil {
			c.logger.ErrorW("inactivity check failed", "error", err)
			continue
		}
		c.logger.InfoW("inactivity check finished",
			"checked", summary.Checked,
			"reminded", summary.Reminded,
			"closed", summary.Closed,
		)
	}
}

// RunOnce checks every configured forum now. Failures on single threads are
// logged and skipped.
func (c *Checker) RunOnce(ctx context.Context) (Summary, error) {
	cfg := c.config.Get()
	forums := cfg.Forums.List()
	if len(forums) == 0 {
		return Summary{}, nil
	}

	active, err := c.session.GuildThreadsActive(cfg.Discord.GuildID)
	if err != nil {
		return Summary{}, fmt.Errorf("list active threads: %w", err)
	}

	var (
		mu    sync.Mutex
		total Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, forum := range forums {
		forum := forum
		g.Go(func() error {
			s := c.checkForum(gctx, cfg, forum, active.Threads)
			mu.Lock()
			total.Checked += s.Checked
			total.Reminded += s.Reminded
			total.Closed += s.Closed
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func (c *Checker) checkForum(ctx context.Context, cfg *config.AppConfig, forum config.Forum, threads []*discordgo.Channel) Summary {
	log := c.logger.With("forum", forum.Name, "forum_id", forum.ID)

	parent, err := c.session.Channel(forum.ID)
	if err != nil {
		log.WarnW("forum not found", "error", err)
		return Summary{}
	}

	policy := Policy{
		ReminderAfterDays: cfg.Inactivity.ReminderAfterDays,
		CloseAfterDays:    cfg.Inactivity.CloseAfterDays,
	}

	var s Summary
	for _, thread := range threads {
		if ctx.Err() != nil {
			break
		}
		if thread.ParentID != forum.ID {
			continue
		}
		if thread.ThreadMetadata != nil && thread.ThreadMetadata.Archived {
			continue
		}
		if discord.IsPinned(thread) || discord.HasTag(thread, parent, cfg.Forums.ClosedTag) {
			continue
		}
		s.Checked++

		msgs, err := c.session.ChannelMessages(thread.ID, cfg.Inactivity.HistoryLimit, "", "", "")
		if err != nil {
			log.ErrorW("failed to read thread history", "thread_id", thread.ID, "error", err)
			continue
		}

		decision := Evaluate(msgs, c.clock.Now(), policy)
		if decision.Remind {
			if err := c.remind(ctx, thread, forum, policy); err != nil {
				log.ErrorW("failed to send reminder", "thread_id", thread.ID, "error", err)
			} else {
				s.Reminded++
			}
		}
		if decision.Close {
			if err := c.close(ctx, thread, parent, forum, policy, cfg.Forums.ClosedTag); err != nil {
				log.ErrorW("failed to auto-close thread", "thread_id", thread.ID, "error", err)
			} else {
				s.Closed++
			}
		}
	}
	return s
}

func (c *Checker) remind(ctx context.Context, thread *discordgo.Channel, forum config.Forum, p Policy) error {
	embed := discord.Embed(discord.ColorWarning, "", "", discord.Field("Inactivity notice", fmt.Sprintf(
		"It looks like your issue hasn't received a reply in the last %d days.\n"+
			"Has your issue been resolved? If so, please close this post using the `/close` command.\n"+
			"If not, please try to provide more information or ping the moderators.\n\n"+
			"> Note: If this post stays inactive for a total of %d days it will be closed automatically.",
		p.ReminderAfterDays, p.CloseAfterDays)))

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if thread.OwnerID != "" {
		msg.Content = "<@" + thread.OwnerID + ">"
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{thread.OwnerID}}
	}
	if _, err := c.session.ChannelMessageSendComplex(thread.ID, msg); err != nil {
		return err
	}

	c.logger.InfoW("sent inactivity reminder", "thread_id", thread.ID, "thread", thread.Name)
	c.record(ctx, thread, forum, models.ThreadActionRemind)
	return nil
}

func (c *Checker) close(ctx context.Context, thread, parent *discordgo.Channel, forum config.Forum, p Policy, closedTag string) error {
	// Without the tag the thread is checked again tomorrow, so nothing is
	// posted until tagging works.
	if _, err := discord.ApplyTag(c.session, thread, parent, closedTag); err != nil {
		return err
	}

	embed := discord.Embed(discord.ColorError, "Post closed", fmt.Sprintf(
		"This post has been automatically closed due to inactivity (%d+ days with no user response).\n\n"+
			"If you still need help, feel free to create a new post in the %s forum.",
		p.CloseAfterDays, forum.Name))
	if _, err := c.session.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		c.logger.WarnW("failed to send closure message", "thread_id", thread.ID, "error", err)
	}

	if err := discord.LockAndArchive(c.session, thread.ID); err != nil {
		return err
	}

	c.logger.InfoW("auto-closed thread", "thread_id", thread.ID, "thread", thread.Name)
	c.record(ctx, thread, forum, models.ThreadActionClose)
	return nil
}

func (c *Checker) record(ctx context.Context, thread *discordgo.Channel, forum config.Forum, kind models.ThreadActionKind) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.InsertThreadAction(ctx, models.ThreadAction{
		ThreadID: thread.ID,
		Forum:    forum.Name,
		Action:   kind,
		At:       c.clock.Now(),
	})
	if err != nil {
		c.logger.WarnW("failed to record thread action", "thread_id", thread.ID, "action", string(kind), "error", err)
	}
}
