package inactivity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/clock"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/discord/discordtest"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func msg(id string, bot bool, age time.Duration) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		Author:    &discordgo.User{ID: "u-" + id, Bot: bot},
		Timestamp: now.Add(-age),
	}
}

func TestEvaluate(t *testing.T) {
	policy := Policy{ReminderAfterDays: 7, CloseAfterDays: 30}

	tests := []struct {
		name     string
		messages []*discordgo.Message
		want     Decision
	}{
		{name: "no messages", want: Decision{}},
		{
			name:     "only bot messages",
			messages: []*discordgo.Message{msg("1", true, 40*day)},
			want:     Decision{},
		},
		{
			name:     "recent activity",
			messages: []*discordgo.Message{msg("1", false, 6*day)},
			want:     Decision{},
		},
		{
			name:     "exactly reminder threshold",
			messages: []*discordgo.Message{msg("1", false, 7*day)},
			want:     Decision{Remind: true},
		},
		{
			name:     "just below reminder threshold",
			messages: []*discordgo.Message{msg("1", false, 7*day-time.Second)},
			want:     Decision{},
		},
		{
			name:     "recent bot reminder suppresses another",
			messages: []*discordgo.Message{msg("2", true, 2*day), msg("1", false, 9*day)},
			want:     Decision{},
		},
		{
			name:     "user silent past close threshold",
			messages: []*discordgo.Message{msg("1", false, 30*day)},
			want:     Decision{Close: true},
		},
		{
			name:     "old reminder and silent user",
			messages: []*discordgo.Message{msg("2", true, 8*day), msg("1", false, 31*day)},
			want:     Decision{Remind: true, Close: true},
		},
		{
			name:     "future timestamp counts as zero days",
			messages: []*discordgo.Message{msg("1", false, -day)},
			want:     Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.messages, now, policy)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.None(), got.None())
		})
	}
}

type actions struct {
	mu   sync.Mutex
	list []models.ThreadAction
}

func (a *actions) InsertThreadAction(_ context.Context, action models.ThreadAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = append(a.list, action)
	return nil
}

func (a *actions) kinds() map[string]models.ThreadActionKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]models.ThreadActionKind)
	for _, act := range a.list {
		out[act.ThreadID+"/"+string(act.Action)] = act.Action
	}
	return out
}

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Discord.Token = "token"
	cfg.Discord.GuildID = "guild"
	cfg.Forums.SupportForumID = "support"
	cfg.Forums.BugReportForumID = "bugs"
	cfg.Defaults()
	return cfg
}

func thread(id, parent string) *discordgo.Channel {
	return &discordgo.Channel{
		ID:       id,
		Name:     "thread " + id,
		Type:     discordgo.ChannelTypeGuildPublicThread,
		ParentID: parent,
		OwnerID:  "owner-" + id,
	}
}

func setup(t *testing.T) (*discordtest.Session, *actions, *Checker) {
	t.Helper()

	s := discordtest.NewSession()
	for _, id := range []string{"support", "bugs"} {
		s.AddChannel(&discordgo.Channel{
			ID:            id,
			Type:          discordgo.ChannelTypeGuildForum,
			AvailableTags: []discordgo.ForumTag{{ID: id + "-closed", Name: "Closed"}, {ID: id + "-bug", Name: "Bug"}},
		})
	}

	pinned := thread("pinned", "support")
	pinned.Flags = discordgo.ChannelFlagPinned
	closed := thread("closed", "support")
	closed.AppliedTags = []string{"support-closed"}
	archived := thread("archived", "bugs")
	archived.ThreadMetadata = &discordgo.ThreadMetadata{Archived: true}

	s.Threads = []*discordgo.Channel{
		thread("stale", "support"),
		thread("quiet", "bugs"),
		thread("fresh", "support"),
		thread("other", "general"),
		pinned, closed, archived,
	}
	old := []*discordgo.Message{msg("s1", false, 45*day)}
	s.History["stale"] = old
	s.History["quiet"] = []*discordgo.Message{msg("q1", false, 10*day)}
	s.History["fresh"] = []*discordgo.Message{msg("f1", false, time.Hour)}
	s.History["other"] = old
	s.History["pinned"] = old
	s.History["closed"] = old
	s.History["archived"] = old

	rec := &actions{}
	c := New(Params{
		Session:  s,
		Config:   config.NewHolder(testConfig()),
		Recorder: rec,
		Clock:    clock.NewFixed(now),
	})
	return s, rec, c
}

func TestRunOnce(t *testing.T) {
	s, rec, c := setup(t)

	summary, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 3, Reminded: 1, Closed: 1}, summary)

	assert.Equal(t, map[string]models.ThreadActionKind{
		"stale/close":  models.ThreadActionClose,
		"quiet/remind": models.ThreadActionRemind,
	}, rec.kinds())

	s.Snapshot(func(s *discordtest.Session) {
		byChannel := map[string][]*discordgo.MessageSend{}
		for _, sent := range s.Sent {
			byChannel[sent.ChannelID] = append(byChannel[sent.ChannelID], sent.Data)
		}

		require.Len(t, byChannel["quiet"], 1)
		reminder := byChannel["quiet"][0]
		assert.Equal(t, "<@owner-quiet>", reminder.Content)
		assert.Equal(t, "Inactivity notice", reminder.Embeds[0].Fields[0].Name)

		require.Len(t, byChannel["stale"], 1)
		assert.Equal(t, "Post closed", byChannel["stale"][0].Embeds[0].Title)
		assert.Contains(t, byChannel["stale"][0].Embeds[0].Description, "Support forum")

		var staleEdits []*discordgo.ChannelEdit
		for _, e := range s.Edited {
			if e.ChannelID == "stale" {
				staleEdits = append(staleEdits, e.Data)
			}
		}
		require.Len(t, staleEdits, 2)
		assert.Equal(t, []string{"support-closed"}, *staleEdits[0].AppliedTags)
		assert.True(t, *staleEdits[1].Locked)
		assert.True(t, *staleEdits[1].Archived)
	})
}

func TestRunOnceSkipsMissingForum(t *testing.T) {
	s, _, c := setup(t)
	s.Snapshot(func(s *discordtest.Session) { delete(s.Channels, "support") })

	summary, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 1, Reminded: 1}, summary)
}

func TestRunOnceKeepsGoingAfterEditFailure(t *testing.T) {
	s, rec, c := setup(t)
	s.Snapshot(func(s *discordtest.Session) { s.FailEdit = true })

	summary, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminded)
	assert.Zero(t, summary.Closed)
	assert.Equal(t, map[string]models.ThreadActionKind{"quiet/remind": models.ThreadActionRemind}, rec.kinds())

	// The closure notice waits until the thread could be tagged.
	s.Snapshot(func(s *discordtest.Session) {
		for _, sent := range s.Sent {
			assert.NotEqual(t, "stale", sent.ChannelID)
		}
	})
}

func TestStartRunsAtScheduledTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, _, c := setup(t)
	fire := make(chan time.Time, 1)
	fire <- now
	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	c.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		return fire
	}

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(waits) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()

	mu.Lock()
	// 12:00 UTC is the run hour itself, so the next run is a full day away.
	assert.Equal(t, day, waits[0])
	mu.Unlock()

	s.Snapshot(func(s *discordtest.Session) {
		assert.NotEmpty(t, s.Sent, fmt.Sprintf("expected a pass to run, history reads: %d", s.HistoryHits))
	})
}

func TestStartRequiresSession(t *testing.T) {
	c := New(Params{})
	assert.Error(t, c.Start(context.Background()))
}
