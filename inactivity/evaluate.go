package inactivity

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/timeutil"
)

// Policy holds the inactivity thresholds in whole days.
type Policy struct {
	ReminderAfterDays int
	CloseAfterDays    int
}

// Decision is what should happen to a thread.
type Decision struct {
	Remind bool
	Close  bool
}

// None reports whether the thread is left alone.
func (d Decision) None() bool {
	return !d.Remind && !d.Close
}

// Evaluate decides on a thread from its recent history, newest first.
//
// A reminder is due when the newest message of any author, the bot's own
// reminders included, is between the reminder and close thresholds old.
// The thread is closed once the newest message from a human is at least the
// close threshold old. Threads without any human message are left alone.
func Evaluate(messages []*discordgo.Message, now time.Time, p Policy) Decision {
	if len(messages) == 0 {
		return Decision{}
	}

	var latestUser *discordgo.Message
	for _, m := range messages {
		if m.Author != nil && !m.Author.Bot {
			latestUser = m
			break
		}
	}
	if latestUser == nil {
		return Decision{}
	}

	var d Decision
	sinceAny := timeutil.DaysSince(messages[0].Timestamp, now)
	if sinceAny >= p.ReminderAfterDays && sinceAny < p.CloseAfterDays {
		d.Remind = true
	}
	if timeutil.DaysSince(latestUser.Timestamp, now) >= p.CloseAfterDays {
		d.Close = true
	}
	return d
}
