package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/store"
)

const (
	emojiUpvote   = "👍"
	emojiDownvote = "👎"
)

// VoteStore keeps suggestions and their votes.
type VoteStore interface {
	InsertSuggestion(ctx context.Context, suggestion models.Suggestion) error
	SuggestionByMessage(ctx context.Context, messageID string) (*models.Suggestion, error)
	DeleteSuggestion(ctx context.Context, threadID string) error
	SetVote(ctx context.Context, threadID, userID string, vote models.Vote, at time.Time) error
	ClearVote(ctx context.Context, threadID, userID string, vote models.Vote) error
	TallyVotes(ctx context.Context, threadID string) (models.VoteTally, error)
}

func voteFor(emoji string) models.Vote {
	switch emoji {
	case emojiUpvote:
		return models.VoteUp
	case emojiDownvote:
		return models.VoteDown
	}
	return 0
}

func emojiFor(vote models.Vote) string {
	if vote == models.VoteUp {
		return emojiUpvote
	}
	return emojiDownvote
}

func tallyEmbed(t models.VoteTally) *discordgo.MessageEmbed {
	color := ColorDefault
	switch {
	case t.Score() > 0:
		color = ColorSuccess
	case t.Score() < 0:
		color = ColorError
	}
	return Embed(color, "Votes", "React with "+emojiUpvote+" or "+emojiDownvote+" to vote on this suggestion.",
		InlineField(emojiUpvote+" Upvotes", strconv.Itoa(t.Up)),
		InlineField(emojiDownvote+" Downvotes", strconv.Itoa(t.Down)),
		InlineField("Score", fmt.Sprintf("%+d", t.Score())),
	)
}

// openSuggestion posts the tally message in a new suggestion thread and
// seeds it with both vote reactions.
func (c *DefaultDiscord) openSuggestion(ctx context.Context, thread *discordgo.Channel) {
	if c.votes == nil {
		return
	}
	log := c.logger.With("thread_id", thread.ID, "author_id", thread.OwnerID)

	msg, err := c.session.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{tallyEmbed(models.VoteTally{})},
	})
	if err != nil {
		log.ErrorW("failed to post vote tally", "error", err)
		return
	}

	err = c.votes.InsertSuggestion(ctx, models.Suggestion{
		ThreadID:  thread.ID,
		MessageID: msg.ID,
		AuthorID:  thread.OwnerID,
		CreatedAt: c.clock.Now(),
	})
	if err != nil {
		log.ErrorW("failed to store suggestion", "error", err)
		return
	}

	for _, emoji := range []string{emojiUpvote, emojiDownvote} {
		if err := c.session.MessageReactionAdd(thread.ID, msg.ID, emoji); err != nil {
			log.WarnW("failed to add vote reaction", "emoji", emoji, "error", err)
		}
	}
	log.InfoW("suggestion opened for voting", "message_id", msg.ID)
}

func (c *DefaultDiscord) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	c.recordVote(c.ctx, r.MessageReaction, true)
}

func (c *DefaultDiscord) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.MessageReaction == nil {
		return
	}
	c.recordVote(c.ctx, r.MessageReaction, false)
}

// recordVote applies a reaction change on a tally message. A member holds
// one vote: adding one reaction takes the other one away.
func (c *DefaultDiscord) recordVote(ctx context.Context, r *discordgo.MessageReaction, added bool) {
	vote := voteFor(r.Emoji.Name)
	if c.votes == nil || vote == 0 || r.UserID == "" || r.UserID == c.selfID() {
		return
	}

	sug, err := c.votes.SuggestionByMessage(ctx, r.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		c.logger.WarnW("failed to look up suggestion", "message_id", r.MessageID, "error", err)
		return
	}
	log := c.logger.With("thread_id", sug.ThreadID, "user_id", r.UserID, "vote", int(vote))

	// Tally edits are serialized so the last edit reflects the last vote.
	c.voteMu.Lock()
	defer c.voteMu.Unlock()

	if added {
		if err := c.votes.SetVote(ctx, sug.ThreadID, r.UserID, vote, c.clock.Now()); err != nil {
			log.ErrorW("failed to store vote", "error", err)
			return
		}
		if err := c.session.MessageReactionRemove(r.ChannelID, r.MessageID, emojiFor(-vote), r.UserID); err != nil {
			log.DebugW("failed to remove opposite reaction", "error", err)
		}
	} else if err := c.votes.ClearVote(ctx, sug.ThreadID, r.UserID, vote); err != nil {
		log.ErrorW("failed to clear vote", "error", err)
		return
	}

	c.refreshTally(ctx, log, sug)
}

func (c *DefaultDiscord) refreshTally(ctx context.Context, log logger.Logger, sug *models.Suggestion) {
	tally, err := c.votes.TallyVotes(ctx, sug.ThreadID)
	if err != nil {
		log.ErrorW("failed to tally votes", "error", err)
		return
	}

	embeds := []*discordgo.MessageEmbed{tallyEmbed(tally)}
	if _, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      sug.MessageID,
		Channel: sug.ThreadID,
		Embeds:  &embeds,
	}); err != nil {
		log.WarnW("failed to update vote tally", "error", err)
		return
	}
	log.DebugW("vote tally updated", "up", tally.Up, "down", tally.Down)
}
