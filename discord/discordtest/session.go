// Package discordtest provides an in-memory Discord session for tests.
package discordtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound is returned for unknown channels.
var ErrNotFound = errors.New("discordtest: not found")

// SentMessage is a message posted through ChannelMessageSendComplex.
type SentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

// ChannelEdit is a recorded ChannelEdit call.
type ChannelEdit struct {
	ChannelID string
	Data      *discordgo.ChannelEdit
}

// Reaction is a recorded MessageReactionAdd or MessageReactionRemove call.
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
	UserID    string
}

// Session records every call and serves channels and history from maps.
// History slices are ordered newest first, as Discord returns them.
type Session struct {
	mu sync.Mutex

	Channels    map[string]*discordgo.Channel
	GuildList   []*discordgo.Channel
	History     map[string][]*discordgo.Message
	Threads     []*discordgo.Channel
	FailDelete  map[string]bool
	FailEdit    bool
	FailHistory map[string]bool
	FailSend    bool

	Opened       bool
	Closed       bool
	Handlers     []interface{}
	Status       *discordgo.UpdateStatusData
	Commands     []*discordgo.ApplicationCommand
	CommandApp   string
	Responses    []*discordgo.InteractionResponse
	Edits        []*discordgo.WebhookEdit
	Sent         []SentMessage
	Deleted      []string
	Edited       []ChannelEdit
	MessageEdits []*discordgo.MessageEdit
	Reacted      []Reaction
	Unreacted    []Reaction
	HistoryHits  int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		Channels:    make(map[string]*discordgo.Channel),
		History:     make(map[string][]*discordgo.Message),
		FailDelete:  make(map[string]bool),
		FailHistory: make(map[string]bool),
	}
}

// AddChannel registers a channel for Channel lookups.
func (s *Session) AddChannel(ch *discordgo.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Channels[ch.ID] = ch
}

func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Opened = true
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

func (s *Session) AddHandler(handler interface{}) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Handlers = append(s.Handlers, handler)
	return func() {}
}

func (s *Session) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = &usd
	return nil
}

func (s *Session) ApplicationCommandBulkOverwrite(appID, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CommandApp = appID
	s.Commands = commands
	return commands, nil
}

func (s *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, resp)
	return nil
}

func (s *Session) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Edits = append(s.Edits, edit)
	return &discordgo.Message{}, nil
}

func (s *Session) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.Channels[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	return ch, nil
}

func (s *Session) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEdit {
		return nil, errors.New("discordtest: edit failed")
	}
	s.Edited = append(s.Edited, ChannelEdit{ChannelID: channelID, Data: data})
	ch := s.Channels[channelID]
	if ch == nil {
		ch = &discordgo.Channel{ID: channelID}
	}
	return ch, nil
}

// ChannelMessages pages through History the way the REST endpoint does
// for the before cursor.
func (s *Session) ChannelMessages(channelID string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryHits++
	if s.FailHistory[channelID] {
		return nil, errors.New("discordtest: missing access")
	}

	msgs := s.History[channelID]
	start := 0
	if beforeID != "" {
		start = len(msgs)
		for i, m := range msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(msgs))
	if start >= end {
		return nil, nil
	}
	return append([]*discordgo.Message(nil), msgs[start:end]...), nil
}

func (s *Session) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete[messageID] {
		return errors.New("discordtest: delete failed")
	}
	s.Deleted = append(s.Deleted, messageID)
	return nil
}

// ChannelMessageSendComplex records the message and returns it with the id
// sent-<n>, n counting from 1.
func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSend {
		return nil, errors.New("discordtest: send failed")
	}
	s.Sent = append(s.Sent, SentMessage{ChannelID: channelID, Data: data})
	return &discordgo.Message{ID: fmt.Sprintf("sent-%d", len(s.Sent)), ChannelID: channelID}, nil
}

func (s *Session) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MessageEdits = append(s.MessageEdits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (s *Session) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reacted = append(s.Reacted, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID})
	return nil
}

func (s *Session) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unreacted = append(s.Unreacted, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID, UserID: userID})
	return nil
}

func (s *Session) GuildChannels(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GuildList, nil
}

func (s *Session) GuildThreadsActive(_ string, _ ...discordgo.RequestOption) (*discordgo.ThreadsList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &discordgo.ThreadsList{Threads: s.Threads}, nil
}

// Snapshot runs fn with the session locked.
func (s *Session) Snapshot(fn func(s *Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
