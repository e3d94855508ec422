package models

import (
	"strings"
	"time"
)

// Shortcut is a canned embed that anyone can post with /shortcut execute.
type Shortcut struct {
	ID                 string `json:"id" yaml:"id"`
	Description        string `json:"description" yaml:"description"`
	MessageTitle       string `json:"messageTitle" yaml:"message_title"`
	MessageDescription string `json:"messageDescription" yaml:"message_description"`
}

// NormalizedID returns the lookup key for the shortcut.
func (s Shortcut) NormalizedID() string {
	return NormalizeID(s.ID)
}

// RenderedDescription converts literal "\n" sequences typed into a slash
// command option into real newlines.
func (s Shortcut) RenderedDescription() string {
	return strings.ReplaceAll(s.MessageDescription, `\n`, "\n")
}

// Complete reports whether every field is set.
func (s Shortcut) Complete() bool {
	return strings.TrimSpace(s.ID) != "" &&
		strings.TrimSpace(s.Description) != "" &&
		strings.TrimSpace(s.MessageTitle) != "" &&
		strings.TrimSpace(s.MessageDescription) != ""
}

// NormalizeID lower-cases and trims a shortcut id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// PurgeRecord is the audit entry written after a /purge run.
type PurgeRecord struct {
	InvocationID string    `json:"invocation_id"`
	ModeratorID  string    `json:"moderator_id"`
	TargetUserID string    `json:"target_user_id"`
	ChannelID    string    `json:"channel_id,omitempty"`
	Days         int       `json:"days,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Deleted      int       `json:"deleted"`
	CreatedAt    time.Time `json:"created_at"`
}

// ThreadActionKind identifies what the inactivity checker did to a thread.
type ThreadActionKind string

const (
	ThreadActionRemind ThreadActionKind = "remind"
	ThreadActionClose  ThreadActionKind = "close"
)

// ThreadAction records a reminder or auto-close on a forum thread.
type ThreadAction struct {
	ThreadID string           `json:"thread_id"`
	Forum    string           `json:"forum"`
	Action   ThreadActionKind `json:"action"`
	At       time.Time        `json:"at"`
}

// Suggestion is a post in the suggestion forum together with the bot
// message that carries its vote tally.
type Suggestion struct {
	ThreadID  string    `json:"thread_id"`
	MessageID string    `json:"message_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is a member's stance on a suggestion.
type Vote int

const (
	VoteDown Vote = -1
	VoteUp   Vote = 1
)

// VoteTally counts the votes on one suggestion.
type VoteTally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Score is upvotes minus downvotes.
func (t VoteTally) Score() int {
	return t.Up - t.Down
}
