package discord

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// IsPinned reports whether a forum thread is pinned.
func IsPinned(thread *discordgo.Channel) bool {
	return thread.Flags&discordgo.ChannelFlagPinned != 0
}

// FindTag returns the first available forum tag whose name contains name,
// case-insensitively.
func FindTag(forum *discordgo.Channel, name string) *discordgo.ForumTag {
	if forum == nil || name == "" {
		return nil
	}
	needle := strings.ToLower(name)
	for i := range forum.AvailableTags {
		if strings.Contains(strings.ToLower(forum.AvailableTags[i].Name), needle) {
			return &forum.AvailableTags[i]
		}
	}
	return nil
}

// HasTag reports whether the thread carries a tag whose name contains name.
// Applied tags are ids, so the parent forum is needed to resolve names.
func HasTag(thread, forum *discordgo.Channel, name string) bool {
	if forum == nil || name == "" {
		return false
	}
	needle := strings.ToLower(name)
	for _, tag := range forum.AvailableTags {
		if !strings.Contains(strings.ToLower(tag.Name), needle) {
			continue
		}
		if slices.Contains(thread.AppliedTags, tag.ID) {
			return true
		}
	}
	return false
}

// ApplyTag adds the forum tag matching tagName to the thread. It reports
// whether the thread was changed; a forum without such a tag is not an error.
func ApplyTag(s Session, thread, forum *discordgo.Channel, tagName string) (bool, error) {
	tag := FindTag(forum, tagName)
	if tag == nil || slices.Contains(thread.AppliedTags, tag.ID) {
		return false, nil
	}

	tags := append(slices.Clone(thread.AppliedTags), tag.ID)
	if _, err := s.ChannelEdit(thread.ID, &discordgo.ChannelEdit{AppliedTags: &tags}); err != nil {
		return false, fmt.Errorf("apply tag %q to thread %s: %w", tag.Name, thread.ID, err)
	}
	thread.AppliedTags = tags
	return true, nil
}

// LockAndArchive locks the thread and archives it. Archived threads reject
// new messages, so anything to post must be sent first.
func LockAndArchive(s Session, threadID string) error {
	locked, archived := true, true
	if _, err := s.ChannelEdit(threadID, &discordgo.ChannelEdit{Locked: &locked, Archived: &archived}); err != nil {
		return fmt.Errorf("lock thread %s: %w", threadID, err)
	}
	return nil
}
