package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	st := NewSQLiteStore(Params{Path: path})
	st.SetFlushDebounce(time.Hour)
	require.NoError(t, st.Open(context.Background()))
	return st
}

func TestSQLiteStoreShortcuts(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "")
	defer st.Close()

	sc := models.Shortcut{
		ID:                 "  Docker ",
		Description:        "docker install guide",
		MessageTitle:       "Docker",
		MessageDescription: `See the docs\nhttps://docs.mcsmanager.com`,
	}
	require.NoError(t, st.InsertShortcut(ctx, sc))

	dup := sc
	dup.ID = "DOCKER"
	assert.ErrorIs(t, st.InsertShortcut(ctx, dup), ErrExists)

	require.NoError(t, st.InsertShortcut(ctx, models.Shortcut{
		ID: "alpha", Description: "a", MessageTitle: "A", MessageDescription: "a",
	}))

	got, err := st.GetShortcut(ctx, "DoCkEr")
	require.NoError(t, err)
	assert.Equal(t, "docker", got.ID)
	assert.Equal(t, sc.MessageDescription, got.MessageDescription)

	list, err := st.ListShortcuts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "docker", list[1].ID)

	n, err := st.CountShortcuts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.DeleteShortcut(ctx, "Docker"))
	assert.ErrorIs(t, st.DeleteShortcut(ctx, "docker"), ErrNotFound)

	_, err = st.GetShortcut(ctx, "docker")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePurgeRecords(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "")
	defer st.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.InsertPurgeRecord(ctx, models.PurgeRecord{
			InvocationID: id,
			ModeratorID:  "mod",
			TargetUserID: "target",
			Days:         7,
			Deleted:      i * 10,
			CreatedAt:    base.Add(time.Duration(i) * 500 * time.Millisecond),
		}))
	}
	assert.ErrorIs(t, st.InsertPurgeRecord(ctx, models.PurgeRecord{
		InvocationID: "a", ModeratorID: "mod", TargetUserID: "target",
	}), ErrExists)

	recs, err := st.ListPurgeRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].InvocationID)
	assert.Equal(t, 20, recs[0].Deleted)
	assert.Equal(t, "b", recs[1].InvocationID)
	assert.True(t, recs[1].CreatedAt.Equal(base.Add(500*time.Millisecond)))
}

func TestSQLiteStoreThreadActions(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "")
	defer st.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	actions := []models.ThreadAction{
		{ThreadID: "1", Forum: "support", Action: models.ThreadActionRemind, At: now.Add(-48 * time.Hour)},
		{ThreadID: "2", Forum: "support", Action: models.ThreadActionRemind, At: now.Add(-time.Hour)},
		{ThreadID: "3", Forum: "bug-report", Action: models.ThreadActionClose, At: now.Add(-time.Hour)},
	}
	for _, a := range actions {
		require.NoError(t, st.InsertThreadAction(ctx, a))
	}

	n, err := st.CountThreadActionsSince(ctx, models.ThreadActionRemind, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.CountThreadActionsSince(ctx, models.ThreadActionClose, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = st.InsertThreadAction(ctx, models.ThreadAction{ThreadID: "4", Forum: "x", Action: "archive"})
	assert.Error(t, err)
}

func TestSQLiteStoreSuggestionVotes(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "")
	defer st.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sug := models.Suggestion{ThreadID: "thread-1", MessageID: "tally-1", AuthorID: "author", CreatedAt: now}
	require.NoError(t, st.InsertSuggestion(ctx, sug))
	assert.ErrorIs(t, st.InsertSuggestion(ctx, sug), ErrExists)

	got, err := st.SuggestionByMessage(ctx, "tally-1")
	require.NoError(t, err)
	assert.Equal(t, sug, *got)
	_, err = st.SuggestionByMessage(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetVote(ctx, "thread-1", "alice", models.VoteUp, now))
	require.NoError(t, st.SetVote(ctx, "thread-1", "bob", models.VoteUp, now))
	require.NoError(t, st.SetVote(ctx, "thread-1", "carol", models.VoteDown, now))

	tally, err := st.TallyVotes(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{Up: 2, Down: 1}, tally)
	assert.Equal(t, 1, tally.Score())

	// bob switches sides; the late removal of his old reaction keeps the new vote.
	require.NoError(t, st.SetVote(ctx, "thread-1", "bob", models.VoteDown, now))
	require.NoError(t, st.ClearVote(ctx, "thread-1", "bob", models.VoteUp))
	tally, err = st.TallyVotes(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{Up: 1, Down: 2}, tally)

	require.NoError(t, st.ClearVote(ctx, "thread-1", "carol", models.VoteDown))
	tally, err = st.TallyVotes(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{Up: 1, Down: 1}, tally)

	assert.ErrorIs(t, st.SetVote(ctx, "missing", "alice", models.VoteUp, now), ErrNotFound)

	require.NoError(t, st.DeleteSuggestion(ctx, "thread-1"))
	assert.ErrorIs(t, st.DeleteSuggestion(ctx, "thread-1"), ErrNotFound)
	tally, err = st.TallyVotes(ctx, "thread-1")
	require.NoError(t, err)
	assert.Zero(t, tally)
}

func TestSQLiteStoreRestoreFromDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	st := openStore(t, path)
	require.NoError(t, st.InsertShortcut(ctx, models.Shortcut{
		ID: "faq", Description: "faq", MessageTitle: "FAQ", MessageDescription: "read it",
	}))
	// Shutdown flushes the dirty state even though the debounce has not fired.
	require.NoError(t, st.Shutdown(ctx))

	restored := openStore(t, path)
	defer restored.Close()
	require.NoError(t, restored.RestoreFromDisk(ctx, path))

	got, err := restored.GetShortcut(ctx, "FAQ")
	require.NoError(t, err)
	assert.Equal(t, "read it", got.MessageDescription)
}

func TestSQLiteStoreRestoreMissingFile(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "")
	defer st.Close()

	require.NoError(t, st.RestoreFromDisk(ctx, filepath.Join(t.TempDir(), "missing.db")))
	n, err := st.CountShortcuts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStoreDebouncedFlush(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	st := NewSQLiteStore(Params{Path: path})
	st.SetFlushDebounce(20 * time.Millisecond)
	require.NoError(t, st.Open(ctx))
	defer st.Close()

	require.NoError(t, st.InsertShortcut(ctx, models.Shortcut{
		ID: "x", Description: "x", MessageTitle: "x", MessageDescription: "x",
	}))

	assert.Eventually(t, func() bool {
		st.flushMu.Lock()
		defer st.flushMu.Unlock()
		return !st.dirty
	}, 2*time.Second, 10*time.Millisecond)
	assert.FileExists(t, path)
}

func TestSQLiteStoreClosed(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(Params{})

	_, err := st.ListShortcuts(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, st.InsertThreadAction(ctx, models.ThreadAction{}), ErrClosed)
	assert.NoError(t, st.Close())
}
