package store

import (
	"context"
	"errors"
	"time"

	"github.com/mcsmanager/mcsm_bot/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrExists is returned when inserting a duplicate key.
	ErrExists = errors.New("store: already exists")
	// ErrClosed is returned when the store has not been opened.
	ErrClosed = errors.New("store is not open")
)

type Store interface {
	Open(ctx context.Context) error
	Close() error

	RestoreFromDisk(ctx context.Context, path string) error
	FlushToDisk(ctx context.Context, path string) error

	InsertShortcut(ctx context.Context, shortcut models.Shortcut) error
	DeleteShortcut(ctx context.Context, id string) error
	GetShortcut(ctx context.Context, id string) (*models.Shortcut, error)
	ListShortcuts(ctx context.Context) ([]models.Shortcut, error)
	CountShortcuts(ctx context.Context) (int, error)

	InsertPurgeRecord(ctx context.Context, record models.PurgeRecord) error
	ListPurgeRecords(ctx context.Context, limit int) ([]models.PurgeRecord, error)

	InsertThreadAction(ctx context.Context, action models.ThreadAction) error
	CountThreadActionsSince(ctx context.Context, kind models.ThreadActionKind, since time.Time) (int, error)

	InsertSuggestion(ctx context.Context, suggestion models.Suggestion) error
	SuggestionByMessage(ctx context.Context, messageID string) (*models.Suggestion, error)
	DeleteSuggestion(ctx context.Context, threadID string) error
	SetVote(ctx context.Context, threadID, userID string, vote models.Vote, at time.Time) error
	ClearVote(ctx context.Context, threadID, userID string, vote models.Vote) error
	TallyVotes(ctx context.Context, threadID string) (models.VoteTally, error)
}
