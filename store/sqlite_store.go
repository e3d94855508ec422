package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/timeutil"
)

var _ Store = (*SQLiteStore)(nil)

//go:embed schema/migrations/*.sql
var migrations embed.FS

const defaultDebounce = 5 * time.Second

// timeLayout is fixed width so timestamps compare correctly as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// memoryDBSeq gives each store its own named in-memory database.
var memoryDBSeq atomic.Int64

// SQLiteStore keeps the working set in an in-memory SQLite database and
// snapshots it to snapshotPath through the sqlite backup API. Writes
// schedule a debounced flush; Shutdown flushes whatever is still dirty.
type SQLiteStore struct {
	mu           sync.RWMutex
	db           *sql.DB
	snapshotPath string
	logger       logger.Logger

	// Debounced flush
	flushDebounce time.Duration
	flushTimer    *time.Timer
	flushMu       sync.Mutex
	dirty         bool
	ctx           context.Context
	cancel        context.CancelFunc
}

type Params struct {
	Path   string
	Logger logger.Logger
}

func NewSQLiteStore(p Params) *SQLiteStore {
	return &SQLiteStore{
		snapshotPath:  p.Path,
		flushDebounce: defaultDebounce,
		logger:        logger.OrNop(p.Logger),
	}
}

// SetFlushDebounce sets the debounce duration for disk flushes.
// Must be called before Open().
func (s *SQLiteStore) SetFlushDebounce(d time.Duration) {
	s.flushDebounce = d
}

func (s *SQLiteStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("file:mcsm_bot_%d?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000",
		memoryDBSeq.Add(1))
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	database.SetConnMaxLifetime(0)

	if err = database.PingContext(ctx); err != nil {
		_ = database.Close()
		return err
	}

	s.db = database
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s.applyMigrations(ctx)
}

// Close closes the database without flushing. Use Shutdown for graceful shutdown.
func (s *SQLiteStore) Close() error {
	s.flushMu.Lock()
	s.stopFlushTimer()
	s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Shutdown performs a final flush to disk and closes the database.
func (s *SQLiteStore) Shutdown(ctx context.Context) error {
	s.flushMu.Lock()
	s.stopFlushTimer()
	dirty := s.dirty
	s.flushMu.Unlock()

	if dirty && s.snapshotPath != "" {
		if err := s.FlushToDisk(ctx, s.snapshotPath); err != nil {
			s.logger.ErrorW("shutdown flush failed", "path", s.snapshotPath, "error", err)
		} else {
			s.flushMu.Lock()
			s.dirty = false
			s.flushMu.Unlock()
		}
	}

	return s.Close()
}

func (s *SQLiteStore) RestoreFromDisk(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	if err := s.backup(ctx, fileDB, s.db); err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}

	s.logger.InfoW("store restored from disk", "path", path)
	return s.applyMigrations(ctx)
}

func (s *SQLiteStore) FlushToDisk(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked(ctx, path)
}

func (s *SQLiteStore) scheduleFlush() {
	if s.snapshotPath == "" {
		return
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.dirty = true
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}

	s.flushTimer = time.AfterFunc(s.flushDebounce, s.performScheduledFlush)
}

func (s *SQLiteStore) performScheduledFlush() {
	s.flushMu.Lock()
	if !s.dirty {
		s.flushMu.Unlock()
		return
	}
	s.flushMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	if err := s.FlushToDisk(ctx, s.snapshotPath); err != nil {
		s.logger.ErrorW("scheduled flush failed", "path", s.snapshotPath, "error", err)
		return
	}

	s.flushMu.Lock()
	s.dirty = false
	s.flushMu.Unlock()
	s.logger.DebugW("store flushed to disk", "path", s.snapshotPath)
}

func (s *SQLiteStore) stopFlushTimer() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}

func (s *SQLiteStore) InsertShortcut(ctx context.Context, shortcut models.Shortcut) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	id := shortcut.NormalizedID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shortcuts (id, description, message_title, message_description) VALUES (?, ?, ?, ?)`,
		id, shortcut.Description, shortcut.MessageTitle, shortcut.MessageDescription,
	)
	if err != nil {
		if isConstraint(err) {
			return ErrExists
		}
		s.logger.ErrorW("failed to insert shortcut", "id", id, "error", err)
		return err
	}

	s.scheduleFlush()
	return nil
}

func (s *SQLiteStore) DeleteShortcut(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM shortcuts WHERE id = ?`, models.NormalizeID(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	s.scheduleFlush()
	return nil
}

func (s *SQLiteStore) GetShortcut(ctx context.Context, id string) (*models.Shortcut, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	var sc models.Shortcut
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, message_title, message_description FROM shortcuts WHERE id = ?`,
		models.NormalizeID(id),
	).Scan(&sc.ID, &sc.Description, &sc.MessageTitle, &sc.MessageDescription)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *SQLiteStore) ListShortcuts(ctx context.Context) ([]models.Shortcut, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, message_title, message_description FROM shortcuts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Shortcut
	for rows.Next() {
		var sc models.Shortcut
		if err := rows.Scan(&sc.ID, &sc.Description, &sc.MessageTitle, &sc.MessageDescription); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountShortcuts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shortcuts`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) InsertPurgeRecord(ctx context.Context, record models.PurgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purge_records
		   (invocation_id, moderator_id, target_user_id, channel_id, days, message_limit, deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.InvocationID, record.ModeratorID, record.TargetUserID, record.ChannelID,
		record.Days, record.Limit, record.Deleted, createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraint(err) {
			return ErrExists
		}
		return err
	}

	s.logger.DebugW("purge record stored",
		"invocation_id", record.InvocationID,
		"target", record.TargetUserID,
		"deleted", record.Deleted,
	)
	s.scheduleFlush()
	return nil
}

// ListPurgeRecords returns the newest records first.
func (s *SQLiteStore) ListPurgeRecords(ctx context.Context, limit int) ([]models.PurgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT invocation_id, moderator_id, target_user_id, channel_id, days, message_limit, deleted, created_at
		   FROM purge_records ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PurgeRecord
	for rows.Next() {
		var rec models.PurgeRecord
		var createdAt string
		if err := rows.Scan(&rec.InvocationID, &rec.ModeratorID, &rec.TargetUserID, &rec.ChannelID,
			&rec.Days, &rec.Limit, &rec.Deleted, &createdAt); err != nil {
			return nil, err
		}
		if t, err := timeutil.ParseRFC3339(createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertThreadAction(ctx context.Context, action models.ThreadAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	at := action.At
	if at.IsZero() {
		at = time.Now()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO thread_actions (thread_id, forum, action, at) VALUES (?, ?, ?, ?)`,
		action.ThreadID, action.Forum, string(action.Action), at.UTC().Format(timeLayout),
	); err != nil {
		return err
	}

	s.scheduleFlush()
	return nil
}

func (s *SQLiteStore) CountThreadActionsSince(ctx context.Context, kind models.ThreadActionKind, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM thread_actions WHERE action = ? AND at >= ?`,
		string(kind), since.UTC().Format(timeLayout),
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) InsertSuggestion(ctx context.Context, suggestion models.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	createdAt := suggestion.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (thread_id, message_id, author_id, created_at) VALUES (?, ?, ?, ?)`,
		suggestion.ThreadID, suggestion.MessageID, suggestion.AuthorID, createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraint(err) {
			return ErrExists
		}
		return err
	}

	s.scheduleFlush()
	return nil
}

// SuggestionByMessage finds the suggestion whose tally lives in messageID.
func (s *SQLiteStore) SuggestionByMessage(ctx context.Context, messageID string) (*models.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	var (
		sug       models.Suggestion
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, message_id, author_id, created_at FROM suggestions WHERE message_id = ?`,
		messageID,
	).Scan(&sug.ThreadID, &sug.MessageID, &sug.AuthorID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t, err := timeutil.ParseRFC3339(createdAt); err == nil {
		sug.CreatedAt = t
	}
	return &sug, nil
}

// DeleteSuggestion removes a suggestion and its votes.
func (s *SQLiteStore) DeleteSuggestion(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE thread_id = ?`, threadID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM suggestions WHERE thread_id = ?`, threadID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.scheduleFlush()
	return nil
}

// SetVote records the user's vote, replacing any earlier one.
func (s *SQLiteStore) SetVote(ctx context.Context, threadID, userID string, vote models.Vote, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	if at.IsZero() {
		at = time.Now()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO votes (thread_id, user_id, vote, at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (thread_id, user_id) DO UPDATE SET vote = excluded.vote, at = excluded.at`,
		threadID, userID, int(vote), at.UTC().Format(timeLayout),
	); err != nil {
		if isConstraint(err) {
			return ErrNotFound
		}
		return err
	}

	s.scheduleFlush()
	return nil
}

// ClearVote removes the user's vote if it is still the given one. Switching
// from one reaction to the other must not lose the new vote when the old
// reaction's removal arrives later.
func (s *SQLiteStore) ClearVote(ctx context.Context, threadID, userID string, vote models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM votes WHERE thread_id = ? AND user_id = ? AND vote = ?`,
		threadID, userID, int(vote),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.scheduleFlush()
	}
	return nil
}

func (s *SQLiteStore) TallyVotes(ctx context.Context, threadID string) (models.VoteTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return models.VoteTally{}, ErrClosed
	}

	var tally models.VoteTally
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(vote = 1), 0), COALESCE(SUM(vote = -1), 0) FROM votes WHERE thread_id = ?`,
		threadID,
	).Scan(&tally.Up, &tally.Down)
	return tally, err
}

func (s *SQLiteStore) flushLocked(ctx context.Context, path string) error {
	if s.db == nil {
		return ErrClosed
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	return s.backup(ctx, s.db, fileDB)
}

func (s *SQLiteStore) backup(ctx context.Context, src *sql.DB, dst *sql.DB) error {
	srcConn, err := src.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriver any) error {
		return srcConn.Raw(func(srcDriver any) error {
			dstSQLite, ok := dstDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected destination driver: %T", dstDriver)
			}
			srcSQLite, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected source driver: %T", srcDriver)
			}

			backup, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}
			defer backup.Finish()

			_, err = backup.Step(-1)
			return err
		})
	})
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}

	files, err := fs.Glob(migrations, "schema/migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(name), err)
		}
	}
	return nil
}

func sqliteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
