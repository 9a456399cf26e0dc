package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the embedded store. Timestamps are stored as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() { _ = s.db.Close() }

var sqliteSchema = []string{
	`PRAGMA journal_mode=WAL`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL,
		text        TEXT NOT NULL,
		remind_at   INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		fired       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_fired ON reminders (fired, remind_at)`,

	`CREATE TABLE IF NOT EXISTS entries (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id         INTEGER NOT NULL,
		raw_text        TEXT NOT NULL,
		formatted_text  TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		tags            TEXT NOT NULL DEFAULT '[]',
		priority        TEXT NOT NULL DEFAULT '',
		summary         TEXT NOT NULL DEFAULT '',
		action_items    TEXT NOT NULL DEFAULT '[]',
		sentiment       TEXT NOT NULL DEFAULT '',
		duration        REAL NOT NULL DEFAULT 0,
		source          TEXT NOT NULL DEFAULT 'voice',
		mode            TEXT NOT NULL DEFAULT 'dictation',
		created_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries (user_id, created_at)`,
}

// Migrate creates the tables. It is idempotent.
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema error: %w\nstmt: %.80s", err, stmt)
		}
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *SQLite) CreateReminder(ctx context.Context, userID int64, text string, remindAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, text, remind_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, text, millis(remindAt), millis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

const sqliteReminderColumns = `id, user_id, text, remind_at, created_at, fired`

func (s *SQLite) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+sqliteReminderColumns+` FROM reminders
		 WHERE fired = 0 AND remind_at <= ?
		 ORDER BY remind_at, id`, millis(now))
}

func (s *SQLite) PendingReminders(ctx context.Context, userID int64) ([]Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+sqliteReminderColumns+` FROM reminders
		 WHERE fired = 0 AND user_id = ?
		 ORDER BY remind_at, id`, userID)
}

func (s *SQLite) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reminder query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Reminder
	for rows.Next() {
		var (
			r                   Reminder
			remindAt, createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &remindAt, &createdAt, &r.Fired); err != nil {
			return nil, fmt.Errorf("reminder scan: %w", err)
		}
		r.RemindAt, r.CreatedAt = fromMillis(remindAt), fromMillis(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminder rows: %w", err)
	}
	return out, nil
}

func (s *SQLite) MarkFired(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET fired = 1 WHERE id = ? AND fired = 0`, id)
	if err != nil {
		return false, fmt.Errorf("reminder mark fired (id=%d): %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reminder mark fired (id=%d): %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLite) SaveEntry(ctx context.Context, e Entry) (int64, error) {
	tags, _ := json.Marshal(orEmpty(e.Tags))
	items, _ := json.Marshal(orEmpty(e.ActionItems))
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries
			(user_id, raw_text, formatted_text, category, tags, priority, summary,
			 action_items, sentiment, duration, source, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.RawText, e.FormattedText, e.Category, string(tags), e.Priority, e.Summary,
		string(items), e.Sentiment, e.Duration, e.Source, e.Mode, millis(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

const sqliteEntryColumns = `id, user_id, raw_text, formatted_text, category, tags, priority, summary,
	action_items, sentiment, duration, source, mode, created_at`

func (s *SQLite) EntriesSince(ctx context.Context, userID int64, since time.Time) ([]Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM entries
		 WHERE user_id = ? AND created_at >= ?
		 ORDER BY created_at, id`, userID, millis(since))
}

func (s *SQLite) History(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM entries
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, userID, limit)
}

// Search matches in Go: SQLite's lower() and LIKE fold ASCII only, and most
// entries are Cyrillic.
func (s *SQLite) Search(ctx context.Context, userID int64, query string, limit int) ([]Entry, error) {
	all, err := s.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM entries
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []Entry
	for _, e := range all {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(e.RawText), needle) ||
			strings.Contains(strings.ToLower(e.FormattedText), needle) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *SQLite) EntriesByMode(ctx context.Context, userID int64, mode string, since time.Time, limit int) ([]Entry, error) {
	var cutoff int64
	if !since.IsZero() {
		cutoff = millis(since)
	}
	return s.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM entries
		 WHERE user_id = ? AND mode = ? AND created_at >= ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, userID, mode, cutoff, limit)
}

func (s *SQLite) MoodStats(ctx context.Context, userID int64, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment, COUNT(*) FROM entries
		 WHERE user_id = ? AND created_at >= ? AND sentiment <> ''
		 GROUP BY sentiment`, userID, millis(since))
	if err != nil {
		return nil, fmt.Errorf("mood query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := map[string]int{}
	for rows.Next() {
		var (
			sentiment string
			n         int
		)
		if err := rows.Scan(&sentiment, &n); err != nil {
			return nil, fmt.Errorf("mood scan: %w", err)
		}
		stats[sentiment] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mood rows: %w", err)
	}
	return stats, nil
}

func (s *SQLite) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entry query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			tags, items string
			createdAt   int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.RawText, &e.FormattedText, &e.Category, &tags,
			&e.Priority, &e.Summary, &items, &e.Sentiment, &e.Duration, &e.Source,
			&e.Mode, &createdAt); err != nil {
			return nil, fmt.Errorf("entry scan: %w", err)
		}
		_ = json.Unmarshal([]byte(tags), &e.Tags)
		_ = json.Unmarshal([]byte(items), &e.ActionItems)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entry rows: %w", err)
	}
	return out, nil
}
