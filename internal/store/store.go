// Package store persists reminders and dictation entries. Postgres (pgx) and
// SQLite (modernc) implementations share one contract.
package store

import (
	"context"
	"time"
)

// Reminder is a scheduled message. Fired flips false→true exactly once and
// rows are never deleted.
type Reminder struct {
	ID        int64
	UserID    int64
	Text      string
	RemindAt  time.Time
	CreatedAt time.Time
	Fired     bool
}

// Entry is one saved transcription.
type Entry struct {
	ID            int64
	UserID        int64
	RawText       string
	FormattedText string
	Category      string
	Tags          []string
	Priority      string
	Summary       string
	ActionItems   []string
	Sentiment     string
	Duration      float64 // seconds of audio
	Source        string  // voice | text
	Mode          string
	CreatedAt     time.Time
}

// Text returns the formatted text, or the raw text when formatting failed.
func (e Entry) Text() string {
	if e.FormattedText != "" {
		return e.FormattedText
	}
	return e.RawText
}

type Store interface {
	CreateReminder(ctx context.Context, userID int64, text string, remindAt time.Time) (int64, error)
	// DueReminders lists unfired reminders with remind_at <= now, earliest first.
	DueReminders(ctx context.Context, now time.Time) ([]Reminder, error)
	// MarkFired flips fired for id. It reports false when the reminder was
	// already fired (or does not exist), so concurrent pollers cannot both win.
	MarkFired(ctx context.Context, id int64) (bool, error)
	// PendingReminders lists the user's unfired reminders, earliest first.
	PendingReminders(ctx context.Context, userID int64) ([]Reminder, error)

	SaveEntry(ctx context.Context, e Entry) (int64, error)
	// EntriesSince lists the user's entries created at or after since, oldest first.
	EntriesSince(ctx context.Context, userID int64, since time.Time) ([]Entry, error)
	// History lists the user's latest entries, newest first.
	History(ctx context.Context, userID int64, limit int) ([]Entry, error)
	// Search finds entries whose text contains query, newest first.
	Search(ctx context.Context, userID int64, query string, limit int) ([]Entry, error)
	// EntriesByMode lists the user's entries saved in mode at or after since,
	// newest first. A zero since means no lower bound.
	EntriesByMode(ctx context.Context, userID int64, mode string, since time.Time, limit int) ([]Entry, error)
	// MoodStats counts the user's entries per sentiment since the cutoff.
	// Entries without a sentiment are not counted.
	MoodStats(ctx context.Context, userID int64, since time.Time) (map[string]int, error)

	Close()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
