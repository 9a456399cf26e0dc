package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type Postgres struct {
	db querier
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to url and pings the server.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Postgres{db: pool}, nil
}

func (p *Postgres) Close() { p.db.Close() }

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL,
		text        TEXT NOT NULL,
		remind_at   TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		fired       BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS reminders_pending_idx
		ON reminders (remind_at) WHERE NOT fired`,

	`CREATE TABLE IF NOT EXISTS entries (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL,
		raw_text        TEXT NOT NULL,
		formatted_text  TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		tags            TEXT[] NOT NULL DEFAULT '{}',
		priority        TEXT NOT NULL DEFAULT '',
		summary         TEXT NOT NULL DEFAULT '',
		action_items    TEXT[] NOT NULL DEFAULT '{}',
		sentiment       TEXT NOT NULL DEFAULT '',
		duration        DOUBLE PRECISION NOT NULL DEFAULT 0,
		source          TEXT NOT NULL DEFAULT 'voice',
		mode            TEXT NOT NULL DEFAULT 'dictation',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS entries_user_created_idx
		ON entries (user_id, created_at)`,
}

// Migrate creates the tables. It is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, s := range postgresSchema {
		if _, err := p.db.Exec(ctx, s); err != nil {
			return fmt.Errorf("schema error: %w\nstmt: %.80s", err, s)
		}
	}
	return nil
}

func (p *Postgres) CreateReminder(ctx context.Context, userID int64, text string, remindAt time.Time) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		`INSERT INTO reminders (user_id, text, remind_at) VALUES ($1, $2, $3) RETURNING id`,
		userID, text, remindAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

const reminderColumns = `id, user_id, text, remind_at, created_at, fired`

func (p *Postgres) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return p.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE NOT fired AND remind_at <= $1
		 ORDER BY remind_at, id`, now)
}

func (p *Postgres) PendingReminders(ctx context.Context, userID int64) ([]Reminder, error) {
	return p.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE NOT fired AND user_id = $1
		 ORDER BY remind_at, id`, userID)
}

func (p *Postgres) queryReminders(ctx context.Context, sql string, args ...any) ([]Reminder, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("reminder query: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &r.RemindAt, &r.CreatedAt, &r.Fired); err != nil {
			return nil, fmt.Errorf("reminder scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminder rows: %w", err)
	}
	return out, nil
}

func (p *Postgres) MarkFired(ctx context.Context, id int64) (bool, error) {
	tag, err := p.db.Exec(ctx, `UPDATE reminders SET fired = true WHERE id = $1 AND NOT fired`, id)
	if err != nil {
		return false, fmt.Errorf("reminder mark fired (id=%d): %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) SaveEntry(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		`INSERT INTO entries
			(user_id, raw_text, formatted_text, category, tags, priority, summary,
			 action_items, sentiment, duration, source, mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		e.UserID, e.RawText, e.FormattedText, e.Category, orEmpty(e.Tags), e.Priority, e.Summary,
		orEmpty(e.ActionItems), e.Sentiment, e.Duration, e.Source, e.Mode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

const entryColumns = `id, user_id, raw_text, formatted_text, category, tags, priority, summary,
	action_items, sentiment, duration, source, mode, created_at`

func (p *Postgres) EntriesSince(ctx context.Context, userID int64, since time.Time) ([]Entry, error) {
	return p.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at, id`, userID, since)
}

func (p *Postgres) History(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	return p.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit)
}

func (p *Postgres) Search(ctx context.Context, userID int64, query string, limit int) ([]Entry, error) {
	return p.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE user_id = $1
		   AND (raw_text ILIKE '%' || $2 || '%' OR formatted_text ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`, userID, query, limit)
}

func (p *Postgres) EntriesByMode(ctx context.Context, userID int64, mode string, since time.Time, limit int) ([]Entry, error) {
	return p.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE user_id = $1 AND mode = $2 AND created_at >= $3
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`, userID, mode, since, limit)
}

func (p *Postgres) MoodStats(ctx context.Context, userID int64, since time.Time) (map[string]int, error) {
	rows, err := p.db.Query(ctx,
		`SELECT sentiment, COUNT(*) FROM entries
		 WHERE user_id = $1 AND created_at >= $2 AND sentiment <> ''
		 GROUP BY sentiment`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("mood query: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var (
			sentiment string
			n         int64
		)
		if err := rows.Scan(&sentiment, &n); err != nil {
			return nil, fmt.Errorf("mood scan: %w", err)
		}
		stats[sentiment] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mood rows: %w", err)
	}
	return stats, nil
}

func (p *Postgres) queryEntries(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("entry query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.RawText, &e.FormattedText, &e.Category, &e.Tags,
			&e.Priority, &e.Summary, &e.ActionItems, &e.Sentiment, &e.Duration, &e.Source,
			&e.Mode, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("entry scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entry rows: %w", err)
	}
	return out, nil
}
