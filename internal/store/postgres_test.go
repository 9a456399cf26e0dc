package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return &Postgres{db: mock}, mock
}

func TestPostgresMigrate(t *testing.T) {
	p, mock := newMockPostgres(t)
	for range postgresSchema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, p.Migrate(context.Background()))
}

func TestPostgresMigrateError(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := p.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestPostgresCreateReminder(t *testing.T) {
	p, mock := newMockPostgres(t)
	at := time.Now().Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reminders (user_id, text, remind_at)`)).
		WithArgs(int64(7), "позвонить", at).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := p.CreateReminder(context.Background(), 7, "позвонить", at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestPostgresDueReminders(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "user_id", "text", "remind_at", "created_at", "fired"}).
		AddRow(int64(1), int64(7), "a", now.Add(-2*time.Minute), now.Add(-time.Hour), false).
		AddRow(int64(2), int64(7), "b", now.Add(-time.Minute), now.Add(-time.Hour), false)
	mock.ExpectQuery(`WHERE NOT fired AND remind_at <= \$1\s+ORDER BY remind_at, id`).
		WithArgs(now).
		WillReturnRows(rows)

	due, err := p.DueReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Text)
	assert.Equal(t, int64(2), due[1].ID)
}

func TestPostgresMarkFiredCompareAndSet(t *testing.T) {
	p, mock := newMockPostgres(t)
	update := regexp.QuoteMeta(`UPDATE reminders SET fired = true WHERE id = $1 AND NOT fired`)
	mock.ExpectExec(update).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(update).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := p.MarkFired(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.MarkFired(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresSaveEntryDefaultsSlices(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO entries`)).
		WithArgs(int64(7), "raw", "", "", []string{}, "", "", []string{}, "", 1.5, "voice", "dictation").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := p.SaveEntry(context.Background(), Entry{
		UserID: 7, RawText: "raw", Duration: 1.5, Source: "voice", Mode: "dictation",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestPostgresSearch(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now()
	cols := []string{"id", "user_id", "raw_text", "formatted_text", "category", "tags", "priority",
		"summary", "action_items", "sentiment", "duration", "source", "mode", "created_at"}
	mock.ExpectQuery(`ILIKE`).
		WithArgs(int64(7), "молоко", 5).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(1), int64(7), "купить молоко", "", "задача", []string{"покупки"}, "high",
			"", []string{}, "нейтральный", 2.0, "voice", "dictation", now,
		))

	found, err := p.Search(context.Background(), 7, "молоко", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"покупки"}, found[0].Tags)
	assert.Equal(t, "купить молоко", found[0].Text())
}

func TestPostgresQueryError(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`FROM reminders`).WithArgs(int64(7)).WillReturnError(errors.New("conn reset"))

	_, err := p.PendingReminders(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reminder query")
}

func TestPostgresEntriesByMode(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now()
	since := now.AddDate(0, 0, -7)
	cols := []string{"id", "user_id", "raw_text", "formatted_text", "category", "tags", "priority",
		"summary", "action_items", "sentiment", "duration", "source", "mode", "created_at"}
	mock.ExpectQuery(`WHERE user_id = \$1 AND mode = \$2 AND created_at >= \$3`).
		WithArgs(int64(7), "diary", since, 50).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(4), int64(7), "хороший день", "", "journal", []string{}, "",
			"", []string{}, "positive", 12.0, "voice", "diary", now,
		))

	diary, err := p.EntriesByMode(context.Background(), 7, "diary", since, 50)
	require.NoError(t, err)
	require.Len(t, diary, 1)
	assert.Equal(t, "positive", diary[0].Sentiment)
}

func TestPostgresMoodStats(t *testing.T) {
	p, mock := newMockPostgres(t)
	since := time.Now().AddDate(0, 0, -7)
	mock.ExpectQuery(`GROUP BY sentiment`).
		WithArgs(int64(7), since).
		WillReturnRows(pgxmock.NewRows([]string{"sentiment", "count"}).
			AddRow("positive", int64(3)).
			AddRow("negative", int64(1)))

	mood, err := p.MoodStats(context.Background(), 7, since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"positive": 3, "negative": 1}, mood)
}
