package journal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorn/hex/internal/store"
)

var diaryNow = time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)

func seedDiary(t *testing.T, st store.Store) {
	t.Helper()
	entries := []store.Entry{
		{UserID: 7, RawText: "давно", Mode: ModeDiary, Sentiment: "negative", CreatedAt: diaryNow.AddDate(0, 0, -20)},
		{UserID: 7, RawText: "raw", FormattedText: "Хороший день.", Mode: ModeDiary, Sentiment: "positive", CreatedAt: diaryNow.AddDate(0, 0, -2)},
		{UserID: 7, RawText: "Устал.", Mode: ModeDiary, Sentiment: "neutral", CreatedAt: diaryNow.AddDate(0, 0, -1)},
		{UserID: 7, RawText: "купить хлеб", Mode: ModeDictation, Sentiment: "neutral", CreatedAt: diaryNow.Add(-time.Hour)},
		{UserID: 7, RawText: "сон про море", Mode: ModeNote, CreatedAt: diaryNow.Add(-2 * time.Hour)},
	}
	for _, e := range entries {
		_, err := st.SaveEntry(context.Background(), e)
		require.NoError(t, err)
	}
}

func newDiaryJournal(t *testing.T, f *fakeLLM) (*Journal, *store.SQLite) {
	t.Helper()
	st := openStore(t)
	seedDiary(t, st)
	j := New(f, st, nil, nil).WithLocation(time.UTC)
	j.now = func() time.Time { return diaryNow }
	return j, st
}

func TestWeeklyReviewCoversLastWeekOldestFirst(t *testing.T) {
	f := &fakeLLM{format: "  Спокойная неделя.  "}
	j, _ := newDiaryJournal(t, f)

	review, err := j.WeeklyReview(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Спокойная неделя.", review)

	require.Len(t, f.systems, 1)
	assert.Equal(t, weeklyReviewPrompt, f.systems[0])
	assert.Equal(t, "[2026-03-13 20:00]\nХороший день.\n\n---\n\n[2026-03-14 20:00]\nУстал.", f.users[0])
}

func TestWeeklyReviewEmpty(t *testing.T) {
	f := &fakeLLM{}
	j := New(f, openStore(t), nil, nil)

	review, err := j.WeeklyReview(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, review)
	assert.Empty(t, f.systems, "no entries, no LLM call")
}

func TestWeeklyReviewLLMError(t *testing.T) {
	j, _ := newDiaryJournal(t, &fakeLLM{formatErr: errors.New("429")})
	_, err := j.WeeklyReview(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMoodSummary(t *testing.T) {
	j, _ := newDiaryJournal(t, &fakeLLM{})

	summary, err := j.MoodSummary(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, "За последние 7 дней (3 записей):\n😊 Позитивных: 1\n😐 Нейтральных: 2\n😔 Негативных: 0", summary)

	summary, err = j.MoodSummary(context.Background(), 8, 7)
	require.NoError(t, err)
	assert.Equal(t, "За последние 7 дней нет записей с анализом настроения.", summary)
}

func TestExportMarkdown(t *testing.T) {
	j, _ := newDiaryJournal(t, &fakeLLM{})

	data, name, err := j.Export(context.Background(), 7, ExportMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "diary.md", name)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Голосовой дневник\n"))
	assert.Contains(t, md, "## 2026-03-14 20:00\n\nУстал.\n")
	assert.Contains(t, md, "## 2026-03-13 20:00 😊\n\nХороший день.\n")
	assert.Contains(t, md, "## 2026-02-23 20:00 😔\n")
	assert.NotContains(t, md, "купить хлеб", "only diary entries")
	assert.Less(t, strings.Index(md, "Устал."), strings.Index(md, "Хороший день."), "newest first")
}

func TestExportJSON(t *testing.T) {
	j, _ := newDiaryJournal(t, &fakeLLM{})

	data, name, err := j.Export(context.Background(), 7, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "diary.json", name)

	var out []exportEntry
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	assert.Equal(t, "Устал.", out[0].Text)
	assert.Equal(t, "Хороший день.", out[1].Text)
	assert.Equal(t, "raw", out[1].RawText)
	assert.Equal(t, "positive", out[1].Sentiment)
}

func TestExportEmptyDiary(t *testing.T) {
	j := New(&fakeLLM{}, openStore(t), nil, nil)

	data, _, err := j.Export(context.Background(), 7, ExportMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "Нет записей в дневнике.\n", string(data))

	data, _, err = j.Export(context.Background(), 7, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestNotes(t *testing.T) {
	j, _ := newDiaryJournal(t, &fakeLLM{})

	notes, err := j.Notes(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "сон про море", notes[0].Text())
}
