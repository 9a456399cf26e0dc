package journal

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/store"
)

// fakeLLM answers by system prompt.
type fakeLLM struct {
	format    string
	formatErr error
	meta      string
	metaErr   error
	systems   []string
	users     []string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string, _ llm.Options) (string, error) {
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if system == categorizePrompt {
		return f.meta, f.metaErr
	}
	return f.format, f.formatErr
}

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestRecordDictation(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := &fakeLLM{
		format: "Купить [молоко] завтра.",
		meta:   "```json\n{\"category\":\"task\",\"tags\":[\"покупки\"],\"priority\":\"high\",\"action_items\":[\"купить молоко\"],\"sentiment\":\"neutral\"}\n```",
	}
	j := New(f, st, nil, nil)

	reply, err := j.Record(ctx, Input{UserID: 7, Raw: "ну купить молоко завтра", Duration: 3})
	require.NoError(t, err)
	assert.Equal(t, "Купить [молоко] завтра.\n\n📂 task", reply)

	require.Len(t, f.systems, 2)
	assert.Equal(t, cleanupPrompt, f.systems[0])
	assert.Equal(t, "<transcript>ну купить молоко завтра</transcript>", f.users[0])
	assert.Equal(t, "Купить [молоко] завтра.", f.users[1], "categorize sees the cleaned text")

	hist, err := st.History(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	e := hist[0]
	assert.Equal(t, "ну купить молоко завтра", e.RawText)
	assert.Equal(t, "Купить [молоко] завтра.", e.FormattedText)
	assert.Equal(t, "task", e.Category)
	assert.Equal(t, []string{"покупки"}, e.Tags)
	assert.Equal(t, []string{"купить молоко"}, e.ActionItems)
	assert.Equal(t, ModeDictation, e.Mode)
	assert.Equal(t, "voice", e.Source)
	assert.InDelta(t, 3.0, e.Duration, 0.001)
	assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Minute)
}

func TestRecordFallsBackToRaw(t *testing.T) {
	st := openStore(t)
	f := &fakeLLM{formatErr: errors.New("503"), metaErr: errors.New("503")}
	j := New(f, st, nil, nil)

	reply, err := j.Record(context.Background(), Input{UserID: 7, Raw: "сырой текст", Source: "text"})
	require.NoError(t, err)
	assert.Equal(t, "сырой текст", reply, "no category, no quota, no footer")
}

func TestRecordModes(t *testing.T) {
	tests := []struct {
		mode   string
		prompt string
		footer string
	}{
		{ModeMeeting, meetingPrompt, "📂 meeting_note"},
		{ModeIdea, ideaPrompt, "📂 meeting_note"},
		{ModeNote, notePrompt, "📝 заметка"},
		{ModeDiary, cleanupPrompt, "📔 дневник"},
		{"bogus", cleanupPrompt, "📂 meeting_note"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			f := &fakeLLM{format: "текст", meta: `{"category":"meeting_note"}`}
			j := New(f, openStore(t), nil, nil)

			reply, err := j.Record(context.Background(), Input{UserID: 1, Raw: "r", Mode: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, tt.prompt, f.systems[0])
			assert.Equal(t, "текст\n\n"+tt.footer, reply)
		})
	}
}

func TestRecordQuotaFooter(t *testing.T) {
	q := llm.NewQuota()
	h := http.Header{}
	h.Set("X-Ratelimit-Remaining-Requests", "1999")
	h.Set("X-Ratelimit-Limit-Requests", "2000")
	q.Observe(llm.ClassTranscription, h)

	f := &fakeLLM{format: "текст", meta: `{"category":"idea"}`}
	j := New(f, openStore(t), q, nil)

	reply, err := j.Record(context.Background(), Input{UserID: 1, Raw: "r"})
	require.NoError(t, err)
	assert.Equal(t, "текст\n\n📂 idea | 📨 1999/2000", reply)
}

type failingStore struct{ store.Store }

func (failingStore) SaveEntry(context.Context, store.Entry) (int64, error) {
	return 0, errors.New("disk full")
}

func TestRecordPersistenceFailure(t *testing.T) {
	f := &fakeLLM{format: "текст", meta: `{}`}
	j := New(f, failingStore{}, nil, nil)

	_, err := j.Record(context.Background(), Input{UserID: 1, Raw: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCategorizeBadJSON(t *testing.T) {
	j := New(&fakeLLM{meta: "not json"}, nil, nil, nil)
	_, ok := j.Categorize(context.Background(), "x")
	assert.False(t, ok)
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{ModeDictation, ModeMeeting, ModeIdea, ModeNote, ModeDiary} {
		assert.True(t, ValidMode(m), m)
	}
	assert.False(t, ValidMode(""))
	assert.False(t, ValidMode("photo"))
}
