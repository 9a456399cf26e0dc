package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/store"
)

const (
	reviewLimit = 50
	exportLimit = 500
)

// Export formats.
const (
	ExportMarkdown = "markdown"
	ExportJSON     = "json"
)

var reviewOptions = llm.Options{MaxTokens: 2048, Temperature: 0.3}

// WeeklyReview summarizes the user's diary entries of the last seven days.
// It returns "" when there are none.
func (j *Journal) WeeklyReview(ctx context.Context, userID int64) (string, error) {
	entries, err := j.store.EntriesByMode(ctx, userID, ModeDiary, j.now().AddDate(0, 0, -7), reviewLimit)
	if err != nil {
		return "", fmt.Errorf("diary entries: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	slices.Reverse(entries)

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", j.stamp(e.CreatedAt), e.Text()))
	}
	review, err := j.llm.Complete(ctx, weeklyReviewPrompt, strings.Join(parts, "\n\n---\n\n"), reviewOptions)
	if err != nil {
		return "", fmt.Errorf("weekly review: %w", err)
	}
	return strings.TrimSpace(review), nil
}

// MoodSummary reports the sentiment counts of the last days days.
func (j *Journal) MoodSummary(ctx context.Context, userID int64, days int) (string, error) {
	stats, err := j.store.MoodStats(ctx, userID, j.now().AddDate(0, 0, -days))
	if err != nil {
		return "", fmt.Errorf("mood stats: %w", err)
	}
	pos, neu, neg := stats["positive"], stats["neutral"], stats["negative"]
	total := pos + neu + neg
	if total == 0 {
		return fmt.Sprintf("За последние %d дней нет записей с анализом настроения.", days), nil
	}
	return fmt.Sprintf("За последние %d дней (%d записей):\n😊 Позитивных: %d\n😐 Нейтральных: %d\n😔 Негативных: %d",
		days, total, pos, neu, neg), nil
}

type exportEntry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	RawText   string    `json:"raw_text"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Sentiment string    `json:"sentiment,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

// Export renders the user's diary, newest first, as Markdown or JSON.
// It returns the file contents and a file name.
func (j *Journal) Export(ctx context.Context, userID int64, format string) ([]byte, string, error) {
	entries, err := j.store.EntriesByMode(ctx, userID, ModeDiary, time.Time{}, exportLimit)
	if err != nil {
		return nil, "", fmt.Errorf("diary entries: %w", err)
	}

	if format == ExportJSON {
		out := make([]exportEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, exportEntry{
				ID:        e.ID,
				CreatedAt: e.CreatedAt.In(j.loc),
				Text:      e.Text(),
				RawText:   e.RawText,
				Category:  e.Category,
				Tags:      e.Tags,
				Summary:   e.Summary,
				Sentiment: e.Sentiment,
				Duration:  e.Duration,
			})
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode diary: %w", err)
		}
		return b, "diary.json", nil
	}

	if len(entries) == 0 {
		return []byte("Нет записей в дневнике.\n"), "diary.md", nil
	}
	lines := []string{"# Голосовой дневник\n"}
	for _, e := range entries {
		lines = append(lines,
			fmt.Sprintf("## %s%s\n", j.stamp(e.CreatedAt), moodIcon(e.Sentiment)),
			e.Text()+"\n",
			"---\n")
	}
	return []byte(strings.Join(lines, "\n")), "diary.md", nil
}

func moodIcon(sentiment string) string {
	switch sentiment {
	case "positive":
		return " 😊"
	case "negative":
		return " 😔"
	}
	return ""
}

func (j *Journal) stamp(t time.Time) string {
	return t.In(j.loc).Format("2006-01-02 15:04")
}

// Notes lists the user's latest notes, newest first.
func (j *Journal) Notes(ctx context.Context, userID int64, limit int) ([]store.Entry, error) {
	notes, err := j.store.EntriesByMode(ctx, userID, ModeNote, time.Time{}, limit)
	if err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	return notes, nil
}
