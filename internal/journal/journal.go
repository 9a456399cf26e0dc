// Package journal turns transcriptions that are not commands into saved
// entries: format by the operator's mode, categorize, persist, and build the
// reply shown to the operator.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/store"
)

// Modes. Dictation is the default.
const (
	ModeDictation = "dictation"
	ModeMeeting   = "meeting"
	ModeIdea      = "idea"
	ModeNote      = "note"
	ModeDiary     = "diary"
)

// ValidMode reports whether m is a known mode.
func ValidMode(m string) bool {
	switch m {
	case ModeDictation, ModeMeeting, ModeIdea, ModeNote, ModeDiary:
		return true
	}
	return false
}

type Completer interface {
	Complete(ctx context.Context, system, user string, opts llm.Options) (string, error)
}

// Meta is the categorizer's reading of an entry.
type Meta struct {
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Priority    string   `json:"priority"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	Sentiment   string   `json:"sentiment"`
}

type Journal struct {
	llm   Completer
	store store.Store
	quota *llm.Quota
	log   *zap.Logger
	loc   *time.Location
	now   func() time.Time
}

// New returns a Journal. quota may be nil, in which case replies carry no
// quota footer.
func New(c Completer, st store.Store, quota *llm.Quota, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{llm: c, store: st, quota: quota, log: log, loc: time.Local, now: time.Now}
}

// WithLocation sets the zone used for entry timestamps in reviews and exports.
func (j *Journal) WithLocation(loc *time.Location) *Journal {
	if loc != nil {
		j.loc = loc
	}
	return j
}

var (
	formatOptions     = llm.Options{MaxTokens: 4096, Temperature: 0.1}
	categorizeOptions = llm.Options{MaxTokens: 512, Temperature: 0}
)

// Format cleans raw according to mode. On any failure it returns raw
// unchanged.
func (j *Journal) Format(ctx context.Context, raw, mode string) string {
	out, err := j.llm.Complete(ctx, modePrompt(mode), "<transcript>"+raw+"</transcript>", formatOptions)
	if err != nil {
		j.log.Warn("format failed", zap.String("mode", mode), zap.Error(err))
		return raw
	}
	if out = strings.TrimSpace(out); out == "" {
		return raw
	}
	return out
}

// Categorize classifies text. ok is false when the classifier fails or its
// reply does not parse.
func (j *Journal) Categorize(ctx context.Context, text string) (meta Meta, ok bool) {
	reply, err := j.llm.Complete(ctx, categorizePrompt, text, categorizeOptions)
	if err != nil {
		j.log.Warn("categorize failed", zap.Error(err))
		return Meta{}, false
	}
	if err := llm.DecodeObject(reply, &meta); err != nil {
		j.log.Warn("categorize failed", zap.Error(err), zap.String("raw", reply))
		return Meta{}, false
	}
	return meta, true
}

// Input is one transcription to record.
type Input struct {
	UserID   int64
	Raw      string
	Mode     string
	Duration float64 // seconds of audio, 0 for text
	Source   string  // "voice" or "text"
}

// Record formats, categorizes and saves in, and returns the operator reply:
// the cleaned text followed by a footer with the category and the quota line.
// Only a persistence failure is returned as an error.
func (j *Journal) Record(ctx context.Context, in Input) (string, error) {
	mode := in.Mode
	if !ValidMode(mode) {
		mode = ModeDictation
	}
	if in.Source == "" {
		in.Source = "voice"
	}

	clean := j.Format(ctx, in.Raw, mode)
	meta, _ := j.Categorize(ctx, clean)

	_, err := j.store.SaveEntry(ctx, store.Entry{
		UserID:        in.UserID,
		RawText:       in.Raw,
		FormattedText: clean,
		Category:      meta.Category,
		Tags:          meta.Tags,
		Priority:      meta.Priority,
		Summary:       meta.Summary,
		ActionItems:   meta.ActionItems,
		Sentiment:     meta.Sentiment,
		Duration:      in.Duration,
		Source:        in.Source,
		Mode:          mode,
	})
	if err != nil {
		return "", fmt.Errorf("save entry: %w", err)
	}

	var footer []string
	switch {
	case mode == ModeNote:
		footer = append(footer, "📝 заметка")
	case mode == ModeDiary:
		footer = append(footer, "📔 дневник")
	case meta.Category != "":
		footer = append(footer, "📂 "+meta.Category)
	}
	if short := j.quota.Short(); short != "" {
		footer = append(footer, short)
	}
	if len(footer) == 0 {
		return clean, nil
	}
	return clean + "\n\n" + strings.Join(footer, " | "), nil
}

func modePrompt(mode string) string {
	switch mode {
	case ModeMeeting:
		return meetingPrompt
	case ModeIdea:
		return ideaPrompt
	case ModeNote:
		return notePrompt
	default:
		// Diary entries get the same light cleanup as dictation.
		return cleanupPrompt
	}
}
