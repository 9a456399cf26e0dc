package llm

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Quota keeps the last-seen x-ratelimit-* headers per call class.
// Every observed response overwrites the previous snapshot for its class.
// A nil *Quota ignores observations.
type Quota struct {
	mu   sync.RWMutex
	seen map[Class]map[string]string
}

func NewQuota() *Quota {
	return &Quota{seen: make(map[Class]map[string]string)}
}

func (q *Quota) Observe(class Class, h http.Header) {
	if q == nil {
		return
	}
	info := make(map[string]string)
	for name, vals := range h {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "ratelimit") && len(vals) > 0 {
			info[lower] = vals[0]
		}
	}
	if len(info) == 0 {
		return
	}
	q.mu.Lock()
	q.seen[class] = info
	q.mu.Unlock()
}

// Snapshot returns a copy of the headers last seen for class.
func (q *Quota) Snapshot(class Class) map[string]string {
	if q == nil {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make(map[string]string, len(q.seen[class]))
	for k, v := range q.seen[class] {
		out[k] = v
	}
	return out
}

// Format renders the full /limits report.
func (q *Quota) Format() string {
	var lines []string

	if w := q.Snapshot(ClassTranscription); len(w) > 0 {
		lines = append(lines,
			"🎙 Whisper:",
			fmt.Sprintf("  Аудио: %s / %s (сброс: %s)",
				formatSeconds(get(w, "x-ratelimit-remaining-audio-seconds")),
				formatSeconds(get(w, "x-ratelimit-limit-audio-seconds")),
				formatReset(w["x-ratelimit-reset-audio-seconds"])),
			fmt.Sprintf("  Запросы: %s/%s (сброс: %s)",
				get(w, "x-ratelimit-remaining-requests"),
				get(w, "x-ratelimit-limit-requests"),
				formatReset(w["x-ratelimit-reset-requests"])),
		)
	}

	if l := q.Snapshot(ClassText); len(l) > 0 {
		lines = append(lines,
			"\n🤖 LLM:",
			fmt.Sprintf("  Запросы: %s/%s (сброс: %s)",
				get(l, "x-ratelimit-remaining-requests"),
				get(l, "x-ratelimit-limit-requests"),
				formatReset(l["x-ratelimit-reset-requests"])),
			fmt.Sprintf("  Токены: %s/%s (сброс: %s)",
				get(l, "x-ratelimit-remaining-tokens"),
				get(l, "x-ratelimit-limit-tokens"),
				formatReset(l["x-ratelimit-reset-tokens"])),
		)
	}

	if len(lines) == 0 {
		return "Лимиты пока неизвестны — отправь голосовое."
	}
	return strings.Join(lines, "\n")
}

// Short renders the one-line footer appended to transcriptions.
func (q *Quota) Short() string {
	w := q.Snapshot(ClassTranscription)
	var parts []string
	if rem, lim := w["x-ratelimit-remaining-audio-seconds"], w["x-ratelimit-limit-audio-seconds"]; rem != "" && lim != "" {
		parts = append(parts, fmt.Sprintf("🎙 %s/%s", formatSeconds(rem), formatSeconds(lim)))
	}
	if rem, lim := w["x-ratelimit-remaining-requests"], w["x-ratelimit-limit-requests"]; rem != "" && lim != "" {
		parts = append(parts, fmt.Sprintf("📨 %s/%s", rem, lim))
	}
	return strings.Join(parts, " · ")
}

func get(m map[string]string, key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return "?"
}

// formatSeconds renders "7195" as "1ч 59м".
func formatSeconds(val string) string {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return val
	}
	total := int(f)
	h, rem := total/3600, total%3600
	m, s := rem/60, rem%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dч %dм", h, m)
	case m > 0:
		return fmt.Sprintf("%dм %dс", m, s)
	default:
		return fmt.Sprintf("%dс", s)
	}
}

var fractionalSeconds = regexp.MustCompile(`(\d+)\.\d+s`)

// formatReset renders "2m52.8s" as "2м 52с".
func formatReset(val string) string {
	if val == "" {
		return "?"
	}
	out := fractionalSeconds.ReplaceAllString(val, "${1}с")
	out = strings.NewReplacer("h", "ч ", "m", "м ", "s", "с").Replace(out)
	return strings.TrimSpace(out)
}
