package resolve

import (
	"regexp"
	"strings"
)

var wakeWord = regexp.MustCompile(`(?i)^\s*(гекс|гексик|hex|гекси|гексу|heks)([,.\s!]+|$)`)

// ExtractCommand returns the text following the wake word. ok is false when
// text does not start with the wake word.
func ExtractCommand(text string) (cmd string, ok bool) {
	loc := wakeWord.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(text[loc[1]:]), true
}

var reminderKeywords = []string{"напомни", "напоминание", "remind"}

// IsReminderRequest reports whether a command asks for a reminder.
func IsReminderRequest(cmd string) bool {
	lower := strings.ToLower(cmd)
	for _, kw := range reminderKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
