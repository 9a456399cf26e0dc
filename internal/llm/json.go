package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StripFence removes a surrounding ``` code fence (with optional language
// tag) from a model reply.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// DecodeObject parses a model reply that should hold exactly one JSON object.
func DecodeObject(reply string, v any) error {
	content := StripFence(reply)
	if content == "" {
		return errors.New("empty model reply")
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
