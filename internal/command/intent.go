// Package command holds the intent taxonomy, the command registry, the
// dispatcher that turns a descriptor into an Outcome, and the macro runner.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Intent names one registered command.
type Intent string

const (
	IntentShutdown       Intent = "shutdown"
	IntentRestart        Intent = "restart"
	IntentCancelShutdown Intent = "cancel_shutdown"
	IntentSleep          Intent = "sleep"
	IntentLock           Intent = "lock"
	IntentHibernate      Intent = "hibernate"
	IntentOpenApp        Intent = "open_app"
	IntentCloseApp       Intent = "close_app"
	IntentVolumeUp       Intent = "volume_up"
	IntentVolumeDown     Intent = "volume_down"
	IntentVolumeMute     Intent = "volume_mute"
	IntentMediaPlayPause Intent = "media_play_pause"
	IntentMediaNext      Intent = "media_next"
	IntentMediaPrev      Intent = "media_prev"
	IntentScreenshot     Intent = "screenshot"
	IntentTypeText       Intent = "type_text"
	IntentOpenURL        Intent = "open_url"
	IntentHotkey         Intent = "hotkey"
	IntentRunMacro       Intent = "run_macro"
	IntentListMacros     Intent = "list_macros"

	// IntentUnknown is what the classifier returns for unrecognized text.
	// It is never registered.
	IntentUnknown Intent = "unknown"
)

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrUnknownMacro  = errors.New("unknown macro")
)

// Params are the intent arguments as decoded from JSON.
type Params map[string]any

// Descriptor is one resolved command: an intent and its parameters.
type Descriptor struct {
	Intent Intent `json:"intent" yaml:"intent"`
	Params Params `json:"params" yaml:"params"`
}

// Int returns the integer at key, or def when absent or not a number.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, fmt.Sprint(s))
		}
		return out
	}
	return nil
}

// normalize round-trips p through JSON so handlers and the schema validator
// always see JSON value types (float64, []any, map[string]any).
func normalize(p Params) (Params, error) {
	if len(p) == 0 {
		return Params{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
