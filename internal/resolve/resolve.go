// Package resolve turns free text into structured requests through the text
// classifier: command descriptors and reminder requests.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/llm"
)

// ErrNoIntent means the classifier produced nothing usable.
var ErrNoIntent = errors.New("no intent resolved")

// Completer is the text classifier.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts llm.Options) (string, error)
}

type Resolver struct {
	llm    Completer
	reg    *command.Registry
	macros *command.Macros
	log    *zap.Logger
}

// New returns a Resolver. reg filters out intents that are not registered;
// macros feeds the macro names into the classifier prompt. Both may be nil.
func New(c Completer, reg *command.Registry, macros *command.Macros, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{llm: c, reg: reg, macros: macros, log: log}
}

var classifierOptions = llm.Options{MaxTokens: 256, Temperature: 0}

// Resolve classifies text into a descriptor. Any failure, including an
// "unknown" classification, yields nil.
func (r *Resolver) Resolve(ctx context.Context, text string) *command.Descriptor {
	d, err := r.resolve(ctx, text)
	if err != nil {
		r.log.Info("intent not resolved", zap.String("text", text), zap.Error(err))
		return nil
	}
	return d
}

func (r *Resolver) resolve(ctx context.Context, text string) (*command.Descriptor, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty command", ErrNoIntent)
	}
	reply, err := r.llm.Complete(ctx, intentPrompt(r.macros), text, classifierOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: classifier: %v", ErrNoIntent, err)
	}

	var d command.Descriptor
	if err := llm.DecodeObject(reply, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIntent, err)
	}
	d.Intent = command.Intent(strings.TrimSpace(string(d.Intent)))
	switch {
	case d.Intent == "" || d.Intent == command.IntentUnknown:
		return nil, fmt.Errorf("%w: classified as unknown", ErrNoIntent)
	case r.reg != nil:
		if _, ok := r.reg.Lookup(d.Intent); !ok {
			return nil, fmt.Errorf("%w: unregistered intent %q", ErrNoIntent, d.Intent)
		}
	}
	if d.Params == nil {
		d.Params = command.Params{}
	}
	return &d, nil
}

// ReminderRequest is a parsed "remind me" command.
type ReminderRequest struct {
	DelaySeconds int    `json:"delay_seconds"`
	Text         string `json:"text"`
}

// MaxReminderDelay bounds delay_seconds. Longer delays are rejected.
const MaxReminderDelay = 366 * 24 * 60 * 60

// ParseReminder extracts the delay and the reminder text. ok is false when
// the classifier fails, the reply lacks either field, or the delay is
// negative or above MaxReminderDelay.
func (r *Resolver) ParseReminder(ctx context.Context, text string) (req ReminderRequest, ok bool) {
	reply, err := r.llm.Complete(ctx, ReminderPrompt, text, classifierOptions)
	if err != nil {
		r.log.Warn("reminder parse failed", zap.Error(err))
		return ReminderRequest{}, false
	}
	var raw struct {
		DelaySeconds *float64 `json:"delay_seconds"`
		Text         string   `json:"text"`
	}
	if err := llm.DecodeObject(reply, &raw); err != nil {
		r.log.Warn("reminder parse failed", zap.Error(err), zap.String("raw", reply))
		return ReminderRequest{}, false
	}
	raw.Text = strings.TrimSpace(raw.Text)
	if raw.DelaySeconds == nil || *raw.DelaySeconds < 0 || *raw.DelaySeconds > MaxReminderDelay || raw.Text == "" {
		r.log.Warn("reminder parse incomplete", zap.String("raw", reply))
		return ReminderRequest{}, false
	}
	return ReminderRequest{DelaySeconds: int(*raw.DelaySeconds), Text: raw.Text}, true
}
