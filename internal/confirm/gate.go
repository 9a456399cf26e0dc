// Package confirm implements the confirmation gate: dangerous commands wait
// in a single per-operator slot until the operator's next text reply.
package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/session"
)

var affirmative = func() map[string]bool {
	m := map[string]bool{}
	for _, w := range []string{"да", "yes", "ок", "ok", "подтверждаю", "давай"} {
		m[foldCase(w)] = true
	}
	return m
}()

// foldCase builds a fresh Caser per call: Casers are stateful.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// IsAffirmative reports whether reply confirms a pending command. The match
// is exact after trimming and case folding.
func IsAffirmative(reply string) bool {
	return affirmative[foldCase(strings.TrimSpace(reply))]
}

// Dispatcher executes an approved descriptor.
type Dispatcher interface {
	Dispatch(ctx context.Context, d command.Descriptor) command.Outcome
}

// Classifier tells the gate which intents need confirmation.
type Classifier interface {
	IsDangerous(intent command.Intent) bool
	Label(intent command.Intent) string
}

type Gate struct {
	state session.State
	disp  Dispatcher
	reg   Classifier
	audit *session.Audit
	log   *zap.Logger
}

func New(state session.State, disp Dispatcher, reg Classifier, audit *session.Audit, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{state: state, disp: disp, reg: reg, audit: audit, log: log}
}

// Submit dispatches d immediately unless it is dangerous, in which case it
// becomes the operator's pending command (replacing any previous one) and
// the returned outcome asks for confirmation.
func (g *Gate) Submit(ctx context.Context, operator int64, d command.Descriptor) (out command.Outcome, awaiting bool) {
	if !g.reg.IsDangerous(d.Intent) {
		out = g.disp.Dispatch(ctx, d)
		g.audit.Record(operator, session.DispatchEvent(d, out))
		return out, false
	}

	if prev, err := g.state.Pending(ctx, operator); err == nil && prev != nil {
		g.log.Info("pending command replaced",
			zap.Int64("operator", operator),
			zap.String("previous", string(prev.Intent)),
			zap.String("intent", string(d.Intent)))
	}
	if err := g.state.SetPending(ctx, operator, d); err != nil {
		g.log.Error("store pending command", zap.Int64("operator", operator), zap.Error(err))
		return command.Failure("❌ Не удалось сохранить команду для подтверждения.", err), false
	}
	g.audit.Record(operator, session.DescriptorEvent(session.EventPending, d, nil))
	return command.Text(g.prompt(d)), true
}

func (g *Gate) prompt(d command.Descriptor) string {
	params := "{}"
	if len(d.Params) > 0 {
		if b, err := json.Marshal(d.Params); err == nil {
			params = string(b)
		}
	}
	return fmt.Sprintf("⚠️ %s\nПараметры: %s\n\nОтправь 'да' для подтверждения или 'нет' для отмены.",
		g.reg.Label(d.Intent), params)
}

// Reply consumes the operator's pending command, if any. handled is false
// when nothing was pending; the reply is then free for normal routing. An
// affirmative reply executes the command; anything else cancels it.
func (g *Gate) Reply(ctx context.Context, operator int64, reply string) (out command.Outcome, handled bool) {
	d, err := g.state.TakePending(ctx, operator)
	if err != nil {
		g.log.Error("take pending command", zap.Int64("operator", operator), zap.Error(err))
		return command.Failure("❌ Не удалось прочитать ожидающую команду.", err), true
	}
	if d == nil {
		return nil, false
	}

	if !IsAffirmative(reply) {
		out = command.Text("❌ Команда отменена.")
		g.audit.Record(operator, session.DescriptorEvent(session.EventCancelled, *d, out))
		return out, true
	}

	out = g.disp.Dispatch(ctx, *d)
	if t, ok := out.(command.TextOutcome); ok {
		out = command.Text("✅ " + t.Text)
	}
	g.audit.Record(operator, session.DescriptorEvent(session.EventConfirmed, *d, out))
	return out, true
}

// Pending returns the operator's pending command, or nil.
func (g *Gate) Pending(ctx context.Context, operator int64) (*command.Descriptor, error) {
	return g.state.Pending(ctx, operator)
}
