package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/logging"
)

// Dispatcher executes descriptors against a Registry and never lets an
// error or panic escape: every call yields an Outcome.
type Dispatcher struct {
	reg    *Registry
	macros *Macros
	log    *zap.Logger
	events *logging.Events
}

// NewDispatcher wires reg and macros together and registers the
// run_macro and list_macros intents on reg.
func NewDispatcher(reg *Registry, macros *Macros, log *zap.Logger) *Dispatcher {
	if macros == nil {
		macros = NewMacros()
	}
	log = logging.OrNop(log)
	d := &Dispatcher{reg: reg, macros: macros, log: log, events: logging.NewEvents(log)}

	reg.mustRegister(Entry{Intent: IntentRunMacro, Label: "Запуск макроса", Handler: d.runMacro,
		Schema: json.RawMessage(`{"type":"object","properties":{"macro":{"type":"string"}}}`)})
	reg.mustRegister(Entry{Intent: IntentListMacros, Label: "Список макросов", Handler: d.listMacros})
	return d
}

func (d *Dispatcher) Registry() *Registry { return d.reg }

func (d *Dispatcher) Macros() *Macros { return d.macros }

// Dispatch looks up desc.Intent, validates its params and runs the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, desc Descriptor) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("command panicked", zap.String("intent", string(desc.Intent)), zap.Any("panic", r))
			out = Failure(fmt.Sprintf("❌ Ошибка выполнения %s: %v", desc.Intent, r), fmt.Errorf("panic: %v", r))
		}
		errMsg := ""
		if e, ok := out.(ErrorOutcome); ok {
			errMsg = e.Text
			if e.Err != nil {
				errMsg = e.Err.Error()
			}
		}
		d.events.CommandExec(string(desc.Intent), time.Since(start).Milliseconds(), !Failed(out), errMsg)
	}()

	entry, ok := d.reg.Lookup(desc.Intent)
	if !ok {
		return Failure(fmt.Sprintf("❌ Неизвестная команда: %s", desc.Intent),
			fmt.Errorf("%w: %s", ErrUnknownIntent, desc.Intent))
	}

	params, err := normalize(desc.Params)
	if err == nil {
		err = entry.Validate(params)
	}
	if err != nil {
		return Failure(fmt.Sprintf("❌ Неверные параметры для %s: %v", desc.Intent, err), err)
	}

	out, err = entry.Handler(ctx, params)
	if err != nil {
		d.log.Warn("command failed", zap.String("intent", string(desc.Intent)), zap.Error(err))
		return Failure(fmt.Sprintf("❌ Ошибка выполнения %s: %v", desc.Intent, err), err)
	}
	if out == nil {
		return Text("✅ " + entry.Label)
	}
	return out
}

func (d *Dispatcher) runMacro(ctx context.Context, p Params) (Outcome, error) {
	name := p.String("macro")
	if name == "" {
		return Failure("❌ Не указан макрос.", nil), nil
	}
	report, err := d.RunMacro(ctx, name)
	if err != nil {
		return Failure(fmt.Sprintf("❌ Неизвестный макрос: %s", name), err), nil
	}
	return TextOutcome{Text: report.String(), Report: report}, nil
}

func (d *Dispatcher) listMacros(context.Context, Params) (Outcome, error) {
	return Text(d.macros.Describe()), nil
}
