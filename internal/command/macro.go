package command

import (
	"context"
	"fmt"
	"strings"
)

// Macro is a named, ordered chain of descriptors.
type Macro struct {
	Name  string
	Label string
	Steps []Descriptor
}

// Macros is the macro registry. It is filled at startup and read-only
// afterwards.
type Macros struct {
	byName map[string]Macro
	order  []string
}

func NewMacros(ms ...Macro) *Macros {
	m := &Macros{byName: map[string]Macro{}}
	for _, mac := range ms {
		m.Add(mac)
	}
	return m
}

// DefaultMacros returns the built-in macro set.
func DefaultMacros() *Macros {
	return NewMacros(
		Macro{Name: "start_work", Label: "Начать рабочий день", Steps: []Descriptor{
			{Intent: IntentOpenApp, Params: Params{"name": "telegram"}},
			{Intent: IntentOpenURL, Params: Params{"url": "https://mail.google.com"}},
			{Intent: IntentOpenApp, Params: Params{"name": "code"}},
		}},
		Macro{Name: "end_work", Label: "Закончить рабочий день", Steps: []Descriptor{
			{Intent: IntentCloseApp, Params: Params{"name": "code"}},
			{Intent: IntentLock, Params: Params{}},
		}},
		Macro{Name: "music_mode", Label: "Режим музыки", Steps: []Descriptor{
			{Intent: IntentOpenURL, Params: Params{"url": "https://music.youtube.com"}},
			{Intent: IntentVolumeUp, Params: Params{"percent": 50}},
		}},
		Macro{Name: "focus_mode", Label: "Режим фокуса", Steps: []Descriptor{
			{Intent: IntentVolumeMute, Params: Params{}},
			{Intent: IntentCloseApp, Params: Params{"name": "telegram"}},
		}},
		Macro{Name: "presentation", Label: "Режим презентации", Steps: []Descriptor{
			{Intent: IntentVolumeUp, Params: Params{"percent": 70}},
			{Intent: IntentHotkey, Params: Params{"keys": []string{"win", "p"}}},
		}},
	)
}

// Add registers mac, replacing any macro with the same name in place.
func (m *Macros) Add(mac Macro) {
	if mac.Label == "" {
		mac.Label = mac.Name
	}
	if _, ok := m.byName[mac.Name]; !ok {
		m.order = append(m.order, mac.Name)
	}
	m.byName[mac.Name] = mac
}

func (m *Macros) Lookup(name string) (Macro, bool) {
	mac, ok := m.byName[name]
	return mac, ok
}

// List returns the macros in registration order.
func (m *Macros) List() []Macro {
	out := make([]Macro, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.byName[n])
	}
	return out
}

// Describe renders the list_macros reply.
func (m *Macros) Describe() string {
	lines := []string{"📋 Доступные макросы:\n"}
	for _, mac := range m.List() {
		lines = append(lines, fmt.Sprintf("• %s (%s) — %d шагов", mac.Label, mac.Name, len(mac.Steps)))
	}
	return strings.Join(lines, "\n")
}

// StepResult is the outcome of one macro step.
type StepResult struct {
	Step    Descriptor
	Outcome Outcome
}

// Report is the aggregate result of a macro run, one entry per step in
// declaration order.
type Report struct {
	Name  string
	Label string
	Steps []StepResult
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 Макрос «%s»:", r.Label)
	for _, s := range r.Steps {
		msg := s.Outcome.Message()
		switch {
		case !Failed(s.Outcome):
			msg = "✅ " + msg
		case !strings.HasPrefix(msg, "❌"):
			msg = "❌ " + msg
		}
		fmt.Fprintf(&b, "\n  • %s", msg)
	}
	return b.String()
}

// RunMacro runs every step of the named macro in order. A failing step is
// recorded and the run continues. Dangerous steps are refused: they need a
// confirmation that a macro cannot collect.
func (d *Dispatcher) RunMacro(ctx context.Context, name string) (*Report, error) {
	mac, ok := d.macros.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMacro, name)
	}

	report := &Report{Name: mac.Name, Label: mac.Label, Steps: make([]StepResult, 0, len(mac.Steps))}
	for _, step := range mac.Steps {
		var out Outcome
		switch {
		case step.Intent == IntentRunMacro:
			out = Failure(fmt.Sprintf("❌ %s: вложенные макросы не поддерживаются", step.Intent), nil)
		case d.reg.IsDangerous(step.Intent):
			out = Failure(fmt.Sprintf("❌ %s: требует подтверждения, в макросе запрещено", step.Intent), nil)
		default:
			out = d.Dispatch(ctx, step)
		}
		report.Steps = append(report.Steps, StepResult{Step: step, Outcome: out})
	}
	return report, nil
}
