package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded Fake invocation.
type Call struct {
	Action string
	Args   []string
}

// Fake is an in-memory Host that records calls. Failures are injected per
// action name via Fail.
type Fake struct {
	mu    sync.Mutex
	calls []Call
	fail  map[string]error

	// PNG is returned by Screenshot.
	PNG []byte
}

var _ Host = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{fail: map[string]error{}, PNG: []byte("\x89PNG")}
}

// Fail makes every later call to action return err.
func (f *Fake) Fail(action string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[action] = err
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Actions returns just the action names of the recorded calls.
func (f *Fake) Actions() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Action
	}
	return out
}

func (f *Fake) record(action string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Action: action, Args: args})
	return f.fail[action]
}

func (f *Fake) Shutdown(_ context.Context, d int) error {
	return f.record("shutdown", fmt.Sprint(d))
}
func (f *Fake) Restart(context.Context) error        { return f.record("restart") }
func (f *Fake) CancelShutdown(context.Context) error { return f.record("cancel_shutdown") }
func (f *Fake) Sleep(context.Context) error          { return f.record("sleep") }
func (f *Fake) Lock(context.Context) error           { return f.record("lock") }
func (f *Fake) Hibernate(context.Context) error      { return f.record("hibernate") }

func (f *Fake) OpenApp(_ context.Context, name string) error {
	return f.record("open_app", name)
}

func (f *Fake) CloseApp(_ context.Context, name string) (string, error) {
	proc := name
	if !strings.HasSuffix(proc, ".exe") {
		proc += ".exe"
	}
	return proc, f.record("close_app", name)
}

func (f *Fake) PressKey(_ context.Context, key Key, times int) error {
	return f.record("key", string(key), fmt.Sprint(times))
}

func (f *Fake) Hotkey(_ context.Context, keys []string) error {
	return f.record("hotkey", keys...)
}

func (f *Fake) TypeText(_ context.Context, text string) error {
	return f.record("type_text", text)
}

func (f *Fake) OpenURL(_ context.Context, url string) error {
	return f.record("open_url", url)
}

func (f *Fake) Screenshot(context.Context) ([]byte, error) {
	if err := f.record("screenshot"); err != nil {
		return nil, err
	}
	return f.PNG, nil
}
