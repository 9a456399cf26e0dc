// Package host is the operating-system action surface: power state, process
// control, media keys, keyboard input and screen capture. Every action is an
// external command taken from a per-OS table.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Key is a named media or volume key.
type Key string

const (
	KeyVolumeUp   Key = "volumeup"
	KeyVolumeDown Key = "volumedown"
	KeyVolumeMute Key = "volumemute"
	KeyPlayPause  Key = "playpause"
	KeyNextTrack  Key = "nexttrack"
	KeyPrevTrack  Key = "prevtrack"
)

// Host is the capability the command handlers drive.
type Host interface {
	Shutdown(ctx context.Context, delaySeconds int) error
	Restart(ctx context.Context) error
	CancelShutdown(ctx context.Context) error
	Sleep(ctx context.Context) error
	Lock(ctx context.Context) error
	Hibernate(ctx context.Context) error
	OpenApp(ctx context.Context, name string) error
	// CloseApp returns the process name it targeted.
	CloseApp(ctx context.Context, name string) (string, error)
	PressKey(ctx context.Context, key Key, times int) error
	Hotkey(ctx context.Context, keys []string) error
	TypeText(ctx context.Context, text string) error
	OpenURL(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// ErrUnsupported is returned for actions the current table has no command for.
var ErrUnsupported = errors.New("action not supported on this host")

const commandTimeout = 30 * time.Second

// Runner executes argv. Run waits for completion, Start only spawns.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
	Start(argv []string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, argv []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s: %s", commandTimeout, argv[0])
	}
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("command %s failed: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (execRunner) Start(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Exec implements Host with external commands.
type Exec struct {
	table    Table
	runner   Runner
	log      *zap.Logger
	keyDelay time.Duration
}

// New returns an Exec host for goos ("" means runtime.GOOS).
func New(goos string, log *zap.Logger) (*Exec, error) {
	if goos == "" {
		goos = runtime.GOOS
	}
	table, ok := Tables[goos]
	if !ok {
		return nil, fmt.Errorf("no host command table for %q", goos)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exec{table: table, runner: execRunner{}, log: log, keyDelay: 50 * time.Millisecond}, nil
}

// WithRunner replaces the command runner.
func (e *Exec) WithRunner(r Runner) *Exec {
	e.runner = r
	return e
}

func (e *Exec) run(ctx context.Context, action string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s: %w", action, ErrUnsupported)
	}
	e.log.Debug("host command", zap.String("action", action), zap.Strings("argv", argv))
	_, err := e.runner.Run(ctx, argv)
	return err
}

func (e *Exec) start(action string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s: %w", action, ErrUnsupported)
	}
	e.log.Debug("host spawn", zap.String("action", action), zap.Strings("argv", argv))
	return e.runner.Start(argv)
}

func (e *Exec) Shutdown(ctx context.Context, delaySeconds int) error {
	return e.run(ctx, "shutdown", call(e.table.Shutdown, delaySeconds))
}

func (e *Exec) Restart(ctx context.Context) error {
	return e.run(ctx, "restart", e.table.Restart)
}

func (e *Exec) CancelShutdown(ctx context.Context) error {
	return e.run(ctx, "cancel_shutdown", e.table.CancelShutdown)
}

func (e *Exec) Sleep(ctx context.Context) error {
	return e.run(ctx, "sleep", e.table.Sleep)
}

func (e *Exec) Lock(ctx context.Context) error {
	return e.run(ctx, "lock", e.table.Lock)
}

func (e *Exec) Hibernate(ctx context.Context) error {
	return e.run(ctx, "hibernate", e.table.Hibernate)
}

func (e *Exec) OpenApp(_ context.Context, name string) error {
	return e.start("open_app", call(e.table.OpenApp, name))
}

func (e *Exec) CloseApp(ctx context.Context, name string) (string, error) {
	proc := name
	if e.table.ProcessName != nil {
		proc = e.table.ProcessName(name)
	}
	return proc, e.run(ctx, "close_app", call(e.table.CloseApp, proc))
}

func (e *Exec) PressKey(ctx context.Context, key Key, times int) error {
	argv := call(e.table.Key, key)
	for i := 0; i < times; i++ {
		if i > 0 {
			if err := sleepContext(ctx, e.keyDelay); err != nil {
				return err
			}
		}
		if err := e.run(ctx, "key", argv); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exec) Hotkey(ctx context.Context, keys []string) error {
	return e.run(ctx, "hotkey", call(e.table.Hotkey, keys))
}

func (e *Exec) TypeText(ctx context.Context, text string) error {
	return e.run(ctx, "type_text", call(e.table.TypeText, text))
}

func (e *Exec) OpenURL(_ context.Context, url string) error {
	return e.start("open_url", call(e.table.OpenURL, url))
}

// Screenshot captures the full screen as PNG via a temporary file.
func (e *Exec) Screenshot(ctx context.Context) ([]byte, error) {
	f, err := os.CreateTemp("", "hex-shot-*.png")
	if err != nil {
		return nil, fmt.Errorf("create screenshot file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := e.run(ctx, "screenshot", call(e.table.Screenshot, filepath.Clean(path))); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("screenshot is empty")
	}
	return data, nil
}

func call[T any](fn func(T) []string, v T) []string {
	if fn == nil {
		return nil
	}
	return fn(v)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
