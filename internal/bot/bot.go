// Package bot is the operator-facing event loop: it polls the messenger,
// authorizes the sender, routes each update to a command, the confirmation
// gate, a reminder, or the journal, and always answers.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/journal"
	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/logging"
	"github.com/dmorn/hex/internal/resolve"
	"github.com/dmorn/hex/internal/session"
	"github.com/dmorn/hex/internal/store"
)

// Gate is the confirmation gate.
type Gate interface {
	Submit(ctx context.Context, operator int64, d command.Descriptor) (command.Outcome, bool)
	Reply(ctx context.Context, operator int64, reply string) (command.Outcome, bool)
}

// Resolver turns command text into descriptors and reminder requests.
type Resolver interface {
	Resolve(ctx context.Context, text string) *command.Descriptor
	ParseReminder(ctx context.Context, text string) (resolve.ReminderRequest, bool)
}

// Journal records non-command transcriptions and answers the diary and
// notes commands.
type Journal interface {
	Record(ctx context.Context, in journal.Input) (string, error)
	WeeklyReview(ctx context.Context, userID int64) (string, error)
	MoodSummary(ctx context.Context, userID int64, days int) (string, error)
	Export(ctx context.Context, userID int64, format string) ([]byte, string, error)
	Notes(ctx context.Context, userID int64, limit int) ([]store.Entry, error)
}

type Options struct {
	Messenger   Messenger
	Transcriber llm.Transcriber
	Gate        Gate
	Resolver    Resolver
	Journal     Journal
	Store       store.Store
	State       session.State
	Registry    *command.Registry
	Macros      *command.Macros
	Quota       *llm.Quota // optional; /limits reports "unknown" without it
	Logger      *zap.Logger

	OperatorID  int64 // 0 accepts anyone
	PollTimeout int   // seconds (default: 30)
	Location    *time.Location
}

type Bot struct {
	opts   Options
	log    *zap.Logger
	events *logging.Events
	now    func() time.Time

	workersMu sync.Mutex
	workers   map[int64]chan Update
}

func New(opts Options) (*Bot, error) {
	if opts.Messenger == nil || opts.Gate == nil || opts.Resolver == nil {
		return nil, errors.New("bot requires Messenger, Gate and Resolver")
	}
	if opts.State == nil {
		opts.State = session.NewMemory()
	}
	if opts.Registry == nil {
		opts.Registry = command.NewRegistry()
	}
	if opts.Macros == nil {
		opts.Macros = command.NewMacros()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	log := logging.OrNop(opts.Logger)
	return &Bot{
		opts:    opts,
		log:     log,
		events:  logging.NewEvents(log),
		now:     time.Now,
		workers: make(map[int64]chan Update),
	}, nil
}

// Run polls for updates until ctx is cancelled. Each operator gets a worker
// goroutine, so one operator's updates are handled in arrival order while a
// slow call never blocks polling or other operators.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	updates := make(chan Update, 64)

	g.Go(func() error {
		defer close(updates)
		b.poll(ctx, updates)
		return nil
	})
	g.Go(func() error {
		for u := range updates {
			b.enqueue(ctx, g, u)
		}
		return nil
	})
	return g.Wait()
}

func (b *Bot) poll(ctx context.Context, out chan<- Update) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.opts.Messenger.Poll(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.events.Error("poll", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

// enqueue hands u to its sender's worker. Updates from anyone but the
// operator are dropped here, before a worker exists for them.
func (b *Bot) enqueue(ctx context.Context, g *errgroup.Group, u Update) {
	if !b.authorized(u.UserID) {
		b.events.Inbound(u.UserID, u.ChatID, "unauthorized", u.Text)
		b.log.Warn("unauthorized update dropped", zap.Int64("user_id", u.UserID))
		return
	}

	b.workersMu.Lock()
	ch, ok := b.workers[u.UserID]
	if !ok {
		ch = make(chan Update, 16)
		b.workers[u.UserID] = ch
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case u := <-ch:
					b.Handle(ctx, u)
				}
			}
		})
	}
	b.workersMu.Unlock()

	select {
	case ch <- u:
	case <-ctx.Done():
	}
}

// typingLoop sends a "typing" action every 4s until the stop channel is closed.
// Telegram drops the indicator after ~5s, so we refresh slightly before that.
func typingLoop(ctx context.Context, notifier TypingNotifier, chatID int64, stop <-chan struct{}) {
	_ = notifier.SendTyping(ctx, chatID)
	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = notifier.SendTyping(ctx, chatID)
		}
	}
}

// typing starts the indicator when the messenger supports it and returns
// the function that stops it.
func (b *Bot) typing(ctx context.Context, chatID int64) func() {
	notifier, ok := b.opts.Messenger.(TypingNotifier)
	if !ok {
		return func() {}
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		typingLoop(ctx, notifier, chatID, stop)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.opts.Messenger.Send(ctx, chatID, text); err != nil {
		b.events.Error("send", err)
		return
	}
	b.events.Outbound(chatID, text)
}
