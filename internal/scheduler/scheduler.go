// Package scheduler delivers due reminders and the periodic digests.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/session"
	"github.com/dmorn/hex/internal/store"
)

// Notifier delivers a message to a chat. It may fail.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Summarizer is the text generator used for digests.
type Summarizer interface {
	Complete(ctx context.Context, system, user string, opts llm.Options) (string, error)
}

type Config struct {
	Interval   time.Duration // reminder poll period
	OperatorID int64         // digest recipient; 0 disables digests
	Daily      *Trigger      // nil disables the daily digest
	Weekly     *Trigger      // nil disables the weekly digest
	Location   *time.Location
}

type Scheduler struct {
	store  store.Store
	notify Notifier
	llm    Summarizer
	audit  *session.Audit
	cfg    Config
	log    *zap.Logger
	now    func() time.Time

	polling sync.Mutex
}

func New(st store.Store, n Notifier, sum Summarizer, audit *session.Audit, cfg Config, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Scheduler{store: st, notify: n, llm: sum, audit: audit, cfg: cfg, log: log, now: time.Now}
}

// Run starts the reminder loop and the digest triggers and blocks until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.reminderLoop(ctx)
		return nil
	})
	if s.cfg.OperatorID != 0 {
		if s.cfg.Daily != nil {
			t := *s.cfg.Daily
			g.Go(func() error {
				s.digestLoop(ctx, Daily, t)
				return nil
			})
		}
		if s.cfg.Weekly != nil {
			t := *s.cfg.Weekly
			g.Go(func() error {
				s.digestLoop(ctx, Weekly, t)
				return nil
			})
		}
	} else {
		s.log.Info("digests disabled: no operator configured")
	}
	return g.Wait()
}

func (s *Scheduler) reminderLoop(ctx context.Context) {
	s.log.Info("reminder loop started", zap.Duration("interval", s.cfg.Interval))
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Fire once immediately on startup to catch anything missed while down.
	s.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder loop stopped")
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll delivers every due reminder once. It returns the number delivered.
// A poll already in progress makes this call a no-op.
func (s *Scheduler) Poll(ctx context.Context) int {
	if !s.polling.TryLock() {
		s.log.Debug("reminder poll already running")
		return 0
	}
	defer s.polling.Unlock()

	due, err := s.store.DueReminders(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("reminder query", zap.Error(err))
		}
		return 0
	}

	delivered := 0
	for _, r := range due {
		if err := s.notify.Send(ctx, r.UserID, "🔔 Напоминание:\n"+r.Text); err != nil {
			// Not marked: retried next tick.
			s.log.Warn("reminder send", zap.Int64("id", r.ID), zap.Int64("user_id", r.UserID), zap.Error(err))
			continue
		}
		delivered++
		won, err := s.store.MarkFired(ctx, r.ID)
		switch {
		case err != nil:
			s.log.Error("reminder mark fired", zap.Int64("id", r.ID), zap.Error(err))
		case !won:
			s.log.Warn("reminder already fired", zap.Int64("id", r.ID))
		default:
			s.log.Info("reminder fired", zap.Int64("id", r.ID), zap.Int64("user_id", r.UserID))
		}
		s.audit.Record(r.UserID, session.Event{
			Type:    session.EventReminder,
			Outcome: r.Text,
		})
	}
	return delivered
}

// Kind selects a digest window.
type Kind int

const (
	Daily Kind = iota
	Weekly
)

func (k Kind) String() string {
	if k == Weekly {
		return "weekly"
	}
	return "daily"
}

func (s *Scheduler) digestLoop(ctx context.Context, kind Kind, t Trigger) {
	for {
		next := t.Next(s.now(), s.cfg.Location)
		delay := next.Sub(s.now())
		s.log.Info("digest scheduled",
			zap.Stringer("kind", kind),
			zap.Duration("in", delay.Round(time.Second)),
			zap.String("at", next.Format("2006-01-02 15:04 MST")),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("digest loop stopped", zap.Stringer("kind", kind))
			return
		case <-timer.C:
		}
		if err := s.SendDigest(ctx, kind); err != nil {
			s.log.Warn("digest dropped", zap.Stringer("kind", kind), zap.Error(err))
		}
	}
}

// SendDigest summarizes the operator's entries for kind's window and sends
// the result. An empty window sends nothing and returns nil.
func (s *Scheduler) SendDigest(ctx context.Context, kind Kind) error {
	text, err := s.Digest(ctx, s.cfg.OperatorID, kind)
	if err != nil || text == "" {
		return err
	}
	header := "📊 Дневной дайджест:\n\n"
	if kind == Weekly {
		header = "📅 Недельный дайджест:\n\n"
	}
	if err := s.notify.Send(ctx, s.cfg.OperatorID, header+text); err != nil {
		return fmt.Errorf("send %s digest: %w", kind, err)
	}
	return nil
}

// Digest returns the generated summary of userID's entries for kind's
// window, or "" when the window holds no entries.
func (s *Scheduler) Digest(ctx context.Context, userID int64, kind Kind) (string, error) {
	since, prompt := s.window(kind)
	entries, err := s.store.EntriesSince(ctx, userID, since)
	if err != nil {
		return "", fmt.Errorf("load %s entries: %w", kind, err)
	}
	if len(entries) == 0 {
		s.log.Info("digest skipped: no entries", zap.Stringer("kind", kind))
		return "", nil
	}

	summary, err := s.llm.Complete(ctx, prompt, s.formatEntries(entries), llm.Options{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("summarize %s digest: %w", kind, err)
	}
	return strings.TrimSpace(summary), nil
}

func (s *Scheduler) window(kind Kind) (time.Time, string) {
	now := s.now().In(s.cfg.Location)
	if kind == Weekly {
		return now.AddDate(0, 0, -7), weeklyDigestPrompt
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location), dailyDigestPrompt
}

func (s *Scheduler) formatEntries(entries []store.Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		category := e.Category
		if category == "" {
			category = "N/A"
		}
		parts = append(parts, fmt.Sprintf("[%s] (%s)\n%s",
			e.CreatedAt.In(s.cfg.Location).Format("2006-01-02 15:04"), category, e.Text()))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

const dailyDigestPrompt = `You are a personal productivity assistant. Summarize the following notes from today.
Group by topic. List action items separately. Note overall mood/sentiment.
Answer in Russian. Format as a clean, readable digest.`

const weeklyDigestPrompt = `You are a personal productivity assistant. Summarize the following notes from this week.
Identify key themes. Track action items. Note sentiment trends across the week.
Answer in Russian. Format as a clean weekly review.`
