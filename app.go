package main

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmorn/hex/internal/bot"
	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/config"
	"github.com/dmorn/hex/internal/confirm"
	"github.com/dmorn/hex/internal/host"
	"github.com/dmorn/hex/internal/journal"
	"github.com/dmorn/hex/internal/llm"
	"github.com/dmorn/hex/internal/logging"
	"github.com/dmorn/hex/internal/resolve"
	"github.com/dmorn/hex/internal/scheduler"
	"github.com/dmorn/hex/internal/session"
	"github.com/dmorn/hex/internal/store"
	"github.com/dmorn/hex/internal/telegram"
)

// app owns every long-lived component of a running bot.
type app struct {
	log       *zap.Logger
	store     store.Store
	redis     *session.Redis
	audit     *session.Audit
	bot       *bot.Bot
	scheduler *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}

	var state session.State = session.NewMemory()
	if cfg.RedisAddr != "" {
		a.redis = session.NewRedis(cfg.RedisAddr, "", 0)
		if err = a.redis.Ping(ctx); err != nil {
			return nil, err
		}
		state = a.redis
		log.Info("session state in redis", zap.String("addr", cfg.RedisAddr))
	}

	if cfg.AuditDir != "" {
		if a.audit, err = session.NewAudit(cfg.AuditDir, log.Named("audit")); err != nil {
			return nil, err
		}
	}

	goos := cfg.HostOS
	if goos == "" {
		goos = runtime.GOOS
	}
	h, err := host.New(goos, log.Named("host"))
	if err != nil {
		return nil, err
	}

	macros, err := buildMacros(cfg)
	if err != nil {
		return nil, err
	}
	reg := command.Builtin(h)
	disp := command.NewDispatcher(reg, macros, log.Named("command"))

	quota := llm.NewQuota()
	client, transcriber, err := newLLM(cfg, quota, log)
	if err != nil {
		return nil, err
	}

	tg := telegram.New(cfg.TelegramToken)
	a.bot, err = bot.New(bot.Options{
		Messenger:   tg,
		Transcriber: transcriber,
		Gate:        confirm.New(state, disp, reg, a.audit, log.Named("confirm")),
		Resolver:    resolve.New(client, reg, macros, log.Named("resolve")),
		Journal:     journal.New(client, a.store, quota, log.Named("journal")).WithLocation(cfg.Location()),
		Store:       a.store,
		State:       state,
		Registry:    reg,
		Macros:      macros,
		Quota:       quota,
		Logger:      log,
		OperatorID:  cfg.OperatorID,
		PollTimeout: cfg.PollTimeout,
		Location:    cfg.Location(),
	})
	if err != nil {
		return nil, err
	}

	schedCfg := scheduler.Config{
		Interval:   cfg.ReminderInterval,
		OperatorID: cfg.OperatorID,
		Location:   cfg.Location(),
	}
	if schedCfg.Daily, err = parseTrigger("DAILY_DIGEST_AT", cfg.DailyDigestAt); err != nil {
		return nil, err
	}
	if schedCfg.Weekly, err = parseTrigger("WEEKLY_DIGEST_AT", cfg.WeeklyDigestAt); err != nil {
		return nil, err
	}
	a.scheduler = scheduler.New(a.store, tg, client, a.audit, schedCfg, log.Named("scheduler"))
	return a, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *app) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.bot.Run(ctx) })
	g.Go(func() error { return a.scheduler.Run(ctx) })
	err := g.Wait()
	a.log.Info("hex stopped")
	return err
}

func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// openStore opens Postgres when DATABASE_URL is set and SQLite otherwise,
// and brings the schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("schema: %w", err)
		}
		return pg, nil
	}
	lite, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// newLLM returns the text client for the configured provider and the
// transcriber. Transcription always goes through Groq Whisper; without a
// Groq key voice notes cannot be transcribed.
func newLLM(cfg *config.Config, quota *llm.Quota, log *zap.Logger) (*llm.Client, llm.Transcriber, error) {
	var groq *llm.GroqProvider
	if cfg.GroqKey != "" {
		var err error
		groq, err = llm.NewGroqProvider(cfg.GroqKey, llm.GroqOptions{WhisperModel: cfg.WhisperModel, Quota: quota})
		if err != nil {
			return nil, nil, fmt.Errorf("llm provider: %w", err)
		}
	}

	var provider llm.Provider
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		p, err := llm.NewAnthropicProvider(cfg.LLMKey, nil, quota)
		if err != nil {
			return nil, nil, fmt.Errorf("llm provider: %w", err)
		}
		provider = p
	default:
		if groq == nil {
			return nil, nil, fmt.Errorf("llm provider: missing GROQ_API_KEY")
		}
		provider = groq
	}

	client := llm.New(provider, llm.Options{Model: cfg.LLMModel}).
		WithEvents(logging.NewEvents(log.Named("llm")))

	var transcriber llm.Transcriber
	if groq != nil {
		transcriber = groq
	} else {
		log.Warn("GROQ_API_KEY not set: voice notes cannot be transcribed")
	}
	return client, transcriber, nil
}

// buildMacros returns the built-in macros plus the config file's, which
// replace built-ins of the same name.
func buildMacros(cfg *config.Config) (*command.Macros, error) {
	macros := command.DefaultMacros()
	for _, m := range cfg.Macros {
		if m.Name == "" {
			return nil, fmt.Errorf("config macro without a name")
		}
		mac := command.Macro{Name: m.Name, Label: m.Label}
		if mac.Label == "" {
			mac.Label = m.Name
		}
		for _, s := range m.Steps {
			mac.Steps = append(mac.Steps, command.Descriptor{
				Intent: command.Intent(s.Intent),
				Params: command.Params(s.Params),
			})
		}
		macros.Add(mac)
	}
	return macros, nil
}

func parseTrigger(name, v string) (*scheduler.Trigger, error) {
	if v == "" {
		return nil, nil
	}
	t, err := scheduler.ParseTrigger(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}
