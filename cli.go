package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/config"
	"github.com/dmorn/hex/internal/host"
	"github.com/dmorn/hex/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "hex",
	Short: "Voice-driven personal assistant bot",
	Long: `hex listens to a Telegram operator: voice notes become journal entries,
wake-word commands ("Гекс, ...") drive the host, and reminders and digests are
delivered on schedule.

Without a subcommand it runs the bot.`,
	SilenceUsage: true,
	RunE:         runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot and the scheduler",
	RunE:  runBot,
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List voice commands (⚠️ marks commands that need confirmation)",
	RunE:  listCommands,
}

var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "List macros, including those from the config file",
	RunE:  listMacros,
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List the operator's pending reminders",
	RunE:  listReminders,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  migrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env vars override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (or set LOG_LEVEL env)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(macrosCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.SetErr(os.Stderr)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("starting hex",
		zap.Int64("operator", cfg.OperatorID),
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel))
	return a.Run(ctx)
}

// offlineRegistry builds the command registry for listing. Nothing is
// executed, so the host is a recorder.
func offlineRegistry(cfg *config.Config) (*command.Registry, *command.Macros, error) {
	reg := command.Builtin(host.NewFake())
	macros, err := buildMacros(cfg)
	if err != nil {
		return nil, nil, err
	}
	command.NewDispatcher(reg, macros, nil)
	return reg, macros, nil
}

func listCommands(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	reg, _, err := offlineRegistry(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range reg.Entries() {
		danger := ""
		if e.Dangerous {
			danger = " ⚠️"
		}
		fmt.Fprintf(out, "%-18s %s%s\n", e.Intent, e.Label, danger)
	}
	return nil
}

func listMacros(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	_, macros, err := offlineRegistry(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range macros.List() {
		fmt.Fprintf(out, "%s (%s)\n", m.Name, m.Label)
		for _, s := range m.Steps {
			fmt.Fprintf(out, "  - %s %v\n", s.Intent, map[string]any(s.Params))
		}
	}
	return nil
}

func listReminders(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	if cfg.OperatorID == 0 {
		return fmt.Errorf("TELEGRAM_USER_ID is not set")
	}
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reminders, err := st.PendingReminders(ctx, cfg.OperatorID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(reminders) == 0 {
		fmt.Fprintln(out, "no pending reminders")
		return nil
	}
	loc := cfg.Location()
	for _, r := range reminders {
		fmt.Fprintf(out, "%d\t%s\t%s\n", r.ID, r.RemindAt.In(loc).Format("2006-01-02 15:04"), r.Text)
	}
	return nil
}

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	// Opening a store runs its migration.
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	st.Close()
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
