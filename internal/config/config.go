package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	TelegramToken    string        // TELEGRAM_BOT_TOKEN (required)
	OperatorID       int64         // TELEGRAM_USER_ID (0 = accept anyone)
	LLMProvider      string        // LLM_PROVIDER (default: groq)
	LLMKey           string        // GROQ_API_KEY, or LLM_API_KEY / ANTHROPIC_API_KEY for anthropic
	LLMModel         string        // LLM_MODEL (default depends on provider)
	GroqKey          string        // GROQ_API_KEY; voice transcription uses Groq Whisper with any provider
	WhisperModel     string        // WHISPER_MODEL (default: whisper-large-v3)
	DatabaseURL      string        // DATABASE_URL; when set the Postgres store is used
	DBPath           string        // DB_PATH (default: hex.db, sqlite)
	RedisAddr        string        // REDIS_ADDR; when set operator state lives in Redis
	Timezone         string        // TIMEZONE (default: Europe/Moscow)
	LogLevel         string        // LOG_LEVEL (default: info)
	PollTimeout      int           // POLL_TIMEOUT seconds (default: 30)
	ReminderInterval time.Duration // REMINDER_INTERVAL (default: 30s)
	DailyDigestAt    string        // DAILY_DIGEST_AT (default: 21:00, empty disables)
	WeeklyDigestAt   string        // WEEKLY_DIGEST_AT (default: sun 20:00, empty disables)
	AuditDir         string        // AUDIT_DIR (default: audit)
	HostOS           string        // HOST_OS (default: runtime.GOOS)

	Macros []Macro `yaml:"macros"`
}

// Macro is a user-defined macro loaded from the YAML file.
type Macro struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Intent string         `yaml:"intent"`
	Params map[string]any `yaml:"params"`
}

// file mirrors the YAML layout. Every field is optional.
type file struct {
	OperatorID       int64   `yaml:"operator_id"`
	LLMProvider      string  `yaml:"llm_provider"`
	LLMModel         string  `yaml:"llm_model"`
	WhisperModel     string  `yaml:"whisper_model"`
	DatabaseURL      string  `yaml:"database_url"`
	DBPath           string  `yaml:"db_path"`
	RedisAddr        string  `yaml:"redis_addr"`
	Timezone         string  `yaml:"timezone"`
	LogLevel         string  `yaml:"log_level"`
	PollTimeout      int     `yaml:"poll_timeout"`
	ReminderInterval string  `yaml:"reminder_interval"`
	DailyDigestAt    *string `yaml:"daily_digest_at"`
	WeeklyDigestAt   *string `yaml:"weekly_digest_at"`
	AuditDir         string  `yaml:"audit_dir"`
	HostOS           string  `yaml:"host_os"`
	Macros           []Macro `yaml:"macros"`
}

func defaults() *Config {
	return &Config{
		LLMProvider:      ProviderGroq,
		WhisperModel:     "whisper-large-v3",
		DBPath:           "hex.db",
		Timezone:         "Europe/Moscow",
		LogLevel:         "info",
		PollTimeout:      30,
		ReminderInterval: 30 * time.Second,
		DailyDigestAt:    "21:00",
		WeeklyDigestAt:   "sun 20:00",
		AuditDir:         "audit",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, in that order of precedence (env wins).
// Returns error if required vars are missing.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without the required-value checks, for subcommands that
// never talk to Telegram or the LLM.
func Read(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if f.OperatorID != 0 {
		c.OperatorID = f.OperatorID
	}
	setString(&c.LLMProvider, f.LLMProvider)
	setString(&c.LLMModel, f.LLMModel)
	setString(&c.WhisperModel, f.WhisperModel)
	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.DBPath, f.DBPath)
	setString(&c.RedisAddr, f.RedisAddr)
	setString(&c.Timezone, f.Timezone)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.AuditDir, f.AuditDir)
	setString(&c.HostOS, f.HostOS)
	if f.PollTimeout > 0 {
		c.PollTimeout = f.PollTimeout
	}
	if f.ReminderInterval != "" {
		d, err := time.ParseDuration(f.ReminderInterval)
		if err != nil {
			return fmt.Errorf("invalid reminder_interval: %w", err)
		}
		c.ReminderInterval = d
	}
	if f.DailyDigestAt != nil {
		c.DailyDigestAt = strings.TrimSpace(*f.DailyDigestAt)
	}
	if f.WeeklyDigestAt != nil {
		c.WeeklyDigestAt = strings.TrimSpace(*f.WeeklyDigestAt)
	}
	c.Macros = append(c.Macros, f.Macros...)
	return nil
}

func (c *Config) overlayEnv() error {
	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_USER_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_USER_ID: %w", err)
		}
		c.OperatorID = id
	}

	c.GroqKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	c.LLMProvider = strings.ToLower(envOrDefault("LLM_PROVIDER", c.LLMProvider))
	switch c.LLMProvider {
	case ProviderGroq:
		c.LLMKey = c.GroqKey
	case ProviderAnthropic:
		c.LLMKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
		if c.LLMKey == "" {
			c.LLMKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		}
	}

	c.LLMModel = envOrDefault("LLM_MODEL", c.LLMModel)
	c.WhisperModel = envOrDefault("WHISPER_MODEL", c.WhisperModel)
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.DBPath = envOrDefault("DB_PATH", c.DBPath)
	c.RedisAddr = envOrDefault("REDIS_ADDR", c.RedisAddr)
	c.Timezone = envOrDefault("TIMEZONE", c.Timezone)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.AuditDir = envOrDefault("AUDIT_DIR", c.AuditDir)
	c.HostOS = envOrDefault("HOST_OS", c.HostOS)
	if v, ok := os.LookupEnv("DAILY_DIGEST_AT"); ok {
		c.DailyDigestAt = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("WEEKLY_DIGEST_AT"); ok {
		c.WeeklyDigestAt = strings.TrimSpace(v)
	}

	pollTimeout, err := intEnvOrDefault("POLL_TIMEOUT", c.PollTimeout)
	if err != nil {
		return err
	}
	c.PollTimeout = pollTimeout

	if v := strings.TrimSpace(os.Getenv("REMINDER_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REMINDER_INTERVAL: %w", err)
		}
		c.ReminderInterval = d
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("missing required env var: TELEGRAM_BOT_TOKEN"))
	}
	switch c.LLMProvider {
	case ProviderGroq:
		if c.LLMKey == "" {
			errs = append(errs, errors.New("missing required env var: GROQ_API_KEY"))
		}
	case ProviderAnthropic:
		if c.LLMKey == "" {
			errs = append(errs, errors.New("missing required env var: LLM_API_KEY or ANTHROPIC_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.ReminderInterval <= 0 {
		errs = append(errs, errors.New("reminder interval must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	return errors.Join(errs...)
}

// Location returns the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func defaultModel(provider string) string {
	if provider == ProviderAnthropic {
		return "claude-haiku-4-5"
	}
	return "llama-3.3-70b-versatile"
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func envOrDefault(name, fallback string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	return v
}

func intEnvOrDefault(name string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}
