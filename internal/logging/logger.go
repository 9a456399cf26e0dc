// Package logging builds the process logger and the event helpers used by the
// bot loop. Every event line carries an "event" field (inbound, llm_call,
// command_exec, outbound, error) so transcripts can be grepped by kind.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil || level == "" {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Events emits the bot's structured event lines.
type Events struct {
	log *zap.Logger
}

func NewEvents(l *zap.Logger) *Events {
	return &Events{log: OrNop(l)}
}

func (e *Events) Inbound(userID, chatID int64, kind, text string) {
	e.log.Info("inbound",
		zap.String("event", "inbound"),
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
		zap.String("kind", kind),
		zap.String("text", text),
	)
}

func (e *Events) LLMCall(class, model string, tokensIn, tokensOut int, durationMs int64) {
	e.log.Info("llm_call",
		zap.String("event", "llm_call"),
		zap.String("class", class),
		zap.String("model", model),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
		zap.Int64("duration_ms", durationMs),
	)
}

func (e *Events) CommandExec(intent string, durationMs int64, success bool, errMsg string) {
	e.log.Info("command_exec",
		zap.String("event", "command_exec"),
		zap.String("intent", intent),
		zap.Int64("duration_ms", durationMs),
		zap.Bool("success", success),
		zap.String("error", errMsg),
	)
}

func (e *Events) Outbound(chatID int64, text string) {
	e.log.Info("outbound",
		zap.String("event", "outbound"),
		zap.Int64("chat_id", chatID),
		zap.String("text", text),
	)
}

func (e *Events) Error(where string, err error) {
	e.log.Error("error",
		zap.String("event", "error"),
		zap.String("context", where),
		zap.Error(err),
	)
}
