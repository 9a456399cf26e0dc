package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/journal"
	"github.com/dmorn/hex/internal/resolve"
)

// Handle processes one update to completion. Every authorized update gets
// at least one reply.
func (b *Bot) Handle(ctx context.Context, u Update) {
	kind := "text"
	switch {
	case u.CallbackID != "":
		kind = "callback"
	case u.Voice != nil:
		kind = "voice"
	}
	b.events.Inbound(u.UserID, u.ChatID, kind, u.Text)

	if !b.authorized(u.UserID) {
		b.log.Warn("unauthorized update dropped", zap.Int64("user_id", u.UserID))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", zap.Any("panic", r), zap.Int64("update_id", u.UpdateID))
			b.send(ctx, u.ChatID, fmt.Sprintf("Ошибка: %v", r))
		}
	}()

	if kind == "callback" {
		b.handleCallback(ctx, u)
		return
	}

	stop := b.typing(ctx, u.ChatID)
	defer stop()
	if kind == "voice" {
		b.handleVoice(ctx, u)
		return
	}
	b.handleText(ctx, u)
}

func (b *Bot) authorized(userID int64) bool {
	return b.opts.OperatorID == 0 || userID == b.opts.OperatorID
}

// handleCallback treats a button press like a typed confirmation reply.
func (b *Bot) handleCallback(ctx context.Context, u Update) {
	if bs, ok := b.opts.Messenger.(ButtonSender); ok {
		if err := bs.AnswerCallback(ctx, u.CallbackID, ""); err != nil {
			b.events.Error("answer_callback", err)
		}
	}
	out, handled := b.opts.Gate.Reply(ctx, u.UserID, u.Text)
	if !handled {
		b.send(ctx, u.ChatID, "Нет команды, ожидающей подтверждения.")
		return
	}
	b.deliver(ctx, u.ChatID, "", out)
}

func (b *Bot) handleText(ctx context.Context, u Update) {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleSlash(ctx, u, text)
		return
	}

	// A pending dangerous command consumes the next plain text, whatever it is.
	if out, handled := b.opts.Gate.Reply(ctx, u.UserID, text); handled {
		b.deliver(ctx, u.ChatID, "", out)
		return
	}

	if cmd, ok := resolve.ExtractCommand(text); ok && cmd != "" {
		b.handleCommand(ctx, u, cmd)
		return
	}
	b.record(ctx, u, text, "text", 0)
}

func (b *Bot) handleVoice(ctx context.Context, u Update) {
	if b.opts.Transcriber == nil {
		b.send(ctx, u.ChatID, "Не удалось распознать речь.")
		return
	}
	audio, err := b.opts.Messenger.Download(ctx, u.Voice.FileID)
	if err != nil {
		b.events.Error("download", err)
		b.send(ctx, u.ChatID, "Не удалось получить файл.")
		return
	}
	raw, err := b.opts.Transcriber.Transcribe(ctx, audio, "voice.ogg")
	if err != nil {
		b.events.Error("transcribe", err)
		b.send(ctx, u.ChatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		b.send(ctx, u.ChatID, "Не удалось распознать речь.")
		return
	}

	if cmd, ok := resolve.ExtractCommand(raw); ok && cmd != "" {
		b.handleCommand(ctx, u, cmd)
		return
	}
	b.record(ctx, u, raw, "voice", float64(u.Voice.Duration))
}

// handleCommand runs wake-word command text: a reminder request, or an
// intent passed through the gate.
func (b *Bot) handleCommand(ctx context.Context, u Update, cmd string) {
	if resolve.IsReminderRequest(cmd) {
		b.createReminder(ctx, u, cmd)
		return
	}

	d := b.opts.Resolver.Resolve(ctx, cmd)
	if d == nil {
		b.send(ctx, u.ChatID, fmt.Sprintf("🎯 Команда: %s\n❌ Не удалось распознать.", cmd))
		return
	}

	out, awaiting := b.opts.Gate.Submit(ctx, u.UserID, *d)
	if awaiting {
		b.askConfirmation(ctx, u.ChatID, out.Message())
		return
	}
	b.deliver(ctx, u.ChatID, cmd, out)
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, prompt string) {
	bs, ok := b.opts.Messenger.(ButtonSender)
	if !ok {
		b.send(ctx, chatID, prompt)
		return
	}
	err := bs.SendWithButtons(ctx, chatID, prompt, []Button{
		{Text: "✅ Да", Data: "да"},
		{Text: "❌ Нет", Data: "нет"},
	})
	if err != nil {
		b.events.Error("send_buttons", err)
		b.send(ctx, chatID, prompt)
		return
	}
	b.events.Outbound(chatID, prompt)
}

// deliver sends an outcome. cmd, when set, prefixes text results with the
// command that produced them.
func (b *Bot) deliver(ctx context.Context, chatID int64, cmd string, out command.Outcome) {
	if bin, ok := out.(command.BinaryOutcome); ok {
		if err := b.opts.Messenger.SendDocument(ctx, chatID, bin.Filename, bin.Data, ""); err != nil {
			b.events.Error("send_document", err)
			b.send(ctx, chatID, fmt.Sprintf("❌ Не удалось отправить файл: %v", err))
			return
		}
		b.send(ctx, chatID, bin.Caption)
		return
	}
	msg := out.Message()
	if cmd != "" {
		msg = fmt.Sprintf("🎯 %s\n%s", cmd, msg)
	}
	b.send(ctx, chatID, msg)
}

func (b *Bot) createReminder(ctx context.Context, u Update, cmd string) {
	req, ok := b.opts.Resolver.ParseReminder(ctx, cmd)
	if !ok {
		b.send(ctx, u.ChatID, "❌ Не удалось разобрать напоминание.")
		return
	}
	if b.opts.Store == nil {
		b.send(ctx, u.ChatID, "❌ Хранилище напоминаний недоступно.")
		return
	}
	at := b.now().Add(time.Duration(req.DelaySeconds) * time.Second)
	id, err := b.opts.Store.CreateReminder(ctx, u.UserID, req.Text, at)
	if err != nil {
		b.events.Error("create_reminder", err)
		b.send(ctx, u.ChatID, fmt.Sprintf("❌ Не удалось сохранить напоминание: %v", err))
		return
	}
	b.send(ctx, u.ChatID, fmt.Sprintf("🔔 Напоминание создано (id=%d):\n«%s» через %d мин.",
		id, req.Text, req.DelaySeconds/60))
}

// record saves a non-command message to the journal under the operator's mode.
func (b *Bot) record(ctx context.Context, u Update, raw, source string, duration float64) {
	if b.opts.Journal == nil {
		b.send(ctx, u.ChatID, raw)
		return
	}
	mode, err := b.opts.State.Mode(ctx, u.UserID)
	if err != nil {
		b.log.Warn("read mode", zap.Int64("user_id", u.UserID), zap.Error(err))
	}
	reply, err := b.opts.Journal.Record(ctx, journal.Input{
		UserID:   u.UserID,
		Raw:      raw,
		Mode:     mode,
		Duration: duration,
		Source:   source,
	})
	if err != nil {
		b.events.Error("journal", err)
		b.send(ctx, u.ChatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}
	b.send(ctx, u.ChatID, reply)
}
