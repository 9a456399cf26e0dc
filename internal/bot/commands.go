package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmorn/hex/internal/journal"
	"github.com/dmorn/hex/internal/store"
)

const (
	listLimit  = 5
	notesLimit = 10
	moodDays   = 7
)

const welcome = "Привет! Отправь мне голосовое сообщение, и я:\n" +
	"1. Транскрибирую его в текст (Whisper)\n" +
	"2. Отформатирую и категоризирую\n\n" +
	"🎯 Голосовое управление ПК:\n" +
	"Начни фразу с «Гекс» — и я выполню команду.\n" +
	"«Гекс, напомни через 10 минут…» создаст напоминание.\n\n" +
	"📋 Команды:\n" +
	"/mode_meeting — режим митинга\n" +
	"/mode_idea — режим идей\n" +
	"/mode_dictation — режим диктовки (по умолчанию)\n" +
	"/note — режим заметки (сны, мысли, идеи)\n" +
	"/notes — список последних заметок\n" +
	"/diary — сохранять как дневник\n" +
	"/week — обзор недели\n" +
	"/mood — настроение за неделю\n" +
	"/export — экспорт дневника (/export json)\n" +
	"/search [запрос] — поиск по записям\n" +
	"/history — последние записи\n" +
	"/reminders — активные напоминания\n" +
	"/macros — макросы\n" +
	"/limits — лимиты API\n" +
	"/commands — голосовые команды"

var modeReplies = map[string]string{
	journal.ModeMeeting:   "📝 Режим: Митинг. Следующие голосовые будут структурированы как заметки встречи.",
	journal.ModeIdea:      "💡 Режим: Идея. Следующие голосовые будут оформлены как идеи/брейнсторм.",
	journal.ModeDictation: "🎤 Режим: Диктовка (по умолчанию). Минимальная очистка текста.",
	journal.ModeNote:      "📝 Режим заметки активен.\nОтправь голосовое — оно будет сохранено как заметка.",
	journal.ModeDiary:     "📔 Режим дневника активен.\nОтправь голосовое — оно будет сохранено как запись дневника.\nИспользуй /week для обзора недели, /mood для статистики настроения.",
}

// handleSlash answers operator commands. Slash commands never consume a
// pending confirmation.
func (b *Bot) handleSlash(ctx context.Context, u Update, text string) {
	name, arg, _ := strings.Cut(text, " ")
	// Drop a "@botname" suffix used in group chats.
	name, _, _ = strings.Cut(name, "@")
	arg = strings.TrimSpace(arg)

	var reply string
	switch name {
	case "/start", "/help":
		reply = welcome
	case "/commands":
		reply = b.commandsReply()
	case "/macros":
		reply = b.opts.Macros.Describe()
	case "/limits":
		reply = b.opts.Quota.Format()
	case "/mode_meeting":
		reply = b.setMode(ctx, u.UserID, journal.ModeMeeting)
	case "/mode_idea":
		reply = b.setMode(ctx, u.UserID, journal.ModeIdea)
	case "/mode_dictation":
		reply = b.setMode(ctx, u.UserID, journal.ModeDictation)
	case "/note":
		reply = b.setMode(ctx, u.UserID, journal.ModeNote)
	case "/diary":
		reply = b.setMode(ctx, u.UserID, journal.ModeDiary)
	case "/reminders":
		reply = b.remindersReply(ctx, u.UserID)
	case "/history":
		reply = b.historyReply(ctx, u.UserID)
	case "/search":
		reply = b.searchReply(ctx, u.UserID, arg)
	case "/notes":
		reply = b.notesReply(ctx, u.UserID)
	case "/week":
		reply = b.weekReply(ctx, u.UserID)
	case "/mood":
		reply = b.moodReply(ctx, u.UserID, arg)
	case "/export":
		if b.export(ctx, u, arg) {
			return
		}
		reply = "❌ Не удалось экспортировать дневник."
	default:
		reply = fmt.Sprintf("Неизвестная команда %s. Список: /start", name)
	}
	b.send(ctx, u.ChatID, reply)
}

func (b *Bot) setMode(ctx context.Context, userID int64, mode string) string {
	if err := b.opts.State.SetMode(ctx, userID, mode); err != nil {
		b.log.Error("set mode", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Sprintf("❌ Не удалось сменить режим: %v", err)
	}
	return modeReplies[mode]
}

func (b *Bot) commandsReply() string {
	lines := []string{"🎯 Доступные голосовые команды:\n"}
	for _, e := range b.opts.Registry.Entries() {
		danger := ""
		if e.Dangerous {
			danger = " ⚠️"
		}
		lines = append(lines, "• "+e.Label+danger)
	}
	lines = append(lines, "\nНачни фразу с «Гекс» + команда.")
	return strings.Join(lines, "\n")
}

func (b *Bot) remindersReply(ctx context.Context, userID int64) string {
	if b.opts.Store == nil {
		return "🔔 Нет активных напоминаний."
	}
	reminders, err := b.opts.Store.PendingReminders(ctx, userID)
	if err != nil {
		b.events.Error("reminders", err)
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if len(reminders) == 0 {
		return "🔔 Нет активных напоминаний."
	}
	lines := []string{"🔔 Активные напоминания:\n"}
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf("• [%s] %s", b.stamp(r.RemindAt), r.Text))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) historyReply(ctx context.Context, userID int64) string {
	if b.opts.Store == nil {
		return "📚 История пуста."
	}
	entries, err := b.opts.Store.History(ctx, userID, listLimit)
	if err != nil {
		b.events.Error("history", err)
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if len(entries) == 0 {
		return "📚 История пуста."
	}
	return b.entryList("📚 Последние записи:\n", entries)
}

func (b *Bot) searchReply(ctx context.Context, userID int64, query string) string {
	if query == "" {
		return "Укажи запрос: /search ключевое слово"
	}
	var entries []store.Entry
	if b.opts.Store != nil {
		var err error
		entries, err = b.opts.Store.Search(ctx, userID, query, listLimit)
		if err != nil {
			b.events.Error("search", err)
			return fmt.Sprintf("Ошибка: %v", err)
		}
	}
	if len(entries) == 0 {
		return fmt.Sprintf("🔍 По запросу «%s» ничего не найдено.", query)
	}
	return b.entryList(fmt.Sprintf("🔍 Результаты по «%s»:\n", query), entries)
}

func (b *Bot) notesReply(ctx context.Context, userID int64) string {
	if b.opts.Journal == nil {
		return "📝 Заметок пока нет."
	}
	notes, err := b.opts.Journal.Notes(ctx, userID, notesLimit)
	if err != nil {
		b.events.Error("notes", err)
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if len(notes) == 0 {
		return "📝 Заметок пока нет."
	}
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		preview := n.Text()
		if r := []rune(preview); len(r) >= 100 {
			preview = string(r[:100]) + "..."
		}
		lines = append(lines, fmt.Sprintf("📝 %s\n%s\n", b.stamp(n.CreatedAt), preview))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) weekReply(ctx context.Context, userID int64) string {
	if b.opts.Journal == nil {
		return "📅 За эту неделю нет записей в дневнике."
	}
	review, err := b.opts.Journal.WeeklyReview(ctx, userID)
	if err != nil {
		b.events.Error("week", err)
		return fmt.Sprintf("Ошибка: %v", err)
	}
	if review == "" {
		return "📅 За эту неделю нет записей в дневнике."
	}
	return "📅 Обзор недели:\n\n" + review
}

// moodReply counts sentiments over the last days (7 unless arg is a
// positive number).
func (b *Bot) moodReply(ctx context.Context, userID int64, arg string) string {
	days := moodDays
	if n, err := strconv.Atoi(arg); err == nil && n > 0 && n <= 366 {
		days = n
	}
	if b.opts.Journal == nil {
		return fmt.Sprintf("За последние %d дней нет записей с анализом настроения.", days)
	}
	summary, err := b.opts.Journal.MoodSummary(ctx, userID, days)
	if err != nil {
		b.events.Error("mood", err)
		return fmt.Sprintf("Ошибка: %v", err)
	}
	return summary
}

// export sends the diary as a document. It reports false when nothing was
// sent.
func (b *Bot) export(ctx context.Context, u Update, arg string) bool {
	if b.opts.Journal == nil {
		return false
	}
	format := journal.ExportMarkdown
	if strings.EqualFold(arg, journal.ExportJSON) {
		format = journal.ExportJSON
	}
	data, filename, err := b.opts.Journal.Export(ctx, u.UserID, format)
	if err != nil {
		b.events.Error("export", err)
		return false
	}
	caption := fmt.Sprintf("📔 Экспорт дневника (%s)", format)
	if err := b.opts.Messenger.SendDocument(ctx, u.ChatID, filename, data, caption); err != nil {
		b.events.Error("send_document", err)
		return false
	}
	b.events.Outbound(u.ChatID, caption)
	return true
}

func (b *Bot) entryList(header string, entries []store.Entry) string {
	lines := []string{header}
	for _, e := range entries {
		category := e.Category
		if category == "" {
			category = "—"
		}
		lines = append(lines, fmt.Sprintf("📄 [%s] (%s)\n%s...\n", b.stamp(e.CreatedAt), category, truncate(e.Text(), 150)))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) stamp(t time.Time) string {
	return t.In(b.opts.Location).Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
