package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmorn/hex/internal/host"
)

// DefaultShutdownDelay is used when shutdown carries no delay_seconds.
const DefaultShutdownDelay = 60

// DefaultVolumePercent is used when volume_up/volume_down carry no percent.
const DefaultVolumePercent = 10

// Builtin returns a registry with every host command. The macro intents are
// added by NewDispatcher.
func Builtin(h host.Host) *Registry {
	hs := &hostCommands{h: h}
	r := NewRegistry()

	r.mustRegister(Entry{Intent: IntentShutdown, Label: "Выключение ПК", Dangerous: true, Handler: hs.shutdown,
		Schema: json.RawMessage(`{"type":"object","properties":{"delay_seconds":{"type":"integer","minimum":0}}}`)})
	r.mustRegister(Entry{Intent: IntentRestart, Label: "Перезагрузка", Dangerous: true, Handler: hs.simple(h.Restart, "🔄 Перезагрузка через 5 сек.")})
	r.mustRegister(Entry{Intent: IntentCancelShutdown, Label: "Отмена выключения", Handler: hs.simple(h.CancelShutdown, "🚫 Выключение/перезагрузка отменены.")})
	r.mustRegister(Entry{Intent: IntentSleep, Label: "Сон", Handler: hs.simple(h.Sleep, "😴 ПК уходит в сон.")})
	r.mustRegister(Entry{Intent: IntentLock, Label: "Блокировка", Handler: hs.simple(h.Lock, "🔒 Экран заблокирован.")})
	r.mustRegister(Entry{Intent: IntentHibernate, Label: "Гибернация", Dangerous: true, Handler: hs.simple(h.Hibernate, "❄️ Гибернация.")})

	r.mustRegister(Entry{Intent: IntentOpenApp, Label: "Открытие приложения", Handler: hs.openApp,
		Schema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}}}`)})
	r.mustRegister(Entry{Intent: IntentCloseApp, Label: "Закрытие приложения", Handler: hs.closeApp,
		Schema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}}}`)})

	volume := json.RawMessage(`{"type":"object","properties":{"percent":{"type":"integer","minimum":0,"maximum":100}}}`)
	r.mustRegister(Entry{Intent: IntentVolumeUp, Label: "Громкость +", Schema: volume, Handler: hs.volume(host.KeyVolumeUp, "🔊 Громкость +%d%%.")})
	r.mustRegister(Entry{Intent: IntentVolumeDown, Label: "Громкость -", Schema: volume, Handler: hs.volume(host.KeyVolumeDown, "🔉 Громкость -%d%%.")})
	r.mustRegister(Entry{Intent: IntentVolumeMute, Label: "Mute", Handler: hs.key(host.KeyVolumeMute, "🔇 Звук переключён (mute/unmute).")})
	r.mustRegister(Entry{Intent: IntentMediaPlayPause, Label: "Play/Pause", Handler: hs.key(host.KeyPlayPause, "⏯ Play/Pause.")})
	r.mustRegister(Entry{Intent: IntentMediaNext, Label: "Следующий трек", Handler: hs.key(host.KeyNextTrack, "⏭ Следующий трек.")})
	r.mustRegister(Entry{Intent: IntentMediaPrev, Label: "Предыдущий трек", Handler: hs.key(host.KeyPrevTrack, "⏮ Предыдущий трек.")})

	r.mustRegister(Entry{Intent: IntentScreenshot, Label: "Скриншот", Handler: hs.screenshot})
	r.mustRegister(Entry{Intent: IntentTypeText, Label: "Ввод текста", Handler: hs.typeText,
		Schema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`)})
	r.mustRegister(Entry{Intent: IntentOpenURL, Label: "Открытие URL", Handler: hs.openURL,
		Schema: json.RawMessage(`{"type":"object","properties":{"url":{"type":"string"}}}`)})
	r.mustRegister(Entry{Intent: IntentHotkey, Label: "Горячие клавиши", Handler: hs.hotkey,
		Schema: json.RawMessage(`{"type":"object","properties":{"keys":{"type":"array","items":{"type":"string"}}}}`)})

	return r
}

type hostCommands struct {
	h host.Host
}

func (hs *hostCommands) simple(fn func(context.Context) error, msg string) Handler {
	return func(ctx context.Context, _ Params) (Outcome, error) {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		return Text(msg), nil
	}
}

func (hs *hostCommands) shutdown(ctx context.Context, p Params) (Outcome, error) {
	delay := p.Int("delay_seconds", DefaultShutdownDelay)
	if err := hs.h.Shutdown(ctx, delay); err != nil {
		return nil, err
	}
	return Text(fmt.Sprintf("⏻ Выключение через %d сек.", delay)), nil
}

func (hs *hostCommands) openApp(ctx context.Context, p Params) (Outcome, error) {
	name := strings.TrimSpace(p.String("name"))
	if name == "" {
		return Failure("❌ Не указано имя приложения.", nil), nil
	}
	if err := hs.h.OpenApp(ctx, name); err != nil {
		return Failure(fmt.Sprintf("❌ Не удалось открыть %s: %v", name, err), err), nil
	}
	return Text(fmt.Sprintf("🚀 Открываю %s.", name)), nil
}

func (hs *hostCommands) closeApp(ctx context.Context, p Params) (Outcome, error) {
	name := strings.TrimSpace(p.String("name"))
	if name == "" {
		return Failure("❌ Не указано имя приложения.", nil), nil
	}
	proc, err := hs.h.CloseApp(ctx, name)
	if err != nil {
		return Failure(fmt.Sprintf("❌ Не удалось завершить %s: %v", proc, err), err), nil
	}
	return Text(fmt.Sprintf("💀 Процесс %s завершён.", proc)), nil
}

// volumeSteps converts a percentage into key presses. Each press moves the
// system volume by two percent; at least one press is always sent.
func volumeSteps(percent int) int {
	return max(1, percent/2)
}

func (hs *hostCommands) volume(key host.Key, format string) Handler {
	return func(ctx context.Context, p Params) (Outcome, error) {
		steps := volumeSteps(p.Int("percent", DefaultVolumePercent))
		if err := hs.h.PressKey(ctx, key, steps); err != nil {
			return nil, err
		}
		return Text(fmt.Sprintf(format, steps*2)), nil
	}
}

func (hs *hostCommands) key(key host.Key, msg string) Handler {
	return func(ctx context.Context, _ Params) (Outcome, error) {
		if err := hs.h.PressKey(ctx, key, 1); err != nil {
			return nil, err
		}
		return Text(msg), nil
	}
}

func (hs *hostCommands) screenshot(ctx context.Context, _ Params) (Outcome, error) {
	png, err := hs.h.Screenshot(ctx)
	if err != nil {
		return Failure("❌ Не удалось сделать скриншот.", err), nil
	}
	return BinaryOutcome{Filename: "screenshot.png", Data: png, Caption: "📸 Скриншот отправлен."}, nil
}

func (hs *hostCommands) typeText(ctx context.Context, p Params) (Outcome, error) {
	text := p.String("text")
	if text == "" {
		return Failure("❌ Не указан текст для ввода.", nil), nil
	}
	if err := hs.h.TypeText(ctx, text); err != nil {
		return Failure(fmt.Sprintf("❌ Ошибка ввода текста: %v", err), err), nil
	}
	preview := []rune(text)
	suffix := ""
	if len(preview) > 50 {
		preview = preview[:50]
		suffix = "..."
	}
	return Text(fmt.Sprintf("⌨️ Текст введён: %s%s", string(preview), suffix)), nil
}

func (hs *hostCommands) openURL(ctx context.Context, p Params) (Outcome, error) {
	url := strings.TrimSpace(p.String("url"))
	if url == "" {
		return Failure("❌ Не указан URL.", nil), nil
	}
	if err := hs.h.OpenURL(ctx, url); err != nil {
		return Failure(fmt.Sprintf("❌ Не удалось открыть URL: %v", err), err), nil
	}
	return Text("🌐 Открываю " + url), nil
}

func (hs *hostCommands) hotkey(ctx context.Context, p Params) (Outcome, error) {
	keys := p.Strings("keys")
	if len(keys) == 0 {
		return Failure("❌ Не указаны клавиши.", nil), nil
	}
	if err := hs.h.Hotkey(ctx, keys); err != nil {
		return Failure(fmt.Sprintf("❌ Ошибка: %v", err), err), nil
	}
	return Text("⌨️ Нажато: " + strings.Join(keys, " + ")), nil
}
