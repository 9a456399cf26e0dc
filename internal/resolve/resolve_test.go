package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/host"
	"github.com/dmorn/hex/internal/llm"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string, _ llm.Options) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func newTestResolver(reply string, err error) (*Resolver, *fakeCompleter) {
	fc := &fakeCompleter{reply: reply, err: err}
	d := command.NewDispatcher(command.Builtin(host.NewFake()), command.DefaultMacros(), nil)
	return New(fc, d.Registry(), d.Macros(), nil), fc
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  *command.Descriptor
	}{
		{
			name:  "plain",
			reply: `{"intent":"volume_up","params":{"percent":10}}`,
			want:  &command.Descriptor{Intent: command.IntentVolumeUp, Params: command.Params{"percent": float64(10)}},
		},
		{
			name:  "fenced",
			reply: "```json\n{\"intent\":\"lock\",\"params\":{}}\n```",
			want:  &command.Descriptor{Intent: command.IntentLock, Params: command.Params{}},
		},
		{
			name:  "missing params",
			reply: `{"intent":"screenshot"}`,
			want:  &command.Descriptor{Intent: command.IntentScreenshot, Params: command.Params{}},
		},
		{name: "unknown", reply: `{"intent":"unknown","params":{}}`},
		{name: "unregistered", reply: `{"intent":"make_coffee","params":{}}`},
		{name: "prose", reply: "Конечно! Выключаю."},
		{name: "empty", reply: ""},
		{name: "upstream error", err: errors.New("503")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(tt.reply, tt.err)
			got := r.Resolve(context.Background(), "выключи звук")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePromptListsMacros(t *testing.T) {
	r, fc := newTestResolver(`{"intent":"lock","params":{}}`, nil)
	require.NotNil(t, r.Resolve(context.Background(), "заблокируй"))
	assert.Contains(t, fc.system, "Available macros: start_work, end_work, music_mode, focus_mode, presentation")
	assert.Equal(t, "заблокируй", fc.user)
}

func TestResolveEmptyTextSkipsClassifier(t *testing.T) {
	r, fc := newTestResolver(`{"intent":"lock"}`, nil)
	assert.Nil(t, r.Resolve(context.Background(), "   "))
	assert.Empty(t, fc.user)
}

func TestParseReminder(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  ReminderRequest
		ok    bool
	}{
		{"ok", `{"delay_seconds": 1800, "text": "проверить почту"}`, ReminderRequest{1800, "проверить почту"}, true},
		{"fenced", "```\n{\"delay_seconds\": 60, \"text\": \"чай\"}\n```", ReminderRequest{60, "чай"}, true},
		{"zero delay", `{"delay_seconds": 0, "text": "сейчас"}`, ReminderRequest{0, "сейчас"}, true},
		{"missing delay", `{"text": "чай"}`, ReminderRequest{}, false},
		{"missing text", `{"delay_seconds": 60}`, ReminderRequest{}, false},
		{"negative", `{"delay_seconds": -5, "text": "x"}`, ReminderRequest{}, false},
		{"one year", `{"delay_seconds": 31622400, "text": "x"}`, ReminderRequest{MaxReminderDelay, "x"}, true},
		{"above a year", `{"delay_seconds": 31622401, "text": "x"}`, ReminderRequest{}, false},
		{"overflows int", `{"delay_seconds": 1e19, "text": "x"}`, ReminderRequest{}, false},
		{"garbage", `через час`, ReminderRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fc := newTestResolver(tt.reply, nil)
			got, ok := r.ParseReminder(context.Background(), "напомни")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, ReminderPrompt, fc.system)
		})
	}
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		ok   bool
	}{
		{"Гекс, выключи звук", "выключи звук", true},
		{"гексик открой блокнот", "открой блокнот", true},
		{"HEX! lock", "lock", true},
		{"  heks. следующий трек", "следующий трек", true},
		{"гекс", "", true},
		{"гексагон это фигура", "", false},
		{"просто заметка про гекс", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := ExtractCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cmd, cmd)
		})
	}
}

func TestIsReminderRequest(t *testing.T) {
	assert.True(t, IsReminderRequest("Напомни через час позвонить маме"))
	assert.True(t, IsReminderRequest("поставь напоминание на завтра"))
	assert.True(t, IsReminderRequest("Remind me in 5 minutes"))
	assert.False(t, IsReminderRequest("выключи компьютер"))
}
