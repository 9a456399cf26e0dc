package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorn/hex/internal/command"
	"github.com/dmorn/hex/internal/config"
)

func TestBuildMacrosOverridesAndAdds(t *testing.T) {
	cfg := &config.Config{Macros: []config.Macro{
		{Name: "focus_mode", Label: "Глубокий фокус", Steps: []config.Step{{Intent: "volume_mute"}}},
		{Name: "night", Steps: []config.Step{{Intent: "lock", Params: map[string]any{}}}},
	}}

	macros, err := buildMacros(cfg)
	require.NoError(t, err)

	focus, ok := macros.Lookup("focus_mode")
	require.True(t, ok)
	assert.Equal(t, "Глубокий фокус", focus.Label)
	require.Len(t, focus.Steps, 1)
	assert.Equal(t, command.IntentVolumeMute, focus.Steps[0].Intent)

	night, ok := macros.Lookup("night")
	require.True(t, ok)
	assert.Equal(t, "night", night.Label, "label defaults to name")

	_, ok = macros.Lookup("start_work")
	assert.True(t, ok, "built-ins kept")
}

func TestBuildMacrosRejectsUnnamed(t *testing.T) {
	_, err := buildMacros(&config.Config{Macros: []config.Macro{{Label: "x"}}})
	assert.Error(t, err)
}

func TestParseTriggerSetting(t *testing.T) {
	trig, err := parseTrigger("DAILY_DIGEST_AT", "")
	require.NoError(t, err)
	assert.Nil(t, trig, "empty disables")

	trig, err = parseTrigger("WEEKLY_DIGEST_AT", "sun 20:00")
	require.NoError(t, err)
	require.NotNil(t, trig)
	assert.True(t, trig.Weekly)

	_, err = parseTrigger("DAILY_DIGEST_AT", "25:00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAILY_DIGEST_AT")
}

func TestOpenStoreSQLiteMigrates(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "hex.db")}
	st, err := openStore(t.Context(), cfg)
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(cfg.DBPath)
	assert.NoError(t, err)
}

func TestCommandsSubcommand(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"commands"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "shutdown"))
	assert.Contains(t, lines[0], "⚠️")
	assert.Contains(t, out.String(), "list_macros")
}
