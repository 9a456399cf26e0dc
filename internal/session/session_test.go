package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorn/hex/internal/command"
)

func exerciseState(t *testing.T, s State, operator int64) {
	t.Helper()
	ctx := context.Background()

	d, err := s.TakePending(ctx, operator)
	require.NoError(t, err)
	assert.Nil(t, d)

	a := command.Descriptor{Intent: command.IntentShutdown, Params: command.Params{"delay_seconds": float64(300)}}
	b := command.Descriptor{Intent: command.IntentRestart, Params: command.Params{}}
	require.NoError(t, s.SetPending(ctx, operator, a))
	require.NoError(t, s.SetPending(ctx, operator, b))

	peek, err := s.Pending(ctx, operator)
	require.NoError(t, err)
	require.NotNil(t, peek)
	assert.Equal(t, command.IntentRestart, peek.Intent)

	got, err := s.TakePending(ctx, operator)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.Intent, got.Intent)

	again, err := s.TakePending(ctx, operator)
	require.NoError(t, err)
	assert.Nil(t, again)

	mode, err := s.Mode(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, "", mode)
	require.NoError(t, s.SetMode(ctx, operator, "meeting"))
	mode, err = s.Mode(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, "meeting", mode)
}

func TestMemoryState(t *testing.T) {
	exerciseState(t, NewMemory(), 42)
}

// TestRedisState requires a running Redis and is skipped otherwise.
func TestRedisState(t *testing.T) {
	s := NewRedis("localhost:6379", "", 0)
	defer s.Close()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	s.prefix = "hex-test"
	operator := int64(987654)
	s.client.Del(ctx, s.pendingKey(operator), s.modeKey(operator))
	defer s.client.Del(ctx, s.pendingKey(operator), s.modeKey(operator))

	exerciseState(t, s, operator)
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAuditChainsEvents(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAudit(dir, nil)
	require.NoError(t, err)

	d := command.Descriptor{Intent: command.IntentLock, Params: command.Params{}}
	a.Record(7, DescriptorEvent(EventDispatch, d, command.Text("🔒 Экран заблокирован.")))
	a.Record(7, DescriptorEvent(EventDispatch, d, command.Failure("❌ boom", errors.New("boom"))))
	a.Close()

	events := readEvents(t, filepath.Join(dir, "7.jsonl"))
	require.Len(t, events, 3)
	assert.Equal(t, EventSession, events[0].Type)
	assert.Equal(t, int64(7), events[0].UserID)
	assert.Equal(t, events[0].ID, events[1].ParentID)
	assert.Equal(t, events[1].ID, events[2].ParentID)
	assert.Equal(t, "lock", events[1].Intent)
	assert.Equal(t, "🔒 Экран заблокирован.", events[1].Outcome)
	assert.Equal(t, "boom", events[2].Error)
}

func TestDispatchEventMacroSteps(t *testing.T) {
	d := command.Descriptor{Intent: command.IntentRunMacro, Params: command.Params{"macro": "night"}}
	report := &command.Report{Name: "night", Label: "Ночь", Steps: []command.StepResult{
		{Step: command.Descriptor{Intent: command.IntentVolumeMute}, Outcome: command.Text("🔇 Звук переключён (mute/unmute).")},
		{Step: command.Descriptor{Intent: command.IntentLock}, Outcome: command.Failure("❌ lock", errors.New("no session"))},
	}}
	out := command.TextOutcome{Text: report.String(), Report: report}

	e := DispatchEvent(d, out)
	assert.Equal(t, EventMacro, e.Type)
	assert.Equal(t, "night", e.Macro)
	require.Len(t, e.Steps, 2)
	assert.Equal(t, Step{Intent: "volume_mute", OK: true, Outcome: "🔇 Звук переключён (mute/unmute)."}, e.Steps[0])
	assert.False(t, e.Steps[1].OK)
	assert.Equal(t, "no session", e.Steps[1].Error)

	plain := DispatchEvent(command.Descriptor{Intent: command.IntentLock}, command.Text("🔒"))
	assert.Equal(t, EventDispatch, plain.Type)
	assert.Empty(t, plain.Steps)
}

func TestAuditReopenDoesNotRewriteHeader(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAudit(dir, nil)
	require.NoError(t, err)
	a.Record(1, Event{Type: EventMacro, Intent: "run_macro"})
	a.Close()

	b, err := NewAudit(dir, nil)
	require.NoError(t, err)
	b.Record(1, Event{Type: EventCancelled})
	b.Close()

	events := readEvents(t, filepath.Join(dir, "1.jsonl"))
	require.Len(t, events, 3)
	assert.Equal(t, EventSession, events[0].Type)
	assert.Equal(t, EventCancelled, events[2].Type)
}

func TestNilAuditIsNoop(t *testing.T) {
	var a *Audit
	a.Record(1, Event{Type: EventDispatch})
	a.Close()
}
