package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAnthropicWireFormatMapping(t *testing.T) {
	var seen map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode req: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("anthropic-ratelimit-requests-remaining", "49")
		_, _ = w.Write([]byte(`{
			"content": [{"type":"text","text":"{\"intent\":"},{"type":"text","text":"\"lock\"}"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":11,"output_tokens":7}
		}`))
	}))
	defer ts.Close()

	quota := NewQuota()
	p, err := NewAnthropicProvider("test-key", ts.Client(), quota)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.url = ts.URL

	resp, err := p.Chat(context.Background(), Request{
		System:   "you are a parser",
		Messages: []Message{{Role: "user", Content: "lock the screen"}},
		Options:  Options{Model: "claude-test", MaxTokens: 128},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if seen["model"] != "claude-test" {
		t.Fatalf("unexpected model: %v", seen["model"])
	}
	if seen["system"] != "you are a parser" {
		t.Fatalf("unexpected system: %v", seen["system"])
	}
	messages := seen["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if resp.Text != `{"intent":"lock"}` {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Usage.InputTokens != 11 || resp.Usage.OutputTokens != 7 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if quota.Snapshot(ClassText)["anthropic-ratelimit-requests-remaining"] != "49" {
		t.Fatalf("quota not observed: %v", quota.Snapshot(ClassText))
	}
}

func TestAnthropicRetry429ThenSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type":"text","text":"ok"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":1,"output_tokens":1}
		}`))
	}))
	defer ts.Close()

	p, err := NewAnthropicProvider("test-key", ts.Client(), nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.url = ts.URL
	p.retry = RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	resp, err := p.Chat(context.Background(), Request{Options: Options{Model: "m", MaxTokens: 8}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestAnthropicOAuthToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-ant-oat-123" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("x-api-key") != "" {
			t.Errorf("x-api-key must not be set for oauth tokens")
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`))
	}))
	defer ts.Close()

	p, err := NewAnthropicProvider("sk-ant-oat-123", ts.Client(), nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.url = ts.URL
	if _, err := p.Chat(context.Background(), Request{}); err != nil {
		t.Fatalf("chat: %v", err)
	}
}

func TestNewAnthropicProviderRequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider("  ", nil, nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}
