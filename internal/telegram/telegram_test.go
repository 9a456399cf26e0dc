package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/dmorn/hex/internal/bot"
)

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	clone.Host = t.target.Host
	return t.base.RoundTrip(clone)
}

func newTestClient(ts *httptest.Server) *Client {
	u, _ := url.Parse(ts.URL)
	hc := ts.Client()
	c := New("test-token")
	c.httpClient = &http.Client{Transport: rewriteTransport{target: u, base: hc.Transport}}
	c.limiter = nil
	return c
}

func TestPoll_TextMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["timeout"].(float64) != 30 {
			t.Errorf("expected timeout=30, got %v", body["timeout"])
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":1001,"message":{"message_id":22,"from":{"id":123,"first_name":"V"},"chat":{"id":456,"type":"private"},"text":"гекс, заблокируй","date":1700}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 10, 30)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}

	expected := []bot.Update{{UpdateID: 1001, UserID: 123, ChatID: 456, Text: "гекс, заблокируй"}}
	if !reflect.DeepEqual(updates, expected) {
		t.Fatalf("updates mismatch\n got: %#v\nwant: %#v", updates, expected)
	}
}

func TestPoll_VoiceMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":3,"from":{"id":5,"first_name":"V"},"chat":{"id":6,"type":"private"},"voice":{"file_id":"vf1","duration":4},"date":1700}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	expected := []bot.Update{{UpdateID: 7, UserID: 5, ChatID: 6, Voice: &bot.Voice{FileID: "vf1", Duration: 4}}}
	if !reflect.DeepEqual(updates, expected) {
		t.Fatalf("updates mismatch\n got: %#v\nwant: %#v", updates, expected)
	}
}

func TestPoll_CallbackQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":2002,"callback_query":{"id":"abc","from":{"id":777,"first_name":"U"},"message":{"message_id":9,"chat":{"id":888,"type":"private"},"date":1700},"data":"да"}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	expected := []bot.Update{{UpdateID: 2002, UserID: 777, ChatID: 888, Text: "да", CallbackID: "abc"}}
	if !reflect.DeepEqual(updates, expected) {
		t.Fatalf("updates mismatch\n got: %#v\nwant: %#v", updates, expected)
	}
}

func TestPoll_SkipsEmptyText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"message_id":1,"from":{"id":1,"first_name":"A"},"chat":{"id":10,"type":"private"},"date":1700}},{"update_id":2,"callback_query":{"id":"z","from":{"id":2,"first_name":"B"},"message":{"message_id":2,"chat":{"id":11,"type":"private"},"date":1700}}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %#v", updates)
	}
}

func TestPoll_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, err := c.Poll(context.Background(), 0, 5)
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestSend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		defer r.Body.Close()
		var body map[string]any
		_ = json.Unmarshal(b, &body)
		if body["chat_id"].(float64) != 42 {
			t.Errorf("chat_id mismatch: %v", body["chat_id"])
		}
		if body["text"] != "hi" {
			t.Errorf("text mismatch: %v", body["text"])
		}
		if _, ok := body["parse_mode"]; ok {
			t.Errorf("unexpected parse_mode: %v", body["parse_mode"])
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if err := c.Send(context.Background(), 42, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSend_SplitsLongText(t *testing.T) {
	var mu sync.Mutex
	var got []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, body["text"].(string))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer ts.Close()

	line := strings.Repeat("я", 3000) + "\n"
	c := newTestClient(ts)
	if err := c.Send(context.Background(), 1, line+line); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(got) != 2 || got[0] != line || got[1] != line {
		t.Fatalf("expected two chunks split at newline, got %d", len(got))
	}
}

func TestSplitAtNewlines(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"short", "abc", 10, []string{"abc"}},
		{"newline", "ab\ncd\nef", 6, []string{"ab\ncd\n", "ef"}},
		{"hard split", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"runes", "ффф\nжжж", 4, []string{"ффф\n", "жжж"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAtNewlines(tt.text, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendWithButtons(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		rm := body["reply_markup"].(map[string]any)
		ik := rm["inline_keyboard"].([]any)
		if len(ik) != 1 {
			t.Errorf("expected one row, got %d", len(ik))
			return
		}
		row := ik[0].([]any)
		if len(row) != 2 {
			t.Errorf("expected two buttons, got %d", len(row))
			return
		}
		btn := row[0].(map[string]any)
		if btn["text"] != "✅ Да" || btn["callback_data"] != "да" {
			t.Errorf("unexpected first button: %#v", btn)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":2}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	err := c.SendWithButtons(context.Background(), 1, "Подтвердить?", []bot.Button{
		{Text: "✅ Да", Data: "да"},
		{Text: "❌ Нет", Data: "нет"},
	})
	if err != nil {
		t.Fatalf("send with buttons: %v", err)
	}
}

func TestAnswerCallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/answerCallbackQuery") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["callback_query_id"] != "cb1" {
			t.Errorf("callback id mismatch: %v", body["callback_query_id"])
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if err := c.AnswerCallback(context.Background(), "cb1", ""); err != nil {
		t.Fatalf("answer callback: %v", err)
	}
}

func TestSendDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendDocument") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.FormValue("chat_id") != "9" || r.FormValue("caption") != "📸" {
			t.Errorf("unexpected fields: %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "shot.png" || string(data) != "PNG" {
			t.Errorf("unexpected file %s %q", hdr.Filename, data)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":3}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if err := c.SendDocument(context.Background(), 9, "shot.png", []byte("PNG"), "📸"); err != nil {
		t.Fatalf("send document: %v", err)
	}
}

func TestDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"vf1","file_path":"voice/file_1.oga"}}`))
		case r.URL.Path == "/file/bottest-token/voice/file_1.oga":
			_, _ = w.Write([]byte("OGG"))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts)
	data, err := c.Download(context.Background(), "vf1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "OGG" {
		t.Fatalf("unexpected data %q", data)
	}
}
