// Package telegram is a minimal Bot API client: long polling, text and
// document delivery, inline confirmation buttons, and file downloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmorn/hex/internal/bot"
)

const (
	apiURL  = "https://api.telegram.org/bot%s/%s"
	fileURL = "https://api.telegram.org/file/bot%s/%s"
)

type Client struct {
	token      string
	httpClient *http.Client
	// limiter throttles outbound calls below Telegram's per-bot flood limit.
	limiter *rate.Limiter
}

func New(token string) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}
}

var (
	_ bot.Messenger      = (*Client)(nil)
	_ bot.TypingNotifier = (*Client)(nil)
	_ bot.ButtonSender   = (*Client)(nil)
)

// do sends a JSON Bot API request.
// method: e.g. "getUpdates", "sendMessage"
// payload: JSON-serializable params (or nil)
// result: pointer to struct to decode into (or nil to ignore)
func (c *Client) do(ctx context.Context, method string, payload any, result any) error {
	var body io.Reader
	httpMethod := http.MethodGet
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal telegram request: %w", err)
		}
		body = bytes.NewReader(b)
		httpMethod = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, fmt.Sprintf(apiURL, c.token, method), body)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(req, method, result)
}

// roundTrip executes req and decodes the {ok, result, description} envelope.
func (c *Client) roundTrip(req *http.Request, method string, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}

	if !envelope.OK {
		if envelope.Description == "" {
			envelope.Description = "unknown error"
		}
		return fmt.Errorf("telegram %s API error: %s", method, envelope.Description)
	}

	if result != nil && envelope.Result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode telegram result for %s: %w", method, err)
		}
	}
	return nil
}

// wait blocks until the outbound limiter admits one more call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
