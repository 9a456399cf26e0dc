package telegram

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dmorn/hex/internal/bot"
)

const maxChunkRunes = 4096

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Send implements bot.Messenger.
// It splits text into ≤4096-rune chunks at newline boundaries and sends each
// chunk sequentially as plain text.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitAtNewlines(text, maxChunkRunes) {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if err := c.do(ctx, "sendMessage", map[string]any{
			"chat_id": chatID,
			"text":    chunk,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

// splitAtNewlines splits text into chunks of at most maxRunes runes, breaking
// only at newline boundaries. A line longer than maxRunes is hard-split.
func splitAtNewlines(text string, maxRunes int) []string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + maxRunes
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		splitAt := -1
		for i := end - 1; i >= start; i-- {
			if runes[i] == '\n' {
				splitAt = i
				break
			}
		}

		if splitAt < 0 {
			chunks = append(chunks, string(runes[start:end]))
			start = end
		} else {
			chunks = append(chunks, string(runes[start:splitAt+1]))
			start = splitAt + 1
		}
	}

	return chunks
}

// SendTyping sends a "typing" chat action. Telegram shows the indicator for ~5s.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	return c.do(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	}, nil)
}

// SendWithButtons sends text with an inline keyboard (single row of buttons).
func (c *Client) SendWithButtons(ctx context.Context, chatID int64, text string, buttons []bot.Button) error {
	row := make([]inlineButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, inlineButton{Text: b.Text, CallbackData: b.Data})
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": [][]inlineButton{row},
		},
	}, nil)
}

// AnswerCallback acknowledges a button press (removes the loading spinner).
// text: optional notification shown to the user (empty = silent ack)
func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	return c.do(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}, nil)
}

// SendDocument uploads data as a file attachment.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("chat_id", fmt.Sprintf("%d", chatID))
	if caption != "" {
		_ = mw.WriteField("caption", caption)
	}
	fw, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("build document form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("build document form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build document form: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(apiURL, c.token, "sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.roundTrip(req, "sendDocument", nil)
}
