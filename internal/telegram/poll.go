package telegram

import (
	"context"

	"github.com/dmorn/hex/internal/bot"
)

// TelegramUpdate is the raw Telegram update structure.
type TelegramUpdate struct {
	UpdateID      int64          `json:"update_id"`
	Message       *TelegramMsg   `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type TelegramMsg struct {
	MessageID int64         `json:"message_id"`
	From      *TelegramUser `json:"from,omitempty"`
	Chat      TelegramChat  `json:"chat"`
	Text      string        `json:"text,omitempty"`
	Voice     *TelegramFile `json:"voice,omitempty"`
	Date      int64         `json:"date"`
}

type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type TelegramFile struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type CallbackQuery struct {
	ID      string       `json:"id"`
	From    TelegramUser `json:"from"`
	Message *TelegramMsg `json:"message,omitempty"`
	Data    string       `json:"data,omitempty"`
}

// Poll implements bot.Messenger.
// Uses getUpdates with long polling (timeout=timeoutSec).
// Returns only text messages, voice notes, and callback queries.
func (c *Client) Poll(ctx context.Context, offset int64, timeoutSec int) ([]bot.Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}

	var raw []TelegramUpdate
	if err := c.do(ctx, "getUpdates", payload, &raw); err != nil {
		return nil, err
	}

	updates := make([]bot.Update, 0, len(raw))
	for _, u := range raw {
		if m := u.Message; m != nil {
			if m.From == nil {
				continue
			}
			switch {
			case m.Voice != nil && m.Voice.FileID != "":
				updates = append(updates, bot.Update{
					UpdateID: u.UpdateID,
					UserID:   m.From.ID,
					ChatID:   m.Chat.ID,
					Voice:    &bot.Voice{FileID: m.Voice.FileID, Duration: m.Voice.Duration},
				})
			case m.Text != "":
				updates = append(updates, bot.Update{
					UpdateID: u.UpdateID,
					UserID:   m.From.ID,
					ChatID:   m.Chat.ID,
					Text:     m.Text,
				})
			}
			continue
		}

		if q := u.CallbackQuery; q != nil {
			if q.Data == "" || q.Message == nil {
				continue
			}
			updates = append(updates, bot.Update{
				UpdateID:   u.UpdateID,
				UserID:     q.From.ID,
				ChatID:     q.Message.Chat.ID,
				Text:       q.Data,
				CallbackID: q.ID,
			})
		}
	}

	return updates, nil
}
