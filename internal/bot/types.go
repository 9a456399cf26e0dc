package bot

import "context"

// Update is a generic inbound message from the messaging platform.
type Update struct {
	UpdateID   int64
	ChatID     int64
	UserID     int64
	Text       string
	Voice      *Voice // set for voice notes; Text is empty then
	CallbackID string // set when the update is an inline button press
}

// Voice references a voice note stored on the platform.
type Voice struct {
	FileID   string
	Duration int // seconds
}

// Button is an inline reply button. Pressing it arrives as an Update whose
// Text is Data.
type Button struct {
	Text string
	Data string
}

// Messenger is the messaging platform abstraction.
// internal/telegram implements it; tests mock it.
type Messenger interface {
	Poll(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
	Send(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// TypingNotifier is an optional extension of Messenger. When implemented the
// bot shows a "typing…" indicator while an offloaded call is in flight.
type TypingNotifier interface {
	SendTyping(ctx context.Context, chatID int64) error
}

// ButtonSender is an optional extension of Messenger used to attach yes/no
// buttons to confirmation prompts.
type ButtonSender interface {
	SendWithButtons(ctx context.Context, chatID int64, text string, buttons []Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
