package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider speaks the OpenAI-compatible Groq API: chat completions for
// text and Whisper for audio.
type GroqProvider struct {
	apiKey       string
	baseURL      string
	whisperModel string
	language     string
	httpClient   *http.Client
	retry        RetryConfig
	quota        *Quota
}

var (
	_ Provider    = (*GroqProvider)(nil)
	_ Transcriber = (*GroqProvider)(nil)
)

type GroqOptions struct {
	WhisperModel string // default: whisper-large-v3
	Language     string // default: ru
	HTTPClient   *http.Client
	Quota        *Quota
}

func NewGroqProvider(apiKey string, opts GroqOptions) (*GroqProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("missing API key: set GROQ_API_KEY")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.WhisperModel == "" {
		opts.WhisperModel = "whisper-large-v3"
	}
	if opts.Language == "" {
		opts.Language = "ru"
	}
	return &GroqProvider{
		apiKey:       apiKey,
		baseURL:      groqBaseURL,
		whisperModel: opts.WhisperModel,
		language:     opts.Language,
		httpClient:   opts.HTTPClient,
		retry:        DefaultRetryConfig,
		quota:        opts.Quota,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *GroqProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	wire := chatRequest{
		Model:       req.Options.Model,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if req.System != "" {
		wire.Messages = append(wire.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal groq request: %w", err)
	}

	respBody, err := p.post(ctx, ClassText, "/chat/completions", "application/json", body)
	if err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode groq response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("groq response has no choices")
	}
	return &Response{
		Text:       out.Choices[0].Message.Content,
		StopReason: out.Choices[0].FinishReason,
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

// Transcribe uploads audio to the Whisper endpoint and returns the text.
func (p *GroqProvider) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("empty audio")
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	_ = mw.WriteField("model", p.whisperModel)
	_ = mw.WriteField("language", p.language)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}

	respBody, err := p.post(ctx, ClassTranscription, "/audio/transcriptions", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func (p *GroqProvider) post(ctx context.Context, class Class, path, contentType string, body []byte) ([]byte, error) {
	resp, err := doWithRetry(ctx, p.retry, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		return p.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p.quota.Observe(class, resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read groq response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
