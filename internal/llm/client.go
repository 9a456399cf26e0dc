// Package llm talks to the hosted inference APIs used by the assistant:
// chat completions for classification and summarization, and audio
// transcription. Every provider call is a single blocking request.
package llm

import (
	"context"
	"time"

	"github.com/dmorn/hex/internal/logging"
)

// Class separates quota accounting between call kinds.
type Class string

const (
	ClassText          Class = "llm"
	ClassTranscription Class = "whisper"
)

type Provider interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Request struct {
	System   string
	Messages []Message
	Options  Options
}

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type Response struct {
	Text       string `json:"text"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Client wraps a provider with a default model.
type Client struct {
	provider Provider
	opts     Options
	events   *logging.Events
}

func New(provider Provider, opts Options) *Client {
	return &Client{provider: provider, opts: opts}
}

// WithEvents makes the client log an llm_call event for every successful call.
func (c *Client) WithEvents(ev *logging.Events) *Client {
	c.events = ev
	return c
}

const defaultMaxTokens = 4096

func (c *Client) Chat(ctx context.Context, req Request) (*Response, error) {
	if req.Options.Model == "" {
		req.Options.Model = c.opts.Model
	}
	if req.Options.MaxTokens == 0 {
		req.Options.MaxTokens = c.opts.MaxTokens
	}
	if req.Options.MaxTokens == 0 {
		req.Options.MaxTokens = defaultMaxTokens
	}
	if req.Options.Temperature == 0 {
		req.Options.Temperature = c.opts.Temperature
	}
	start := time.Now()
	resp, err := c.provider.Chat(ctx, req)
	if err == nil && c.events != nil {
		c.events.LLMCall(string(ClassText), req.Options.Model,
			resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start).Milliseconds())
	}
	return resp, err
}

// Complete runs a single system+user exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	resp, err := c.Chat(ctx, Request{
		System:   system,
		Messages: []Message{{Role: "user", Content: user}},
		Options:  opts,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Model reports the default model name.
func (c *Client) Model() string {
	return c.opts.Model
}
