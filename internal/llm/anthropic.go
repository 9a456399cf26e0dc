package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

type AnthropicProvider struct {
	apiKey     string
	url        string
	httpClient *http.Client
	retry      RetryConfig
	quota      *Quota
}

func NewAnthropicProvider(apiKey string, httpClient *http.Client, quota *Quota) (*AnthropicProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("missing API key: set LLM_API_KEY or ANTHROPIC_API_KEY")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicProvider{
		apiKey:     apiKey,
		url:        anthropicURL,
		httpClient: httpClient,
		retry:      DefaultRetryConfig,
		quota:      quota,
	}, nil
}

// isOAuthToken returns true if the key is an Anthropic OAuth access token
// (sk-ant-oat* prefix). These require Bearer auth instead of x-api-key.
func isOAuthToken(key string) bool {
	return strings.HasPrefix(key, "sk-ant-oat")
}

func (p *AnthropicProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(toAnthropicRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	resp, err := doWithRetry(ctx, p.retry, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("content-type", "application/json")
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		if isOAuthToken(p.apiKey) {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
			httpReq.Header.Set("anthropic-beta", "oauth-2025-04-20")
		} else {
			httpReq.Header.Set("x-api-key", p.apiKey)
		}
		return p.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p.quota.Observe(ClassText, resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(respBody))
	}

	var wireResp anthropicResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	return fromAnthropicResponse(wireResp), nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentItem `json:"content"`
}

type anthropicContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentItem `json:"content"`
	StopReason string                 `json:"stop_reason"`
	Usage      anthropicUsage         `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toAnthropicRequest(req Request) anthropicRequest {
	out := anthropicRequest{
		Model:       req.Options.Model,
		MaxTokens:   req.Options.MaxTokens,
		Temperature: req.Options.Temperature,
		System:      req.System,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicContentItem{{Type: "text", Text: m.Content}},
		})
	}
	return out
}

func fromAnthropicResponse(in anthropicResponse) *Response {
	resp := &Response{
		StopReason: in.StopReason,
		Usage: Usage{
			InputTokens:  in.Usage.InputTokens,
			OutputTokens: in.Usage.OutputTokens,
		},
	}
	var sb strings.Builder
	for _, c := range in.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	resp.Text = sb.String()
	return resp
}
