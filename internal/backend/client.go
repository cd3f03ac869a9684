// Package backend talks to an OpenAI-compatible inference server such as
// LM Studio or llama.cpp's server.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
)

// Options tunes the HTTP transport. Zero values select defaults.
type Options struct {
	APIKey         string
	ConnectTimeout time.Duration
	// HTTPClient overrides the transport entirely (tests).
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	oai        *openai.Client
}

// New constructs a client for baseURL, e.g. http://localhost:1234/v1.
func New(baseURL string, opts Options) *Client {
	cli := opts.HTTPClient
	if cli == nil {
		connect := opts.ConnectTimeout
		if connect <= 0 {
			connect = 5 * time.Second
		}
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connect,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout stays 0: streams are long-lived and every call carries a context.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	base := strings.TrimRight(baseURL, "/")
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = base
	cfg.HTTPClient = cli
	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		httpClient: cli,
		oai:        openai.NewClientWithConfig(cfg),
	}
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// UpstreamStatusError reports a non-success response from the backend.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("Upstream error %d", e.StatusCode)
}

// IsUpstreamStatus reports whether err carries a backend HTTP status.
func IsUpstreamStatus(err error) bool {
	var ue *UpstreamStatusError
	return errors.As(err, &ue)
}

// ListModels returns the model identifiers the backend advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.oai.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		if m.ID != "" {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

// warmupRequest is spelled out instead of using openai.ChatCompletionRequest
// because temperature 0 must be sent, not omitted.
type warmupRequest struct {
	Model       string                        `json:"model"`
	Stream      bool                          `json:"stream"`
	Temperature float64                       `json:"temperature"`
	MaxTokens   int                           `json:"max_tokens"`
	Messages    []contextwindow.PromptMessage `json:"messages"`
}

// WarmupPrompt is the throwaway content sent by Warmup.
const WarmupPrompt = "ping"

// Warmup issues a one-token completion so the backend loads model into memory.
// The response body is discarded. Deadlines come from ctx.
func (c *Client) Warmup(ctx context.Context, model string) error {
	payload := warmupRequest{
		Model:       model,
		Stream:      false,
		Temperature: 0,
		MaxTokens:   1,
		Messages:    []contextwindow.PromptMessage{{Role: contextwindow.RoleUser, Content: WarmupPrompt}},
	}
	resp, err := c.postJSON(ctx, payload, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamStatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// StreamChat opens a streaming chat completion and returns the raw
// event-stream body. The caller must close it. Canceling ctx aborts the read.
func (c *Client) StreamChat(ctx context.Context, model string, messages []contextwindow.PromptMessage) (io.ReadCloser, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Stream:   true,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	resp, err := c.postJSON(ctx, req, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return resp, nil
}
