// Package llm talks to OpenAI-compatible chat completion and speech
// endpoints. Providers are tried in order until one answers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/metrics"
)

var (
	ErrNoProvider     = errors.New("no LLM provider configured")
	ErrTTSUnavailable = errors.New("speech synthesis not configured")
)

type Provider struct {
	Name   string
	URL    string
	APIKey string
	Model  string
}

type Speech struct {
	URL    string
	APIKey string
	Model  string
	Voice  string
	Speed  float64
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Client struct {
	providers []Provider
	speech    Speech
	http      *http.Client
}

// NewClient builds the provider chain OpenAI -> DeepSeek -> GLM from cfg,
// skipping providers without an API key.
func NewClient(cfg *config.Config) *Client {
	candidates := []Provider{
		{Name: "openai", URL: cfg.OpenAIAPIURL, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel},
		{Name: "deepseek", URL: cfg.DeepSeekAPIURL, APIKey: cfg.DeepSeekAPIKey, Model: cfg.DeepSeekModel},
		{Name: "glm", URL: cfg.GLMAPIURL, APIKey: cfg.GLMAPIKey, Model: cfg.GLMModel},
	}
	var providers []Provider
	for _, p := range candidates {
		if p.APIKey != "" {
			providers = append(providers, p)
		}
	}
	return New(providers, Speech{
		URL:    cfg.OpenAITTSURL,
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAITTSModel,
		Voice:  cfg.OpenAITTSVoice,
		Speed:  0.95,
	}, cfg.AITimeout)
}

func New(providers []Provider, speech Speech, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		providers: providers,
		speech:    speech,
		http:      &http.Client{Timeout: timeout},
	}
}

// Available reports whether at least one chat provider is configured.
func (c *Client) Available() bool {
	return c != nil && len(c.providers) > 0
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete returns the first non-empty answer from the provider chain.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Available() {
		return "", ErrNoProvider
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	var errs []error
	for _, p := range c.providers {
		start := time.Now()
		content, err := c.callProvider(ctx, p, chatRequest{
			Model:       p.Model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		metrics.LLMLatency.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.LLMRequests.WithLabelValues(p.Name, "ok").Inc()
			return content, nil
		}
		metrics.LLMRequests.WithLabelValues(p.Name, "error").Inc()
		slog.WarnContext(ctx, "LLM provider failed", "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all LLM providers failed: %w", errors.Join(errs...))
}

func (c *Client) callProvider(ctx context.Context, p Provider, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	respBody, err := c.post(ctx, p.URL, p.APIKey, payload)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from API")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty content from API")
	}
	return content, nil
}

type speechRequest struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Input string  `json:"input"`
	Speed float64 `json:"speed,omitempty"`
}

// Speak synthesizes text and returns the raw audio bytes (mp3).
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	if c == nil || c.speech.APIKey == "" {
		return nil, ErrTTSUnavailable
	}
	payload, err := json.Marshal(speechRequest{
		Model: c.speech.Model,
		Voice: c.speech.Voice,
		Input: text,
		Speed: c.speech.Speed,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	audio, err := c.post(ctx, c.speech.URL, c.speech.APIKey, payload)
	metrics.LLMLatency.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues("tts", "error").Inc()
		return nil, err
	}
	metrics.LLMRequests.WithLabelValues("tts", "ok").Inc()
	return audio, nil
}

func (c *Client) post(ctx context.Context, url, apiKey string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	return body, nil
}

// StripFences removes a surrounding ```json ... ``` block from model output.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
