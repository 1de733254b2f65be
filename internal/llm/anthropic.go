package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/semgen/semgen/internal/config"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

type anthropicProvider struct {
	url         string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func newAnthropicProvider(cfg config.LLMConfig, apiKey string, client *http.Client) *anthropicProvider {
	baseURL := strings.TrimSpace(cfg.APIEndpoint)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicProvider{
		url:         strings.TrimRight(baseURL, "/") + "/v1/messages",
		apiKey:      apiKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      httpClientOrDefault(client, cfg.Timeout.Std()),
	}
}

func (p *anthropicProvider) Name() string { return config.ProviderAnthropic }

func (p *anthropicProvider) GenerateDescription(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model":      p.model,
		"max_tokens": p.maxTokens,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(req)},
		},
		"temperature": p.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Err: fmt.Errorf("marshal messages payload: %w", err)}
	}

	text, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return p.doRequest(ctx, body)
	})
	if err != nil {
		return "", wrapProviderErr(p.Name(), err)
	}
	return text, nil
}

func (p *anthropicProvider) doRequest(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", p.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("request messages completion: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("read messages response body: %w", err)}
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("model returned no text content")
	}
	return text, nil
}
