package llm

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

	"github.com/semgen/semgen/internal/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// openAIProvider serves both OpenAI and Azure OpenAI. The two differ only in
// URL shape, auth header and the model field carrying the deployment name.
type openAIProvider struct {
	name        string
	url         string
	apiKey      string
	authHeader  string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func newOpenAIProvider(cfg config.LLMConfig, apiKey string, client *http.Client) *openAIProvider {
	baseURL := strings.TrimSpace(cfg.APIEndpoint)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		name:        config.ProviderOpenAI,
		url:         strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		apiKey:      apiKey,
		authHeader:  "Authorization",
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      httpClientOrDefault(client, cfg.Timeout.Std()),
	}
}

func newAzureOpenAIProvider(cfg config.LLMConfig, apiKey, endpoint string, client *http.Client) *openAIProvider {
	url := fmt.Sprintf(
		"%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		cfg.AzureDeploymentName,
		cfg.APIVersion,
	)
	return &openAIProvider{
		name:        config.ProviderAzureOpenAI,
		url:         url,
		apiKey:      apiKey,
		authHeader:  "api-key",
		model:       cfg.AzureDeploymentName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      httpClientOrDefault(client, cfg.Timeout.Std()),
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) GenerateDescription(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": BuildPrompt(req)},
		},
		"temperature": p.temperature,
		"max_tokens":  p.maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Err: fmt.Errorf("marshal chat payload: %w", err)}
	}

	text, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return p.doRequest(ctx, body)
	})
	if err != nil {
		return "", wrapProviderErr(p.name, err)
	}
	return text, nil
}

func (p *openAIProvider) doRequest(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.authHeader == "Authorization" {
		httpReq.Header.Set(p.authHeader, "Bearer "+p.apiKey)
	} else {
		httpReq.Header.Set(p.authHeader, p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("request chat completion: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("read chat response body: %w", err)}
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model returned empty description")
	}
	return text, nil
}

// statusError classifies a non-2xx response. 429 and 5xx are retryable;
// everything else fails the attempt outright.
func statusError(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	err := fmt.Errorf("completion failed status=%d body=%s", statusCode, truncateBody(body))
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return &retryableError{err: err}
	}
	return err
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

func wrapProviderErr(provider string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err, Timeout: isTimeout(err)}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func httpClientOrDefault(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
