package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	FailureThreshold uint32
	CircuitTimeout   time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://api.openai.com/v1",
		Model:            "gpt-4o-mini",
		FailureThreshold: 5,
		CircuitTimeout:   60 * time.Second,
	}
}

// OpenAIProvider implements outbound.TextProviderPort against the chat
// completions API, guarded by a circuit breaker.
type OpenAIProvider struct {
	client  *http.Client
	config  *Config
	breaker *gobreaker.CircuitBreaker[string]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Compile-time check
var _ outbound.TextProviderPort = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider with the given HTTP client.
func NewOpenAIProvider(client *http.Client, config *Config, m *metrics.Metrics, logger *zap.Logger) *OpenAIProvider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &OpenAIProvider{
		client:  client,
		config:  config,
		metrics: m,
		logger:  logger.Named("openai"),
	}

	threshold := config.FailureThreshold
	p.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     config.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			p.metrics.SetBreakerOpen(to == gobreaker.StateOpen)
		},
	})
	return p
}

// isSuccessful counts client errors other than rate limiting as healthy
// responses for the breaker.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var perr *outbound.ProviderError
	if errors.As(err, &perr) && perr.StatusCode >= 400 && perr.StatusCode < 500 && perr.StatusCode != http.StatusTooManyRequests {
		return true
	}
	return errors.Is(err, outbound.ErrEmptyCompletion) || errors.Is(err, context.Canceled)
}

// BreakerState returns the current circuit breaker state.
func (p *OpenAIProvider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Complete sends a single user message and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts outbound.CompletionOptions) (string, error) {
	if p.config.APIKey == "" {
		return "", outbound.ErrProviderNotConfigured
	}

	text, err := p.breaker.Execute(func() (string, error) {
		return p.complete(ctx, prompt, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &outbound.ProviderError{Err: err}
	}
	return text, err
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string, opts outbound.CompletionOptions) (string, error) {
	body := map[string]any{
		"model": p.config.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}

	respBody, err := p.doRequest(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	defer respBody.Close()

	var openaiResp struct {
		ID      string `json:"id"`
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(respBody).Decode(&openaiResp); err != nil {
		return "", &outbound.ProviderError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(openaiResp.Choices) == 0 {
		return "", outbound.ErrEmptyCompletion
	}
	text := strings.TrimSpace(openaiResp.Choices[0].Message.Content)
	if text == "" {
		return "", outbound.ErrEmptyCompletion
	}

	if openaiResp.Usage != nil {
		p.logger.Debug("completion usage",
			zap.String("id", openaiResp.ID),
			zap.Int("prompt_tokens", openaiResp.Usage.PromptTokens),
			zap.Int("completion_tokens", openaiResp.Usage.CompletionTokens),
		)
	}
	return text, nil
}

// doRequest performs an HTTP request to the OpenAI API.
func (p *OpenAIProvider) doRequest(ctx context.Context, path string, body map[string]any) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.config.BaseURL, "/")+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &outbound.ProviderError{Err: fmt.Errorf("request failed: %w", err)}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &outbound.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp.Body, nil
}
