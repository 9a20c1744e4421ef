package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"seo-opportunity/internal/config"
	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const providerOpenAI = "openai"

var errNoAPIKey = errors.New("OPENAI_API_KEY not configured")

// OpenAIClient is a single-turn chat completion client.
type OpenAIClient struct {
	apiKey      string
	model       string
	baseURL     string
	http        *transport
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
	logger      zerolog.Logger
}

type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     string    `json:"reset"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewOpenAIClient(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *OpenAIClient {
	t := newTransport(providerOpenAI, transportOptions{
		rps:           cfg.ProviderRPS,
		maxConcurrent: cfg.ProviderMaxConcurrent,
		retries:       cfg.ProviderRetries,
		timeout:       constants.GenerativeAPITimeout,
	}, m, logger)

	c := &OpenAIClient{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		http:    t,
		logger:  logger,
	}
	t.authorize = func(req *fasthttp.Request) {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	t.onResponse = c.updateRateLimit
	return c
}

func (c *OpenAIClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *OpenAIClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit-Requests")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining-Requests")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset-Requests")); reset != "" {
		c.rateLimit.Reset = reset
	}
	c.rateLimit.UpdatedAt = time.Now()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errNoAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, constants.GenerativeAPITimeout)
	defer cancel()

	resp, err := doRequest[chatResponse](ctx, c.http, fasthttp.MethodPost, c.baseURL+"/chat/completions", "chat_completions", chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &domain.UpstreamError{Provider: providerOpenAI, Endpoint: "chat_completions", Status: fasthttp.StatusOK, Body: "no choices in response"}
	}

	if rl := c.GetRateLimitInfo(); rl.Limit > 0 && rl.Remaining < rl.Limit/10 {
		c.logger.Warn().Int("remaining", rl.Remaining).Int("limit", rl.Limit).Str("reset", rl.Reset).Msg("openai request budget running low")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
