package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// transport is the HTTP plumbing shared by the provider clients: one
// fasthttp client, a request rate limit, a cap on in-flight requests and
// exponential backoff on 429/5xx.
type transport struct {
	provider   string
	client     *fasthttp.Client
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
	retries    uint64
	backoff    time.Duration
	authorize  func(req *fasthttp.Request)
	onResponse func(resp *fasthttp.Response)
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type transportOptions struct {
	rps           float64
	maxConcurrent int
	retries       int
	timeout       time.Duration
}

func newTransport(provider string, opts transportOptions, m *metrics.Metrics, logger zerolog.Logger) *transport {
	limit := rate.Inf
	if opts.rps > 0 {
		limit = rate.Limit(opts.rps)
	}
	burst := opts.maxConcurrent
	if burst < 1 {
		burst = 1
	}
	retries := opts.retries
	if retries < 0 {
		retries = 0
	}
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = constants.ExternalAPITimeout
	}

	return &transport{
		provider: provider,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(limit, burst),
		sem:     semaphore.NewWeighted(int64(burst)),
		retries: uint64(retries),
		backoff: 500 * time.Millisecond,
		metrics: m,
		logger:  logger.With().Str("provider", provider).Logger(),
	}
}

func doRequest[T any](ctx context.Context, t *transport, method, url, endpoint string, payload any) (*T, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = b
	}

	var result *T
	backoff := retry.WithMaxRetries(t.retries, retry.NewExponential(t.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := doOnce[T](ctx, t, method, url, endpoint, body)
		if err != nil {
			var upstream *domain.UpstreamError
			if errors.As(err, &upstream) && upstream.Retryable() {
				t.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("retryable provider error")
				return retry.RetryableError(err)
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		t.metrics.ProviderRequest(t.provider, endpoint, "error")
		return nil, err
	}
	t.metrics.ProviderRequest(t.provider, endpoint, "ok")
	return result, nil
}

func doOnce[T any](ctx context.Context, t *transport, method, url, endpoint string, body []byte) (*T, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if t.authorize != nil {
		t.authorize(req)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	var err error
	if ok {
		err = t.client.DoDeadline(req, resp, deadline)
	} else {
		err = t.client.Do(req, resp)
	}
	if err != nil {
		return nil, &domain.UpstreamError{Provider: t.provider, Endpoint: endpoint, Err: err}
	}

	if t.onResponse != nil {
		t.onResponse(resp)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		respBody := truncate(string(resp.Body()), constants.MaxUpstreamBodyLog)
		t.logger.Error().
			Str("endpoint", endpoint).
			Int("status", status).
			Str("body", respBody).
			Msg("provider returned non-2xx")
		return nil, &domain.UpstreamError{Provider: t.provider, Endpoint: endpoint, Status: status, Body: respBody}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		t.logger.Error().Err(err).Str("endpoint", endpoint).Msg("malformed provider response")
		return nil, &domain.UpstreamError{Provider: t.provider, Endpoint: endpoint, Status: status, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
