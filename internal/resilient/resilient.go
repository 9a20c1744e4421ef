// Package resilient wraps calls to unreliable providers so that every call
// site degrades to a deterministic fallback instead of failing.
package resilient

import (
	"context"
	"errors"

	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/metrics"

	"github.com/rs/zerolog"
)

type Caller struct {
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewCaller(m *metrics.Metrics, logger zerolog.Logger) *Caller {
	return &Caller{metrics: m, logger: logger}
}

// Call runs primary and returns its value. If primary fails, the failure is
// logged as a GenerativeError and fallback's value is returned instead.
// Cancellation of ctx is not absorbed.
func Call[T any](ctx context.Context, c *Caller, name string, primary func(context.Context) (T, error), fallback func() T) (T, error) {
	v, err := primary(ctx)
	if err == nil {
		return v, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		var zero T
		return zero, ctxErr
	}

	genErr := &domain.GenerativeError{Call: name, Err: err}
	if c != nil {
		c.logger.Warn().Err(genErr).Str("call", name).Msg("generative call failed, using fallback")
		c.metrics.Fallback(name)
	}
	return fallback(), nil
}
