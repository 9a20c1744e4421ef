package conversion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/resilient"

	"github.com/rs/zerolog"
)

const (
	minRate = 0.1
	maxRate = 10.0
)

type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Estimator struct {
	completer Completer
	caller    *resilient.Caller
	logger    zerolog.Logger
}

func NewEstimator(completer Completer, caller *resilient.Caller, logger zerolog.Logger) *Estimator {
	return &Estimator{completer: completer, caller: caller, logger: logger}
}

// Rate returns a conversion rate percentage in (0.1, 10]. When the model
// reply is unusable the static industry table is used instead.
func (e *Estimator) Rate(ctx context.Context, businessType string, scope domain.Scope) (float64, error) {
	rate, err := resilient.Call(ctx, e.caller, "conversion_rate", func(ctx context.Context) (float64, error) {
		reply, err := e.completer.Complete(ctx, systemPrompt, ratePrompt(businessType, scope))
		if err != nil {
			return 0, err
		}
		return parseRate(reply)
	}, func() float64 {
		return FallbackRate(businessType, scope)
	})
	if err != nil {
		return 0, err
	}

	e.logger.Debug().
		Str("business_type", businessType).
		Str("scope", string(scope)).
		Float64("rate", rate).
		Msg("conversion rate estimated")
	return rate, nil
}

const systemPrompt = "You are a digital marketing analyst. Answer with a single number."

func ratePrompt(businessType string, scope domain.Scope) string {
	return fmt.Sprintf("What is the typical website conversion rate, as a percentage, for a %s %s business "+
		"turning organic search visitors into customers? Local businesses usually convert about 30%% higher than national ones. "+
		"Reply with the number only, for example 3.5.", scope, businessType)
}

func parseRate(reply string) (float64, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))

	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("conversion rate reply %q is not a number", reply)
	}
	if rate <= minRate || rate > maxRate {
		return 0, fmt.Errorf("conversion rate %.2f outside (%.1f, %.0f]", rate, minRate, maxRate)
	}
	return rate, nil
}
