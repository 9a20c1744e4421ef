package conversion

import (
	"context"
	"errors"
	"testing"

	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/resilient"

	"github.com/rs/zerolog"
)

type fixedCompleter struct {
	reply string
	err   error
}

func (f fixedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f.reply, f.err
}

func newTestEstimator(c Completer) *Estimator {
	return NewEstimator(c, resilient.NewCaller(nil, zerolog.Nop()), zerolog.Nop())
}

func TestRateUsesModelReply(t *testing.T) {
	e := newTestEstimator(fixedCompleter{reply: " 4.5%\n"})
	got, err := e.Rate(context.Background(), "roofing", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4.5 {
		t.Errorf("Rate = %v, want 4.5", got)
	}
}

func TestRateFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		c     Completer
		scope domain.Scope
		want  float64
	}{
		{"provider error", fixedCompleter{err: errors.New("timeout")}, domain.ScopeLocal, 4.2},
		{"non numeric", fixedCompleter{reply: "around four percent"}, domain.ScopeNational, 2.2},
		{"too high", fixedCompleter{reply: "45"}, domain.ScopeLocal, 4.2},
		{"too low", fixedCompleter{reply: "0.05"}, domain.ScopeLocal, 4.2},
		{"boundary is excluded", fixedCompleter{reply: "0.1"}, domain.ScopeLocal, 4.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestEstimator(tt.c).Rate(context.Background(), "Roofing", tt.scope)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Rate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateUpperBoundAccepted(t *testing.T) {
	got, err := newTestEstimator(fixedCompleter{reply: "10"}).Rate(context.Background(), "towing", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("Rate = %v, want 10", got)
	}
}

func TestFallbackRate(t *testing.T) {
	tests := []struct {
		businessType string
		scope        domain.Scope
		want         float64
	}{
		{"roofing", domain.ScopeLocal, 4.2},
		{"roofing", domain.ScopeNational, 2.2},
		{"Joe's Plumbing Services", domain.ScopeLocal, 3.8},
		{"HVAC company", domain.ScopeNational, 2.1},
		{"Home Improvement", domain.ScopeLocal, 3.5},
		{"personal injury lawyer", domain.ScopeLocal, 4.8},
		{"family vet", domain.ScopeNational, 2.8},
		{"dentist", domain.ScopeLocal, 5.2},
		{"underwater basket weaving", domain.ScopeLocal, 3.0},
		{"underwater basket weaving", domain.ScopeNational, 1.0},
		{"widget goods", domain.ScopeNational, 1.8},
		{"candle shop", domain.ScopeLocal, 2.8},
	}

	for _, tt := range tests {
		t.Run(tt.businessType+"/"+string(tt.scope), func(t *testing.T) {
			if got := FallbackRate(tt.businessType, tt.scope); got != tt.want {
				t.Errorf("FallbackRate(%q, %s) = %v, want %v", tt.businessType, tt.scope, got, tt.want)
			}
		})
	}
}

func TestFallbackRatesInRange(t *testing.T) {
	for name, p := range industryRates {
		for _, r := range []float64{p.local, p.national} {
			if r <= minRate || r > maxRate {
				t.Errorf("%s rate %v out of range", name, r)
			}
		}
	}
	for syn, industry := range synonyms {
		if _, ok := industryRates[industry]; !ok {
			t.Errorf("synonym %q points at unknown industry %q", syn, industry)
		}
	}
}
