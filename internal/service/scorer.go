package service

import (
	"context"
	"math"
	"strings"

	"seo-opportunity/internal/config"
	"seo-opportunity/internal/domain"

	"github.com/rs/zerolog"
)

type RateEstimator interface {
	Rate(ctx context.Context, businessType string, scope domain.Scope) (float64, error)
}

type OpportunityScorer struct {
	rates  RateEstimator
	policy config.Policy
	logger zerolog.Logger
}

func NewOpportunityScorer(rates RateEstimator, policy config.Policy, logger zerolog.Logger) *OpportunityScorer {
	return &OpportunityScorer{rates: rates, policy: policy, logger: logger}
}

// CalculateSeoOpportunity turns an aggregated keyword dataset into a report.
func (s *OpportunityScorer) CalculateSeoOpportunity(ctx context.Context, dataset *domain.KeywordDataset, customerValue float64, businessType string, scope domain.Scope) (*domain.Report, error) {
	if customerValue < 0 || math.IsNaN(customerValue) || math.IsInf(customerValue, 0) {
		return nil, &domain.ValidationError{Field: "customerValue", Reason: "must be a non-negative number"}
	}

	rate, err := s.rates.Rate(ctx, businessType, scope)
	if err != nil {
		return nil, err
	}

	records := dataset.KeywordData
	report := &domain.Report{
		ConversionRate: rate,
		AnalysisScope:  scope,
		KeywordData:    make([]domain.ReportKeyword, 0, len(records)),
	}

	for _, rec := range records {
		report.TotalSearchVolume += rec.SearchVolume
		report.CurrentRankings.Count(rec.ClientRank)
		report.KeywordData = append(report.KeywordData, domain.ReportKeyword{
			Keyword:         rec.Keyword,
			SearchVolume:    rec.SearchVolume,
			ClientRank:      domain.DisplayRank(rec.ClientRank),
			CompetitorRanks: rec.CompetitorRanks,
			IsLocal:         rec.IsLocal,
		})
	}

	ctr := s.policy.CTR.National
	if scope == domain.ScopeLocal {
		ctr = s.policy.CTR.Local
	}
	report.PotentialTraffic = int(math.Floor(float64(report.TotalSearchVolume) * ctr))
	report.PotentialCustomers = int(math.Floor(float64(report.PotentialTraffic) * rate / 100))
	report.PotentialRevenue = float64(report.PotentialCustomers) * customerValue

	report.CompetitorRankings = make([]domain.CompetitorRanking, 0, len(dataset.Competitors))
	for _, c := range dataset.Competitors {
		if c.Source == "" {
			c.Source = domain.SourceSearchAtlas
			if scope == domain.ScopeLocal {
				c.Source = domain.SourceGoogleMaps
			}
		}
		cr := domain.CompetitorRanking{Competitor: c}
		for _, rec := range records {
			// absent entries count as unranked
			cr.Count(rec.CompetitorRanks[c.URL])
		}
		report.CompetitorRankings = append(report.CompetitorRankings, cr)
	}

	if scope == domain.ScopeLocal {
		report.AnalysisInsights.LocalInsights = s.localInsights(records, report.CurrentRankings)
	} else {
		report.AnalysisInsights.NationalInsights = s.nationalInsights(records, report.CurrentRankings)
	}

	s.logger.Info().
		Str("scope", string(scope)).
		Int("keywords", len(records)).
		Int("total_search_volume", report.TotalSearchVolume).
		Int("potential_customers", report.PotentialCustomers).
		Float64("potential_revenue", report.PotentialRevenue).
		Msg("seo opportunity calculated")
	return report, nil
}

func (s *OpportunityScorer) localInsights(records []domain.KeywordRecord, current domain.RankingBucket) *domain.LocalInsights {
	p := s.policy.Insights

	localPack := 0
	nearMe := 0
	for _, rec := range records {
		if rec.LocalSignals != nil && rec.HasLocalPack {
			localPack++
		}
		if strings.Contains(strings.ToLower(rec.Keyword), "near me") {
			nearMe++
		}
	}
	if localPack == 0 {
		localPack = ratioOf(len(records), p.LocalPackFallbackRatio)
	}
	if nearMe == 0 {
		nearMe = ratioOf(len(records), p.NearMeFallbackRatio)
	}

	strength := "High"
	if current.Top10 < p.LocalStrengthTop10 {
		strength = "Low"
	}
	maps := "Medium"
	if nearMe > p.MapsFactorNearMe {
		maps = "High"
	}

	return &domain.LocalInsights{
		LocalPackOpportunities:  localPack,
		GoogleMapsRankingFactor: maps,
		NearMeSearches:          nearMe,
		LocalCompetitorStrength: strength,
		RecommendedActions:      append([]string(nil), p.LocalRecommendedActions...),
	}
}

func (s *OpportunityScorer) nationalInsights(records []domain.KeywordRecord, current domain.RankingBucket) *domain.NationalInsights {
	p := s.policy.Insights

	difficulty := "Medium"
	if current.Top10 < p.NationalDifficultyTop10 {
		difficulty = "High"
	}

	return &domain.NationalInsights{
		CompetitiveDifficulty: difficulty,
		ContentGaps:           ratioOf(len(records), p.ContentGapRatio),
		BacklinkOpportunities: ratioOf(len(records), p.BacklinkRatio),
		RecommendedActions:    append([]string(nil), p.NationalRecommendedActions...),
	}
}

func ratioOf(n int, ratio float64) int {
	return int(math.Floor(float64(n) * ratio))
}
