package service

import (
	"context"
	"strings"

	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/keywords"
	"seo-opportunity/internal/metrics"
	"seo-opportunity/internal/repository"

	"github.com/rs/zerolog"
)

const defaultLocation = "United States"

type SeedGenerator interface {
	Generate(ctx context.Context, businessType, location string, scope domain.Scope) (keywords.Seed, error)
}

type ReportStore interface {
	Save(ctx context.Context, report *domain.StoredReport) error
	Get(ctx context.Context, id string) (*domain.StoredReport, error)
	ListRecent(ctx context.Context, limit int) ([]repository.ReportSummary, error)
	MarkEmailSent(ctx context.Context, id string) error
}

type AnalyzeRequest struct {
	BusinessURL    string   `json:"businessUrl"`
	BusinessType   string   `json:"businessType"`
	Location       string   `json:"location"`
	Scope          string   `json:"scope"`
	CompetitorURLs []string `json:"competitorUrls"`
	SeedKeywords   []string `json:"seedKeywords"`
	CustomerValue  float64  `json:"customerValue"`
}

type AnalysisResult struct {
	ReportID string                 `json:"reportId"`
	Report   *domain.Report         `json:"report"`
	Dataset  *domain.KeywordDataset `json:"keywordData"`
}

type AnalysisService struct {
	seeds       SeedGenerator
	competitors *CompetitorService
	aggregator  *KeywordAggregator
	scorer      *OpportunityScorer
	reports     ReportStore
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewAnalysisService(
	seeds SeedGenerator,
	competitors *CompetitorService,
	aggregator *KeywordAggregator,
	scorer *OpportunityScorer,
	reports ReportStore,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AnalysisService {
	return &AnalysisService{
		seeds:       seeds,
		competitors: competitors,
		aggregator:  aggregator,
		scorer:      scorer,
		reports:     reports,
		metrics:     m,
		logger:      logger,
	}
}

// Analyze runs the whole pipeline and stores the result.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.AnalysisTimeout)
	defer cancel()

	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		return nil, err
	}
	result, err := s.analyze(ctx, scope, req)
	if err != nil {
		s.metrics.Analysis(string(scope), "error")
		return nil, err
	}
	s.metrics.Analysis(string(scope), "ok")
	return result, nil
}

func (s *AnalysisService) analyze(ctx context.Context, scope domain.Scope, req AnalyzeRequest) (*AnalysisResult, error) {
	if _, err := domain.RegistrableDomain(req.BusinessURL); err != nil {
		return nil, err
	}
	req.BusinessType = strings.TrimSpace(req.BusinessType)
	if req.BusinessType == "" {
		return nil, &domain.ValidationError{Field: "businessType", Reason: "required"}
	}
	if req.CustomerValue < 0 {
		return nil, &domain.ValidationError{Field: "customerValue", Reason: "must not be negative"}
	}
	if strings.TrimSpace(req.Location) == "" {
		req.Location = defaultLocation
	}

	log := s.logger.With().
		Str("business_url", req.BusinessURL).
		Str("business_type", req.BusinessType).
		Str("scope", string(scope)).
		Logger()
	log.Info().Str("location", req.Location).Msg("starting analysis")

	seeds := req.SeedKeywords
	if len(seeds) == 0 {
		seed, err := s.seeds.Generate(ctx, req.BusinessType, req.Location, scope)
		if err != nil {
			return nil, err
		}
		seeds = seed.Keywords
		if len(seeds) == 0 {
			log.Warn().Msg("no seed keywords generated, relying on competitor keywords")
		}
	}

	var detected []domain.Competitor
	if len(req.CompetitorURLs) == 0 && s.competitors != nil {
		found, err := s.competitors.Detect(ctx, DetectRequest{
			BusinessURL:  req.BusinessURL,
			BusinessType: req.BusinessType,
			Location:     req.Location,
			Scope:        scope,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Msg("competitor detection failed, continuing without competitors")
		}
		detected = found
	}

	dataset, err := s.aggregator.FetchKeywordData(ctx, KeywordDataRequest{
		ClientURL:      req.BusinessURL,
		CompetitorURLs: req.CompetitorURLs,
		Competitors:    detected,
		SeedKeywords:   seeds,
		Scope:          scope,
		Location:       req.Location,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch keyword data")
		return nil, err
	}

	report, err := s.scorer.CalculateSeoOpportunity(ctx, dataset, req.CustomerValue, req.BusinessType, scope)
	if err != nil {
		log.Error().Err(err).Msg("failed to calculate opportunity")
		return nil, err
	}

	stored := &domain.StoredReport{
		BusinessURL:  req.BusinessURL,
		BusinessType: req.BusinessType,
		Location:     req.Location,
		Scope:        scope,
		SeedKeywords: seeds,
		Dataset:      *dataset,
		Report:       *report,
	}
	if err := s.reports.Save(ctx, stored); err != nil {
		log.Error().Err(err).Msg("failed to save report")
		return nil, err
	}

	log.Info().Str("report_id", stored.ID).Int("keywords", len(dataset.KeywordData)).Msg("analysis completed")
	return &AnalysisResult{ReportID: stored.ID, Report: report, Dataset: dataset}, nil
}

func (s *AnalysisService) GetReport(ctx context.Context, id string) (*domain.StoredReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	report, err := s.reports.Get(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("report_id", id).Msg("report lookup failed")
		return nil, err
	}
	return report, nil
}

func (s *AnalysisService) ListReports(ctx context.Context, limit int) ([]repository.ReportSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.reports.ListRecent(ctx, limit)
}

// MarkEmailSent records that the report was delivered to the business owner.
func (s *AnalysisService) MarkEmailSent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.reports.MarkEmailSent(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("report_id", id).Msg("report marked as emailed")
	return nil
}
