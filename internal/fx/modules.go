package fx

import (
	"seo-opportunity/internal/api"
	"seo-opportunity/internal/clock"
	"seo-opportunity/internal/config"
	"seo-opportunity/internal/conversion"
	"seo-opportunity/internal/database"
	"seo-opportunity/internal/keywords"
	"seo-opportunity/internal/location"
	"seo-opportunity/internal/logger"
	"seo-opportunity/internal/metrics"
	"seo-opportunity/internal/ranking"
	"seo-opportunity/internal/repository"
	"seo-opportunity/internal/resilient"
	"seo-opportunity/internal/server"
	"seo-opportunity/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func ProvideClock() clock.Clock {
	return clock.Real{}
}

func ProvideGatherer(reg *prometheus.Registry) prometheus.Gatherer {
	return reg
}

// provider interfaces are satisfied by the concrete clients

func provideLocationSource(c *api.DataForSEOClient) location.Source { return c }
func provideSERPProvider(c *api.DataForSEOClient) ranking.SERPProvider { return c }
func provideKeywordSource(c *api.DataForSEOClient) service.KeywordSource { return c }
func provideCompetitorFinder(c *api.DataForSEOClient) service.CompetitorFinder { return c }
func provideKeywordCompleter(c *api.OpenAIClient) keywords.Completer { return c }
func provideRateCompleter(c *api.OpenAIClient) conversion.Completer { return c }

func provideLocationResolver(r *location.Resolver) service.LocationResolver { return r }
func provideStateCityResolver(r *location.Resolver) server.StateCityResolver { return r }
func provideSeedGenerator(g *keywords.Generator) service.SeedGenerator { return g }
func provideRateEstimator(e *conversion.Estimator) service.RateEstimator { return e }
func provideRankingFetcher(f *ranking.Fetcher) service.RankingFetcher { return f }
func provideReportStore(r *repository.ReportRepository) service.ReportStore { return r }

var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	database.Module,
	fx.Provide(ProvideClock, ProvideGatherer),
	// repos
	fx.Provide(repository.NewReportRepository, provideReportStore),
	// api clients
	fx.Provide(
		api.NewDataForSEOClient,
		api.NewOpenAIClient,
		resilient.NewCaller,
		provideLocationSource,
		provideSERPProvider,
		provideKeywordSource,
		provideCompetitorFinder,
		provideKeywordCompleter,
		provideRateCompleter,
	),
	// pipeline
	fx.Provide(
		location.NewResolver,
		keywords.NewGenerator,
		conversion.NewEstimator,
		ranking.NewFetcher,
		provideLocationResolver,
		provideStateCityResolver,
		provideSeedGenerator,
		provideRateEstimator,
		provideRankingFetcher,
	),
	// svc
	fx.Provide(
		service.NewKeywordAggregator,
		service.NewOpportunityScorer,
		service.NewCompetitorService,
		service.NewAnalysisService,
	),
	fx.Provide(server.NewServer),
)
