package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/config"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/ranking"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type LocationResolver interface {
	Resolve(ctx context.Context, text string) (domain.LocationCode, error)
}

type KeywordSource interface {
	RankedKeywords(ctx context.Context, target string, locationCode, limit int) ([]api.RankedKeyword, error)
	SearchVolume(ctx context.Context, keywords []string, locationCode int) ([]api.KeywordVolume, error)
}

type RankingFetcher interface {
	DomainRankings(ctx context.Context, domains, keywords []string, locationCode int) (ranking.Rankings, error)
}

// KeywordDataRequest names competitors either as bare URLs or, when they were
// detected, as full entries. Competitors takes precedence and is carried into
// the dataset unchanged.
type KeywordDataRequest struct {
	ClientURL      string
	CompetitorURLs []string
	Competitors    []domain.Competitor
	SeedKeywords   []string
	Scope          domain.Scope
	Location       string
}

type KeywordAggregator struct {
	locations LocationResolver
	keywords  KeywordSource
	rankings  RankingFetcher
	policy    config.KeywordsPolicy
	logger    zerolog.Logger
}

func NewKeywordAggregator(locations LocationResolver, keywords KeywordSource, rankings RankingFetcher, policy config.Policy, logger zerolog.Logger) *KeywordAggregator {
	return &KeywordAggregator{
		locations: locations,
		keywords:  keywords,
		rankings:  rankings,
		policy:    policy.Keywords,
		logger:    logger,
	}
}

// FetchKeywordData merges seed and competitor keywords, looks up their
// volumes and ranks the highest-volume ones for the client and every
// competitor. Any provider failure aborts the whole call.
func (a *KeywordAggregator) FetchKeywordData(ctx context.Context, req KeywordDataRequest) (*domain.KeywordDataset, error) {
	clientDomain, err := domain.RegistrableDomain(req.ClientURL)
	if err != nil {
		return nil, fmt.Errorf("invalid client url: %w", err)
	}
	competitors := req.Competitors
	if len(competitors) == 0 {
		competitors = domain.CompetitorsFromURLs(req.CompetitorURLs)
	}
	competitorURLs := make([]string, len(competitors))
	competitorDomains := make([]string, len(competitors))
	for i, c := range competitors {
		d, err := domain.RegistrableDomain(c.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid competitor url: %w", err)
		}
		competitorURLs[i] = c.URL
		competitorDomains[i] = d
	}

	log := a.logger.With().Str("client", clientDomain).Str("scope", string(req.Scope)).Logger()
	log.Info().Int("competitors", len(competitorDomains)).Int("seeds", len(req.SeedKeywords)).Msg("fetching keyword data")

	loc, err := a.locations.Resolve(ctx, req.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location %q: %w", req.Location, err)
	}

	ranked, err := a.competitorKeywords(ctx, competitorDomains, loc.Code)
	if err != nil {
		return nil, err
	}

	allKeywords := unionKeywords(req.SeedKeywords, ranked.order)
	dataset := &domain.KeywordDataset{
		ClientURL:     req.ClientURL,
		Competitors:   competitors,
		KeywordData:   []domain.KeywordRecord{},
		AnalysisScope: req.Scope,
	}
	if len(allKeywords) == 0 {
		log.Warn().Msg("no keywords to analyze")
		return dataset, nil
	}

	volumes, err := a.keywords.SearchVolume(ctx, allKeywords, loc.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search volume: %w", err)
	}
	bulkVolume := make(map[string]int, len(volumes))
	for _, v := range volumes {
		bulkVolume[v.Keyword] = v.SearchVolume
	}

	top := topByVolume(allKeywords, bulkVolume, a.policy.RankingTopN)
	topSet := make(map[string]struct{}, len(top))
	for _, k := range top {
		topSet[k] = struct{}{}
	}
	log.Debug().Int("keywords", len(allKeywords)).Int("ranked_lookups", len(top)).Msg("selected keywords for ranking lookup")

	rankings, err := a.rankings.DomainRankings(ctx, append([]string{clientDomain}, competitorDomains...), top, loc.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domain rankings: %w", err)
	}

	for _, k := range allKeywords {
		rec := domain.KeywordRecord{
			Keyword:         k,
			SearchVolume:    bulkVolume[k],
			ClientRank:      domain.Unranked,
			CompetitorRanks: make(map[string]domain.Rank, len(competitorURLs)),
			IsLocal:         domain.IsLocalKeyword(k),
		}

		var difficulty, cpc float64
		if rk, ok := ranked.byKeyword[k]; ok {
			if rk.SearchVolume > 0 {
				rec.SearchVolume = rk.SearchVolume
			}
			difficulty, cpc = rk.KeywordDifficulty, rk.CPC
		}

		_, inTop := topSet[k]
		if inTop {
			rec.ClientRank = rankings[clientDomain][k]
		}
		for i, u := range competitorURLs {
			if inTop {
				rec.CompetitorRanks[u] = rankings[competitorDomains[i]][k]
			} else {
				rec.CompetitorRanks[u] = domain.Unranked
			}
		}

		if req.Scope == domain.ScopeLocal {
			intent := 3
			if rec.IsLocal {
				intent = 8
			}
			rec.LocalSignals = &domain.LocalSignals{HasLocalPack: rec.IsLocal, LocalIntent: intent}
		} else {
			rec.NationalSignals = &domain.NationalSignals{KeywordDifficulty: difficulty, CPC: cpc}
		}

		dataset.KeywordData = append(dataset.KeywordData, rec)
	}

	sort.SliceStable(dataset.KeywordData, func(i, j int) bool {
		return dataset.KeywordData[i].SearchVolume > dataset.KeywordData[j].SearchVolume
	})

	log.Info().Int("keywords", len(dataset.KeywordData)).Msg("keyword data fetched")
	return dataset, nil
}

type rankedSet struct {
	byKeyword map[string]api.RankedKeyword
	order     []string
}

// competitorKeywords fetches ranked keywords for every competitor at once and
// merges them in competitor order, so the first competitor listing a keyword
// wins regardless of which response arrives first.
func (a *KeywordAggregator) competitorKeywords(ctx context.Context, domains []string, locationCode int) (rankedSet, error) {
	limit := a.policy.RankedPerCompetitor
	results := make([][]api.RankedKeyword, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range domains {
		g.Go(func() error {
			kws, err := a.keywords.RankedKeywords(gctx, d, locationCode, limit)
			if err != nil {
				return fmt.Errorf("failed to fetch ranked keywords for %s: %w", d, err)
			}
			if len(kws) > limit {
				kws = kws[:limit]
			}
			results[i] = kws
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rankedSet{}, err
	}

	set := rankedSet{byKeyword: make(map[string]api.RankedKeyword)}
	for _, kws := range results {
		for _, kw := range kws {
			if kw.Keyword == "" {
				continue
			}
			if _, ok := set.byKeyword[kw.Keyword]; ok {
				continue
			}
			set.byKeyword[kw.Keyword] = kw
			set.order = append(set.order, kw.Keyword)
		}
	}
	return set, nil
}

func unionKeywords(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, k := range g {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

func topByVolume(keywords []string, volume map[string]int, n int) []string {
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return volume[sorted[i]] > volume[sorted[j]]
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
