package ranking

import (
	"context"
	"strings"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/clock"
	"seo-opportunity/internal/config"
	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SERPProvider runs asynchronous organic SERP jobs.
type SERPProvider interface {
	PostOrganicTasks(ctx context.Context, reqs []api.OrganicTaskRequest) ([]api.PostedTask, error)
	OrganicTaskResult(ctx context.Context, id string) (*api.SERPResult, bool, error)
}

// Rankings maps domain -> keyword -> rank.
type Rankings map[string]map[string]domain.Rank

type Fetcher struct {
	provider  SERPProvider
	poller    Poller
	batchSize int
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewFetcher(provider SERPProvider, cfg *config.Config, clk clock.Clock, m *metrics.Metrics, logger zerolog.Logger) *Fetcher {
	batch := cfg.Policy.Keywords.RankingBatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Fetcher{
		provider: provider,
		poller: Poller{
			Clock:    clk,
			Settle:   cfg.RankingSettleDelay,
			Interval: cfg.RankingPollInterval,
			MaxPolls: cfg.RankingMaxPolls,
		},
		batchSize: batch,
		metrics:   m,
		logger:    logger,
	}
}

// DomainRankings looks up every keyword once and matches every domain
// against the organic results. Pairs that could not be resolved stay
// Unranked. Provider failures only leave the affected batch unranked;
// cancellation returns the rankings gathered so far together with ctx.Err().
func (f *Fetcher) DomainRankings(ctx context.Context, domains, keywords []string, locationCode int) (Rankings, error) {
	results := make(Rankings, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		normalized = append(normalized, d)
		results[d] = make(map[string]domain.Rank, len(keywords))
		for _, k := range keywords {
			results[d][k] = domain.Unranked
		}
	}

	runID := uuid.NewString()
	log := f.logger.With().Str("ranking_run", runID).Logger()

	for start := 0; start < len(keywords); start += f.batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := min(start+f.batchSize, len(keywords))
		batch := keywords[start:end]

		if err := f.runBatch(ctx, log, runID, normalized, batch, locationCode, results); err != nil {
			return results, err
		}
	}

	log.Info().
		Int("domains", len(domains)).
		Int("keywords", len(keywords)).
		Msg("domain rankings fetched")
	return results, nil
}

func (f *Fetcher) runBatch(ctx context.Context, log zerolog.Logger, runID string, domains, batch []string, locationCode int, results Rankings) error {
	reqs := make([]api.OrganicTaskRequest, len(batch))
	for i, k := range batch {
		reqs[i] = api.OrganicTaskRequest{
			Keyword:      k,
			LocationCode: locationCode,
			LanguageCode: constants.DefaultLanguage,
			Depth:        constants.RankingTaskDepth,
			Priority:     constants.RankingTaskPriority,
			Tag:          runID,
		}
	}

	posted, err := f.provider.PostOrganicTasks(ctx, reqs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("failed to post ranking batch, leaving it unranked")
		f.metrics.RankingTasks("failed", len(batch))
		return nil
	}
	f.metrics.RankingTasks("posted", len(posted))
	if rejected := len(batch) - len(posted); rejected > 0 {
		f.metrics.RankingTasks("rejected", rejected)
	}
	if len(posted) == 0 {
		return nil
	}

	if err := f.poller.Wait(ctx, f.poller.Settle); err != nil {
		return err
	}

	keywordOf := batchKeywords(batch)
	pending := posted
	for attempt := 1; attempt <= f.poller.MaxPolls && len(pending) > 0; attempt++ {
		var still []api.PostedTask
		for _, task := range pending {
			res, ready, err := f.provider.OrganicTaskResult(ctx, task.ID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Str("task_id", task.ID).Int("attempt", attempt).Msg("ranking task poll failed")
				still = append(still, task)
				continue
			}
			if !ready {
				still = append(still, task)
				continue
			}
			if keyword, ok := keywordOf(task.Keyword); ok {
				recordMatches(res, keyword, domains, results)
			}
		}
		pending = still

		if len(pending) > 0 && attempt < f.poller.MaxPolls {
			if err := f.poller.Wait(ctx, f.poller.Interval); err != nil {
				return err
			}
		}
	}

	f.metrics.RankingTasks("resolved", len(posted)-len(pending))
	if len(pending) > 0 {
		f.metrics.RankingTasks("unresolved", len(pending))
		log.Warn().Int("unresolved", len(pending)).Msg("ranking tasks did not complete, keywords left unranked")
	}
	return nil
}

// batchKeywords maps a keyword echoed by the provider back to the submitted
// one. Exact matches win; a case-insensitive match is only accepted when it
// is unambiguous within the batch.
func batchKeywords(batch []string) func(string) (string, bool) {
	exact := make(map[string]struct{}, len(batch))
	folded := make(map[string][]string, len(batch))
	for _, k := range batch {
		exact[k] = struct{}{}
		lower := strings.ToLower(k)
		folded[lower] = append(folded[lower], k)
	}
	return func(echoed string) (string, bool) {
		if _, ok := exact[echoed]; ok {
			return echoed, true
		}
		if ks := folded[strings.ToLower(echoed)]; len(ks) == 1 {
			return ks[0], true
		}
		return "", false
	}
}

// recordMatches stores the first organic position for each domain.
func recordMatches(res *api.SERPResult, keyword string, domains []string, results Rankings) {
	if res == nil {
		return
	}
	for _, d := range domains {
		for _, item := range res.Items {
			if item.Type != "" && item.Type != "organic" {
				continue
			}
			if hostMatches(d, item.Domain) || hostMatches(d, hostOf(item.URL)) {
				results[d][keyword] = domain.RankAt(item.RankAbsolute)
				break
			}
		}
	}
}

func hostMatches(target, host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" || target == "" {
		return false
	}
	return host == target || strings.HasSuffix(host, "."+target)
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	host, err := domain.RegistrableDomain(rawURL)
	if err != nil {
		return ""
	}
	return host
}
