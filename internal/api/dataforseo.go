package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"seo-opportunity/internal/config"
	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	dfsStatusOK          = 20000
	dfsStatusTaskCreated = 20100
	providerDataForSEO   = "dataforseo"
)

const (
	endpointSearchVolume      = "/keywords_data/clickstream_data/dataforseo_search_volume/live"
	endpointRankedKeywords    = "/dataforseo_labs/google/ranked_keywords/live"
	endpointCompetitorsDomain = "/dataforseo_labs/google/competitors_domain/live"
	endpointLocations         = "/keywords_data/google_ads/locations/"
	endpointOrganicTaskPost   = "/serp/google/organic/task_post"
	endpointOrganicTaskGet    = "/serp/google/organic/task_get/advanced/"
	endpointMapsLive          = "/serp/google/maps/live/advanced"
)

// DataForSEOClient talks to the ranking, volume and location provider.
type DataForSEOClient struct {
	baseURL string
	http    *transport
	logger  zerolog.Logger
}

func NewDataForSEOClient(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *DataForSEOClient {
	t := newTransport(providerDataForSEO, transportOptions{
		rps:           cfg.ProviderRPS,
		maxConcurrent: cfg.ProviderMaxConcurrent,
		retries:       cfg.ProviderRetries,
	}, m, logger)

	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.DataForSEOLogin+":"+cfg.DataForSEOPassword))
	t.authorize = func(req *fasthttp.Request) {
		req.Header.Set("Authorization", auth)
	}

	return &DataForSEOClient{
		baseURL: strings.TrimRight(cfg.DataForSEOBaseURL, "/"),
		http:    t,
		logger:  logger,
	}
}

type dfsResponse[R any] struct {
	StatusCode    int          `json:"status_code"`
	StatusMessage string       `json:"status_message"`
	Tasks         []dfsTask[R] `json:"tasks"`
}

type dfsTask[R any] struct {
	ID            string         `json:"id"`
	StatusCode    int            `json:"status_code"`
	StatusMessage string         `json:"status_message"`
	Data          map[string]any `json:"data"`
	Result        []R            `json:"result"`
}

func (r *dfsResponse[R]) check(endpoint string) error {
	if r.StatusCode != dfsStatusOK {
		return &domain.UpstreamError{
			Provider: providerDataForSEO,
			Endpoint: endpoint,
			Status:   r.StatusCode,
			Body:     r.StatusMessage,
		}
	}
	return nil
}

func dfsCall[R any](ctx context.Context, c *DataForSEOClient, method, endpoint, path string, payload any) (*dfsResponse[R], error) {
	resp, err := doRequest[dfsResponse[R]](ctx, c.http, method, c.baseURL+path, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if err := resp.check(endpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

type KeywordVolume struct {
	Keyword      string `json:"keyword"`
	SearchVolume int    `json:"searchVolume"`
}

type searchVolumeRequest struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
}

type searchVolumeResult struct {
	Items []struct {
		Keyword      string `json:"keyword"`
		SearchVolume *int   `json:"search_volume"`
	} `json:"items"`
}

// SearchVolume returns exactly one entry per input keyword, in input order.
// Keywords the provider does not report get volume 0.
func (c *DataForSEOClient) SearchVolume(ctx context.Context, keywords []string, locationCode int) ([]KeywordVolume, error) {
	volumes := make(map[string]int, len(keywords))

	for start := 0; start < len(keywords); start += constants.MaxVolumeKeywordsPerCall {
		end := min(start+constants.MaxVolumeKeywordsPerCall, len(keywords))
		chunk := keywords[start:end]

		c.logger.Debug().Int("keyword_count", len(chunk)).Int("location_code", locationCode).Msg("fetching search volume")

		resp, err := dfsCall[searchVolumeResult](ctx, c, fasthttp.MethodPost, "search_volume", endpointSearchVolume, []searchVolumeRequest{{
			Keywords:     chunk,
			LocationCode: locationCode,
			LanguageCode: constants.DefaultLanguage,
		}})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch search volume: %w", err)
		}

		for _, task := range resp.Tasks {
			for _, result := range task.Result {
				for _, item := range result.Items {
					if item.SearchVolume != nil {
						volumes[strings.ToLower(item.Keyword)] = *item.SearchVolume
					} else if _, seen := volumes[strings.ToLower(item.Keyword)]; !seen {
						volumes[strings.ToLower(item.Keyword)] = 0
					}
				}
			}
		}
	}

	out := make([]KeywordVolume, len(keywords))
	missing := 0
	for i, kw := range keywords {
		v, ok := volumes[strings.ToLower(kw)]
		if !ok {
			missing++
		}
		out[i] = KeywordVolume{Keyword: kw, SearchVolume: v}
	}

	c.logger.Info().Int("keyword_count", len(keywords)).Int("missing", missing).Msg("search volume fetched")
	return out, nil
}

type RankedKeyword struct {
	Keyword           string  `json:"keyword"`
	SearchVolume      int     `json:"searchVolume"`
	KeywordDifficulty float64 `json:"keywordDifficulty"`
	CPC               float64 `json:"cpc"`
	Rank              int     `json:"rank"`
	URL               string  `json:"url"`
	Domain            string  `json:"domain"`
}

type rankedKeywordsRequest struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit"`
}

type rankedKeywordsResult struct {
	Items []struct {
		KeywordData struct {
			Keyword     string `json:"keyword"`
			KeywordInfo struct {
				SearchVolume int     `json:"search_volume"`
				CPC          float64 `json:"cpc"`
			} `json:"keyword_info"`
			KeywordProperties struct {
				KeywordDifficulty float64 `json:"keyword_difficulty"`
			} `json:"keyword_properties"`
		} `json:"keyword_data"`
		RankedSERPElement struct {
			KeywordDifficulty float64 `json:"keyword_difficulty"`
			SERPItem          struct {
				RankAbsolute int    `json:"rank_absolute"`
				URL          string `json:"url"`
				Domain       string `json:"domain"`
			} `json:"serp_item"`
		} `json:"ranked_serp_element"`
	} `json:"items"`
}

// RankedKeywords returns up to limit keywords the domain already ranks for.
func (c *DataForSEOClient) RankedKeywords(ctx context.Context, target string, locationCode, limit int) ([]RankedKeyword, error) {
	resp, err := dfsCall[rankedKeywordsResult](ctx, c, fasthttp.MethodPost, "ranked_keywords", endpointRankedKeywords, []rankedKeywordsRequest{{
		Target:       target,
		LocationCode: locationCode,
		LanguageCode: constants.DefaultLanguage,
		Limit:        limit,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ranked keywords for %s: %w", target, err)
	}

	var out []RankedKeyword
	for _, task := range resp.Tasks {
		for _, result := range task.Result {
			for _, item := range result.Items {
				if item.KeywordData.Keyword == "" {
					continue
				}
				difficulty := item.KeywordData.KeywordProperties.KeywordDifficulty
				if difficulty == 0 {
					difficulty = item.RankedSERPElement.KeywordDifficulty
				}
				out = append(out, RankedKeyword{
					Keyword:           item.KeywordData.Keyword,
					SearchVolume:      item.KeywordData.KeywordInfo.SearchVolume,
					KeywordDifficulty: difficulty,
					CPC:               item.KeywordData.KeywordInfo.CPC,
					Rank:              item.RankedSERPElement.SERPItem.RankAbsolute,
					URL:               item.RankedSERPElement.SERPItem.URL,
					Domain:            item.RankedSERPElement.SERPItem.Domain,
				})
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}

	c.logger.Info().Str("domain", target).Int("keyword_count", len(out)).Msg("ranked keywords fetched")
	return out, nil
}

type Location struct {
	Code       int    `json:"location_code"`
	Name       string `json:"location_name"`
	ParentCode int    `json:"location_code_parent"`
	CountryISO string `json:"country_iso_code"`
	Type       string `json:"location_type"`
}

// Locations returns the provider's location taxonomy for one country.
func (c *DataForSEOClient) Locations(ctx context.Context, countryISO string) ([]Location, error) {
	resp, err := dfsCall[Location](ctx, c, fasthttp.MethodGet, "locations", endpointLocations+url.PathEscape(strings.ToLower(countryISO)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load location data: %w", err)
	}
	if len(resp.Tasks) == 0 {
		return nil, &domain.UpstreamError{Provider: providerDataForSEO, Endpoint: "locations", Status: resp.StatusCode, Body: "no tasks in response"}
	}

	c.logger.Info().Str("country", countryISO).Int("location_count", len(resp.Tasks[0].Result)).Msg("location taxonomy loaded")
	return resp.Tasks[0].Result, nil
}

type OrganicTaskRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Depth        int    `json:"depth"`
	Priority     int    `json:"priority"`
	Tag          string `json:"tag,omitempty"`
}

type PostedTask struct {
	ID      string
	Keyword string
}

// PostOrganicTasks submits one SERP job per request and returns the job ids
// the provider accepted.
func (c *DataForSEOClient) PostOrganicTasks(ctx context.Context, reqs []OrganicTaskRequest) ([]PostedTask, error) {
	resp, err := dfsCall[struct{}](ctx, c, fasthttp.MethodPost, "organic_task_post", endpointOrganicTaskPost, reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to submit ranking tasks: %w", err)
	}

	posted := make([]PostedTask, 0, len(resp.Tasks))
	for i, task := range resp.Tasks {
		if task.ID == "" || task.StatusCode != dfsStatusTaskCreated {
			c.logger.Warn().
				Str("task_id", task.ID).
				Int("status", task.StatusCode).
				Str("message", task.StatusMessage).
				Msg("ranking task rejected")
			continue
		}
		keyword, _ := task.Data["keyword"].(string)
		if keyword == "" && i < len(reqs) {
			keyword = reqs[i].Keyword
		}
		posted = append(posted, PostedTask{ID: task.ID, Keyword: keyword})
	}

	c.logger.Debug().Int("submitted", len(reqs)).Int("accepted", len(posted)).Msg("ranking tasks posted")
	return posted, nil
}

type SERPItem struct {
	Type         string `json:"type"`
	RankAbsolute int    `json:"rank_absolute"`
	Domain       string `json:"domain"`
	URL          string `json:"url"`
}

type SERPResult struct {
	Keyword string     `json:"keyword"`
	Items   []SERPItem `json:"items"`
}

// OrganicTaskResult fetches one SERP job. ready is false while the provider
// is still processing it.
func (c *DataForSEOClient) OrganicTaskResult(ctx context.Context, id string) (result *SERPResult, ready bool, err error) {
	resp, err := doRequest[dfsResponse[SERPResult]](ctx, c.http, fasthttp.MethodGet, c.baseURL+endpointOrganicTaskGet+url.PathEscape(id), "organic_task_get", nil)
	if err != nil {
		return nil, false, err
	}
	if err := resp.check("organic_task_get"); err != nil {
		return nil, false, err
	}
	if len(resp.Tasks) == 0 || len(resp.Tasks[0].Result) == 0 {
		return nil, false, nil
	}
	return &resp.Tasks[0].Result[0], true, nil
}

type DomainCompetitor struct {
	Domain         string  `json:"domain"`
	AvgPosition    float64 `json:"avgPosition"`
	OrganicTraffic float64 `json:"organicTraffic"`
	KeywordCount   int     `json:"keywordCount"`
}

type competitorsDomainRequest struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit"`
}

type competitorsDomainResult struct {
	Items []struct {
		Domain      string  `json:"domain"`
		AvgPosition float64 `json:"avg_position"`
		Metrics     struct {
			Organic struct {
				ETV   float64 `json:"etv"`
				Count int     `json:"count"`
			} `json:"organic"`
		} `json:"metrics"`
	} `json:"items"`
}

// CompetitorDomains returns domains competing with target in organic search.
func (c *DataForSEOClient) CompetitorDomains(ctx context.Context, target string, locationCode, limit int) ([]DomainCompetitor, error) {
	resp, err := dfsCall[competitorsDomainResult](ctx, c, fasthttp.MethodPost, "competitors_domain", endpointCompetitorsDomain, []competitorsDomainRequest{{
		Target:       target,
		LocationCode: locationCode,
		LanguageCode: constants.DefaultLanguage,
		Limit:        limit,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitor domains for %s: %w", target, err)
	}

	var out []DomainCompetitor
	for _, task := range resp.Tasks {
		for _, result := range task.Result {
			for _, item := range result.Items {
				if item.Domain == "" || item.Domain == target {
					continue
				}
				out = append(out, DomainCompetitor{
					Domain:         item.Domain,
					AvgPosition:    item.AvgPosition,
					OrganicTraffic: item.Metrics.Organic.ETV,
					KeywordCount:   item.Metrics.Organic.Count,
				})
			}
		}
	}
	return out, nil
}

type MapsListing struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Domain      string  `json:"domain"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

type mapsRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
}

type mapsResult struct {
	Items []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Domain  string `json:"domain"`
		Address string `json:"address"`
		Rating  *struct {
			Value      float64 `json:"value"`
			VotesCount int     `json:"votes_count"`
		} `json:"rating"`
	} `json:"items"`
}

// MapsSearch runs a live Google Maps SERP query.
func (c *DataForSEOClient) MapsSearch(ctx context.Context, keyword string, locationCode int) ([]MapsListing, error) {
	resp, err := dfsCall[mapsResult](ctx, c, fasthttp.MethodPost, "maps_live", endpointMapsLive, []mapsRequest{{
		Keyword:      keyword,
		LocationCode: locationCode,
		LanguageCode: constants.DefaultLanguage,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to search maps for %q: %w", keyword, err)
	}

	var out []MapsListing
	for _, task := range resp.Tasks {
		for _, result := range task.Result {
			for _, item := range result.Items {
				l := MapsListing{Title: item.Title, URL: item.URL, Domain: item.Domain, Address: item.Address}
				if item.Rating != nil {
					l.Rating = item.Rating.Value
					l.ReviewCount = item.Rating.VotesCount
				}
				out = append(out, l)
			}
		}
	}
	return out, nil
}
