package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Scope string

const (
	ScopeLocal    Scope = "local"
	ScopeNational Scope = "national"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeLocal:
		return ScopeLocal, nil
	case ScopeNational:
		return ScopeNational, nil
	}
	return "", &ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", s)}
}

type CompetitorSource string

const (
	SourceGoogleMaps  CompetitorSource = "Google Maps"
	SourceDataForSEO  CompetitorSource = "DataForSEO"
	SourceSearchAtlas CompetitorSource = "SearchAtlas"
)

type Competitor struct {
	Name   string           `json:"name"`
	URL    string           `json:"url"`
	Source CompetitorSource `json:"source"`
}

type LocationCode struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// LocalSignals is attached to keyword records of a local-scope analysis.
type LocalSignals struct {
	HasLocalPack bool `json:"hasLocalPack"`
	LocalIntent  int  `json:"localIntent"`
}

// NationalSignals is attached to keyword records of a national-scope analysis.
type NationalSignals struct {
	KeywordDifficulty float64 `json:"keywordDifficulty"`
	CPC               float64 `json:"cpc"`
}

type KeywordRecord struct {
	Keyword         string          `json:"keyword"`
	SearchVolume    int             `json:"searchVolume"`
	ClientRank      Rank            `json:"clientRank"`
	CompetitorRanks map[string]Rank `json:"competitorRanks"`
	IsLocal         bool            `json:"isLocal"`

	*LocalSignals
	*NationalSignals
}

// KeywordDataset is the aggregator output consumed by the scorer.
type KeywordDataset struct {
	ClientURL     string          `json:"clientUrl"`
	Competitors   []Competitor    `json:"competitors"`
	KeywordData   []KeywordRecord `json:"keywordData"`
	AnalysisScope Scope           `json:"analysisScope"`
}

type RankingBucket struct {
	Top3   int `json:"top3"`
	Top10  int `json:"top10"`
	Top50  int `json:"top50"`
	Top100 int `json:"top100"`
	Total  int `json:"total"`
}

// Count adds one keyword at rank r to every threshold it satisfies.
func (b *RankingBucket) Count(r Rank) {
	pos := r.effective()
	if pos <= 3 {
		b.Top3++
	}
	if pos <= 10 {
		b.Top10++
	}
	if pos <= 50 {
		b.Top50++
	}
	if pos <= 100 {
		b.Top100++
	}
	b.Total++
}

type CompetitorRanking struct {
	Competitor
	RankingBucket
}

type LocalInsights struct {
	LocalPackOpportunities  int      `json:"localPackOpportunities"`
	GoogleMapsRankingFactor string   `json:"googleMapsRankingFactor"`
	NearMeSearches          int      `json:"nearMeSearches"`
	LocalCompetitorStrength string   `json:"localCompetitorStrength"`
	RecommendedActions      []string `json:"recommendedActions"`
}

type NationalInsights struct {
	CompetitiveDifficulty string   `json:"competitiveDifficulty"`
	ContentGaps           int      `json:"contentGaps"`
	BacklinkOpportunities int      `json:"backlinkOpportunities"`
	RecommendedActions    []string `json:"recommendedActions"`
}

// AnalysisInsights holds exactly one of the scope-specific insight sets.
type AnalysisInsights struct {
	*LocalInsights
	*NationalInsights
}

// MarshalJSON emits the populated insight set flat.
func (a AnalysisInsights) MarshalJSON() ([]byte, error) {
	switch {
	case a.LocalInsights != nil:
		return json.Marshal(a.LocalInsights)
	case a.NationalInsights != nil:
		return json.Marshal(a.NationalInsights)
	}
	return []byte("{}"), nil
}

func (a *AnalysisInsights) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["competitiveDifficulty"]; ok {
		a.NationalInsights = &NationalInsights{}
		return json.Unmarshal(data, a.NationalInsights)
	}
	if _, ok := probe["localPackOpportunities"]; ok {
		a.LocalInsights = &LocalInsights{}
		return json.Unmarshal(data, a.LocalInsights)
	}
	return nil
}

// ReportKeyword is the simplified per-keyword projection carried by a Report.
type ReportKeyword struct {
	Keyword         string          `json:"keyword"`
	SearchVolume    int             `json:"searchVolume"`
	ClientRank      DisplayRank     `json:"clientRank"`
	CompetitorRanks map[string]Rank `json:"competitorRanks"`
	IsLocal         bool            `json:"isLocal"`
}

type Report struct {
	TotalSearchVolume  int                 `json:"totalSearchVolume"`
	PotentialTraffic   int                 `json:"potentialTraffic"`
	ConversionRate     float64             `json:"conversionRate"`
	PotentialCustomers int                 `json:"potentialCustomers"`
	PotentialRevenue   float64             `json:"potentialRevenue"`
	CurrentRankings    RankingBucket       `json:"currentRankings"`
	CompetitorRankings []CompetitorRanking `json:"competitorRankings"`
	AnalysisScope      Scope               `json:"analysisScope"`
	AnalysisInsights   AnalysisInsights    `json:"analysisInsights"`
	KeywordData        []ReportKeyword     `json:"keywordData"`
}

// StoredReport is a persisted analysis run.
type StoredReport struct {
	ID           string         `json:"id"`
	BusinessURL  string         `json:"businessUrl"`
	BusinessType string         `json:"businessType"`
	Location     string         `json:"location"`
	Scope        Scope          `json:"scope"`
	SeedKeywords []string       `json:"seedKeywords"`
	Dataset      KeywordDataset `json:"keywordData"`
	Report       Report         `json:"report"`
	EmailSent    bool           `json:"emailSent"`
	CreatedAt    time.Time      `json:"createdAt"`
}
