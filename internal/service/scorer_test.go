package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"seo-opportunity/internal/config"
	"seo-opportunity/internal/domain"

	"github.com/rs/zerolog"
)

func scorerDataset() *domain.KeywordDataset {
	rival := "https://rival.com"
	return &domain.KeywordDataset{
		ClientURL:   "https://client.com",
		Competitors: []domain.Competitor{{Name: "rival.com", URL: rival}},
		KeywordData: []domain.KeywordRecord{
			{Keyword: "roof repair", SearchVolume: 600, ClientRank: domain.RankAt(2), CompetitorRanks: map[string]domain.Rank{rival: domain.RankAt(1)}},
			{Keyword: "roof replacement", SearchVolume: 300, ClientRank: domain.RankAt(8), CompetitorRanks: map[string]domain.Rank{}},
			{Keyword: "roofer near me", SearchVolume: 100, ClientRank: domain.Unranked, IsLocal: true},
		},
	}
}

func TestCalculateSeoOpportunityLocal(t *testing.T) {
	s := NewOpportunityScorer(fakeRates{rate: 4.2}, config.DefaultPolicy(), zerolog.Nop())

	r, err := s.CalculateSeoOpportunity(context.Background(), scorerDataset(), 500, "roofing", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}

	if r.TotalSearchVolume != 1000 || r.PotentialTraffic != 350 || r.PotentialCustomers != 14 || r.PotentialRevenue != 7000 {
		t.Errorf("unexpected totals %+v", r)
	}
	if r.ConversionRate != 4.2 || r.AnalysisScope != domain.ScopeLocal {
		t.Errorf("rate/scope = %v/%v", r.ConversionRate, r.AnalysisScope)
	}

	want := domain.RankingBucket{Top3: 1, Top10: 2, Top50: 2, Top100: 2, Total: 3}
	if r.CurrentRankings != want {
		t.Errorf("CurrentRankings = %+v, want %+v", r.CurrentRankings, want)
	}

	if len(r.CompetitorRankings) != 1 {
		t.Fatalf("CompetitorRankings = %+v", r.CompetitorRankings)
	}
	cr := r.CompetitorRankings[0]
	if cr.RankingBucket != (domain.RankingBucket{Top3: 1, Top10: 1, Top50: 1, Top100: 1, Total: 3}) {
		t.Errorf("competitor bucket = %+v", cr.RankingBucket)
	}
	if cr.Source != domain.SourceGoogleMaps {
		t.Errorf("local competitors without a source default to Google Maps, got %q", cr.Source)
	}

	li := r.AnalysisInsights.LocalInsights
	if li == nil || r.AnalysisInsights.NationalInsights != nil {
		t.Fatalf("expected local insights only: %+v", r.AnalysisInsights)
	}
	// no record carries local signals, so the 40% fallback applies
	if li.LocalPackOpportunities != 1 || li.NearMeSearches != 1 {
		t.Errorf("local insights %+v", li)
	}
	if li.LocalCompetitorStrength != "Low" || li.GoogleMapsRankingFactor != "Medium" || len(li.RecommendedActions) != 5 {
		t.Errorf("local insights %+v", li)
	}

	b, err := json.Marshal(r.KeywordData[2])
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out["clientRank"] != "Not ranked" {
		t.Errorf("clientRank = %v, want \"Not ranked\"", out["clientRank"])
	}
}

func TestCalculateSeoOpportunityNational(t *testing.T) {
	s := NewOpportunityScorer(fakeRates{rate: 2.2}, config.DefaultPolicy(), zerolog.Nop())

	r, err := s.CalculateSeoOpportunity(context.Background(), scorerDataset(), 1000, "roofing", domain.ScopeNational)
	if err != nil {
		t.Fatal(err)
	}
	if r.PotentialTraffic != 300 || r.PotentialCustomers != 6 || r.PotentialRevenue != 6000 {
		t.Errorf("unexpected totals %+v", r)
	}

	ni := r.AnalysisInsights.NationalInsights
	if ni == nil || r.AnalysisInsights.LocalInsights != nil {
		t.Fatalf("expected national insights only: %+v", r.AnalysisInsights)
	}
	if ni.CompetitiveDifficulty != "High" || ni.ContentGaps != 1 || ni.BacklinkOpportunities != 1 || len(ni.RecommendedActions) != 5 {
		t.Errorf("national insights %+v", ni)
	}
	if r.CompetitorRankings[0].Source != domain.SourceSearchAtlas {
		t.Errorf("national competitors without a source default to SearchAtlas, got %q", r.CompetitorRankings[0].Source)
	}
}

func TestCalculateSeoOpportunityLocalSignalCounts(t *testing.T) {
	ds := &domain.KeywordDataset{}
	for i := 0; i < 12; i++ {
		ds.KeywordData = append(ds.KeywordData, domain.KeywordRecord{
			Keyword:      "plumber near me " + string(rune('a'+i)),
			SearchVolume: 10,
			ClientRank:   domain.RankAt(1),
			IsLocal:      true,
			LocalSignals: &domain.LocalSignals{HasLocalPack: true, LocalIntent: 8},
		})
	}

	s := NewOpportunityScorer(fakeRates{rate: 3}, config.DefaultPolicy(), zerolog.Nop())
	r, err := s.CalculateSeoOpportunity(context.Background(), ds, 100, "plumbing", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	li := r.AnalysisInsights.LocalInsights
	if li.LocalPackOpportunities != 12 || li.NearMeSearches != 12 {
		t.Errorf("counts %+v", li)
	}
	if li.LocalCompetitorStrength != "High" || li.GoogleMapsRankingFactor != "High" {
		t.Errorf("thresholds %+v", li)
	}
}

func TestCalculateSeoOpportunityBucketsMonotonic(t *testing.T) {
	ds := &domain.KeywordDataset{}
	for _, pos := range []int{1, 3, 4, 10, 11, 50, 51, 100, 0, 150} {
		ds.KeywordData = append(ds.KeywordData, domain.KeywordRecord{Keyword: "k", ClientRank: domain.RankAt(pos)})
	}
	s := NewOpportunityScorer(fakeRates{rate: 3}, config.DefaultPolicy(), zerolog.Nop())
	r, err := s.CalculateSeoOpportunity(context.Background(), ds, 0, "x", domain.ScopeNational)
	if err != nil {
		t.Fatal(err)
	}
	b := r.CurrentRankings
	if b != (domain.RankingBucket{Top3: 2, Top10: 4, Top50: 6, Top100: 8, Total: 10}) {
		t.Errorf("buckets = %+v", b)
	}
	if !(b.Top3 <= b.Top10 && b.Top10 <= b.Top50 && b.Top50 <= b.Top100 && b.Top100 <= b.Total) {
		t.Errorf("buckets not monotonic: %+v", b)
	}
}

func TestCalculateSeoOpportunityRejectsNegativeValue(t *testing.T) {
	s := NewOpportunityScorer(fakeRates{rate: 3}, config.DefaultPolicy(), zerolog.Nop())
	_, err := s.CalculateSeoOpportunity(context.Background(), scorerDataset(), -1, "x", domain.ScopeLocal)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
