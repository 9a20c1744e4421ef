package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/config"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/keywords"
	"seo-opportunity/internal/location"
	"seo-opportunity/internal/metrics"
	"seo-opportunity/internal/ranking"
	"seo-opportunity/internal/repository"
	"seo-opportunity/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type stubLocations struct{}

func (stubLocations) Resolve(ctx context.Context, text string) (domain.LocationCode, error) {
	return domain.LocationCode{Name: text, Code: 2840}, nil
}

func (stubLocations) ResolveStateCity(ctx context.Context, state, city string) (location.Match, error) {
	if state != "Texas" {
		return location.Match{}, &domain.NotFoundError{What: "location", Query: state, Suggestion: "Check spelling or try a different name"}
	}
	st := domain.LocationCode{Name: "Texas", Code: 21176}
	if city == "Austin" {
		c := domain.LocationCode{Name: "Austin", Code: 1026201}
		return location.Match{Location: c, Type: location.TypeCity, State: &st, City: &c}, nil
	}
	return location.Match{Location: st, Type: location.TypeState, State: &st}, nil
}

type stubKeywords struct{}

func (stubKeywords) RankedKeywords(ctx context.Context, target string, locationCode, limit int) ([]api.RankedKeyword, error) {
	return nil, nil
}

func (stubKeywords) SearchVolume(ctx context.Context, kws []string, locationCode int) ([]api.KeywordVolume, error) {
	out := make([]api.KeywordVolume, len(kws))
	for i, k := range kws {
		out[i] = api.KeywordVolume{Keyword: k, SearchVolume: 1000}
	}
	return out, nil
}

type stubRankings struct{}

func (stubRankings) DomainRankings(ctx context.Context, domains, kws []string, locationCode int) (ranking.Rankings, error) {
	out := ranking.Rankings{}
	for _, d := range domains {
		out[d] = map[string]domain.Rank{}
		for _, k := range kws {
			out[d][k] = domain.RankAt(5)
		}
	}
	return out, nil
}

type stubSeeds struct{}

func (stubSeeds) Generate(ctx context.Context, businessType, loc string, scope domain.Scope) (keywords.Seed, error) {
	return keywords.Seed{Keywords: []string{businessType + " near me"}}, nil
}

type stubRates struct{}

func (stubRates) Rate(ctx context.Context, businessType string, scope domain.Scope) (float64, error) {
	return 2, nil
}

type stubFinder struct{}

func (stubFinder) MapsSearch(ctx context.Context, keyword string, locationCode int) ([]api.MapsListing, error) {
	return []api.MapsListing{{Title: "Rival", URL: "https://rival.com"}}, nil
}

func (stubFinder) CompetitorDomains(ctx context.Context, target string, locationCode, limit int) ([]api.DomainCompetitor, error) {
	return nil, nil
}

type stubStore struct {
	saved map[string]*domain.StoredReport
}

func (s *stubStore) Save(ctx context.Context, r *domain.StoredReport) error {
	r.ID = "abc123"
	s.saved[r.ID] = r
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*domain.StoredReport, error) {
	if r, ok := s.saved[id]; ok {
		return r, nil
	}
	return nil, &domain.NotFoundError{What: "report", Query: id}
}

func (s *stubStore) ListRecent(ctx context.Context, limit int) ([]repository.ReportSummary, error) {
	return []repository.ReportSummary{}, nil
}

func (s *stubStore) MarkEmailSent(ctx context.Context, id string) error {
	r, ok := s.saved[id]
	if !ok {
		return &domain.NotFoundError{What: "report", Query: id}
	}
	r.EmailSent = true
	return nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	policy := config.DefaultPolicy()

	competitors := service.NewCompetitorService(stubLocations{}, stubFinder{}, zerolog.Nop())
	analysis := service.NewAnalysisService(
		stubSeeds{},
		competitors,
		service.NewKeywordAggregator(stubLocations{}, stubKeywords{}, stubRankings{}, policy, zerolog.Nop()),
		service.NewOpportunityScorer(stubRates{}, policy, zerolog.Nop()),
		&stubStore{saved: map[string]*domain.StoredReport{}},
		m,
		zerolog.Nop(),
	)
	return NewServer(analysis, competitors, stubLocations{}, reg, zerolog.Nop()).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAnalyzeAndFetchReport(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/analyze", `{"businessUrl":"https://client.com","businessType":"roofing","location":"Austin, TX","scope":"local","customerValue":250}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var res struct {
		ReportID string         `json:"reportId"`
		Report   map[string]any `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.ReportID != "abc123" || res.Report["totalSearchVolume"] != float64(1000) {
		t.Errorf("unexpected response %s", rec.Body)
	}
	if _, ok := res.Report["analysisInsights"].(map[string]any)["localPackOpportunities"]; !ok {
		t.Errorf("local insights missing: %v", res.Report["analysisInsights"])
	}

	rec = do(t, h, http.MethodGet, "/api/reports/abc123", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"businessType":"roofing"`) {
		t.Errorf("GET report: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `seo_analyses_total{outcome="ok",scope="local"} 1`) {
		t.Errorf("analysis metric missing:\n%s", rec.Body)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad scope", `{"businessUrl":"client.com","businessType":"roofing","scope":"galactic"}`, http.StatusBadRequest},
		{"malformed json", `{"businessUrl":`, http.StatusBadRequest},
		{"unknown field", `{"businessUrl":"client.com","color":"red"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/analyze", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestMarkReportEmailed(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/analyze", `{"businessUrl":"https://client.com","businessType":"roofing","location":"Austin, TX","scope":"local","customerValue":250}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/reports/abc123/email-sent", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("email-sent status = %d (%s)", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/reports/abc123", "")
	if !strings.Contains(rec.Body.String(), `"emailSent":true`) {
		t.Errorf("report not flagged as emailed: %s", rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/reports/missing/email-sent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing report status = %d", rec.Code)
	}
}

func TestGetReportNotFound(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/reports/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLocationCode(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/location-code", `{"state":"Texas","city":"Austin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp locationCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LocationCode != 1026201 || resp.Type != "city" || resp.Matched.StateCode != 21176 || resp.Matched.City != "Austin" {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = do(t, h, http.MethodPost, "/api/location-code", `{"state":"Narnia"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatal(err)
	}
	if er.Suggestion == "" {
		t.Error("not found response must carry a suggestion")
	}
}

func TestDetectCompetitors(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/competitors/detect", `{"businessType":"roofing","location":"Austin, TX","scope":"local"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"source":"Google Maps"`) {
		t.Errorf("detect: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/competitors/detect", `{"businessType":"roofing","scope":"national"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("national detect without url: %d", rec.Code)
	}
}
