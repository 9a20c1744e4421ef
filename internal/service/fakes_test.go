package service

import (
	"context"
	"fmt"
	"sync"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/keywords"
	"seo-opportunity/internal/ranking"
	"seo-opportunity/internal/repository"
)

type fakeLocations struct {
	code int
	err  error
}

func (f fakeLocations) Resolve(ctx context.Context, text string) (domain.LocationCode, error) {
	if f.err != nil {
		return domain.LocationCode{}, f.err
	}
	return domain.LocationCode{Name: text, Code: f.code}, nil
}

type fakeKeywordSource struct {
	mu        sync.Mutex
	ranked    map[string][]api.RankedKeyword
	rankedErr map[string]error
	volumes   map[string]int
	limits    []int
}

func (f *fakeKeywordSource) RankedKeywords(ctx context.Context, target string, locationCode, limit int) ([]api.RankedKeyword, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if err := f.rankedErr[target]; err != nil {
		return nil, err
	}
	return f.ranked[target], nil
}

func (f *fakeKeywordSource) SearchVolume(ctx context.Context, kws []string, locationCode int) ([]api.KeywordVolume, error) {
	out := make([]api.KeywordVolume, len(kws))
	for i, k := range kws {
		out[i] = api.KeywordVolume{Keyword: k, SearchVolume: f.volumes[k]}
	}
	return out, nil
}

type fakeRankings struct {
	ranks       ranking.Rankings
	gotDomains  []string
	gotKeywords []string
}

func (f *fakeRankings) DomainRankings(ctx context.Context, domains, kws []string, locationCode int) (ranking.Rankings, error) {
	f.gotDomains = domains
	f.gotKeywords = kws
	out := ranking.Rankings{}
	for _, d := range domains {
		out[d] = map[string]domain.Rank{}
		for _, k := range kws {
			out[d][k] = f.ranks[d][k]
		}
	}
	return out, nil
}

// pendingSERP accepts every ranking task and never finishes one.
type pendingSERP struct {
	mu    sync.Mutex
	polls int
}

func (p *pendingSERP) PostOrganicTasks(ctx context.Context, reqs []api.OrganicTaskRequest) ([]api.PostedTask, error) {
	out := make([]api.PostedTask, len(reqs))
	for i, r := range reqs {
		out[i] = api.PostedTask{ID: fmt.Sprintf("task-%d", i), Keyword: r.Keyword}
	}
	return out, nil
}

func (p *pendingSERP) OrganicTaskResult(ctx context.Context, id string) (*api.SERPResult, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	return nil, false, nil
}

type fakeRates struct{ rate float64 }

func (f fakeRates) Rate(ctx context.Context, businessType string, scope domain.Scope) (float64, error) {
	return f.rate, nil
}

type fakeSeeds struct {
	keywords []string
	calls    int
}

func (f *fakeSeeds) Generate(ctx context.Context, businessType, location string, scope domain.Scope) (keywords.Seed, error) {
	f.calls++
	return keywords.Seed{Keywords: f.keywords}, nil
}

type fakeFinder struct {
	listings   []api.MapsListing
	domains    []api.DomainCompetitor
	mapsQuery  string
	domainsFor string
}

func (f *fakeFinder) MapsSearch(ctx context.Context, keyword string, locationCode int) ([]api.MapsListing, error) {
	f.mapsQuery = keyword
	return f.listings, nil
}

func (f *fakeFinder) CompetitorDomains(ctx context.Context, target string, locationCode, limit int) ([]api.DomainCompetitor, error) {
	f.domainsFor = target
	return f.domains, nil
}

type memoryStore struct {
	reports map[string]*domain.StoredReport
	next    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reports: map[string]*domain.StoredReport{}}
}

func (m *memoryStore) Save(ctx context.Context, r *domain.StoredReport) error {
	m.next++
	r.ID = fmt.Sprintf("r%d", m.next)
	m.reports[r.ID] = r
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (*domain.StoredReport, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, &domain.NotFoundError{What: "report", Query: id}
	}
	return r, nil
}

func (m *memoryStore) MarkEmailSent(ctx context.Context, id string) error {
	r, ok := m.reports[id]
	if !ok {
		return &domain.NotFoundError{What: "report", Query: id}
	}
	r.EmailSent = true
	return nil
}

func (m *memoryStore) ListRecent(ctx context.Context, limit int) ([]repository.ReportSummary, error) {
	var out []repository.ReportSummary
	for id, r := range m.reports {
		out = append(out, repository.ReportSummary{ID: id, BusinessURL: r.BusinessURL})
	}
	return out, nil
}
