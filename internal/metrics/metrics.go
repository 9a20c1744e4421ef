package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	rankingTasks     *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	analyses         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seo_provider_requests_total",
			Help: "Requests sent to external providers by endpoint and outcome",
		}, []string{"provider", "endpoint", "outcome"}),
		rankingTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seo_ranking_tasks_total",
			Help: "SERP ranking tasks by final state",
		}, []string{"state"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seo_generative_fallbacks_total",
			Help: "Generative calls replaced by their fallback value",
		}, []string{"call"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seo_analyses_total",
			Help: "Completed analysis runs by scope and outcome",
		}, []string{"scope", "outcome"}),
	}
	reg.MustRegister(m.providerRequests, m.rankingTasks, m.fallbacks, m.analyses)
	return m
}

func (m *Metrics) ProviderRequest(provider, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, endpoint, outcome).Inc()
}

func (m *Metrics) RankingTasks(state string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rankingTasks.WithLabelValues(state).Add(float64(n))
}

func (m *Metrics) Fallback(call string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(call).Inc()
}

func (m *Metrics) Analysis(scope, outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(scope, outcome).Inc()
}

func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(New),
)
