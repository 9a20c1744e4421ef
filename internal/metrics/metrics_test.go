package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ProviderRequest("dataforseo", "search_volume", "ok")
	m.ProviderRequest("dataforseo", "search_volume", "ok")
	m.RankingTasks("unresolved", 3)
	m.Fallback("conversion_rate")

	if got := testutil.ToFloat64(m.providerRequests.WithLabelValues("dataforseo", "search_volume", "ok")); got != 2 {
		t.Errorf("provider requests = %v", got)
	}
	if got := testutil.ToFloat64(m.rankingTasks.WithLabelValues("unresolved")); got != 3 {
		t.Errorf("ranking tasks = %v", got)
	}
	if got := testutil.ToFloat64(m.fallbacks.WithLabelValues("conversion_rate")); got != 1 {
		t.Errorf("fallbacks = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ProviderRequest("a", "b", "c")
	m.RankingTasks("resolved", 1)
	m.Fallback("x")
	m.Analysis("local", "ok")
}
