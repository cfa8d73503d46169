package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/procurehq/sourcedex/internal/domain"
)

// Sourcing Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcedex",
			Name:      "provider_requests_total",
			Help:      "Total number of provider invocations",
		},
		[]string{"provider", "state"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sourcedex",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider invocation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider"},
	)

	ProviderResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcedex",
			Name:      "provider_results_total",
			Help:      "Total number of raw results returned by providers",
		},
		[]string{"provider"},
	)

	SearchResultsMerged = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sourcedex",
			Name:      "search_results_merged",
			Help:      "Merged result count per search",
			Buckets:   []float64{0, 5, 10, 20, 40, 80, 160},
		},
	)

	SearchCoverageRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sourcedex",
			Name:      "search_coverage_ratio",
			Help:      "Fraction of providers contributing results per search",
			Buckets:   []float64{0, 0.25, 0.5, 0.75, 1},
		},
	)

	ListingsPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcedex",
			Name:      "listings_persisted_total",
			Help:      "Listings written to storage, by outcome",
		},
		[]string{"status"}, // "ok" / "failed"
	)

	ProviderCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcedex",
			Name:      "provider_cache_total",
			Help:      "Provider payload cache hits and misses",
		},
		[]string{"provider", "result"}, // "hit" / "miss"
	)
)

var sourcingMetricsRegistered bool

// RegisterSourcingMetrics registers Prometheus sourcing metrics. Must be called once from main.
func RegisterSourcingMetrics() {
	if sourcingMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderResultsTotal)
	prometheus.MustRegister(SearchResultsMerged)
	prometheus.MustRegister(SearchCoverageRatio)
	prometheus.MustRegister(ListingsPersistedTotal)
	prometheus.MustRegister(ProviderCacheTotal)
	sourcingMetricsRegistered = true
}

// Sourcing implements the search usecase's Metrics contract on the
// package-level collectors.
type Sourcing struct{}

func (Sourcing) ObserveProvider(providerID string, state domain.ProviderState, resultCount int, latency time.Duration) {
	ProviderRequestsTotal.WithLabelValues(providerID, string(state)).Inc()
	ProviderRequestDuration.WithLabelValues(providerID).Observe(latency.Seconds())
	if resultCount > 0 {
		ProviderResultsTotal.WithLabelValues(providerID).Add(float64(resultCount))
	}
}

func (Sourcing) ObserveResults(merged int) {
	SearchResultsMerged.Observe(float64(merged))
}

func (Sourcing) ObserveCoverage(ratio float64) {
	SearchCoverageRatio.Observe(ratio)
}

func (Sourcing) ObservePersistence(count int, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	ListingsPersistedTotal.WithLabelValues(status).Add(float64(count))
}
