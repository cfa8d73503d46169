package search

import (
	"context"
	"time"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// Normalizer converts one provider payload into canonical listings.
type Normalizer interface {
	Normalize(payload *provider.Payload, intent domain.SearchIntent) []domain.NormalizedResult
}

// ListingStore persists normalized listings for a request.
type ListingStore interface {
	UpsertBatch(ctx context.Context, requestID string, results []domain.NormalizedResult) error
}

// RequestStore records the intent and per-provider query plan for a request.
type RequestStore interface {
	SaveQueryPlan(ctx context.Context, requestID string, intent domain.SearchIntent, queries domain.QueryMap) error
}

// Metrics receives sourcing observations. Implemented by internal/metrics.
type Metrics interface {
	ObserveProvider(providerID string, state domain.ProviderState, resultCount int, latency time.Duration)
	ObserveResults(merged int)
	ObserveCoverage(ratio float64)
	ObservePersistence(count int, failed bool)
}

// Config bounds one search invocation.
type Config struct {
	ProviderTimeout   time.Duration
	OverallTimeout    time.Duration
	CoverageThreshold float64
}
