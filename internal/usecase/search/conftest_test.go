package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// fakeAdapter is a scriptable provider for service tests.
type fakeAdapter struct {
	id     string
	items  int
	err    error
	delay  time.Duration
	family provider.Family
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	return domain.ProviderQuery{ProviderID: f.id, Query: intent.Query}
}

func (f *fakeAdapter) Execute(ctx context.Context, _ domain.ProviderQuery) (*provider.Payload, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	family := f.family
	if family == "" {
		family = provider.FamilyShopping
	}
	p := &provider.Payload{ProviderID: f.id, Family: family}
	for i := 0; i < f.items; i++ {
		p.Items = append(p.Items, []byte(`{}`))
	}
	return p, nil
}

// mockNormalizer returns canned results keyed by provider id.
type mockNormalizer struct {
	results map[string][]domain.NormalizedResult
}

func (m *mockNormalizer) Normalize(p *provider.Payload, _ domain.SearchIntent) []domain.NormalizedResult {
	if p == nil {
		return nil
	}
	return m.results[p.ProviderID]
}

type mockListings struct {
	mu       sync.Mutex
	batches  [][]domain.NormalizedResult
	err      error
	ctxAware bool // reject writes under a done context, like a real store
}

func (m *mockListings) UpsertBatch(ctx context.Context, _ string, results []domain.NormalizedResult) error {
	if m.ctxAware {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, results)
	return m.err
}

func (m *mockListings) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

type mockRequests struct {
	mu      sync.Mutex
	saved   bool
	intent  domain.SearchIntent
	queries domain.QueryMap
	err     error
}

func (m *mockRequests) SaveQueryPlan(
	_ context.Context, _ string, intent domain.SearchIntent, queries domain.QueryMap,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = true
	m.intent = intent
	m.queries = queries
	return m.err
}

type nopMetrics struct{}

func (nopMetrics) ObserveProvider(string, domain.ProviderState, int, time.Duration) {}
func (nopMetrics) ObserveResults(int)                                               {}
func (nopMetrics) ObserveCoverage(float64)                                          {}
func (nopMetrics) ObservePersistence(int, bool)                                     {}

func testConfig() Config {
	return Config{
		ProviderTimeout:   500 * time.Millisecond,
		OverallTimeout:    2 * time.Second,
		CoverageThreshold: 0.5,
	}
}

func newTestService(
	adapters []provider.Adapter, norm Normalizer, listings *mockListings, requests *mockRequests,
) *Service {
	return newTestServiceWithConfig(adapters, norm, listings, requests, testConfig())
}

func newTestServiceWithConfig(
	adapters []provider.Adapter, norm Normalizer, listings *mockListings, requests *mockRequests, cfg Config,
) *Service {
	return New(adapters, norm, listings, requests, nopMetrics{}, cfg, zap.NewNop())
}

func result(providerID, url string, price, score float64) domain.NormalizedResult {
	return domain.NormalizedResult{
		Title:        "item " + url,
		Price:        domain.Price{Amount: price, Currency: "USD"},
		CanonicalURL: url,
		ProviderID:   providerID,
		MatchScore:   score,
	}
}
