package chi

import (
	"context"
	"encoding/json"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
	healthuc "github.com/procurehq/sourcedex/internal/usecase/health"
	searchuc "github.com/procurehq/sourcedex/internal/usecase/search"
)

const testRequestID = "11111111-2222-3333-4444-555555555555"

// stubAdapter is a canned provider for transport tests.
type stubAdapter struct {
	id  string
	err error
}

func (s *stubAdapter) ID() string { return s.id }

func (s *stubAdapter) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	return domain.ProviderQuery{ProviderID: s.id, Query: intent.Query}
}

func (s *stubAdapter) Execute(_ context.Context, _ domain.ProviderQuery) (*provider.Payload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Payload{
		ProviderID: s.id,
		Family:     provider.FamilyShopping,
		Items:      []json.RawMessage{[]byte(`{}`)},
	}, nil
}

// stubNormalizer returns canned results keyed by provider id.
type stubNormalizer struct {
	results map[string][]domain.NormalizedResult
}

func (s *stubNormalizer) Normalize(p *provider.Payload, _ domain.SearchIntent) []domain.NormalizedResult {
	if p == nil {
		return nil
	}
	return s.results[p.ProviderID]
}

type stubListingStore struct {
	err error
}

func (s *stubListingStore) UpsertBatch(_ context.Context, _ string, _ []domain.NormalizedResult) error {
	return s.err
}

type stubRequestStore struct{}

func (s *stubRequestStore) SaveQueryPlan(
	_ context.Context, _ string, _ domain.SearchIntent, _ domain.QueryMap,
) error {
	return nil
}

type stubMetrics struct{}

func (stubMetrics) ObserveProvider(string, domain.ProviderState, int, time.Duration) {}
func (stubMetrics) ObserveResults(int)                                               {}
func (stubMetrics) ObserveCoverage(float64)                                          {}
func (stubMetrics) ObservePersistence(int, bool)                                     {}

// stubRequestReader serves GET /v1/requests/{id}.
type stubRequestReader struct {
	intent  domain.SearchIntent
	queries domain.QueryMap
	err     error
}

func (s *stubRequestReader) Get(_ context.Context, _ string) (domain.SearchIntent, domain.QueryMap, error) {
	return s.intent, s.queries, s.err
}

// stubListingReader serves GET /v1/requests/{id}/listings.
type stubListingReader struct {
	results []domain.NormalizedResult
	err     error
}

func (s *stubListingReader) ListByRequest(_ context.Context, _ string) ([]domain.NormalizedResult, error) {
	return s.results, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func listingResult(providerID, url string, price, score float64) domain.NormalizedResult {
	return domain.NormalizedResult{
		Title:        "item",
		Price:        domain.Price{Amount: price, Currency: "USD"},
		CanonicalURL: url,
		ProviderID:   providerID,
		MatchScore:   score,
	}
}

// newTestRouter wires a full server with the given collaborators.
func newTestRouter(
	adapters []provider.Adapter,
	norm searchuc.Normalizer,
	listings *stubListingStore,
	requests *stubRequestReader,
	listingReader *stubListingReader,
	pinger *stubPinger,
) gochi.Router {
	searchSvc := searchuc.New(
		adapters, norm, listings, &stubRequestStore{}, stubMetrics{},
		searchuc.Config{
			ProviderTimeout:   time.Second,
			OverallTimeout:    2 * time.Second,
			CoverageThreshold: 0.5,
		},
		zap.NewNop(),
	)
	healthSvc := healthuc.New(pinger, nil)

	server := NewServer(searchSvc, requests, listingReader, healthSvc, zap.NewNop())
	r := gochi.NewRouter()
	server.Routes(r)
	return r
}
