// Package sourcedex is the embedded SDK entry point: it wires the sourcing
// engine directly over a Redis store, without the HTTP layer.
package sourcedex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/db"
	dbRedis "github.com/procurehq/sourcedex/internal/db/redis"
	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/normalizer"
	"github.com/procurehq/sourcedex/internal/provider"
	listingrepo "github.com/procurehq/sourcedex/internal/repository/listing"
	requestrepo "github.com/procurehq/sourcedex/internal/repository/request"
	searchuc "github.com/procurehq/sourcedex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Public aliases for the engine's result types.
type (
	// SearchIntent describes what to source.
	SearchIntent = domain.SearchIntent
	// NormalizedResult is one canonical listing.
	NormalizedResult = domain.NormalizedResult
	// AggregatedResult is the merged, ranked outcome of a search.
	AggregatedResult = domain.AggregatedResult
	// ProviderStatus reports one provider's outcome.
	ProviderStatus = domain.ProviderStatus
	// Event is one unit of streamed search progress.
	Event = searchuc.Event
	// ProviderConfig configures one provider adapter.
	ProviderConfig = provider.Config
)

// Client is the sourcedex SDK entry point.
type Client struct {
	store     db.Store
	searchSvc *searchuc.Service
	listings  *listingrepo.Repo
	requests  *requestrepo.Repo
}

// New creates a sourcedex Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("sourcedex: database address required (use WithRedis)")
	}
	if len(cfg.providers) == 0 {
		return nil, errors.New("sourcedex: at least one provider required (use WithProvider)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.database,
	})
	if err != nil {
		return nil, fmt.Errorf("sourcedex: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("sourcedex: database not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	adapters := make([]provider.Adapter, 0, len(cfg.providers))
	for _, pc := range cfg.providers {
		a, err := provider.New(pc)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("sourcedex: provider %s: %w", pc.ID, err)
		}
		adapters = append(adapters, a)
	}

	listings := listingrepo.New(store, cfg.keyPrefix)
	requests := requestrepo.New(store, cfg.keyPrefix)

	searchSvc := searchuc.New(
		adapters,
		normalizer.NewRegistry(cfg.comparisonCurrency),
		listings, requests, noopMetrics{},
		searchuc.Config{
			ProviderTimeout:   cfg.providerTimeout,
			OverallTimeout:    cfg.overallTimeout,
			CoverageThreshold: cfg.coverageThreshold,
		},
		cfg.logger,
	)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		listings:  listings,
		requests:  requests,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs all providers to completion and returns the merged, ranked
// aggregate for the given request.
func (c *Client) Search(ctx context.Context, requestID string, intent SearchIntent) (*AggregatedResult, error) {
	return c.searchSvc.Search(ctx, requestID, intent, nil)
}

// SearchStream starts the fan-out and returns events in provider
// completion order, ending with a complete event.
func (c *Client) SearchStream(ctx context.Context, requestID string, intent SearchIntent) (<-chan Event, error) {
	return c.searchSvc.SearchStream(ctx, requestID, intent, nil)
}

// Listings returns all persisted listings for a request in rank order.
func (c *Client) Listings(ctx context.Context, requestID string) ([]NormalizedResult, error) {
	results, err := c.listings.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	searchuc.Rank(results)
	return results, nil
}

// noopMetrics satisfies the search metrics contract for embedded use,
// where no Prometheus registry is running.
type noopMetrics struct{}

func (noopMetrics) ObserveProvider(string, domain.ProviderState, int, time.Duration) {}
func (noopMetrics) ObserveResults(int)                                               {}
func (noopMetrics) ObserveCoverage(float64)                                          {}
func (noopMetrics) ObservePersistence(int, bool)                                     {}

var _ searchuc.Metrics = noopMetrics{}

// nopLogger is used when the caller does not supply one.
func nopLogger() *zap.Logger { return zap.NewNop() }
