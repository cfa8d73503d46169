// Package search orchestrates multi-provider sourcing: fan-out to provider
// adapters, normalization, merge and rank, and persistence of the outcome.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// Service runs sourcing searches across the configured provider set.
type Service struct {
	adapters []provider.Adapter
	norm     Normalizer
	listings ListingStore
	requests RequestStore
	metrics  Metrics
	cfg      Config
	logger   *zap.Logger
}

// New creates a sourcing search service.
func New(
	adapters []provider.Adapter, norm Normalizer,
	listings ListingStore, requests RequestStore,
	metrics Metrics, cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		adapters: adapters,
		norm:     norm,
		listings: listings,
		requests: requests,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// taskResult is the isolated output of one provider task. Each task owns
// its buffer until the coordinator merges them; no shared mutable state.
type taskResult struct {
	status  domain.ProviderStatus
	results []domain.NormalizedResult
}

// Search fans out to the selected providers, waits for all of them to
// settle (bounded by the overall timeout), and returns the merged, ranked
// aggregate. Providers whose id is not in providerIDs are skipped; an empty
// providerIDs selects all configured providers.
//
// A persistence failure does not discard results: the aggregate is returned
// together with an error wrapping domain.ErrPersistence.
func (s *Service) Search(
	ctx context.Context, requestID string, intent domain.SearchIntent, providerIDs []string,
) (*domain.AggregatedResult, error) {
	adapters, queries, err := s.plan(ctx, requestID, &intent, providerIDs)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OverallTimeout)
	defer cancel()

	done := make(chan taskResult, len(adapters))
	for _, a := range adapters {
		go func(a provider.Adapter) {
			done <- s.runProvider(ctx, a, queries[a.ID()], intent)
		}(a)
	}

	byProvider := make(map[string]taskResult, len(adapters))
	for range adapters {
		t := <-done
		byProvider[t.status.ProviderID] = t
	}

	// Merge in adapter declaration order so output is deterministic
	// regardless of completion order.
	statuses := make([]domain.ProviderStatus, 0, len(adapters))
	var merged []domain.NormalizedResult
	for _, a := range adapters {
		t := byProvider[a.ID()]
		statuses = append(statuses, t.status)
		merged = append(merged, t.results...)
	}
	Rank(merged)

	agg := &domain.AggregatedResult{
		Results:          merged,
		ProviderStatuses: statuses,
		Coverage:         domain.NewCoverage(statuses, s.cfg.CoverageThreshold),
		GeneratedAt:      time.Now().UTC(),
		UserMessage:      userMessage(merged, statuses),
	}
	s.metrics.ObserveResults(len(merged))
	s.metrics.ObserveCoverage(agg.Coverage.Ratio)

	if err := s.persist(ctx, requestID, merged); err != nil {
		return agg, err
	}
	return agg, nil
}

// plan validates the intent, selects adapters, builds the per-provider
// query map, and records it on the request.
func (s *Service) plan(
	ctx context.Context, requestID string, intent *domain.SearchIntent, providerIDs []string,
) ([]provider.Adapter, domain.QueryMap, error) {
	if err := intent.Validate(); err != nil {
		return nil, nil, err
	}

	adapters := s.selectAdapters(providerIDs)
	if len(adapters) == 0 {
		return nil, nil, domain.ErrNoProviders
	}

	queries := make(domain.QueryMap, len(adapters))
	for _, a := range adapters {
		queries.Add(a.BuildQuery(*intent))
	}

	if err := s.requests.SaveQueryPlan(ctx, requestID, *intent, queries); err != nil {
		// The plan record is an audit artifact; its loss never blocks the search.
		s.logger.Warn("save query plan failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
	return adapters, queries, nil
}

func (s *Service) selectAdapters(providerIDs []string) []provider.Adapter {
	if len(providerIDs) == 0 {
		return s.adapters
	}
	allowed := make(map[string]struct{}, len(providerIDs))
	for _, id := range providerIDs {
		allowed[id] = struct{}{}
	}
	var out []provider.Adapter
	for _, a := range s.adapters {
		if _, ok := allowed[a.ID()]; ok {
			out = append(out, a)
		}
	}
	return out
}

// runProvider executes one provider end to end: bounded call, then
// normalization of whatever came back. Always returns a settled result.
func (s *Service) runProvider(
	ctx context.Context, a provider.Adapter, query domain.ProviderQuery, intent domain.SearchIntent,
) taskResult {
	outcome := provider.Run(ctx, a, query, s.cfg.ProviderTimeout)
	s.metrics.ObserveProvider(
		outcome.Status.ProviderID, outcome.Status.State,
		outcome.Status.ResultCount, outcome.Status.Latency,
	)

	t := taskResult{status: outcome.Status}
	if outcome.Status.Succeeded() {
		t.results = s.norm.Normalize(outcome.Payload, intent)
		t.status.ResultCount = len(t.results)
	} else {
		s.logger.Info("provider settled without results",
			zap.String("provider", outcome.Status.ProviderID),
			zap.String("state", string(outcome.Status.State)),
			zap.Int64("latency_ms", outcome.Status.LatencyMS),
			zap.String("detail", outcome.Status.Message),
		)
	}
	return t
}

// persistTimeout bounds listing writes independently of the search
// deadline: a search that ran up to the overall timeout still gets to
// persist what it computed.
const persistTimeout = 5 * time.Second

func (s *Service) persist(ctx context.Context, requestID string, results []domain.NormalizedResult) error {
	if len(results) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.listings.UpsertBatch(ctx, requestID, results); err != nil {
		s.metrics.ObservePersistence(len(results), true)
		s.logger.Error("persist listings failed",
			zap.String("request_id", requestID),
			zap.Int("count", len(results)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	s.metrics.ObservePersistence(len(results), false)
	return nil
}

// userMessage explains an empty result set in user-facing terms.
func userMessage(results []domain.NormalizedResult, statuses []domain.ProviderStatus) string {
	if len(results) > 0 || len(statuses) == 0 {
		return ""
	}

	exhausted, rateLimited, failed := 0, 0, 0
	for _, st := range statuses {
		switch st.State {
		case domain.StateExhausted:
			exhausted++
			failed++
		case domain.StateRateLimited:
			rateLimited++
			failed++
		case domain.StateSuccess:
		default:
			failed++
		}
	}

	switch {
	case exhausted == len(statuses):
		return "Search providers have exhausted their quota. Please try again later or contact support."
	case rateLimited > 0:
		return "Search is temporarily rate-limited. Please wait a moment and try again."
	case failed == len(statuses):
		return "Unable to search at this time. Please try again later."
	}
	return ""
}
