package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// EventType discriminates streamed search events.
type EventType string

const (
	// EventProviderResults carries one provider's settled batch.
	EventProviderResults EventType = "provider_results"
	// EventComplete is the terminal event carrying the merged summary.
	EventComplete EventType = "complete"
)

// Event is one unit of streamed search progress.
type Event struct {
	Type               EventType                 `json:"type"`
	ProviderID         string                    `json:"provider_id,omitempty"`
	Results            []domain.NormalizedResult `json:"results,omitempty"`
	Status             *domain.ProviderStatus    `json:"status,omitempty"`
	ProvidersRemaining int                       `json:"providers_remaining"`
	Summary            *domain.AggregatedResult  `json:"summary,omitempty"`
}

// SearchStream starts the fan-out and returns a channel of events: one per
// provider in completion order, then a terminal complete event with the
// merged summary. Providers still pending when the overall deadline elapses
// settle as timed out and are reported like any other batch; the summary is
// always emitted unless ctx itself is cancelled, which closes the channel
// immediately. Each provider batch is persisted when it settles;
// cancellation stops persistence along with emission.
func (s *Service) SearchStream(
	ctx context.Context, requestID string, intent domain.SearchIntent, providerIDs []string,
) (<-chan Event, error) {
	adapters, queries, err := s.plan(ctx, requestID, &intent, providerIDs)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go s.stream(ctx, requestID, intent, adapters, queries, events)
	return events, nil
}

func (s *Service) stream(
	parent context.Context, requestID string, intent domain.SearchIntent,
	adapters []provider.Adapter, queries domain.QueryMap, events chan<- Event,
) {
	defer close(events)

	// The overall deadline bounds the providers, not the stream: once it
	// elapses the remaining tasks settle as timed out and the summary still
	// goes out. Only the caller going away (parent) stops emission.
	ctx, cancel := context.WithTimeout(parent, s.cfg.OverallTimeout)
	defer cancel()

	done := make(chan taskResult, len(adapters))
	for _, a := range adapters {
		go func(a provider.Adapter) {
			done <- s.runProvider(ctx, a, queries[a.ID()], intent)
		}(a)
	}

	statuses := make([]domain.ProviderStatus, 0, len(adapters))
	var merged []domain.NormalizedResult

	for remaining := len(adapters); remaining > 0; remaining-- {
		// Tasks always settle: each one runs under the deadline-bound
		// context and reports a timeout status once the deadline hits.
		t := <-done
		if parent.Err() != nil {
			return
		}

		// Batches stream best-match first; the global price ranking only
		// applies to the final summary.
		sort.SliceStable(t.results, func(i, j int) bool {
			return t.results[i].MatchScore > t.results[j].MatchScore
		})

		persistErr := s.persist(ctx, requestID, t.results)

		statuses = append(statuses, t.status)
		merged = append(merged, t.results...)

		ev := Event{
			Type:               EventProviderResults,
			ProviderID:         t.status.ProviderID,
			Results:            t.results,
			Status:             &t.status,
			ProvidersRemaining: remaining - 1,
		}
		select {
		case events <- ev:
		case <-parent.Done():
			return
		}

		if persistErr != nil {
			s.logger.Warn("stream batch persisted with errors",
				zap.String("request_id", requestID),
				zap.String("provider", t.status.ProviderID),
				zap.Error(persistErr),
			)
		}
	}

	Rank(merged)
	summary := &domain.AggregatedResult{
		Results:          merged,
		ProviderStatuses: statuses,
		Coverage:         domain.NewCoverage(statuses, s.cfg.CoverageThreshold),
		GeneratedAt:      time.Now().UTC(),
		UserMessage:      userMessage(merged, statuses),
	}
	s.metrics.ObserveResults(len(merged))
	s.metrics.ObserveCoverage(summary.Coverage.Ratio)

	select {
	case events <- Event{Type: EventComplete, Summary: summary}:
	case <-parent.Done():
	}
}
