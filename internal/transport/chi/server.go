// Package chi exposes the sourcing API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/domain"
	logpkg "github.com/procurehq/sourcedex/internal/logger"
	healthuc "github.com/procurehq/sourcedex/internal/usecase/health"
	searchuc "github.com/procurehq/sourcedex/internal/usecase/search"
)

// RequestReader loads the persisted plan for a request.
type RequestReader interface {
	Get(ctx context.Context, requestID string) (domain.SearchIntent, domain.QueryMap, error)
}

// ListingReader loads persisted listings for a request.
type ListingReader interface {
	ListByRequest(ctx context.Context, requestID string) ([]domain.NormalizedResult, error)
}

// Server implements the HTTP API on a chi router.
type Server struct {
	search        *searchuc.Service
	requests      RequestReader
	listings      ListingReader
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	requests RequestReader,
	listings ListingReader,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		requests: requests,
		listings: listings,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidIntent, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRequestNotFound, http.StatusNotFound, codeRequestNotFound),
		sentinelHandler(domain.ErrNoProviders, http.StatusBadRequest, codeNoProviders),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrPersistence, http.StatusBadGateway, codePersistenceFailed),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/requests", func(r chi.Router) {
		r.Post("/", s.CreateRequest)
		r.Route("/{requestID}", func(r chi.Router) {
			r.Get("/", s.GetRequest)
			r.Get("/listings", s.ListListings)
			r.Post("/search", s.Search)
			r.Post("/search/stream", s.SearchStream)
		})
	})
}

type searchRequestBody struct {
	Intent    domain.SearchIntent `json:"search_intent"`
	Providers []string            `json:"providers,omitempty"`
}

type searchResponse struct {
	RequestID string                    `json:"request_id"`
	Results   []domain.NormalizedResult `json:"results"`
	Statuses  []domain.ProviderStatus   `json:"provider_statuses"`
	Coverage  domain.Coverage           `json:"coverage"`
	Message   string                    `json:"user_message,omitempty"`
	Persisted bool                      `json:"persisted"`
}

// CreateRequest handles POST /v1/requests: mints a request id for a new
// sourcing session.
func (s *Server) CreateRequest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{
		"request_id": uuid.NewString(),
	})
}

// Search handles POST /v1/requests/{requestID}/search: runs all providers
// to completion and returns the merged, ranked aggregate.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.requestID(w, r)
	if !ok {
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	agg, err := s.search.Search(r.Context(), requestID, body.Intent, body.Providers)
	if err != nil && agg == nil {
		s.handleDomainError(w, r, err)
		return
	}
	// Results survive a persistence failure; the response flags it instead
	// of discarding the search.
	persisted := err == nil
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		RequestID: requestID,
		Results:   agg.Results,
		Statuses:  agg.ProviderStatuses,
		Coverage:  agg.Coverage,
		Message:   agg.UserMessage,
		Persisted: persisted,
	})
}

// GetRequest handles GET /v1/requests/{requestID}: returns the recorded
// intent and provider query plan.
func (s *Server) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.requestID(w, r)
	if !ok {
		return
	}

	intent, queries, err := s.requests.Get(r.Context(), requestID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":         requestID,
		"search_intent":      intent,
		"provider_query_map": queries,
	})
}

// ListListings handles GET /v1/requests/{requestID}/listings: returns all
// persisted listings for the request in display rank order.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.requestID(w, r)
	if !ok {
		return
	}

	results, err := s.listings.ListByRequest(r.Context(), requestID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	searchuc.Rank(results)

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": requestID,
		"results":    results,
		"count":      len(results),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) requestID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "requestID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "request id must be a UUID")
		return "", false
	}
	return id.String(), true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
