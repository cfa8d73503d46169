package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procurehq/sourcedex/internal/domain"
)

const defaultSerpAPIURL = "https://serpapi.com/search"

// serpAPI queries SerpAPI's google_shopping engine.
type serpAPI struct {
	httpSource
	cfg Config
}

func newSerpAPI(cfg Config) *serpAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpAPIURL
	}
	return &serpAPI{httpSource: newHTTPSource(cfg.RateLimitPerSec), cfg: cfg}
}

func (p *serpAPI) ID() string { return p.cfg.ID }

func (p *serpAPI) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	filters := map[string]string{}
	priceFilters(intent, filters)

	return domain.ProviderQuery{
		ProviderID: p.cfg.ID,
		Query:      buildQueryString(intent),
		Filters:    filters,
		Metadata: map[string]string{
			"engine":   "google_shopping",
			"category": intent.Category,
		},
	}
}

func (p *serpAPI) Execute(ctx context.Context, query domain.ProviderQuery) (*Payload, error) {
	params := shoppingParams(query, p.cfg)
	params.Set("api_key", p.cfg.APIKey)

	body, err := p.getJSON(ctx, p.cfg.BaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}

	items, err := extractItems(body, "shopping_results")
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}

	return &Payload{
		ProviderID: p.cfg.ID,
		Family:     FamilyShopping,
		Currency:   p.cfg.DefaultCurrency,
		Items:      capItems(items, p.cfg.MaxResults),
	}, nil
}

// extractItems pulls the named top-level array out of a provider response.
// A missing key is an empty result, not an error; a non-array value is a
// malformed top-level response and fails the provider call.
func extractItems(body []byte, key string) ([]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", key, err)
	}
	return items, nil
}

func capItems(items []json.RawMessage, max int) []json.RawMessage {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
