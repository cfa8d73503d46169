package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/procurehq/sourcedex/internal/domain"
)

const defaultSearchAPIURL = "https://www.searchapi.io/api/v1/search"

// searchAPI queries searchapi.io's google_shopping engine. Same response
// family as SerpAPI, so both share the shopping normalizer.
type searchAPI struct {
	httpSource
	cfg Config
}

func newSearchAPI(cfg Config) *searchAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSearchAPIURL
	}
	return &searchAPI{httpSource: newHTTPSource(cfg.RateLimitPerSec), cfg: cfg}
}

func (p *searchAPI) ID() string { return p.cfg.ID }

func (p *searchAPI) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
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

func (p *searchAPI) Execute(ctx context.Context, query domain.ProviderQuery) (*Payload, error) {
	params := shoppingParams(query, p.cfg)
	params.Set("api_key", p.cfg.APIKey)

	body, err := p.getJSON(ctx, p.cfg.BaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("searchapi: %w", err)
	}

	items, err := extractItems(body, "shopping_results")
	if err != nil {
		return nil, fmt.Errorf("searchapi: %w", err)
	}

	return &Payload{
		ProviderID: p.cfg.ID,
		Family:     FamilyShopping,
		Currency:   p.cfg.DefaultCurrency,
		Items:      capItems(items, p.cfg.MaxResults),
	}, nil
}

// shoppingParams builds the query parameters shared by the google_shopping
// engines. Price filter hints ride along when the provider supports them.
func shoppingParams(query domain.ProviderQuery, cfg Config) url.Values {
	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", query.Query)
	params.Set("gl", orDefault(cfg.Country, "us"))
	params.Set("hl", orDefault(cfg.Language, "en"))
	if v, ok := query.Filters["min_price"]; ok {
		params.Set("min_price", v)
	}
	if v, ok := query.Filters["max_price"]; ok {
		params.Set("max_price", v)
	}
	return params
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
