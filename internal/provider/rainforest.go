package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/procurehq/sourcedex/internal/domain"
)

const defaultRainforestURL = "https://api.rainforestapi.com/request"

// rainforest queries the Rainforest API (Amazon product search).
type rainforest struct {
	httpSource
	cfg Config
}

func newRainforest(cfg Config) *rainforest {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRainforestURL
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &rainforest{httpSource: newHTTPSource(cfg.RateLimitPerSec), cfg: cfg}
}

func (p *rainforest) ID() string { return p.cfg.ID }

func (p *rainforest) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	filters := map[string]string{}
	priceFilters(intent, filters)

	return domain.ProviderQuery{
		ProviderID: p.cfg.ID,
		Query:      buildQueryString(intent),
		Filters:    filters,
		Metadata: map[string]string{
			"amazon_domain": "amazon.com",
			"category":      intent.Category,
		},
	}
}

func (p *rainforest) Execute(ctx context.Context, query domain.ProviderQuery) (*Payload, error) {
	params := url.Values{}
	params.Set("api_key", p.cfg.APIKey)
	params.Set("type", "search")
	params.Set("amazon_domain", query.Metadata["amazon_domain"])
	params.Set("search_term", query.Query)

	body, err := p.getJSON(ctx, p.cfg.BaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("rainforest: %w", err)
	}

	items, err := extractItems(body, "search_results")
	if err != nil {
		return nil, fmt.Errorf("rainforest: %w", err)
	}

	return &Payload{
		ProviderID: p.cfg.ID,
		Family:     FamilyRainforest,
		Currency:   p.cfg.DefaultCurrency,
		Items:      capItems(items, p.cfg.MaxResults),
	}, nil
}
