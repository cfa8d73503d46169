package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/procurehq/sourcedex/internal/domain"
)

const defaultGoogleCSEURL = "https://www.googleapis.com/customsearch/v1"

// googleCSE queries Google Custom Search. CSE has no shopping filters, so
// price constraints are dropped at query build time and enforced only by
// the normalizer.
type googleCSE struct {
	httpSource
	cfg Config
}

func newGoogleCSE(cfg Config) *googleCSE {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleCSEURL
	}
	return &googleCSE{httpSource: newHTTPSource(cfg.RateLimitPerSec), cfg: cfg}
}

func (p *googleCSE) ID() string { return p.cfg.ID }

func (p *googleCSE) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	return domain.ProviderQuery{
		ProviderID: p.cfg.ID,
		Query:      buildQueryString(intent),
		Filters:    map[string]string{},
		Metadata: map[string]string{
			"cx":       p.cfg.EngineID,
			"category": intent.Category,
		},
	}
}

func (p *googleCSE) Execute(ctx context.Context, query domain.ProviderQuery) (*Payload, error) {
	num := p.cfg.MaxResults
	if num <= 0 || num > 10 {
		num = 10 // CSE caps page size at 10
	}

	params := url.Values{}
	params.Set("key", p.cfg.APIKey)
	params.Set("cx", p.cfg.EngineID)
	params.Set("q", query.Query)
	params.Set("num", strconv.Itoa(num))

	body, err := p.getJSON(ctx, p.cfg.BaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("googlecse: %w", err)
	}

	items, err := extractItems(body, "items")
	if err != nil {
		return nil, fmt.Errorf("googlecse: %w", err)
	}

	return &Payload{
		ProviderID: p.cfg.ID,
		Family:     FamilyCSE,
		Currency:   p.cfg.DefaultCurrency,
		Items:      items,
	}, nil
}
