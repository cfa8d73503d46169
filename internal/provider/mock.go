package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/procurehq/sourcedex/internal/domain"
)

var mockMerchants = []string{
	"Amazon", "Walmart", "Target", "eBay", "Best Buy", "Costco",
}

// mock is a no-network provider producing deterministic, query-seeded
// fixtures in the shopping family shape. Used in local/dev config and as
// an always-available fallback source.
type mock struct {
	cfg Config
}

func newMock(cfg Config) *mock {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &mock{cfg: cfg}
}

func (p *mock) ID() string { return p.cfg.ID }

func (p *mock) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	filters := map[string]string{}
	priceFilters(intent, filters)
	return domain.ProviderQuery{
		ProviderID: p.cfg.ID,
		Query:      buildQueryString(intent),
		Filters:    filters,
		Metadata:   map[string]string{"fixture": "true"},
	}
}

func (p *mock) Execute(_ context.Context, query domain.ProviderQuery) (*Payload, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(query.Query))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // fixtures, not crypto

	count := 5 + rng.Intn(p.cfg.MaxResults)
	items := make([]json.RawMessage, 0, count)
	for i := 0; i < count; i++ {
		price := 15 + rng.Float64()*135
		item := map[string]any{
			"title":     fmt.Sprintf("%s - Style %c Edition", query.Query, 'A'+rune(i%26)),
			"price":     fmt.Sprintf("$%.2f", price),
			"seller":    mockMerchants[rng.Intn(len(mockMerchants))],
			"link":      fmt.Sprintf("https://example.com/product/%d?utm_source=mock", h.Sum64()+uint64(i)),
			"thumbnail": fmt.Sprintf("https://picsum.photos/seed/%d/300/300", h.Sum64()+uint64(i)),
			"rating":    float64(int((3.5+rng.Float64()*1.5)*10)) / 10,
			"reviews":   10 + rng.Intn(4990),
			"delivery":  "Free shipping",
		}
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("mock: %w", err)
		}
		items = append(items, raw)
	}

	return &Payload{
		ProviderID: p.cfg.ID,
		Family:     FamilyShopping,
		Currency:   p.cfg.DefaultCurrency,
		Items:      items,
	}, nil
}
