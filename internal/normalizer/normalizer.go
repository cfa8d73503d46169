// Package normalizer converts provider-specific raw payloads into the
// canonical listing shape. It is the single authority for price-range
// enforcement and currency normalization: adapters only forward constraint
// hints, normalizers decide what survives.
package normalizer

import (
	"encoding/json"

	"github.com/procurehq/sourcedex/internal/canonical"
	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

// Item is the intermediate shape a family parser extracts from one raw
// provider item before the shared pipeline runs.
type Item struct {
	Title     string
	Price     float64
	PriceSet  bool
	PriceText string
	Currency  string
	URL       string
	Merchant  string
	ImageURL  string
	Rating    float64
	Reviews   int
	Shipping  string
}

// Parser extracts Items from one provider family's raw payload format.
// Returning ok=false drops the item without failing the batch.
type Parser interface {
	Family() provider.Family
	Parse(raw json.RawMessage) (Item, bool)
}

// Registry dispatches payloads to the parser for their family and applies
// the shared normalization pipeline. Unknown families fall back to the
// generic parser.
type Registry struct {
	parsers    map[provider.Family]Parser
	fallback   Parser
	comparison string
}

// NewRegistry builds a registry with all built-in family parsers.
// comparisonCurrency is the target currency for converted prices.
func NewRegistry(comparisonCurrency string) *Registry {
	code := canonical.NormalizeCode(comparisonCurrency)
	if code == "" {
		code = "USD"
	}
	r := &Registry{
		parsers:    make(map[provider.Family]Parser),
		fallback:   genericParser{},
		comparison: code,
	}
	for _, p := range []Parser{shoppingParser{}, rainforestParser{}, cseParser{}} {
		r.parsers[p.Family()] = p
	}
	return r
}

// Normalize converts one provider payload into ranked-ready listings.
// Items with no usable price are dropped; items outside the intent's price
// range are dropped; duplicate canonical URLs within the payload keep their
// first occurrence. Input order is otherwise preserved.
func (r *Registry) Normalize(payload *provider.Payload, intent domain.SearchIntent) []domain.NormalizedResult {
	if payload == nil || len(payload.Items) == 0 {
		return nil
	}

	parser, ok := r.parsers[payload.Family]
	if !ok {
		parser = r.fallback
	}

	seen := make(map[string]struct{}, len(payload.Items))
	out := make([]domain.NormalizedResult, 0, len(payload.Items))

	for _, raw := range payload.Items {
		item, ok := parser.Parse(raw)
		if !ok {
			continue
		}
		res, ok := r.build(item, payload, intent)
		if !ok {
			continue
		}
		if _, dup := seen[res.CanonicalURL]; dup {
			continue
		}
		seen[res.CanonicalURL] = struct{}{}
		out = append(out, res)
	}
	return out
}

func (r *Registry) build(item Item, payload *provider.Payload, intent domain.SearchIntent) (domain.NormalizedResult, bool) {
	if item.Title == "" || item.URL == "" {
		return domain.NormalizedResult{}, false
	}

	amount := item.Price
	if !item.PriceSet {
		parsed, ok := canonical.ParsePrice(item.PriceText)
		if !ok {
			return domain.NormalizedResult{}, false
		}
		amount = parsed
	}
	if amount <= 0 {
		return domain.NormalizedResult{}, false
	}

	// Currency resolution order: item's own code, provider default, then
	// the comparison currency.
	currency := canonical.NormalizeCode(item.Currency)
	if currency == "" {
		currency = canonical.NormalizeCode(payload.Currency)
	}
	if currency == "" {
		currency = r.comparison
	}

	price := domain.Price{Amount: canonical.Round2(amount), Currency: currency}
	var priceOriginal float64
	var currencyOriginal string
	if converted, ok := canonical.Convert(amount, currency, r.comparison); ok {
		if currency != r.comparison {
			priceOriginal = canonical.Round2(amount)
			currencyOriginal = currency
		}
		price = domain.Price{Amount: converted, Currency: r.comparison}
	}

	if intent.MinPrice != nil && price.Amount < *intent.MinPrice {
		return domain.NormalizedResult{}, false
	}
	if intent.MaxPrice != nil && price.Amount > *intent.MaxPrice {
		return domain.NormalizedResult{}, false
	}

	canonicalURL := canonical.URL(item.URL)
	if canonicalURL == "" {
		return domain.NormalizedResult{}, false
	}

	res := domain.NormalizedResult{
		Title:            item.Title,
		Price:            price,
		PriceOriginal:    priceOriginal,
		CurrencyOriginal: currencyOriginal,
		CanonicalURL:     canonicalURL,
		RawURL:           item.URL,
		ProviderID:       payload.ProviderID,
		MerchantName:     item.Merchant,
		MerchantDomain:   canonical.MerchantDomain(item.URL),
		Availability:     item.Shipping,
		Rating:           item.Rating,
		ReviewsCount:     item.Reviews,
		ImageURL:         item.ImageURL,
	}
	res.MatchScore = matchScore(intent, res)
	res.Provenance = buildProvenance(res)
	return res, true
}
