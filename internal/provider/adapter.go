// Package provider defines the adapter contract for external listing
// sources and the executor that isolates their failures. New sources are
// added by implementing Adapter and registering it in the composition
// root; the aggregator never changes.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/procurehq/sourcedex/internal/domain"
)

// Family identifies a raw payload schema shared by one or more providers.
// Normalizers are selected by family, not by provider id.
type Family string

const (
	FamilyShopping   Family = "shopping"   // SerpAPI / SearchAPI google_shopping
	FamilyRainforest Family = "rainforest" // Rainforest Amazon search
	FamilyCSE        Family = "cse"        // Google Custom Search
)

// Payload is a provider's raw response: the untyped item list plus enough
// context to pick a normalizer. It is consumed by exactly one normalizer
// call and then discarded.
type Payload struct {
	ProviderID string
	Family     Family
	Currency   string // provider's stated/default currency, may be empty
	Items      []json.RawMessage
}

// Adapter translates a canonical search intent into one source's query
// shape and executes it.
//
// BuildQuery is pure and must not fail: constraints the source cannot
// express are silently dropped. Execute performs the network call and may
// fail with a source-specific error; it must honor ctx cancellation.
type Adapter interface {
	ID() string
	BuildQuery(intent domain.SearchIntent) domain.ProviderQuery
	Execute(ctx context.Context, query domain.ProviderQuery) (*Payload, error)
}

// Config holds the settings for one configured adapter instance.
type Config struct {
	ID              string
	Kind            string
	APIKey          string
	BaseURL         string
	EngineID        string // googlecse search engine id
	DefaultCurrency string
	RateLimitPerSec float64
	MaxResults      int
	Country         string
	Language        string
}

// New builds an adapter from configuration.
func New(cfg Config) (Adapter, error) {
	switch cfg.Kind {
	case "serpapi":
		return newSerpAPI(cfg), nil
	case "searchapi":
		return newSearchAPI(cfg), nil
	case "rainforest":
		return newRainforest(cfg), nil
	case "googlecse":
		return newGoogleCSE(cfg), nil
	case "mock":
		return newMock(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// buildQueryString assembles the free-text query a provider receives:
// brand, model, product name, category, keywords, feature values, and the
// raw input, deduplicated case-insensitively in that priority order.
func buildQueryString(intent domain.SearchIntent) string {
	var terms []string
	if intent.Brand != "" {
		terms = append(terms, intent.Brand)
	}
	if intent.Model != "" {
		terms = append(terms, intent.Model)
	}
	if intent.ProductName != "" {
		terms = append(terms, intent.ProductName)
	}
	if intent.Category != "" {
		terms = append(terms, intent.Category)
	}
	terms = append(terms, intent.Keywords...)
	for _, values := range intent.Features {
		terms = append(terms, values...)
	}
	if intent.Query != "" {
		terms = append(terms, intent.Query)
	}

	deduped := dedupeTerms(terms)
	if len(deduped) == 0 {
		return intent.RawInput
	}
	return strings.Join(deduped, " ")
}

func dedupeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	var out []string
	for _, term := range terms {
		cleaned := strings.TrimSpace(term)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// priceFilters forwards min/max price constraints as a provider-side hint.
// The normalizer remains the single authority for range enforcement.
func priceFilters(intent domain.SearchIntent, filters map[string]string) {
	if intent.MinPrice != nil {
		filters["min_price"] = strconv.FormatFloat(*intent.MinPrice, 'f', -1, 64)
	}
	if intent.MaxPrice != nil {
		filters["max_price"] = strconv.FormatFloat(*intent.MaxPrice, 'f', -1, 64)
	}
	if intent.Condition != "" && intent.Condition != "any" {
		filters["condition"] = intent.Condition
	}
}
