package domain

import "time"

// Price is an amount in an explicit currency, rounded to two decimals.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NormalizedResult is the canonical listing shape produced by normalizers.
// CanonicalURL + ProviderID are unique within one request's result set and
// form the listing upsert key together with the request id.
type NormalizedResult struct {
	Title            string  `json:"title"`
	Price            Price   `json:"price"`
	PriceOriginal    float64 `json:"price_original,omitempty"`
	CurrencyOriginal string  `json:"currency_original,omitempty"`
	CanonicalURL     string  `json:"canonical_url"`
	RawURL           string  `json:"url"`
	ProviderID       string  `json:"provider_id"`
	MerchantName     string  `json:"merchant_name,omitempty"`
	MerchantDomain   string  `json:"merchant_domain,omitempty"`
	Availability     string  `json:"availability,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	ReviewsCount     int     `json:"reviews_count,omitempty"`
	ImageURL         string  `json:"image_url,omitempty"`
	MatchScore       float64 `json:"match_score"`
	Provenance       []byte  `json:"provenance,omitempty"`
}

// Coverage reports how many of the queried providers contributed at least
// one usable result. Informational only: low coverage never fails a search.
type Coverage struct {
	ProvidersWithResults int     `json:"providers_with_results"`
	ProvidersQueried     int     `json:"providers_queried"`
	Ratio                float64 `json:"ratio"`
	MeetsThreshold       bool    `json:"meets_threshold"`
}

// NewCoverage computes coverage from provider statuses against a threshold.
func NewCoverage(statuses []ProviderStatus, threshold float64) Coverage {
	cov := Coverage{ProvidersQueried: len(statuses)}
	for _, s := range statuses {
		if s.Succeeded() && s.ResultCount > 0 {
			cov.ProvidersWithResults++
		}
	}
	if cov.ProvidersQueried > 0 {
		cov.Ratio = float64(cov.ProvidersWithResults) / float64(cov.ProvidersQueried)
	}
	cov.MeetsThreshold = cov.Ratio >= threshold
	return cov
}

// AggregatedResult is the merged, ranked outcome of one search invocation.
type AggregatedResult struct {
	Results          []NormalizedResult `json:"results"`
	ProviderStatuses []ProviderStatus   `json:"provider_statuses"`
	Coverage         Coverage           `json:"coverage"`
	GeneratedAt      time.Time          `json:"generated_at"`
	UserMessage      string             `json:"user_message,omitempty"`
}
