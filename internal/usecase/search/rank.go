package search

import (
	"sort"

	"github.com/procurehq/sourcedex/internal/domain"
)

// Rank orders merged results for display: cheapest first in the comparison
// currency, then best match, with provider id and canonical URL as final
// tie-breakers so equal listings always land in the same order.
func Rank(results []domain.NormalizedResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Price.Amount != b.Price.Amount {
			return a.Price.Amount < b.Price.Amount
		}
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.ProviderID != b.ProviderID {
			return a.ProviderID < b.ProviderID
		}
		return a.CanonicalURL < b.CanonicalURL
	})
}
