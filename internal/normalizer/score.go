package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/procurehq/sourcedex/internal/domain"
)

// matchScore estimates how well a listing fits the intent on a 0..1 scale.
// Title word overlap carries the most weight; the remaining signals reward
// listing completeness (image, rating, reviews, price).
func matchScore(intent domain.SearchIntent, res domain.NormalizedResult) float64 {
	score := 0.4 * titleOverlap(intent.Query, res.Title)
	if res.ImageURL != "" {
		score += 0.15
	}
	if res.Rating > 0 {
		score += 0.15
	}
	if res.ReviewsCount > 0 {
		score += 0.15
	}
	if res.Price.Amount > 0 {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}

func titleOverlap(query, title string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	titleWords := wordSet(title)
	matched := 0
	for w := range queryWords {
		if _, ok := titleWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

type provenance struct {
	SourceProvider  string   `json:"source_provider"`
	MatchedFeatures []string `json:"matched_features,omitempty"`
}

// buildProvenance records why a listing surfaced, in user-facing terms.
func buildProvenance(res domain.NormalizedResult) []byte {
	p := provenance{SourceProvider: res.ProviderID}
	if res.Rating > 4.0 {
		p.MatchedFeatures = append(p.MatchedFeatures, fmt.Sprintf("Highly rated (%.1f)", res.Rating))
	}
	if res.Availability != "" {
		p.MatchedFeatures = append(p.MatchedFeatures, res.Availability)
	}
	if res.ReviewsCount > 100 {
		p.MatchedFeatures = append(p.MatchedFeatures, fmt.Sprintf("Popular (%d reviews)", res.ReviewsCount))
	}
	if res.MatchScore > 0.7 {
		p.MatchedFeatures = append(p.MatchedFeatures, "Strong match for your search")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return raw
}
