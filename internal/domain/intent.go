// Package domain holds the core sourcing types shared across adapters,
// normalizers, the aggregator, and persistence.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SearchIntent is the structured description of what to source. It is built
// by an upstream collaborator (intent extraction) and passed by value into
// the engine; the engine never mutates it.
type SearchIntent struct {
	Query           string       `json:"query"`
	Category        string       `json:"product_category,omitempty"`
	CategoryPath    []string     `json:"category_path,omitempty"`
	ProductName     string       `json:"product_name,omitempty"`
	Brand           string       `json:"brand,omitempty"`
	Model           string       `json:"model,omitempty"`
	MinPrice        *float64     `json:"min_price,omitempty"`
	MaxPrice        *float64     `json:"max_price,omitempty"`
	Condition       string       `json:"condition,omitempty"`
	Features        FeatureMap   `json:"features,omitempty"`
	Keywords        FlexibleList `json:"keywords,omitempty"`
	ExcludeKeywords FlexibleList `json:"exclude_keywords,omitempty"`
	Confidence      float64      `json:"confidence,omitempty"`
	RawInput        string       `json:"raw_input,omitempty"`
}

// Validate checks the minimum contract for a caller-supplied intent and
// repairs what can be repaired: negative or inverted price bounds are
// treated as absent or swapped rather than rejected.
func (si *SearchIntent) Validate() error {
	if strings.TrimSpace(si.Query) == "" && strings.TrimSpace(si.RawInput) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidIntent)
	}
	if si.Query == "" {
		si.Query = si.RawInput
	}
	if si.MinPrice != nil && *si.MinPrice < 0 {
		si.MinPrice = nil
	}
	if si.MaxPrice != nil && *si.MaxPrice < 0 {
		si.MaxPrice = nil
	}
	if si.MinPrice != nil && si.MaxPrice != nil && *si.MinPrice > *si.MaxPrice {
		si.MinPrice, si.MaxPrice = si.MaxPrice, si.MinPrice
	}
	return nil
}

// FeatureMap holds structured constraint answers. Upstream payloads are
// loosely typed: a feature value may arrive as a scalar or a list, and
// malformed entries must be tolerated, not fatal.
type FeatureMap map[string][]string

// UnmarshalJSON accepts {"color": "red"}, {"color": ["red","blue"]}, and
// numeric/bool scalars, normalizing everything to string lists. Entries
// that cannot be interpreted are skipped.
func (f *FeatureMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = nil
		return nil
	}
	out := make(FeatureMap, len(raw))
	for key, val := range raw {
		if items := coerceStrings(val); len(items) > 0 {
			out[key] = items
		}
	}
	*f = out
	return nil
}

// FlexibleList decodes either a JSON array of scalars or a single
// comma-separated string into a string slice.
type FlexibleList []string

// UnmarshalJSON tolerates both "a, b" and ["a", "b"] forms.
func (l *FlexibleList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var items []string
		for _, part := range strings.Split(s, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		*l = items
		return nil
	}
	*l = coerceStrings(data)
	return nil
}

// coerceStrings converts a raw JSON scalar or array of scalars to strings.
func coerceStrings(data json.RawMessage) []string {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		var single any
		if err := json.Unmarshal(data, &single); err != nil {
			return nil
		}
		list = []any{single}
	}

	var out []string
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				out = append(out, trimmed)
			}
		case float64:
			out = append(out, fmt.Sprintf("%g", v))
		case bool:
			out = append(out, fmt.Sprintf("%t", v))
		}
	}
	return out
}
