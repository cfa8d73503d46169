package domain

// ProviderQuery is the provider-specific translation of a SearchIntent.
// Filters carry constraints the provider can enforce server-side; Metadata
// carries audit context. The map is retained only for persistence and
// debugging (the provider query map on the request record).
type ProviderQuery struct {
	ProviderID string            `json:"provider_id"`
	Query      string            `json:"query"`
	Filters    map[string]string `json:"filters,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// QueryMap collects the per-provider queries produced for one search.
type QueryMap map[string]ProviderQuery

// Add registers a query under its provider id.
func (m QueryMap) Add(q ProviderQuery) {
	m[q.ProviderID] = q
}
