package domain

import "time"

// ProviderState classifies the outcome of one provider invocation.
type ProviderState string

const (
	StateSuccess     ProviderState = "success"
	StateTimeout     ProviderState = "timeout"
	StateError       ProviderState = "error"
	StateExhausted   ProviderState = "exhausted"
	StateRateLimited ProviderState = "rate_limited"
)

// ProviderStatus records the outcome of a single executor invocation.
// Immutable once finalized; one per (search, provider).
type ProviderStatus struct {
	ProviderID  string        `json:"provider_id"`
	State       ProviderState `json:"state"`
	Latency     time.Duration `json:"-"`
	LatencyMS   int64         `json:"latency_ms"`
	ResultCount int           `json:"result_count"`
	Message     string        `json:"message,omitempty"`
}

// Succeeded reports whether the provider returned a usable payload.
func (s ProviderStatus) Succeeded() bool { return s.State == StateSuccess }
