package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderSet reports how many search providers are wired.
type ProviderSet interface {
	Count() int
}
