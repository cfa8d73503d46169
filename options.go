package sourcedex

import (
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/provider"
)

type clientConfig struct {
	addrs    []string
	username string
	password string
	database int

	keyPrefix          string
	comparisonCurrency string
	providerTimeout    time.Duration
	overallTimeout     time.Duration
	coverageThreshold  float64

	providers []provider.Config
	logger    *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:          "sourcedex:",
		comparisonCurrency: "USD",
		providerTimeout:    5 * time.Second,
		overallTimeout:     15 * time.Second,
		coverageThreshold:  0.5,
		logger:             nopLogger(),
	}
}

// Option configures a Client.
type Option func(*clientConfig)

// WithRedis sets the Redis addresses to connect to.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) { c.addrs = addrs }
}

// WithAuth sets the database username and password.
func WithAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithDatabase selects a Redis logical database.
func WithDatabase(db int) Option {
	return func(c *clientConfig) { c.database = db }
}

// WithKeyPrefix sets the storage key prefix. Default is "sourcedex:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithProvider registers one provider adapter. Providers run in the order
// they are registered; that order also breaks merge ties.
func WithProvider(cfg ProviderConfig) Option {
	return func(c *clientConfig) { c.providers = append(c.providers, cfg) }
}

// WithComparisonCurrency sets the currency all prices are ranked in.
// Default is USD.
func WithComparisonCurrency(code string) Option {
	return func(c *clientConfig) { c.comparisonCurrency = code }
}

// WithTimeouts sets the per-provider deadline and the overall search
// deadline. Defaults are 5s and 15s.
func WithTimeouts(perProvider, overall time.Duration) Option {
	return func(c *clientConfig) {
		c.providerTimeout = perProvider
		c.overallTimeout = overall
	}
}

// WithCoverageThreshold sets the fraction of providers that must succeed
// for a search to count as covered. Default is 0.5.
func WithCoverageThreshold(t float64) Option {
	return func(c *clientConfig) { c.coverageThreshold = t }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
