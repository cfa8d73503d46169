package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the sourcedex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	CORS     CORSConfig     `yaml:"cors"`
	Sourcing SourcingConfig `yaml:"sourcing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SourcingConfig holds search orchestration settings.
type SourcingConfig struct {
	ProviderTimeoutSec    int                       `yaml:"provider_timeout_sec"`
	OverallTimeoutSec     int                       `yaml:"overall_timeout_sec"`
	CoverageThreshold     float64                   `yaml:"coverage_threshold"`
	ComparisonCurrency    string                    `yaml:"comparison_currency"`
	MaxResultsPerProvider int                       `yaml:"max_results_per_provider"`
	CacheTTLSec           int                       `yaml:"cache_ttl_sec"` // 0 disables the payload cache
	Providers             map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds one search provider's settings.
type ProviderConfig struct {
	Kind            string  `yaml:"kind"` // serpapi, searchapi, rainforest, googlecse, mock
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	EngineID        string  `yaml:"engine_id"` // googlecse cx
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	DefaultCurrency string  `yaml:"default_currency"`
	Country         string  `yaml:"country"`
	Language        string  `yaml:"language"`
	Enabled         *bool   `yaml:"enabled"` // nil means enabled
}

// IsEnabled reports whether the provider should be wired.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

var providerKinds = map[string]struct{}{
	"serpapi":    {},
	"searchapi":  {},
	"rainforest": {},
	"googlecse":  {},
	"mock":       {},
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Streaming responses stay open across the whole search window.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "sourcedex:"
	}
	if c.Sourcing.ProviderTimeoutSec <= 0 {
		c.Sourcing.ProviderTimeoutSec = 5
	}
	if c.Sourcing.OverallTimeoutSec <= 0 {
		c.Sourcing.OverallTimeoutSec = 15
	}
	if c.Sourcing.CoverageThreshold <= 0 {
		c.Sourcing.CoverageThreshold = 0.5
	}
	if c.Sourcing.ComparisonCurrency == "" {
		c.Sourcing.ComparisonCurrency = "USD"
	}
	if c.Sourcing.MaxResultsPerProvider <= 0 {
		c.Sourcing.MaxResultsPerProvider = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Sourcing.ProviderTimeoutSec > c.Sourcing.OverallTimeoutSec {
		return fmt.Errorf(
			"sourcing.provider_timeout_sec (%d) must not exceed sourcing.overall_timeout_sec (%d)",
			c.Sourcing.ProviderTimeoutSec, c.Sourcing.OverallTimeoutSec,
		)
	}
	if c.Sourcing.CoverageThreshold > 1 {
		return fmt.Errorf("sourcing.coverage_threshold must be in (0, 1], got %g", c.Sourcing.CoverageThreshold)
	}
	for name, p := range c.Sourcing.Providers {
		if _, ok := providerKinds[p.Kind]; !ok {
			return fmt.Errorf("sourcing.providers.%s.kind %q is not supported", name, p.Kind)
		}
		if p.Kind == "googlecse" && p.IsEnabled() && p.EngineID == "" {
			return fmt.Errorf("sourcing.providers.%s.engine_id is required for googlecse", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
