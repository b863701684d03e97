package model

import "time"

// Config is the complete clientscore configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Ingest       IngestConfig       `yaml:"ingest" mapstructure:"ingest"`
	Gateway      GatewayConfig      `yaml:"gateway" mapstructure:"gateway"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	MaxPageSize    int    `yaml:"max_page_size" mapstructure:"max_page_size"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"` // 0 = unlimited
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, sqlite
	Path   string `yaml:"path" mapstructure:"path"`     // SQLite file
}

// IngestConfig configures the startup CSV load
type IngestConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty = bundled dataset
}

// GatewayConfig configures the external scoring service client
type GatewayConfig struct {
	PredictURL   string        `yaml:"predict_url" mapstructure:"predict_url"`
	ExplainURL   string        `yaml:"explain_url" mapstructure:"explain_url"`
	WrapFeatures bool          `yaml:"wrap_features" mapstructure:"wrap_features"` // send {"features": {...}}
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig configures the record cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig configures batch scoring
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles batch calls to the scoring service
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			MaxPageSize: 200,
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   "clientscore.db",
		},
		Gateway: GatewayConfig{
			PredictURL:   "http://localhost:8000/predict",
			ExplainURL:   "http://localhost:8000/shap",
			WrapFeatures: true,
			Timeout:      10 * time.Second,
			UserAgent:    "clientscore/0.1",
			MaxBodyBytes: 1 << 20,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 20,
			BurstSize:         5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
