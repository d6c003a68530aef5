// Package config loads the papertrade server configuration from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the papertrade server.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Market  MarketConfig  `yaml:"market"`
	Trading TradingConfig `yaml:"trading"`
	Rewards RewardsConfig `yaml:"rewards"`
	Logging Logging       `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// MarketConfig controls quote caching and the default watch list.
type MarketConfig struct {
	QuoteTTLSecs    int      `yaml:"quote_ttl_secs"`
	DefaultSymbols  []string `yaml:"default_symbols"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	FetchRetries    int      `yaml:"fetch_retries"`
}

// TradingConfig defines simulated account parameters.
type TradingConfig struct {
	StartingBalance float64 `yaml:"starting_balance"`
}

// RewardsConfig controls quiz-reward crediting.
type RewardsConfig struct {
	PointsPerCorrect int     `yaml:"points_per_correct"`
	BalancePerPoint  float64 `yaml:"balance_per_point"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with working defaults so a minimal
// config file is enough to run the server.
func applyDefaults(cfg *Config) {
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "papertrade.db"
	}
	if cfg.Storage.ArchiveDir == "" {
		cfg.Storage.ArchiveDir = "archive"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Market.QuoteTTLSecs == 0 {
		cfg.Market.QuoteTTLSecs = 60
	}
	if cfg.Market.RateLimitPerMin == 0 {
		cfg.Market.RateLimitPerMin = 200
	}
	if cfg.Market.FetchRetries == 0 {
		cfg.Market.FetchRetries = 3
	}
	if cfg.Trading.StartingBalance == 0 {
		cfg.Trading.StartingBalance = 100000
	}
	if cfg.Rewards.PointsPerCorrect == 0 {
		cfg.Rewards.PointsPerCorrect = 10
	}
	if cfg.Rewards.BalancePerPoint == 0 {
		cfg.Rewards.BalancePerPoint = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
