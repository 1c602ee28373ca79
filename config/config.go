package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Scrape   ScrapeConfig
	Matching MatchingConfig
	Mail     MailConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds catalog storage configuration
type CatalogConfig struct {
	Type string `mapstructure:"type"` // "sqlite" or "memory"
	Path string `mapstructure:"path"`
}

// ScrapeConfig holds menu scraping configuration
type ScrapeConfig struct {
	RequestInterval time.Duration `mapstructure:"request_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	BackfillLimit   int           `mapstructure:"backfill_limit"`
	// ForceStationUpdate overwrites a stored station with the scraped
	// one when they disagree, instead of keeping the first seen.
	ForceStationUpdate bool `mapstructure:"force_station_update"`
}

// MatchingConfig holds order matching configuration
type MatchingConfig struct {
	// RecordUnmatched persists order lines that resolve to nothing.
	RecordUnmatched bool `mapstructure:"record_unmatched"`
}

// MailConfig holds order email intake configuration
type MailConfig struct {
	// FilterEnabled rejects mail that doesn't look like an order before
	// any parsing happens.
	FilterEnabled bool `mapstructure:"filter_enabled"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/platelog/")

	// Environment variable settings
	v.SetEnvPrefix("PLATELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalog defaults
	v.SetDefault("catalog.type", "sqlite")
	v.SetDefault("catalog.path", "platelog.db")

	// Scrape defaults
	v.SetDefault("scrape.request_interval", "300ms")
	v.SetDefault("scrape.fetch_timeout", "30s")
	v.SetDefault("scrape.backfill_limit", 200)
	v.SetDefault("scrape.force_station_update", false)

	// Matching defaults
	v.SetDefault("matching.record_unmatched", true)

	// Mail defaults
	v.SetDefault("mail.filter_enabled", true)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.Type != "sqlite" && config.Catalog.Type != "memory" {
		return fmt.Errorf("catalog type must be 'sqlite' or 'memory', got: %s", config.Catalog.Type)
	}

	if config.Catalog.Type == "sqlite" && config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required when catalog type is 'sqlite' (set PLATELOG_CATALOG_PATH)")
	}

	if config.Scrape.RequestInterval < 0 {
		return fmt.Errorf("scrape request interval must not be negative, got: %s", config.Scrape.RequestInterval)
	}

	if config.Scrape.BackfillLimit <= 0 {
		return fmt.Errorf("scrape backfill limit must be positive, got: %d", config.Scrape.BackfillLimit)
	}

	return nil
}
