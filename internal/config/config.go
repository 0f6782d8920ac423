// Package config provides configuration management.
package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"hostcost/internal/logging"
)

// Config is the main application configuration. Values come from the
// config file and may be overridden by HOSTCOST_* environment variables.
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Archive contains snapshot archive configuration
	Archive ArchiveConfig `json:"archive"`

	// Estimate contains estimation defaults
	Estimate EstimateConfig `json:"estimate"`

	// Cache contains composition cache configuration
	Cache CacheConfig `json:"cache"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// ArchiveConfig contains snapshot archive settings
type ArchiveConfig struct {
	// Directory is where pricing snapshots are archived
	Directory string `json:"directory" env:"HOSTCOST_ARCHIVE_DIR"`

	// OverridesDirectory is where override collections are kept
	OverridesDirectory string `json:"overrides_directory" env:"HOSTCOST_OVERRIDES_DIR"`
}

// EstimateConfig contains estimation defaults
type EstimateConfig struct {
	// Currency is the display currency
	Currency string `json:"currency" env:"HOSTCOST_CURRENCY"`

	// PreferredProviders is the default provider preference order
	PreferredProviders []string `json:"preferred_providers" env:"HOSTCOST_PROVIDERS" envSeparator:","`

	// ShowAssumptions includes assumption notes in output
	ShowAssumptions bool `json:"show_assumptions" env:"HOSTCOST_SHOW_ASSUMPTIONS"`
}

// CacheConfig contains composition cache settings
type CacheConfig struct {
	// Enabled enables memoization of composed pricing
	Enabled bool `json:"enabled" env:"HOSTCOST_CACHE"`

	// MaxEntries is the maximum number of cached compositions
	MaxEntries int64 `json:"max_entries" env:"HOSTCOST_CACHE_MAX_ENTRIES"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".hostcost")

	return &Config{
		Version: "1.0",
		Archive: ArchiveConfig{
			Directory:          filepath.Join(base, "snapshots"),
			OverridesDirectory: filepath.Join(base, "overrides"),
		},
		Estimate: EstimateConfig{
			Currency:           "USD",
			PreferredProviders: []string{"vercel", "netlify", "render"},
			ShowAssumptions:    true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 256,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file and applies environment
// overrides. A missing file yields the defaults; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
