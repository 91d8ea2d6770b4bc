// Package config loads datashelf configuration from a config directory
// using Viper, creating a commented default config.yaml on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeyCacheTTL        = "cache_ttl"
	cfgKeySampleLimit     = "sample_limit"
	cfgKeyDefaultRowLimit = "default_row_limit"
	cfgKeyMaxRowLimit     = "max_row_limit"
	cfgKeyFacetTopN       = "facet_top_n"

	defaultBackend = types.BackendSQLite
)

// defaultConfigYAML is written to config.yaml on first run so operators
// have a commented file to edit.
const defaultConfigYAML = `# datashelf configuration

# Backend selection
backend: sqlite

# Data directory (defaults to the config directory)
# data_dir:

# Aggregate cache TTL in seconds; negative disables caching
# cache_ttl: 60

# Row sample size for key discovery
# sample_limit: 1000

# Raw row listing limits
# default_row_limit: 5000
# max_row_limit: 50000

# Top-value list size per facet field
# facet_top_n: 50
`

// Load reads config.yaml from configDir into a types.Config. The config
// directory and a default config.yaml are created on first run; a
// missing config.yaml yields the defaults.
func Load(configDir string) (types.Config, error) {
	v, err := loadViper(configDir)
	if err != nil {
		return types.Config{}, err
	}

	cfg := types.Config{
		Backend:         v.GetString(cfgKeyBackend),
		DataDir:         v.GetString(cfgKeyDataDir),
		CacheTTLSeconds: v.GetInt(cfgKeyCacheTTL),
		SampleLimit:     v.GetInt(cfgKeySampleLimit),
		DefaultRowLimit: v.GetInt(cfgKeyDefaultRowLimit),
		MaxRowLimit:     v.GetInt(cfgKeyMaxRowLimit),
		FacetTopN:       v.GetInt(cfgKeyFacetTopN),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadViper reads config.yaml from configDir. A missing config.yaml is
// not an error.
func loadViper(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a commented config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("checking config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
