package types

import (
	"errors"
	"time"
)

// Config holds backend selection and tuning parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CacheTTLSeconds bounds the boundary-layer aggregate cache.
	// Zero means the default; negative disables caching.
	CacheTTLSeconds int `json:"cache_ttl" yaml:"cache_ttl"`

	// SampleLimit caps how many rows are scanned to discover keys.
	SampleLimit int `json:"sample_limit" yaml:"sample_limit"`

	// DefaultRowLimit and MaxRowLimit bound raw row listings.
	DefaultRowLimit int `json:"default_row_limit" yaml:"default_row_limit"`
	MaxRowLimit     int `json:"max_row_limit" yaml:"max_row_limit"`

	// FacetTopN caps the top-value list per facet field.
	FacetTopN int `json:"facet_top_n" yaml:"facet_top_n"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrLimitInvalid   = errors.New("limit must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.SampleLimit < 0 || c.DefaultRowLimit < 0 || c.MaxRowLimit < 0 || c.FacetTopN < 0 {
		return ErrLimitInvalid
	}
	return nil
}

// Tuning defaults applied when a Config field is zero.
const (
	DefaultCacheTTL    = 60 * time.Second
	DefaultSampleLimit = 1000
	DefaultRowLimit    = 5000
	DefaultMaxRowLimit = 50000
	DefaultFacetTopN   = 50
)

// GetCacheTTL returns the aggregate cache TTL, or zero when caching is
// disabled by a negative CacheTTLSeconds.
func (c Config) GetCacheTTL() time.Duration {
	if c.CacheTTLSeconds < 0 {
		return 0
	}
	if c.CacheTTLSeconds == 0 {
		return DefaultCacheTTL
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// GetSampleLimit returns the key-discovery sample cap.
func (c Config) GetSampleLimit() int {
	if c.SampleLimit == 0 {
		return DefaultSampleLimit
	}
	return c.SampleLimit
}

// GetDefaultRowLimit returns the listing limit used when the caller
// supplies none.
func (c Config) GetDefaultRowLimit() int {
	if c.DefaultRowLimit == 0 {
		return DefaultRowLimit
	}
	return c.DefaultRowLimit
}

// GetMaxRowLimit returns the hard cap on listing limits.
func (c Config) GetMaxRowLimit() int {
	if c.MaxRowLimit == 0 {
		return DefaultMaxRowLimit
	}
	return c.MaxRowLimit
}

// GetFacetTopN returns the per-field top-value cap for facets.
func (c Config) GetFacetTopN() int {
	if c.FacetTopN == 0 {
		return DefaultFacetTopN
	}
	return c.FacetTopN
}
