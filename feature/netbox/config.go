package netbox

import "time"

// Config holds configuration for the NetBox registry.
type Config struct {
	// URL is the NetBox base URL, without the /api suffix.
	URL string `mapstructure:"url" default:"http://localhost:8000"`
	// Token is the NetBox API token.
	Token string `mapstructure:"token" default:""`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" default:"true"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
	// RateLimit is the sustained request rate per second. Zero disables pacing.
	RateLimit float64 `mapstructure:"rate_limit" default:"10"`
	// Burst is the number of requests allowed above RateLimit.
	Burst int `mapstructure:"burst" default:"5"`
	// SiteMapFile is an optional YAML file mapping group keys to site names.
	SiteMapFile string `mapstructure:"site_map_file" default:""`
	// CacheTTL is how long resolved sites, manufacturers and device types are reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"10m"`
}
