package zabbix

import (
	"strings"
	"time"
)

// Config holds configuration for the Zabbix inventory source.
type Config struct {
	// URL is the Zabbix frontend base URL; the API lives at <url>/api_jsonrpc.php.
	URL string `mapstructure:"url" default:"http://localhost"`
	// Username and Password are used for user.login when Token is empty.
	Username string `mapstructure:"username" default:""`
	Password string `mapstructure:"password" default:""`
	// Token is a static API token; it takes precedence over Username/Password.
	Token string `mapstructure:"token" default:""`
	// Groups is the comma-separated list of host group names to reconcile.
	Groups string `mapstructure:"groups" default:"DataStore/DataCenter/Almaty,DataStore/DataCenter/Astana-Kabanbay,DataStore/DataCenter/Astana-Konaeva,DataStore/DataCenter/Atyrau,DataStore/DataCenter/Karagandy"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" default:"false"`
	// Timeout bounds a whole fetch.
	Timeout time.Duration `mapstructure:"timeout" default:"60s"`
}

// GroupNames returns the configured group names, trimmed, empties dropped.
func (c Config) GroupNames() []string {
	var out []string
	for _, g := range strings.Split(c.Groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// Endpoint returns the JSON-RPC endpoint URL.
func (c Config) Endpoint() string {
	base := strings.TrimRight(c.URL, "/")
	if strings.HasSuffix(base, "/api_jsonrpc.php") {
		return base
	}
	return base + "/api_jsonrpc.php"
}
