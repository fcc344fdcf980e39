package netbox

import (
	"fmt"
	"os"

	"inventory-sync/core/reconcile"

	"gopkg.in/yaml.v3"
)

// siteMapFile is the on-disk layout of a site map:
//
//	sites:
//	  Almaty: DC Almaty
//	  Atyrau: DC Atyrau
type siteMapFile struct {
	Sites map[string]string `yaml:"sites"`
}

// LoadSiteMap reads a YAML site map. An empty path yields the built-in map.
func LoadSiteMap(path string) (reconcile.SiteMap, error) {
	if path == "" {
		return reconcile.DefaultSiteMap(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site map: %w", err)
	}

	var f siteMapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse site map %s: %w", path, err)
	}
	if len(f.Sites) == 0 {
		return nil, fmt.Errorf("site map %s defines no sites", path)
	}
	return reconcile.SiteMap(f.Sites), nil
}
