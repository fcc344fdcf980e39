package reconcile

import (
	"fmt"
	"strings"

	"inventory-sync/core/utils"
)

const (
	UnknownManufacturer = "Unknown"
	UnknownModel        = "Unknown Storage"

	maxModelLength = 50
)

// manufacturerKeywords is matched in order against the lower-cased hardware string.
var manufacturerKeywords = []struct {
	keyword string
	name    string
}{
	{"netapp", "NetApp"},
	{"huawei", "Huawei"},
	{"oceanstor", "Huawei"},
	{"dorado", "Huawei"},
	{"dell", "Dell"},
	{"emc", "Dell EMC"},
	{"compellent", "Dell"},
	{"equallogic", "Dell"},
	{"powervault", "Dell"},
	{"powerstore", "Dell"},
	{"hp", "HPE"},
	{"hpe", "HPE"},
	{"3par", "HPE"},
	{"nimble", "HPE"},
	{"primera", "HPE"},
	{"alletra", "HPE"},
	{"ibm", "IBM"},
	{"storwize", "IBM"},
	{"flashsystem", "IBM"},
	{"pure", "Pure Storage"},
	{"purestorage", "Pure Storage"},
	{"hitachi", "Hitachi"},
	{"infinidat", "Infinidat"},
	{"netgear", "NETGEAR"},
	{"synology", "Synology"},
	{"qnap", "QNAP"},
}

// SiteMap maps the last segment of a group label to a registry site name.
type SiteMap map[string]string

// DefaultSiteMap returns the built-in data center mapping.
func DefaultSiteMap() SiteMap {
	return SiteMap{
		"Almaty":          "DC Almaty",
		"Astana-Kabanbay": "DC Kabanbay-Batyr28",
		"Astana-Konaeva":  "DC Konaeva10",
		"Atyrau":          "DC Atyrau",
		"Karagandy":       "DC Karaganda",
	}
}

// ResolveSite implements SiteResolver.
// "DataStore/DataCenter/Almaty" resolves through the "Almaty" entry.
func (m SiteMap) ResolveSite(groupLabel string) (string, bool) {
	key := GroupKey(groupLabel)
	if key == "" {
		return "", false
	}
	site, ok := m[key]
	return site, ok
}

// GroupKey returns the last '/'-separated segment of a group label.
func GroupKey(groupLabel string) string {
	if groupLabel == "" {
		return ""
	}
	parts := strings.Split(groupLabel, "/")
	return strings.TrimSpace(parts[len(parts)-1])
}

// ExtractManufacturer derives a vendor name from a hardware description.
func ExtractManufacturer(hardware string) string {
	fields := strings.Fields(hardware)
	if len(fields) == 0 {
		return UnknownManufacturer
	}

	lower := strings.ToLower(hardware)
	for _, m := range manufacturerKeywords {
		if strings.Contains(lower, m.keyword) {
			return m.name
		}
	}
	return utils.Capitalize(fields[0])
}

// ExtractModel derives a model name from a hardware description.
func ExtractModel(hardware string) string {
	model := utils.CollapseSpaces(hardware)
	if model == "" {
		return UnknownModel
	}
	return utils.Truncate(model, maxModelLength)
}

// Normalize derives the registry record for a new entity.
// It fails with ErrMappingUnresolved when the group label has no site.
func Normalize(e Entity, sites SiteResolver) (Record, error) {
	if sites == nil {
		return Record{}, fmt.Errorf("%w: no site mapping configured", ErrMappingUnresolved)
	}
	site, ok := sites.ResolveSite(e.Attributes.GroupLabel)
	if !ok {
		return Record{}, fmt.Errorf("%w: no site for group %q", ErrMappingUnresolved, e.Attributes.GroupLabel)
	}

	return Record{
		ForeignID:    e.ID,
		Attributes:   e.Attributes,
		Manufacturer: ExtractManufacturer(e.Attributes.HardwareDescription),
		Model:        ExtractModel(e.Attributes.HardwareDescription),
		Site:         site,
	}, nil
}

// locationOf resolves a display location, falling back to "Unknown".
func locationOf(sites SiteResolver, groupLabel string) string {
	if sites != nil {
		if site, ok := sites.ResolveSite(groupLabel); ok {
			return site
		}
	}
	return "Unknown"
}
