// Package netbox is the registry adapter. It keeps NetBox dcim devices in
// step with the reconciliation engine: devices are found through the
// zabbix_hostid custom field, created with their site, device type and role,
// and updated field by field.
//
// Sites must already exist in NetBox. Manufacturers, device types and the
// Storage device role are created on demand and cached for Config.CacheTTL.
//
// The package also provides the bootstrap used by `init-registry` and the
// YAML site map loader.
package netbox
