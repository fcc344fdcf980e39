package netbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/utils"

	"go.uber.org/zap"
)

const (
	// ForeignIDField is the custom field holding the Zabbix host id.
	ForeignIDField = "zabbix_hostid"
	// LastSyncField is the custom field refreshed on every sync.
	LastSyncField = "last_sync"

	managementInterface = "mgmt"
	deviceStatusActive  = "active"
	maxSlugLength       = 50
)

// attributeFields maps compared attribute names to the custom fields they update.
var attributeFields = map[string]string{
	"os":       "os_version",
	"serial_a": "serial_a",
	"serial_b": "serial_b",
	"hardware": "hardware_info",
}

// Registry implements reconcile.Registry on top of NetBox dcim devices.
type Registry struct {
	client *Client
	logger *zap.Logger
	clock  clock.Clock
	cache  *lookupCache
}

// NewRegistry creates a NetBox-backed registry.
func NewRegistry(client *Client, cfg Config, clk clock.Clock, logger *zap.Logger) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		client: client,
		logger: logger,
		clock:  clk,
		cache:  newLookupCache(cfg.CacheTTL, clk),
	}
}

// Ping checks that the API answers and returns the NetBox version.
func (r *Registry) Ping(ctx context.Context) (string, error) {
	st, err := r.client.Status(ctx)
	if err != nil {
		return "", err
	}
	return st.NetBoxVersion, nil
}

// FindByForeignID implements reconcile.Registry.
func (r *Registry) FindByForeignID(ctx context.Context, id string) (string, bool, error) {
	q := url.Values{"cf_" + ForeignIDField: {id}}
	dev, err := listFirst[Device](ctx, r.client, "/api/dcim/devices/", q)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", reconcile.ErrRegistryLookup, err)
	}
	return strconv.Itoa(dev.ID), true, nil
}

// Create implements reconcile.Registry.
func (r *Registry) Create(ctx context.Context, rec reconcile.Record) (string, error) {
	siteID, err := r.siteID(ctx, rec.Site)
	if err != nil {
		return "", fmt.Errorf("%w: site %q: %w", reconcile.ErrRegistryWrite, rec.Site, err)
	}
	typeID, err := r.deviceTypeID(ctx, rec.Manufacturer, rec.Model)
	if err != nil {
		return "", fmt.Errorf("%w: device type %q: %w", reconcile.ErrRegistryWrite, rec.Model, err)
	}
	roleID, err := r.EnsureDeviceRole(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: device role: %w", reconcile.ErrRegistryWrite, err)
	}

	a := rec.Attributes
	body := map[string]any{
		"name":        a.DisplayName,
		"device_type": typeID,
		"site":        siteID,
		"role":        roleID,
		"status":      deviceStatusActive,
		"custom_fields": map[string]string{
			ForeignIDField:  rec.ForeignID,
			LastSyncField:   r.now(),
			"os_version":    a.OSVersion,
			"serial_a":      a.SerialA,
			"serial_b":      a.SerialB,
			"hardware_info": a.HardwareDescription,
		},
	}

	var dev Device
	if err := r.client.Post(ctx, "/api/dcim/devices/", body, &dev); err != nil {
		return "", fmt.Errorf("%w: create device %q: %w", reconcile.ErrRegistryWrite, a.DisplayName, err)
	}
	ref := strconv.Itoa(dev.ID)

	r.logger.Info("Created device",
		zap.String("name", a.DisplayName),
		zap.String("ref", ref),
		zap.String("site", rec.Site),
	)

	if a.NetworkAddress != "" {
		if err := r.AssignPrimaryIP(ctx, dev.ID, a.NetworkAddress); err != nil {
			r.logger.Warn("Failed to assign primary IP",
				zap.String("ref", ref),
				zap.String("ip", a.NetworkAddress),
				zap.Error(err),
			)
		}
	}
	return ref, nil
}

// Update implements reconcile.Registry. Only changed fields are sent, plus last_sync.
func (r *Registry) Update(ctx context.Context, ref string, attrs reconcile.Attributes, changes reconcile.Changes) error {
	id, err := strconv.Atoi(ref)
	if err != nil {
		return fmt.Errorf("%w: invalid device ref %q", reconcile.ErrRegistryWrite, ref)
	}

	values := map[string]string{
		"os":       attrs.OSVersion,
		"serial_a": attrs.SerialA,
		"serial_b": attrs.SerialB,
		"hardware": attrs.HardwareDescription,
	}
	custom := map[string]string{LastSyncField: r.now()}
	for field, cf := range attributeFields {
		if _, ok := changes[field]; ok {
			custom[cf] = values[field]
		}
	}

	body := map[string]any{"custom_fields": custom}
	if _, ok := changes["name"]; ok {
		body["name"] = attrs.DisplayName
	}

	if err := r.client.Patch(ctx, devicePath(id), body, nil); err != nil {
		return fmt.Errorf("%w: update device %s: %w", reconcile.ErrRegistryWrite, ref, err)
	}

	if _, ok := changes["ip"]; ok && attrs.NetworkAddress != "" {
		if err := r.AssignPrimaryIP(ctx, id, attrs.NetworkAddress); err != nil {
			return fmt.Errorf("%w: primary ip for device %s: %w", reconcile.ErrRegistryWrite, ref, err)
		}
	}

	r.logger.Debug("Updated device", zap.String("ref", ref), zap.Strings("fields", changes.Fields()))
	return nil
}

// Touch implements reconcile.Registry.
func (r *Registry) Touch(ctx context.Context, ref string) error {
	id, err := strconv.Atoi(ref)
	if err != nil {
		return fmt.Errorf("%w: invalid device ref %q", reconcile.ErrRegistryWrite, ref)
	}
	body := map[string]any{"custom_fields": map[string]string{LastSyncField: r.now()}}
	if err := r.client.Patch(ctx, devicePath(id), body, nil); err != nil {
		return fmt.Errorf("%w: touch device %s: %w", reconcile.ErrRegistryWrite, ref, err)
	}
	return nil
}

// AssignPrimaryIP binds ip to the device's management interface and makes it primary_ip4.
func (r *Registry) AssignPrimaryIP(ctx context.Context, deviceID int, ip string) error {
	address := WithMask(ip)

	ifaceID, err := r.managementInterface(ctx, deviceID)
	if err != nil {
		return err
	}

	addr, err := listFirst[IPAddress](ctx, r.client, "/api/ipam/ip-addresses/", url.Values{"address": {address}})
	switch {
	case errors.Is(err, ErrNotFound):
		body := map[string]any{
			"address":              address,
			"status":               deviceStatusActive,
			"assigned_object_type": "dcim.interface",
			"assigned_object_id":   ifaceID,
		}
		if err := r.client.Post(ctx, "/api/ipam/ip-addresses/", body, &addr); err != nil {
			return err
		}
	case err != nil:
		return err
	case addr.AssignedObjectID == nil || *addr.AssignedObjectID != ifaceID:
		body := map[string]any{
			"assigned_object_type": "dcim.interface",
			"assigned_object_id":   ifaceID,
		}
		if err := r.client.Patch(ctx, fmt.Sprintf("/api/ipam/ip-addresses/%d/", addr.ID), body, nil); err != nil {
			return err
		}
	}

	return r.client.Patch(ctx, devicePath(deviceID), map[string]any{"primary_ip4": addr.ID}, nil)
}

func (r *Registry) managementInterface(ctx context.Context, deviceID int) (int, error) {
	q := url.Values{"device_id": {strconv.Itoa(deviceID)}, "name": {managementInterface}}
	iface, err := listFirst[Object](ctx, r.client, "/api/dcim/interfaces/", q)
	if err == nil {
		return iface.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	body := map[string]any{"device": deviceID, "name": managementInterface, "type": "other"}
	if err := r.client.Post(ctx, "/api/dcim/interfaces/", body, &iface); err != nil {
		return 0, err
	}
	return iface.ID, nil
}

func (r *Registry) siteID(ctx context.Context, name string) (int, error) {
	return r.cache.GetOrLoad(ctx, "site:"+name, func(ctx context.Context) (int, error) {
		site, err := listFirst[Object](ctx, r.client, "/api/dcim/sites/", url.Values{"name": {name}})
		if err != nil {
			return 0, err
		}
		return site.ID, nil
	})
}

func (r *Registry) manufacturerID(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = reconcile.UnknownManufacturer
	}
	slug := utils.Slugify(name, maxSlugLength)

	return r.cache.GetOrLoad(ctx, "manufacturer:"+slug, func(ctx context.Context) (int, error) {
		return r.getOrCreate(ctx, "/api/dcim/manufacturers/",
			url.Values{"slug": {slug}},
			map[string]any{"name": name, "slug": slug},
		)
	})
}

func (r *Registry) deviceTypeID(ctx context.Context, manufacturer, model string) (int, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = reconcile.UnknownModel
	}
	slug := utils.Slugify(model, maxSlugLength)

	mfrID, err := r.manufacturerID(ctx, manufacturer)
	if err != nil {
		return 0, err
	}

	key := fmt.Sprintf("device-type:%d:%s", mfrID, slug)
	return r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (int, error) {
		return r.getOrCreate(ctx, "/api/dcim/device-types/",
			url.Values{"slug": {slug}, "manufacturer_id": {strconv.Itoa(mfrID)}},
			map[string]any{"manufacturer": mfrID, "model": model, "slug": slug},
		)
	})
}

func (r *Registry) getOrCreate(ctx context.Context, path string, query url.Values, body map[string]any) (int, error) {
	obj, err := listFirst[Object](ctx, r.client, path, query)
	if err == nil {
		return obj.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err := r.client.Post(ctx, path, body, &obj); err != nil {
		return 0, err
	}
	r.logger.Info("Created registry object", zap.String("path", path), zap.Any("name", body["name"]), zap.Int("id", obj.ID))
	return obj.ID, nil
}

func (r *Registry) now() string {
	return r.clock.Now().UTC().Format(time.RFC3339)
}

func devicePath(id int) string {
	return fmt.Sprintf("/api/dcim/devices/%d/", id)
}

// WithMask appends /32 to an address without a prefix length.
func WithMask(ip string) string {
	if strings.Contains(ip, "/") {
		return ip
	}
	return ip + "/32"
}
