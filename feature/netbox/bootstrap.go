package netbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// FieldDefinition describes a custom field the registry depends on.
type FieldDefinition struct {
	Name  string
	Label string
}

// RequiredFields lists the device custom fields written by the registry.
var RequiredFields = []FieldDefinition{
	{Name: ForeignIDField, Label: "Zabbix Host ID"},
	{Name: LastSyncField, Label: "Last Sync"},
	{Name: "os_version", Label: "OS/Firmware Version"},
	{Name: "serial_a", Label: "Serial Number A"},
	{Name: "serial_b", Label: "Serial Number B"},
	{Name: "hardware_info", Label: "Hardware Info"},
}

// DeviceRole is the role assigned to every created device.
var DeviceRole = map[string]any{
	"name":        "Storage",
	"slug":        "storage",
	"color":       "9c27b0",
	"description": "Storage systems",
}

// EnsureCustomFields creates the missing required custom fields and returns
// the names it created. It keeps going after a failed create.
func (r *Registry) EnsureCustomFields(ctx context.Context) ([]string, error) {
	existing, err := listAll[CustomField](ctx, r.client, "/api/extras/custom-fields/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom fields: %w", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, cf := range existing {
		have[cf.Name] = struct{}{}
	}

	var (
		created []string
		errs    []error
	)
	for _, f := range RequiredFields {
		if _, ok := have[f.Name]; ok {
			r.logger.Info("Custom field exists", zap.String("name", f.Name))
			continue
		}

		body := map[string]any{
			"name":          f.Name,
			"label":         f.Label,
			"type":          "text",
			"required":      false,
			"content_types": []string{"dcim.device"},
			"object_types":  []string{"dcim.device"},
		}
		if err := r.client.Post(ctx, "/api/extras/custom-fields/", body, nil); err != nil {
			errs = append(errs, fmt.Errorf("custom field %s: %w", f.Name, err))
			continue
		}
		r.logger.Info("Created custom field", zap.String("name", f.Name))
		created = append(created, f.Name)
	}
	return created, errors.Join(errs...)
}

// EnsureDeviceRole returns the id of the Storage role, creating it when absent.
func (r *Registry) EnsureDeviceRole(ctx context.Context) (int, error) {
	slug := DeviceRole["slug"].(string)
	return r.cache.GetOrLoad(ctx, "role:"+slug, func(ctx context.Context) (int, error) {
		return r.getOrCreate(ctx, "/api/dcim/device-roles/", url.Values{"slug": {slug}}, DeviceRole)
	})
}
