package netbox

import "encoding/json"

// listResponse is the paginated envelope of every NetBox list endpoint.
type listResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Object is the minimal shape shared by all NetBox objects.
type Object struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug,omitempty"`
	Display string `json:"display,omitempty"`
}

// Device is a dcim device with its custom fields.
type Device struct {
	ID           int                        `json:"id"`
	Name         string                     `json:"name"`
	Status       *Choice                    `json:"status"`
	Site         *Object                    `json:"site"`
	PrimaryIP4   *IPAddress                 `json:"primary_ip4"`
	CustomFields map[string]json.RawMessage `json:"custom_fields"`
}

// Choice is a NetBox choice field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// IPAddress is an ipam ip address.
type IPAddress struct {
	ID                 int    `json:"id"`
	Address            string `json:"address"`
	AssignedObjectType string `json:"assigned_object_type"`
	AssignedObjectID   *int   `json:"assigned_object_id"`
}

// CustomField is an extras custom field definition.
type CustomField struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Status is the subset of /api/status/ used for connectivity checks.
type Status struct {
	NetBoxVersion string `json:"netbox-version"`
}
