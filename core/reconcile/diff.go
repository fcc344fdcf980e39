package reconcile

import "sort"

// CompareFields is the fixed set of fields diffed on change.
var CompareFields = []string{"name", "ip", "os", "serial_a", "serial_b", "hardware", "status"}

// Diff returns the fields in CompareFields whose values differ.
func Diff(old, current Attributes) Changes {
	before := old.trackedFields()
	after := current.trackedFields()

	changes := Changes{}
	for _, field := range CompareFields {
		if before[field] != after[field] {
			changes[field] = FieldChange{Old: before[field], New: after[field]}
		}
	}
	return changes
}

// Fields returns the changed field names in sorted order.
func (c Changes) Fields() []string {
	fields := make([]string, 0, len(c))
	for f := range c {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
