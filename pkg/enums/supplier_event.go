package enums

import "fmt"

// SupplierEvent is the kind of catalog change a supplier pushes to us.
type SupplierEvent string

const (
	SupplierEventProductCreated SupplierEvent = "product.created"
	SupplierEventProductUpdated SupplierEvent = "product.updated"
	SupplierEventProductDeleted SupplierEvent = "product.deleted"
)

var validSupplierEvents = []SupplierEvent{
	SupplierEventProductCreated,
	SupplierEventProductUpdated,
	SupplierEventProductDeleted,
}

// String implements fmt.Stringer.
func (e SupplierEvent) String() string {
	return string(e)
}

// IsValid reports whether the value is a known SupplierEvent.
func (e SupplierEvent) IsValid() bool {
	for _, candidate := range validSupplierEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsUpsert reports whether the event creates or updates a supplier product.
func (e SupplierEvent) IsUpsert() bool {
	return e == SupplierEventProductCreated || e == SupplierEventProductUpdated
}

// ParseSupplierEvent converts raw input into a SupplierEvent.
func ParseSupplierEvent(value string) (SupplierEvent, error) {
	for _, candidate := range validSupplierEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier event %q", value)
}
