package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a list of strings stored as a JSON array (image URLs).
type StringList []string

// Value marshals the list; nil is stored as [].
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("string list: %w", err)
	}
	return string(raw), nil
}

// Scan decodes a JSON array; NULL becomes an empty list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("string list: unsupported scan type %T", value)
	}
	if strings.TrimSpace(raw) == "" {
		*l = StringList{}
		return nil
	}
	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	if decoded == nil {
		decoded = []string{}
	}
	*l = decoded
	return nil
}

// MarshalJSON renders nil as [] so clients never see null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
