package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray stores an ordered list of strings as a JSON text column.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan StringArray")
	}
	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(a))
}

// MarshalJSON always encodes a nil array as [] so clients never see null.
func (a StringArray) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

// hasPrefix reports whether prefix is an ordered prefix of a.
func (a StringArray) hasPrefix(prefix []string) bool {
	if len(prefix) > len(a) {
		return false
	}
	for i, v := range prefix {
		if a[i] != v {
			return false
		}
	}
	return true
}

func (a StringArray) contains(v string) bool {
	for _, s := range a {
		if s == v {
			return true
		}
	}
	return false
}
