package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ConfigMap is the free-form application configuration supplied by the
// user. Values are strings, numbers or booleans; the application's config
// schema constrains which keys are allowed and their types.
type ConfigMap map[string]any

// Value implements driver.Valuer so the map persists as a JSON column.
func (m ConfigMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading the JSON column back.
func (m *ConfigMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = ConfigMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ConfigMap", src)
	}
}

// String returns the value under key as a string, or "" when absent or
// not a string.
func (m ConfigMap) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the value under key as a bool. String "true"/"false"
// values coming off the wire are accepted as well.
func (m ConfigMap) Bool(key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Int returns the value under key as an int. JSON numbers decode as
// float64, so both representations are handled.
func (m ConfigMap) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Has reports whether the key is present with a non-nil value.
func (m ConfigMap) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// Merge returns a copy of defaults overlaid with m. Keys present in m win.
func (m ConfigMap) Merge(defaults ConfigMap) ConfigMap {
	out := make(ConfigMap, len(defaults)+len(m))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}
