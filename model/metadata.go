package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siherrmann/biolink/helper"
)

// Metadata holds free-form attributes, stored as JSONB in PostgreSQL
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes, strings or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v.Copy()
		return nil
	case map[string]interface{}:
		*m = Metadata(v).Copy()
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
}

// GetString returns the value of key formatted as a string, or "" if absent.
func (m Metadata) GetString(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Copy returns a shallow copy.
func (m Metadata) Copy() Metadata {
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Merge returns a copy of m overwritten with the keys of other.
func (m Metadata) Merge(other Metadata) Metadata {
	c := m.Copy()
	for k, v := range other {
		c[k] = v
	}
	return c
}
