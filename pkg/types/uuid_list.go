package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UUIDList is a set of identifiers persisted as a JSON array.
type UUIDList []uuid.UUID

// Value marshals the list into JSON.
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	buf, err := json.Marshal([]uuid.UUID(l))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array of UUID strings.
func (l *UUIDList) Scan(value interface{}) error {
	raw, err := jsonBytes("uuid list", value)
	if err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("uuid list: %w", err)
	}
	*l = ids
	return nil
}

// Contains reports whether id is part of the list.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

func jsonBytes(kind string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unsupported scan type %T", kind, value)
	}
}
