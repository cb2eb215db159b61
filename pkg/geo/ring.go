package geo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Ring is an ordered polygon boundary stored as a JSON array of points. The
// closing edge from the last point back to the first is implicit.
type Ring []Point

// Value marshals the ring into JSON.
func (r Ring) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	buf, err := json.Marshal([]Point(r))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array of {"lat","lng"} objects.
func (r *Ring) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("geo: unsupported ring scan type %T", value)
	}

	var points []Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return fmt.Errorf("geo: decode ring: %w", err)
	}
	*r = points
	return nil
}

// IsValid reports whether the ring has enough valid vertices to enclose an area.
func (r Ring) IsValid() bool {
	if len(r) < 3 {
		return false
	}
	for _, p := range r {
		if !p.IsValid() {
			return false
		}
	}
	return true
}
