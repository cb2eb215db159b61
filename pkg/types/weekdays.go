package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Weekdays lists the days a schedule is active on, 0 = Sunday as in time.Weekday.
type Weekdays []time.Weekday

// Value marshals the days into a JSON array of integers.
func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return nil, nil
	}
	days := make([]int, 0, len(w))
	for _, d := range w {
		days = append(days, int(d))
	}
	buf, err := json.Marshal(days)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array of integers in the 0..6 range.
func (w *Weekdays) Scan(value interface{}) error {
	raw, err := jsonBytes("weekdays", value)
	if err != nil {
		return err
	}
	if raw == nil {
		*w = nil
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("weekdays: %w", err)
	}
	out := make(Weekdays, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekdays: day %d out of range", d)
		}
		out = append(out, time.Weekday(d))
	}
	*w = out
	return nil
}

// Includes reports whether day is listed.
func (w Weekdays) Includes(day time.Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}
