// Package geo holds the planar and great-circle helpers used by delivery-zone matching.
package geo

import (
	"bytes"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	sridWGS84 = 4326

	wkbPoint    = 1
	ewkbSRIDBit = 0x20000000
	ewkbZBit    = 0x80000000
	ewkbMBit    = 0x40000000
)

var errNotPoint = errors.New("geo: not a point")

// Point is a WGS84 coordinate. It persists as a PostGIS geography point.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsValid reports whether the coordinate is a finite value inside lat/lng bounds.
func (p Point) IsValid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// EWKT renders the point with the shortest decimal form that parses back to
// the same float64.
func (p Point) EWKT() string {
	buf := make([]byte, 0, 48)
	buf = append(buf, "SRID=4326;POINT("...)
	buf = strconv.AppendFloat(buf, p.Lng, 'f', -1, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, p.Lat, 'f', -1, 64)
	buf = append(buf, ')')
	return string(buf)
}

func (p Point) Value() (driver.Value, error) {
	return p.EWKT(), nil
}

// Scan accepts (E)WKT text, raw (E)WKB, or the hex-encoded EWKB Postgres
// emits for geography columns.
func (p *Point) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = Point{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("geo: unsupported scan type %T", value)
	}

	var (
		parsed Point
		err    error
	)
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(raw) > 0 && raw[0] <= 1:
		parsed, err = decodeWKB(raw)
	case isHex(trimmed):
		decoded := make([]byte, hex.DecodedLen(len(trimmed)))
		if _, err = hex.Decode(decoded, trimmed); err == nil {
			parsed, err = decodeWKB(decoded)
		}
	default:
		parsed, err = parseWKT(string(trimmed))
	}
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func parseWKT(text string) (Point, error) {
	if head, rest, ok := strings.Cut(text, ";"); ok {
		srid, found := cutFold(strings.TrimSpace(head), "SRID=")
		if !found {
			return Point{}, fmt.Errorf("geo: malformed srid prefix %q", head)
		}
		if srid != strconv.Itoa(sridWGS84) {
			return Point{}, fmt.Errorf("geo: unsupported srid %s", srid)
		}
		text = strings.TrimSpace(rest)
	}

	body, ok := cutFold(text, "POINT")
	if !ok {
		return Point{}, fmt.Errorf("%w: %q", errNotPoint, text)
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return Point{}, fmt.Errorf("geo: malformed point %q", text)
	}

	fields := strings.Fields(body[1 : len(body)-1])
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("geo: point needs two coordinates, got %d", len(fields))
	}
	var coords [2]float64
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Point{}, fmt.Errorf("geo: coordinate %q: %w", field, err)
		}
		coords[i] = f
	}
	return Point{Lng: coords[0], Lat: coords[1]}, nil
}

func decodeWKB(raw []byte) (Point, error) {
	if len(raw) < 5 {
		return Point{}, fmt.Errorf("geo: wkb header truncated")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if raw[0] == 0 {
		order = binary.BigEndian
	}

	kind := order.Uint32(raw[1:5])
	body := raw[5:]
	if kind&(ewkbZBit|ewkbMBit) != 0 {
		return Point{}, fmt.Errorf("geo: 3d/measured points are not supported")
	}
	if kind&ewkbSRIDBit != 0 {
		if len(body) < 4 {
			return Point{}, fmt.Errorf("geo: ewkb srid truncated")
		}
		if srid := order.Uint32(body[:4]); srid != sridWGS84 {
			return Point{}, fmt.Errorf("geo: unsupported srid %d", srid)
		}
		body = body[4:]
		kind &^= ewkbSRIDBit
	}
	if kind != wkbPoint {
		return Point{}, fmt.Errorf("%w: wkb type %d", errNotPoint, kind)
	}
	if len(body) != 16 {
		return Point{}, fmt.Errorf("geo: wkb point body is %d bytes", len(body))
	}
	return Point{
		Lng: math.Float64frombits(order.Uint64(body[:8])),
		Lat: math.Float64frombits(order.Uint64(body[8:])),
	}, nil
}

func cutFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func isHex(b []byte) bool {
	if len(b) == 0 || len(b)%2 != 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
