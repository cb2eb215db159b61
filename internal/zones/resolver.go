package zones

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/geo"
)

// AreaMode selects how overlapping zones are ranked.
type AreaMode int

const (
	// AreaModeLegacy ranks polygon zones as zero-area, so a polygon always wins
	// over an overlapping radius zone.
	AreaModeLegacy AreaMode = iota
	// AreaModeShoelace ranks polygon zones by their projected area.
	AreaModeShoelace
)

func (m AreaMode) String() string {
	if m == AreaModeShoelace {
		return "shoelace"
	}
	return "legacy"
}

// ParseAreaMode converts a configuration value into an AreaMode.
func ParseAreaMode(value string) (AreaMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "legacy":
		return AreaModeLegacy, nil
	case "shoelace":
		return AreaModeShoelace, nil
	}
	return AreaModeLegacy, fmt.Errorf("invalid zone area mode %q", value)
}

// Resolver matches coordinates against delivery zones. The zero value uses AreaModeLegacy.
type Resolver struct {
	Mode AreaMode
}

// NewResolver returns a resolver using mode for overlap tie-breaks.
func NewResolver(mode AreaMode) Resolver {
	return Resolver{Mode: mode}
}

// MatchingZones returns every active, well-formed zone containing the point,
// in input order. The returned pointers alias the zones slice.
func (r Resolver) MatchingZones(lat, lng float64, zones []Zone) []*Zone {
	p := geo.Point{Lat: lat, Lng: lng}
	var matches []*Zone
	for i := range zones {
		z := &zones[i]
		if !z.IsActive || z.defect() != "" {
			continue
		}
		if z.contains(p) {
			matches = append(matches, z)
		}
	}
	return matches
}

// FindMatchingZone returns the most specific zone containing the point, or nil.
// Overlaps resolve to the smallest area; equal areas keep input order.
func (r Resolver) FindMatchingZone(lat, lng float64, zones []Zone) *Zone {
	matches := r.MatchingZones(lat, lng, zones)
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	bestArea := best.area(r.Mode)
	for _, z := range matches[1:] {
		if a := z.area(r.Mode); a < bestArea {
			best, bestArea = z, a
		}
	}
	return best
}
