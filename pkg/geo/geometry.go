package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// PointInRadius reports whether p lies within radiusMeters of center, boundary included.
func PointInRadius(p, center Point, radiusMeters float64) bool {
	return DistanceMeters(p, center) <= radiusMeters
}

// PointInPolygon runs the even-odd ray cast with lng as x and lat as y.
// Points exactly on an edge may land on either side.
func PointInPolygon(p Point, ring []Point) bool {
	if len(ring) < 3 {
		return false
	}
	x, y := p.Lng, p.Lat
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// CircleArea returns the planar area of a radius zone in square meters.
func CircleArea(radiusMeters float64) float64 {
	return math.Pi * radiusMeters * radiusMeters
}

// PolygonArea approximates the area of ring in square meters using the shoelace
// formula over an equirectangular projection centered on the ring's mean latitude.
// Good enough for city-sized delivery polygons.
func PolygonArea(ring []Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	var meanLat float64
	for _, pt := range ring {
		meanLat += pt.Lat
	}
	meanLat /= float64(len(ring))
	kx := EarthRadiusMeters * math.Cos(radians(meanLat))

	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		xi, yi := kx*radians(ring[i].Lng), EarthRadiusMeters*radians(ring[i].Lat)
		xj, yj := kx*radians(ring[j].Lng), EarthRadiusMeters*radians(ring[j].Lat)
		sum += xi*yj - xj*yi
	}
	return math.Abs(sum) / 2
}
