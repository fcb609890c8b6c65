package livability

import (
	"github.com/tidwall/geodesic"
)

const metersPerMile = 1609.344

// DistanceMiles returns the geodesic distance between two coordinates on the
// WGS-84 ellipsoid, in statute miles.
func DistanceMiles(a, b Coordinate) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters / metersPerMile
}
