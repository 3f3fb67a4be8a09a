package geospatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// CentroidMode selects how lines and polygons are reduced to one point.
type CentroidMode string

const (
	// CentroidFirst uses the first coordinate of the line or outer ring.
	CentroidFirst CentroidMode = "first"
	// CentroidPlanar uses the planar centroid of the line or polygon.
	CentroidPlanar CentroidMode = "centroid"
)

// ParseCentroidMode accepts "first" (default when empty) or "centroid".
func ParseCentroidMode(s string) (CentroidMode, error) {
	switch CentroidMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CentroidFirst:
		return CentroidFirst, nil
	case CentroidPlanar:
		return CentroidPlanar, nil
	}
	return "", fmt.Errorf("unknown centroid mode %q", s)
}

// RepresentativePoint reduces a geometry to a single coordinate.
// Only Point, LineString and Polygon are supported; anything else, including
// a nil or empty geometry, yields ok == false.
func RepresentativePoint(g orb.Geometry, mode CentroidMode) (p domain.GeoPoint, ok bool) {
	switch geom := g.(type) {
	case orb.Point:
		return toGeoPoint(geom), true

	case orb.LineString:
		if len(geom) == 0 {
			return domain.GeoPoint{}, false
		}
		if mode == CentroidPlanar {
			if c, ok := planarCentroid(geom); ok {
				return c, true
			}
		}
		return toGeoPoint(geom[0]), true

	case orb.Polygon:
		if len(geom) == 0 || len(geom[0]) == 0 {
			return domain.GeoPoint{}, false
		}
		if mode == CentroidPlanar {
			if c, ok := planarCentroid(geom); ok {
				return c, true
			}
		}
		return toGeoPoint(geom[0][0]), true
	}

	return domain.GeoPoint{}, false
}

// planarCentroid falls back to ok == false for degenerate shapes.
func planarCentroid(g orb.Geometry) (domain.GeoPoint, bool) {
	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return domain.GeoPoint{}, false
	}
	return toGeoPoint(c), true
}

// orb stores coordinates as [lon, lat].
func toGeoPoint(p orb.Point) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
}
