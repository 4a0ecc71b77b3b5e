package geo

import (
	"math"

	"dispatch/pkg/domain"
)

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether loc falls within the box.
func (b BoundingBox) Contains(loc domain.Location) bool {
	return loc.Latitude >= b.MinLat && loc.Latitude <= b.MaxLat &&
		loc.Longitude >= b.MinLon && loc.Longitude <= b.MaxLon
}

// BoundingBoxAround approximates a circle of radiusMeters around center as
// a bounding box, used to pre-filter candidates before an exact geodesic
// check. The longitude delta widens toward the poles to account for
// meridian convergence.
func BoundingBoxAround(center domain.Location, radiusMeters float64) BoundingBox {
	angularDistance := radiusMeters / EarthRadiusMeters

	latRad := toRadians(center.Latitude)

	minLat := toDegrees(latRad - angularDistance)
	maxLat := toDegrees(latRad + angularDistance)

	deltaLon := toDegrees(angularDistance / math.Cos(latRad))
	minLon := center.Longitude - deltaLon
	maxLon := center.Longitude + deltaLon

	return BoundingBox{
		MinLat: math.Max(minLat, -90.0),
		MaxLat: math.Min(maxLat, 90.0),
		MinLon: math.Max(minLon, -180.0),
		MaxLon: math.Min(maxLon, 180.0),
	}
}

// NormalizeLongitude wraps lon into [-180, 180].
func NormalizeLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// NormalizeLatitude clamps lat into [-90, 90].
func NormalizeLatitude(lat float64) float64 {
	return math.Max(-90.0, math.Min(90.0, lat))
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
