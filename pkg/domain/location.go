// Package domain holds the entities and value types shared by the
// optimizer, distance service, and live tracking engine: Location,
// TimeWindow, Skill, CareType, Patient, Personnel, Vehicle, Case, Route,
// Visit, LocationLog, DistanceMatrix, and the Visit/Route state machines.
package domain

import "dispatch/pkg/apperror"

// Location is an immutable WGS-84 coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// NewLocation validates and constructs a Location.
func NewLocation(lat, lon float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, apperror.InvalidInput("latitude", "must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return Location{}, apperror.InvalidInput("longitude", "must be between -180 and 180")
	}
	return Location{Latitude: lat, Longitude: lon}, nil
}

// Equal compares two locations for exact coordinate equality.
func (l Location) Equal(other Location) bool {
	return l.Latitude == other.Latitude && l.Longitude == other.Longitude
}
