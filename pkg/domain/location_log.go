package domain

import (
	"time"

	"dispatch/pkg/apperror"
)

// LocationLog is one GPS sample reported by a vehicle. Append-only;
// retention is 90 days.
type LocationLog struct {
	ID             int64
	VehicleID      int64
	Location       Location
	SpeedKMH       *float64
	HeadingDegrees *float64
	AccuracyMeters *float64
	Timestamp      time.Time
}

// NewLocationLog validates the optional telemetry fields before
// constructing a sample.
func NewLocationLog(id, vehicleID int64, loc Location, speedKMH, headingDegrees, accuracyMeters *float64, timestamp time.Time) (LocationLog, error) {
	if speedKMH != nil && *speedKMH < 0 {
		return LocationLog{}, apperror.InvalidInput("speed_kmh", "must not be negative")
	}
	if headingDegrees != nil && (*headingDegrees < 0 || *headingDegrees > 360) {
		return LocationLog{}, apperror.InvalidInput("heading_degrees", "must be between 0 and 360")
	}
	if accuracyMeters != nil && *accuracyMeters < 0 {
		return LocationLog{}, apperror.InvalidInput("accuracy_meters", "must not be negative")
	}
	return LocationLog{
		ID:             id,
		VehicleID:      vehicleID,
		Location:       loc,
		SpeedKMH:       speedKMH,
		HeadingDegrees: headingDegrees,
		AccuracyMeters: accuracyMeters,
		Timestamp:      timestamp,
	}, nil
}
