// Package tracking implements the live tracking engine: GPS ingestion,
// the route/visit state machine, ETA projection, delay detection, and
// the pub/sub connection manager that fans updates to subscribers.
package tracking

import (
	"context"
	"time"

	"dispatch/pkg/domain"
)

// LocationRepository is the persistence boundary the location ingestor
// depends on.
type LocationRepository interface {
	// VehicleExists reports whether vehicleID names a known vehicle.
	VehicleExists(ctx context.Context, vehicleID int64) (bool, error)
	// InsertLocation appends a LocationLog row, returning its id.
	InsertLocation(ctx context.Context, log domain.LocationLog) (int64, error)
	// LatestLocation returns the most recent sample for vehicleID, or
	// (nil, nil) if none exists.
	LatestLocation(ctx context.Context, vehicleID int64) (*domain.LocationLog, error)
	// LocationHistory returns samples newest-first, bounded by the
	// optional [start, end) window and limit.
	LocationHistory(ctx context.Context, vehicleID int64, start, end *time.Time, limit int) ([]domain.LocationLog, error)
	// LatestPerVehicle returns the freshest sample per vehicle whose
	// timestamp is within maxAge of now, used by Nearby's pre-filter.
	LatestPerVehicle(ctx context.Context, maxAge time.Duration) ([]domain.LocationLog, error)
	// DeleteOlderThan removes samples older than cutoff, returning the
	// count removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RouteRepository is the persistence boundary the tracker, ETA
// calculator and delay detector depend on to
// read and mutate Routes, Visits, and the Cases they reference.
type RouteRepository interface {
	LoadRoute(ctx context.Context, routeID int64) (domain.Route, error)
	LoadVisit(ctx context.Context, visitID int64) (domain.Visit, error)
	SaveVisit(ctx context.Context, visit domain.Visit) error
	SaveRouteStatus(ctx context.Context, routeID int64, status domain.RouteStatus) error
	LoadCase(ctx context.Context, caseID int64) (domain.Case, error)
	SaveCaseStatus(ctx context.Context, caseID int64, status domain.CaseStatus) error
}
