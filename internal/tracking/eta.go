package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dispatch/internal/distance"
	"dispatch/pkg/cache"
	"dispatch/pkg/domain"
	"dispatch/pkg/metrics"
)

// significantETAChange is the ETA shift that gates downstream
// notifications; smaller recalculations stay quiet.
const significantETAChange = 10 * time.Minute

// defaultETACacheTTL is the per-visit projection cache lifetime.
const defaultETACacheTTL = 300 * time.Second

// trafficWindow names one of the time-of-day buffer bands.
type trafficWindow struct {
	label      string
	multiplier float64
}

var (
	morningRush = trafficWindow{"morning_rush", 1.30}
	peak        = trafficWindow{"peak", 1.15}
	eveningRush = trafficWindow{"evening_rush", 1.40}
	lateNight   = trafficWindow{"late_night", 1.00}
	normal      = trafficWindow{"normal", 1.05}
)

// trafficMultiplierFor classifies t's hour-of-day into a traffic window.
func trafficMultiplierFor(t time.Time) trafficWindow {
	hour := t.Hour()
	switch {
	case hour >= 7 && hour < 9:
		return morningRush
	case hour >= 12 && hour < 14:
		return peak
	case hour >= 17 && hour < 19:
		return eveningRush
	case hour >= 22 || hour < 6:
		return lateNight
	default:
		return normal
	}
}

// Detail is the full ETA projection, including the inputs the projection
// was derived from.
type Detail struct {
	ETA              time.Time
	DistanceMeters   float64
	BaseDuration     time.Duration
	BufferedDuration time.Duration
	Period           string
	PlannedArrival   time.Time
	DelayMinutes     float64
	IsDelayed        bool
	// Significant reports whether this projection moved at least
	// significantETAChange away from the previously cached one; it is the
	// bit callers consult before broadcasting an eta_update. Always true
	// when no prior projection was cached.
	Significant bool
}

// ETACalculator projects a visit's arrival time from the assigned
// vehicle's current location, buffered by the time-of-day traffic
// multiplier.
type ETACalculator struct {
	distance  *distance.Service
	locations LocationRepository
	routes    RouteRepository
	cache     cache.Cache
	cacheTTL  time.Duration
}

// NewETACalculator wires an ETACalculator. cache may be nil to disable
// the 300s per-visit cache.
func NewETACalculator(distanceService *distance.Service, locations LocationRepository, routes RouteRepository, c cache.Cache) *ETACalculator {
	return &ETACalculator{distance: distanceService, locations: locations, routes: routes, cache: c, cacheTTL: defaultETACacheTTL}
}

// Eta projects visitID's arrival instant, returning nil when the vehicle
// has no known current location.
func (e *ETACalculator) Eta(ctx context.Context, visitID, vehicleID int64) (*time.Time, error) {
	detail, err := e.EtaDetailed(ctx, visitID, vehicleID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, nil
	}
	return &detail.ETA, nil
}

// EtaDetailed computes the full ETA projection, or returns (nil, nil)
// when the vehicle has not reported a location yet.
func (e *ETACalculator) EtaDetailed(ctx context.Context, visitID, vehicleID int64) (*Detail, error) {
	visit, err := e.routes.LoadVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	caseRecord, err := e.routes.LoadCase(ctx, visit.CaseID)
	if err != nil {
		return nil, err
	}

	current, err := e.locations.LatestLocation(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	matrix, err := e.distance.CalculateMatrix(ctx, []domain.Location{current.Location, caseRecord.Location}, time.Time{}, "", false)
	if err != nil {
		return nil, err
	}

	baseSeconds := matrix.Durations[0][1]
	window := trafficMultiplierFor(current.Timestamp)
	bufferedSeconds := baseSeconds * window.multiplier

	eta := current.Timestamp.Add(time.Duration(bufferedSeconds * float64(time.Second)))

	delay := eta.Sub(visit.EstimatedArrival).Minutes()

	detail := &Detail{
		ETA:              eta,
		DistanceMeters:   matrix.Distances[0][1],
		BaseDuration:     time.Duration(baseSeconds * float64(time.Second)),
		BufferedDuration: time.Duration(bufferedSeconds * float64(time.Second)),
		Period:           window.label,
		PlannedArrival:   visit.EstimatedArrival,
		DelayMinutes:     delay,
		IsDelayed:        delay > 5,
	}

	detail.Significant = e.recordCacheState(ctx, visitID, *detail)

	return detail, nil
}

// cachedETA is the wire shape stored behind the per-visit ETA cache key.
type cachedETA struct {
	ETA time.Time `json:"eta"`
}

func etaCacheKey(visitID int64) string {
	return fmt.Sprintf("eta:visit:%d", visitID)
}

// recordCacheState writes the freshly computed ETA to the cache and
// reports whether it differs from the prior cached value by at least
// significantETAChange, the event that gates downstream notifications.
func (e *ETACalculator) recordCacheState(ctx context.Context, visitID int64, detail Detail) bool {
	if e.cache == nil {
		return true
	}

	key := etaCacheKey(visitID)
	significant := true

	if data, err := e.cache.Get(ctx, key); err == nil {
		var prev cachedETA
		if json.Unmarshal(data, &prev) == nil {
			delta := detail.ETA.Sub(prev.ETA)
			if delta < 0 {
				delta = -delta
			}
			significant = delta >= significantETAChange
			metrics.Get().ETACacheHits.WithLabelValues("hit").Inc()
		}
	} else {
		metrics.Get().ETACacheHits.WithLabelValues("miss").Inc()
	}

	if data, err := json.Marshal(cachedETA{ETA: detail.ETA}); err == nil {
		_ = e.cache.Set(ctx, key, data, e.cacheTTL)
	}

	return significant
}
