package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"dispatch/internal/geo"
	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
	"dispatch/pkg/logger"
	"dispatch/pkg/metrics"
)

// maxHistoryLimit bounds LocationIngestor.History regardless of what a
// caller requests.
const maxHistoryLimit = 1000

// defaultRetentionDays is Cleanup's default retention window.
const defaultRetentionDays = 90

// LocationIngestor validates and stores GPS samples per
// vehicle. Writes are serialized per vehicle so Current
// stays monotonic in timestamp even if samples arrive out of order
// across concurrent callers.
type LocationIngestor struct {
	repo LocationRepository

	mu         sync.Mutex
	vehicleMus map[int64]*sync.Mutex
}

// NewLocationIngestor wires a LocationIngestor against repo.
func NewLocationIngestor(repo LocationRepository) *LocationIngestor {
	return &LocationIngestor{repo: repo, vehicleMus: make(map[int64]*sync.Mutex)}
}

func (i *LocationIngestor) lockFor(vehicleID int64) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	m, ok := i.vehicleMus[vehicleID]
	if !ok {
		m = &sync.Mutex{}
		i.vehicleMus[vehicleID] = m
	}
	return m
}

// Record validates and persists one GPS sample. timestamp
// defaults to now when zero.
func (i *LocationIngestor) Record(ctx context.Context, vehicleID int64, lat, lon float64, speedKMH, headingDegrees, accuracyMeters *float64, timestamp time.Time) (domain.LocationLog, error) {
	exists, err := i.repo.VehicleExists(ctx, vehicleID)
	if err != nil {
		return domain.LocationLog{}, err
	}
	if !exists {
		metrics.Get().LocationSamplesTotal.WithLabelValues("not_found").Inc()
		return domain.LocationLog{}, apperror.NotFound("vehicle", vehicleID)
	}

	loc, err := domain.NewLocation(lat, lon)
	if err != nil {
		metrics.Get().LocationSamplesTotal.WithLabelValues("invalid").Inc()
		return domain.LocationLog{}, err
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sample, err := domain.NewLocationLog(0, vehicleID, loc, speedKMH, headingDegrees, accuracyMeters, timestamp)
	if err != nil {
		metrics.Get().LocationSamplesTotal.WithLabelValues("invalid").Inc()
		return domain.LocationLog{}, err
	}

	mu := i.lockFor(vehicleID)
	mu.Lock()
	defer mu.Unlock()

	id, err := i.repo.InsertLocation(ctx, sample)
	if err != nil {
		metrics.Get().LocationSamplesTotal.WithLabelValues("error").Inc()
		return domain.LocationLog{}, err
	}
	sample.ID = id

	metrics.Get().LocationSamplesTotal.WithLabelValues("accepted").Inc()
	logger.WithVehicle(vehicleID).Debug("location sample recorded", "lat", lat, "lon", lon)

	return sample, nil
}

// Current returns vehicleID's most recent sample.
func (i *LocationIngestor) Current(ctx context.Context, vehicleID int64) (*domain.LocationLog, error) {
	return i.repo.LatestLocation(ctx, vehicleID)
}

// History returns vehicleID's samples newest-first within [start, end),
// capped at maxHistoryLimit regardless of the requested limit.
func (i *LocationIngestor) History(ctx context.Context, vehicleID int64, start, end *time.Time, limit int) ([]domain.LocationLog, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return i.repo.LocationHistory(ctx, vehicleID, start, end, limit)
}

// Nearby returns the freshest-per-vehicle samples within radiusMeters of
// (lat, lon) and no older than maxAge, using a bounding-box pre-filter
// before the exact geodesic check.
func (i *LocationIngestor) Nearby(ctx context.Context, lat, lon, radiusMeters float64, maxAge time.Duration) ([]domain.LocationLog, error) {
	center, err := domain.NewLocation(lat, lon)
	if err != nil {
		return nil, err
	}

	candidates, err := i.repo.LatestPerVehicle(ctx, maxAge)
	if err != nil {
		return nil, err
	}

	box := geo.BoundingBoxAround(center, radiusMeters)

	var out []domain.LocationLog
	for _, sample := range candidates {
		if !box.Contains(sample.Location) {
			continue
		}
		if geo.Haversine(center, sample.Location) <= radiusMeters {
			out = append(out, sample)
		}
	}

	sort.Slice(out, func(a, b int) bool { return out[a].VehicleID < out[b].VehicleID })
	return out, nil
}

// Cleanup deletes samples older than retentionDays (default 90),
// returning the count removed.
func (i *LocationIngestor) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	return i.repo.DeleteOlderThan(ctx, cutoff)
}
