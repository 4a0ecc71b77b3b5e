package tracking

import (
	"context"
	"sort"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
)

// fakeLocationRepository is an in-memory LocationRepository used across
// this package's tests, following the fakeRepository pattern in
// internal/optimize/service_test.go.
type fakeLocationRepository struct {
	vehicles map[int64]bool
	samples  []domain.LocationLog
	nextID   int64
}

func newFakeLocationRepository(vehicleIDs ...int64) *fakeLocationRepository {
	vehicles := make(map[int64]bool, len(vehicleIDs))
	for _, id := range vehicleIDs {
		vehicles[id] = true
	}
	return &fakeLocationRepository{vehicles: vehicles}
}

func (f *fakeLocationRepository) VehicleExists(ctx context.Context, vehicleID int64) (bool, error) {
	return f.vehicles[vehicleID], nil
}

func (f *fakeLocationRepository) InsertLocation(ctx context.Context, log domain.LocationLog) (int64, error) {
	f.nextID++
	log.ID = f.nextID
	f.samples = append(f.samples, log)
	return log.ID, nil
}

func (f *fakeLocationRepository) LatestLocation(ctx context.Context, vehicleID int64) (*domain.LocationLog, error) {
	var latest *domain.LocationLog
	for i := range f.samples {
		s := f.samples[i]
		if s.VehicleID != vehicleID {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			cp := s
			latest = &cp
		}
	}
	return latest, nil
}

func (f *fakeLocationRepository) LocationHistory(ctx context.Context, vehicleID int64, start, end *time.Time, limit int) ([]domain.LocationLog, error) {
	var out []domain.LocationLog
	for _, s := range f.samples {
		if s.VehicleID != vehicleID {
			continue
		}
		if start != nil && s.Timestamp.Before(*start) {
			continue
		}
		if end != nil && !s.Timestamp.Before(*end) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLocationRepository) LatestPerVehicle(ctx context.Context, maxAge time.Duration) ([]domain.LocationLog, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	latestByVehicle := make(map[int64]domain.LocationLog)
	for _, s := range f.samples {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		cur, ok := latestByVehicle[s.VehicleID]
		if !ok || s.Timestamp.After(cur.Timestamp) {
			latestByVehicle[s.VehicleID] = s
		}
	}
	out := make([]domain.LocationLog, 0, len(latestByVehicle))
	for _, v := range latestByVehicle {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

func (f *fakeLocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.LocationLog
	var removed int64
	for _, s := range f.samples {
		if s.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.samples = kept
	return removed, nil
}

// fakeRouteRepository is an in-memory RouteRepository.
type fakeRouteRepository struct {
	routes map[int64]domain.Route
	visits map[int64]domain.Visit
	cases  map[int64]domain.Case
}

func newFakeRouteRepository() *fakeRouteRepository {
	return &fakeRouteRepository{
		routes: make(map[int64]domain.Route),
		visits: make(map[int64]domain.Visit),
		cases:  make(map[int64]domain.Case),
	}
}

func (f *fakeRouteRepository) addRoute(route domain.Route) {
	f.routes[route.ID] = route
	for _, v := range route.Visits {
		f.visits[v.ID] = v
	}
}

func (f *fakeRouteRepository) addCase(c domain.Case) {
	f.cases[c.ID] = c
}

func (f *fakeRouteRepository) LoadRoute(ctx context.Context, routeID int64) (domain.Route, error) {
	route, ok := f.routes[routeID]
	if !ok {
		return domain.Route{}, apperror.NotFound("route", routeID)
	}
	visits := make([]domain.Visit, 0, len(route.Visits))
	for _, v := range route.Visits {
		visits = append(visits, f.visits[v.ID])
	}
	route.Visits = visits
	return route, nil
}

func (f *fakeRouteRepository) LoadVisit(ctx context.Context, visitID int64) (domain.Visit, error) {
	v, ok := f.visits[visitID]
	if !ok {
		return domain.Visit{}, apperror.NotFound("visit", visitID)
	}
	return v, nil
}

func (f *fakeRouteRepository) SaveVisit(ctx context.Context, visit domain.Visit) error {
	f.visits[visit.ID] = visit
	route := f.routes[visit.RouteID]
	for i, v := range route.Visits {
		if v.ID == visit.ID {
			route.Visits[i] = visit
		}
	}
	f.routes[visit.RouteID] = route
	return nil
}

func (f *fakeRouteRepository) SaveRouteStatus(ctx context.Context, routeID int64, status domain.RouteStatus) error {
	route := f.routes[routeID]
	route.Status = status
	f.routes[routeID] = route
	return nil
}

func (f *fakeRouteRepository) LoadCase(ctx context.Context, caseID int64) (domain.Case, error) {
	c, ok := f.cases[caseID]
	if !ok {
		return domain.Case{}, apperror.NotFound("case", caseID)
	}
	return c, nil
}

func (f *fakeRouteRepository) SaveCaseStatus(ctx context.Context, caseID int64, status domain.CaseStatus) error {
	c := f.cases[caseID]
	c.Status = status
	f.cases[caseID] = c
	return nil
}
