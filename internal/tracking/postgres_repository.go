package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dispatch/pkg/apperror"
	"dispatch/pkg/database"
	"dispatch/pkg/domain"
)

// PostgresLocationRepository is the LocationRepository the ingestor
// depends on,
// backed by the location_logs table (pkg/database/migrations).
type PostgresLocationRepository struct {
	db database.DB
}

// NewPostgresLocationRepository wires a PostgresLocationRepository against db.
func NewPostgresLocationRepository(db database.DB) *PostgresLocationRepository {
	return &PostgresLocationRepository{db: db}
}

// VehicleExists implements LocationRepository.
func (r *PostgresLocationRepository) VehicleExists(ctx context.Context, vehicleID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)`, vehicleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vehicle exists: %w", err)
	}
	return exists, nil
}

// InsertLocation implements LocationRepository.
func (r *PostgresLocationRepository) InsertLocation(ctx context.Context, log domain.LocationLog) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO location_logs (vehicle_id, latitude, longitude, speed_kmh, heading_degrees, accuracy_meters, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		log.VehicleID, log.Location.Latitude, log.Location.Longitude,
		log.SpeedKMH, log.HeadingDegrees, log.AccuracyMeters, log.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert location log: %w", err)
	}
	return id, nil
}

func scanLocationLog(row interface {
	Scan(dest ...any) error
}) (domain.LocationLog, error) {
	var (
		id, vehicleID            int64
		lat, lon                 float64
		speed, heading, accuracy *float64
		recordedAt               time.Time
	)
	if err := row.Scan(&id, &vehicleID, &lat, &lon, &speed, &heading, &accuracy, &recordedAt); err != nil {
		return domain.LocationLog{}, err
	}
	loc, err := domain.NewLocation(lat, lon)
	if err != nil {
		return domain.LocationLog{}, err
	}
	return domain.NewLocationLog(id, vehicleID, loc, speed, heading, accuracy, recordedAt)
}

// LatestLocation implements LocationRepository.
func (r *PostgresLocationRepository) LatestLocation(ctx context.Context, vehicleID int64) (*domain.LocationLog, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, vehicle_id, latitude, longitude, speed_kmh, heading_degrees, accuracy_meters, recorded_at
		FROM location_logs
		WHERE vehicle_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, vehicleID)
	log, err := scanLocationLog(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest location: %w", err)
	}
	return &log, nil
}

// LocationHistory implements LocationRepository.
func (r *PostgresLocationRepository) LocationHistory(ctx context.Context, vehicleID int64, start, end *time.Time, limit int) ([]domain.LocationLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, vehicle_id, latitude, longitude, speed_kmh, heading_degrees, accuracy_meters, recorded_at
		FROM location_logs
		WHERE vehicle_id = $1
		  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		  AND ($3::timestamptz IS NULL OR recorded_at < $3)
		ORDER BY recorded_at DESC
		LIMIT $4`, vehicleID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("load location history: %w", err)
	}
	defer rows.Close()

	var out []domain.LocationLog
	for rows.Next() {
		log, err := scanLocationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location log: %w", err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// LatestPerVehicle implements LocationRepository.
func (r *PostgresLocationRepository) LatestPerVehicle(ctx context.Context, maxAge time.Duration) ([]domain.LocationLog, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (vehicle_id)
		       id, vehicle_id, latitude, longitude, speed_kmh, heading_degrees, accuracy_meters, recorded_at
		FROM location_logs
		WHERE recorded_at >= $1
		ORDER BY vehicle_id, recorded_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load latest per vehicle: %w", err)
	}
	defer rows.Close()

	var out []domain.LocationLog
	for rows.Next() {
		log, err := scanLocationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location log: %w", err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// DeleteOlderThan implements LocationRepository.
func (r *PostgresLocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM location_logs WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old location logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PostgresRouteRepository is the RouteRepository the tracker, ETA
// calculator and delay detector depend on,
// backed by the routes/visits/cases tables.
type PostgresRouteRepository struct {
	db database.DB
}

// NewPostgresRouteRepository wires a PostgresRouteRepository against db.
func NewPostgresRouteRepository(db database.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{db: db}
}

// LoadRoute implements RouteRepository, including every Visit on the route.
func (r *PostgresRouteRepository) LoadRoute(ctx context.Context, routeID int64) (domain.Route, error) {
	var (
		vehicleID    int64
		routeDate    string
		status       string
	)
	err := r.db.QueryRow(ctx, `
		SELECT vehicle_id, route_date::text, status FROM routes WHERE id = $1`, routeID).
		Scan(&vehicleID, &routeDate, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Route{}, apperror.NotFound("route", routeID)
		}
		return domain.Route{}, fmt.Errorf("load route: %w", err)
	}

	visits, err := r.loadVisitsForRoute(ctx, routeID)
	if err != nil {
		return domain.Route{}, err
	}

	return domain.Route{
		ID:        routeID,
		VehicleID: vehicleID,
		RouteDate: routeDate,
		Status:    domain.RouteStatus(status),
		Visits:    visits,
	}, nil
}

func (r *PostgresRouteRepository) loadVisitsForRoute(ctx context.Context, routeID int64) ([]domain.Visit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, route_id, case_id, sequence_number, estimated_arrival, estimated_departure,
		       actual_arrival, actual_departure, status, COALESCE(notes, '')
		FROM visits
		WHERE route_id = $1
		ORDER BY sequence_number`, routeID)
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}
	defer rows.Close()

	var out []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVisit(row interface {
	Scan(dest ...any) error
}) (domain.Visit, error) {
	var (
		id, routeID, caseID                  int64
		sequence                             int
		estimatedArrival, estimatedDeparture time.Time
		actualArrival, actualDeparture       *time.Time
		status, notes                        string
	)
	if err := row.Scan(&id, &routeID, &caseID, &sequence, &estimatedArrival, &estimatedDeparture,
		&actualArrival, &actualDeparture, &status, &notes); err != nil {
		return domain.Visit{}, err
	}
	return domain.Visit{
		ID:                 id,
		RouteID:            routeID,
		CaseID:             caseID,
		SequenceNumber:     sequence,
		EstimatedArrival:   estimatedArrival,
		EstimatedDeparture: estimatedDeparture,
		ActualArrival:      actualArrival,
		ActualDeparture:    actualDeparture,
		Status:             domain.VisitStatus(status),
		Notes:              notes,
	}, nil
}

// LoadVisit implements RouteRepository.
func (r *PostgresRouteRepository) LoadVisit(ctx context.Context, visitID int64) (domain.Visit, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, route_id, case_id, sequence_number, estimated_arrival, estimated_departure,
		       actual_arrival, actual_departure, status, COALESCE(notes, '')
		FROM visits
		WHERE id = $1`, visitID)
	v, err := scanVisit(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Visit{}, apperror.NotFound("visit", visitID)
		}
		return domain.Visit{}, fmt.Errorf("load visit: %w", err)
	}
	return v, nil
}

// SaveVisit implements RouteRepository.
func (r *PostgresRouteRepository) SaveVisit(ctx context.Context, visit domain.Visit) error {
	_, err := r.db.Exec(ctx, `
		UPDATE visits
		SET status = $1, actual_arrival = $2, actual_departure = $3, notes = $4
		WHERE id = $5`,
		string(visit.Status), visit.ActualArrival, visit.ActualDeparture, visit.Notes, visit.ID)
	if err != nil {
		return fmt.Errorf("save visit: %w", err)
	}
	return nil
}

// SaveRouteStatus implements RouteRepository.
func (r *PostgresRouteRepository) SaveRouteStatus(ctx context.Context, routeID int64, status domain.RouteStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE routes SET status = $1 WHERE id = $2`, string(status), routeID)
	if err != nil {
		return fmt.Errorf("save route status: %w", err)
	}
	return nil
}

// LoadCase implements RouteRepository.
func (r *PostgresRouteRepository) LoadCase(ctx context.Context, caseID int64) (domain.Case, error) {
	var (
		patientID, careTypeID                       int64
		scheduledDate, windowType, priority, status string
		windowStart, windowEnd, durationMinutes     int
		lat, lon                                    float64
	)
	err := r.db.QueryRow(ctx, `
		SELECT patient_id, care_type_id, scheduled_date::text, time_window_type,
		       window_start_minutes, window_end_minutes, latitude, longitude,
		       priority, status, estimated_duration_minutes
		FROM cases WHERE id = $1`, caseID).
		Scan(&patientID, &careTypeID, &scheduledDate, &windowType, &windowStart, &windowEnd,
			&lat, &lon, &priority, &status, &durationMinutes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Case{}, apperror.NotFound("case", caseID)
		}
		return domain.Case{}, fmt.Errorf("load case: %w", err)
	}

	loc, err := domain.NewLocation(lat, lon)
	if err != nil {
		return domain.Case{}, err
	}
	window, err := domain.NewTimeWindow(domain.ClockTime(windowStart), domain.ClockTime(windowEnd))
	if err != nil {
		return domain.Case{}, err
	}

	return domain.Case{
		ID:                       caseID,
		PatientID:                patientID,
		CareTypeID:               careTypeID,
		ScheduledDate:            scheduledDate,
		TimeWindowType:           domain.TimeWindowType(windowType),
		Window:                   window,
		Location:                 loc,
		Priority:                 domain.CasePriority(priority),
		Status:                   domain.CaseStatus(status),
		EstimatedDurationMinutes: durationMinutes,
	}, nil
}

// SaveCaseStatus implements RouteRepository.
func (r *PostgresRouteRepository) SaveCaseStatus(ctx context.Context, caseID int64, status domain.CaseStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE cases SET status = $1 WHERE id = $2`, string(status), caseID)
	if err != nil {
		return fmt.Errorf("save case status: %w", err)
	}
	return nil
}
