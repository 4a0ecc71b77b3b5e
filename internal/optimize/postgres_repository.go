package optimize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dispatch/pkg/apperror"
	"dispatch/pkg/database"
	"dispatch/pkg/domain"
)

// PostgresRepository is the Repository backed by the Postgres schema in
// pkg/database/migrations. It only reads/writes the columns this core
// needs; the wider relational surface belongs to the CRUD services.
type PostgresRepository struct {
	db database.DB
}

// NewPostgresRepository wires a PostgresRepository against db.
func NewPostgresRepository(db database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LoadCases implements Repository.
func (r *PostgresRepository) LoadCases(ctx context.Context, caseIDs []int64) ([]domain.Case, error) {
	if len(caseIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, care_type_id, scheduled_date::text, time_window_type,
		       window_start_minutes, window_end_minutes, latitude, longitude,
		       priority, status, estimated_duration_minutes
		FROM cases
		WHERE id = ANY($1) AND status IN ('pending', 'assigned')`, caseIDs)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	defer rows.Close()

	var out []domain.Case
	for rows.Next() {
		var (
			id, patientID, careTypeID                 int64
			scheduledDate, windowType, priority, status string
			windowStart, windowEnd, durationMinutes     int
			lat, lon                                    float64
		)
		if err := rows.Scan(&id, &patientID, &careTypeID, &scheduledDate, &windowType,
			&windowStart, &windowEnd, &lat, &lon, &priority, &status, &durationMinutes); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}

		loc, err := domain.NewLocation(lat, lon)
		if err != nil {
			return nil, err
		}
		window, err := domain.NewTimeWindow(domain.ClockTime(windowStart), domain.ClockTime(windowEnd))
		if err != nil {
			return nil, err
		}

		c := domain.Case{
			ID:                       id,
			PatientID:                patientID,
			CareTypeID:               careTypeID,
			ScheduledDate:            scheduledDate,
			TimeWindowType:           domain.TimeWindowType(windowType),
			Window:                   window,
			Location:                 loc,
			Priority:                 domain.CasePriority(priority),
			Status:                   domain.CaseStatus(status),
			EstimatedDurationMinutes: durationMinutes,
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadCareType implements Repository.
func (r *PostgresRepository) LoadCareType(ctx context.Context, careTypeID int64) (domain.CareType, error) {
	var name string
	var durationMinutes int
	err := r.db.QueryRow(ctx, `
		SELECT name, estimated_duration_minutes FROM care_types WHERE id = $1`, careTypeID).
		Scan(&name, &durationMinutes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.CareType{}, apperror.NotFound("care_type", careTypeID)
		}
		return domain.CareType{}, fmt.Errorf("load care type: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT s.name FROM skills s
		JOIN care_type_skills cts ON cts.skill_id = s.id
		WHERE cts.care_type_id = $1`, careTypeID)
	if err != nil {
		return domain.CareType{}, fmt.Errorf("load care type skills: %w", err)
	}
	defer rows.Close()

	skills := domain.NewSkillSet()
	for rows.Next() {
		var skillName string
		if err := rows.Scan(&skillName); err != nil {
			return domain.CareType{}, err
		}
		skills.Add(skillName)
	}
	if err := rows.Err(); err != nil {
		return domain.CareType{}, err
	}

	return domain.NewCareType(careTypeID, name, durationMinutes, skills)
}

// LoadVehicles implements Repository.
func (r *PostgresRepository) LoadVehicles(ctx context.Context, vehicleIDs []int64) ([]domain.Vehicle, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, identifier, capacity_personnel, base_latitude, base_longitude,
		       status, resources, is_active
		FROM vehicles
		WHERE id = ANY($1) AND is_active`, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		var (
			id                int64
			identifier        string
			capacity          int
			lat, lon          float64
			status            string
			resources         []string
			isActive          bool
		)
		if err := rows.Scan(&id, &identifier, &capacity, &lat, &lon, &status, &resources, &isActive); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		loc, err := domain.NewLocation(lat, lon)
		if err != nil {
			return nil, err
		}
		resourceSet := make(map[string]struct{}, len(resources))
		for _, res := range resources {
			resourceSet[res] = struct{}{}
		}
		v, err := domain.NewVehicle(id, identifier, capacity, loc, domain.VehicleStatus(status), resourceSet, isActive)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LoadActivePersonnel implements Repository.
func (r *PostgresRepository) LoadActivePersonnel(ctx context.Context) ([]domain.Personnel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, work_start_minutes, work_end_minutes,
		       start_latitude, start_longitude, is_active
		FROM personnel
		WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("load personnel: %w", err)
	}
	defer rows.Close()

	type row struct {
		id                  int64
		name                string
		workStart, workEnd  int
		lat, lon            *float64
		isActive            bool
	}
	var rawRows []row
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.id, &rr.name, &rr.workStart, &rr.workEnd, &rr.lat, &rr.lon, &rr.isActive); err != nil {
			return nil, fmt.Errorf("scan personnel: %w", err)
		}
		rawRows = append(rawRows, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Personnel, 0, len(rawRows))
	for _, rr := range rawRows {
		skills, err := r.personnelSkills(ctx, rr.id)
		if err != nil {
			return nil, err
		}
		var start domain.Location
		if rr.lat != nil && rr.lon != nil {
			start, err = domain.NewLocation(*rr.lat, *rr.lon)
			if err != nil {
				return nil, err
			}
		}
		p, err := domain.NewPersonnel(rr.id, rr.name, skills, domain.ClockTime(rr.workStart), domain.ClockTime(rr.workEnd), start, rr.isActive)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PostgresRepository) personnelSkills(ctx context.Context, personnelID int64) (domain.SkillSet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.name FROM skills s
		JOIN personnel_skills ps ON ps.skill_id = s.id
		WHERE ps.personnel_id = $1`, personnelID)
	if err != nil {
		return nil, fmt.Errorf("load personnel skills: %w", err)
	}
	defer rows.Close()

	skills := domain.NewSkillSet()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		skills.Add(name)
	}
	return skills, rows.Err()
}

// CommitPlan implements Repository: one transaction writes every Route,
// its RoutePersonnel joins and Visit rows, flips the referenced cases to
// assigned, and records the run's OptimizationMetrics.
func (r *PostgresRepository) CommitPlan(ctx context.Context, plan Plan) ([]int64, error) {
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) ([]int64, error) {
		routeIDs := make([]int64, 0, len(plan.Routes))

		for _, planned := range plan.Routes {
			if len(planned.Visits) == 0 {
				continue // a route with zero visits is never persisted
			}

			var routeID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO routes (vehicle_id, route_date, status, total_distance_km, total_duration_minutes)
				VALUES ($1, $2, 'draft', $3, $4)
				RETURNING id`,
				planned.VehicleID, plan.RouteDate, planned.TotalDistanceKM, planned.TotalDurationMinutes).
				Scan(&routeID)
			if err != nil {
				return nil, fmt.Errorf("insert route: %w", err)
			}

			for _, personnelID := range planned.AssignedPersonnelIDs {
				if _, err := tx.Exec(ctx, `
					INSERT INTO route_personnel (route_id, personnel_id) VALUES ($1, $2)`,
					routeID, personnelID); err != nil {
					return nil, fmt.Errorf("insert route_personnel: %w", err)
				}
			}

			for _, v := range planned.Visits {
				if _, err := tx.Exec(ctx, `
					INSERT INTO visits (route_id, case_id, sequence_number, estimated_arrival, estimated_departure, status)
					VALUES ($1, $2, $3, $4, $5, 'pending')`,
					routeID, v.CaseID, v.SequenceNumber, v.EstimatedArrival, v.EstimatedDeparture); err != nil {
					return nil, fmt.Errorf("insert visit: %w", err)
				}
				if _, err := tx.Exec(ctx, `
					UPDATE cases SET status = 'assigned' WHERE id = $1`, v.CaseID); err != nil {
					return nil, fmt.Errorf("update case status: %w", err)
				}
			}

			routeIDs = append(routeIDs, routeID)
		}

		violations, err := json.Marshal(plan.Metrics.ConstraintViolations)
		if err != nil {
			return nil, err
		}
		skillGap, err := json.Marshal(plan.Metrics.SkillGapAnalysis)
		if err != nil {
			return nil, err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO optimization_metrics
				(route_date, strategy_used, success, optimization_time_seconds,
				 total_distance_km, total_time_minutes, unassigned_case_ids,
				 constraint_violations, skill_gap_analysis)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			plan.RouteDate, plan.Metrics.StrategyUsed, plan.Metrics.Success, plan.Metrics.ElapsedSeconds,
			plan.Metrics.TotalDistanceKM, plan.Metrics.TotalDurationMinutes, plan.Metrics.UnassignedCaseIDs,
			violations, skillGap); err != nil {
			return nil, fmt.Errorf("insert optimization_metrics: %w", err)
		}

		return routeIDs, nil
	})
}
