package optimize

import (
	"context"
	"time"

	"dispatch/internal/distance"
	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
	"dispatch/pkg/logger"
	"dispatch/pkg/metrics"
	"dispatch/pkg/telemetry"
)

// Request is the input to Service.Optimize, mirroring the
// POST /routes/optimize payload the (out-of-scope) HTTP surface accepts.
type Request struct {
	CaseIDs             []int64
	VehicleIDs          []int64
	RouteDate           string // YYYY-MM-DD
	MaxOptimizationTime time.Duration
}

// Outcome is what Service.Optimize returns, mirroring the
// POST /routes/optimize response body.
type Outcome struct {
	Success                 bool
	RouteIDs                []int64
	UnassignedCaseIDs       []int64
	ConstraintViolations    []Violation
	OptimizationTimeSeconds float64
	StrategyUsed            string
	TotalDistanceKM         float64
	TotalTimeMinutes        float64
	SkillGapAnalysis        SkillGapReport
}

// Service loads entities, acquires a distance matrix, runs the CP
// strategy, and persists the result in one transaction. The heuristic
// strategy exists but is not used as an automatic fallback here:
// partial CP success is preferred over falling back.
type Service struct {
	repo     Repository
	distance *distance.Service
}

// NewService wires a Service against its repository and distance service.
func NewService(repo Repository, distanceService *distance.Service) *Service {
	return &Service{repo: repo, distance: distanceService}
}

// Optimize runs one end-to-end solve for req.
func (s *Service) Optimize(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "optimize.Service.Optimize")
	defer span.End()

	start := time.Now()

	cases, vehicles, personnel, err := s.loadEntities(ctx, req)
	if err != nil {
		telemetry.SetError(ctx, err)
		return Outcome{}, err
	}

	if len(vehicles) == 0 {
		return Outcome{}, apperror.InvalidInput("vehicle_ids", "no active vehicles resolved for optimization")
	}

	vehicleIDs := make([]int64, len(vehicles))
	vehicleCapacities := make(map[int64]int, len(vehicles))
	for i, v := range vehicles {
		vehicleIDs[i] = v.ID
		vehicleCapacities[v.ID] = v.CapacityPersonnel
	}

	candidatePersonnel := make([]CandidatePersonnel, len(personnel))
	for i, p := range personnel {
		candidatePersonnel[i] = CandidatePersonnel{PersonnelID: p.ID, Skills: p.Skills}
	}

	assignment := AssignPersonnel(candidatePersonnel, vehicleIDs, vehicleCapacities)

	candidateVehicles := make([]CandidateVehicle, len(vehicles))
	for i, v := range vehicles {
		candidateVehicles[i] = CandidateVehicle{
			VehicleID:    v.ID,
			BaseLocation: v.BaseLocation,
			Capacity:     v.CapacityPersonnel,
			Personnel:    assignment[v.ID],
		}
	}

	candidateCases, err := s.candidateCases(ctx, cases)
	if err != nil {
		telemetry.SetError(ctx, err)
		return Outcome{}, err
	}

	routeDate, err := time.Parse("2006-01-02", req.RouteDate)
	if err != nil {
		return Outcome{}, apperror.InvalidInput("date", "must be formatted YYYY-MM-DD")
	}

	locations := make([]domain.Location, 0, len(vehicles)+len(candidateCases))
	for _, v := range vehicles {
		locations = append(locations, v.BaseLocation)
	}
	for _, c := range candidateCases {
		locations = append(locations, c.Location)
	}

	var departure time.Time
	if s.distance.TrafficCapable() {
		departure = nextMorning(routeDate, 8, 0)
	}

	matrix, err := s.distance.CalculateMatrix(ctx, locations, departure, "", false)
	if err != nil {
		telemetry.SetError(ctx, err)
		return Outcome{}, err
	}

	timeLimit := req.MaxOptimizationTime
	if timeLimit < 120*time.Second {
		timeLimit = 120 * time.Second
	}

	result, err := RunCPStrategy(ctx, candidateVehicles, candidateCases, matrix, timeLimit, routeDate)
	if err != nil {
		telemetry.SetError(ctx, err)
		return Outcome{}, err
	}

	elapsed := time.Since(start).Seconds()

	availableSkills := domain.NewSkillSet()
	for _, p := range candidatePersonnel {
		availableSkills = availableSkills.Union(p.Skills)
	}
	gapReport := AnalyzeSkillGaps(candidateCases, result.UnassignedCases, availableSkills)

	m := metrics.Get()
	m.SolveOperationsTotal.WithLabelValues(result.StrategyUsed, successLabel(result.Success)).Inc()
	m.SolveDuration.WithLabelValues(result.StrategyUsed).Observe(elapsed)
	m.RoutesCreated.WithLabelValues(result.StrategyUsed).Observe(float64(len(result.Routes)))
	m.UnassignedCases.WithLabelValues(result.StrategyUsed).Observe(float64(len(result.UnassignedCases)))

	span.SetAttributes(telemetry.OptimizeAttributes(result.StrategyUsed, len(candidateCases), len(vehicles), len(result.Routes))...)

	if !result.Success {
		logger.Log.Warn("optimization produced no routes",
			"case_count", len(candidateCases), "vehicle_count", len(vehicles))
		return Outcome{
			Success:                 false,
			UnassignedCaseIDs:       result.UnassignedCases,
			ConstraintViolations:    result.Violations,
			OptimizationTimeSeconds: elapsed,
			StrategyUsed:            result.StrategyUsed,
			SkillGapAnalysis:        gapReport,
		}, nil
	}

	var totalDistance, totalDuration float64
	for _, r := range result.Routes {
		totalDistance += r.TotalDistanceKM
		totalDuration += r.TotalDurationMinutes
	}

	plan := Plan{
		RouteDate: req.RouteDate,
		Routes:    result.Routes,
		Metrics: OptimizationMetrics{
			StrategyUsed:         result.StrategyUsed,
			Success:              true,
			ElapsedSeconds:       elapsed,
			TotalDistanceKM:      totalDistance,
			TotalDurationMinutes: totalDuration,
			UnassignedCaseIDs:    result.UnassignedCases,
			ConstraintViolations: result.Violations,
			SkillGapAnalysis:     gapReport,
		},
	}

	routeIDs, err := s.repo.CommitPlan(ctx, plan)
	if err != nil {
		telemetry.SetError(ctx, err)
		return Outcome{}, apperror.Wrap(apperror.CodeInternal, err, "failed to persist optimization plan")
	}

	logger.Log.Info("optimization committed",
		"route_count", len(routeIDs), "unassigned_count", len(result.UnassignedCases),
		"strategy", result.StrategyUsed, "elapsed_seconds", elapsed)

	return Outcome{
		Success:                 true,
		RouteIDs:                routeIDs,
		UnassignedCaseIDs:       result.UnassignedCases,
		ConstraintViolations:    result.Violations,
		OptimizationTimeSeconds: elapsed,
		StrategyUsed:            result.StrategyUsed,
		TotalDistanceKM:         totalDistance,
		TotalTimeMinutes:        totalDuration,
		SkillGapAnalysis:        gapReport,
	}, nil
}

func (s *Service) loadEntities(ctx context.Context, req Request) ([]domain.Case, []domain.Vehicle, []domain.Personnel, error) {
	cases, err := s.repo.LoadCases(ctx, req.CaseIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	vehicles, err := s.repo.LoadVehicles(ctx, req.VehicleIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	personnel, err := s.repo.LoadActivePersonnel(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return cases, vehicles, personnel, nil
}

// candidateCases converts persisted Cases into the optimizer's value
// type, resolving each case's required skills through its CareType.
func (s *Service) candidateCases(ctx context.Context, cases []domain.Case) ([]CandidateCase, error) {
	careTypeCache := make(map[int64]domain.CareType)
	out := make([]CandidateCase, len(cases))
	for i, c := range cases {
		ct, ok := careTypeCache[c.CareTypeID]
		if !ok {
			var err error
			ct, err = s.repo.LoadCareType(ctx, c.CareTypeID)
			if err != nil {
				return nil, err
			}
			careTypeCache[c.CareTypeID] = ct
		}
		out[i] = CandidateCase{
			CaseID:          c.ID,
			Location:        c.Location,
			Window:          c.Window,
			RequiredSkills:  ct.RequiredSkills,
			DurationMinutes: c.EstimatedDurationMinutes,
			Priority:        c.Priority,
		}
	}
	return out, nil
}

func nextMorning(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func successLabel(success bool) string {
	if success {
		return "true"
	}
	return "false"
}
