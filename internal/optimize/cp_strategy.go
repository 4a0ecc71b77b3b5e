package optimize

import (
	"context"
	"math"
	"sort"
	"time"

	"dispatch/internal/optimize/cpsolver"
	"dispatch/pkg/domain"
)

// skillGapDropPenalty is the arc-cost-unit penalty for dropping a case node
// that has at least one allowed vehicle. Pre-filtered
// infeasible cases never enter the model at all, so they never carry this
// penalty.
const skillGapDropPenalty = 100000.0

// RunCPStrategy is the primary solver. matrix must order its
// locations as [vehicle bases in vehicles order][case locations in cases
// order], the same convention the optimization service uses when it
// asks the distance service for a matrix.
func RunCPStrategy(ctx context.Context, vehicles []CandidateVehicle, cases []CandidateCase, matrix domain.DistanceMatrix, requestedTimeLimit time.Duration, routeDate time.Time) (Result, error) {
	numVehicles := len(vehicles)
	if numVehicles == 0 {
		return Result{
			Success:         false,
			StrategyUsed:    "cp",
			UnassignedCases: caseIDs(cases),
			Violations:      []Violation{{Code: "no_vehicles", Message: "no active vehicles available"}},
		}, nil
	}

	var included []int // positions in `cases` that survive the skill pre-filter
	var prefiltered []int64
	allowedByCase := make(map[int][]int, len(cases))

	for i, c := range cases {
		var allowed []int
		for v, veh := range vehicles {
			if c.RequiredSkills.IsSubsetOf(veh.TeamSkills()) {
				allowed = append(allowed, v)
			}
		}
		if len(allowed) == 0 {
			prefiltered = append(prefiltered, c.CaseID)
			continue
		}
		allowedByCase[i] = allowed
		included = append(included, i)
	}

	if len(included) == 0 {
		return Result{
			Success:         false,
			StrategyUsed:    "cp",
			UnassignedCases: caseIDs(cases),
			Violations:      skillViolations(prefiltered),
		}, nil
	}

	capFloor := int(math.Ceil(float64(len(cases)) / float64(numVehicles)))
	vehicleCapacity := make([]int, numVehicles)
	for v, veh := range vehicles {
		cap := veh.Capacity
		if capFloor > cap {
			cap = capFloor
		}
		if cap < 3 {
			cap = 3
		}
		vehicleCapacity[v] = cap
	}

	caseNodes := make([]cpsolver.CaseNode, len(included))
	for idx, pos := range included {
		caseNodes[idx] = cpsolver.CaseNode{
			CaseID:          cases[pos].CaseID,
			AllowedVehicles: allowedByCase[pos],
			DropPenalty:     skillGapDropPenalty,
		}
	}

	distances := reduceMatrix(matrix, numVehicles, included)

	timeLimit := requestedTimeLimit
	if timeLimit < 120*time.Second {
		timeLimit = 120 * time.Second
	}

	model := cpsolver.Model{
		NumVehicles:     numVehicles,
		CaseNodes:       caseNodes,
		Distances:       distances,
		VehicleCapacity: vehicleCapacity,
		TimeLimit:       timeLimit,
		SolutionLimit:   50000,
	}

	solution, err := cpsolver.Solve(ctx, model)
	if err != nil {
		return Result{}, err
	}

	if solution.Status == cpsolver.StatusInfeasible || solution.Status == cpsolver.StatusNoSolution {
		violations := skillViolations(prefiltered)
		violations = append(violations, Violation{Code: "infeasible", Message: "solver found no feasible route"})
		return Result{
			Success:         false,
			StrategyUsed:    "cp",
			UnassignedCases: caseIDs(cases),
			Violations:      violations,
		}, nil
	}

	routes := make([]PlannedRoute, 0, len(solution.Routes))
	assigned := make(map[int64]bool)

	for _, r := range solution.Routes {
		if len(r.CaseOffsets) == 0 {
			continue
		}
		vehicle := vehicles[r.VehicleIndex]

		visits := make([]PlannedVisit, len(r.CaseOffsets))
		clock := WorkStartMinutes
		prevNode := r.VehicleIndex
		totalDistanceM := 0.0

		for seqIdx, offset := range r.CaseOffsets {
			c := cases[included[offset]]
			node := numVehicles + offset
			meters := distances[prevNode][node]
			totalDistanceM += meters

			arrival := clock + travelMinutes(meters/1000.0)
			departure := arrival + c.DurationMinutes

			visits[seqIdx] = PlannedVisit{
				CaseID:             c.CaseID,
				SequenceNumber:     seqIdx,
				EstimatedArrival:   routeDate.Add(time.Duration(arrival) * time.Minute),
				EstimatedDeparture: routeDate.Add(time.Duration(departure) * time.Minute),
			}

			clock = departure
			prevNode = node
			assigned[c.CaseID] = true
		}

		personnelIDs := make([]int64, len(vehicle.Personnel))
		for i, p := range vehicle.Personnel {
			personnelIDs[i] = p.PersonnelID
		}

		routes = append(routes, PlannedRoute{
			VehicleID:            vehicle.VehicleID,
			Visits:                visits,
			AssignedPersonnelIDs: personnelIDs,
			TotalDistanceKM:      totalDistanceM / 1000.0,
			TotalDurationMinutes: float64(clock - WorkStartMinutes),
		})
	}

	unassigned := append([]int64{}, prefiltered...)
	for _, pos := range included {
		if !assigned[cases[pos].CaseID] {
			unassigned = append(unassigned, cases[pos].CaseID)
		}
	}
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i] < unassigned[j] })

	return Result{
		Success:         len(routes) >= 1,
		StrategyUsed:    "cp",
		Routes:          routes,
		UnassignedCases: unassigned,
		Violations:      skillViolations(prefiltered),
	}, nil
}

// reduceMatrix projects the full distance matrix (ordered depots, then every
// candidate case including pre-filtered ones) down to just the depots and
// the cases that survived the skill pre-filter.
func reduceMatrix(matrix domain.DistanceMatrix, numVehicles int, included []int) [][]float64 {
	n := numVehicles + len(included)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}

	for i := 0; i < numVehicles; i++ {
		for j := 0; j < numVehicles; j++ {
			out[i][j] = matrix.Distances[i][j]
		}
	}
	for idx, pos := range included {
		fullNode := numVehicles + pos
		modelNode := numVehicles + idx
		for i := 0; i < numVehicles; i++ {
			out[i][modelNode] = matrix.Distances[i][fullNode]
			out[modelNode][i] = matrix.Distances[fullNode][i]
		}
	}
	for idx1, pos1 := range included {
		for idx2, pos2 := range included {
			out[numVehicles+idx1][numVehicles+idx2] = matrix.Distances[numVehicles+pos1][numVehicles+pos2]
		}
	}

	return out
}

func caseIDs(cases []CandidateCase) []int64 {
	ids := make([]int64, len(cases))
	for i, c := range cases {
		ids[i] = c.CaseID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func skillViolations(prefiltered []int64) []Violation {
	violations := make([]Violation, 0, len(prefiltered))
	for _, id := range prefiltered {
		id := id
		violations = append(violations, Violation{Code: "skill_mismatch", CaseID: &id, Message: "no vehicle team covers required skills"})
	}
	return violations
}
