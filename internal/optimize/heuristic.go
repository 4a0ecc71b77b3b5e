package optimize

import (
	"math"
	"sort"
	"time"

	"dispatch/internal/geo"
	"dispatch/pkg/domain"
)

// RunHeuristic builds routes with nearest-neighbor construction followed by
// 2-opt improvement, one vehicle at a time in input order.
// It is available as a secondary strategy; the optimization service
// invokes the constraint-programming strategy as its primary path and keeps
// this one for direct callers and tests.
func RunHeuristic(vehicles []CandidateVehicle, cases []CandidateCase, allPersonnel []CandidatePersonnel, routeDate time.Time) Result {
	pool := make(map[int64]*CandidateCase, len(cases))
	for i := range cases {
		c := cases[i]
		pool[c.CaseID] = &c
	}

	var routes []PlannedRoute
	for _, vehicle := range vehicles {
		seq := constructRoute(vehicle, pool)
		if len(seq) == 0 {
			continue
		}
		seq = twoOptImprove(vehicle.BaseLocation, seq)

		personnelIDs := greedySetCover(unionRequiredSkills(seq), allPersonnel, vehicle.Capacity)
		visits, totalKM, totalMinutes := buildPlannedVisits(vehicle.BaseLocation, seq, routeDate)

		routes = append(routes, PlannedRoute{
			VehicleID:            vehicle.VehicleID,
			Visits:                visits,
			AssignedPersonnelIDs: personnelIDs,
			TotalDistanceKM:      totalKM,
			TotalDurationMinutes: totalMinutes,
		})
	}

	unassigned := make([]int64, 0, len(pool))
	for id := range pool {
		unassigned = append(unassigned, id)
	}
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i] < unassigned[j] })

	return Result{
		Success:         len(routes) > 0,
		StrategyUsed:    "heuristic",
		Routes:          routes,
		UnassignedCases: unassigned,
	}
}

// constructRoute runs nearest-neighbor construction for a single vehicle,
// claiming cases from the shared pool so no case is routed twice.
func constructRoute(vehicle CandidateVehicle, pool map[int64]*CandidateCase) []CandidateCase {
	teamSkills := vehicle.TeamSkills()
	var seq []CandidateCase
	current := vehicle.BaseLocation
	clock := WorkStartMinutes

	for vehicle.Capacity <= 0 || len(seq) < vehicle.Capacity {
		var bestID int64 = -1
		bestDistanceKM := math.MaxFloat64
		bestArrival := 0

		for id, c := range pool {
			if !c.RequiredSkills.IsSubsetOf(teamSkills) {
				continue
			}
			km := geo.Haversine(current, c.Location) / 1000.0
			arrival := clock + travelMinutes(km)
			if arrival < int(c.Window.Start) {
				arrival = int(c.Window.Start)
			}
			if arrival > int(c.Window.End) {
				continue
			}
			completion := arrival + c.DurationMinutes
			if completion > int(c.Window.End) || completion > WorkEndMinutes {
				continue
			}
			if km < bestDistanceKM {
				bestDistanceKM = km
				bestID = id
				bestArrival = arrival
			}
		}

		if bestID == -1 {
			break
		}

		chosen := *pool[bestID]
		seq = append(seq, chosen)
		delete(pool, bestID)
		clock = bestArrival + chosen.DurationMinutes
		current = chosen.Location
	}

	return seq
}

// evaluateSequence computes the total distance and per-stop arrival minutes
// for a candidate ordering, returning feasible=false the moment a stop
// misses its time window or the 17:00 hard bound.
func evaluateSequence(base domain.Location, seq []CandidateCase) (distanceKM float64, arrivals []int, feasible bool) {
	current := base
	clock := WorkStartMinutes
	arrivals = make([]int, len(seq))

	for i, c := range seq {
		km := geo.Haversine(current, c.Location) / 1000.0
		arrival := clock + travelMinutes(km)
		if arrival < int(c.Window.Start) {
			arrival = int(c.Window.Start)
		}
		if arrival > int(c.Window.End) {
			return distanceKM, nil, false
		}
		completion := arrival + c.DurationMinutes
		if completion > int(c.Window.End) || completion > WorkEndMinutes {
			return distanceKM, nil, false
		}

		arrivals[i] = arrival
		distanceKM += km
		clock = completion
		current = c.Location
	}

	return distanceKM, arrivals, true
}

// twoOptImprove repeatedly reverses contiguous sub-sequences, keeping a
// reversal only if it strictly shortens the route and stays feasible,
// capped at 100 outer passes per route.
func twoOptImprove(base domain.Location, seq []CandidateCase) []CandidateCase {
	if len(seq) < 3 {
		return seq
	}

	best := seq
	bestDistance, _, _ := evaluateSequence(base, best)

	for iter := 0; iter < 100; iter++ {
		improved := false

		for i := 0; i < len(best)-1; i++ {
			for j := i + 1; j < len(best); j++ {
				candidate := reversedSlice(best, i, j)
				distance, _, feasible := evaluateSequence(base, candidate)
				if feasible && distance < bestDistance {
					best = candidate
					bestDistance = distance
					improved = true
				}
			}
		}

		if !improved {
			break
		}
	}

	return best
}

func reversedSlice(seq []CandidateCase, i, j int) []CandidateCase {
	out := make([]CandidateCase, len(seq))
	copy(out, seq)
	for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
		out[lo], out[hi] = out[hi], out[lo]
	}
	return out
}

func buildPlannedVisits(base domain.Location, seq []CandidateCase, routeDate time.Time) ([]PlannedVisit, float64, float64) {
	distanceKM, arrivals, _ := evaluateSequence(base, seq)

	visits := make([]PlannedVisit, len(seq))
	lastDeparture := WorkStartMinutes
	for i, c := range seq {
		arrival := arrivals[i]
		departure := arrival + c.DurationMinutes
		visits[i] = PlannedVisit{
			CaseID:             c.CaseID,
			SequenceNumber:     i,
			EstimatedArrival:   routeDate.Add(time.Duration(arrival) * time.Minute),
			EstimatedDeparture: routeDate.Add(time.Duration(departure) * time.Minute),
		}
		lastDeparture = departure
	}

	totalMinutes := 0.0
	if len(seq) > 0 {
		totalMinutes = float64(lastDeparture - WorkStartMinutes)
	}

	return visits, distanceKM, totalMinutes
}

func unionRequiredSkills(seq []CandidateCase) domain.SkillSet {
	union := domain.NewSkillSet()
	for _, c := range seq {
		union = union.Union(c.RequiredSkills)
	}
	return union
}

// greedySetCover picks the smallest personnel subset (bounded by max) whose
// combined skills cover required, adding at each step whoever covers the
// most still-uncovered skills and breaking ties by lowest id.
func greedySetCover(required domain.SkillSet, pool []CandidatePersonnel, max int) []int64 {
	remaining := required
	if len(remaining.Slice()) == 0 || max <= 0 {
		return nil
	}

	chosen := make([]int64, 0, max)
	used := make(map[int64]bool)

	for len(remaining.Slice()) > 0 && len(chosen) < max {
		var bestID int64 = -1
		bestGain := 0
		var bestSkills domain.SkillSet

		for _, p := range pool {
			if used[p.PersonnelID] {
				continue
			}
			gain := len(p.Skills.Intersect(remaining).Slice())
			if gain == 0 {
				continue
			}
			if gain > bestGain || (gain == bestGain && p.PersonnelID < bestID) {
				bestGain = gain
				bestID = p.PersonnelID
				bestSkills = p.Skills
			}
		}

		if bestID == -1 || bestGain == 0 {
			break
		}

		chosen = append(chosen, bestID)
		used[bestID] = true
		remaining = remaining.Subtract(bestSkills)
	}

	return chosen
}
