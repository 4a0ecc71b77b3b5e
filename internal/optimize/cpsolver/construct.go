package cpsolver

import "math"

// construct builds a first solution with parallel cheapest insertion: at
// each step it finds the single cheapest (case, vehicle, position)
// insertion across every route simultaneously, rather than filling one
// route to completion before starting the next. Cases that never fit
// anywhere (every allowed vehicle is at capacity) are dropped.
func construct(model Model) ([]Route, []int) {
	routes := make([]Route, model.NumVehicles)
	for v := range routes {
		routes[v] = Route{VehicleIndex: v}
	}

	remaining := make([]int, len(model.CaseNodes))
	for i := range remaining {
		remaining[i] = i
	}

	var dropped []int

	for len(remaining) > 0 {
		bestCaseIdx := -1
		bestVehicle := -1
		bestPosition := -1
		bestDelta := math.MaxFloat64

		for ri, offset := range remaining {
			for v := 0; v < model.NumVehicles; v++ {
				if !model.allowsVehicle(offset, v) {
					continue
				}
				if model.VehicleCapacity[v] > 0 && len(routes[v].CaseOffsets) >= model.VehicleCapacity[v] {
					continue
				}

				position, delta := cheapestPosition(model, routes[v], offset)
				if delta < bestDelta {
					bestDelta = delta
					bestCaseIdx = ri
					bestVehicle = v
					bestPosition = position
				}
			}
		}

		if bestCaseIdx == -1 {
			dropped = append(dropped, remaining...)
			break
		}

		offset := remaining[bestCaseIdx]
		route := &routes[bestVehicle]
		route.CaseOffsets = insertAt(route.CaseOffsets, bestPosition, offset)
		route.DistanceM = routeDistance(model, bestVehicle, route.CaseOffsets)

		remaining = append(remaining[:bestCaseIdx], remaining[bestCaseIdx+1:]...)
	}

	return routes, dropped
}

// cheapestPosition finds the cheapest insertion point for a case node
// within a single route, returning the position and the marginal distance
// added by inserting there.
func cheapestPosition(model Model, route Route, offset int) (int, float64) {
	depot := route.VehicleIndex
	node := model.caseNodeIndex(offset)

	if len(route.CaseOffsets) == 0 {
		return 0, 2 * model.Distances[depot][node]
	}

	bestPos := 0
	bestDelta := math.MaxFloat64

	prev := depot
	for i, existing := range route.CaseOffsets {
		existingNode := model.caseNodeIndex(existing)
		delta := model.Distances[prev][node] + model.Distances[node][existingNode] - model.Distances[prev][existingNode]
		if delta < bestDelta {
			bestDelta = delta
			bestPos = i
		}
		prev = existingNode
	}

	last := model.caseNodeIndex(route.CaseOffsets[len(route.CaseOffsets)-1])
	tailDelta := model.Distances[last][node] + model.Distances[node][depot] - model.Distances[last][depot]
	if tailDelta < bestDelta {
		bestDelta = tailDelta
		bestPos = len(route.CaseOffsets)
	}

	return bestPos, bestDelta
}

func insertAt(offsets []int, position, offset int) []int {
	out := make([]int, 0, len(offsets)+1)
	out = append(out, offsets[:position]...)
	out = append(out, offset)
	out = append(out, offsets[position:]...)
	return out
}

// routeDistance computes the total arc cost of a depot-to-depot tour.
func routeDistance(model Model, vehicle int, offsets []int) float64 {
	if len(offsets) == 0 {
		return 0
	}
	depot := vehicle
	total := 0.0
	prev := depot
	for _, offset := range offsets {
		node := model.caseNodeIndex(offset)
		total += model.Distances[prev][node]
		prev = node
	}
	total += model.Distances[prev][depot]
	return total
}
