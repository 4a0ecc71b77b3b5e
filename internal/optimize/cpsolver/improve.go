package cpsolver

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// edgeKey identifies an undirected arc for penalty bookkeeping.
type edgeKey [2]int

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// improve runs guided local search: repeated 2-opt and relocate passes
// against an edge-penalized cost, escaping local optima by penalizing the
// highest-utility edge of the current solution whenever a pass finds no
// improving move, until the context deadline or the solution limit is
// reached.
func improve(ctx context.Context, model Model, routes []Route) ([]Route, int) {
	penalty := make(map[edgeKey]int)
	lambda := averageArcCost(model) * 0.1
	if lambda <= 0 {
		lambda = 1
	}

	limit := model.SolutionLimit
	if limit <= 0 {
		limit = 50000
	}

	current := cloneRoutes(routes)
	rounds := 0

	for rounds < limit {
		select {
		case <-ctx.Done():
			return current, rounds
		default:
		}

		move2opt := bestTwoOptMove(ctx, model, current, penalty, lambda)
		moveRelocate := bestRelocateMove(ctx, model, current, penalty, lambda)

		best := pickBetterMove(move2opt, moveRelocate)
		rounds++

		if best == nil || best.delta >= 0 {
			if !penalizeWorstEdge(model, current, penalty) {
				return current, rounds
			}
			continue
		}

		applyMove(model, current, best)
	}

	return current, rounds
}

type candidateMove struct {
	kind      string // "2opt" | "relocate"
	vehicleA  int
	vehicleB  int
	i, j      int
	delta     float64
}

func pickBetterMove(moves ...*candidateMove) *candidateMove {
	var best *candidateMove
	for _, m := range moves {
		if m == nil {
			continue
		}
		if best == nil || m.delta < best.delta {
			best = m
		}
	}
	return best
}

// bestTwoOptMove evaluates every intra-route reversal in parallel across
// vehicles and returns the single best improving move found, if any.
func bestTwoOptMove(ctx context.Context, model Model, routes []Route, penalty map[edgeKey]int, lambda float64) *candidateMove {
	var mu sync.Mutex
	var best *candidateMove

	g, _ := errgroup.WithContext(ctx)
	for v := range routes {
		v := v
		g.Go(func() error {
			offsets := routes[v].CaseOffsets
			if len(offsets) < 3 {
				return nil
			}
			before := routeAugmentedCost(model, penalty, lambda, v, offsets)

			var localBest *candidateMove
			for i := 0; i < len(offsets)-1; i++ {
				for j := i + 1; j < len(offsets); j++ {
					reversed := reverseOffsets(offsets, i, j)
					after := routeAugmentedCost(model, penalty, lambda, v, reversed)
					delta := after - before
					if localBest == nil || delta < localBest.delta {
						localBest = &candidateMove{kind: "2opt", vehicleA: v, i: i, j: j, delta: delta}
					}
				}
			}

			if localBest != nil {
				mu.Lock()
				if best == nil || localBest.delta < best.delta {
					best = localBest
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return best
}

// bestRelocateMove evaluates moving a single case node from one vehicle's
// route to the cheapest position in another, in parallel across source
// vehicles.
func bestRelocateMove(ctx context.Context, model Model, routes []Route, penalty map[edgeKey]int, lambda float64) *candidateMove {
	var mu sync.Mutex
	var best *candidateMove

	g, _ := errgroup.WithContext(ctx)
	for a := range routes {
		a := a
		g.Go(func() error {
			offsetsA := routes[a].CaseOffsets
			var localBest *candidateMove

			for i, offset := range offsetsA {
				beforeA := routeAugmentedCost(model, penalty, lambda, a, offsetsA)
				withoutA := removeAt(offsetsA, i)
				afterA := routeAugmentedCost(model, penalty, lambda, a, withoutA)
				deltaA := afterA - beforeA

				for b := range routes {
					if b == a {
						continue
					}
					if !model.allowsVehicle(offset, b) {
						continue
					}
					if model.VehicleCapacity[b] > 0 && len(routes[b].CaseOffsets) >= model.VehicleCapacity[b] {
						continue
					}

					offsetsB := routes[b].CaseOffsets
					beforeB := routeAugmentedCost(model, penalty, lambda, b, offsetsB)
					position, _ := cheapestPosition(model, routes[b], offset)
					withB := insertAt(offsetsB, position, offset)
					afterB := routeAugmentedCost(model, penalty, lambda, b, withB)
					deltaB := afterB - beforeB

					delta := deltaA + deltaB
					if localBest == nil || delta < localBest.delta {
						localBest = &candidateMove{kind: "relocate", vehicleA: a, vehicleB: b, i: i, j: position, delta: delta}
					}
				}
			}

			if localBest != nil {
				mu.Lock()
				if best == nil || localBest.delta < best.delta {
					best = localBest
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return best
}

func applyMove(model Model, routes []Route, move *candidateMove) {
	switch move.kind {
	case "2opt":
		offsets := reverseOffsets(routes[move.vehicleA].CaseOffsets, move.i, move.j)
		routes[move.vehicleA].CaseOffsets = offsets
		routes[move.vehicleA].DistanceM = routeDistance(model, move.vehicleA, offsets)
	case "relocate":
		offset := routes[move.vehicleA].CaseOffsets[move.i]
		routes[move.vehicleA].CaseOffsets = removeAt(routes[move.vehicleA].CaseOffsets, move.i)
		routes[move.vehicleA].DistanceM = routeDistance(model, move.vehicleA, routes[move.vehicleA].CaseOffsets)

		routes[move.vehicleB].CaseOffsets = insertAt(routes[move.vehicleB].CaseOffsets, move.j, offset)
		routes[move.vehicleB].DistanceM = routeDistance(model, move.vehicleB, routes[move.vehicleB].CaseOffsets)
	}
}

// penalizeWorstEdge increments the penalty of the edge with the highest
// utility (cost divided by one plus its current penalty) across all
// routes, the classic guided-local-search escape move. It returns false
// when there are no edges left to penalize (every route is empty).
func penalizeWorstEdge(model Model, routes []Route, penalty map[edgeKey]int) bool {
	bestUtility := -1.0
	var bestKey edgeKey
	found := false

	for v := range routes {
		offsets := routes[v].CaseOffsets
		if len(offsets) == 0 {
			continue
		}
		prev := v
		nodes := append([]int{}, offsets...)
		for _, offset := range nodes {
			node := model.caseNodeIndex(offset)
			key := makeEdgeKey(prev, node)
			utility := model.Distances[prev][node] / float64(1+penalty[key])
			if utility > bestUtility {
				bestUtility = utility
				bestKey = key
				found = true
			}
			prev = node
		}
		key := makeEdgeKey(prev, v)
		utility := model.Distances[prev][v] / float64(1+penalty[key])
		if utility > bestUtility {
			bestUtility = utility
			bestKey = key
			found = true
		}
	}

	if !found {
		return false
	}
	penalty[bestKey]++
	return true
}

func routeAugmentedCost(model Model, penalty map[edgeKey]int, lambda float64, vehicle int, offsets []int) float64 {
	if len(offsets) == 0 {
		return 0
	}
	depot := vehicle
	total := 0.0
	prev := depot
	for _, offset := range offsets {
		node := model.caseNodeIndex(offset)
		total += model.Distances[prev][node] + lambda*float64(penalty[makeEdgeKey(prev, node)])
		prev = node
	}
	total += model.Distances[prev][depot] + lambda*float64(penalty[makeEdgeKey(prev, depot)])
	return total
}

func averageArcCost(model Model) float64 {
	n := model.nodeCount()
	if n < 2 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += model.Distances[i][j]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func reverseOffsets(offsets []int, i, j int) []int {
	out := make([]int, len(offsets))
	copy(out, offsets)
	for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
		out[lo], out[hi] = out[hi], out[lo]
	}
	return out
}

func removeAt(offsets []int, i int) []int {
	out := make([]int, 0, len(offsets)-1)
	out = append(out, offsets[:i]...)
	out = append(out, offsets[i+1:]...)
	return out
}

func cloneRoutes(routes []Route) []Route {
	out := make([]Route, len(routes))
	for i, r := range routes {
		offsets := make([]int, len(r.CaseOffsets))
		copy(offsets, r.CaseOffsets)
		out[i] = Route{VehicleIndex: r.VehicleIndex, CaseOffsets: offsets, DistanceM: r.DistanceM}
	}
	return out
}
