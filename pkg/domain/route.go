package domain

import "dispatch/pkg/apperror"

// Route is one vehicle's ordered sequence of Visits for a single service
// day. A Route exclusively owns its Visits; it is never persisted with
// zero of them.
type Route struct {
	ID                   int64
	VehicleID            int64
	RouteDate            string // YYYY-MM-DD
	Status               RouteStatus
	TotalDistanceKM      float64
	TotalDurationMinutes float64
	AssignedPersonnel    []Personnel
	Visits               []Visit
	OptimizationMetadata map[string]any
}

// NewRoute constructs a draft Route. It rejects an empty visit list: a
// route with no visits is never persisted.
func NewRoute(id, vehicleID int64, routeDate string, personnel []Personnel, visits []Visit, metadata map[string]any) (Route, error) {
	if len(visits) == 0 {
		return Route{}, apperror.InvalidInput("visits", "route must have at least one visit")
	}
	return Route{
		ID:                   id,
		VehicleID:            vehicleID,
		RouteDate:            routeDate,
		Status:               RouteDraft,
		AssignedPersonnel:    personnel,
		Visits:               visits,
		OptimizationMetadata: metadata,
	}, nil
}

// Transition moves the Route to next, validating the status table and
// cascading cancellation to every non-terminal Visit.
func (r Route) Transition(next RouteStatus) (Route, error) {
	newStatus, err := TransitionRoute(r.Status, next)
	if err != nil {
		return r, err
	}
	r.Status = newStatus
	if newStatus == RouteCancelled {
		for i, v := range r.Visits {
			if !v.Status.IsTerminal() {
				v.Status = VisitCancelled
				r.Visits[i] = v
			}
		}
	}
	return r, nil
}

// CapacityExceeded reports whether AssignedPersonnel exceeds capacity.
func (r Route) CapacityExceeded(capacity int) bool {
	return len(r.AssignedPersonnel) > capacity
}

// ContiguousSequence reports whether Visits carry sequence numbers 0..n-1
// in order, the persistence invariant every optimizer strategy must
// satisfy before a Route is written.
func (r Route) ContiguousSequence() bool {
	for i, v := range r.Visits {
		if v.SequenceNumber != i {
			return false
		}
	}
	return true
}
