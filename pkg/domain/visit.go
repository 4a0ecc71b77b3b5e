package domain

import (
	"time"

	"dispatch/pkg/apperror"
)

// Visit is one scheduled stop on a Route, referencing exactly one Case.
type Visit struct {
	ID                 int64
	RouteID            int64
	CaseID             int64
	SequenceNumber     int
	EstimatedArrival   time.Time
	EstimatedDeparture time.Time
	ActualArrival      *time.Time
	ActualDeparture    *time.Time
	Status             VisitStatus
	Notes              string
}

// NewVisit constructs a pending Visit at the given sequence position.
func NewVisit(id, routeID, caseID int64, sequence int, estimatedArrival, estimatedDeparture time.Time) (Visit, error) {
	if sequence < 0 {
		return Visit{}, apperror.InvalidInput("sequence_number", "must be non-negative")
	}
	if !estimatedDeparture.After(estimatedArrival) {
		return Visit{}, apperror.InvalidInput("estimated_departure", "must be after estimated_arrival")
	}
	return Visit{
		ID:                 id,
		RouteID:            routeID,
		CaseID:             caseID,
		SequenceNumber:     sequence,
		EstimatedArrival:   estimatedArrival,
		EstimatedDeparture: estimatedDeparture,
		Status:             VisitPending,
	}, nil
}

// Transition moves the Visit to next, stamping actual_arrival on arrived
// and actual_departure on completion or failure.
func (v Visit) Transition(next VisitStatus, at time.Time) (Visit, error) {
	if _, err := TransitionVisit(v.Status, next); err != nil {
		return v, err
	}
	v.Status = next
	switch next {
	case VisitArrived:
		v.ActualArrival = &at
	case VisitCompleted, VisitFailed:
		v.ActualDeparture = &at
	}
	return v, nil
}
