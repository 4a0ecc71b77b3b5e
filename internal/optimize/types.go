// Package optimize builds vehicle routes from pending cases. It assigns
// personnel to vehicles, runs a heuristic or constraint-programming
// strategy to produce visit sequences, analyzes unassigned cases for
// skill gaps, and orchestrates the whole flow against storage.
package optimize

import (
	"time"

	"dispatch/pkg/domain"
)

// WorkStartMinutes and WorkEndMinutes bound the optimizer's working day,
// independent of any individual vehicle or personnel shift.
const (
	WorkStartMinutes = 8 * 60
	WorkEndMinutes   = 17 * 60
)

// CandidateCase is the optimizer's value-typed view of a schedulable Case,
// carrying the skills it requires and the location it must be served at.
type CandidateCase struct {
	CaseID          int64
	Location        domain.Location
	Window          domain.TimeWindow
	RequiredSkills  domain.SkillSet
	DurationMinutes int
	Priority        domain.CasePriority
}

// CandidateVehicle is the optimizer's value-typed view of a schedulable
// Vehicle plus the personnel already assigned to it.
type CandidateVehicle struct {
	VehicleID    int64
	BaseLocation domain.Location
	Capacity     int
	Personnel    []CandidatePersonnel
}

// CandidatePersonnel is the optimizer's value-typed view of a Personnel row.
type CandidatePersonnel struct {
	PersonnelID int64
	Skills      domain.SkillSet
}

// TeamSkills returns the union of skills across all personnel on a vehicle.
func (v CandidateVehicle) TeamSkills() domain.SkillSet {
	union := domain.NewSkillSet()
	for _, p := range v.Personnel {
		union = union.Union(p.Skills)
	}
	return union
}

// PlannedVisit is one stop produced by a strategy, not yet persisted.
type PlannedVisit struct {
	CaseID            int64
	SequenceNumber    int
	EstimatedArrival  time.Time
	EstimatedDeparture time.Time
}

// PlannedRoute is one vehicle's sequence of visits produced by a strategy.
type PlannedRoute struct {
	VehicleID            int64
	Visits               []PlannedVisit
	AssignedPersonnelIDs []int64
	TotalDistanceKM      float64
	TotalDurationMinutes float64
}

// Violation records a constraint the optimizer could not satisfy.
type Violation struct {
	Code    string
	CaseID  *int64
	Message string
}

// Result is what a routing strategy produces.
type Result struct {
	Success         bool
	StrategyUsed    string
	Routes          []PlannedRoute
	UnassignedCases []int64
	Violations      []Violation
	ElapsedSeconds  float64
}

// travelMinutes converts kilometers to minutes at a flat 40 km/h, the
// fallback when no time matrix backs a leg. Rounded down to whole minutes.
func travelMinutes(km float64) int {
	return int((km / 40.0) * 60.0)
}
