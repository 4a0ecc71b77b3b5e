package domain

import "dispatch/pkg/apperror"

// CasePriority ranks how urgently a Case should be scheduled.
type CasePriority string

const (
	PriorityLow    CasePriority = "low"
	PriorityMedium CasePriority = "medium"
	PriorityHigh   CasePriority = "high"
	PriorityUrgent CasePriority = "urgent"
)

// CaseStatus tracks a Case's position in its lifecycle, mirroring the
// status of whichever Visit currently references it.
type CaseStatus string

const (
	CasePending    CaseStatus = "pending"
	CaseAssigned   CaseStatus = "assigned"
	CaseInProgress CaseStatus = "in_progress"
	CaseCompleted  CaseStatus = "completed"
	CaseCancelled  CaseStatus = "cancelled"
	CaseFailed     CaseStatus = "failed"
)

// Case is a request for a home visit: a patient, a care type, a date, and
// a time window within which the visit must occur.
type Case struct {
	ID                       int64
	PatientID                int64
	CareTypeID               int64
	ScheduledDate            string // YYYY-MM-DD
	TimeWindowType           TimeWindowType
	Window                   TimeWindow
	Location                 Location
	Priority                 CasePriority
	Status                   CaseStatus
	EstimatedDurationMinutes int
}

// NewCase validates the window and duration before constructing a pending
// Case.
func NewCase(id, patientID, careTypeID int64, scheduledDate string, windowType TimeWindowType, window TimeWindow, loc Location, priority CasePriority, durationMinutes int) (Case, error) {
	if scheduledDate == "" {
		return Case{}, apperror.InvalidInput("scheduled_date", "must not be empty")
	}
	if window.End <= window.Start {
		return Case{}, apperror.InvalidInput("time_window", "end must be after start")
	}
	if durationMinutes < 1 {
		return Case{}, apperror.InvalidInput("estimated_duration_minutes", "must be positive")
	}
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		return Case{}, apperror.InvalidInput("priority", "must be low, medium, high, or urgent")
	}

	return Case{
		ID:                       id,
		PatientID:                patientID,
		CareTypeID:               careTypeID,
		ScheduledDate:            scheduledDate,
		TimeWindowType:           windowType,
		Window:                   window,
		Location:                 loc,
		Priority:                 priority,
		Status:                   CasePending,
		EstimatedDurationMinutes: durationMinutes,
	}, nil
}

// caseTransitions mirrors the terminal status of a route's Visit back onto
// the Case it came from.
var caseTransitions = map[CaseStatus]map[CaseStatus]bool{
	CasePending: {
		CaseAssigned:  true,
		CaseCancelled: true,
	},
	CaseAssigned: {
		CaseInProgress: true,
		CaseCancelled:  true,
	},
	CaseInProgress: {
		CaseCompleted: true,
		CaseCancelled: true,
		CaseFailed:    true,
	},
}

// Transition moves the Case to next, rejecting any move the lifecycle
// table does not allow.
func (c Case) Transition(next CaseStatus) (Case, error) {
	allowed, ok := caseTransitions[c.Status]
	if !ok || !allowed[next] {
		return c, apperror.InvalidTransition(string(c.Status), string(next), "case")
	}
	c.Status = next
	return c, nil
}
