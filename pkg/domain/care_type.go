package domain

import "dispatch/pkg/apperror"

// CareType describes a kind of clinical visit: its expected duration and
// the skills a team must have to perform it. Updates to a CareType only
// affect future Cases; existing Cases keep the duration/skills they were
// created with.
type CareType struct {
	ID                       int64
	Name                     string
	EstimatedDurationMinutes int
	RequiredSkills           SkillSet
}

// NewCareType validates EstimatedDurationMinutes against the 1..1440 range.
func NewCareType(id int64, name string, durationMinutes int, skills SkillSet) (CareType, error) {
	if name == "" {
		return CareType{}, apperror.InvalidInput("name", "must not be empty")
	}
	if durationMinutes < 1 || durationMinutes > 1440 {
		return CareType{}, apperror.InvalidInput("estimated_duration_minutes", "must be between 1 and 1440")
	}
	return CareType{ID: id, Name: name, EstimatedDurationMinutes: durationMinutes, RequiredSkills: skills}, nil
}
