package domain

import "dispatch/pkg/apperror"

// Personnel is a care worker who can be assigned to a vehicle for a route
// day, working within a fixed daily shift.
type Personnel struct {
	ID            int64
	Name          string
	Skills        SkillSet
	WorkStart     ClockTime
	WorkEnd       ClockTime
	StartLocation Location
	IsActive      bool
}

// NewPersonnel validates the shift window before constructing.
func NewPersonnel(id int64, name string, skills SkillSet, workStart, workEnd ClockTime, start Location, active bool) (Personnel, error) {
	if name == "" {
		return Personnel{}, apperror.InvalidInput("name", "must not be empty")
	}
	if workStart >= workEnd {
		return Personnel{}, apperror.InvalidInput("work_start", "must be before work_end")
	}
	return Personnel{
		ID:            id,
		Name:          name,
		Skills:        skills,
		WorkStart:     workStart,
		WorkEnd:       workEnd,
		StartLocation: start,
		IsActive:      active,
	}, nil
}

// HasSkills reports whether p covers every skill in required.
func (p Personnel) HasSkills(required SkillSet) bool {
	return required.IsSubsetOf(p.Skills)
}

// ShiftContains reports whether t falls within p's working shift.
func (p Personnel) ShiftContains(t ClockTime) bool {
	return t >= p.WorkStart && t <= p.WorkEnd
}
