package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dispatch/pkg/domain"
)

func skillSet(names ...string) domain.SkillSet {
	s := domain.NewSkillSet()
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func TestAssignPersonnel_RoundRobinBySkillDiversity(t *testing.T) {
	personnel := []CandidatePersonnel{
		{PersonnelID: 1, Skills: skillSet("wound_care")},
		{PersonnelID: 2, Skills: skillSet("wound_care", "phlebotomy")},
		{PersonnelID: 3, Skills: skillSet("phlebotomy")},
	}
	vehicleIDs := []int64{10, 20}
	caps := map[int64]int{10: 2, 20: 2}

	result := AssignPersonnel(personnel, vehicleIDs, caps)

	assert.Len(t, result[10], 2)
	assert.Len(t, result[20], 1)
	// The most-skilled person (id 2) lands first on vehicle 10.
	assert.Equal(t, int64(2), result[10][0].PersonnelID)
}

func TestAssignPersonnel_DropsWhenAllVehiclesFull(t *testing.T) {
	personnel := []CandidatePersonnel{
		{PersonnelID: 1, Skills: skillSet("a")},
		{PersonnelID: 2, Skills: skillSet("b")},
		{PersonnelID: 3, Skills: skillSet("c")},
	}
	vehicleIDs := []int64{1}
	caps := map[int64]int{1: 2}

	result := AssignPersonnel(personnel, vehicleIDs, caps)

	assert.Len(t, result[1], 2)
}

func TestAssignPersonnel_NeverDuplicatesAssignment(t *testing.T) {
	personnel := []CandidatePersonnel{
		{PersonnelID: 1, Skills: skillSet("a")},
		{PersonnelID: 2, Skills: skillSet("b")},
	}
	vehicleIDs := []int64{1, 2, 3}
	caps := map[int64]int{1: 1, 2: 1, 3: 1}

	result := AssignPersonnel(personnel, vehicleIDs, caps)

	seen := map[int64]bool{}
	for _, list := range result {
		for _, p := range list {
			assert.False(t, seen[p.PersonnelID], "personnel assigned twice")
			seen[p.PersonnelID] = true
		}
	}
}

func TestAssignPersonnel_NoVehicles(t *testing.T) {
	result := AssignPersonnel(nil, nil, nil)
	assert.Empty(t, result)
}
