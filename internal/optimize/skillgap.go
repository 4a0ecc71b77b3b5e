package optimize

import (
	"sort"

	"dispatch/pkg/domain"
)

// SkillGapEntry ranks a single skill's contribution to unassigned cases.
type SkillGapEntry struct {
	Skill               string
	UnassignedCaseCount int
	CoveragePercent     float64
	HiringImpact        int
}

// SkillGapReport is the advisory output of AnalyzeSkillGaps. It never blocks
// route creation; it only explains why cases were dropped.
type SkillGapReport struct {
	Gaps []SkillGapEntry
	// CoverageBySkill maps every skill required by any case to the
	// percentage of cases requiring it that were assigned, counting
	// solver-dropped cases as unassigned even when the skill itself is
	// available.
	CoverageBySkill map[string]float64
	TotalCases      int
	AssignedCases   int
	UnassignedCases int
	AssignmentRate  float64
}

// AnalyzeSkillGaps explains why the cases in unassignedIDs could not be
// routed, given the skills actually available across assigned personnel.
func AnalyzeSkillGaps(allCases []CandidateCase, unassignedIDs []int64, availableSkills domain.SkillSet) SkillGapReport {
	unassignedSet := make(map[int64]bool, len(unassignedIDs))
	for _, id := range unassignedIDs {
		unassignedSet[id] = true
	}

	missingByCase := make(map[int64]domain.SkillSet)
	requiringBySkill := make(map[string]int)
	unassignedBySkill := make(map[string]int)
	unassignedRequiringBySkill := make(map[string]int)

	for _, c := range allCases {
		required := c.RequiredSkills
		for _, name := range required.Slice() {
			requiringBySkill[name]++
		}
		if unassignedSet[c.CaseID] {
			missing := required.Subtract(availableSkills)
			missingByCase[c.CaseID] = missing
			for _, name := range missing.Slice() {
				unassignedBySkill[name]++
			}
			// Coverage counts every unassigned case requiring the skill,
			// including cases the solver dropped for cost with the skill
			// fully available.
			for _, name := range required.Slice() {
				unassignedRequiringBySkill[name]++
			}
		}
	}

	names := make([]string, 0, len(unassignedBySkill))
	for name := range unassignedBySkill {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if unassignedBySkill[names[i]] != unassignedBySkill[names[j]] {
			return unassignedBySkill[names[i]] > unassignedBySkill[names[j]]
		}
		return names[i] < names[j]
	})

	coverageBySkill := make(map[string]float64, len(requiringBySkill))
	for name, total := range requiringBySkill {
		assignedRequiring := total - unassignedRequiringBySkill[name]
		coverage := 0.0
		if total > 0 {
			coverage = float64(assignedRequiring) / float64(total) * 100.0
		}
		coverageBySkill[name] = coverage
	}

	gaps := make([]SkillGapEntry, 0, len(names))
	for _, name := range names {
		impact := 0
		for caseID := range missingByCase {
			missing := missingByCase[caseID]
			if missing.Slice() != nil && len(missing.Slice()) == 1 && missing.Slice()[0] == name {
				impact++
			}
		}

		gaps = append(gaps, SkillGapEntry{
			Skill:               name,
			UnassignedCaseCount: unassignedBySkill[name],
			CoveragePercent:     coverageBySkill[name],
			HiringImpact:        impact,
		})
	}

	total := len(allCases)
	unassigned := len(unassignedIDs)
	assigned := total - unassigned
	rate := 0.0
	if total > 0 {
		rate = float64(assigned) / float64(total) * 100.0
	}

	return SkillGapReport{
		Gaps:            gaps,
		CoverageBySkill: coverageBySkill,
		TotalCases:      total,
		AssignedCases:   assigned,
		UnassignedCases: unassigned,
		AssignmentRate:  rate,
	}
}
