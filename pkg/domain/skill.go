package domain

import "sort"

// Skill is a named competency a Personnel can hold and a CareType can
// require. Skills are created by operators and are never silently deleted
// while referenced by a CareType; that lifecycle rule belongs to the
// (out-of-scope) CRUD layer; this module only consumes the resulting set.
type Skill struct {
	ID   int64
	Name string
}

// SkillSet is a small, comparison-friendly set of skill names. The
// optimizer works in terms of names (not ids) because care types and
// personnel both denormalize skill names for fast subset checks.
type SkillSet map[string]struct{}

// NewSkillSet builds a SkillSet from a slice of names.
func NewSkillSet(names ...string) SkillSet {
	s := make(SkillSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts name into the set.
func (s SkillSet) Add(name string) { s[name] = struct{}{} }

// Union returns a new set containing every member of s and other.
func (s SkillSet) Union(other SkillSet) SkillSet {
	out := make(SkillSet, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Subtract returns a new set containing members of s not present in other.
func (s SkillSet) Subtract(other SkillSet) SkillSet {
	out := make(SkillSet, len(s))
	for k := range s {
		if _, found := other[k]; !found {
			out[k] = struct{}{}
		}
	}
	return out
}

// Intersect returns a new set containing members present in both sets.
func (s SkillSet) Intersect(other SkillSet) SkillSet {
	out := make(SkillSet)
	for k := range s {
		if _, found := other[k]; found {
			out[k] = struct{}{}
		}
	}
	return out
}

// IsSubsetOf reports whether every member of s is present in other.
func (s SkillSet) IsSubsetOf(other SkillSet) bool {
	for k := range s {
		if _, found := other[k]; !found {
			return false
		}
	}
	return true
}

// Slice returns the set's members as a sorted slice for deterministic
// output (logging, JSON, test assertions).
func (s SkillSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
