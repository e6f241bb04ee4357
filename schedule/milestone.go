/*
milestone.go - Milestone sets and pivot resolution

PURPOSE:
  A milestone set is an ordered list of named payroll events, each a fixed
  number of working days from the pivot. The engine treats the set as
  read-only for the duration of a run; CRUD lives outside the engine.

PIVOT INVARIANT:
  Exactly one milestone per set is the pivot. Resolution order:
    1. the explicitly flagged milestone (two flags -> AmbiguousPivot)
    2. compatibility shim: the milestone whose identifier matches the
       pay-day pattern (several matches -> AmbiguousPivot)
    3. permissive fallback: the highest-index milestone. Callers log this
       so misconfigured sets are visible instead of silently accepted.

SEE ALSO:
  - generator.go: walks milestones outward from the pivot
*/
package schedule

import (
	"fmt"
	"regexp"
	"sort"
)

// Milestone is a named event in the payroll process.
type Milestone struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	Description string   `json:"description,omitempty"`
	// Interval is the distance from the previous milestone in the walk,
	// in working days. Never negative.
	Interval int  `json:"interval"`
	Pivot    bool `json:"pivot"`
	// Index defines the total order within the set.
	Index int `json:"index"`
	// EntityTypes restricts which legal-entity types the milestone applies
	// to. Empty means all.
	EntityTypes []string `json:"entity_types,omitempty"`
}

// AppliesTo reports whether the milestone applies to an entity type.
func (m Milestone) AppliesTo(entityType string) bool {
	if len(m.EntityTypes) == 0 || entityType == "" {
		return true
	}
	for _, t := range m.EntityTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// MilestoneSet is an ordered, read-only collection of milestones.
type MilestoneSet struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Milestones []Milestone `json:"milestones"`
}

// payDayPattern is the compatibility shim for sets predating the explicit
// pivot flag: identifiers like "pay_day", "payday", "Pay Date".
var payDayPattern = regexp.MustCompile(`(?i)pay[\s_-]*(day|date)`)

// ForEntityType returns the milestones applicable to an entity type,
// sorted by index ascending.
func (s MilestoneSet) ForEntityType(entityType string) []Milestone {
	var out []Milestone
	for _, m := range s.Milestones {
		if m.AppliesTo(entityType) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ResolvePivot finds the pivot among the given milestones. fellBack is true
// when the permissive highest-index fallback was used.
func ResolvePivot(milestones []Milestone) (pivot Milestone, fellBack bool, err error) {
	if len(milestones) == 0 {
		return Milestone{}, false, ErrNoMilestones
	}

	var flagged []Milestone
	for _, m := range milestones {
		if m.Pivot {
			flagged = append(flagged, m)
		}
	}
	if len(flagged) > 1 {
		return Milestone{}, false, fmt.Errorf("%w: %d milestones flagged pivot", ErrAmbiguousPivot, len(flagged))
	}
	if len(flagged) == 1 {
		return flagged[0], false, nil
	}

	var matched []Milestone
	for _, m := range milestones {
		if payDayPattern.MatchString(m.Identifier) {
			matched = append(matched, m)
		}
	}
	if len(matched) > 1 {
		return Milestone{}, false, fmt.Errorf("%w: %d milestones match the pay-day pattern", ErrAmbiguousPivot, len(matched))
	}
	if len(matched) == 1 {
		return matched[0], false, nil
	}

	highest := milestones[0]
	for _, m := range milestones[1:] {
		if m.Index > highest.Index {
			highest = m
		}
	}
	return highest, true, nil
}
