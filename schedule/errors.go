/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All engine error types in one place. Callers classify with errors.Is.

ERROR CATEGORIES:
  1. Configuration errors - fatal for one entity's generation run
  2. Data warnings       - per-country holiday data problems, attached to
     the generated period instead of failing the run (see holiday.Warning)

PROPAGATION POLICY:
  Configuration problems abort only the offending entity's run; in a batch,
  sibling entities are unaffected. Holiday data problems never abort a run.

SEE ALSO:
  - generator.go: wraps these in ConfigError with entity context
  - holiday/holiday.go: ErrDataUnavailable and Warning
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfiguration is returned when an entity's schedule
	// configuration cannot produce a schedule at all.
	ErrInvalidConfiguration = errors.New("invalid schedule configuration")

	// ErrEmptyWorkWeek is returned when the requested countries' working
	// weekdays have an empty intersection (disjoint work weeks). Detected
	// at calculator construction, never as a silent infinite loop.
	ErrEmptyWorkWeek = errors.New("no common working weekday across countries")

	// ErrAmbiguousPivot is returned when more than one milestone in a set
	// resolves as the pivot.
	ErrAmbiguousPivot = errors.New("ambiguous pivot milestone")

	// ErrNoMilestones is returned when a milestone set has no milestone
	// applicable to the entity.
	ErrNoMilestones = errors.New("no applicable milestones")

	// ErrUnknownDueRule is returned for an unrecognized due-rule kind.
	ErrUnknownDueRule = errors.New("unknown due rule kind")

	// ErrUnknownFrequency is returned for an unrecognized pay frequency.
	ErrUnknownFrequency = errors.New("unknown pay frequency")

	// ErrUnknownTaxYear is returned for an unrecognized tax-year convention.
	ErrUnknownTaxYear = errors.New("unknown tax-year convention")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError reports a fatal configuration problem for one entity's
// generation run.
type ConfigError struct {
	EntityID string
	Year     int
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("entity %s, year %d: %v", e.EntityID, e.Year, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is fatal for a single entity's run
// rather than a transient data problem.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrEmptyWorkWeek) ||
		errors.Is(err, ErrAmbiguousPivot) ||
		errors.Is(err, ErrNoMilestones) ||
		errors.Is(err, ErrUnknownDueRule) ||
		errors.Is(err, ErrUnknownFrequency) ||
		errors.Is(err, ErrUnknownTaxYear)
}
