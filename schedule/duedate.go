/*
duedate.go - Due-date resolution

PURPOSE:
  Converts a period boundary plus a due rule into a concrete pay date.
  The candidate date is picked per rule kind, then adjusted to the nearest
  previous working day unless already a working day.

RULE KINDS:
  last:       the period end boundary
  day:        the last occurrence of a named weekday on or before the end
  date:       a fixed day-of-month within the period's month; constructing
              a nonexistent day (31st in a 30-day month) is NOT an error -
              the candidate falls back to the period boundary
  following:  a fixed day-of-month in the month after the period's end
              ("paid on the Nth of the following month")

SEE ALSO:
  - workday.go: the final working-day adjustment
  - period.go: the boundary the rules pivot on
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
)

// DueRuleKind selects how a period's pay date is derived from its boundary.
type DueRuleKind string

const (
	DueLast       DueRuleKind = "last"
	DueWeekday    DueRuleKind = "day"
	DueDayOfMonth DueRuleKind = "date"
	DueFollowing  DueRuleKind = "following"
)

// DueRule is an entity's pay-date rule. Weekday applies to DueWeekday;
// DayOfMonth applies to DueDayOfMonth and DueFollowing.
type DueRule struct {
	Kind       DueRuleKind  `json:"kind"`
	Weekday    time.Weekday `json:"weekday,omitempty"`
	DayOfMonth int          `json:"day_of_month,omitempty"`
}

// ResolveDueDate resolves a period's pay date: candidate per rule kind,
// then the nearest previous working day.
func ResolveDueDate(ctx context.Context, calc *Calculator, p Period, rule DueRule) (calendar.Date, []holiday.Holiday, []holiday.Warning, error) {
	candidate, err := dueCandidate(p, rule)
	if err != nil {
		return calendar.Date{}, nil, nil, err
	}
	return calc.StepToWorkingDay(ctx, candidate, Earlier)
}

func dueCandidate(p Period, rule DueRule) (calendar.Date, error) {
	switch rule.Kind {
	case DueLast:
		return p.End, nil

	case DueWeekday:
		return p.End.LastWeekdayOnOrBefore(rule.Weekday), nil

	case DueDayOfMonth:
		if candidate, ok := p.End.WithDayOfMonth(rule.DayOfMonth); ok {
			return candidate, nil
		}
		// Day does not exist in this month: defined fallback, not an error.
		return p.End, nil

	case DueFollowing:
		next := p.End.StartOfMonth().AddMonths(1)
		if candidate, ok := next.WithDayOfMonth(rule.DayOfMonth); ok {
			return candidate, nil
		}
		return next.EndOfMonth(), nil

	default:
		return calendar.Date{}, fmt.Errorf("%w: %q", ErrUnknownDueRule, rule.Kind)
	}
}
