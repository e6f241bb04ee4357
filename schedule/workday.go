/*
workday.go - Working-day calculator

PURPOSE:
  Combines holiday data with per-country working-week definitions to
  answer "is this date a working day for this set of countries", and to
  walk forward/backward over working days.

SEMANTICS:
  A date is a working day iff its weekday is in the intersection of every
  country's working-weekday set AND it is not a public holiday in any of
  the countries for that month.

MONTH WINDOWS:
  The holiday resolver serves one calendar month at a time. Whenever a
  walk crosses into a new month the resolver is invoked again, so long
  walks never operate on a stale holiday window.

SEE ALSO:
  - holiday/resolver.go: the month-window source
  - country.go: work-week intersection and its failure mode
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
)

// Walk directions.
const (
	Earlier = -1
	Later   = +1
)

// Calculator answers working-day questions for one fixed country set.
type Calculator struct {
	resolver  *holiday.Resolver
	countries []string
	workWeek  map[time.Weekday]bool

	windows map[windowKey]*monthWindow
}

type windowKey struct {
	year  int
	month time.Month
}

type monthWindow struct {
	byDate   map[calendar.Date][]holiday.Holiday
	warnings []holiday.Warning
}

// NewCalculator builds a Calculator for the given countries. It fails fast
// when the countries' work weeks have no weekday in common.
func NewCalculator(resolver *holiday.Resolver, countries []string) (*Calculator, error) {
	workWeek, err := WorkWeekIntersection(countries)
	if err != nil {
		return nil, err
	}
	return &Calculator{
		resolver:  resolver,
		countries: countries,
		workWeek:  workWeek,
		windows:   make(map[windowKey]*monthWindow),
	}, nil
}

// fork returns a Calculator sharing the resolver and validated work week
// but with its own month-window lookup state. Calculators are not safe for
// concurrent use; forks are.
func (c *Calculator) fork() *Calculator {
	return &Calculator{
		resolver:  c.resolver,
		countries: c.countries,
		workWeek:  c.workWeek,
		windows:   make(map[windowKey]*monthWindow),
	}
}

// window returns the holiday window for d's month, loading it on first use.
func (c *Calculator) window(ctx context.Context, d calendar.Date) *monthWindow {
	key := windowKey{year: d.Year(), month: d.Month()}
	if w, ok := c.windows[key]; ok {
		return w
	}
	holidays, warnings := c.resolver.Holidays(ctx, c.countries, d)
	w := &monthWindow{byDate: make(map[calendar.Date][]holiday.Holiday), warnings: warnings}
	for _, h := range holidays {
		w.byDate[h.Date] = append(w.byDate[h.Date], h)
	}
	c.windows[key] = w
	return w
}

// IsWorkingDay reports whether d is a working day for the calculator's
// country set, plus any holiday-data warnings for d's month.
func (c *Calculator) IsWorkingDay(ctx context.Context, d calendar.Date) (bool, []holiday.Warning) {
	if !c.workWeek[d.Weekday()] {
		return false, nil
	}
	w := c.window(ctx, d)
	_, isHoliday := w.byDate[d]
	return !isHoliday, w.warnings
}

// StepToWorkingDay returns d if it is already a working day; otherwise it
// moves one calendar day at a time in direction (Earlier or Later) until a
// working day is found. Holidays crossed on the way are returned.
func (c *Calculator) StepToWorkingDay(ctx context.Context, d calendar.Date, direction int) (calendar.Date, []holiday.Holiday, []holiday.Warning, error) {
	return c.WalkWorkingDays(ctx, d, 0, direction)
}

// WalkWorkingDays walks from start one calendar day at a time in direction;
// each landing on a working day decrements the remaining count. It returns
// the final date, the holidays observed along the way, and holiday-data
// warnings for the months touched. A count of zero means "move to the
// nearest working day in direction if not already on one".
func (c *Calculator) WalkWorkingDays(ctx context.Context, start calendar.Date, count, direction int) (calendar.Date, []holiday.Holiday, []holiday.Warning, error) {
	if count < 0 {
		return start, nil, nil, fmt.Errorf("%w: negative working-day count %d", ErrInvalidConfiguration, count)
	}
	if direction != Earlier && direction != Later {
		return start, nil, nil, fmt.Errorf("%w: walk direction must be -1 or +1", ErrInvalidConfiguration)
	}

	var (
		touched  []holiday.Holiday
		warnings []holiday.Warning
		seenWarn = make(map[windowKey]bool)
	)
	collect := func(d calendar.Date) {
		w := c.window(ctx, d)
		touched = append(touched, w.byDate[d]...)
		key := windowKey{year: d.Year(), month: d.Month()}
		if !seenWarn[key] {
			seenWarn[key] = true
			warnings = append(warnings, w.warnings...)
		}
	}

	current := start
	remaining := count

	// The work-week intersection guarantees at least one working weekday,
	// so the walk terminates; the bound only guards against pathological
	// holiday data covering entire months.
	maxSteps := (count+2)*14 + 366

	for steps := 0; ; steps++ {
		if steps > maxSteps {
			return start, nil, nil, fmt.Errorf("%w: walk of %d working days did not terminate", ErrInvalidConfiguration, count)
		}
		working, _ := c.IsWorkingDay(ctx, current)
		collect(current)

		if count == 0 {
			if working {
				return current, touched, warnings, nil
			}
			current = current.AddDays(direction)
			continue
		}

		if steps > 0 && working {
			remaining--
		}
		if remaining == 0 && working {
			return current, touched, warnings, nil
		}
		current = current.AddDays(direction)
	}
}
