/*
Package calendar provides UTC-safe date arithmetic primitives.

PURPOSE:
  Everything in the payroll engine operates on whole calendar days.
  Date wraps time.Time at day granularity, always in UTC, so weekday
  lookups and day arithmetic never depend on the host timezone.

KEY CONCEPTS:
  - Date: an immutable, comparable calendar day (UTC, time-truncated)
  - Boundary helpers: start/end of week, end of month, end of half-month
  - Safe construction: WithDayOfMonth never panics on an invalid day;
    it reports failure so callers can fall back to a period boundary

DESIGN PRINCIPLES:
  1. Purity: every operation returns a new Date, nothing mutates
  2. Totality: valid calendar inputs never produce errors or panics
  3. UTC only: field arithmetic via time.Date, never local time

SEE ALSO:
  - schedule/period.go: period boundary generation built on these helpers
  - schedule/workday.go: working-day walking built on AddDays/Weekday
*/
package calendar

import "time"

// Date is a calendar day at UTC midnight. The zero value is the zero time.
// Dates are comparable: two Dates constructed for the same day are ==.
type Date struct {
	t time.Time
}

// New constructs a Date for the given year/month/day. Out-of-range values
// are normalized the way time.Date normalizes them (Feb 30 becomes Mar 1/2).
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates a time.Time to its UTC calendar day.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return New(u.Year(), u.Month(), u.Day())
}

// Today returns the current UTC day.
func Today() Date {
	return FromTime(time.Now())
}

// Parse reads a Date from ISO "2006-01-02" form.
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return FromTime(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return FromTime(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return FromTime(d.t.AddDate(0, n, 0)) }
func (d Date) AddYears(n int) Date  { return FromTime(d.t.AddDate(n, 0, 0)) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

// DaysBetween returns the number of calendar days from d to other
// (negative if other is earlier).
func DaysBetween(d, other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// =============================================================================
// BOUNDARIES
// =============================================================================

// StartOfWeek returns the Monday on or before d. The working week is
// locale-independent here; country work weeks are layered on top by the
// schedule package.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDays(-offset)
}

// EndOfWeek returns the Sunday on or after d.
func (d Date) EndOfWeek() Date {
	return d.StartOfWeek().AddDays(6)
}

// StartOfMonth returns the 1st of d's month.
func (d Date) StartOfMonth() Date {
	return New(d.Year(), d.Month(), 1)
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return New(d.Year(), d.Month()+1, 1).AddDays(-1)
}

// EndOfHalfMonth returns the 15th when d is the 15th, otherwise the last
// day of d's month.
func (d Date) EndOfHalfMonth() Date {
	if d.Day() == 15 {
		return New(d.Year(), d.Month(), 15)
	}
	return d.EndOfMonth()
}

// DaysInMonth returns the length of a month.
func DaysInMonth(year int, month time.Month) int {
	return New(year, month+1, 1).AddDays(-1).Day()
}

// WithDayOfMonth returns d's month with the given day-of-month. When the day
// does not exist in that month (day 31 in a 30-day month) it returns ok ==
// false and d unchanged; callers fall back to a period boundary.
func (d Date) WithDayOfMonth(day int) (Date, bool) {
	return d.WithDayOfMonthIn(day, d.Month())
}

// WithDayOfMonthIn is WithDayOfMonth with an explicit month in d's year.
func (d Date) WithDayOfMonthIn(day int, month time.Month) (Date, bool) {
	if day < 1 || day > DaysInMonth(d.Year(), month) {
		return d, false
	}
	return New(d.Year(), month, day), true
}

// LastWeekdayOnOrBefore returns the last occurrence of the given weekday on
// or before d.
func (d Date) LastWeekdayOnOrBefore(w time.Weekday) Date {
	offset := (int(d.Weekday()) - int(w) + 7) % 7
	return d.AddDays(-offset)
}

// =============================================================================
// JSON
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
