/*
period.go - Period boundary generation per frequency and tax-year convention

PURPOSE:
  Produces the ordered list of period end boundaries for a year given a pay
  frequency and a tax-year convention. Periods are pure computed values.

FREQUENCY FAMILIES:
  Monthly family:  monthly, semi-monthly, quarterly, half-yearly, yearly.
    Boundaries are month-anchored: last day of month (and the 1st/15th for
    semi-monthly), counted from the convention's anchor month.
  Weekly family:  weekly, bi-weekly, four-weekly.
    Boundaries are whole weeks added to a fixed January-2 anchor of the
    target year. A mid-cycle cadence change is anchored to the correct week
    via the period-end reference date and the offset window table.

OFFSET WINDOWS:
  The weekly-family starting offset is fiscal-calendar data, not logic: an
  ordered list of {from, to, offset} records matched by range against the
  period-end reference date. When no window matches, the offset falls back
  to the reference date's whole-week distance from the January-2 anchor,
  modulo the stride, so arbitrary years work without new table entries.

SEE ALSO:
  - duedate.go: turns a period boundary into a concrete pay date
  - generator.go: orchestrates periods into a full schedule
*/
package schedule

import (
	"fmt"
	"time"

	"github.com/warp/payroll-engine/calendar"
)

// Frequency is a pay frequency.
type Frequency string

const (
	Weekly      Frequency = "weekly"
	BiWeekly    Frequency = "bi_weekly"
	FourWeekly  Frequency = "four_weekly"
	Monthly     Frequency = "monthly"
	SemiMonthly Frequency = "semi_monthly"
	Quarterly   Frequency = "quarterly"
	HalfYearly  Frequency = "half_yearly"
	Yearly      Frequency = "yearly"
)

// TaxYearConvention is the fiscal calendar alignment that determines period
// counts and anchor months.
type TaxYearConvention string

const (
	// CalendarYear runs January through December.
	CalendarYear TaxYearConvention = "calendar_year"
	// AprilMarch runs April through the following March (UK-style).
	AprilMarch TaxYearConvention = "april_march"
	// JulyJune runs July through the following June.
	JulyJune TaxYearConvention = "july_june"
	// OctoberSeptember runs October through the following September.
	OctoberSeptember TaxYearConvention = "october_september"
	// ExtendedFiscal covers a fiscal transition window: twenty monthly
	// periods (anchor September of the prior cycle) for entities migrating
	// between fiscal alignments.
	ExtendedFiscal TaxYearConvention = "extended_fiscal"
)

// conventionSpec is the fixed per-convention lookup: anchor month, number
// of monthly periods, number of weekly periods.
type conventionSpec struct {
	anchor         time.Month
	monthlyPeriods int
	weeklyPeriods  int
}

var conventions = map[TaxYearConvention]conventionSpec{
	CalendarYear:     {anchor: time.January, monthlyPeriods: 12, weeklyPeriods: 51},
	AprilMarch:       {anchor: time.April, monthlyPeriods: 12, weeklyPeriods: 52},
	JulyJune:         {anchor: time.July, monthlyPeriods: 12, weeklyPeriods: 52},
	OctoberSeptember: {anchor: time.October, monthlyPeriods: 12, weeklyPeriods: 52},
	ExtendedFiscal:   {anchor: time.September, monthlyPeriods: 20, weeklyPeriods: 90},
}

// Period is one payroll cycle slice within a year.
type Period struct {
	Label     string            `json:"label"`
	End       calendar.Date     `json:"end"`
	Frequency Frequency         `json:"frequency"`
	TaxYear   TaxYearConvention `json:"tax_year"`
}

// OffsetWindow maps a range of period-end reference dates to a week offset.
type OffsetWindow struct {
	From   calendar.Date
	To     calendar.Date
	Offset int
}

// DefaultOffsetTable buckets the known payroll cadence transition dates.
// It is data, not logic; the generator accepts a replacement table.
var DefaultOffsetTable = []OffsetWindow{
	{From: calendar.New(2021, time.December, 27), To: calendar.New(2022, time.January, 9), Offset: 1},
	{From: calendar.New(2022, time.December, 26), To: calendar.New(2023, time.January, 8), Offset: 0},
	{From: calendar.New(2023, time.December, 25), To: calendar.New(2024, time.January, 7), Offset: 3},
	{From: calendar.New(2024, time.December, 30), To: calendar.New(2025, time.January, 12), Offset: 2},
}

// GeneratePeriods produces the ordered period boundaries for a year using
// the default offset table. periodEndRef may be nil for monthly-family
// frequencies; for the weekly family it anchors mid-cycle cadence changes.
func GeneratePeriods(year int, freq Frequency, convention TaxYearConvention, periodEndRef *calendar.Date) ([]Period, error) {
	return GeneratePeriodsWithTable(year, freq, convention, periodEndRef, DefaultOffsetTable)
}

// GeneratePeriodsWithTable is GeneratePeriods with an explicit offset table.
func GeneratePeriodsWithTable(year int, freq Frequency, convention TaxYearConvention, periodEndRef *calendar.Date, table []OffsetWindow) ([]Period, error) {
	spec, ok := conventions[convention]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaxYear, convention)
	}

	switch freq {
	case Monthly:
		return monthlyPeriods(year, freq, convention, spec, 1), nil
	case Quarterly:
		return monthlyPeriods(year, freq, convention, spec, 3), nil
	case HalfYearly:
		return monthlyPeriods(year, freq, convention, spec, 6), nil
	case Yearly:
		return monthlyPeriods(year, freq, convention, spec, 12), nil
	case SemiMonthly:
		return semiMonthlyPeriods(year, convention, spec), nil
	case Weekly:
		return weeklyPeriods(year, freq, convention, spec, 1, periodEndRef, table), nil
	case BiWeekly:
		return weeklyPeriods(year, freq, convention, spec, 2, periodEndRef, table), nil
	case FourWeekly:
		return weeklyPeriods(year, freq, convention, spec, 4, periodEndRef, table), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
}

// monthlyPeriods emits one period every strideMonths months, end = last day
// of month, counted from the convention's anchor month.
func monthlyPeriods(year int, freq Frequency, convention TaxYearConvention, spec conventionSpec, strideMonths int) []Period {
	var periods []Period
	anchor := calendar.New(year, spec.anchor, 1)
	for i := strideMonths - 1; i < spec.monthlyPeriods; i += strideMonths {
		end := anchor.AddMonths(i).EndOfMonth()
		periods = append(periods, Period{
			Label:     monthlyLabel(freq, end),
			End:       end,
			Frequency: freq,
			TaxYear:   convention,
		})
	}
	return periods
}

// semiMonthlyPeriods emits two periods per month, ending on the 1st and
// the 15th.
func semiMonthlyPeriods(year int, convention TaxYearConvention, spec conventionSpec) []Period {
	var periods []Period
	anchor := calendar.New(year, spec.anchor, 1)
	for i := 0; i < spec.monthlyPeriods; i++ {
		first := anchor.AddMonths(i)
		for _, day := range []int{1, 15} {
			end := calendar.New(first.Year(), first.Month(), day)
			periods = append(periods, Period{
				Label:     end.Month().String(),
				End:       end,
				Frequency: SemiMonthly,
				TaxYear:   convention,
			})
		}
	}
	return periods
}

// weeklyPeriods emits periods by adding whole weeks to the January-2 anchor
// of the target year.
func weeklyPeriods(year int, freq Frequency, convention TaxYearConvention, spec conventionSpec, strideWeeks int, periodEndRef *calendar.Date, table []OffsetWindow) []Period {
	anchor := calendar.New(year, time.January, 2)
	offset := weekOffset(anchor, periodEndRef, strideWeeks, table)

	count := (spec.weeklyPeriods + strideWeeks - 1) / strideWeeks
	periods := make([]Period, 0, count)
	for i := 0; i < count; i++ {
		end := anchor.AddDays(7 * (offset + i*strideWeeks))
		week := calendar.DaysBetween(anchor, end)/7 + 1
		periods = append(periods, Period{
			Label:     fmt.Sprintf("Week %d", week),
			End:       end,
			Frequency: freq,
			TaxYear:   convention,
		})
	}
	return periods
}

// weekOffset derives the starting week offset from the period-end reference
// date: a range match against the offset table first, then the reference's
// whole-week distance from the anchor modulo the stride.
func weekOffset(anchor calendar.Date, periodEndRef *calendar.Date, strideWeeks int, table []OffsetWindow) int {
	if periodEndRef == nil || periodEndRef.IsZero() {
		return 0
	}
	ref := *periodEndRef
	for _, w := range table {
		if ref.AfterOrEqual(w.From) && ref.BeforeOrEqual(w.To) {
			return w.Offset % strideWeeks
		}
	}
	// Floor division: a reference a few days before the anchor is week -1,
	// not week 0, so cycle parity is continuous across the anchor.
	days := calendar.DaysBetween(anchor, ref)
	weeks := days / 7
	if days%7 != 0 && days < 0 {
		weeks--
	}
	offset := weeks % strideWeeks
	if offset < 0 {
		offset += strideWeeks
	}
	return offset
}

func monthlyLabel(freq Frequency, end calendar.Date) string {
	if freq == Yearly {
		return fmt.Sprintf("%d", end.Year())
	}
	return end.Month().String()
}
