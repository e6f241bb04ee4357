package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
	"github.com/warp/payroll-engine/schedule"
)

func resolveDue(t *testing.T, calc *schedule.Calculator, end calendar.Date, rule schedule.DueRule) calendar.Date {
	t.Helper()
	p := schedule.Period{End: end, Frequency: schedule.Monthly, TaxYear: schedule.CalendarYear}
	d, _, _, err := schedule.ResolveDueDate(context.Background(), calc, p, rule)
	require.NoError(t, err)
	return d
}

// =============================================================================
// RULE KINDS
// =============================================================================

func TestResolveDueDate_Last(t *testing.T) {
	// GIVEN: February 2024 ending on a working Thursday
	// WHEN: Resolving the "last" rule
	// THEN: The boundary itself is the due date

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.February, 29), schedule.DueRule{Kind: schedule.DueLast})
	assert.Equal(t, calendar.New(2024, time.February, 29), due)
}

func TestResolveDueDate_Last_BoundaryOnWeekend(t *testing.T) {
	// GIVEN: March 2024 ending on a Sunday
	// WHEN: Resolving the "last" rule
	// THEN: The due date steps back to Thursday March 28 (Good Friday is
	//       the 29th)

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.March, 31), schedule.DueRule{Kind: schedule.DueLast})
	assert.Equal(t, calendar.New(2024, time.March, 28), due)
}

func TestResolveDueDate_Weekday(t *testing.T) {
	// GIVEN: April 2024 ending on Tuesday the 30th
	// WHEN: Paying on the last Friday
	// THEN: Friday April 26

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.April, 30),
		schedule.DueRule{Kind: schedule.DueWeekday, Weekday: time.Friday})
	assert.Equal(t, calendar.New(2024, time.April, 26), due)
}

func TestResolveDueDate_DayOfMonth(t *testing.T) {
	// Paying on the 25th of March 2024: the 25th is a working Monday.

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.March, 31),
		schedule.DueRule{Kind: schedule.DueDayOfMonth, DayOfMonth: 25})
	assert.Equal(t, calendar.New(2024, time.March, 25), due)
}

func TestResolveDueDate_DayOfMonth_OverflowFallsBackToBoundary(t *testing.T) {
	// GIVEN: "Pay on the 31st" in April (30 days)
	// WHEN: Resolving
	// THEN: The candidate falls back to the boundary, Tuesday April 30

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.April, 30),
		schedule.DueRule{Kind: schedule.DueDayOfMonth, DayOfMonth: 31})
	assert.Equal(t, calendar.New(2024, time.April, 30), due)
}

func TestResolveDueDate_Following(t *testing.T) {
	// GIVEN: "Paid on the 5th of the following month" for April 2024
	// WHEN: Resolving
	// THEN: May 5 is a Sunday, and May 6 is a bank holiday, so the due
	//       date steps back to Friday May 3

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.April, 30),
		schedule.DueRule{Kind: schedule.DueFollowing, DayOfMonth: 5})
	assert.Equal(t, calendar.New(2024, time.May, 3), due)
}

func TestResolveDueDate_Following_OverflowClampsToMonthEnd(t *testing.T) {
	// "The 31st of the following month" after January lands at the end of
	// February.

	calc := newGBCalculator(t)
	due := resolveDue(t, calc, calendar.New(2024, time.January, 31),
		schedule.DueRule{Kind: schedule.DueFollowing, DayOfMonth: 31})
	assert.Equal(t, calendar.New(2024, time.February, 29), due)
}

func TestResolveDueDate_UnknownRule(t *testing.T) {
	calc := newGBCalculator(t)
	p := schedule.Period{End: calendar.New(2024, time.April, 30)}

	_, _, _, err := schedule.ResolveDueDate(context.Background(), calc, p, schedule.DueRule{Kind: "whenever"})
	assert.ErrorIs(t, err, schedule.ErrUnknownDueRule)
}

// =============================================================================
// HOLIDAY ADJUSTMENT
// =============================================================================

func TestResolveDueDate_CandidateOnHoliday_StepsEarlier(t *testing.T) {
	// GIVEN: A custom calendar where April 30 itself is a holiday
	// WHEN: Resolving the "last" rule for April
	// THEN: The due date steps back to Monday April 29

	provider := &staticProvider{byCountry: map[string][]holiday.ProviderHoliday{
		"GB": {{Date: calendar.New(2024, time.April, 30), Name: "Closure Day"}},
	}}
	resolver := holiday.NewResolver(provider, nil)
	calc, err := schedule.NewCalculator(resolver, []string{"GB"})
	require.NoError(t, err)

	due := resolveDue(t, calc, calendar.New(2024, time.April, 30), schedule.DueRule{Kind: schedule.DueLast})
	assert.Equal(t, calendar.New(2024, time.April, 29), due)
}
