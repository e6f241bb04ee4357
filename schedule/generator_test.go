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

// =============================================================================
// TEST SETUP
// =============================================================================

// standardSet mirrors a typical payroll process. Indexes above the pivot
// are walked backward from the due date (approval, then input cutoff);
// indexes below are walked forward (GL close, then payslip distribution).
func standardSet() schedule.MilestoneSet {
	return schedule.MilestoneSet{
		ID:   "set-1",
		Name: "standard",
		Milestones: []schedule.Milestone{
			{ID: "m-gl", Identifier: "gl_close", Interval: 3, Index: 1},
			{ID: "m-payslips", Identifier: "payslips_out", Interval: 2, Index: 2},
			{ID: "m-pay", Identifier: "pay_day", Interval: 0, Index: 3, Pivot: true},
			{ID: "m-approve", Identifier: "approve_run", Interval: 2, Index: 4},
			{ID: "m-cutoff", Identifier: "input_cutoff", Interval: 3, Index: 5},
		},
	}
}

func gbConfig() schedule.Config {
	return schedule.Config{
		EntityID:   "entity-1",
		Countries:  []string{"GB"},
		Frequency:  schedule.Monthly,
		TaxYear:    schedule.CalendarYear,
		DueRule:    schedule.DueRule{Kind: schedule.DueLast},
		Milestones: standardSet(),
	}
}

func newGBGenerator(t *testing.T) *schedule.Generator {
	t.Helper()
	resolver := holiday.NewResolver(&staticProvider{byCountry: map[string][]holiday.ProviderHoliday{"GB": gb2024()}}, nil)
	return schedule.NewGenerator(resolver)
}

func milestoneDates(p schedule.PeriodSchedule) map[string]calendar.Date {
	out := make(map[string]calendar.Date, len(p.Milestones))
	for _, m := range p.Milestones {
		out[m.Identifier] = m.Date
	}
	return out
}

// =============================================================================
// FULL SCHEDULE GENERATION
// =============================================================================

func TestGenerate_MonthlyGB_WalksOutwardFromPivot(t *testing.T) {
	// GIVEN: A monthly GB entity paying on the period's last working day
	// WHEN: Generating April 2024 (boundary Tuesday April 30)
	// THEN: pay_day sits on the due date, approve_run 2 working days
	//       earlier, input_cutoff 3 more before that; gl_close 3 working
	//       days after, payslips_out 2 more (skipping the May 6 holiday)

	gen := newGBGenerator(t)
	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)
	require.Len(t, s.Periods, 12)

	april := s.Periods[3]
	assert.Equal(t, "April", april.Label)
	assert.Equal(t, calendar.New(2024, time.April, 30), april.DueDate)

	dates := milestoneDates(april)
	assert.Equal(t, calendar.New(2024, time.April, 30), dates["pay_day"])
	assert.Equal(t, calendar.New(2024, time.April, 26), dates["approve_run"]) // Friday
	assert.Equal(t, calendar.New(2024, time.April, 23), dates["input_cutoff"])
	assert.Equal(t, calendar.New(2024, time.May, 3), dates["gl_close"])
	assert.Equal(t, calendar.New(2024, time.May, 8), dates["payslips_out"]) // May 6 is a bank holiday
}

func TestGenerate_PivotIntervalZero_StaysOnDueDate(t *testing.T) {
	// GIVEN: A minimal set: zero-interval pivot plus one milestone five
	//        working days before it
	// WHEN: Generating April 2024
	// THEN: The pivot is the due date and the other milestone lands on
	//       2024-04-23, skipping the two weekends in between

	gen := newGBGenerator(t)
	cfg := gbConfig()
	cfg.Milestones = schedule.MilestoneSet{
		ID:   "set-2",
		Name: "minimal",
		Milestones: []schedule.Milestone{
			{ID: "m-pay", Identifier: "pay_day", Interval: 0, Index: 1, Pivot: true},
			{ID: "m-cutoff", Identifier: "input_cutoff", Interval: 5, Index: 2},
		},
	}

	s, err := gen.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)

	dates := milestoneDates(s.Periods[3])
	assert.Equal(t, calendar.New(2024, time.April, 30), dates["pay_day"])
	assert.Equal(t, calendar.New(2024, time.April, 23), dates["input_cutoff"])
}

func TestGenerate_MilestonesInIndexOrder(t *testing.T) {
	gen := newGBGenerator(t)
	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)

	want := []string{"gl_close", "payslips_out", "pay_day", "approve_run", "input_cutoff"}
	for _, p := range s.Periods {
		require.Len(t, p.Milestones, len(want))
		for i, identifier := range want {
			assert.Equal(t, identifier, p.Milestones[i].Identifier, p.Label)
		}
	}
}

func TestGenerate_AllMilestoneDatesAreWorkingDays(t *testing.T) {
	// Every produced date must be a working day: weekday in the work week
	// and not a holiday.

	gen := newGBGenerator(t)
	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)

	holidaySet := make(map[calendar.Date]bool)
	for _, h := range gb2024() {
		holidaySet[h.Date] = true
	}

	for _, p := range s.Periods {
		for _, m := range p.Milestones {
			wd := m.Date.Weekday()
			assert.NotEqual(t, time.Saturday, wd, "%s %s", p.Label, m.Identifier)
			assert.NotEqual(t, time.Sunday, wd, "%s %s", p.Label, m.Identifier)
			assert.False(t, holidaySet[m.Date], "%s %s on holiday %s", p.Label, m.Identifier, m.Date)
		}
	}
}

func TestGenerate_ChronologicalOrderAroundPivot(t *testing.T) {
	// Milestones above the pivot index never land after the due date;
	// milestones below never land before it.

	gen := newGBGenerator(t)
	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)

	for _, p := range s.Periods {
		dates := milestoneDates(p)
		assert.True(t, dates["input_cutoff"].Before(dates["approve_run"]), p.Label)
		assert.True(t, dates["approve_run"].Before(dates["pay_day"]), p.Label)
		assert.True(t, dates["pay_day"].Before(dates["gl_close"]), p.Label)
		assert.True(t, dates["gl_close"].Before(dates["payslips_out"]), p.Label)
	}
}

func TestGenerate_CollectsHolidaysCrossed(t *testing.T) {
	// December's backward walk crosses Christmas and Boxing Day.

	gen := newGBGenerator(t)
	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)

	december := s.Periods[11]
	names := make([]string, 0, len(december.Holidays))
	for _, h := range december.Holidays {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "Christmas Day")
	assert.Contains(t, names, "Boxing Day")
}

// =============================================================================
// CONCURRENCY AND DETERMINISM
// =============================================================================

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	// GIVEN: The same configuration
	// WHEN: Generating sequentially and with four workers
	// THEN: The outputs are identical

	sequential := newGBGenerator(t)
	parallel := newGBGenerator(t)
	parallel.Workers = 4

	cfg := gbConfig()
	cfg.Frequency = schedule.Weekly

	a, err := sequential.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)
	b, err := parallel.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerate_Deterministic(t *testing.T) {
	gen := newGBGenerator(t)
	cfg := gbConfig()

	a, err := gen.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)
	b, err := gen.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestGenerate_AmbiguousPivot_FailsRun(t *testing.T) {
	gen := newGBGenerator(t)
	cfg := gbConfig()
	cfg.Milestones.Milestones[0].Pivot = true // second flag next to m-pay

	_, err := gen.Generate(context.Background(), cfg, 2024)

	require.Error(t, err)
	assert.True(t, schedule.IsConfigError(err))
	assert.ErrorIs(t, err, schedule.ErrAmbiguousPivot)
}

func TestGenerate_UnknownFrequency_FailsRun(t *testing.T) {
	gen := newGBGenerator(t)
	cfg := gbConfig()
	cfg.Frequency = "fortnightly"

	_, err := gen.Generate(context.Background(), cfg, 2024)

	assert.True(t, schedule.IsConfigError(err))
	assert.ErrorIs(t, err, schedule.ErrUnknownFrequency)
}

func TestGenerate_ProviderOutage_WarnsPerPeriod(t *testing.T) {
	// A holiday-data outage never fails the run; periods carry warnings
	// and dates degrade to weekday-only adjustment.

	resolver := holiday.NewResolver(&staticProvider{err: errProviderDown}, nil)
	gen := schedule.NewGenerator(resolver)

	s, err := gen.Generate(context.Background(), gbConfig(), 2024)
	require.NoError(t, err)

	for _, p := range s.Periods {
		assert.NotEmpty(t, p.Warnings, p.Label)
	}
}

func TestGenerate_EntityTypeFiltering(t *testing.T) {
	// GIVEN: A milestone restricted to subsidiaries
	// WHEN: Generating for a branch entity
	// THEN: The restricted milestone is absent

	gen := newGBGenerator(t)
	cfg := gbConfig()
	cfg.EntityType = "branch"
	cfg.Milestones.Milestones[0].EntityTypes = []string{"subsidiary"} // gl_close

	s, err := gen.Generate(context.Background(), cfg, 2024)
	require.NoError(t, err)

	for _, p := range s.Periods {
		assert.Len(t, p.Milestones, 4)
		for _, m := range p.Milestones {
			assert.NotEqual(t, "gl_close", m.Identifier)
		}
	}
}
