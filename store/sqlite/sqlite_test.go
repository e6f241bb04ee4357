package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/schedule"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSet() schedule.MilestoneSet {
	return schedule.MilestoneSet{
		Name: "standard",
		Milestones: []schedule.Milestone{
			{Identifier: "payslips_out", Interval: 2, Index: 1},
			{Identifier: "pay_day", Interval: 0, Index: 2, Pivot: true},
			{Identifier: "input_cutoff", Interval: 3, Index: 3, EntityTypes: []string{"subsidiary"}},
		},
	}
}

// =============================================================================
// MILESTONE SETS
// =============================================================================

func TestStore_MilestoneSet_RoundTrip(t *testing.T) {
	// GIVEN: A set with no IDs assigned
	// WHEN: Saving and reloading
	// THEN: IDs are generated and every field survives, in index order

	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveMilestoneSet(ctx, sampleSet())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	for _, m := range saved.Milestones {
		assert.NotEmpty(t, m.ID)
	}

	loaded, err := store.GetMilestoneSet(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "standard", loaded.Name)
	require.Len(t, loaded.Milestones, 3)
	assert.Equal(t, "payslips_out", loaded.Milestones[0].Identifier)
	assert.True(t, loaded.Milestones[1].Pivot)
	assert.Equal(t, []string{"subsidiary"}, loaded.Milestones[2].EntityTypes)
	assert.Equal(t, 3, loaded.Milestones[2].Interval)
}

func TestStore_MilestoneSet_SaveReplacesMembers(t *testing.T) {
	// Re-saving a set replaces its milestones instead of appending.

	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveMilestoneSet(ctx, sampleSet())
	require.NoError(t, err)

	saved.Name = "trimmed"
	saved.Milestones = saved.Milestones[:1]
	_, err = store.SaveMilestoneSet(ctx, saved)
	require.NoError(t, err)

	loaded, err := store.GetMilestoneSet(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "trimmed", loaded.Name)
	assert.Len(t, loaded.Milestones, 1)
}

func TestStore_MilestoneSet_GetMissing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.GetMilestoneSet(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_MilestoneSet_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveMilestoneSet(ctx, sampleSet())
	require.NoError(t, err)

	require.NoError(t, store.DeleteMilestoneSet(ctx, saved.ID))

	loaded, err := store.GetMilestoneSet(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	sets, err := store.ListMilestoneSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

// =============================================================================
// SCHEDULE CONFIGS
// =============================================================================

func TestStore_ScheduleConfig_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref := calendar.New(2024, time.January, 9)
	cfg := schedule.Config{
		EntityID:           "entity-1",
		EntityType:         "subsidiary",
		Countries:          []string{"GB", "FR"},
		Frequency:          schedule.BiWeekly,
		TaxYear:            schedule.AprilMarch,
		DueRule:            schedule.DueRule{Kind: schedule.DueFollowing, DayOfMonth: 5},
		Milestones:         schedule.MilestoneSet{ID: "set-1"},
		PeriodEndReference: &ref,
	}

	require.NoError(t, store.SaveScheduleConfig(ctx, cfg))

	loaded, err := store.GetScheduleConfig(ctx, "entity-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, cfg.Countries, loaded.Countries)
	assert.Equal(t, schedule.BiWeekly, loaded.Frequency)
	assert.Equal(t, schedule.DueFollowing, loaded.DueRule.Kind)
	assert.Equal(t, 5, loaded.DueRule.DayOfMonth)
	assert.Equal(t, "set-1", loaded.Milestones.ID)
	require.NotNil(t, loaded.PeriodEndReference)
	assert.True(t, ref.Equal(*loaded.PeriodEndReference))
}

func TestStore_ScheduleConfig_MissingEntity_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.GetScheduleConfig(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_ScheduleConfig_RequiresEntityID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveScheduleConfig(context.Background(), schedule.Config{}))
}

// =============================================================================
// CUSTOM HOLIDAYS AND OVERRIDE SOURCE
// =============================================================================

func TestStore_CustomHolidays_RoundTripAndDedup(t *testing.T) {
	// GIVEN: The same holiday declared twice
	// WHEN: Listing
	// THEN: Only one row exists

	store := newTestStore(t)
	ctx := context.Background()

	h := sqlite.CustomHoliday{
		OrgID:   "org-1",
		Country: "GB",
		Date:    calendar.New(2024, time.May, 27),
		Name:    "Company Day",
	}
	_, err := store.SaveCustomHoliday(ctx, h)
	require.NoError(t, err)
	_, err = store.SaveCustomHoliday(ctx, h)
	require.NoError(t, err)

	listed, err := store.ListCustomHolidays(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Company Day", listed[0].Name)
	assert.True(t, h.Date.Equal(listed[0].Date))
}

func TestStore_Overrides_ScopedByOrgCountryYear(t *testing.T) {
	// GIVEN: Rows for two orgs, two countries and two years
	// WHEN: Querying through the OverrideSource adapter
	// THEN: Only the matching org/country/year rows come back

	store := newTestStore(t)
	ctx := context.Background()

	rows := []sqlite.CustomHoliday{
		{OrgID: "org-1", Country: "GB", Date: calendar.New(2024, time.May, 27), Name: "Company Day"},
		{OrgID: "org-1", Country: "GB", Date: calendar.New(2023, time.May, 29), Name: "Company Day"},
		{OrgID: "org-1", Country: "FR", Date: calendar.New(2024, time.May, 27), Name: "Jour d'entreprise"},
		{OrgID: "org-2", Country: "GB", Date: calendar.New(2024, time.May, 27), Name: "Other Org Day"},
	}
	for _, h := range rows {
		_, err := store.SaveCustomHoliday(ctx, h)
		require.NoError(t, err)
	}

	overrides := store.Overrides("org-1")
	hs, err := overrides.HolidayOverrides(ctx, "GB", 2024)
	require.NoError(t, err)

	require.Len(t, hs, 1)
	assert.Equal(t, "Company Day", hs[0].Name)
	assert.Equal(t, "GB", hs[0].Country)
	assert.Equal(t, calendar.New(2024, time.May, 27), hs[0].Date)
}

func TestStore_DeleteCustomHoliday(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveCustomHoliday(ctx, sqlite.CustomHoliday{
		OrgID: "org-1", Country: "GB", Date: calendar.New(2024, time.May, 27), Name: "Company Day",
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteCustomHoliday(ctx, saved.ID))

	listed, err := store.ListCustomHolidays(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
