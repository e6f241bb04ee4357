/*
generator.go - Milestone schedule generation

PURPOSE:
  The top-level orchestrator. For a legal entity's schedule configuration
  and a target year it computes every calendar date that matters to
  payroll: per period, the working-day-adjusted due date, then every other
  milestone's date by walking working days outward from the pivot,
  accumulating the holidays encountered.

PER-PERIOD STATE MACHINE (no persisted state; computed fresh):
  1. Resolve the due date from the period boundary and the due rule
  2. Identify the pivot milestone (exactly-one invariant)
  3. Partition milestones: "before" (index >= pivot, pivot first) and
     "after" (index < pivot, ascending)
  4. Walk the before sequence outward from the due date, each step
     -interval working days from the previous milestone's date; the
     pivot's zero interval keeps it on the due date itself
  5. Walk the after sequence from the due date, +interval, forward
  6. Merge back into milestone-index order, attach the holiday union

CONCURRENCY:
  Periods are independent: each depends only on (countries, holiday cache,
  milestone set), all read-only during a run. Workers > 1 fans periods out
  over an errgroup with results written into an index-addressed slice, so
  output is byte-identical to sequential generation.

FAILURE SEMANTICS:
  Configuration problems (no common working weekday, unknown due rule,
  ambiguous pivot) fail the entity's run once, wrapped in ConfigError.
  Holiday data problems degrade to per-period warnings.

SEE ALSO:
  - milestone.go: pivot resolution
  - duedate.go, period.go, workday.go: the stages orchestrated here
*/
package schedule

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
)

// Config is a legal entity's stored schedule configuration. The engine
// never mutates it.
type Config struct {
	EntityID   string            `json:"entity_id"`
	EntityType string            `json:"entity_type,omitempty"`
	Countries  []string          `json:"countries"`
	Frequency  Frequency         `json:"frequency"`
	TaxYear    TaxYearConvention `json:"tax_year"`
	DueRule    DueRule           `json:"due_rule"`
	Milestones MilestoneSet      `json:"milestones"`
	// PeriodEndReference anchors weekly-family cadence changes.
	PeriodEndReference *calendar.Date `json:"period_end_reference,omitempty"`
}

// MilestoneDate is one resolved milestone within a period.
type MilestoneDate struct {
	MilestoneID string        `json:"milestone_id"`
	Identifier  string        `json:"identifier"`
	Date        calendar.Date `json:"date"`
}

// PeriodSchedule is the generated record for one period.
type PeriodSchedule struct {
	Label   string        `json:"label"`
	End     calendar.Date `json:"end"`
	DueDate calendar.Date `json:"due_date"`
	// Milestones in milestone-index order.
	Milestones []MilestoneDate `json:"milestones"`
	// Holidays is the union of holidays touched while resolving this
	// period, sorted by date.
	Holidays []holiday.Holiday `json:"holidays,omitempty"`
	// Warnings carries holiday-data problems (DataUnavailable) that
	// degraded but did not fail this period.
	Warnings []string `json:"warnings,omitempty"`
}

// Schedule is the generated output for one entity and year: a pure value,
// recomputed on demand.
type Schedule struct {
	EntityID string           `json:"entity_id"`
	Year     int              `json:"year"`
	Periods  []PeriodSchedule `json:"periods"`
}

// Generator produces schedules. Zero value is not usable; use NewGenerator.
type Generator struct {
	Resolver *holiday.Resolver
	// OffsetTable overrides the weekly-family offset windows.
	OffsetTable []OffsetWindow
	// Workers bounds concurrent period computation; <= 1 means sequential.
	Workers int
	Log     logrus.FieldLogger
}

// NewGenerator creates a sequential Generator over the given resolver.
func NewGenerator(resolver *holiday.Resolver) *Generator {
	return &Generator{
		Resolver:    resolver,
		OffsetTable: DefaultOffsetTable,
		Log:         logrus.StandardLogger(),
	}
}

func (g *Generator) log() logrus.FieldLogger {
	if g.Log != nil {
		return g.Log
	}
	return logrus.StandardLogger()
}

// Generate computes the full schedule for one entity and year.
func (g *Generator) Generate(ctx context.Context, cfg Config, year int) (*Schedule, error) {
	fail := func(err error) (*Schedule, error) {
		return nil, &ConfigError{EntityID: cfg.EntityID, Year: year, Err: err}
	}

	calc, err := NewCalculator(g.Resolver, cfg.Countries)
	if err != nil {
		return fail(err)
	}

	periods, err := GeneratePeriodsWithTable(year, cfg.Frequency, cfg.TaxYear, cfg.PeriodEndReference, g.offsetTable())
	if err != nil {
		return fail(err)
	}

	milestones := cfg.Milestones.ForEntityType(cfg.EntityType)
	pivot, fellBack, err := ResolvePivot(milestones)
	if err != nil {
		// Pivot problems are reported once per entity, not once per period.
		return fail(err)
	}
	if fellBack {
		g.log().WithFields(logrus.Fields{
			"entity":        cfg.EntityID,
			"milestone_set": cfg.Milestones.ID,
			"pivot":         pivot.Identifier,
		}).Warn("no pivot flagged and no pay-day identifier; falling back to highest-index milestone")
	}

	before, after := partition(milestones, pivot)

	results := make([]PeriodSchedule, len(periods))
	if g.Workers > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.Workers)
		for i, p := range periods {
			i, p := i, p
			eg.Go(func() error {
				// Calculators keep per-month lookup state; each worker
				// gets its own fork over the shared (thread-safe) cache.
				ps, err := g.generatePeriod(egCtx, calc.fork(), cfg, p, before, after)
				if err != nil {
					return err
				}
				results[i] = ps
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return fail(err)
		}
	} else {
		for i, p := range periods {
			ps, err := g.generatePeriod(ctx, calc, cfg, p, before, after)
			if err != nil {
				return fail(err)
			}
			results[i] = ps
		}
	}

	return &Schedule{EntityID: cfg.EntityID, Year: year, Periods: results}, nil
}

// partition splits milestones around the pivot: before = index >= pivot,
// walked outward from the due date starting with the pivot itself (its
// zero interval keeps it on the due date), after = index < pivot sorted
// ascending.
func partition(milestones []Milestone, pivot Milestone) (before, after []Milestone) {
	for _, m := range milestones {
		if m.Index >= pivot.Index {
			before = append(before, m)
		} else {
			after = append(after, m)
		}
	}
	sort.SliceStable(before, func(i, j int) bool { return before[i].Index < before[j].Index })
	sort.SliceStable(after, func(i, j int) bool { return after[i].Index < after[j].Index })
	return before, after
}

func (g *Generator) generatePeriod(ctx context.Context, calc *Calculator, cfg Config, p Period, before, after []Milestone) (PeriodSchedule, error) {
	acc := newAccumulator()

	due, dueHolidays, dueWarnings, err := ResolveDueDate(ctx, calc, p, cfg.DueRule)
	if err != nil {
		return PeriodSchedule{}, err
	}
	acc.add(dueHolidays, dueWarnings)

	dates := make(map[string]calendar.Date, len(before)+len(after))

	start := due
	for _, m := range before {
		date, touched, warnings, err := calc.WalkWorkingDays(ctx, start, m.Interval, Earlier)
		if err != nil {
			return PeriodSchedule{}, err
		}
		acc.add(touched, warnings)
		dates[m.ID] = date
		start = date
	}

	start = due
	for _, m := range after {
		date, touched, warnings, err := calc.WalkWorkingDays(ctx, start, m.Interval, Later)
		if err != nil {
			return PeriodSchedule{}, err
		}
		acc.add(touched, warnings)
		dates[m.ID] = date
		start = date
	}

	// Merge both walks back into milestone-index order.
	ordered := make([]Milestone, 0, len(before)+len(after))
	ordered = append(ordered, after...)
	ordered = append(ordered, before...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	milestones := make([]MilestoneDate, 0, len(ordered))
	for _, m := range ordered {
		milestones = append(milestones, MilestoneDate{
			MilestoneID: m.ID,
			Identifier:  m.Identifier,
			Date:        dates[m.ID],
		})
	}

	return PeriodSchedule{
		Label:      p.Label,
		End:        p.End,
		DueDate:    due,
		Milestones: milestones,
		Holidays:   acc.holidays(),
		Warnings:   acc.warnings(),
	}, nil
}

// =============================================================================
// HOLIDAY / WARNING ACCUMULATION
// =============================================================================

type accumulator struct {
	seenHoliday map[string]bool
	hs          []holiday.Holiday
	seenWarning map[string]bool
	ws          []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		seenHoliday: make(map[string]bool),
		seenWarning: make(map[string]bool),
	}
}

func (a *accumulator) add(hs []holiday.Holiday, ws []holiday.Warning) {
	for _, h := range hs {
		key := h.Country + "|" + h.Date.String() + "|" + h.Name
		if !a.seenHoliday[key] {
			a.seenHoliday[key] = true
			a.hs = append(a.hs, h)
		}
	}
	for _, w := range ws {
		s := w.String()
		if !a.seenWarning[s] {
			a.seenWarning[s] = true
			a.ws = append(a.ws, s)
		}
	}
}

func (a *accumulator) holidays() []holiday.Holiday {
	sort.SliceStable(a.hs, func(i, j int) bool {
		if !a.hs[i].Date.Equal(a.hs[j].Date) {
			return a.hs[i].Date.Before(a.hs[j].Date)
		}
		if a.hs[i].Country != a.hs[j].Country {
			return a.hs[i].Country < a.hs[j].Country
		}
		return a.hs[i].Name < a.hs[j].Name
	})
	return a.hs
}

func (a *accumulator) warnings() []string {
	sort.Strings(a.ws)
	return a.ws
}

func (g *Generator) offsetTable() []OffsetWindow {
	if g.OffsetTable != nil {
		return g.OffsetTable
	}
	return DefaultOffsetTable
}
