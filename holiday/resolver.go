/*
resolver.go - Memoizing holiday cache with fetch de-duplication

CACHE LIFECYCLE:
  Keys are (country, year, month). A key is populated at most once for the
  life of the Resolver; entries are immutable after population and safe for
  unsynchronized concurrent reads (reads go through an RWMutex only to
  guard the map itself). The caller chooses the lifecycle by choosing how
  long to keep the Resolver: one per generation run, or one per process.

FETCH COALESCING:
  The provider is queried per (country, year); concurrent requests for any
  missing month of that year collapse into a single in-flight fetch via
  singleflight. All waiters observe the same resolved (or failed) entries.

FAILURE ISOLATION:
  A provider failure for one country is cached as a failed entry: the
  country contributes no holidays for that year and every month lookup
  yields a Warning, distinguishable from "no holidays exist". A failing
  override source degrades differently: provider data is served, but
  every month lookup for that country-year carries a Warning so the
  organization's calendar being ignored is never invisible.

SEE ALSO:
  - holiday.go: types and contracts
*/
package holiday

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/warp/payroll-engine/calendar"
)

type monthKey struct {
	country string
	year    int
	month   time.Month
}

type monthEntry struct {
	holidays []Holiday
	// err marks the whole month as unavailable (provider failure).
	err error
	// warn reports a degraded lookup that still served holidays
	// (override source failure, provider data used instead).
	warn error
}

// Resolver caches holidays per (country, year, month).
type Resolver struct {
	provider  Provider
	overrides OverrideSource

	mu    sync.RWMutex
	cache map[monthKey]monthEntry
	group singleflight.Group
}

// NewResolver creates a Resolver over the given provider. overrides may be
// nil when no organization-specific calendar applies.
func NewResolver(provider Provider, overrides OverrideSource) *Resolver {
	return &Resolver{
		provider:  provider,
		overrides: overrides,
		cache:     make(map[monthKey]monthEntry),
	}
}

// Holidays returns all holidays for every given country in the calendar
// month of ref, plus warnings for countries whose data could not be
// fetched. Results are deterministic: countries in argument order,
// holidays sorted by date then name within each country.
func (r *Resolver) Holidays(ctx context.Context, countries []string, ref calendar.Date) ([]Holiday, []Warning) {
	var (
		holidays []Holiday
		warnings []Warning
	)
	for _, country := range countries {
		entry := r.month(ctx, country, ref.Year(), ref.Month())
		if entry.err != nil {
			warnings = append(warnings, Warning{
				Country: country,
				Year:    ref.Year(),
				Month:   ref.Month(),
				Err:     entry.err,
			})
			continue
		}
		holidays = append(holidays, entry.holidays...)
		if entry.warn != nil {
			warnings = append(warnings, Warning{
				Country: country,
				Year:    ref.Year(),
				Month:   ref.Month(),
				Err:     entry.warn,
			})
		}
	}
	return holidays, warnings
}

// month returns the cached entry for one (country, year, month), populating
// the whole (country, year) on a miss.
func (r *Resolver) month(ctx context.Context, country string, year int, month time.Month) monthEntry {
	key := monthKey{country: country, year: year, month: month}

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	flight := country + "|" + strconv.Itoa(year)
	r.group.Do(flight, func() (any, error) {
		r.populateYear(ctx, country, year)
		return nil, nil
	})

	r.mu.RLock()
	entry = r.cache[key]
	r.mu.RUnlock()
	return entry
}

// populateYear fetches one country-year from the provider, applies observed
// dates and overrides, and writes all twelve month entries. It is a no-op
// when the year is already populated (a racing flight finished first).
func (r *Resolver) populateYear(ctx context.Context, country string, year int) {
	r.mu.RLock()
	_, populated := r.cache[monthKey{country: country, year: year, month: time.January}]
	r.mu.RUnlock()
	if populated {
		return
	}

	byMonth := make(map[time.Month][]Holiday)
	raw, fetchErr := r.provider.FetchHolidays(ctx, country, year)
	if fetchErr == nil && len(raw) == 0 {
		fetchErr = fmt.Errorf("%w: provider returned no holidays for %s %d", ErrDataUnavailable, country, year)
	}
	if fetchErr != nil {
		fetchErr = fmt.Errorf("%w: %s %d: %v", ErrDataUnavailable, country, year, fetchErr)
	}
	for _, p := range raw {
		h := p.effective(country)
		// The observed date can shift a holiday into an adjacent year.
		if h.Date.Year() != year {
			continue
		}
		byMonth[h.Date.Month()] = append(byMonth[h.Date.Month()], h)
	}

	overridden, overrideErr := r.applyOverrides(ctx, country, year, byMonth)
	if overrideErr != nil {
		overrideErr = fmt.Errorf("%w: overrides for %s %d: %v", ErrDataUnavailable, country, year, overrideErr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for m := time.January; m <= time.December; m++ {
		key := monthKey{country: country, year: year, month: m}
		if _, ok := r.cache[key]; ok {
			continue
		}
		// The organization's calendar could not be consulted: serve
		// provider data but make the degradation visible.
		entry := monthEntry{holidays: sortedByDate(byMonth[m]), warn: overrideErr}
		// A failed fetch taints months the overrides do not cover.
		if fetchErr != nil && !overridden[m] {
			entry = monthEntry{err: fetchErr}
		}
		r.cache[key] = entry
	}
}

// applyOverrides replaces provider data month-by-month: a month with at
// least one override entry uses only the override entries for that month.
// Returns the set of overridden months. A failing override source is
// reported, never silently ignored: the caller degrades to provider data
// with a warning.
func (r *Resolver) applyOverrides(ctx context.Context, country string, year int, byMonth map[time.Month][]Holiday) (map[time.Month]bool, error) {
	overridden := make(map[time.Month]bool)
	if r.overrides == nil {
		return overridden, nil
	}
	custom, err := r.overrides.HolidayOverrides(ctx, country, year)
	if err != nil {
		return overridden, err
	}
	if len(custom) == 0 {
		return overridden, nil
	}
	perMonth := make(map[time.Month][]Holiday)
	for _, h := range custom {
		if h.Date.Year() != year {
			continue
		}
		h.Country = country
		perMonth[h.Date.Month()] = append(perMonth[h.Date.Month()], h)
	}
	for m, list := range perMonth {
		byMonth[m] = list
		overridden[m] = true
	}
	return overridden, nil
}

func sortedByDate(hs []Holiday) []Holiday {
	sort.SliceStable(hs, func(i, j int) bool {
		if !hs[i].Date.Equal(hs[j].Date) {
			return hs[i].Date.Before(hs[j].Date)
		}
		return hs[i].Name < hs[j].Name
	})
	return hs
}
