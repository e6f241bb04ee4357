/*
Package holiday fetches and memoizes public holidays per country.

PURPOSE:
  The working-day calculator needs to know, for a set of countries and a
  calendar month, which dates are public holidays. This package owns that
  lookup: it wraps an external holiday provider, caches results per
  (country, year, month), coalesces concurrent fetches, and merges in
  per-organization custom holiday overrides.

KEY CONCEPTS:
  - Provider: the external lookup service contract (fetch per country+year)
  - OverrideSource: an organization's definitive local calendar; when an
    override exists for a (country, month) it REPLACES provider data
  - Resolver: the memoizing cache object with a populate-once lifecycle
  - Warning: a reported data problem (provider failure) that does not fail
    the computation; the affected country just contributes no holidays

OBSERVED DATES:
  When a provider reports an observed date different from the nominal one,
  the observed date is the effective date everywhere and the holiday name
  is suffixed accordingly.

SEE ALSO:
  - resolver.go: cache and fetch coalescing
  - httpprovider.go: HTTP implementation of Provider
  - schedule/workday.go: the main consumer
*/
package holiday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/calendar"
)

// ErrDataUnavailable marks a provider failure (or a suspicious empty result)
// for a country/year. It is surfaced as a Warning, never as a hard failure.
var ErrDataUnavailable = errors.New("holiday data unavailable")

// Holiday is a public (or organization-declared) holiday. Date is the
// effective date: the observed date when the provider reports one.
type Holiday struct {
	Country  string        `json:"country"`
	Date     calendar.Date `json:"date"`
	Name     string        `json:"name"`
	Observed bool          `json:"observed,omitempty"`
}

// ProviderHoliday is the raw record returned by the external provider.
type ProviderHoliday struct {
	Date         calendar.Date
	Name         string
	ObservedDate *calendar.Date
}

// Provider is the external holiday lookup service. It may fail or return an
// empty list; both are handled without crashing the generator.
type Provider interface {
	FetchHolidays(ctx context.Context, countryCode string, year int) ([]ProviderHoliday, error)
}

// OverrideSource supplies an organization's custom holiday list per country.
// A nil OverrideSource means no overrides.
type OverrideSource interface {
	HolidayOverrides(ctx context.Context, countryCode string, year int) ([]Holiday, error)
}

// Warning reports a per-country data problem for one month window.
type Warning struct {
	Country string
	Year    int
	Month   time.Month
	Err     error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %d-%02d: %v", w.Country, w.Year, int(w.Month), w.Err)
}

// effective converts a provider record to its effective Holiday.
func (p ProviderHoliday) effective(country string) Holiday {
	h := Holiday{Country: country, Date: p.Date, Name: p.Name}
	if p.ObservedDate != nil && !p.ObservedDate.Equal(p.Date) {
		h.Date = *p.ObservedDate
		h.Name = p.Name + " (observed)"
		h.Observed = true
	}
	return h
}
