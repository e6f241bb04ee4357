/*
country.go - Country reference data and working-week definitions

PURPOSE:
  Immutable reference data, loaded once per process: ISO codes, display
  names, optional parent codes for sub-national regions, and per-country
  working-weekday sets. Most countries work Monday-Friday; a small set
  works Sunday-Thursday.

SUB-NATIONAL REGIONS:
  A region (e.g. GB-SCT) inherits its parent's working week unless it
  declares its own.

SEE ALSO:
  - workday.go: intersects work weeks across an entity's country set
*/
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Country is one row of the reference table.
type Country struct {
	Code       string
	Name       string
	ParentCode string
	// WorkWeek lists the working weekdays. Empty means: inherit from the
	// parent, or the Monday-Friday default.
	WorkWeek []time.Weekday
}

var (
	mondayFriday   = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	sundayThursday = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
)

// countries is the reference table, keyed by upper-case ISO code.
var countries = map[string]Country{
	"AE": {Code: "AE", Name: "United Arab Emirates"},
	"AU": {Code: "AU", Name: "Australia"},
	"BH": {Code: "BH", Name: "Bahrain", WorkWeek: sundayThursday},
	"BR": {Code: "BR", Name: "Brazil"},
	"CA": {Code: "CA", Name: "Canada"},
	"DE": {Code: "DE", Name: "Germany"},
	"EG": {Code: "EG", Name: "Egypt", WorkWeek: sundayThursday},
	"ES": {Code: "ES", Name: "Spain"},
	"FR": {Code: "FR", Name: "France"},
	"GB": {Code: "GB", Name: "United Kingdom"},
	"GB-ENG": {Code: "GB-ENG", Name: "England", ParentCode: "GB"},
	"GB-NIR": {Code: "GB-NIR", Name: "Northern Ireland", ParentCode: "GB"},
	"GB-SCT": {Code: "GB-SCT", Name: "Scotland", ParentCode: "GB"},
	"GB-WLS": {Code: "GB-WLS", Name: "Wales", ParentCode: "GB"},
	"IE": {Code: "IE", Name: "Ireland"},
	"IL": {Code: "IL", Name: "Israel", WorkWeek: sundayThursday},
	"IN": {Code: "IN", Name: "India"},
	"IT": {Code: "IT", Name: "Italy"},
	"JO": {Code: "JO", Name: "Jordan", WorkWeek: sundayThursday},
	"KW": {Code: "KW", Name: "Kuwait", WorkWeek: sundayThursday},
	"NL": {Code: "NL", Name: "Netherlands"},
	"OM": {Code: "OM", Name: "Oman", WorkWeek: sundayThursday},
	"PL": {Code: "PL", Name: "Poland"},
	"PT": {Code: "PT", Name: "Portugal"},
	"QA": {Code: "QA", Name: "Qatar", WorkWeek: sundayThursday},
	"SA": {Code: "SA", Name: "Saudi Arabia", WorkWeek: sundayThursday},
	"US": {Code: "US", Name: "United States"},
	"ZA": {Code: "ZA", Name: "South Africa"},
}

// LookupCountry returns the reference record for an ISO code.
func LookupCountry(code string) (Country, bool) {
	c, ok := countries[strings.ToUpper(code)]
	return c, ok
}

// WorkWeekFor returns a country's working weekdays, following parent codes
// for sub-national regions. Unknown codes get the Monday-Friday default.
func WorkWeekFor(code string) []time.Weekday {
	c, ok := LookupCountry(code)
	for ok {
		if len(c.WorkWeek) > 0 {
			return c.WorkWeek
		}
		if c.ParentCode == "" {
			break
		}
		c, ok = LookupCountry(c.ParentCode)
	}
	return mondayFriday
}

// WorkWeekIntersection returns the weekdays that are working days in every
// listed country. An empty intersection is a configuration error, not a
// silent infinite loop in the walkers.
func WorkWeekIntersection(codes []string) (map[time.Weekday]bool, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: empty country set", ErrInvalidConfiguration)
	}
	common := make(map[time.Weekday]bool)
	for _, wd := range WorkWeekFor(codes[0]) {
		common[wd] = true
	}
	for _, code := range codes[1:] {
		week := make(map[time.Weekday]bool)
		for _, wd := range WorkWeekFor(code) {
			week[wd] = true
		}
		for wd := range common {
			if !week[wd] {
				delete(common, wd)
			}
		}
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkWeek, strings.Join(codes, ","))
	}
	return common, nil
}
