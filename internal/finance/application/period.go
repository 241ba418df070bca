package application

import (
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
)

// Period is a resolved budget window.
type Period struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Contains reports whether t falls inside the period, bounds inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// ResolvePeriod maps a budget's declared period kind to a concrete window
// around now. Pure function: no clock access, no persistence.
//
// Weekly windows run Sunday through Saturday. Fixed windows end at the last
// nanosecond of their final day so date-range queries with an inclusive upper
// bound catch same-day transactions. Custom periods are returned unchanged;
// validating start < end is the caller's job at create/update time.
func ResolvePeriod(now time.Time, period string, customStart, customEnd *time.Time) Period {
	switch period {
	case domain.PeriodWeekly:
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return Period{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
	case domain.PeriodYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: endOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()))}
	case domain.PeriodCustom:
		if customStart != nil && customEnd != nil {
			return Period{Start: *customStart, End: *customEnd}
		}
		fallthrough
	default: // monthly
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
		return Period{Start: start, End: endOfDay(lastDay)}
	}
}

// NextPeriod returns the window following p for the given period kind,
// used when spawning successor budgets. For fixed kinds it is the calendar
// window after p; for custom it covers the same number of days, starting at
// midnight of the day after p ends.
func NextPeriod(p Period, period string) Period {
	switch period {
	case domain.PeriodWeekly:
		return Period{Start: p.Start.AddDate(0, 0, 7), End: endOfDay(p.Start.AddDate(0, 0, 13))}
	case domain.PeriodYearly:
		start := time.Date(p.Start.Year()+1, time.January, 1, 0, 0, 0, 0, p.Start.Location())
		return Period{Start: start, End: endOfDay(time.Date(p.Start.Year()+1, time.December, 31, 0, 0, 0, 0, p.Start.Location()))}
	case domain.PeriodCustom:
		days := int(startOfDay(p.End).Sub(startOfDay(p.Start)).Round(24*time.Hour)/(24*time.Hour)) + 1
		start := startOfDay(p.End).AddDate(0, 0, 1)
		return Period{Start: start, End: endOfDay(start.AddDate(0, 0, days-1))}
	default: // monthly
		start := time.Date(p.Start.Year(), p.Start.Month()+1, 1, 0, 0, 0, 0, p.Start.Location())
		lastDay := time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, start.Location())
		return Period{Start: start, End: endOfDay(lastDay)}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
