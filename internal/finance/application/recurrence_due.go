package application

import (
	"fmt"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
)

// DueChecker decides whether a recurring transaction template should fire.
// lastGenerated is the template's watermark, nil when it has never fired;
// origin is the template's own date, which carries the weekday / day-of-month
// the recurrence is pinned to.
type DueChecker interface {
	IsDue(lastGenerated *time.Time, now, origin time.Time) bool
}

// DailyChecker fires once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastGenerated *time.Time, now, _ time.Time) bool {
	return lastGenerated == nil || !sameDay(*lastGenerated, now)
}

// WeeklyChecker fires on the template's weekday, once per day.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastGenerated *time.Time, now, origin time.Time) bool {
	if now.Weekday() != origin.Weekday() {
		return false
	}
	return lastGenerated == nil || !sameDay(*lastGenerated, now)
}

// MonthlyChecker fires once per month on the template's day-of-month, clamped
// to the month's length so a template pinned to the 31st still fires in
// February.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastGenerated *time.Time, now, origin time.Time) bool {
	if lastGenerated != nil && lastGenerated.Year() == now.Year() && lastGenerated.Month() == now.Month() {
		return false
	}
	targetDay := origin.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

var dueCheckers = map[string]DueChecker{
	domain.RecurrenceDaily:   DailyChecker{},
	domain.RecurrenceWeekly:  WeeklyChecker{},
	domain.RecurrenceMonthly: MonthlyChecker{},
}

// GetDueChecker returns the checker for a recurrence tag. "none" has no
// checker and is an error: templates are selected by tag before this runs.
func GetDueChecker(recurrence string) (DueChecker, error) {
	checker, ok := dueCheckers[recurrence]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence tag: %s", recurrence)
	}
	return checker, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
