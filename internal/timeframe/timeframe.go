// Package timeframe provides time range parsing and period key handling for
// analytics rollups.
package timeframe

import (
	"fmt"
	"time"
)

// RangeLabel represents the available time range options for data fetches.
type RangeLabel string

const (
	RangeLabel24h RangeLabel = "24h"
	RangeLabel7d  RangeLabel = "7d"
	RangeLabel30d RangeLabel = "30d"
	RangeLabelAll RangeLabel = "all"
)

// Period identifies the granularity of an analytics rollup window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// allTimeFloor bounds "all" ranges so queries stay indexable.
var allTimeFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseRange resolves a range label into [from, to] in UTC.
// Unknown labels fall back to the last 7 days rather than erroring, so a bad
// query parameter never breaks a dashboard fetch.
func ParseRange(label string, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch RangeLabel(label) {
	case RangeLabel24h:
		return now.Add(-24 * time.Hour), now
	case RangeLabel7d:
		return now.AddDate(0, 0, -7), now
	case RangeLabel30d:
		return now.AddDate(0, 0, -30), now
	case RangeLabelAll:
		return allTimeFloor, now
	default:
		return now.AddDate(0, 0, -7), now
	}
}

// ValidPeriod reports whether p is one of the supported rollup periods.
func ValidPeriod(p Period) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// KeyFor formats the period key identifying the rollup window containing t.
// Daily keys are dates ("2024-03-15"), weekly keys use ISO weeks
// ("2024-W11"), monthly keys are year-month ("2024-03"), yearly keys are the
// year ("2024").
func KeyFor(p Period, t time.Time) string {
	t = t.UTC()
	switch p {
	case PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodMonthly:
		return t.Format("2006-01")
	case PeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// BoundsFor resolves a period key back into its [start, end) window in UTC.
func BoundsFor(p Period, key string) (time.Time, time.Time, error) {
	switch p {
	case PeriodDaily:
		start, err := time.ParseInLocation("2006-01-02", key, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid daily period key %q: %w", key, err)
		}
		return start, start.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		var year, week int
		if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid weekly period key %q: %w", key, err)
		}
		start := firstDayOfISOWeek(year, week)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start, err := time.ParseInLocation("2006-01", key, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid monthly period key %q: %w", key, err)
		}
		return start, start.AddDate(0, 1, 0), nil
	case PeriodYearly:
		start, err := time.ParseInLocation("2006", key, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid yearly period key %q: %w", key, err)
		}
		return start, start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period: %s", p)
}

// PreviousKey returns the period key for the window immediately before key.
// Used for period-over-period comparisons.
func PreviousKey(p Period, key string) (string, error) {
	start, _, err := BoundsFor(p, key)
	if err != nil {
		return "", err
	}

	var prev time.Time
	switch p {
	case PeriodWeekly:
		prev = start.AddDate(0, 0, -7)
	case PeriodMonthly:
		prev = start.AddDate(0, -1, 0)
	case PeriodYearly:
		prev = start.AddDate(-1, 0, 0)
	default:
		prev = start.AddDate(0, 0, -1)
	}
	return KeyFor(p, prev), nil
}

// firstDayOfISOWeek returns the Monday starting the given ISO week.
func firstDayOfISOWeek(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	isoYearStart := jan4.AddDate(0, 0, -int(jan4.Weekday()-time.Monday))
	if jan4.Weekday() == time.Sunday {
		isoYearStart = jan4.AddDate(0, 0, -6)
	}
	return isoYearStart.AddDate(0, 0, (week-1)*7)
}
