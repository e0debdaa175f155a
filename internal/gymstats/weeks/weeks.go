// Package weeks holds calendar helpers for Monday-aligned training weeks.
// All returned dates are civil dates at 00:00 UTC.
package weeks

import (
	"fmt"
	"strings"
	"time"
)

const Day = 24 * time.Hour

var dayOffsets = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// Date returns the civil date y-m-d.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the calendar date as seen in t's location.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// WeekStart returns the Monday of the ISO week containing date.
func WeekStart(date time.Time) time.Time {
	d := Truncate(date)
	// Monday=0 ... Sunday=6
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekEnd returns the Sunday closing the week containing date.
func WeekEnd(date time.Time) time.Time {
	return WeekStart(date).AddDate(0, 0, 6)
}

func ISOWeekNumber(date time.Time) int {
	_, week := Truncate(date).ISOWeek()
	return week
}

// DayOffset maps a weekday name (full or 3-letter, any case) to its distance from Monday.
func DayOffset(dayName string) (int, bool) {
	name := strings.ToLower(strings.TrimSpace(dayName))
	if offset, ok := dayOffsets[name]; ok {
		return offset, true
	}
	if len(name) == 3 {
		for full, offset := range dayOffsets {
			if strings.HasPrefix(full, name) {
				return offset, true
			}
		}
	}
	return 0, false
}

func WeekdayName(date time.Time) string {
	return Truncate(date).Weekday().String()
}

// Label renders a date as "Week 12, Tuesday".
func Label(date time.Time) string {
	return fmt.Sprintf("Week %d, %s", ISOWeekNumber(date), WeekdayName(date))
}
