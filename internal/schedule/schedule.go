// Package schedule expands calendar specifications into launchd trigger
// tuples and computes the daily wake time for the power service.
package schedule

import (
	"fmt"
	"strings"

	"github.com/zacczakk/workflows/internal/models"
)

// Expand produces one CalendarTrigger per configured weekday, or a single
// trigger when no weekday filter is set. Absent units are omitted so launchd
// treats them as "every occurrence".
func Expand(s models.Schedule) []models.CalendarTrigger {
	base := models.CalendarTrigger{}
	if s.Hour != nil {
		base["Hour"] = *s.Hour
	}
	if s.Minute != nil {
		base["Minute"] = *s.Minute
	}
	if s.Month != nil {
		base["Month"] = *s.Month
	}
	if s.Day != nil {
		base["Day"] = *s.Day
	}

	if s.Weekdays == nil {
		return []models.CalendarTrigger{base}
	}

	triggers := make([]models.CalendarTrigger, 0, len(s.Weekdays))
	for _, d := range s.Weekdays {
		trigger := models.CalendarTrigger{}
		for k, v := range base {
			trigger[k] = v
		}
		trigger["Weekday"] = d
		triggers = append(triggers, trigger)
	}
	return triggers
}

// MinuteOfDay is the schedule's start time as minutes past midnight,
// defaulting absent hour/minute to 0. Also the sort key for --sort schedule.
func MinuteOfDay(s models.Schedule) int {
	minute := 0
	if s.Hour != nil {
		minute = *s.Hour * 60
	}
	if s.Minute != nil {
		minute += *s.Minute
	}
	return minute
}

// EarliestWakeMinute scans enabled workflows (skipping exclude, used when
// that workflow is about to be disabled) and returns the smallest
// minute-of-day. ok is false when no workflow qualifies.
func EarliestWakeMinute(workflows map[string]models.Workflow, exclude string) (minute int, ok bool) {
	earliest := -1
	for name, wf := range workflows {
		if !wf.Enabled || name == exclude {
			continue
		}
		m := MinuteOfDay(wf.Schedule)
		if earliest < 0 || m < earliest {
			earliest = m
		}
	}
	if earliest < 0 {
		return 0, false
	}
	return earliest, true
}

// WakeTime renders a minute-of-day as the HH:MM:00 form pmset expects.
func WakeTime(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d:00", minuteOfDay/60, minuteOfDay%60)
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayName(d int) string {
	if d >= 0 && d < len(weekdayNames) {
		return weekdayNames[d]
	}
	return fmt.Sprintf("%d", d)
}

// Describe renders a schedule for list/status output, e.g. "daily 06:30",
// "Mon 08:00" or "Mon,Wed 09:15".
func Describe(s models.Schedule) string {
	hour, minute := 0, 0
	if s.Hour != nil {
		hour = *s.Hour
	}
	if s.Minute != nil {
		minute = *s.Minute
	}
	at := fmt.Sprintf("%02d:%02d", hour, minute)

	if s.Weekdays == nil {
		return "daily " + at
	}
	names := make([]string, len(s.Weekdays))
	for i, d := range s.Weekdays {
		names[i] = weekdayName(d)
	}
	return strings.Join(names, ",") + " " + at
}
