package models

// Schedule is a constrained calendar specification: a daily time-of-day plus
// optional month/day/weekday filters. A nil field means "every value of that
// unit", mirroring launchd's StartCalendarInterval semantics.
type Schedule struct {
	Hour   *int
	Minute *int
	Month  *int
	Day    *int
	// Weekdays holds the configured weekday filter (0-6, Sunday=0).
	// nil = no filter. A scalar weekday in the source document becomes a
	// single-element slice; order and duplicates are preserved.
	Weekdays []int
}

// CalendarTrigger is one fully-expanded launchd firing rule, keyed by
// StartCalendarInterval unit name (Hour, Minute, Month, Day, Weekday).
type CalendarTrigger map[string]int
