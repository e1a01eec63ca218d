// Package dates derives calendar labels and reminder status from a record's
// timestamps and an explicit "now". Nothing here reads the wall clock; the
// location of now decides where midnight falls.
package dates

import (
	"fmt"
	"math"
	"time"
)

// Status is the computed classification of a reminder.
type Status string

const (
	Completed Status = "Completed"
	Overdue   Status = "Overdue"
	DueToday  Status = "Due Today"
	Upcoming  Status = "Upcoming"
)

// Class is the CSS-friendly form of the status ("due-today").
func (s Status) Class() string {
	switch s {
	case Completed:
		return "completed"
	case Overdue:
		return "overdue"
	case DueToday:
		return "due-today"
	default:
		return "upcoming"
	}
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a falls on the same calendar day as now, judged in
// now's location.
func SameDay(a, now time.Time) bool {
	ay, am, ad := a.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ay == ny && am == nm && ad == nd
}

// DayDiff is the number of midnights between date and now in now's location.
// Positive means date is in the past: yesterday is 1, tomorrow is -1.
func DayDiff(date, now time.Time) int {
	d := StartOfDay(date.In(now.Location()))
	n := StartOfDay(now)
	// Dates are built with time.Date, so a DST shift can leave the gap at
	// 23h or 25h. Rounding to whole days absorbs it.
	return int(math.Round(n.Sub(d).Hours() / 24))
}

// RelativeLabel renders a past-leaning date the way the lead table does:
// Today, Yesterday, Tomorrow, "N days ago" within a week, otherwise
// "Jan 2, 2006".
func RelativeLabel(date, now time.Time) string {
	switch diff := DayDiff(date, now); {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Yesterday"
	case diff == -1:
		return "Tomorrow"
	case diff > 1 && diff < 7:
		return fmt.Sprintf("%d days ago", diff)
	default:
		return date.In(now.Location()).Format("Jan 2, 2006")
	}
}

// ReminderLabel is the reminder list variant: Today, Tomorrow, Yesterday,
// otherwise "Mon, Jan 2".
func ReminderLabel(date, now time.Time) string {
	switch DayDiff(date, now) {
	case 0:
		return "Today"
	case -1:
		return "Tomorrow"
	case 1:
		return "Yesterday"
	default:
		return date.In(now.Location()).Format("Mon, Jan 2")
	}
}

// Classify computes a reminder's status. Completion wins; otherwise a date
// before today's midnight is overdue, a date on today is due today, and
// anything later is upcoming.
func Classify(completed bool, date, now time.Time) Status {
	if completed {
		return Completed
	}
	if date.Before(StartOfDay(now)) {
		return Overdue
	}
	if SameDay(date, now) {
		return DueToday
	}
	return Upcoming
}
