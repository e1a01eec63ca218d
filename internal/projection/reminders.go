package projection

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/lalith-99/echocrm/internal/dates"
	"github.com/lalith-99/echocrm/internal/models"
)

// ReminderFilter is a reminder list category.
type ReminderFilter string

const (
	FilterAll       ReminderFilter = "all"
	FilterToday     ReminderFilter = "today"
	FilterUpcoming  ReminderFilter = "upcoming"
	FilterOverdue   ReminderFilter = "overdue"
	FilterCompleted ReminderFilter = "completed"
)

// ReminderSort is a reminder list ordering.
type ReminderSort string

const (
	SortDateAsc  ReminderSort = "date-asc"
	SortDateDesc ReminderSort = "date-desc"
	SortPriority ReminderSort = "priority"
)

type ReminderParams struct {
	Search string         `form:"search" json:"search"`
	Filter ReminderFilter `form:"filter" json:"filter"`
	Sort   ReminderSort   `form:"sort" json:"sort"`
}

type ReminderRow struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	DateLabel     string   `json:"date_label"`
	Time          string   `json:"time,omitempty"`
	Priority      string   `json:"priority"`
	PriorityClass string   `json:"priority_class"`
	Status        string   `json:"status"`
	StatusClass   string   `json:"status_class"`
	LeadID        string   `json:"lead_id,omitempty"`
	LeadName      string   `json:"lead_name,omitempty"`
	Repeat        string   `json:"repeat,omitempty"`
	Actions       []Action `json:"actions"`
}

// ReminderStats are computed over the whole replica against now.
type ReminderStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	DueToday  int `json:"due_today"`
	Overdue   int `json:"overdue"`
	Completed int `json:"completed"`
}

type ReminderView struct {
	Active    []ReminderRow `json:"active"`
	Completed []ReminderRow `json:"completed"`
	Visible   int           `json:"visible"`
	Stats     ReminderStats `json:"stats"`
}

// ProjectReminders filters, sorts and renders reminders, splitting the
// visible rows into active and completed lists. leads resolves lead names;
// a reminder whose lead is gone renders without one.
func ProjectReminders(reminders []models.Reminder, leads []models.Lead, p ReminderParams, now time.Time) ReminderView {
	names := make(map[string]string, len(leads))
	for _, l := range leads {
		names[l.ID] = orDefault(l.Name, "No Name")
	}

	visible := make([]models.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if !matchesFilter(r, p.Filter, now) {
			continue
		}
		if !matchesSearch(p.Search, r.Title, r.Description) {
			continue
		}
		visible = append(visible, r)
	}

	slices.SortStableFunc(visible, reminderOrder(p.Sort))

	view := ReminderView{
		Active:    make([]ReminderRow, 0),
		Completed: make([]ReminderRow, 0),
		Visible:   len(visible),
		Stats:     ComputeReminderStats(reminders, now),
	}
	for _, r := range visible {
		row := reminderRow(r, names, now)
		if r.Completed {
			view.Completed = append(view.Completed, row)
		} else {
			view.Active = append(view.Active, row)
		}
	}
	return view
}

func matchesFilter(r models.Reminder, f ReminderFilter, now time.Time) bool {
	today := dates.StartOfDay(now)
	switch f {
	case FilterToday:
		return !r.Completed && dates.SameDay(r.ReminderDate, now)
	case FilterUpcoming:
		return !r.Completed && !r.ReminderDate.Before(today)
	case FilterOverdue:
		return !r.Completed && r.ReminderDate.Before(today)
	case FilterCompleted:
		return r.Completed
	default:
		return true
	}
}

// reminderOrder returns the comparator for a sort key. Priority ties go to
// the earlier date; every key ends on the id.
func reminderOrder(key ReminderSort) func(a, b models.Reminder) int {
	byDate := func(a, b models.Reminder) int {
		if c := a.ReminderDate.Compare(b.ReminderDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}

	switch key {
	case SortDateDesc:
		return func(a, b models.Reminder) int {
			if c := b.ReminderDate.Compare(a.ReminderDate); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		}
	case SortPriority:
		return func(a, b models.Reminder) int {
			if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
				return c
			}
			return byDate(a, b)
		}
	default:
		return byDate
	}
}

func reminderRow(r models.Reminder, leadNames map[string]string, now time.Time) ReminderRow {
	priority := r.Priority
	if priority == "" {
		priority = models.DefaultPriority
	}
	status := dates.Classify(r.Completed, r.ReminderDate, now)
	row := ReminderRow{
		ID:            r.ID,
		Title:         orDefault(r.Title, "No Title"),
		Description:   r.Description,
		DateLabel:     dates.ReminderLabel(r.ReminderDate, now),
		Time:          r.ReminderTime,
		Priority:      strings.ToUpper(string(priority)),
		PriorityClass: "priority-" + string(priority),
		Status:        string(status),
		StatusClass:   status.Class(),
		Repeat:        string(r.RepeatInterval),
		Actions: []Action{
			{Name: "complete", Enabled: !r.Completed},
			{Name: "edit", Enabled: !r.Completed},
			{Name: "delete", Enabled: true},
		},
	}
	if r.LeadID != nil {
		row.LeadID = *r.LeadID
		row.LeadName = leadNames[*r.LeadID]
	}
	return row
}

// ComputeReminderStats classifies every reminder against now.
func ComputeReminderStats(reminders []models.Reminder, now time.Time) ReminderStats {
	var s ReminderStats
	for _, r := range reminders {
		s.Total++
		switch dates.Classify(r.Completed, r.ReminderDate, now) {
		case dates.Completed:
			s.Completed++
			continue
		case dates.Overdue:
			s.Overdue++
		case dates.DueToday:
			s.DueToday++
		}
		s.Active++
	}
	return s
}
