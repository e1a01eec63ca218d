package projection

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lalith-99/echocrm/internal/dates"
	"github.com/lalith-99/echocrm/internal/models"
)

const (
	recentLeadsLimit       = 5
	upcomingRemindersLimit = 5
)

type RecentLead struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	StatusClass  string `json:"status_class"`
	CreatedLabel string `json:"created_label"`
}

type UpcomingReminder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DateLabel   string `json:"date_label"`
	DueToday    bool   `json:"due_today"`
}

type Dashboard struct {
	Greeting          string             `json:"greeting"`
	Initials          string             `json:"initials"`
	Leads             LeadStats          `json:"leads"`
	RecentLeads       []RecentLead       `json:"recent_leads"`
	UpcomingReminders []UpcomingReminder `json:"upcoming_reminders"`
	UpcomingCount     int                `json:"upcoming_count"`
	DueToday          int                `json:"due_today"`
}

// ProjectDashboard builds the landing page: lead stats, the newest leads and
// the next open reminders from today on.
func ProjectDashboard(email string, leads []models.Lead, reminders []models.Reminder, now time.Time) Dashboard {
	d := Dashboard{
		Greeting:          Greeting(email),
		Initials:          Initials(email),
		Leads:             ComputeLeadStats(leads),
		RecentLeads:       make([]RecentLead, 0, recentLeadsLimit),
		UpcomingReminders: make([]UpcomingReminder, 0, upcomingRemindersLimit),
	}

	recent := slices.Clone(leads)
	slices.SortStableFunc(recent, leadOrder(SortNewest))
	for _, l := range recent[:min(len(recent), recentLeadsLimit)] {
		status := orDefault(string(l.Status), string(models.DefaultLeadStatus))
		d.RecentLeads = append(d.RecentLeads, RecentLead{
			ID:           l.ID,
			Name:         orDefault(l.Name, "No Name"),
			Email:        orDefault(l.Email, "No Email"),
			Status:       status,
			StatusClass:  "status-" + strings.ToLower(status),
			CreatedLabel: dates.RelativeLabel(l.CreatedAt, now),
		})
	}

	today := dates.StartOfDay(now)
	upcoming := make([]models.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r.Completed || r.ReminderDate.Before(today) {
			continue
		}
		upcoming = append(upcoming, r)
		if dates.SameDay(r.ReminderDate, now) {
			d.DueToday++
		}
	}
	slices.SortStableFunc(upcoming, func(a, b models.Reminder) int {
		if c := a.ReminderDate.Compare(b.ReminderDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	d.UpcomingCount = len(upcoming)
	for _, r := range upcoming[:min(len(upcoming), upcomingRemindersLimit)] {
		d.UpcomingReminders = append(d.UpcomingReminders, UpcomingReminder{
			ID:          r.ID,
			Title:       orDefault(r.Title, "No Title"),
			Description: orDefault(r.Description, "No notes"),
			DateLabel:   dates.RelativeLabel(r.ReminderDate, now),
			DueToday:    dates.SameDay(r.ReminderDate, now),
		})
	}
	return d
}

// Greeting is the local part of an email with its first letter upper-cased.
func Greeting(email string) string {
	local, _, _ := strings.Cut(email, "@")
	r, size := utf8.DecodeRuneInString(local)
	if r == utf8.RuneError {
		return local
	}
	return string(unicode.ToUpper(r)) + local[size:]
}

// Initials are the first two characters of the email, upper-cased.
func Initials(email string) string {
	runes := []rune(email)
	return strings.ToUpper(string(runes[:min(len(runes), 2)]))
}
