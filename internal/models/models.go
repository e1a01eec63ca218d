package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the identity behind a session. Every lead and reminder row carries
// the ID of exactly one User, and every store query filters on it.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// LeadStatus is the pipeline stage of a lead. The set is closed: forms reject
// anything that is not one of the constants below.
type LeadStatus string

const (
	LeadNew       LeadStatus = "New"
	LeadContacted LeadStatus = "Contacted"
	LeadQualified LeadStatus = "Qualified"
	LeadProposal  LeadStatus = "Proposal"
	LeadClosed    LeadStatus = "Closed"

	DefaultLeadStatus = LeadNew
)

// LeadStatuses lists the statuses in pipeline order.
var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadQualified, LeadProposal, LeadClosed}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Lead is a prospective client.
//
// LastContacted is nil until the user explicitly logs a contact. Plain edits
// never touch it.
type Lead struct {
	ID            string     `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Company       string     `json:"company"`
	Status        LeadStatus `json:"status"`
	Source        string     `json:"source"`
	Notes         string     `json:"notes"`
	Tags          []string   `json:"tags"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
}

func (l Lead) RecordID() string { return l.ID }

// LeadFields is the user-editable part of a Lead. Create sends all of it,
// update overwrites all of it.
type LeadFields struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Status  LeadStatus
	Source  string
	Notes   string
	Tags    []string
}

// Normalize trims text fields, applies the default status and cleans tags.
// It is the only place lead defaults are decided.
func (f *LeadFields) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Company = strings.TrimSpace(f.Company)
	f.Source = strings.TrimSpace(f.Source)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Status == "" {
		f.Status = DefaultLeadStatus
	}
	f.Tags = CleanTags(f.Tags)
}

// CleanTags trims each tag, drops empties and duplicates, keeping first-seen order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// LeadPatch is a partial update. Nil pointers leave the stored value alone.
// TouchContact stamps LastContacted with store time.
type LeadPatch struct {
	Fields       *LeadFields
	TouchContact bool
}

// Priority of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	DefaultPriority = PriorityMedium
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities for sorting: high > medium > low > unknown.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RepeatInterval is the recurrence unit of a reminder. Empty means the
// reminder does not repeat.
type RepeatInterval string

const (
	RepeatNone    RepeatInterval = ""
	RepeatDaily   RepeatInterval = "daily"
	RepeatWeekly  RepeatInterval = "weekly"
	RepeatMonthly RepeatInterval = "monthly"
)

func (r RepeatInterval) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Next returns the occurrence one interval after t. For RepeatNone it
// returns t unchanged and false.
func (r RepeatInterval) Next(t time.Time) (time.Time, bool) {
	switch r {
	case RepeatDaily:
		return t.AddDate(0, 0, 1), true
	case RepeatWeekly:
		return t.AddDate(0, 0, 7), true
	case RepeatMonthly:
		return t.AddDate(0, 1, 0), true
	default:
		return t, false
	}
}

// Reminder is a dated follow-up, optionally tied to a lead.
//
// Completed and CompletedAt move together: CompletedAt is nil while
// Completed is false, and set (never before CreatedAt) once it is true.
type Reminder struct {
	ID             string         `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ReminderDate   time.Time      `json:"reminder_date"`
	ReminderTime   string         `json:"reminder_time,omitempty"`
	Priority       Priority       `json:"priority"`
	LeadID         *string        `json:"lead_id,omitempty"`
	Completed      bool           `json:"completed"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	RepeatInterval RepeatInterval `json:"repeat_interval,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (r Reminder) RecordID() string { return r.ID }

// ReminderFields is the user-editable part of a Reminder.
type ReminderFields struct {
	Title          string
	Description    string
	ReminderDate   time.Time
	ReminderTime   string
	Priority       Priority
	LeadID         *string
	RepeatInterval RepeatInterval
}

// Normalize trims text, applies the default priority and turns an empty
// lead id into "no lead".
func (f *ReminderFields) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.ReminderTime = strings.TrimSpace(f.ReminderTime)
	if f.Priority == "" {
		f.Priority = DefaultPriority
	}
	if f.LeadID != nil && strings.TrimSpace(*f.LeadID) == "" {
		f.LeadID = nil
	}
}

// Fields copies the editable part out of a stored reminder.
func (r Reminder) Fields() ReminderFields {
	return ReminderFields{
		Title:          r.Title,
		Description:    r.Description,
		ReminderDate:   r.ReminderDate,
		ReminderTime:   r.ReminderTime,
		Priority:       r.Priority,
		LeadID:         r.LeadID,
		RepeatInterval: r.RepeatInterval,
	}
}

// ReminderPatch is a partial update. Complete marks the reminder done; the
// store keeps an existing CompletedAt so repeated completion is a no-op on it.
type ReminderPatch struct {
	Fields   *ReminderFields
	Complete bool
}
