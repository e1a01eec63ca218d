package repository

import (
	"fmt"

	"github.com/lalith-99/echocrm/internal/models"
)

// Queryable fields per collection. Names double as Postgres column names,
// so a store can only ever interpolate a name from these lists.
var (
	LeadFields = map[string]struct{}{
		"id": {}, "name": {}, "email": {}, "phone": {}, "company": {},
		"status": {}, "source": {}, "notes": {},
		"created_at": {}, "updated_at": {}, "last_contacted": {},
	}
	ReminderFields = map[string]struct{}{
		"id": {}, "title": {}, "description": {}, "reminder_date": {},
		"priority": {}, "lead_id": {}, "completed": {}, "completed_at": {},
		"repeat_interval": {}, "created_at": {}, "updated_at": {},
	}
)

// CheckQuery rejects filters or orderings on fields the collection does not have.
func CheckQuery(q Query, allowed map[string]struct{}) error {
	for _, f := range q.Filters {
		if _, ok := allowed[f.Field]; !ok {
			return fmt.Errorf("unknown filter field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		default:
			return fmt.Errorf("unknown operator %q", f.Op)
		}
	}
	if q.Order.Field != "" {
		if _, ok := allowed[q.Order.Field]; !ok {
			return fmt.Errorf("unknown order field %q", q.Order.Field)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

// LeadValue reads a queryable field off a lead.
func LeadValue(l models.Lead, field string) any {
	switch field {
	case "id":
		return l.ID
	case "name":
		return l.Name
	case "email":
		return l.Email
	case "phone":
		return l.Phone
	case "company":
		return l.Company
	case "status":
		return string(l.Status)
	case "source":
		return l.Source
	case "notes":
		return l.Notes
	case "created_at":
		return l.CreatedAt
	case "updated_at":
		return l.UpdatedAt
	case "last_contacted":
		return Plain(l.LastContacted)
	}
	return nil
}

// ReminderValue reads a queryable field off a reminder.
func ReminderValue(r models.Reminder, field string) any {
	switch field {
	case "id":
		return r.ID
	case "title":
		return r.Title
	case "description":
		return r.Description
	case "reminder_date":
		return r.ReminderDate
	case "priority":
		return string(r.Priority)
	case "lead_id":
		return Plain(r.LeadID)
	case "completed":
		return r.Completed
	case "completed_at":
		return Plain(r.CompletedAt)
	case "repeat_interval":
		return string(r.RepeatInterval)
	case "created_at":
		return r.CreatedAt
	case "updated_at":
		return r.UpdatedAt
	}
	return nil
}
