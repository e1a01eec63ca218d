// Package workspace is the per-user application state: who is signed in
// and the two replicas everything else reads from.
package workspace

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/replica"
	"github.com/lalith-99/echocrm/internal/repository"
	"go.uber.org/zap"
)

// LeadsQuery is the canonical lead load: every lead, newest first.
func LeadsQuery() repository.Query {
	return repository.Query{}.OrderBy("created_at", true)
}

// RemindersQuery is the canonical reminder load: every reminder, soonest first.
func RemindersQuery() repository.Query {
	return repository.Query{}.OrderBy("reminder_date", false)
}

// State belongs to one signed-in user. It is passed explicitly to the
// mutation coordinator and the projections; nothing holds it globally.
type State struct {
	UserID uuid.UUID
	Email  string

	Leads     *replica.Replica[models.Lead]
	Reminders *replica.Replica[models.Reminder]
}

func New(user models.User, leads repository.LeadRepository, reminders repository.ReminderRepository, logger *zap.Logger) *State {
	logger = logger.With(zap.String("user_id", user.ID.String()))
	return &State{
		UserID:    user.ID,
		Email:     user.Email,
		Leads:     replica.New[models.Lead](repository.CollectionLeads, leads.List, logger),
		Reminders: replica.New[models.Reminder](repository.CollectionReminders, reminders.List, logger),
	}
}

// ReloadLeads re-runs the canonical lead query.
func (s *State) ReloadLeads(ctx context.Context) error {
	_, err := s.Leads.Load(ctx, s.UserID, LeadsQuery())
	return err
}

// ReloadReminders re-runs the canonical reminder query.
func (s *State) ReloadReminders(ctx context.Context) error {
	_, err := s.Reminders.Load(ctx, s.UserID, RemindersQuery())
	return err
}

// Reset empties both replicas, e.g. on sign-out.
func (s *State) Reset() {
	s.Leads.Reset()
	s.Reminders.Reset()
}
