// Package mutation applies writes to the document store and reconciles the
// workspace replicas afterwards.
//
// The consistency rule is reload-after-write: a mutation never patches a
// replica. Once the store accepts a write the affected collection is
// reloaded in full, and only then does the call return. When the store
// rejects a write the replica is not touched and nothing is retried.
package mutation

import (
	"context"
	"errors"
	"sync"

	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/observ"
	"github.com/lalith-99/echocrm/internal/replica"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/lalith-99/echocrm/internal/workspace"
	"go.uber.org/zap"
)

// Coordinator serialises the mutations of one workspace. Create one per
// session; the zero value is not usable.
type Coordinator struct {
	leads     repository.LeadRepository
	reminders repository.ReminderRepository
	logger    *zap.Logger

	mu sync.Mutex
}

func New(leads repository.LeadRepository, reminders repository.ReminderRepository, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		leads:     leads,
		reminders: reminders,
		logger:    logger,
	}
}

// CreateLead stores a new lead and returns its id once the lead replica
// contains it.
func (c *Coordinator) CreateLead(ctx context.Context, st *workspace.State, f models.LeadFields) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.Normalize()
	id, err := c.leads.Create(ctx, st.UserID, f)
	observ.RecordMutation(repository.CollectionLeads, "create", err)
	if err != nil {
		c.logger.Error("create lead failed", zap.Error(err))
		return "", apperr.Store("Failed to save lead", err)
	}
	c.logger.Info("lead created", zap.String("lead_id", id))

	return id, c.reload(ctx, repository.CollectionLeads, st.ReloadLeads)
}

// UpdateLead overwrites the editable fields of a lead. It does not count as
// contact; see LogContact.
func (c *Coordinator) UpdateLead(ctx context.Context, st *workspace.State, id string, f models.LeadFields) error {
	f.Normalize()
	return c.patchLead(ctx, st, id, "update", models.LeadPatch{Fields: &f}, "Failed to save lead")
}

// LogContact stamps the lead's last-contacted time with store time.
func (c *Coordinator) LogContact(ctx context.Context, st *workspace.State, id string) error {
	return c.patchLead(ctx, st, id, "log_contact", models.LeadPatch{TouchContact: true}, "Failed to log contact")
}

func (c *Coordinator) patchLead(ctx context.Context, st *workspace.State, id, op string, p models.LeadPatch, failMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := st.Leads.Get(id); !ok {
		return apperr.NotFound(repository.CollectionLeads, id)
	}

	err := c.leads.Update(ctx, st.UserID, id, p)
	observ.RecordMutation(repository.CollectionLeads, op, err)
	if err != nil {
		return c.writeFailed(ctx, st.ReloadLeads, repository.CollectionLeads, id, failMsg, err)
	}
	return c.reload(ctx, repository.CollectionLeads, st.ReloadLeads)
}

// DeleteLead removes a lead. Reminders that reference it are left alone.
func (c *Coordinator) DeleteLead(ctx context.Context, st *workspace.State, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := st.Leads.Get(id); !ok {
		return apperr.NotFound(repository.CollectionLeads, id)
	}

	err := c.leads.Delete(ctx, st.UserID, id)
	observ.RecordMutation(repository.CollectionLeads, "delete", err)
	if err != nil {
		return c.writeFailed(ctx, st.ReloadLeads, repository.CollectionLeads, id, "Failed to delete lead", err)
	}
	c.logger.Info("lead deleted", zap.String("lead_id", id))
	return c.reload(ctx, repository.CollectionLeads, st.ReloadLeads)
}

func (c *Coordinator) CreateReminder(ctx context.Context, st *workspace.State, f models.ReminderFields) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.Normalize()
	id, err := c.reminders.Create(ctx, st.UserID, f)
	observ.RecordMutation(repository.CollectionReminders, "create", err)
	if err != nil {
		c.logger.Error("create reminder failed", zap.Error(err))
		return "", apperr.Store("Failed to save reminder", err)
	}
	c.logger.Info("reminder created", zap.String("reminder_id", id))

	return id, c.reload(ctx, repository.CollectionReminders, st.ReloadReminders)
}

func (c *Coordinator) UpdateReminder(ctx context.Context, st *workspace.State, id string, f models.ReminderFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := st.Reminders.Get(id); !ok {
		return apperr.NotFound(repository.CollectionReminders, id)
	}

	f.Normalize()
	err := c.reminders.Update(ctx, st.UserID, id, models.ReminderPatch{Fields: &f})
	observ.RecordMutation(repository.CollectionReminders, "update", err)
	if err != nil {
		return c.writeFailed(ctx, st.ReloadReminders, repository.CollectionReminders, id, "Failed to save reminder", err)
	}
	return c.reload(ctx, repository.CollectionReminders, st.ReloadReminders)
}

func (c *Coordinator) DeleteReminder(ctx context.Context, st *workspace.State, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := st.Reminders.Get(id); !ok {
		return apperr.NotFound(repository.CollectionReminders, id)
	}

	err := c.reminders.Delete(ctx, st.UserID, id)
	observ.RecordMutation(repository.CollectionReminders, "delete", err)
	if err != nil {
		return c.writeFailed(ctx, st.ReloadReminders, repository.CollectionReminders, id, "Failed to delete reminder", err)
	}
	c.logger.Info("reminder deleted", zap.String("reminder_id", id))
	return c.reload(ctx, repository.CollectionReminders, st.ReloadReminders)
}

// MarkComplete completes a reminder. The store keeps the first completed_at,
// so completing twice only advances updated_at.
//
// The first completion of a repeating reminder also schedules the next
// occurrence: same fields, date moved one interval on. The occurrence is
// created before the completion is written, so a failure leaves the
// reminder open and a retry does both steps.
func (c *Coordinator) MarkComplete(ctx context.Context, st *workspace.State, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := st.Reminders.Get(id)
	if !ok {
		return apperr.NotFound(repository.CollectionReminders, id)
	}

	var nextID string
	next, repeats := r.RepeatInterval.Next(r.ReminderDate)
	if repeats && !r.Completed {
		f := r.Fields()
		f.ReminderDate = next
		var err error
		nextID, err = c.reminders.Create(ctx, st.UserID, f)
		observ.RecordMutation(repository.CollectionReminders, "repeat", err)
		if err != nil {
			c.logger.Error("schedule next occurrence failed", zap.String("reminder_id", id), zap.Error(err))
			return apperr.Store("Failed to schedule next reminder", err)
		}
	}

	err := c.reminders.Update(ctx, st.UserID, id, models.ReminderPatch{Complete: true})
	observ.RecordMutation(repository.CollectionReminders, "complete", err)
	if err != nil {
		if nextID != "" {
			c.discardOccurrence(ctx, st, id, nextID)
		}
		return c.writeFailed(ctx, st.ReloadReminders, repository.CollectionReminders, id, "Failed to complete reminder", err)
	}

	if nextID != "" {
		c.logger.Info("next occurrence scheduled",
			zap.String("reminder_id", id),
			zap.String("next_id", nextID),
			zap.Time("date", next),
		)
	}
	return c.reload(ctx, repository.CollectionReminders, st.ReloadReminders)
}

// discardOccurrence removes an occurrence created for a completion that the
// store then rejected. The reminder is still open, so the next completion
// schedules it again.
func (c *Coordinator) discardOccurrence(ctx context.Context, st *workspace.State, id, nextID string) {
	err := c.reminders.Delete(ctx, st.UserID, nextID)
	observ.RecordMutation(repository.CollectionReminders, "repeat_rollback", err)
	if err != nil {
		c.logger.Error("failed to discard next occurrence",
			zap.String("reminder_id", id),
			zap.String("next_id", nextID),
			zap.Error(err),
		)
	}
}

// reload runs the post-write reload. A reload that lost to a later-issued
// load still counts: that load started after this write committed. Any
// other failure is reported as apperr.Refresh, since the write itself has
// already been accepted.
func (c *Coordinator) reload(ctx context.Context, collection string, load func(context.Context) error) error {
	err := load(ctx)
	if err == nil || errors.Is(err, replica.ErrSuperseded) {
		return nil
	}
	c.logger.Warn("reload after write failed", zap.String("collection", collection), zap.Error(err))
	return apperr.Refresh(collection, err)
}

// writeFailed maps a rejected write. A row the store no longer has is
// reported as not found and the replica is reloaded so the stale row goes
// away; anything else leaves the replica as it was.
func (c *Coordinator) writeFailed(ctx context.Context, load func(context.Context) error, collection, id, msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		c.logger.Warn("write hit a missing record",
			zap.String("collection", collection),
			zap.String("id", id),
		)
		if rerr := load(ctx); rerr != nil && !errors.Is(rerr, replica.ErrSuperseded) {
			c.logger.Warn("reload after missing record failed", zap.Error(rerr))
		}
		return apperr.NotFound(collection, id)
	}
	c.logger.Error("write failed",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.Error(err),
	)
	return apperr.Store(msg, err)
}
