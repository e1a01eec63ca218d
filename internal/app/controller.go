// Package app is the page controller for one signed-in session. It owns
// the workspace state, runs form validation before anything reaches the
// store, hands writes to the mutation coordinator and answers every view
// request by projecting the current replicas.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/mutation"
	"github.com/lalith-99/echocrm/internal/prefs"
	"github.com/lalith-99/echocrm/internal/projection"
	"github.com/lalith-99/echocrm/internal/replica"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/lalith-99/echocrm/internal/workspace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators a Controller is built from. Location is the
// viewer's time zone; Now defaults to time.Now.
type Deps struct {
	Leads     repository.LeadRepository
	Reminders repository.ReminderRepository
	Forms     *forms.Validator
	Prefs     prefs.Store
	Location  *time.Location
	Now       func() time.Time
}

type Controller struct {
	client *auth.Client
	state  *workspace.State
	coord  *mutation.Coordinator
	forms  *forms.Validator
	prefs  prefs.Store
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger

	unsubscribe func()
}

// ErrSignedOut is returned by New when the client has no session.
var ErrSignedOut = errors.New("no signed-in user")

// New builds the controller for the client's current user. When the client
// later signs out, both replicas are emptied.
func New(client *auth.Client, deps Deps, logger *zap.Logger) (*Controller, error) {
	user := client.CurrentUser()
	if user == nil {
		return nil, ErrSignedOut
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger = logger.With(zap.String("user_id", user.ID.String()))

	c := &Controller{
		client: client,
		state:  workspace.New(*user, deps.Leads, deps.Reminders, logger),
		coord:  mutation.New(deps.Leads, deps.Reminders, logger),
		forms:  deps.Forms,
		prefs:  deps.Prefs,
		loc:    deps.Location,
		now:    deps.Now,
		logger: logger,
	}
	c.unsubscribe = client.OnAuthStateChange(func(u *models.User) {
		if u == nil {
			c.logger.Info("signed out, clearing workspace")
			c.state.Reset()
		}
	})
	return c, nil
}

// Init loads both collections concurrently. It fails if either load fails;
// a replica whose load failed keeps what it had.
func (c *Controller) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreSuperseded(c.state.ReloadLeads(gctx)) })
	g.Go(func() error { return ignoreSuperseded(c.state.ReloadReminders(gctx)) })
	return g.Wait()
}

// Refresh is Init under the name the API uses for a user-requested reload.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.Init(ctx)
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, replica.ErrSuperseded) {
		return nil
	}
	return err
}

// Workspace exposes the session state.
func (c *Controller) Workspace() *workspace.State { return c.state }

// Close stops listening to the auth client.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Views. None of these touch the store.

func (c *Controller) clock() time.Time { return c.now().In(c.loc) }

func (c *Controller) Leads(p projection.LeadParams) projection.LeadView {
	return projection.ProjectLeads(c.state.Leads.Snapshot(), p, c.clock())
}

func (c *Controller) Reminders(p projection.ReminderParams) projection.ReminderView {
	return projection.ProjectReminders(c.state.Reminders.Snapshot(), c.state.Leads.Snapshot(), p, c.clock())
}

func (c *Controller) LeadOptions() []projection.Option {
	return projection.LeadOptions(c.state.Leads.Snapshot())
}

func (c *Controller) Dashboard() projection.Dashboard {
	return projection.ProjectDashboard(c.state.Email, c.state.Leads.Snapshot(), c.state.Reminders.Snapshot(), c.clock())
}

// ExportCSV writes every lead in the replica, ignoring any table filter,
// and returns the download filename.
func (c *Controller) ExportCSV(w io.Writer) (string, error) {
	now := c.clock()
	if err := projection.WriteLeadsCSV(w, c.state.Leads.Snapshot(), c.loc); err != nil {
		c.logger.Error("export failed", zap.Error(err))
		return "", fmt.Errorf("write csv: %w", err)
	}
	return projection.ExportFilename(now), nil
}

// Writes.

// SubmitLead creates a lead when id is empty, otherwise updates it.
func (c *Controller) SubmitLead(ctx context.Context, id string, f forms.LeadForm) (string, Flash, error) {
	if err := c.forms.Validate(f); err != nil {
		return "", failure(err, "Failed to save lead"), err
	}
	fields := f.Fields()

	if id == "" {
		newID, err := c.coord.CreateLead(ctx, c.state, fields)
		if err != nil {
			// newID is set when the lead was stored but the list reload failed.
			return newID, failure(err, "Failed to save lead"), err
		}
		return newID, success("Lead added successfully!"), nil
	}

	if err := c.coord.UpdateLead(ctx, c.state, id, fields); err != nil {
		return id, failure(err, "Failed to save lead"), err
	}
	return id, success("Lead updated successfully!"), nil
}

func (c *Controller) DeleteLead(ctx context.Context, id string) (Flash, error) {
	if err := c.coord.DeleteLead(ctx, c.state, id); err != nil {
		return failure(err, "Failed to delete lead"), err
	}
	return success("Lead deleted successfully"), nil
}

func (c *Controller) LogContact(ctx context.Context, id string) (Flash, error) {
	if err := c.coord.LogContact(ctx, c.state, id); err != nil {
		return failure(err, "Failed to log contact"), err
	}
	return success("Contact logged"), nil
}

// SubmitReminder creates a reminder when id is empty, otherwise updates it.
func (c *Controller) SubmitReminder(ctx context.Context, id string, f forms.ReminderForm) (string, Flash, error) {
	if err := c.forms.Validate(f); err != nil {
		return "", failure(err, "Failed to save reminder"), err
	}
	fields, err := f.Fields(c.loc)
	if err != nil {
		return "", failure(err, "Failed to save reminder"), err
	}

	if id == "" {
		newID, err := c.coord.CreateReminder(ctx, c.state, fields)
		if err != nil {
			// newID is set when the reminder was stored but the list reload failed.
			return newID, failure(err, "Failed to save reminder"), err
		}
		return newID, success("Reminder added successfully!"), nil
	}

	if err := c.coord.UpdateReminder(ctx, c.state, id, fields); err != nil {
		return id, failure(err, "Failed to save reminder"), err
	}
	return id, success("Reminder updated successfully!"), nil
}

func (c *Controller) CompleteReminder(ctx context.Context, id string) (Flash, error) {
	if err := c.coord.MarkComplete(ctx, c.state, id); err != nil {
		return failure(err, "Failed to complete reminder"), err
	}
	return success("Reminder marked as complete!"), nil
}

func (c *Controller) DeleteReminder(ctx context.Context, id string) (Flash, error) {
	if err := c.coord.DeleteReminder(ctx, c.state, id); err != nil {
		return failure(err, "Failed to delete reminder"), err
	}
	return success("Reminder deleted successfully"), nil
}

// Preferences.

func (c *Controller) DarkMode(ctx context.Context) (bool, error) {
	return c.prefs.DarkMode(ctx, c.state.UserID)
}

func (c *Controller) SetDarkMode(ctx context.Context, on bool) error {
	return c.prefs.SetDarkMode(ctx, c.state.UserID, on)
}

// SignOut ends the session. The auth subscription clears the replicas.
func (c *Controller) SignOut(ctx context.Context) error {
	return c.client.SignOut(ctx)
}
