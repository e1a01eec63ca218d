package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/prefs"
	"github.com/lalith-99/echocrm/internal/projection"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/lalith-99/echocrm/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func signedInClient(t *testing.T) *auth.Client {
	t.Helper()
	provider := auth.NewProvider(memory.NewUserStore(time.Now), auth.NewMemoryRevoker(time.Now),
		auth.NewAttempts(1, 5), auth.ProviderConfig{Secret: "s"}, zap.NewNop())
	client := auth.NewClient(provider)
	_, err := client.SignUp(context.Background(), "jane@example.com", "secret")
	require.NoError(t, err)
	return client
}

func newController(t *testing.T, leads repository.LeadRepository, reminders repository.ReminderRepository) (*Controller, *auth.Client) {
	t.Helper()
	client := signedInClient(t)
	c, err := New(client, Deps{
		Leads:     leads,
		Reminders: reminders,
		Forms:     forms.New(0),
		Prefs:     prefs.NewMemoryStore(),
		Now:       func() time.Time { return now },
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, client
}

func memoryController(t *testing.T) (*Controller, *auth.Client) {
	t.Helper()
	clock := func() time.Time { return now }
	c, client := newController(t, memory.NewLeadStore(clock), memory.NewReminderStore(clock))
	require.NoError(t, c.Init(context.Background()))
	return c, client
}

func TestNew_RequiresSignedInUser(t *testing.T) {
	provider := auth.NewProvider(memory.NewUserStore(time.Now), auth.NewMemoryRevoker(time.Now),
		auth.NewAttempts(1, 5), auth.ProviderConfig{Secret: "s"}, zap.NewNop())
	_, err := New(auth.NewClient(provider), Deps{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestSubmitLead_InvalidEmailNeverReachesStore(t *testing.T) {
	leads := new(mockLeadRepo)
	leads.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.Lead{}, nil)
	reminders := new(mockReminderRepo)
	reminders.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.Reminder{}, nil)

	c, _ := newController(t, leads, reminders)
	require.NoError(t, c.Init(context.Background()))

	id, flash, err := c.SubmitLead(context.Background(), "", forms.LeadForm{Name: "Ada", Email: "foo@bar"})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, id)
	assert.Equal(t, Flash{Kind: FlashError, Text: "Please enter a valid email address"}, flash)
	leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	leads.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	leads.AssertNumberOfCalls(t, "List", 1)
}

func TestInit_LoadsBothCollections(t *testing.T) {
	leads := new(mockLeadRepo)
	leads.On("List", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Lead{{ID: "l1", Name: "Ada", Status: models.LeadNew, CreatedAt: now}}, nil)
	reminders := new(mockReminderRepo)
	reminders.On("List", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Reminder{{ID: "r1", Title: "Call", ReminderDate: now}}, nil)

	c, _ := newController(t, leads, reminders)
	require.NoError(t, c.Init(context.Background()))

	assert.Equal(t, 1, c.Workspace().Leads.Len())
	assert.Equal(t, 1, c.Workspace().Reminders.Len())
	leads.AssertExpectations(t)
	reminders.AssertExpectations(t)
}

func TestLeadLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := memoryController(t)

	id, flash, err := c.SubmitLead(ctx, "", forms.LeadForm{Name: "Ada", Email: "ada@example.com", Company: "Analytical", Tags: "vip"})
	require.NoError(t, err)
	assert.Equal(t, Flash{Kind: FlashSuccess, Text: "Lead added successfully!", AutoDismiss: 5 * time.Second}, flash)

	view := c.Leads(projection.LeadParams{})
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Ada", view.Rows[0].Name)
	assert.Equal(t, "Never", view.Rows[0].LastContactLabel)

	_, flash, err = c.SubmitLead(ctx, id, forms.LeadForm{Name: "Ada L.", Email: "ada@example.com", Status: "Closed"})
	require.NoError(t, err)
	assert.Equal(t, "Lead updated successfully!", flash.Text)
	assert.Equal(t, 100, c.Leads(projection.LeadParams{}).Stats.ConversionRate)
	assert.Empty(t, c.LeadOptions())

	flash, err = c.LogContact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Contact logged", flash.Text)
	assert.Equal(t, "Today", c.Leads(projection.LeadParams{}).Rows[0].LastContactLabel)

	flash, err = c.DeleteLead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lead deleted successfully", flash.Text)
	assert.Empty(t, c.Leads(projection.LeadParams{}).Rows)

	flash, err = c.DeleteLead(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, Flash{Kind: FlashError, Text: "This lead no longer exists"}, flash)
}

func TestReminderLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := memoryController(t)

	leadID, _, err := c.SubmitLead(ctx, "", forms.LeadForm{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	id, flash, err := c.SubmitReminder(ctx, "", forms.ReminderForm{Title: "Call Ada", Date: "2026-03-10", Time: "17:00", LeadID: leadID})
	require.NoError(t, err)
	assert.Equal(t, "Reminder added successfully!", flash.Text)

	view := c.Reminders(projection.ReminderParams{Filter: projection.FilterToday})
	require.Len(t, view.Active, 1)
	assert.Equal(t, "Due Today", view.Active[0].Status)
	assert.Equal(t, "Ada", view.Active[0].LeadName)
	assert.Equal(t, 1, view.Stats.DueToday)
	assert.Equal(t, 1, c.Dashboard().DueToday)

	flash, err = c.CompleteReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Reminder marked as complete!", flash.Text)

	view = c.Reminders(projection.ReminderParams{})
	assert.Empty(t, view.Active)
	require.Len(t, view.Completed, 1)
	assert.Equal(t, 0, view.Stats.Active)

	_, flash, err = c.SubmitReminder(ctx, "", forms.ReminderForm{Date: "2026-03-10"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Title is required", flash.Text)

	flash, err = c.DeleteReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Reminder deleted successfully", flash.Text)
}

// secondCreateFails stores the first reminder and rejects every later one.
type secondCreateFails struct {
	*memory.ReminderStore
	creates int
}

func (s *secondCreateFails) Create(ctx context.Context, ownerID uuid.UUID, f models.ReminderFields) (string, error) {
	s.creates++
	if s.creates > 1 {
		return "", errors.New("boom")
	}
	return s.ReminderStore.Create(ctx, ownerID, f)
}

func TestCompleteReminder_SchedulingFailureKeepsReminderActive(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return now }
	reminders := &secondCreateFails{ReminderStore: memory.NewReminderStore(clock)}
	c, _ := newController(t, memory.NewLeadStore(clock), reminders)
	require.NoError(t, c.Init(ctx))

	id, _, err := c.SubmitReminder(ctx, "", forms.ReminderForm{Title: "Stand-up", Date: "2026-03-11", RepeatInterval: "daily"})
	require.NoError(t, err)

	flash, err := c.CompleteReminder(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, Flash{Kind: FlashError, Text: "Failed to complete reminder"}, flash)

	view := c.Reminders(projection.ReminderParams{})
	assert.Empty(t, view.Completed)
	require.Len(t, view.Active, 1)
	assert.Equal(t, id, view.Active[0].ID)
}

func TestSubmitLead_SavedButNotRefreshed(t *testing.T) {
	ctx := context.Background()
	leads := new(mockLeadRepo)
	leads.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.Lead{}, nil).Once()
	leads.On("Create", mock.Anything, mock.Anything, mock.Anything).Return("l1", nil).Once()
	leads.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.Lead(nil), errors.New("unavailable")).Once()
	reminders := new(mockReminderRepo)
	reminders.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.Reminder{}, nil)

	c, _ := newController(t, leads, reminders)
	require.NoError(t, c.Init(ctx))

	id, flash, err := c.SubmitLead(ctx, "", forms.LeadForm{Name: "Ada", Email: "ada@example.com"})

	assert.ErrorIs(t, err, apperr.ErrRefresh)
	assert.Equal(t, "l1", id)
	assert.Equal(t, Flash{Kind: FlashError, Text: "Your changes were saved, but the leads list could not be refreshed"}, flash)
	leads.AssertExpectations(t)
}

func TestExportCSV_IgnoresFilters(t *testing.T) {
	ctx := context.Background()
	c, _ := memoryController(t)
	for _, name := range []string{"Ada", "Grace"} {
		_, _, err := c.SubmitLead(ctx, "", forms.LeadForm{Name: name, Email: "x@example.com"})
		require.NoError(t, err)
	}
	require.Len(t, c.Leads(projection.LeadParams{Search: "grace"}).Rows, 1)

	var buf bytes.Buffer
	name, err := c.ExportCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "leads_export_2026-03-10.csv", name)
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestSignOut_ClearsReplicas(t *testing.T) {
	ctx := context.Background()
	c, client := memoryController(t)
	_, _, err := c.SubmitLead(ctx, "", forms.LeadForm{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, 1, c.Workspace().Leads.Len())

	require.NoError(t, c.SignOut(ctx))

	assert.Nil(t, client.CurrentUser())
	assert.Equal(t, 0, c.Workspace().Leads.Len())
	_, loaded := c.Workspace().Leads.Provenance()
	assert.False(t, loaded)
}

func TestDarkMode(t *testing.T) {
	ctx := context.Background()
	c, _ := memoryController(t)

	on, err := c.DarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, c.SetDarkMode(ctx, true))
	on, err = c.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestFlash_JSON(t *testing.T) {
	b, err := json.Marshal(success("Saved"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"success","text":"Saved","auto_dismiss_ms":5000}`, string(b))

	b, err = json.Marshal(Flash{Kind: FlashError, Text: "Failed"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"error","text":"Failed","auto_dismiss_ms":0}`, string(b))
}

type mockLeadRepo struct {
	mock.Mock
}

func (m *mockLeadRepo) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Lead, error) {
	args := m.Called(ctx, ownerID, q)
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *mockLeadRepo) Create(ctx context.Context, ownerID uuid.UUID, f models.LeadFields) (string, error) {
	args := m.Called(ctx, ownerID, f)
	return args.String(0), args.Error(1)
}

func (m *mockLeadRepo) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.LeadPatch) error {
	return m.Called(ctx, ownerID, id, p).Error(0)
}

func (m *mockLeadRepo) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type mockReminderRepo struct {
	mock.Mock
}

func (m *mockReminderRepo) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Reminder, error) {
	args := m.Called(ctx, ownerID, q)
	return args.Get(0).([]models.Reminder), args.Error(1)
}

func (m *mockReminderRepo) Create(ctx context.Context, ownerID uuid.UUID, f models.ReminderFields) (string, error) {
	args := m.Called(ctx, ownerID, f)
	return args.String(0), args.Error(1)
}

func (m *mockReminderRepo) Update(ctx context.Context, ownerID uuid.UUID, id string, p models.ReminderPatch) error {
	return m.Called(ctx, ownerID, id, p).Error(0)
}

func (m *mockReminderRepo) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}
