package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/app"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/prefs"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/lalith-99/echocrm/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testServer is the whole HTTP stack on memory stores.
type testServer struct {
	t        *testing.T
	engine   *gin.Engine
	provider *auth.Provider
	deps     app.Deps
	users    *memory.UserStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := memory.NewUserStore(time.Now)
	provider := auth.NewProvider(users, auth.NewMemoryRevoker(time.Now), auth.NewAttempts(1, 5),
		auth.ProviderConfig{Secret: "api-test", TokenTTL: time.Hour}, zap.NewNop())
	deps := app.Deps{
		Leads:     memory.NewLeadStore(time.Now),
		Reminders: memory.NewReminderStore(time.Now),
		Forms:     forms.New(0),
		Prefs:     prefs.NewMemoryStore(),
	}
	s := &testServer{t: t, provider: provider, deps: deps, users: users}
	s.engine = s.build()
	return s
}

// build wires a fresh engine and session registry over the same stores,
// which is what a server restart looks like to a client.
func (s *testServer) build() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := NewSessions(s.provider, s.deps, logger)

	r := gin.New()
	Register(r.Group("/v1"), s.provider, Handlers{
		Auth:      NewAuthHandler(s.provider, s.deps.Forms, sessions, logger),
		Users:     NewUserHandler(s.users, logger),
		Leads:     NewLeadHandler(logger),
		Reminders: NewReminderHandler(logger),
		Workspace: NewWorkspaceHandler(logger),
		Sessions:  sessions,
	})
	return r
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": email, "password": "secret", "confirm_password": "secret",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp authResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func flashText(t *testing.T, body map[string]any) string {
	t.Helper()
	flash, ok := body["flash"].(map[string]any)
	require.True(t, ok, "missing flash in %v", body)
	return flash["text"].(string)
}

func TestSignup_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": "ada@example.com", "password": "secret", "confirm_password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", decode(t, w)["error"])

	s.signup("ada@example.com")
	w = s.do(http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": "ada@example.com", "password": "secret", "confirm_password": "secret",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.CodeEmailInUse, decode(t, w)["code"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.signup("ada@example.com")

	w := s.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.CodeWrongPassword, decode(t, w)["code"])

	w = s.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])
}

func TestRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/v1/leads", "/v1/reminders", "/v1/dashboard", "/v1/users/me"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLeadLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	w := s.do(http.MethodGet, "/v1/leads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["visible"])

	w = s.do(http.MethodPost, "/v1/leads", token, gin.H{"name": "Grace", "email": "grace@navy.mil", "tags": "vip, navy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Lead added successfully!", flashText(t, body))
	id := body["id"].(string)
	require.NotEmpty(t, id)

	w = s.do(http.MethodGet, "/v1/leads?status=New", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	rows := view["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Grace", rows[0].(map[string]any)["name"])

	w = s.do(http.MethodPost, "/v1/leads/"+id+"/contact", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Contact logged", flashText(t, decode(t, w)))

	w = s.do(http.MethodPut, "/v1/leads/"+id, token, gin.H{"name": "Grace Hopper", "email": "grace@navy.mil", "status": "Closed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Lead updated successfully!", flashText(t, decode(t, w)))

	w = s.do(http.MethodGet, "/v1/leads/options", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodDelete, "/v1/leads/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lead deleted successfully", flashText(t, decode(t, w)))

	w = s.do(http.MethodDelete, "/v1/leads/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "This lead no longer exists", flashText(t, decode(t, w)))
}

// staleLeads stores writes but fails every List after the first Create.
type staleLeads struct {
	*memory.LeadStore
	written atomic.Bool
}

func (s *staleLeads) Create(ctx context.Context, ownerID uuid.UUID, f models.LeadFields) (string, error) {
	id, err := s.LeadStore.Create(ctx, ownerID, f)
	s.written.Store(true)
	return id, err
}

func (s *staleLeads) List(ctx context.Context, ownerID uuid.UUID, q repository.Query) ([]models.Lead, error) {
	if s.written.Load() {
		return nil, errors.New("connection reset")
	}
	return s.LeadStore.List(ctx, ownerID, q)
}

func TestCreateLead_StoredButListStale(t *testing.T) {
	s := newTestServer(t)
	s.deps.Leads = &staleLeads{LeadStore: memory.NewLeadStore(time.Now)}
	s.engine = s.build()
	token := s.signup("ada@example.com")

	w := s.do(http.MethodPost, "/v1/leads", token, gin.H{"name": "Grace", "email": "grace@navy.mil"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, "Your changes were saved, but the leads list could not be refreshed", flashText(t, body))
}

func TestCreateLead_InvalidEmail(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	w := s.do(http.MethodPost, "/v1/leads", token, gin.H{"name": "Grace", "email": "foo@bar"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Please enter a valid email address", body["error"])
	assert.Equal(t, "Please enter a valid email address", flashText(t, body))
	assert.Contains(t, body["fields"], "email")

	w = s.do(http.MethodPost, "/v1/leads", token, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminderLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	w := s.do(http.MethodPost, "/v1/reminders", token, gin.H{
		"title": "Follow up", "reminder_date": tomorrow, "reminder_time": "09:30", "priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = s.do(http.MethodGet, "/v1/reminders?filter=upcoming", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["active"], 1)

	w = s.do(http.MethodPost, "/v1/reminders/"+id+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Reminder marked as complete!", flashText(t, decode(t, w)))

	w = s.do(http.MethodGet, "/v1/reminders?filter=completed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Len(t, view["completed"], 1)
	assert.Len(t, view["active"], 0)

	w = s.do(http.MethodPost, "/v1/reminders", token, gin.H{"title": "No date"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/v1/reminders/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Reminder deleted successfully", flashText(t, decode(t, w)))
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")
	s.do(http.MethodPost, "/v1/leads", token, gin.H{"name": "Grace", "email": "grace@navy.mil", "status": "Closed"})

	w := s.do(http.MethodGet, "/v1/leads/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="leads_`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Name,Email,Phone,Status,Source,Notes,Created Date\n"))
	assert.Contains(t, w.Body.String(), `"Grace","grace@navy.mil"`)
}

func TestSessionResumesAfterRestart(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")
	w := s.do(http.MethodPost, "/v1/leads", token, gin.H{"name": "Grace", "email": "grace@navy.mil"})
	require.Equal(t, http.StatusCreated, w.Code)

	s.engine = s.build()

	w = s.do(http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Ada", body["greeting"])
	assert.Len(t, body["recent_leads"], 1)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	w := s.do(http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/v1/leads", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.CodeTokenExpired, decode(t, w)["code"])
}

func TestDarkMode(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	w := s.do(http.MethodGet, "/v1/prefs/dark-mode", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":false}`, w.Body.String())

	w = s.do(http.MethodPut, "/v1/prefs/dark-mode", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/prefs/dark-mode", token, nil)
	assert.JSONEq(t, `{"enabled":true}`, w.Body.String())

	w = s.do(http.MethodPut, "/v1/prefs/dark-mode", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("ada@example.com")

	w := s.do(http.MethodGet, "/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")
}
