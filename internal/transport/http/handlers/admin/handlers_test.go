package adminhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/admin"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	cryptoutil "hrcrm/internal/platform/crypto"
	"hrcrm/internal/transport/http/middleware"
)

type fakeStore struct {
	admin.StoreAPI
	roles   map[string]string
	deleted []string
	pingErr error
	issues  []core.EmployeeIDIssue
	creds   map[string]admin.Credential
}

func (f *fakeStore) UserRole(_ context.Context, id string) (string, error) {
	role, ok := f.roles[id]
	if !ok {
		return "", admin.ErrNotFound
	}
	return role, nil
}

func (f *fakeStore) ActiveSuperAdmins(context.Context) (int, error) { return 1, nil }

func (f *fakeStore) CascadePreview(_ context.Context, id string) (admin.CascadePreview, error) {
	if _, ok := f.roles[id]; !ok {
		return admin.CascadePreview{}, admin.ErrNotFound
	}
	return admin.CascadePreview{UserID: id, Total: 3}, nil
}

func (f *fakeStore) CascadeDelete(_ context.Context, id string) (admin.CascadePreview, error) {
	f.deleted = append(f.deleted, id)
	return admin.CascadePreview{UserID: id, Total: 3}, nil
}

func (f *fakeStore) FixEmployeeIDs(context.Context) ([]core.EmployeeIDIssue, error) {
	return f.issues, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Counts(context.Context) (admin.Counts, error) { return admin.Counts{Users: 2}, nil }

func (f *fakeStore) IssueCredential(_ context.Context, userID, _ string, enc []byte, _, expires time.Time, _ string) (string, error) {
	if _, ok := f.roles[userID]; !ok {
		return "", admin.ErrNotFound
	}
	f.creds["c1"] = admin.Credential{ID: "c1", UserID: userID, PasswordEnc: enc, ExpiresAt: expires}
	return "c1", nil
}

func (f *fakeStore) GetCredential(_ context.Context, id string) (admin.Credential, error) {
	c, ok := f.creds[id]
	if !ok {
		return admin.Credential{}, admin.ErrNotFound
	}
	return c, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ string, action, entityType, entityID string, _, _ string, _, _ any) error {
	a.actions = append(a.actions, action+":"+entityType+":"+entityID)
	return nil
}

func newTestHandler(t *testing.T, store *fakeStore) (*Handler, *recordingAudit) {
	t.Helper()
	crypto, err := cryptoutil.New(strings.Repeat("ab", 32))
	require.NoError(t, err)
	if store.creds == nil {
		store.creds = map[string]admin.Credential{}
	}
	recorder := &recordingAudit{}
	svc := admin.NewService(store, crypto, nil, nil, "test", time.Hour)
	return NewHandler(svc, nil, nil, recorder), recorder
}

func serve(h *Handler, method, target, body string, user *auth.UserContext) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

var superAdmin = &auth.UserContext{UserID: "root", Role: auth.RoleSuperAdmin}

func TestCascadePreviewRequiresUserID(t *testing.T) {
	h, _ := newTestHandler(t, &fakeStore{})

	rec := serve(h, http.MethodGet, "/cascade-delete", "", superAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = serve(h, http.MethodGet, "/cascade-delete?userId=ghost", "", superAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCascadeDeleteRefusesSelfAndAudits(t *testing.T) {
	store := &fakeStore{roles: map[string]string{"root": auth.RoleSuperAdmin, "emp": auth.RoleEmployee}}
	h, recorder := newTestHandler(t, store)

	rec := serve(h, http.MethodPost, "/cascade-delete", `{"userId":"root"}`, superAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.deleted)

	rec = serve(h, http.MethodPost, "/cascade-delete", `{"userId":"emp"}`, superAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"emp"}, store.deleted)
	assert.Equal(t, []string{"delete:user:emp"}, recorder.actions)
}

func TestCascadeDeleteNeedsAuthenticatedUser(t *testing.T) {
	store := &fakeStore{roles: map[string]string{"emp": auth.RoleEmployee}}
	h, _ := newTestHandler(t, store)

	rec := serve(h, http.MethodPost, "/cascade-delete", `{"userId":"emp"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.deleted)
}

func TestFixEmployeeIDsReturnsRenumberedRecords(t *testing.T) {
	store := &fakeStore{issues: []core.EmployeeIDIssue{{RecordID: "e1", Reason: core.IssueMissing, Proposed: "EMP-0007"}}}
	h, recorder := newTestHandler(t, store)

	rec := serve(h, http.MethodPost, "/fix-employee-ids", "", superAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data struct {
			Count int                    `json:"count"`
			Fixed []core.EmployeeIDIssue `json:"fixed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.Count)
	assert.Equal(t, "EMP-0007", env.Data.Fixed[0].Proposed)
	assert.Len(t, recorder.actions, 1)
}

func TestSystemHealthReportsUnavailableDatabase(t *testing.T) {
	h, _ := newTestHandler(t, &fakeStore{pingErr: errors.New("connection refused")})

	rec := serve(h, http.MethodGet, "/system-health", "", superAdmin)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var env struct {
		Success bool         `json:"success"`
		Data    admin.Health `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, admin.HealthUnhealthy, env.Data.Status)

	h, _ = newTestHandler(t, &fakeStore{})
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/system-health", "", superAdmin).Code)
}

func TestIssueCredentialRevealsPasswordOnce(t *testing.T) {
	store := &fakeStore{roles: map[string]string{"emp": auth.RoleEmployee}}
	h, recorder := newTestHandler(t, store)

	rec := serve(h, http.MethodPost, "/credentials", `{"userId":"emp"}`, superAdmin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var env struct {
		Data admin.Credential `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, admin.CredentialActive, env.Data.Status)
	assert.NotEmpty(t, env.Data.Password)
	assert.NotContains(t, rec.Body.String(), "passwordEnc")
	assert.Equal(t, []string{"create:temporary_credential:c1"}, recorder.actions)

	rec = serve(h, http.MethodPost, "/credentials", `{"userId":""}`, superAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/credentials/missing", "", superAdmin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
