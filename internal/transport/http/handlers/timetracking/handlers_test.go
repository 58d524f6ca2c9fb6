package timetrackinghandler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/timetracking"
	"hrcrm/internal/transport/http/middleware"
)

type memStore struct {
	timetracking.StoreAPI
	entries    map[string]timetracking.Entry
	lastFilter timetracking.EntryFilter
	seq        int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]timetracking.Entry{}}
}

func (m *memStore) ActiveEntry(_ context.Context, userID string) (timetracking.Entry, error) {
	for _, e := range m.entries {
		if e.UserID == userID && e.Status == timetracking.StatusActive {
			return e, nil
		}
	}
	return timetracking.Entry{}, timetracking.ErrNoActiveEntry
}

func (m *memStore) nextID() string {
	m.seq++
	return "e" + string(rune('0'+m.seq))
}

func (m *memStore) CreateEntry(_ context.Context, userID string, clockIn time.Time, location, notes string) (string, error) {
	id := m.nextID()
	m.entries[id] = timetracking.Entry{ID: id, UserID: userID, ClockIn: clockIn, Location: location, Notes: notes,
		Status: timetracking.StatusActive, Source: timetracking.SourceClock}
	return id, nil
}

func (m *memStore) InsertEntry(_ context.Context, e timetracking.Entry) (string, error) {
	e.ID = m.nextID()
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *memStore) GetEntry(_ context.Context, id string) (timetracking.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return timetracking.Entry{}, timetracking.ErrNotFound
	}
	return e, nil
}

func (m *memStore) HasEntryOn(_ context.Context, userID string, from, to time.Time) (bool, error) {
	for _, e := range m.entries {
		if e.UserID == userID && !e.ClockIn.Before(from) && e.ClockIn.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListEntries(_ context.Context, f timetracking.EntryFilter) ([]timetracking.Entry, int, error) {
	m.lastFilter = f
	return []timetracking.Entry{}, 0, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ string, action, entityType, _ string, _, _ string, _, _ any) error {
	a.actions = append(a.actions, action+":"+entityType)
	return nil
}

func newTestHandler(store *memStore) (*Handler, *recordingAudit) {
	svc := timetracking.NewService(store, nil, timetracking.DefaultRules(), 16*time.Hour)
	svc.Now = func() time.Time { return time.Date(2024, 8, 19, 8, 0, 0, 0, time.UTC) }
	recorder := &recordingAudit{}
	return NewHandler(svc, auth.PermissionChecker{}, recorder), recorder
}

func do(h *Handler, req *http.Request, user *auth.UserContext) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var (
	employee   = &auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}
	supervisor = &auth.UserContext{UserID: "boss", Role: auth.RoleSupervisor}
)

func TestClockInWithEmptyBodyThenConflict(t *testing.T) {
	h, _ := newTestHandler(newMemStore())

	rec := do(h, httptest.NewRequest(http.MethodPost, "/time-tracking/clock-in", nil), employee)
	require.Equal(t, http.StatusCreated, rec.Code)
	var env struct {
		Data timetracking.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, timetracking.LocationUnavailable, env.Data.Location)
	assert.Equal(t, timetracking.StatusActive, env.Data.Status)

	rec = do(h, jsonRequest(http.MethodPost, "/time-tracking/clock-in", `{"location":"Office"}`), employee)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")

	rec = do(h, httptest.NewRequest(http.MethodPost, "/time-tracking/break-end", nil), employee)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClockEndpointsRequireAuthentication(t *testing.T) {
	h, _ := newTestHandler(newMemStore())

	rec := do(h, httptest.NewRequest(http.MethodPost, "/time-tracking/clock-in", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentReportsClockedInState(t *testing.T) {
	h, _ := newTestHandler(newMemStore())

	rec := do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/current", nil), employee)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clockedIn":false`)

	require.Equal(t, http.StatusCreated, do(h, httptest.NewRequest(http.MethodPost, "/time-tracking/clock-in", nil), employee).Code)
	rec = do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/current", nil), employee)
	assert.Contains(t, rec.Body.String(), `"clockedIn":true`)
}

func TestEntriesScopeToCallerUnlessManager(t *testing.T) {
	store := newMemStore()
	h, _ := newTestHandler(store)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/entries", nil), employee)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", store.lastFilter.UserID)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/entries?userId=u2", nil), employee)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/entries?userId=u2&from=2024-08-01&to=2024-08-31", nil), supervisor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", store.lastFilter.UserID)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), store.lastFilter.To.UTC())

	rec = do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/entries?from=2024-08-10&to=2024-08-01", nil), supervisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestStatsForOtherUserNeedsManager(t *testing.T) {
	h, _ := newTestHandler(newMemStore())

	rec := do(h, httptest.NewRequest(http.MethodGet, "/time-tracking/stats?userId=u2", nil), employee)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkAbsentIsManagerOnly(t *testing.T) {
	h, recorder := newTestHandler(newMemStore())
	body := `{"userId":"u1","date":"2024-08-16","notes":"no show"}`

	rec := do(h, jsonRequest(http.MethodPost, "/time-tracking/absent", body), employee)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, jsonRequest(http.MethodPost, "/time-tracking/absent", `{"date":"2024-08-16"}`), supervisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, jsonRequest(http.MethodPost, "/time-tracking/absent", body), supervisor)
	require.Equal(t, http.StatusCreated, rec.Code)
	var env struct {
		Data timetracking.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, timetracking.StatusAbsent, env.Data.Status)
	assert.Equal(t, []string{"create:time_entry"}, recorder.actions)

	rec = do(h, jsonRequest(http.MethodPost, "/time-tracking/absent", body), supervisor)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestImportRejectsUnsupportedFile(t *testing.T) {
	h, recorder := newTestHandler(newMemStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "hours.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("email,date\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/time-tracking/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(h, req, supervisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_upload")
	assert.Empty(t, recorder.actions)

	rec = do(h, httptest.NewRequest(http.MethodPost, "/time-tracking/import", nil), supervisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
