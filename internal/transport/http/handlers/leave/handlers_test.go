package leavehandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/leave"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
)

func post(h http.HandlerFunc, body string) (*httptest.ResponseRecorder, api.Envelope) {
	req := httptest.NewRequest(http.MethodPost, "/api/leave-requests", strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}))
	rec := httptest.NewRecorder()
	h(rec, req)
	var env api.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestCreateRejectsInvertedRangeBeforeStore(t *testing.T) {
	// nil store: any store call would panic
	h := NewHandler(leave.NewService(nil, nil), nil, nil)

	rec, env := post(h.handleCreate, `{"leaveType":"VACATION","startDate":"2024-08-20","endDate":"2024-08-19"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "End date must be after start date", env.Error.Message)
}

func TestCreateValidatesPayload(t *testing.T) {
	h := NewHandler(leave.NewService(nil, nil), nil, nil)

	rec, env := post(h.handleCreate, `{"leaveType":"SABBATICAL","startDate":"2024-08-19","endDate":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestCreateRequiresUser(t *testing.T) {
	h := NewHandler(leave.NewService(nil, nil), nil, nil)
	rec := httptest.NewRecorder()
	h.handleCreate(rec, httptest.NewRequest(http.MethodPost, "/api/leave-requests", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubjectScoping(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/leave-balance/enhanced?userId=u2", nil)

	id, ok := subject(req, auth.UserContext{UserID: "u1", Role: auth.RoleEmployee})
	assert.Equal(t, "u2", id)
	assert.False(t, ok)

	_, ok = subject(req, auth.UserContext{UserID: "u1", Role: auth.RoleHRManager})
	assert.True(t, ok)

	own := httptest.NewRequest(http.MethodGet, "/api/leave-balance/enhanced", nil)
	id, ok = subject(own, auth.UserContext{UserID: "u1", Role: auth.RoleEmployee})
	assert.Equal(t, "u1", id)
	assert.True(t, ok)
}
