package financehandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/finance"
	"hrcrm/internal/transport/http/api"
	"hrcrm/internal/transport/http/middleware"
)

func create(t *testing.T, body string) (*httptest.ResponseRecorder, api.Envelope) {
	t.Helper()
	// validation fails before the nil store is reached
	h := NewHandler(finance.NewService(nil, nil), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/finance/expenses", strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}))
	rec := httptest.NewRecorder()
	h.handleCreate(rec, req)
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestCreateRejectsZeroAmount(t *testing.T) {
	rec, env := create(t, `{"category":"Travel","description":"Taxi","amount":0,"paymentMethod":"CARD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Please fill in all required fields", env.Error.Message)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	rec, env := create(t, `{"category":" ","description":"Taxi","amount":12.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, finance.MsgRequiredFields, env.Error.Message)
}

func TestCreateRejectsBadDate(t *testing.T) {
	rec, env := create(t, `{"expenseDate":"yesterday","category":"Travel","description":"Taxi","amount":3,"paymentMethod":"CARD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}
