package authhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	cryptoutil "hrcrm/internal/platform/crypto"
	"hrcrm/internal/transport/http/api"
)

type stubStore struct {
	auth.StoreAPI
	user       auth.AuthUser
	credential *auth.PendingCredential
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (auth.AuthUser, error) {
	if auth.NormalizeEmail(email) != s.user.Email {
		return auth.AuthUser{}, pgx.ErrNoRows
	}
	return s.user, nil
}

func (s *stubStore) PendingCredential(context.Context, string) (auth.PendingCredential, bool, error) {
	if s.credential == nil {
		return auth.PendingCredential{}, false, nil
	}
	return *s.credential, true, nil
}

func (s *stubStore) MarkCredentialUsed(context.Context, string, string) error { return nil }

func (s *stubStore) UpdateLastLogin(context.Context, string) error { return nil }

func newHandler(t *testing.T, store *stubStore) *Handler {
	t.Helper()
	hash, err := auth.HashPassword("Sup3rSecret!")
	require.NoError(t, err)
	store.user = auth.AuthUser{ID: "u1", Email: "ada@example.com", Role: auth.RoleEmployee, Status: "ACTIVE", PasswordHash: hash}
	crypto, err := cryptoutil.New("")
	require.NoError(t, err)
	return NewHandler(auth.NewService(store, crypto, "test-secret", time.Hour))
}

func login(h *Handler, body string) (*httptest.ResponseRecorder, api.Envelope) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	h.HandleLogin(rec, req)
	var env api.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestLoginValidation(t *testing.T) {
	h := newHandler(t, &stubStore{})

	rec, env := login(h, `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)

	rec, env = login(h, `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestLoginOutcomes(t *testing.T) {
	h := newHandler(t, &stubStore{})

	rec, env := login(h, `{"email":"ADA@example.com","password":"Sup3rSecret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = login(h, `{"email":"ada@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", env.Error.Code)
}

func TestLoginWithExpiredTemporaryPassword(t *testing.T) {
	store := &stubStore{credential: &auth.PendingCredential{ID: "c1", ExpiresAt: time.Now().Add(-time.Minute)}}
	h := newHandler(t, store)

	rec, env := login(h, `{"email":"ada@example.com","password":"Sup3rSecret!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "credential_expired", env.Error.Code)
}
