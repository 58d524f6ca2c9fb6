package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoutil "hrcrm/internal/platform/crypto"
)

type fakeStore struct {
	users       map[string]AuthUser
	credential  *PendingCredential
	markedUsed  string
	newHash     string
	lastLoginOK bool
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (AuthUser, error) {
	for _, u := range f.users {
		if u.Email == NormalizeEmail(email) {
			return u, nil
		}
	}
	return AuthUser{}, pgx.ErrNoRows
}

func (f *fakeStore) FindUserByID(_ context.Context, id string) (AuthUser, error) {
	u, ok := f.users[id]
	if !ok {
		return AuthUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) PendingCredential(context.Context, string) (PendingCredential, bool, error) {
	if f.credential == nil {
		return PendingCredential{}, false, nil
	}
	return *f.credential, true, nil
}

func (f *fakeStore) MarkCredentialUsed(_ context.Context, id, _ string) error {
	f.markedUsed = id
	return nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, string) error {
	f.lastLoginOK = true
	return nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID string, hash string) error {
	f.newHash = hash
	u := f.users[userID]
	u.PasswordHash = hash
	u.MustChangePassword = false
	f.users[userID] = u
	f.credential = nil
	return nil
}

func (f *fakeStore) UpdateMFASecret(context.Context, string, []byte) error { return nil }

func (f *fakeStore) SetMFAEnabled(context.Context, string, bool) error { return nil }

func (f *fakeStore) Profile(_ context.Context, id string) (Profile, error) {
	return Profile{ID: id}, nil
}

func newTestService(t *testing.T, status string) (*Service, *fakeStore) {
	t.Helper()
	hash, err := HashPassword("Password1")
	require.NoError(t, err)
	store := &fakeStore{users: map[string]AuthUser{
		"u1": {ID: "u1", Email: "jane@example.com", Role: RoleEmployee, Status: status, PasswordHash: hash},
	}}
	crypto, err := cryptoutil.New("")
	require.NoError(t, err)
	svc := NewService(store, crypto, "secret", time.Hour)
	svc.Now = func() time.Time { return time.Date(2024, 8, 20, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestLoginSuccess(t *testing.T) {
	svc, store := newTestService(t, UserStatusActive)

	res, err := svc.Login(context.Background(), LoginInput{Email: " Jane@Example.com ", Password: "Password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, RoleEmployee, res.User.Role)
	assert.False(t, res.MustChangePassword)
	assert.True(t, store.lastLoginOK)

	claims, err := ParseToken("secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestLoginRejectsBadPasswordAndUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, UserStatusActive)

	_, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "Password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsInactive(t *testing.T) {
	svc, _ := newTestService(t, "INACTIVE")
	_, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "Password1"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginWithActiveTemporaryCredential(t *testing.T) {
	svc, store := newTestService(t, UserStatusActive)
	store.credential = &PendingCredential{ID: "c1", ExpiresAt: svc.Now().Add(time.Hour)}

	res, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "Password1"})
	require.NoError(t, err)
	assert.True(t, res.MustChangePassword)
	assert.Equal(t, "c1", store.markedUsed)
}

func TestLoginWithExpiredTemporaryCredential(t *testing.T) {
	svc, store := newTestService(t, UserStatusActive)
	store.credential = &PendingCredential{ID: "c1", ExpiresAt: svc.Now().Add(-time.Minute)}

	_, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "Password1"})
	assert.True(t, errors.Is(err, ErrCredentialExpired))
	assert.Empty(t, store.markedUsed)
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService(t, UserStatusActive)

	err := svc.ChangePassword(context.Background(), "u1", "wrong", "Newpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), "u1", "Password1", "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	err = svc.ChangePassword(context.Background(), "u1", "Password1", "Newpass123")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(store.newHash, "Newpass123"))
}

func TestChangePasswordConsumesOutstandingCredential(t *testing.T) {
	svc, store := newTestService(t, UserStatusActive)
	issuedAt := svc.Now()
	store.credential = &PendingCredential{ID: "c1", ExpiresAt: issuedAt.Add(72 * time.Hour)}

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", "Password1", "Newpass123"))
	assert.Nil(t, store.credential)

	svc.Now = func() time.Time { return issuedAt.Add(96 * time.Hour) }
	res, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "Newpass123"})
	require.NoError(t, err)
	assert.False(t, res.MustChangePassword)
	assert.Empty(t, store.markedUsed)
}

func TestMFASetupRequiresKey(t *testing.T) {
	svc, _ := newTestService(t, UserStatusActive)
	_, err := svc.SetupMFA(context.Background(), UserContext{UserID: "u1"})
	assert.ErrorIs(t, err, ErrMFAUnavailable)
}
