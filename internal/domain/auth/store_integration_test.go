package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/platform/db/dbtest"
)

func TestUpdatePasswordConsumesTemporaryCredentials(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	userID := dbtest.CreateUser(t, pool, auth.RoleEmployee, "Temp Holder")
	_, err := pool.Exec(ctx, `
    INSERT INTO temporary_credentials (user_id, password_enc, expires_at) VALUES ($1, '\x00'::bytea, $2)
  `, userID, time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "UPDATE users SET must_change_password = true WHERE id = $1", userID)
	require.NoError(t, err)

	store := auth.NewStore(pool)
	_, pending, err := store.PendingCredential(ctx, userID)
	require.NoError(t, err)
	require.True(t, pending)

	require.NoError(t, store.UpdatePassword(ctx, userID, "new-hash"))

	_, pending, err = store.PendingCredential(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending)

	user, err := store.FindUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", user.PasswordHash)
	assert.False(t, user.MustChangePassword)
}

func TestMarkCredentialUsedForcesPasswordChange(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	userID := dbtest.CreateUser(t, pool, auth.RoleEmployee, "Temp Holder")
	var credentialID string
	require.NoError(t, pool.QueryRow(ctx, `
    INSERT INTO temporary_credentials (user_id, password_enc, expires_at) VALUES ($1, '\x00'::bytea, $2) RETURNING id
  `, userID, time.Now().Add(time.Hour)).Scan(&credentialID))

	store := auth.NewStore(pool)
	require.NoError(t, store.MarkCredentialUsed(ctx, credentialID, userID))

	_, pending, err := store.PendingCredential(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending)
	user, err := store.FindUserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.MustChangePassword)
}
