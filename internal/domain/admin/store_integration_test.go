package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/admin"
	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/core"
	"hrcrm/internal/platform/db/dbtest"
)

// inactiveUser creates a user that jobs scanning active users leave alone.
func inactiveUser(t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
    INSERT INTO users (email, name, password_hash, role, status) VALUES ($1, $2, 'x', 'EMPLOYEE', 'INACTIVE') RETURNING id
  `, "gone-"+uuid.NewString()+"@test.local", name).Scan(&id)
	require.NoError(t, err)
	return id
}

func countOf(preview admin.CascadePreview, table, column string) int {
	for _, c := range preview.Counts {
		if c.Table == table && c.Column == column {
			return c.Count
		}
	}
	return -1
}

func TestCascadeDeleteRemovesOwnedRowsAndUnlinksHistory(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	store := admin.NewStore(pool)

	target := inactiveUser(t, pool, "Leaving User")
	colleague := dbtest.CreateUser(t, pool, auth.RoleEmployee, "Colleague")
	dbtest.CreateEmployee(t, pool, target, "", "")
	colleagueRecord := dbtest.CreateEmployee(t, pool, colleague, "", "")

	_, err := pool.Exec(ctx, "UPDATE employees SET manager_id = $1 WHERE id = $2", target, colleagueRecord)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
    INSERT INTO leave_requests (user_id, leave_type, start_date, end_date, working_days) VALUES ($1, 'VACATION', '3100-01-05', '3100-01-06', 2)
  `, target)
	require.NoError(t, err)
	var reviewedID string
	require.NoError(t, pool.QueryRow(ctx, `
    INSERT INTO leave_requests (user_id, leave_type, start_date, end_date, working_days, status, reviewed_by)
    VALUES ($1, 'SICK', '3100-02-02', '3100-02-02', 1, 'APPROVED', $2) RETURNING id
  `, colleague, target).Scan(&reviewedID))
	_, err = pool.Exec(ctx, "INSERT INTO temporary_credentials (user_id, password_enc, expires_at) VALUES ($1, '\\x00'::bytea, now())", target)
	require.NoError(t, err)
	var paymentID string
	require.NoError(t, pool.QueryRow(ctx, `
    INSERT INTO payments (customer_name, amount, method, confirmed_by) VALUES ('Cascade Co', 10, 'cash', $1) RETURNING id
  `, target).Scan(&paymentID))

	preview, err := store.CascadePreview(ctx, target)
	require.NoError(t, err)
	assert.Len(t, preview.Counts, 24)
	assert.Equal(t, 1, countOf(preview, "employees", "user_id"))
	assert.Equal(t, 1, countOf(preview, "employees", "manager_id"))
	assert.Equal(t, 1, countOf(preview, "leave_requests", "user_id"))
	assert.Equal(t, 1, countOf(preview, "leave_requests", "reviewed_by"))
	assert.Equal(t, 1, countOf(preview, "temporary_credentials", "user_id"))
	assert.Equal(t, 1, countOf(preview, "payments", "confirmed_by"))
	assert.Equal(t, 6, preview.Total)

	deleted, err := store.CascadeDelete(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, preview.Total, deleted.Total)

	_, err = store.CascadePreview(ctx, target)
	assert.ErrorIs(t, err, admin.ErrNotFound)

	var manager, reviewer, confirmer *string
	require.NoError(t, pool.QueryRow(ctx, "SELECT manager_id::text FROM employees WHERE id = $1", colleagueRecord).Scan(&manager))
	require.NoError(t, pool.QueryRow(ctx, "SELECT reviewed_by::text FROM leave_requests WHERE id = $1", reviewedID).Scan(&reviewer))
	require.NoError(t, pool.QueryRow(ctx, "SELECT confirmed_by::text FROM payments WHERE id = $1", paymentID).Scan(&confirmer))
	assert.Nil(t, manager)
	assert.Nil(t, reviewer)
	assert.Nil(t, confirmer)

	var owned int
	require.NoError(t, pool.QueryRow(ctx, `
    SELECT (SELECT COUNT(1) FROM employees WHERE user_id = $1) + (SELECT COUNT(1) FROM leave_requests WHERE user_id = $1)
         + (SELECT COUNT(1) FROM temporary_credentials WHERE user_id = $1)
  `, target).Scan(&owned))
	assert.Zero(t, owned)
}

func TestFixEmployeeIDsRenumbersInvalidRecords(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	store := admin.NewStore(pool)

	duplicate := core.FormatEmployeeID(int(uuid.New().ID() % 1_000_000_000))
	missing := dbtest.CreateEmployee(t, pool, dbtest.CreateUser(t, pool, auth.RoleEmployee, "No Id"), "", "")
	malformed := dbtest.CreateEmployee(t, pool, dbtest.CreateUser(t, pool, auth.RoleEmployee, "Bad Id"), "", "bad-"+uuid.NewString())
	firstDup := dbtest.CreateEmployee(t, pool, dbtest.CreateUser(t, pool, auth.RoleEmployee, "Dup One"), "", duplicate)
	secondDup := dbtest.CreateEmployee(t, pool, dbtest.CreateUser(t, pool, auth.RoleEmployee, "Dup Two"), "", duplicate)

	issues, err := store.FixEmployeeIDs(ctx)
	require.NoError(t, err)
	reasons := map[string]string{}
	for _, issue := range issues {
		reasons[issue.RecordID] = issue.Reason
	}
	assert.Equal(t, core.IssueMissing, reasons[missing])
	assert.Equal(t, core.IssueMalformed, reasons[malformed])

	ids := map[string]string{}
	for _, record := range []string{missing, malformed, firstDup, secondDup} {
		var id string
		require.NoError(t, pool.QueryRow(ctx, "SELECT employee_id FROM employees WHERE id = $1", record).Scan(&id))
		_, ok := core.ParseEmployeeID(id)
		assert.True(t, ok, "record %s has %q", record, id)
		ids[record] = id
	}
	assert.NotEqual(t, ids[firstDup], ids[secondDup])

	remaining, err := store.EmployeeIDIssues(ctx)
	require.NoError(t, err)
	for _, issue := range remaining {
		assert.NotContains(t, []string{missing, malformed, firstDup, secondDup}, issue.RecordID)
	}
}

func TestFixOrphanedUsersCreatesEmployeeRecords(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	store := admin.NewStore(pool)
	orphan := dbtest.CreateUser(t, pool, auth.RoleEmployee, "Ada Lovelace")

	fixes, err := store.FixOrphanedUsers(ctx)
	require.NoError(t, err)
	var fix *admin.OrphanFix
	for i := range fixes {
		if fixes[i].UserID == orphan {
			fix = &fixes[i]
		}
	}
	require.NotNil(t, fix)
	_, ok := core.ParseEmployeeID(fix.EmployeeID)
	assert.True(t, ok)

	var first, last, employeeID string
	require.NoError(t, pool.QueryRow(ctx, "SELECT first_name, last_name, employee_id FROM employees WHERE user_id = $1", orphan).Scan(&first, &last, &employeeID))
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)
	assert.Equal(t, fix.EmployeeID, employeeID)

	orphans, err := store.OrphanedUsers(ctx)
	require.NoError(t, err)
	for _, o := range orphans {
		assert.NotEqual(t, orphan, o.ID)
	}
}

func TestIssueCredentialExpiresEarlierUnusedCredential(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	store := admin.NewStore(pool)
	userID := dbtest.CreateUser(t, pool, auth.RoleEmployee, "Reissued")
	issuer := dbtest.CreateUser(t, pool, auth.RoleHRManager, "Issuer")

	first := time.Now().UTC().Truncate(time.Microsecond)
	earlier, err := store.IssueCredential(ctx, userID, "hash-1", []byte{1}, first, first.Add(72*time.Hour), issuer)
	require.NoError(t, err)

	second := first.Add(time.Minute)
	latest, err := store.IssueCredential(ctx, userID, "hash-2", []byte{2}, second, second.Add(72*time.Hour), issuer)
	require.NoError(t, err)

	old, err := store.GetCredential(ctx, earlier)
	require.NoError(t, err)
	assert.True(t, old.ExpiresAt.Equal(second))
	assert.Equal(t, admin.CredentialExpired, admin.CredentialStatus(old.IsUsed, old.ExpiresAt, second))

	current, err := store.GetCredential(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, admin.CredentialActive, admin.CredentialStatus(current.IsUsed, current.ExpiresAt, second))

	revoked, err := store.RevokeCredential(ctx, earlier, second)
	require.NoError(t, err)
	assert.False(t, revoked, "already expired")
}
