package crm_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/crm"
	"hrcrm/internal/platform/db/dbtest"
)

func TestConfirmPaymentConcurrentSameKeyCreatesOnePayment(t *testing.T) {
	pool := dbtest.Open(t)
	userID := dbtest.CreateUser(t, pool, auth.RoleHRManager, "Cashier")
	svc := crm.NewService(crm.NewStore(pool))
	ctx := context.Background()

	customer := "Acme " + uuid.NewString()
	in := crm.PaymentInput{CustomerName: customer, Amount: 42, Method: "card"}
	key := crm.IdempotencyKey{UserID: userID, Endpoint: "crm.payments.confirm", Key: uuid.NewString(), RequestHash: "hash-a"}

	const callers = 5
	var wg sync.WaitGroup
	receipts := make([]crm.Receipt, callers)
	replays := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := key
			receipts[i], replays[i], errs[i] = svc.ConfirmPayment(ctx, userID, in, &k)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, receipts[0].ID, receipts[i].ID)
		if !replays[i] {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	var payments int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(1) FROM payments WHERE customer_name = $1", customer).Scan(&payments))
	assert.Equal(t, 1, payments)

	other := key
	other.RequestHash = "hash-b"
	_, _, err := svc.ConfirmPayment(ctx, userID, in, &other)
	assert.ErrorIs(t, err, crm.ErrIdempotencyConflict)
}

func TestConfirmPaymentWithoutKeyIsNotDeduplicated(t *testing.T) {
	pool := dbtest.Open(t)
	userID := dbtest.CreateUser(t, pool, auth.RoleHRManager, "Cashier")
	svc := crm.NewService(crm.NewStore(pool))
	ctx := context.Background()

	customer := "Walk-in " + uuid.NewString()
	in := crm.PaymentInput{CustomerName: customer, Amount: 5, Method: "cash"}
	first, _, err := svc.ConfirmPayment(ctx, userID, in, nil)
	require.NoError(t, err)
	second, _, err := svc.ConfirmPayment(ctx, userID, in, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Number, second.Number)

	found, err := svc.Receipt(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, customer, found.Payment.CustomerName)
}
