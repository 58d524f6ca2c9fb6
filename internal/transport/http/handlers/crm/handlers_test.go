package crmhandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/crm"
	"hrcrm/internal/transport/http/middleware"
)

type reservation struct {
	hash      string
	receiptID string
}

// fakeStore reserves idempotency keys the way the payment transaction does.
type fakeStore struct {
	confirms int
	receipt  crm.Receipt
	keys     map[string]reservation
}

func (f *fakeStore) ConfirmPayment(_ context.Context, in crm.PaymentInput, confirmedBy, number string, at time.Time, key *crm.IdempotencyKey) (string, bool, error) {
	if key != nil {
		if f.keys == nil {
			f.keys = map[string]reservation{}
		}
		k := key.UserID + key.Endpoint + key.Key
		if res, ok := f.keys[k]; ok {
			if res.hash != key.RequestHash {
				return "", false, crm.ErrIdempotencyConflict
			}
			return res.receiptID, true, nil
		}
		f.keys[k] = reservation{hash: key.RequestHash, receiptID: "r1"}
	}
	f.confirms++
	f.receipt = crm.Receipt{ID: "r1", Number: number, IssuedAt: at, Payment: crm.Payment{
		ID: "p1", CustomerName: in.CustomerName, Amount: in.Amount, Currency: in.Currency, Method: in.Method, Status: crm.StatusConfirmed,
	}}
	return "r1", false, nil
}

func (f *fakeStore) GetReceipt(_ context.Context, id string) (crm.Receipt, error) {
	if f.receipt.ID == "" || (id != f.receipt.ID && id != f.receipt.Number) {
		return crm.Receipt{}, crm.ErrNotFound
	}
	return f.receipt, nil
}

func (f *fakeStore) ListReceipts(context.Context, crm.ReceiptFilter) ([]crm.Receipt, int, error) {
	return []crm.Receipt{f.receipt}, 1, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ string, action, entityType, _ string, _, _ string, _, _ any) error {
	a.actions = append(a.actions, action+":"+entityType)
	return nil
}

func confirm(h *Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/crm/payments/confirm", strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleHRManager}))
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.handleConfirm(rec, req)
	return rec
}

func TestConfirmReplaysIdempotentRequest(t *testing.T) {
	store := &fakeStore{}
	recorder := &recordingAudit{}
	h := NewHandler(crm.NewService(store), nil, recorder)
	body := `{"customerName":"Acme","amount":120.5,"method":"card"}`

	first := confirm(h, "k-1", body)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replay"))

	second := confirm(h, "k-1", body)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.Equal(t, 1, store.confirms)
	assert.Contains(t, second.Body.String(), store.receipt.Number)
	assert.Len(t, recorder.actions, 1)

	conflict := confirm(h, "k-1", `{"customerName":"Acme","amount":99,"method":"card"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, 1, store.confirms)
}

func TestConfirmReservedKeyDoesNotCreatePayment(t *testing.T) {
	body := `{"customerName":"Acme","amount":120.5,"method":"card"}`
	store := &fakeStore{
		receipt: crm.Receipt{ID: "r1", Number: "RCT-EARLIER", Payment: crm.Payment{ID: "p1", CustomerName: "Acme"}},
		keys: map[string]reservation{
			"u1" + confirmEndpoint + "k-2": {hash: middleware.RequestHash([]byte(body)), receiptID: "r1"},
		},
	}
	recorder := &recordingAudit{}
	h := NewHandler(crm.NewService(store), nil, recorder)

	rec := confirm(h, "k-2", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replay"))
	assert.Contains(t, rec.Body.String(), "RCT-EARLIER")
	assert.Zero(t, store.confirms)
	assert.Empty(t, recorder.actions)
}

func TestConfirmWithoutKeyAlwaysCreates(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(crm.NewService(store), nil, nil)
	body := `{"customerName":"Acme","amount":10,"method":"cash"}`

	require.Equal(t, http.StatusCreated, confirm(h, "", body).Code)
	require.Equal(t, http.StatusCreated, confirm(h, "", body).Code)
	assert.Equal(t, 2, store.confirms)
	assert.Empty(t, store.keys)
}

func TestConfirmValidates(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(crm.NewService(store), nil, nil)

	rec := confirm(h, "", `{"customerName":"Acme","amount":0,"method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.confirms)
}

func TestReceiptHTMLIsAttachment(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(crm.NewService(store), nil, nil)
	require.Equal(t, http.StatusCreated, confirm(h, "", `{"customerName":"Acme","amount":10,"method":"cash"}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/crm/receipts/r1/html", nil)
	rctx := chiContext(req, "receiptID", "r1")
	rec := httptest.NewRecorder()
	h.handleReceiptHTML(rec, rctx)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")
	assert.Contains(t, rec.Body.String(), "Acme")
}

func chiContext(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
