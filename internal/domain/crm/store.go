package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

const receiptSelect = `
    SELECT r.id, r.number, r.issued_at,
           p.id, p.customer_name, p.customer_email, p.invoice_ref, p.description, p.amount::float8,
           p.currency, p.method, p.status, p.confirmed_by::text, p.confirmed_at
    FROM receipts r
    JOIN payments p ON p.id = r.payment_id`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var r Receipt
	p := &r.Payment
	err := row.Scan(&r.ID, &r.Number, &r.IssuedAt,
		&p.ID, &p.CustomerName, &p.CustomerEmail, &p.InvoiceRef, &p.Description, &p.Amount,
		&p.Currency, &p.Method, &p.Status, &p.ConfirmedBy, &p.ConfirmedAt)
	return r, err
}

// ConfirmPayment records the payment and its receipt atomically and returns the receipt id.
// A non-nil key is reserved in the same transaction before anything is inserted.
// Losing the reservation to a concurrent or earlier request returns that
// request's receipt id with replayed set.
func (s *Store) ConfirmPayment(ctx context.Context, in PaymentInput, confirmedBy, number string, at time.Time, key *IdempotencyKey) (string, bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback(ctx)

	if key != nil {
		tag, err := tx.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, '{}'::jsonb)
    ON CONFLICT (user_id, key, endpoint) DO NOTHING
  `, key.UserID, key.Key, key.Endpoint, key.RequestHash)
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			receiptID, err := reservedReceipt(ctx, tx, *key)
			return receiptID, err == nil, err
		}
	}

	var paymentID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO payments (customer_name, customer_email, invoice_ref, description, amount, currency, method, status, confirmed_by, confirmed_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, in.CustomerName, in.CustomerEmail, in.InvoiceRef, in.Description, in.Amount, in.Currency, in.Method,
		StatusConfirmed, confirmedBy, at).Scan(&paymentID); err != nil {
		return "", false, fmt.Errorf("insert payment: %w", err)
	}

	var receiptID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO receipts (number, payment_id, issued_at) VALUES ($1,$2,$3) RETURNING id
  `, number, paymentID, at).Scan(&receiptID); err != nil {
		return "", false, fmt.Errorf("insert receipt: %w", err)
	}

	if key != nil {
		if _, err := tx.Exec(ctx, `
    UPDATE idempotency_keys SET response_json = jsonb_build_object('receiptId', $4::text)
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, key.UserID, key.Key, key.Endpoint, receiptID); err != nil {
			return "", false, fmt.Errorf("store idempotency response: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return receiptID, false, nil
}

// reservedReceipt reads the receipt id stored against a key another transaction committed.
func reservedReceipt(ctx context.Context, q querier.Querier, key IdempotencyKey) (string, error) {
	var storedHash, receiptID string
	err := q.QueryRow(ctx, `
    SELECT request_hash, COALESCE(response_json->>'receiptId', '')
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, key.UserID, key.Key, key.Endpoint).Scan(&storedHash, &receiptID)
	if err != nil {
		return "", fmt.Errorf("load idempotency key: %w", err)
	}
	if storedHash != key.RequestHash {
		return "", ErrIdempotencyConflict
	}
	if receiptID == "" {
		return "", fmt.Errorf("idempotency key %q has no receipt", key.Key)
	}
	return receiptID, nil
}

func (s *Store) GetReceipt(ctx context.Context, id string) (Receipt, error) {
	r, err := scanReceipt(s.DB.QueryRow(ctx, receiptSelect+" WHERE r.id::text = $1 OR r.number = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, ErrNotFound
	}
	return r, err
}

func (s *Store) ListReceipts(ctx context.Context, f ReceiptFilter) ([]Receipt, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (p.customer_name ILIKE $%d OR p.customer_email ILIKE $%d OR r.number ILIKE $%d OR p.invoice_ref ILIKE $%d)",
			len(args), len(args), len(args), len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where += fmt.Sprintf(" AND r.issued_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where += fmt.Sprintf(" AND r.issued_at < $%d", len(args))
	}
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM receipts r JOIN payments p ON p.id = r.payment_id"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := receiptSelect + where + " ORDER BY r.issued_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
