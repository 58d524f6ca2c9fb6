package crm

import (
	"context"
	"time"
)

type StoreAPI interface {
	ConfirmPayment(ctx context.Context, in PaymentInput, confirmedBy, number string, at time.Time, key *IdempotencyKey) (string, bool, error)
	GetReceipt(ctx context.Context, id string) (Receipt, error)
	ListReceipts(ctx context.Context, f ReceiptFilter) ([]Receipt, int, error)
}

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

// ConfirmPayment issues a receipt for the payment. When key was already
// reserved for the same payload the earlier receipt is returned with
// replayed set and no new payment is recorded.
func (s *Service) ConfirmPayment(ctx context.Context, actorID string, in PaymentInput, key *IdempotencyKey) (Receipt, bool, error) {
	if err := in.Validate(); err != nil {
		return Receipt{}, false, err
	}
	if key != nil && key.Key == "" {
		key = nil
	}
	now := s.Now().UTC()
	id, replayed, err := s.Store.ConfirmPayment(ctx, in, actorID, NewReceiptNumber(now), now, key)
	if err != nil {
		return Receipt{}, false, err
	}
	receipt, err := s.Store.GetReceipt(ctx, id)
	return receipt, replayed, err
}

func (s *Service) Receipt(ctx context.Context, id string) (Receipt, error) {
	return s.Store.GetReceipt(ctx, id)
}

func (s *Service) Receipts(ctx context.Context, f ReceiptFilter) ([]Receipt, int, error) {
	return s.Store.ListReceipts(ctx, f)
}
