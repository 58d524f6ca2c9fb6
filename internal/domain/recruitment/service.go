package recruitment

import (
	"context"
	"strings"
)

type StoreAPI interface {
	ListPostings(ctx context.Context, status string) ([]Posting, error)
	GetPosting(ctx context.Context, id string) (Posting, error)
	CreatePosting(ctx context.Context, in PostingInput, createdBy string) (string, error)
	SetPostingStatus(ctx context.Context, id, from, to string) (bool, error)
	ListApplications(ctx context.Context, postingID, status string) ([]Application, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	HasApplied(ctx context.Context, postingID, email string) (bool, error)
	CreateApplication(ctx context.Context, postingID string, in ApplicationInput) (string, error)
	SetApplicationStatus(ctx context.Context, id, from, to, notes string) (bool, error)
}

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) Postings(ctx context.Context, status string) ([]Posting, error) {
	return s.Store.ListPostings(ctx, strings.ToUpper(status))
}

func (s *Service) Posting(ctx context.Context, id string) (Posting, error) {
	return s.Store.GetPosting(ctx, id)
}

func (s *Service) CreatePosting(ctx context.Context, actorID string, in PostingInput) (Posting, error) {
	if err := in.Normalize(); err != nil {
		return Posting{}, err
	}
	id, err := s.Store.CreatePosting(ctx, in, actorID)
	if err != nil {
		return Posting{}, err
	}
	return s.Store.GetPosting(ctx, id)
}

// SetPostingStatus moves a posting along DRAFT -> OPEN -> CLOSED.
func (s *Service) SetPostingStatus(ctx context.Context, id, status string) (Posting, Posting, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	before, err := s.Store.GetPosting(ctx, id)
	if err != nil {
		return Posting{}, Posting{}, err
	}
	if !CanMovePosting(before.Status, status) {
		return Posting{}, Posting{}, ErrInvalidTransition
	}
	ok, err := s.Store.SetPostingStatus(ctx, id, before.Status, status)
	if err != nil {
		return Posting{}, Posting{}, err
	}
	if !ok {
		return Posting{}, Posting{}, ErrInvalidTransition
	}
	after, err := s.Store.GetPosting(ctx, id)
	return before, after, err
}

func (s *Service) Apply(ctx context.Context, postingID string, in ApplicationInput) (Application, error) {
	if err := in.Normalize(); err != nil {
		return Application{}, err
	}
	p, err := s.Store.GetPosting(ctx, postingID)
	if err != nil {
		return Application{}, err
	}
	if p.Status != PostingOpen {
		return Application{}, ErrPostingNotOpen
	}
	dup, err := s.Store.HasApplied(ctx, postingID, in.CandidateEmail)
	if err != nil {
		return Application{}, err
	}
	if dup {
		return Application{}, ErrDuplicate
	}
	id, err := s.Store.CreateApplication(ctx, postingID, in)
	if err != nil {
		return Application{}, err
	}
	return s.Store.GetApplication(ctx, id)
}

func (s *Service) Applications(ctx context.Context, postingID, status string) ([]Application, error) {
	if postingID != "" {
		if _, err := s.Store.GetPosting(ctx, postingID); err != nil {
			return nil, err
		}
	}
	return s.Store.ListApplications(ctx, postingID, strings.ToUpper(status))
}

func (s *Service) Advance(ctx context.Context, id, status, notes string) (Application, Application, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	before, err := s.Store.GetApplication(ctx, id)
	if err != nil {
		return Application{}, Application{}, err
	}
	if !CanMoveApplication(before.Status, status) {
		return Application{}, Application{}, ErrInvalidTransition
	}
	ok, err := s.Store.SetApplicationStatus(ctx, id, before.Status, status, strings.TrimSpace(notes))
	if err != nil {
		return Application{}, Application{}, err
	}
	if !ok {
		return Application{}, Application{}, ErrInvalidTransition
	}
	after, err := s.Store.GetApplication(ctx, id)
	return before, after, err
}
