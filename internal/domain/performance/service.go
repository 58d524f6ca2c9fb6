package performance

import (
	"context"
	"strings"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/notifications"
)

type StoreAPI interface {
	ListReviews(ctx context.Context, f Filter) ([]Review, error)
	GetReview(ctx context.Context, id string) (Review, error)
	CreateReview(ctx context.Context, in ReviewInput) (string, error)
	SubmitReview(ctx context.Context, id string, sub Submission) (bool, error)
	CompleteReview(ctx context.Context, id string) (bool, error)
	ListGoals(ctx context.Context, f Filter) ([]Goal, error)
	GetGoal(ctx context.Context, id string) (Goal, error)
	CreateGoal(ctx context.Context, in GoalInput, createdBy string) (string, error)
	SetGoalProgress(ctx context.Context, id string, progress int, status string) (bool, error)
	CancelGoal(ctx context.Context, id string) (bool, error)
	Manages(ctx context.Context, managerID, userID string) (bool, error)
}

type Service struct {
	Store  StoreAPI
	Notify *notifications.Service
}

func NewService(store StoreAPI, notify *notifications.Service) *Service {
	return &Service{Store: store, Notify: notify}
}

// oversees is true for HR or a manager of the subject.
func (s *Service) oversees(ctx context.Context, user auth.UserContext, subjectID string) (bool, error) {
	if user.IsHR() {
		return true, nil
	}
	if !user.IsManager() || subjectID == user.UserID {
		return false, nil
	}
	return s.Store.Manages(ctx, user.UserID, subjectID)
}

func (s *Service) scope(ctx context.Context, user auth.UserContext, f Filter) (Filter, error) {
	if user.IsHR() {
		return f, nil
	}
	if f.UserID != "" && f.UserID != user.UserID {
		ok, err := s.oversees(ctx, user, f.UserID)
		if err != nil {
			return Filter{}, err
		}
		if !ok {
			return Filter{}, ErrForbidden
		}
		return f, nil
	}
	f.Participant = user.UserID
	return f, nil
}

func (s *Service) Reviews(ctx context.Context, user auth.UserContext, f Filter) ([]Review, error) {
	f, err := s.scope(ctx, user, f)
	if err != nil {
		return nil, err
	}
	return s.Store.ListReviews(ctx, f)
}

func (s *Service) Review(ctx context.Context, user auth.UserContext, id string) (Review, error) {
	r, err := s.Store.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if r.UserID == user.UserID || isReviewer(r, user) {
		return r, nil
	}
	ok, err := s.oversees(ctx, user, r.UserID)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, ErrNotFound
	}
	return r, nil
}

func isReviewer(r Review, user auth.UserContext) bool {
	return r.ReviewerID != nil && *r.ReviewerID == user.UserID
}

// CreateReview opens a DRAFT review; the reviewer defaults to the caller.
func (s *Service) CreateReview(ctx context.Context, user auth.UserContext, in ReviewInput) (Review, error) {
	in.Period = strings.TrimSpace(in.Period)
	if in.UserID == "" || in.Period == "" {
		return Review{}, ErrInvalidInput
	}
	if in.ReviewerID == "" {
		in.ReviewerID = user.UserID
	}
	ok, err := s.oversees(ctx, user, in.UserID)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, ErrForbidden
	}
	id, err := s.Store.CreateReview(ctx, in)
	if err != nil {
		return Review{}, err
	}
	s.Notify.Notify(ctx, in.UserID, notifications.TypeReviewAssigned, "Performance review started",
		"A performance review for "+in.Period+" has been opened.")
	return s.Store.GetReview(ctx, id)
}

func (s *Service) SubmitReview(ctx context.Context, user auth.UserContext, id string, sub Submission) (Review, error) {
	if !ValidRating(sub.Rating) {
		return Review{}, ErrInvalidRating
	}
	r, err := s.Review(ctx, user, id)
	if err != nil {
		return Review{}, err
	}
	if !isReviewer(r, user) && !user.IsHR() {
		return Review{}, ErrForbidden
	}
	if r.Status != ReviewDraft {
		return Review{}, ErrInvalidState
	}
	ok, err := s.Store.SubmitReview(ctx, id, sub)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, ErrInvalidState
	}
	return s.Store.GetReview(ctx, id)
}

// CompleteReview is done by the reviewee acknowledging it, or by HR.
func (s *Service) CompleteReview(ctx context.Context, user auth.UserContext, id string) (Review, error) {
	r, err := s.Review(ctx, user, id)
	if err != nil {
		return Review{}, err
	}
	if r.UserID != user.UserID && !user.IsHR() {
		return Review{}, ErrForbidden
	}
	if r.Status != ReviewSubmitted {
		return Review{}, ErrInvalidState
	}
	ok, err := s.Store.CompleteReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, ErrInvalidState
	}
	if r.ReviewerID != nil {
		s.Notify.Notify(ctx, *r.ReviewerID, notifications.TypeReviewCompleted, "Performance review completed",
			r.UserName+" completed the "+r.Period+" review.")
	}
	return s.Store.GetReview(ctx, id)
}

func (s *Service) Goals(ctx context.Context, user auth.UserContext, f Filter) ([]Goal, error) {
	f, err := s.scope(ctx, user, f)
	if err != nil {
		return nil, err
	}
	return s.Store.ListGoals(ctx, f)
}

func (s *Service) CreateGoal(ctx context.Context, user auth.UserContext, in GoalInput) (Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.UserID == "" {
		in.UserID = user.UserID
	}
	if in.Title == "" {
		return Goal{}, ErrInvalidGoal
	}
	if in.UserID != user.UserID {
		ok, err := s.oversees(ctx, user, in.UserID)
		if err != nil {
			return Goal{}, err
		}
		if !ok {
			return Goal{}, ErrForbidden
		}
	}
	id, err := s.Store.CreateGoal(ctx, in, user.UserID)
	if err != nil {
		return Goal{}, err
	}
	if in.UserID != user.UserID {
		s.Notify.Notify(ctx, in.UserID, notifications.TypeGoalCreated, "New goal assigned", in.Title)
	}
	return s.Store.GetGoal(ctx, id)
}

func (s *Service) editableGoal(ctx context.Context, user auth.UserContext, id string) (Goal, error) {
	g, err := s.Store.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.UserID == user.UserID || (g.CreatedBy != nil && *g.CreatedBy == user.UserID) {
		return g, nil
	}
	ok, err := s.oversees(ctx, user, g.UserID)
	if err != nil {
		return Goal{}, err
	}
	if !ok {
		return Goal{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) UpdateProgress(ctx context.Context, user auth.UserContext, id string, progress int) (Goal, error) {
	if progress < 0 || progress > 100 {
		return Goal{}, ErrInvalidProgress
	}
	g, err := s.editableGoal(ctx, user, id)
	if err != nil {
		return Goal{}, err
	}
	if g.Status == GoalCancelled {
		return Goal{}, ErrInvalidState
	}
	ok, err := s.Store.SetGoalProgress(ctx, id, progress, GoalStatus(progress))
	if err != nil {
		return Goal{}, err
	}
	if !ok {
		return Goal{}, ErrInvalidState
	}
	return s.Store.GetGoal(ctx, id)
}

func (s *Service) CancelGoal(ctx context.Context, user auth.UserContext, id string) (Goal, error) {
	g, err := s.editableGoal(ctx, user, id)
	if err != nil {
		return Goal{}, err
	}
	if g.Status == GoalCancelled || g.Status == GoalCompleted {
		return Goal{}, ErrInvalidState
	}
	ok, err := s.Store.CancelGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if !ok {
		return Goal{}, ErrInvalidState
	}
	return s.Store.GetGoal(ctx, id)
}

func (s *Service) Summary(ctx context.Context, user auth.UserContext, userID string) (Summary, error) {
	f, err := s.scope(ctx, user, Filter{UserID: userID})
	if err != nil {
		return Summary{}, err
	}
	goals, err := s.Store.ListGoals(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	reviews, err := s.Store.ListReviews(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	return buildSummary(goals, reviews), nil
}
