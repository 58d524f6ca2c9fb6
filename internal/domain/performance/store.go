package performance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const reviewSelect = `
    SELECT r.id, r.user_id, u.name, r.reviewer_id::text, COALESCE(rv.name, ''), r.period, r.rating,
           r.strengths, r.improvements, r.comments, r.status, r.submitted_at, r.completed_at, r.created_at
    FROM performance_reviews r
    JOIN users u ON u.id = r.user_id
    LEFT JOIN users rv ON rv.id = r.reviewer_id`

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.ReviewerID, &r.ReviewerName, &r.Period, &r.Rating,
		&r.Strengths, &r.Improvements, &r.Comments, &r.Status, &r.SubmittedAt, &r.CompletedAt, &r.CreatedAt)
	return r, err
}

func (s *Store) ListReviews(ctx context.Context, f Filter) ([]Review, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND r.user_id = $%d", len(args))
	}
	if f.Participant != "" {
		args = append(args, f.Participant)
		where += fmt.Sprintf(" AND (r.user_id = $%d OR r.reviewer_id = $%d)", len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	rows, err := s.DB.Query(ctx, reviewSelect+where+" ORDER BY r.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetReview(ctx context.Context, id string) (Review, error) {
	r, err := scanReview(s.DB.QueryRow(ctx, reviewSelect+" WHERE r.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	return r, err
}

func (s *Store) CreateReview(ctx context.Context, in ReviewInput) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO performance_reviews (user_id, reviewer_id, period)
    VALUES ($1,$2,$3)
    RETURNING id
  `, in.UserID, in.ReviewerID, in.Period).Scan(&id)
	return id, err
}

func (s *Store) SubmitReview(ctx context.Context, id string, sub Submission) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE performance_reviews
    SET rating = $1, strengths = $2, improvements = $3, comments = $4, status = 'SUBMITTED', submitted_at = now()
    WHERE id = $5 AND status = 'DRAFT'
  `, sub.Rating, sub.Strengths, sub.Improvements, sub.Comments, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CompleteReview(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE performance_reviews SET status = 'COMPLETED', completed_at = now()
    WHERE id = $1 AND status = 'SUBMITTED'
  `, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const goalSelect = `
    SELECT g.id, g.user_id, u.name, g.title, g.description, g.due_date, g.progress, g.status,
           g.created_by::text, g.created_at, g.updated_at
    FROM goals g
    JOIN users u ON u.id = g.user_id`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.UserID, &g.UserName, &g.Title, &g.Description, &g.DueDate, &g.Progress, &g.Status,
		&g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) ListGoals(ctx context.Context, f Filter) ([]Goal, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND g.user_id = $%d", len(args))
	}
	if f.Participant != "" {
		args = append(args, f.Participant)
		where += fmt.Sprintf(" AND (g.user_id = $%d OR g.created_by = $%d)", len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND g.status = $%d", len(args))
	}
	rows, err := s.DB.Query(ctx, goalSelect+where+" ORDER BY g.due_date NULLS LAST, g.created_at", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) GetGoal(ctx context.Context, id string) (Goal, error) {
	g, err := scanGoal(s.DB.QueryRow(ctx, goalSelect+" WHERE g.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return g, err
}

func (s *Store) CreateGoal(ctx context.Context, in GoalInput, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goals (user_id, title, description, due_date, created_by)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, in.UserID, in.Title, in.Description, in.DueDate, createdBy).Scan(&id)
	return id, err
}

// SetGoalProgress updates progress and status unless the goal was cancelled.
func (s *Store) SetGoalProgress(ctx context.Context, id string, progress int, status string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals SET progress = $1, status = $2, updated_at = now()
    WHERE id = $3 AND status <> 'CANCELLED'
  `, progress, status, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CancelGoal(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals SET status = 'CANCELLED', updated_at = now()
    WHERE id = $1 AND status NOT IN ('CANCELLED','COMPLETED')
  `, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Manages reports whether managerID is the user's reporting manager or manages their department.
func (s *Store) Manages(ctx context.Context, managerID, userID string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM employees e
      WHERE e.user_id = $2
        AND (e.manager_id = $1
             OR e.department_id IN (SELECT department_id FROM department_managers WHERE user_id = $1))
    )
  `, managerID, userID).Scan(&ok)
	return ok, err
}
