package recruitment

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

const postingSelect = `
    SELECT p.id, p.title, p.department_id::text, COALESCE(d.name, ''), p.description, p.location,
           p.employment_type, p.status,
           (SELECT COUNT(1) FROM applications a WHERE a.posting_id = p.id),
           p.created_by::text, p.created_at, p.updated_at
    FROM job_postings p
    LEFT JOIN departments d ON d.id = p.department_id`

func scanPosting(row pgx.Row) (Posting, error) {
	var p Posting
	err := row.Scan(&p.ID, &p.Title, &p.DepartmentID, &p.DepartmentName, &p.Description, &p.Location,
		&p.EmploymentType, &p.Status, &p.ApplicationCount, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Posting{}, ErrNotFound
	}
	return p, err
}

func (s *Store) ListPostings(ctx context.Context, status string) ([]Posting, error) {
	query := postingSelect
	args := []any{}
	if status != "" {
		query += " WHERE p.status = $1"
		args = append(args, status)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY p.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Posting{}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPosting(ctx context.Context, id string) (Posting, error) {
	return scanPosting(s.DB.QueryRow(ctx, postingSelect+" WHERE p.id = $1", id))
}

func (s *Store) CreatePosting(ctx context.Context, in PostingInput, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_postings (title, department_id, description, location, employment_type, created_by)
    VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)
    RETURNING id
  `, in.Title, in.DepartmentID, in.Description, in.Location, in.EmploymentType, createdBy).Scan(&id)
	return id, err
}

func (s *Store) SetPostingStatus(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE job_postings SET status = $1, updated_at = now() WHERE id = $2 AND status = $3", to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const applicationSelect = `
    SELECT a.id, a.posting_id, p.title, a.candidate_name, a.candidate_email, a.phone, a.resume_url,
           a.status, a.notes, a.created_at, a.updated_at
    FROM applications a
    JOIN job_postings p ON p.id = a.posting_id`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.PostingID, &a.PostingTitle, &a.CandidateName, &a.CandidateEmail, &a.Phone,
		&a.ResumeURL, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return a, err
}

func (s *Store) ListApplications(ctx context.Context, postingID, status string) ([]Application, error) {
	where := " WHERE 1=1"
	args := []any{}
	if postingID != "" {
		args = append(args, postingID)
		where += fmt.Sprintf(" AND a.posting_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	rows, err := s.DB.Query(ctx, applicationSelect+where+" ORDER BY a.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetApplication(ctx context.Context, id string) (Application, error) {
	return scanApplication(s.DB.QueryRow(ctx, applicationSelect+" WHERE a.id = $1", id))
}

func (s *Store) HasApplied(ctx context.Context, postingID, email string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM applications WHERE posting_id = $1 AND lower(candidate_email) = $2)", postingID, email).Scan(&ok)
	return ok, err
}

func (s *Store) CreateApplication(ctx context.Context, postingID string, in ApplicationInput) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO applications (posting_id, candidate_name, candidate_email, phone, resume_url, notes)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, postingID, in.CandidateName, in.CandidateEmail, in.Phone, in.ResumeURL, in.Notes).Scan(&id)
	return id, err
}

func (s *Store) SetApplicationStatus(ctx context.Context, id, from, to, notes string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE applications
    SET status = $1, notes = CASE WHEN $2 = '' THEN notes ELSE $2 END, updated_at = now()
    WHERE id = $3 AND status = $4
  `, to, notes, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
