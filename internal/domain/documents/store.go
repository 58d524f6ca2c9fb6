package documents

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

const documentColumns = `d.id, d.user_id, u.name, d.title, d.category, d.status, d.file_name, d.content_type,
           d.file_size, d.uploaded_by::text, d.created_at`

func scanDocument(row pgx.Row, extra ...any) (Document, error) {
	var d Document
	dest := append([]any{&d.ID, &d.UserID, &d.OwnerName, &d.Title, &d.Category, &d.Status, &d.FileName,
		&d.ContentType, &d.FileSize, &d.UploadedBy, &d.CreatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (s *Store) List(ctx context.Context, f Filter) ([]Document, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if f.UserID != "" {
		add(" AND d.user_id = $%d", f.UserID)
	}
	if f.Category != "" {
		add(" AND d.category = $%d", f.Category)
	}
	if f.Status != "" {
		add(" AND d.status = $%d", f.Status)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (d.title ILIKE $%d OR d.file_name ILIKE $%d)", len(args), len(args))
	}
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM documents d"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT " + documentColumns + " FROM documents d JOIN users u ON u.id = d.user_id" + where + " ORDER BY d.created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Document, error) {
	return scanDocument(s.DB.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents d JOIN users u ON u.id = d.user_id WHERE d.id = $1", id))
}

func (s *Store) Content(ctx context.Context, id string) (Document, []byte, error) {
	var data []byte
	d, err := scanDocument(s.DB.QueryRow(ctx, "SELECT "+documentColumns+", d.file_data FROM documents d JOIN users u ON u.id = d.user_id WHERE d.id = $1", id), &data)
	return d, data, err
}

func (s *Store) Create(ctx context.Context, in Upload, contentType, uploadedBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO documents (user_id, title, category, file_name, content_type, file_size, file_data, uploaded_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, in.UserID, in.Title, in.Category, in.FileName, contentType, len(in.Data), in.Data, uploadedBy).Scan(&id)
	return id, err
}

func (s *Store) Archive(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE documents SET status = 'ARCHIVED' WHERE id = $1 AND status = 'ACTIVE'", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
