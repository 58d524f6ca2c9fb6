package documents

import (
	"context"
	"path/filepath"
	"strings"

	"hrcrm/internal/domain/auth"
)

type StoreAPI interface {
	List(ctx context.Context, f Filter) ([]Document, int, error)
	Get(ctx context.Context, id string) (Document, error)
	Content(ctx context.Context, id string) (Document, []byte, error)
	Create(ctx context.Context, in Upload, contentType, uploadedBy string) (string, error)
	Archive(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func canManage(user auth.UserContext) bool {
	return auth.HasPermission(user.Role, auth.PermDocumentsManage)
}

func (s *Service) List(ctx context.Context, user auth.UserContext, f Filter) ([]Document, int, error) {
	if !canManage(user) {
		f.UserID = user.UserID
	}
	return s.Store.List(ctx, f)
}

func (s *Service) Upload(ctx context.Context, user auth.UserContext, in Upload) (Document, error) {
	in.FileName = filepath.Base(strings.TrimSpace(in.FileName))
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		in.Title = strings.TrimSuffix(in.FileName, filepath.Ext(in.FileName))
	}
	if in.Title == "" {
		return Document{}, ErrTitleRequired
	}
	in.Category = NormalizeCategory(in.Category)
	if in.UserID == "" {
		in.UserID = user.UserID
	}
	if in.UserID != user.UserID && !canManage(user) {
		return Document{}, ErrForbidden
	}
	contentType, err := DetectType(in.FileName, in.Data)
	if err != nil {
		return Document{}, err
	}
	id, err := s.Store.Create(ctx, in, contentType, user.UserID)
	if err != nil {
		return Document{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) visible(user auth.UserContext, d Document) bool {
	return d.UserID == user.UserID || canManage(user)
}

func (s *Service) Download(ctx context.Context, user auth.UserContext, id string) (Document, []byte, error) {
	d, data, err := s.Store.Content(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if !s.visible(user, d) {
		return Document{}, nil, ErrNotFound
	}
	return d, data, nil
}

func (s *Service) Archive(ctx context.Context, user auth.UserContext, id string) (Document, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !s.visible(user, d) {
		return Document{}, ErrNotFound
	}
	if d.Status == StatusArchived {
		return Document{}, ErrAlreadyArchived
	}
	if _, err := s.Store.Archive(ctx, id); err != nil {
		return Document{}, err
	}
	d.Status = StatusArchived
	return d, nil
}

// Delete is open to the owner and document managers.
func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) (Document, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !s.visible(user, d) {
		return Document{}, ErrNotFound
	}
	ok, err := s.Store.Delete(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}
