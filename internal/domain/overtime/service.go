package overtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/notifications"
)

var ErrForbidden = errors.New("forbidden")

type StoreAPI interface {
	ClockedSummaries(ctx context.Context, from, to time.Time, scope Scope) ([]EmployeeSummary, error)
	ListEntries(ctx context.Context, from, to time.Time, scope Scope) ([]Entry, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	CreateEntry(ctx context.Context, in EntryInput, hours float64, createdBy string) (string, error)
	DecideEntry(ctx context.Context, id, status, approverID string) (bool, error)
	DepartmentOf(ctx context.Context, userID string) (string, error)
}

type Service struct {
	Store  StoreAPI
	Notify *notifications.Service
}

func NewService(store StoreAPI, notify *notifications.Service) *Service {
	return &Service{Store: store, Notify: notify}
}

func (s *Service) scope(ctx context.Context, user auth.UserContext) (Scope, error) {
	switch {
	case user.IsHR():
		return Scope{}, nil
	case user.IsManager():
		dept, err := s.Store.DepartmentOf(ctx, user.UserID)
		if err != nil {
			return Scope{}, err
		}
		if dept == "" {
			return Scope{UserID: user.UserID}, nil
		}
		return Scope{DepartmentID: dept}, nil
	default:
		return Scope{UserID: user.UserID}, nil
	}
}

func (s *Service) Report(ctx context.Context, user auth.UserContext, month, year int) (MonthReport, error) {
	from, to, err := MonthRange(month, year)
	if err != nil {
		return MonthReport{}, err
	}
	scope, err := s.scope(ctx, user)
	if err != nil {
		return MonthReport{}, err
	}
	clocked, err := s.Store.ClockedSummaries(ctx, from, to, scope)
	if err != nil {
		return MonthReport{}, err
	}
	manual, err := s.Store.ListEntries(ctx, from, to, scope)
	if err != nil {
		return MonthReport{}, err
	}
	return BuildReport(month, year, clocked, manual), nil
}

func (s *Service) Export(ctx context.Context, user auth.UserContext, month, year int) ([]byte, string, error) {
	report, err := s.Report(ctx, user, month, year)
	if err != nil {
		return nil, "", err
	}
	data, err := ExportXLSX(report)
	if err != nil {
		return nil, "", err
	}
	return data, ExportFilename(month, year), nil
}

// Create records a manual overtime entry. Anyone may log their own; logging for
// someone else needs a managerial role.
func (s *Service) Create(ctx context.Context, user auth.UserContext, in EntryInput) (Entry, error) {
	if in.UserID == "" {
		in.UserID = user.UserID
	}
	if in.UserID != user.UserID && !user.IsManager() {
		return Entry{}, ErrForbidden
	}
	hours, err := ShiftDuration(in.StartTime, in.EndTime)
	if err != nil {
		return Entry{}, err
	}
	if in.Category == "" {
		in.Category = CategoryRegular
		if wd := in.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			in.Category = CategoryWeekend
		}
	}
	if !ValidCategory(in.Category) {
		return Entry{}, ErrInvalidCategory
	}
	in.Description = strings.TrimSpace(in.Description)
	id, err := s.Store.CreateEntry(ctx, in, hours, user.UserID)
	if err != nil {
		return Entry{}, err
	}
	return s.Store.GetEntry(ctx, id)
}

func (s *Service) Decide(ctx context.Context, user auth.UserContext, id, status string) (Entry, Entry, error) {
	if status != StatusApproved && status != StatusRejected {
		return Entry{}, Entry{}, ErrInvalidDecision
	}
	before, err := s.Store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	if before.UserID == user.UserID && !user.IsExecutive() {
		return Entry{}, Entry{}, ErrForbidden
	}
	if before.Status != StatusPending {
		return Entry{}, Entry{}, ErrInvalidState
	}
	ok, err := s.Store.DecideEntry(ctx, id, status, user.UserID)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	if !ok {
		return Entry{}, Entry{}, ErrInvalidState
	}
	after, err := s.Store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	s.Notify.Notify(ctx, after.UserID, notifications.TypeOvertimeDecided, "Overtime "+strings.ToLower(status),
		fmt.Sprintf("Your %.2f overtime hours on %s were %s.", after.Hours, after.Date.Format("2006-01-02"), strings.ToLower(status)))
	return before, after, nil
}
