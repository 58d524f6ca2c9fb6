package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/notifications"
)

type StoreAPI interface {
	ListRequests(ctx context.Context, filter ListFilter) ([]Request, int, error)
	GetRequest(ctx context.Context, id string) (Request, error)
	HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error)
	CreateRequest(ctx context.Context, in CreateInput, workingDays float64) (string, error)
	DecideRequest(ctx context.Context, id, status, notes, reviewerID string) (bool, error)
	DeletePendingRequest(ctx context.Context, id string) (bool, error)
	Holidays(ctx context.Context, from, to time.Time) ([]Holiday, error)
	CreateHoliday(ctx context.Context, date time.Time, name string) (string, error)
	DeleteHoliday(ctx context.Context, id string) (bool, error)
	UserPlacement(ctx context.Context, userID string) (string, string, error)
	Coverage(ctx context.Context, departmentID, userID string, start, end time.Time) (Coverage, error)
	ManagerAway(ctx context.Context, managerUserID string, start, end time.Time) (string, bool, error)
	Entitlements(ctx context.Context, userID string, year int) (map[string]Entitlement, error)
	Usage(ctx context.Context, userID string, year int) (map[string]Usage, error)
	UpsertEntitlement(ctx context.Context, userID, leaveType string, year int, allowance float64) error
	Calendar(ctx context.Context, from, to time.Time, departmentID string) ([]CalendarEntry, error)
	ApproverUserIDs(ctx context.Context, userID string) ([]string, error)
	Rollover(ctx context.Context, fromYear int) (RolloverResult, error)
}

type Service struct {
	Store  StoreAPI
	Notify *notifications.Service
	Now    func() time.Time
}

func NewService(store StoreAPI, notify *notifications.Service) *Service {
	return &Service{Store: store, Notify: notify, Now: time.Now}
}

type CreateResult struct {
	Request   Request    `json:"request"`
	Conflicts []Conflict `json:"conflicts"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if !ValidType(in.LeaveType) {
		return CreateResult{}, ErrInvalidType
	}
	if err := ValidateRange(in.StartDate, in.EndDate); err != nil {
		return CreateResult{}, err
	}
	in.StartDate, in.EndDate = dateOnly(in.StartDate), dateOnly(in.EndDate)
	in.Reason = strings.TrimSpace(in.Reason)

	holidays, err := s.Store.Holidays(ctx, in.StartDate, in.EndDate)
	if err != nil {
		return CreateResult{}, err
	}
	days := WorkingDays(in.StartDate, in.EndDate, holidayDates(holidays))
	if days == 0 {
		return CreateResult{}, ErrNoWorkingDays
	}

	overlap, err := s.Store.HasOverlap(ctx, in.UserID, in.StartDate, in.EndDate)
	if err != nil {
		return CreateResult{}, err
	}
	if overlap {
		return CreateResult{}, ErrOverlap
	}

	// Team conflicts are computed before the insert so the new request does not count itself.
	conflicts, err := s.detect(ctx, in.UserID, in.LeaveType, in.StartDate, in.EndDate, false)
	if err != nil {
		slog.Warn("leave conflict detection failed", "err", err)
		conflicts = []Conflict{}
	}

	id, err := s.Store.CreateRequest(ctx, in, days)
	if err != nil {
		return CreateResult{}, err
	}
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return CreateResult{}, err
	}

	approvers, err := s.Store.ApproverUserIDs(ctx, in.UserID)
	if err != nil {
		slog.Warn("leave approver lookup failed", "err", err)
	}
	for _, approver := range approvers {
		s.Notify.Notify(ctx, approver, notifications.TypeLeaveSubmitted, "Leave request submitted",
			fmt.Sprintf("%s requested %s leave from %s to %s (%.1f working days).",
				req.EmployeeName, strings.ToLower(req.LeaveType), req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), days))
	}
	return CreateResult{Request: req, Conflicts: conflicts}, nil
}

// ScopeFor derives which requests user may see.
func (s *Service) ScopeFor(ctx context.Context, user auth.UserContext) (Scope, error) {
	if user.IsHR() {
		return Scope{All: true}, nil
	}
	scope := Scope{UserID: user.UserID}
	if user.IsManager() {
		dept, _, err := s.Store.UserPlacement(ctx, user.UserID)
		if err != nil {
			return Scope{}, err
		}
		scope.DepartmentID = dept
		scope.ManagerID = user.UserID
	}
	return scope, nil
}

func (s *Service) List(ctx context.Context, user auth.UserContext, status string, limit, offset int) ([]Request, int, error) {
	scope, err := s.ScopeFor(ctx, user)
	if err != nil {
		return nil, 0, err
	}
	return s.Store.ListRequests(ctx, ListFilter{Scope: scope, Status: status, Limit: limit, Offset: offset})
}

func (s *Service) Get(ctx context.Context, user auth.UserContext, id string) (Request, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	ok, err := s.canSee(ctx, user, req.UserID)
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (s *Service) canSee(ctx context.Context, user auth.UserContext, ownerID string) (bool, error) {
	if user.IsHR() || user.UserID == ownerID {
		return true, nil
	}
	if !user.IsManager() {
		return false, nil
	}
	return s.manages(ctx, user.UserID, ownerID)
}

func (s *Service) manages(ctx context.Context, managerID, userID string) (bool, error) {
	ownerDept, ownerManager, err := s.Store.UserPlacement(ctx, userID)
	if err != nil {
		return false, err
	}
	if ownerManager == managerID {
		return true, nil
	}
	myDept, _, err := s.Store.UserPlacement(ctx, managerID)
	if err != nil {
		return false, err
	}
	return myDept != "" && myDept == ownerDept, nil
}

// Decide approves or rejects a pending request and notifies the requester.
func (s *Service) Decide(ctx context.Context, user auth.UserContext, id, status, notes string) (Request, Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return Request{}, Request{}, ErrInvalidDecision
	}
	before, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	if before.UserID == user.UserID && !user.IsExecutive() {
		return Request{}, Request{}, ErrForbidden
	}
	if !user.IsHR() {
		ok, err := s.manages(ctx, user.UserID, before.UserID)
		if err != nil {
			return Request{}, Request{}, err
		}
		if !ok {
			return Request{}, Request{}, ErrForbidden
		}
	}
	if before.Status != StatusPending {
		return Request{}, Request{}, ErrInvalidState
	}
	ok, err := s.Store.DecideRequest(ctx, id, status, strings.TrimSpace(notes), user.UserID)
	if err != nil {
		return Request{}, Request{}, err
	}
	if !ok {
		return Request{}, Request{}, ErrInvalidState
	}
	after, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}

	ntype, verb := notifications.TypeLeaveApproved, "approved"
	if status == StatusRejected {
		ntype, verb = notifications.TypeLeaveRejected, "rejected"
	}
	body := fmt.Sprintf("Your %s leave from %s to %s was %s.", strings.ToLower(after.LeaveType),
		after.StartDate.Format("2006-01-02"), after.EndDate.Format("2006-01-02"), verb)
	if after.AdminNotes != "" {
		body += " Notes: " + after.AdminNotes
	}
	s.Notify.Notify(ctx, after.UserID, ntype, "Leave request "+verb, body)
	return before, after, nil
}

// Delete withdraws a pending request owned by user.
func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) error {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.UserID != user.UserID && !user.IsHR() {
		return ErrForbidden
	}
	if req.Status != StatusPending {
		return ErrInvalidState
	}
	ok, err := s.Store.DeletePendingRequest(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}
	return nil
}

// Conflicts checks a prospective range for userID. leaveType may be empty, in which
// case the balance check is skipped.
func (s *Service) Conflicts(ctx context.Context, userID, leaveType string, start, end time.Time) ([]Conflict, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	if leaveType != "" && !ValidType(leaveType) {
		return nil, ErrInvalidType
	}
	return s.detect(ctx, userID, leaveType, dateOnly(start), dateOnly(end), true)
}

func (s *Service) detect(ctx context.Context, userID, leaveType string, start, end time.Time, includeOwn bool) ([]Conflict, error) {
	conflicts := []Conflict{}

	if includeOwn {
		overlap, err := s.Store.HasOverlap(ctx, userID, start, end)
		if err != nil {
			return nil, err
		}
		if overlap {
			conflicts = append(conflicts, Conflict{
				Type:           "own_overlap",
				Severity:       SeverityHigh,
				Message:        "You already have a pending or approved leave request in this period",
				Recommendation: "Withdraw or adjust the existing request first",
			})
		}
	}

	dept, manager, err := s.Store.UserPlacement(ctx, userID)
	if err != nil {
		return nil, err
	}
	if dept != "" {
		cov, err := s.Store.Coverage(ctx, dept, userID, start, end)
		if err != nil {
			return nil, err
		}
		if c, ok := coverageConflict(cov); ok {
			conflicts = append(conflicts, c)
		}
	}
	if manager != "" {
		name, away, err := s.Store.ManagerAway(ctx, manager, start, end)
		if err != nil {
			return nil, err
		}
		if away {
			conflicts = append(conflicts, Conflict{
				Type:           "manager_away",
				Severity:       SeverityMedium,
				Message:        fmt.Sprintf("Your manager %s is on leave during this period", name),
				Recommendation: "Arrange a delegate approver or hand-over before you leave",
			})
		}
	}

	holidays, err := s.Store.Holidays(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if inside := HolidaysWithin(start, end, holidays); len(inside) > 0 {
		names := make([]string, 0, len(inside))
		for _, h := range inside {
			names = append(names, h.Name)
		}
		conflicts = append(conflicts, Conflict{
			Type:           "holiday",
			Severity:       SeverityLow,
			Message:        "The period includes public holidays: " + strings.Join(names, ", "),
			Recommendation: "Holidays are not deducted from your balance",
		})
	}

	if leaveType != "" && leaveType != TypeUnpaid {
		balances, err := s.Balance(ctx, userID, start.Year())
		if err != nil {
			return nil, err
		}
		days := WorkingDays(start, end, holidayDates(holidays))
		for _, b := range balances {
			if b.LeaveType != leaveType || b.Remaining == nil || days <= *b.Remaining {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:           "insufficient_balance",
				Severity:       SeverityHigh,
				Message:        fmt.Sprintf("Request needs %.1f working days but only %.1f remain", days, *b.Remaining),
				Recommendation: "Shorten the request or choose unpaid leave",
			})
		}
	}

	SortConflicts(conflicts)
	return conflicts, nil
}

// Balance returns one entry per leave type for year.
func (s *Service) Balance(ctx context.Context, userID string, year int) ([]Balance, error) {
	stored, err := s.Store.Entitlements(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	usage, err := s.Store.Usage(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	out := make([]Balance, 0, len(allTypes))
	for _, t := range allTypes {
		out = append(out, BuildBalance(t, entitlementFor(t, stored), usage[t]))
	}
	return out, nil
}

func (s *Service) SetEntitlement(ctx context.Context, userID, leaveType string, year int, allowance float64) error {
	if !ValidType(leaveType) || leaveType == TypeUnpaid {
		return ErrInvalidType
	}
	if allowance < 0 {
		return fmt.Errorf("allowance must not be negative")
	}
	return s.Store.UpsertEntitlement(ctx, userID, leaveType, year, allowance)
}

func (s *Service) Calendar(ctx context.Context, from, to time.Time, departmentID string) ([]CalendarEntry, error) {
	if err := ValidateRange(from, to); err != nil {
		return nil, err
	}
	return s.Store.Calendar(ctx, dateOnly(from), dateOnly(to), departmentID)
}

func (s *Service) Holidays(ctx context.Context, year int) ([]Holiday, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return s.Store.Holidays(ctx, from, from.AddDate(1, 0, -1))
}

func (s *Service) CreateHoliday(ctx context.Context, date time.Time, name string) (string, error) {
	return s.Store.CreateHoliday(ctx, dateOnly(date), strings.TrimSpace(name))
}

func (s *Service) DeleteHoliday(ctx context.Context, id string) error {
	ok, err := s.Store.DeleteHoliday(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// RunRollover carries the previous year's unused vacation into the current year.
func (s *Service) RunRollover(ctx context.Context) (any, error) {
	return s.Store.Rollover(ctx, s.Now().Year()-1)
}

func holidayDates(holidays []Holiday) []time.Time {
	out := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		out = append(out, h.Date)
	}
	return out
}
