package timetracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/notifications"
)

var (
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNoActiveEntry    = errors.New("no active time entry")
	ErrBreakActive      = errors.New("break already in progress")
	ErrBreakTaken       = errors.New("break already taken for this entry")
	ErrNoBreak          = errors.New("no break in progress")
	ErrAlreadyRecorded  = errors.New("an entry already exists for this day")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
)

type StoreAPI interface {
	ActiveEntry(ctx context.Context, userID string) (Entry, error)
	CreateEntry(ctx context.Context, userID string, clockIn time.Time, location, notes string) (string, error)
	SetBreakStart(ctx context.Context, id string, at time.Time) error
	SetBreakEnd(ctx context.Context, id string, at time.Time) error
	CompleteEntry(ctx context.Context, e Entry) (bool, error)
	InsertEntry(ctx context.Context, e Entry) (string, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error)
	EntriesSince(ctx context.Context, userID string, from time.Time) ([]Entry, error)
	StaleActive(ctx context.Context, cutoff time.Time) ([]Entry, error)
	IsHoliday(ctx context.Context, day time.Time) (bool, error)
	HasEntryOn(ctx context.Context, userID string, from, to time.Time) (bool, error)
	UserIDsByEmail(ctx context.Context, emails []string) (map[string]string, error)
}

type Service struct {
	Store          StoreAPI
	Notify         *notifications.Service
	Rules          Rules
	AutoCloseAfter time.Duration
	Location       *time.Location
	Now            func() time.Time
}

func NewService(store StoreAPI, notify *notifications.Service, rules Rules, autoCloseAfter time.Duration) *Service {
	return &Service{
		Store:          store,
		Notify:         notify,
		Rules:          rules,
		AutoCloseAfter: autoCloseAfter,
		Location:       time.UTC,
		Now:            time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.Now().In(s.Location)
}

func (s *Service) ClockIn(ctx context.Context, userID, location, notes string) (Entry, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = LocationUnavailable
	}
	if _, err := s.Store.ActiveEntry(ctx, userID); err == nil {
		return Entry{}, ErrAlreadyClockedIn
	} else if !errors.Is(err, ErrNoActiveEntry) {
		return Entry{}, err
	}
	id, err := s.Store.CreateEntry(ctx, userID, s.now(), location, strings.TrimSpace(notes))
	if err != nil {
		return Entry{}, err
	}
	return s.Store.GetEntry(ctx, id)
}

func (s *Service) BreakStart(ctx context.Context, userID string) (Entry, error) {
	entry, err := s.Store.ActiveEntry(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	if entry.OnBreak() {
		return Entry{}, ErrBreakActive
	}
	if entry.BreakStart != nil {
		return Entry{}, ErrBreakTaken
	}
	if err := s.Store.SetBreakStart(ctx, entry.ID, s.now()); err != nil {
		return Entry{}, err
	}
	return s.Store.GetEntry(ctx, entry.ID)
}

func (s *Service) BreakEnd(ctx context.Context, userID string) (Entry, error) {
	entry, err := s.Store.ActiveEntry(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	if !entry.OnBreak() {
		return Entry{}, ErrNoBreak
	}
	if err := s.Store.SetBreakEnd(ctx, entry.ID, s.now()); err != nil {
		return Entry{}, err
	}
	return s.Store.GetEntry(ctx, entry.ID)
}

func (s *Service) ClockOut(ctx context.Context, userID, location, notes string) (Entry, error) {
	entry, err := s.Store.ActiveEntry(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = LocationUnavailable
	}
	closed, err := s.close(ctx, entry, s.now(), location, SourceClock)
	if err != nil {
		return Entry{}, err
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		closed.Notes = joinNotes(closed.Notes, notes)
	}
	ok, err := s.Store.CompleteEntry(ctx, closed)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrNoActiveEntry
	}
	return s.Store.GetEntry(ctx, entry.ID)
}

// close computes the buckets for entry ending at out. An open break ends at out.
func (s *Service) close(ctx context.Context, entry Entry, out time.Time, location, source string) (Entry, error) {
	if entry.OnBreak() {
		end := out
		entry.BreakEnd = &end
	}
	in := entry.ClockIn.In(s.Location)
	holiday, err := s.Store.IsHoliday(ctx, time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, time.UTC))
	if err != nil {
		return Entry{}, err
	}
	entry.Buckets = Categorize(in, out, entry.BreakStart, entry.BreakEnd, holiday, s.Rules)
	entry.Status = StatusFor(entry.Buckets)
	entry.ClockOut = &out
	entry.ClockOutLocation = location
	entry.Source = source
	return entry, nil
}

func (s *Service) Current(ctx context.Context, userID string) (*Entry, error) {
	entry, err := s.Store.ActiveEntry(ctx, userID)
	if errors.Is(err, ErrNoActiveEntry) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entries lists entries. Only managers may look at other users; an empty user
// filter means "everyone" for them and "me" for everyone else.
func (s *Service) Entries(ctx context.Context, user auth.UserContext, filter EntryFilter) ([]Entry, int, error) {
	if !user.IsManager() {
		if filter.UserID != "" && filter.UserID != user.UserID {
			return nil, 0, ErrForbidden
		}
		filter.UserID = user.UserID
	}
	return s.Store.ListEntries(ctx, filter)
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	now := s.now()
	entries, err := s.Store.EntriesSince(ctx, userID, StatsWindowStart(now))
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(entries, now), nil
}

// MarkAbsent records a zero-hour ABSENT entry for userID on day.
func (s *Service) MarkAbsent(ctx context.Context, userID string, day time.Time, notes string) (Entry, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	exists, err := s.Store.HasEntryOn(ctx, userID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return Entry{}, err
	}
	if exists {
		return Entry{}, ErrAlreadyRecorded
	}
	id, err := s.Store.InsertEntry(ctx, Entry{
		UserID:  userID,
		ClockIn: start,
		Notes:   strings.TrimSpace(notes),
		Status:  StatusAbsent,
		Source:  SourceManual,
	})
	if err != nil {
		return Entry{}, err
	}
	return s.Store.GetEntry(ctx, id)
}

// Import loads completed entries from an uploaded spreadsheet. Rows for unknown
// users or days that already have an entry are skipped and reported.
func (s *Service) Import(ctx context.Context, filename string, data []byte) (ImportResult, error) {
	rows, err := ReadSheetRows(filename, data)
	if err != nil {
		return ImportResult{}, err
	}
	parsed, problems, err := ParseImportRows(rows, s.Location)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Errors: problems}
	result.Skipped = len(problems)

	emails := make([]string, 0, len(parsed))
	for _, r := range parsed {
		emails = append(emails, r.Email)
	}
	users, err := s.Store.UserIDsByEmail(ctx, emails)
	if err != nil {
		return ImportResult{}, err
	}

	for _, r := range parsed {
		userID, ok := users[r.Email]
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Line: r.Line, Message: "unknown or inactive user " + r.Email})
			continue
		}
		exists, err := s.Store.HasEntryOn(ctx, userID, r.Date, r.Date.AddDate(0, 0, 1))
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Line: r.Line, Message: "entry already exists for this day"})
			continue
		}

		entry := Entry{UserID: userID, ClockIn: r.ClockIn, Location: "Imported", Source: SourceImport}
		if r.BreakMinutes > 0 {
			brk := time.Duration(r.BreakMinutes) * time.Minute
			bs := r.ClockIn.Add((r.ClockOut.Sub(r.ClockIn) - brk) / 2)
			be := bs.Add(brk)
			entry.BreakStart, entry.BreakEnd = &bs, &be
		}
		holiday, err := s.Store.IsHoliday(ctx, time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, time.UTC))
		if err != nil {
			return result, err
		}
		entry.Buckets = Categorize(r.ClockIn, r.ClockOut, entry.BreakStart, entry.BreakEnd, holiday, s.Rules)
		entry.Status = StatusFor(entry.Buckets)
		out := r.ClockOut
		entry.ClockOut = &out
		if _, err := s.Store.InsertEntry(ctx, entry); err != nil {
			return result, err
		}
		result.Imported++
	}
	return result, nil
}

// AutoClose clocks out ACTIVE entries older than AutoCloseAfter, capping the shift
// at that length.
func (s *Service) AutoClose(ctx context.Context) (any, error) {
	if s.AutoCloseAfter <= 0 {
		return map[string]int{"closed": 0}, nil
	}
	stale, err := s.Store.StaleActive(ctx, s.now().Add(-s.AutoCloseAfter))
	if err != nil {
		return nil, err
	}
	closed := 0
	for _, entry := range stale {
		out := entry.ClockIn.Add(s.AutoCloseAfter)
		done, err := s.close(ctx, entry, out, "Auto-closed", SourceAutoClose)
		if err != nil {
			return map[string]int{"closed": closed}, err
		}
		done.Notes = joinNotes(done.Notes, fmt.Sprintf("Automatically clocked out after %s", s.AutoCloseAfter))
		ok, err := s.Store.CompleteEntry(ctx, done)
		if err != nil {
			return map[string]int{"closed": closed}, err
		}
		if !ok {
			continue
		}
		closed++
		s.Notify.Notify(ctx, entry.UserID, notifications.TypeTimeAutoClosed, "Time entry auto-closed",
			fmt.Sprintf("Your shift started %s was still open and has been clocked out automatically. Please review it.",
				entry.ClockIn.Format("2006-01-02 15:04")))
	}
	if closed > 0 {
		slog.Info("time entries auto-closed", "count", closed)
	}
	return map[string]int{"closed": closed}, nil
}

func joinNotes(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "\n" + extra
}
