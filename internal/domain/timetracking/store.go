package timetracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const entrySelect = `
    SELECT t.id, t.user_id, u.name, t.clock_in, t.clock_out, t.break_start, t.break_end, t.location,
           t.clock_out_location, t.notes, t.total_hours, t.regular_hours, t.overtime_hours, t.weekend_hours,
           t.holiday_hours, t.night_shift_hours, t.status, t.source, t.created_at
    FROM time_entries t
    JOIN users u ON u.id = t.user_id`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.EmployeeName, &e.ClockIn, &e.ClockOut, &e.BreakStart, &e.BreakEnd, &e.Location,
		&e.ClockOutLocation, &e.Notes, &e.TotalHours, &e.RegularHours, &e.OvertimeHours, &e.WeekendHours,
		&e.HolidayHours, &e.NightShiftHours, &e.Status, &e.Source, &e.CreatedAt)
	return e, err
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ActiveEntry(ctx context.Context, userID string) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, entrySelect+" WHERE t.user_id = $1 AND t.status = 'ACTIVE'", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNoActiveEntry
	}
	return e, err
}

func (s *Store) CreateEntry(ctx context.Context, userID string, clockIn time.Time, location, notes string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO time_entries (user_id, clock_in, location, notes, status, source)
    VALUES ($1,$2,$3,$4,'ACTIVE','CLOCK')
    RETURNING id
  `, userID, clockIn, location, notes).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrAlreadyClockedIn
	}
	return id, err
}

func (s *Store) SetBreakStart(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.Exec(ctx, "UPDATE time_entries SET break_start = $1, updated_at = now() WHERE id = $2 AND status = 'ACTIVE'", at, id)
	return err
}

func (s *Store) SetBreakEnd(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.Exec(ctx, "UPDATE time_entries SET break_end = $1, updated_at = now() WHERE id = $2 AND status = 'ACTIVE'", at, id)
	return err
}

// CompleteEntry closes an ACTIVE entry; false means it was no longer active.
func (s *Store) CompleteEntry(ctx context.Context, e Entry) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE time_entries
    SET clock_out = $1, break_end = $2, clock_out_location = $3, notes = $4,
        total_hours = $5, regular_hours = $6, overtime_hours = $7, weekend_hours = $8,
        holiday_hours = $9, night_shift_hours = $10, status = $11, source = $12, updated_at = now()
    WHERE id = $13 AND status = 'ACTIVE'
  `, e.ClockOut, e.BreakEnd, e.ClockOutLocation, e.Notes,
		e.TotalHours, e.RegularHours, e.OvertimeHours, e.WeekendHours,
		e.HolidayHours, e.NightShiftHours, e.Status, e.Source, e.ID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// InsertEntry stores an already-closed entry from an import or an absence.
func (s *Store) InsertEntry(ctx context.Context, e Entry) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO time_entries (user_id, clock_in, clock_out, break_start, break_end, location, notes,
                              total_hours, regular_hours, overtime_hours, weekend_hours, holiday_hours,
                              night_shift_hours, status, source)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING id
  `, e.UserID, e.ClockIn, e.ClockOut, e.BreakStart, e.BreakEnd, e.Location, e.Notes,
		e.TotalHours, e.RegularHours, e.OvertimeHours, e.WeekendHours, e.HolidayHours,
		e.NightShiftHours, e.Status, e.Source).Scan(&id)
	return id, err
}

func (s *Store) GetEntry(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, entrySelect+" WHERE t.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND t.user_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND t.clock_in >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND t.clock_in < $%d", len(args))
	}
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM time_entries t"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := entrySelect + where + fmt.Sprintf(" ORDER BY t.clock_in DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectEntries(rows)
	return list, total, err
}

func (s *Store) EntriesSince(ctx context.Context, userID string, from time.Time) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, entrySelect+" WHERE t.user_id = $1 AND (t.clock_in >= $2 OR t.status = 'ACTIVE') ORDER BY t.clock_in", userID, from)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// StaleActive lists ACTIVE entries clocked in before cutoff.
func (s *Store) StaleActive(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, entrySelect+" WHERE t.status = 'ACTIVE' AND t.clock_in < $1 ORDER BY t.clock_in", cutoff)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *Store) IsHoliday(ctx context.Context, day time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM holidays WHERE date = $1)", day).Scan(&exists)
	return exists, err
}

func (s *Store) HasEntryOn(ctx context.Context, userID string, from, to time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM time_entries WHERE user_id = $1 AND clock_in >= $2 AND clock_in < $3)
  `, userID, from, to).Scan(&exists)
	return exists, err
}

// UserIDsByEmail resolves active users for import rows.
func (s *Store) UserIDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT lower(email), id FROM users WHERE lower(email) = ANY($1) AND status = 'ACTIVE'", emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var email, id string
		if err := rows.Scan(&email, &id); err != nil {
			return nil, err
		}
		out[email] = id
	}
	return out, rows.Err()
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM time_entries WHERE status = 'ACTIVE'").Scan(&n)
	return n, err
}
