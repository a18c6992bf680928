/*
Package sqlite provides a SQLite-backed implementation of the payroll stores.

PURPOSE:
  Persists subjects, shifts, holidays and closed payroll runs. The engine
  never touches the database: payroll.Service reads a snapshot through the
  interfaces below and computes from it.

INTERFACES IMPLEMENTED:
  payroll.SubjectStore:    Subjects and their employment configs
  payroll.ShiftStore:      Shifts by subject and start date
  payroll.RunStore:        Month-close runs
  generic.HolidayCalendar: Subject and global holidays

KEY TABLES:
  subjects:     Workplaces and team members, config stored as JSON
  shifts:       One row per worked interval, wage optional
  holidays:     Designated holidays (subject-specific or global)
  payroll_runs: Closed periods with totals in integer minor units

TIMESTAMPS:
  Shift instants are stored as RFC 3339 with their offset, so the wall clock
  the night window is evaluated in survives a round trip. start_date holds
  the local calendar date of the start and is what period queries filter on.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. ":memory:"
  databases are pinned to a single connection so every query sees the same
  database.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewService(store, store, cache, payroll.NewAggregator(store), logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

const dateLayout = "2006-01-02"

// Store implements the payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT,
		kind TEXT NOT NULL,
		team_id TEXT,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subjects_team
		ON subjects(team_id) WHERE team_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		start_date TEXT NOT NULL,
		hourly_wage TEXT,
		created_at TEXT NOT NULL
	);

	-- Period queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_shifts_subject_date
		ON shifts(subject_id, start_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_subject_date
		ON holidays(subject_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(subject_id, date, name);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		fingerprint TEXT,
		gross_minor INTEGER NOT NULL DEFAULT 0,
		tax_minor INTEGER NOT NULL DEFAULT 0,
		net_minor INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_status
		ON payroll_runs(status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payroll_runs_unique
		ON payroll_runs(subject_id, period_start, period_end);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SUBJECTS
// =============================================================================

// SaveSubject inserts or updates a subject.
func (s *Store) SaveSubject(ctx context.Context, subject payroll.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(factory.ConfigToJSON(subject.Config))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	query := `
		INSERT INTO subjects (id, name, color, kind, team_id, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			kind = excluded.kind,
			team_id = excluded.team_id,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		subject.ID, subject.Name, nullString(subject.Color), string(subject.Kind),
		nullString(string(subject.TeamID)), string(configJSON), now, now,
	)
	return err
}

// GetSubject retrieves a subject by ID.
func (s *Store) GetSubject(ctx context.Context, id generic.SubjectID) (*payroll.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, color, kind, team_id, config_json FROM subjects WHERE id = ?`
	subject, err := scanSubject(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns all subjects, optionally filtered by kind.
func (s *Store) ListSubjects(ctx context.Context, kind payroll.SubjectKind) ([]payroll.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, color, kind, team_id, config_json FROM subjects`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`
	return s.querySubjects(ctx, query, args...)
}

// ListSubjectsByTeam returns the members of a team.
func (s *Store) ListSubjectsByTeam(ctx context.Context, team generic.TeamID) ([]payroll.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, color, kind, team_id, config_json FROM subjects WHERE team_id = ? ORDER BY id`
	return s.querySubjects(ctx, query, string(team))
}

// DeleteSubject deletes a subject and, by cascade, its shifts.
func (s *Store) DeleteSubject(ctx context.Context, id generic.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrSubjectNotFound
	}
	return nil
}

func (s *Store) querySubjects(ctx context.Context, query string, args ...any) ([]payroll.Subject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []payroll.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (payroll.Subject, error) {
	var subject payroll.Subject
	var color, teamID sql.NullString
	var kind, configJSON string
	if err := row.Scan(&subject.ID, &subject.Name, &color, &kind, &teamID, &configJSON); err != nil {
		return payroll.Subject{}, err
	}
	cfg, err := factory.ParseConfig([]byte(configJSON))
	if err != nil {
		return payroll.Subject{}, fmt.Errorf("subject %s: %w", subject.ID, err)
	}
	subject.Color = color.String
	subject.Kind = payroll.SubjectKind(kind)
	subject.TeamID = generic.TeamID(teamID.String)
	subject.Config = cfg
	return subject, nil
}

// =============================================================================
// SHIFTS
// =============================================================================

// SaveShift inserts or replaces a shift. The shift must have parsed
// timestamps; unparseable records are rejected at the API boundary.
func (s *Store) SaveShift(ctx context.Context, shift payroll.Shift) error {
	if shift.Start.IsZero() || shift.End.IsZero() {
		return fmt.Errorf("shift %s: %w", shift.ID, generic.ErrInvalidInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO shifts (id, subject_id, name, start_time, end_time, start_date, hourly_wage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_id = excluded.subject_id,
			name = excluded.name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			start_date = excluded.start_date,
			hourly_wage = excluded.hourly_wage
	`

	var wage sql.NullString
	if shift.HourlyWage.Valid {
		wage = sql.NullString{String: shift.HourlyWage.Decimal.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		shift.ID, shift.SubjectID, nullString(shift.Name),
		shift.Start.Format(time.RFC3339Nano), shift.End.Format(time.RFC3339Nano),
		shift.Start.Format(dateLayout), wage,
		time.Now().Format(time.RFC3339),
	)
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return fmt.Errorf("shift %s: %w", shift.ID, generic.ErrSubjectNotFound)
	}
	return err
}

// GetShift retrieves a shift by ID.
func (s *Store) GetShift(ctx context.Context, id generic.ShiftID) (*payroll.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, subject_id, name, start_time, end_time, hourly_wage FROM shifts WHERE id = ?`
	shift, err := scanShift(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrShiftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// ListShifts returns the subject's shifts starting in [from, to].
func (s *Store) ListShifts(ctx context.Context, subjectID generic.SubjectID, from, to generic.TimePoint) ([]payroll.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, subject_id, name, start_time, end_time, hourly_wage
		FROM shifts
		WHERE subject_id = ? AND start_date >= ? AND start_date <= ?
		ORDER BY start_date ASC, start_time ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, subjectID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []payroll.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// DeleteShift deletes a shift by ID.
func (s *Store) DeleteShift(ctx context.Context, id generic.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM shifts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrShiftNotFound
	}
	return nil
}

func scanShift(row rowScanner) (payroll.Shift, error) {
	var shift payroll.Shift
	var name, wage sql.NullString
	var start, end string
	if err := row.Scan(&shift.ID, &shift.SubjectID, &name, &start, &end, &wage); err != nil {
		return payroll.Shift{}, err
	}
	shift.Name = name.String

	var problems []string
	var err error
	if shift.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		problems = append(problems, "start_time: "+err.Error())
	}
	if shift.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
		problems = append(problems, "end_time: "+err.Error())
	}
	shift.ParseError = strings.Join(problems, "; ")
	if wage.Valid {
		d, err := decimal.NewFromString(wage.String)
		if err != nil {
			return payroll.Shift{}, fmt.Errorf("shift %s wage: %w", shift.ID, err)
		}
		shift.HourlyWage = decimal.NewNullDecimal(d)
	}
	return shift, nil
}

// =============================================================================
// HOLIDAYS - implements generic.HolidayCalendar
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, subject_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		string(h.SubjectID),
		h.Date.String(),
		h.Name,
		h.Recurring,
		time.Now().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// GetHolidays returns the subject's and global holidays in a year.
// Recurring holidays are moved into the requested year.
func (s *Store) GetHolidays(subjectID generic.SubjectID, year int) []generic.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, subject_id, date, name, recurring
		FROM holidays
		WHERE (subject_id = ? OR subject_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY strftime('%m-%d', date) ASC
	`

	rows, err := s.db.Query(query, string(subjectID), fmt.Sprintf("%d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			continue
		}
		if h.Recurring {
			h.Date = generic.NewTimePoint(year, h.Date.Month(), h.Date.Day())
		}
		holidays = append(holidays, h)
	}
	return holidays
}

// IsHoliday checks subject-specific and global holidays. Lookup failures
// count as "not a holiday".
func (s *Store) IsHoliday(subjectID generic.SubjectID, date generic.TimePoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (subject_id = ? OR subject_id = '')
		  AND (
			(recurring = FALSE AND date = ?)
			OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		  )
	`

	var count int
	err := s.db.QueryRow(query, string(subjectID), date.String(), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// GetAllHolidays returns all holidays visible to a subject (for admin UI).
// An empty subjectID lists every holiday.
func (s *Store) GetAllHolidays(ctx context.Context, subjectID generic.SubjectID) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, subject_id, date, name, recurring FROM holidays`
	var args []any
	if subjectID != "" {
		query += ` WHERE subject_id = ? OR subject_id = ''`
		args = append(args, string(subjectID))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func scanHoliday(row rowScanner) (generic.Holiday, error) {
	var h generic.Holiday
	var subjectID, dateStr string
	if err := row.Scan(&h.ID, &subjectID, &dateStr, &h.Name, &h.Recurring); err != nil {
		return generic.Holiday{}, err
	}
	date, err := generic.ParseDate(dateStr)
	if err != nil {
		return generic.Holiday{}, err
	}
	h.SubjectID = generic.SubjectID(subjectID)
	h.Date = date
	return h, nil
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

// SavePayrollRun records a period close. Closing the same subject and period
// again updates the existing run.
func (s *Store) SavePayrollRun(ctx context.Context, r payroll.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_runs (id, subject_id, period_start, period_end, status, fingerprint,
			gross_minor, tax_minor, net_minor, warnings, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, period_start, period_end) DO UPDATE SET
			status = excluded.status,
			fingerprint = excluded.fingerprint,
			gross_minor = excluded.gross_minor,
			tax_minor = excluded.tax_minor,
			net_minor = excluded.net_minor,
			warnings = excluded.warnings,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.SubjectID, r.Period.Start.String(), r.Period.End.String(),
		string(r.Status), nullString(r.Fingerprint),
		r.Gross.MinorUnits(), r.Tax.MinorUnits(), r.Net.MinorUnits(),
		r.Warnings, nullString(r.Error),
		nullTime(r.StartedAt), nullTime(r.CompletedAt),
		time.Now().Format(time.RFC3339),
	)
	return err
}

// GetPayrollRuns returns runs, newest period first, optionally by status.
func (s *Store) GetPayrollRuns(ctx context.Context, status payroll.RunStatus) ([]payroll.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, subject_id, period_start, period_end, status, fingerprint,
			gross_minor, tax_minor, net_minor, warnings, error, started_at, completed_at
		FROM payroll_runs
	`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY period_start DESC, subject_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		var r payroll.Run
		var periodStart, periodEnd, runStatus string
		var fingerprint, runErr, startedAt, completedAt sql.NullString
		var gross, tax, net int64
		if err := rows.Scan(
			&r.ID, &r.SubjectID, &periodStart, &periodEnd, &runStatus, &fingerprint,
			&gross, &tax, &net, &r.Warnings, &runErr, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.Period.Start, _ = generic.ParseDate(periodStart)
		r.Period.End, _ = generic.ParseDate(periodEnd)
		r.Status = payroll.RunStatus(runStatus)
		r.Fingerprint = fingerprint.String
		r.Gross = generic.FromMinorUnits(gross, generic.UnitCurrency)
		r.Tax = generic.FromMinorUnits(tax, generic.UnitCurrency)
		r.Net = generic.FromMinorUnits(net, generic.UnitCurrency)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt.String)
		r.CompletedAt, _ = time.Parse(time.RFC3339, completedAt.String)

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsPeriodClosed checks if a completed run exists for the subject and period.
func (s *Store) IsPeriodClosed(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM payroll_runs
		WHERE subject_id = ? AND period_start = ? AND period_end = ? AND status = 'completed'
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, subjectID, period.Start.String(), period.End.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"shifts", "payroll_runs", "holidays", "subjects"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
