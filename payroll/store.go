/*
store.go - Persistence interfaces the payroll service depends on

PURPOSE:
  Defines the boundary between the engine and storage. The engine itself is
  pure; Service loads a snapshot through these interfaces, computes, and
  optionally memoizes the result.

KEY INTERFACES:
  SubjectStore: Subjects and their employment configs
  ShiftStore:   Shift records by subject and date range
  RunStore:     Closed payroll runs (one per subject and period)
  Cache:        Breakdown memoization keyed by input fingerprint

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite persistence
  - payroll/store/memory.go: In-memory for testing and the CLI
  - cache/bunt.go: buntdb-backed Cache

SEE ALSO:
  - service.go: Uses these interfaces
*/
package payroll

import (
	"context"
	"time"

	"github.com/warp/wage-engine/generic"
)

// =============================================================================
// SUBJECTS AND SHIFTS
// =============================================================================

type SubjectStore interface {
	// GetSubject returns generic.ErrSubjectNotFound when id is unknown.
	GetSubject(ctx context.Context, id generic.SubjectID) (*Subject, error)

	// ListSubjectsByTeam returns the team's members ordered by ID.
	ListSubjectsByTeam(ctx context.Context, team generic.TeamID) ([]Subject, error)
}

type ShiftStore interface {
	// ListShifts returns the subject's shifts whose start date falls in
	// [from, to], ordered by start.
	ListShifts(ctx context.Context, subjectID generic.SubjectID, from, to generic.TimePoint) ([]Shift, error)
}

// =============================================================================
// PAYROLL RUNS - Closed periods
// =============================================================================

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records the close of one subject's period: the totals as computed at
// close time and the fingerprint of the inputs they came from.
type Run struct {
	ID          string
	SubjectID   generic.SubjectID
	Period      generic.Period
	Status      RunStatus
	Fingerprint string
	Gross       generic.Amount
	Tax         generic.Amount
	Net         generic.Amount
	Warnings    int
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

type RunStore interface {
	SavePayrollRun(ctx context.Context, run Run) error
	IsPeriodClosed(ctx context.Context, subjectID generic.SubjectID, period generic.Period) (bool, error)
}

// =============================================================================
// CACHE
// =============================================================================

// Cache memoizes breakdowns. Get returns generic.ErrCacheMiss unless an entry
// exists for the subject and period AND was stored under the same fingerprint.
type Cache interface {
	Get(ctx context.Context, subjectID generic.SubjectID, period generic.Period, fingerprint string) (Breakdown, error)
	Put(ctx context.Context, b Breakdown, fingerprint string) error
}
