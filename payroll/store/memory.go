// Package store provides in-memory implementations of the payroll store
// interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	subjects map[generic.SubjectID]payroll.Subject
	shifts   map[generic.SubjectID][]payroll.Shift
	runs     map[runKey]payroll.Run
}

type runKey struct {
	SubjectID generic.SubjectID
	Period    string
}

func NewMemory() *Memory {
	return &Memory{
		subjects: make(map[generic.SubjectID]payroll.Subject),
		shifts:   make(map[generic.SubjectID][]payroll.Shift),
		runs:     make(map[runKey]payroll.Run),
	}
}

// SaveSubject inserts or replaces a subject.
func (m *Memory) SaveSubject(_ context.Context, s payroll.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[s.ID] = s
	return nil
}

func (m *Memory) GetSubject(_ context.Context, id generic.SubjectID) (*payroll.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, generic.ErrSubjectNotFound
	}
	return &s, nil
}

func (m *Memory) ListSubjectsByTeam(_ context.Context, team generic.TeamID) ([]payroll.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Subject
	for _, s := range m.subjects {
		if s.TeamID == team {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AddShift stores a shift under its subject, keeping each subject's shifts
// ordered by start. A shift with an existing ID replaces the old record.
func (m *Memory) AddShift(_ context.Context, shift payroll.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeShiftLocked(shift.ID)

	shifts := m.shifts[shift.SubjectID]
	i := sort.Search(len(shifts), func(i int) bool {
		return shifts[i].Start.After(shift.Start)
	})
	shifts = append(shifts, payroll.Shift{})
	copy(shifts[i+1:], shifts[i:])
	shifts[i] = shift
	m.shifts[shift.SubjectID] = shifts
	return nil
}

func (m *Memory) DeleteShift(_ context.Context, id generic.ShiftID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removeShiftLocked(id) {
		return generic.ErrShiftNotFound
	}
	return nil
}

func (m *Memory) removeShiftLocked(id generic.ShiftID) bool {
	for subject, shifts := range m.shifts {
		for i, s := range shifts {
			if s.ID == id {
				m.shifts[subject] = append(shifts[:i:i], shifts[i+1:]...)
				return true
			}
		}
	}
	return false
}

func (m *Memory) ListShifts(_ context.Context, subjectID generic.SubjectID, from, to generic.TimePoint) ([]payroll.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Shift
	for _, s := range m.shifts[subjectID] {
		day := generic.DateOf(s.Start)
		if from.BeforeOrEqual(day) && day.BeforeOrEqual(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

// =============================================================================
// RUNS
// =============================================================================

func (m *Memory) SavePayrollRun(_ context.Context, run payroll.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runKey{SubjectID: run.SubjectID, Period: run.Period.Key()}] = run
	return nil
}

func (m *Memory) IsPeriodClosed(_ context.Context, subjectID generic.SubjectID, period generic.Period) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runKey{SubjectID: subjectID, Period: period.Key()}]
	return ok && run.Status == payroll.RunCompleted, nil
}

// =============================================================================
// MEMORY CACHE
// =============================================================================

type cacheEntry struct {
	fingerprint string
	breakdown   payroll.Breakdown
}

// MemoryCache is a map-backed payroll.Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[runKey]cacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[runKey]cacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, subjectID generic.SubjectID, period generic.Period, fingerprint string) (payroll.Breakdown, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[runKey{SubjectID: subjectID, Period: period.Key()}]
	if !ok || e.fingerprint != fingerprint {
		return payroll.Breakdown{}, generic.ErrCacheMiss
	}
	return e.breakdown, nil
}

func (c *MemoryCache) Put(_ context.Context, b payroll.Breakdown, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[runKey{SubjectID: b.SubjectID, Period: b.Period.Key()}] = cacheEntry{fingerprint: fingerprint, breakdown: b}
	return nil
}
